// Package registry discovers Stable Diffusion model artifacts under a set of
// root directories and classifies their container format.
//
//   - classify.go: format detection for files and diffusers directories.
//   - cache.go: FormatCache, a memoizing wrapper around DetectFormat.
//   - loader.go: Registry, root directory resolution and the scan itself.
//   - query.go: filtered views (List, Find, HasInpaintingModel, Embeddings).
//   - implementation.go: backend capability table.
//   - hash.go, clipskip.go, watch.go: model-set fingerprint, CLIP skip
//     patching and fsnotify based cache invalidation.
//
// Nothing in this package returns filesystem errors from a scan: missing or
// unreadable paths are logged and the scan carries on.
package registry
