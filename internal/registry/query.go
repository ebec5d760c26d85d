package registry

import (
	"path/filepath"
	"sort"
	"strings"

	"sdmodeld/internal/common/fsutil"
	"sdmodeld/pkg/types"
)

// List returns the models of the given kind loadable by impl, ordered by
// format-independent name.
func (r *Registry) List(kind types.Kind, impl Implementation) []types.Model {
	return Filter(r.ListAll(true), kind, impl)
}

// Filter applies the kind and implementation filters of List to an already
// scanned model list.
func Filter(models []types.Model, kind types.Kind, impl Implementation) []types.Model {
	seen := make(map[string]bool)
	var out []types.Model
	for _, m := range models {
		if m.Kind != kind || !impl.Supports(m.Format) || seen[m.Name] {
			continue
		}
		seen[m.Name] = true
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].FormatIndependentName < out[j].FormatIndependentName })
	return out
}

// Find looks a model up by exact base name in a previously fetched list.
func Find(models []types.Model, name string) (types.Model, bool) {
	for _, m := range models {
		if m.Name == name {
			return m, true
		}
	}
	return types.Model{}, false
}

// FindIn is Find restricted to a kind and to formats impl can load.
func FindIn(models []types.Model, name string, kind types.Kind, impl Implementation) (types.Model, bool) {
	for _, m := range models {
		if m.Name == name && m.Kind == kind && impl.Supports(m.Format) {
			return m, true
		}
	}
	return types.Model{}, false
}

// HasInpaintingModel reports whether any model (optionally limited to the
// formats impl supports) has a format-independent name ending in "inpainting".
func HasInpaintingModel(models []types.Model, impl Implementation) bool {
	for _, m := range models {
		if impl != ImplementationAny && !impl.Supports(m.Format) {
			continue
		}
		if strings.HasSuffix(strings.ToLower(m.FormatIndependentName), "inpainting") {
			return true
		}
	}
	return false
}

// HasInpaintingModel scans all roots when models is nil.
func (r *Registry) HasInpaintingModel(models []types.Model, impl Implementation) bool {
	if models == nil {
		models = r.ListAll(true)
	}
	return HasInpaintingModel(models, impl)
}

// Embeddings lists every file in the embeddings directory of each root. No
// size check is applied: textual inversion files are small by nature.
func (r *Registry) Embeddings() []types.Model {
	var out []types.Model
	for _, root := range r.Dirs(true) {
		for _, p := range embeddingFiles(root) {
			name := filepath.Base(p)
			out = append(out, types.Model{
				Path:                  p,
				Name:                  name,
				FormatIndependentName: fsutil.TrimExt(name),
				Format:                types.FormatPytorch,
				Kind:                  types.KindEmbedding,
			})
		}
	}
	return out
}
