package registry

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"sdmodeld/internal/common/fsutil"
	"sdmodeld/pkg/types"
)

// Well-known subdirectories of every models root.
const (
	VaeDir        = "Vae"
	EmbeddingsDir = "Embeddings"
)

// maxParallelRoots bounds concurrent root scans.
const maxParallelRoots = 4

// Options configures a Registry.
type Options struct {
	// BuiltinDir is the models root shipped with the application.
	BuiltinDir string
	// CustomDirs are user-configured roots, scanned after BuiltinDir.
	CustomDirs []string
	// Archs assigns an architecture tag to a model by absolute path.
	Archs map[string]types.Architecture
	Logger zerolog.Logger
}

// Registry enumerates models under its root directories. A Registry holds
// one FormatCache and is meant to be owned by a single session.
type Registry struct {
	builtin string
	custom  []string
	archs   map[string]types.Architecture
	cache   *FormatCache
	log     zerolog.Logger
	// OnScan, when set, observes the duration and result size of every ListAll.
	OnScan func(d time.Duration, n int)
}

func New(opts Options) *Registry {
	archs := make(map[string]types.Architecture, len(opts.Archs))
	for p, a := range opts.Archs {
		if abs, err := fsutil.NormalizeDir(p); err == nil {
			archs[abs] = a
		}
	}
	return &Registry{
		builtin: opts.BuiltinDir,
		custom:  append([]string(nil), opts.CustomDirs...),
		archs:   archs,
		cache:   NewFormatCache(opts.Logger),
		log:     opts.Logger,
	}
}

// Cache exposes the registry's format detection cache.
func (r *Registry) Cache() *FormatCache { return r.cache }

// DetectFormat classifies path through the registry cache.
func (r *Registry) DetectFormat(path string) types.Format { return r.cache.Detect(path) }

// Dirs returns the root directories, builtin first when requested, with
// duplicates (by normalized absolute path) removed.
func (r *Registry) Dirs(includeBuiltin bool) []string {
	var in []string
	if includeBuiltin && r.builtin != "" {
		in = append(in, r.builtin)
	}
	in = append(in, r.custom...)
	seen := make(map[string]bool, len(in))
	var out []string
	for _, d := range in {
		abs, err := fsutil.NormalizeDir(d)
		if err != nil {
			r.log.Debug().Err(err).Str("dir", d).Msg("skipping model dir")
			continue
		}
		if seen[abs] {
			continue
		}
		seen[abs] = true
		out = append(out, abs)
	}
	return out
}

// ListAll scans every root and returns the detected models, unique by base
// name and sorted by it. Unreadable paths are logged and skipped. Each scan
// starts from an empty format cache and leaves it filled for later lookups.
func (r *Registry) ListAll(includeBuiltin bool) []types.Model {
	start := time.Now()
	r.cache.Invalidate()
	out := scanRoots(r.Dirs(includeBuiltin), r.archs, r.cache, r.log)
	if r.OnScan != nil {
		r.OnScan(time.Since(start), len(out))
	}
	return out
}

// Scan is the stateless form of ListAll over an explicit root list.
func Scan(roots []string, archs map[string]types.Architecture, log zerolog.Logger) []types.Model {
	return scanRoots(roots, archs, NewFormatCache(log), log)
}

func scanRoots(roots []string, archs map[string]types.Architecture, cache *FormatCache, log zerolog.Logger) []types.Model {
	results := make([][]types.Model, len(roots))
	var g errgroup.Group
	g.SetLimit(maxParallelRoots)
	for i, root := range roots {
		g.Go(func() error {
			results[i] = scanRoot(root, archs, cache, log)
			return nil
		})
	}
	_ = g.Wait()

	var all []types.Model
	for _, rs := range results {
		all = append(all, rs...)
	}
	return dedupeSorted(all)
}

// searchDirs returns root and its well-known subdirectories that exist.
func searchDirs(root string) []struct {
	path string
	kind types.Kind
} {
	candidates := []struct {
		path string
		kind types.Kind
	}{
		{root, types.KindNormal},
		{filepath.Join(root, VaeDir), types.KindVae},
		{filepath.Join(root, EmbeddingsDir), types.KindEmbedding},
	}
	out := candidates[:0]
	for _, c := range candidates {
		if fsutil.IsDir(c.path) {
			out = append(out, c)
		}
	}
	return out
}

// scanRoot collects file candidates before directory candidates for one root.
func scanRoot(root string, archs map[string]types.Architecture, cache *FormatCache, log zerolog.Logger) []types.Model {
	dirs := searchDirs(root)
	if len(dirs) == 0 {
		log.Debug().Str("dir", root).Msg("model dir does not exist")
		return nil
	}
	var files, folders []types.Model
	for _, d := range dirs {
		paths, err := fsutil.ListFiles(d.path, "")
		if err != nil {
			log.Info().Err(err).Str("dir", d.path).Msg("error getting models")
			continue
		}
		for _, p := range paths {
			if m, ok := newModel(p, false, d.kind, archs, cache); ok {
				files = append(files, m)
			}
		}
	}
	for _, d := range dirs {
		subs, err := fsutil.ListDirs(d.path)
		if err != nil {
			log.Info().Err(err).Str("dir", d.path).Msg("error getting models")
			continue
		}
		for _, p := range subs {
			if !IsDiffusersDir(p) {
				continue
			}
			if m, ok := newModel(p, true, d.kind, archs, cache); ok {
				folders = append(folders, m)
			}
		}
	}
	return append(files, folders...)
}

// newModel classifies path and reports false for unknown formats.
func newModel(path string, isDir bool, kind types.Kind, archs map[string]types.Architecture, cache *FormatCache) (types.Model, bool) {
	f := cache.Detect(path)
	if !f.IsValid() {
		return types.Model{}, false
	}
	name := filepath.Base(path)
	return types.Model{
		Path:                  path,
		Name:                  name,
		FormatIndependentName: FormatIndependentName(name, isDir),
		Format:                f,
		Kind:                  kind,
		Architecture:          archs[path],
	}, true
}

// dedupeSorted keeps the first model per base name and sorts by name (ordinal).
func dedupeSorted(in []types.Model) []types.Model {
	seen := make(map[string]bool, len(in))
	out := make([]types.Model, 0, len(in))
	for _, m := range in {
		if !m.Format.IsValid() || seen[m.Name] {
			continue
		}
		seen[m.Name] = true
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// embeddingFiles lists every file in a root's embeddings directory.
func embeddingFiles(root string) []string {
	dir := filepath.Join(root, EmbeddingsDir)
	if _, err := os.Stat(dir); err != nil {
		return nil
	}
	files, _ := fsutil.ListFiles(dir, "")
	return files
}
