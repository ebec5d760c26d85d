package registry

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"sdmodeld/pkg/types"
)

// writeSized creates a sparse file of the given size.
func writeSized(t *testing.T, path string, size int64) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	if err := f.Truncate(size); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return path
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

const diffusersIndex = `{
  "_class_name": "StableDiffusionPipeline",
  "_diffusers_version": "0.11.0",
  "unet": ["diffusers", "UNet2DConditionModel"]
}
`

const onnxIndex = `{
  "_class_name": "OnnxStableDiffusionPipeline",
  "_diffusers_version": "0.11.0"
}
`

func makeDiffusersDir(t *testing.T, dir, index string) string {
	t.Helper()
	writeFile(t, filepath.Join(dir, "model_index.json"), index)
	return dir
}

func names(models []types.Model) []string {
	out := make([]string, 0, len(models))
	for _, m := range models {
		out = append(out, m.Name)
	}
	return out
}

func TestListAll_KindsFormatsAndSorting(t *testing.T) {
	root := t.TempDir()
	writeSized(t, filepath.Join(root, "zeta.safetensors"), MinModelSize)
	writeSized(t, filepath.Join(root, "alpha.ckpt"), MinModelSize+1)
	writeSized(t, filepath.Join(root, "tiny.ckpt"), 1024)
	writeSized(t, filepath.Join(root, "notes.txt"), MinModelSize)
	writeSized(t, filepath.Join(root, VaeDir, "kl-f8.pt"), MinModelSize)
	writeSized(t, filepath.Join(root, EmbeddingsDir, "style.pt"), MinModelSize)
	makeDiffusersDir(t, filepath.Join(root, "Beta-Diffusers"), diffusersIndex)
	makeDiffusersDir(t, filepath.Join(root, "gamma-onnx"), onnxIndex)
	writeFile(t, filepath.Join(root, "not-a-model", "config.json"), `{"foo": 1}`)

	reg := New(Options{BuiltinDir: root, Logger: zerolog.Nop()})
	got := reg.ListAll(true)

	want := []string{"Beta-Diffusers", "alpha.ckpt", "gamma-onnx", "kl-f8.pt", "style.pt", "zeta.safetensors"}
	if diff := cmp.Diff(want, names(got)); diff != "" {
		t.Fatalf("unexpected models (-want +got):\n%s", diff)
	}
	byName := map[string]types.Model{}
	for _, m := range got {
		byName[m.Name] = m
	}
	checks := []struct {
		name   string
		format types.Format
		kind   types.Kind
		fin    string
	}{
		{"alpha.ckpt", types.FormatPytorch, types.KindNormal, "alpha"},
		{"zeta.safetensors", types.FormatSafetensors, types.KindNormal, "zeta"},
		{"kl-f8.pt", types.FormatPytorch, types.KindVae, "kl-f8"},
		{"style.pt", types.FormatPytorch, types.KindEmbedding, "style"},
		{"Beta-Diffusers", types.FormatDiffusers, types.KindNormal, "Beta"},
		{"gamma-onnx", types.FormatDiffusersOnnx, types.KindNormal, "gamma"},
	}
	for _, c := range checks {
		m := byName[c.name]
		if m.Format != c.format || m.Kind != c.kind || m.FormatIndependentName != c.fin {
			t.Fatalf("%s: got format=%v kind=%v fin=%q", c.name, m.Format, m.Kind, m.FormatIndependentName)
		}
		if !filepath.IsAbs(m.Path) {
			t.Fatalf("%s: path not absolute: %s", c.name, m.Path)
		}
	}
}

func TestListAll_DedupesByNameFirstRootWins(t *testing.T) {
	builtin := t.TempDir()
	custom := t.TempDir()
	first := writeSized(t, filepath.Join(builtin, "same.ckpt"), MinModelSize)
	writeSized(t, filepath.Join(custom, "same.ckpt"), MinModelSize)
	writeSized(t, filepath.Join(custom, "other.ckpt"), MinModelSize)

	reg := New(Options{BuiltinDir: builtin, CustomDirs: []string{custom, custom + string(filepath.Separator), "/definitely/missing-12345"}})
	got := reg.ListAll(true)
	if diff := cmp.Diff([]string{"other.ckpt", "same.ckpt"}, names(got)); diff != "" {
		t.Fatalf("unexpected models (-want +got):\n%s", diff)
	}
	if got[1].Path != first {
		t.Fatalf("expected builtin copy to win, got %s", got[1].Path)
	}
	if dirs := reg.Dirs(true); len(dirs) != 3 {
		t.Fatalf("expected 3 deduplicated dirs, got %v", dirs)
	}
	if only := reg.ListAll(false); len(only) != 2 || only[1].Path == first {
		t.Fatalf("custom-only scan returned %+v", only)
	}
}

func TestListAll_MissingRootsDegradeToEmpty(t *testing.T) {
	reg := New(Options{BuiltinDir: "/definitely/not/here-12345"})
	if got := reg.ListAll(true); len(got) != 0 {
		t.Fatalf("expected no models, got %+v", got)
	}
}

func TestListAll_ArchitectureFromOptions(t *testing.T) {
	root := t.TempDir()
	p := writeSized(t, filepath.Join(root, "v2.ckpt"), MinModelSize)
	reg := New(Options{BuiltinDir: root, Archs: map[string]types.Architecture{p: types.ArchSD2V}})
	got := reg.ListAll(true)
	if len(got) != 1 || got[0].Architecture != types.ArchSD2V {
		t.Fatalf("unexpected: %+v", got)
	}
}

func TestListAll_ReportsScan(t *testing.T) {
	root := t.TempDir()
	writeSized(t, filepath.Join(root, "a.ckpt"), MinModelSize)
	reg := New(Options{BuiltinDir: root})
	var seen []int
	reg.OnScan = func(_ time.Duration, n int) { seen = append(seen, n) }
	reg.ListAll(true)
	reg.ListAll(true)
	if diff := cmp.Diff([]int{1, 1}, seen); diff != "" {
		t.Fatalf("unexpected scan reports (-want +got):\n%s", diff)
	}
}

func zerologNop() zerolog.Logger { return zerolog.Nop() }
