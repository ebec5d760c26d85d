package session

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"sdmodeld/internal/registry"
	"sdmodeld/pkg/types"
)

const bigModel = registry.MinModelSize + 1

func writeSized(t *testing.T, path string, size int64) {
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
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// newFixture lays out a models root and returns a session over it.
func newFixture(t *testing.T, impl string) (*Session, *MemoryPublisher, string) {
	t.Helper()
	root := t.TempDir()
	writeSized(t, filepath.Join(root, "sd-1.5-inpainting.safetensors"), bigModel)
	writeSized(t, filepath.Join(root, "v1.ckpt"), bigModel)
	writeSized(t, filepath.Join(root, "tiny.ckpt"), 1024)
	writeSized(t, filepath.Join(root, "Vae", "kl-f8.pt"), bigModel)
	writeFile(t, filepath.Join(root, "Embeddings", "style.pt"), "x")
	writeFile(t, filepath.Join(root, "onnx-model", "model_index.json"),
		"{\n  \"_class_name\": \"OnnxStableDiffusionPipeline\",\n  \"_diffusers_version\": \"0.11.0\"\n}\n")

	pub := NewMemoryPublisher()
	s, err := New(Config{
		ModelDirs:      []string{root, filepath.Join(root, "missing")},
		Implementation: impl,
		Logger:         zerolog.Nop(),
		Publisher:      pub,
	})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	return s, pub, root
}

func modelNames(models []types.Model) []string {
	var out []string
	for _, m := range models {
		out = append(out, m.Name)
	}
	return out
}

func TestNew_UnknownImplementation(t *testing.T) {
	_, err := New(Config{Implementation: "comfyui"})
	if !IsUnknownImplementation(err) {
		t.Fatalf("expected unknown implementation error, got %v", err)
	}
}

func TestSession_IDsAreUnique(t *testing.T) {
	a, _ := New(Config{})
	b, _ := New(Config{})
	if a.ID() == "" || a.ID() == b.ID() {
		t.Fatalf("expected distinct ids, got %q and %q", a.ID(), b.ID())
	}
}

func TestModels_FilteredByImplementation(t *testing.T) {
	s, pub, _ := newFixture(t, "invokeai")
	if s.Ready() {
		t.Fatalf("session must not be ready before the first scan")
	}
	want := []string{"sd-1.5-inpainting.safetensors", "v1.ckpt"}
	if diff := cmp.Diff(want, modelNames(s.Models(types.KindNormal))); diff != "" {
		t.Fatalf("normal models (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"kl-f8.pt"}, modelNames(s.Models(types.KindVae))); diff != "" {
		t.Fatalf("vaes (-want +got):\n%s", diff)
	}
	if !s.Ready() {
		t.Fatalf("session should be ready after a scan")
	}
	// second query is served from the cached scan
	s.Models(types.KindNormal)
	if got := len(pub.Named(EventModelsScanned)); got != 1 {
		t.Fatalf("expected 1 scan event, got %d", got)
	}

	onnx, err := s.ModelsFor(types.KindNormal, "diffusers-onnx")
	if err != nil {
		t.Fatalf("models for onnx: %v", err)
	}
	if diff := cmp.Diff([]string{"onnx-model"}, modelNames(onnx)); diff != "" {
		t.Fatalf("onnx models (-want +got):\n%s", diff)
	}
	unfiltered, err := s.ModelsFor(types.KindNormal, "any")
	if err != nil || len(unfiltered) != 3 {
		t.Fatalf("expected 3 models for any, got %v (%v)", modelNames(unfiltered), err)
	}
	if _, err := s.ModelsFor(types.KindNormal, "nope"); !IsUnknownImplementation(err) {
		t.Fatalf("expected unknown implementation, got %v", err)
	}
}

func TestModel_Lookup(t *testing.T) {
	s, _, root := newFixture(t, "")
	m, err := s.Model("v1.ckpt")
	if err != nil {
		t.Fatalf("model: %v", err)
	}
	if m.Path != filepath.Join(root, "v1.ckpt") || m.Format != types.FormatPytorch {
		t.Fatalf("unexpected model %+v", m)
	}
	if _, err := s.Model("tiny.ckpt"); !IsModelNotFound(err) {
		t.Fatalf("expected not found for undersized model, got %v", err)
	}
	if err := s.SetClipSkip("missing.ckpt", 1); !IsModelNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRefresh_PicksUpNewModels(t *testing.T) {
	s, pub, root := newFixture(t, "invokeai")
	before := s.ModelsHash()
	writeSized(t, filepath.Join(root, "v2.safetensors"), bigModel)
	if len(s.Models(types.KindNormal)) != 2 {
		t.Fatalf("cached scan must not see new files")
	}
	s.Refresh()
	if len(s.Models(types.KindNormal)) != 3 {
		t.Fatalf("refresh must see new files")
	}
	if s.ModelsHash() == before {
		t.Fatalf("hash should change with the model set")
	}
	if got := len(pub.Named(EventModelsScanned)); got != 2 {
		t.Fatalf("expected 2 scan events, got %d", got)
	}
}

func TestHasInpaintingModelAndEmbeddings(t *testing.T) {
	s, _, _ := newFixture(t, "invokeai")
	if !s.HasInpaintingModel() {
		t.Fatalf("expected an inpainting model")
	}
	onnx, _, _ := newFixture(t, "diffusers-onnx")
	if onnx.HasInpaintingModel() {
		t.Fatalf("onnx session has no inpainting model")
	}
	if diff := cmp.Diff([]string{"style.pt"}, modelNames(s.Embeddings())); diff != "" {
		t.Fatalf("embeddings (-want +got):\n%s", diff)
	}
}

func TestPrepare(t *testing.T) {
	s, pub, _ := newFixture(t, "invokeai")
	if n := s.IngestLine(">> Textual inversion triggers: <mystyle> from style.pt"); n != 1 {
		t.Fatalf("expected 1 trigger, got %d", n)
	}
	got := s.Prepare("a photo of <style> (cat)", "{blurry} <unknown>")
	want := PreparedPrompt{
		Prompt:       "a photo of <mystyle> (cat)+ [(blurry)- <unknown>]",
		Incompatible: []string{"unknown"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("prepare (-want +got):\n%s", diff)
	}
	if got := s.Prepare("plain", "  "); got.Prompt != "plain" || got.Incompatible != nil {
		t.Fatalf("unexpected %+v", got)
	}
	if len(pub.Named(EventTriggersLoaded)) != 1 {
		t.Fatalf("expected a triggers_loaded event")
	}
	if s.IngestLine("unrelated output") != 0 || len(s.Triggers()) != 1 {
		t.Fatalf("unrelated lines must not touch the table")
	}
}

func TestPrepare_BackendWithoutEmbeddings(t *testing.T) {
	s, _, _ := newFixture(t, "optimizedsd")
	s.IngestLine("Textual inversion triggers: <mystyle> from style.pt")
	got := s.Prepare("a <style> (cat)", "<unknown>")
	want := PreparedPrompt{Prompt: "a <style> (cat)+ [<unknown>]"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("prepare (-want +got):\n%s", diff)
	}
	if st := s.Status(); slices.Contains(st.Features, "embeddings") {
		t.Fatalf("optimizedsd must not report embeddings: %v", st.Features)
	}
}

func TestIngestLog(t *testing.T) {
	s, pub, _ := newFixture(t, "")
	log := strings.Join([]string{
		"* Initializing, be patient...",
		"Textual inversion triggers: <a> from a.pt, <b> from b.bin",
		"* Ready",
	}, "\n")
	n, err := s.IngestLog(context.Background(), strings.NewReader(log))
	if err != nil || n != 2 {
		t.Fatalf("ingest: n=%d err=%v", n, err)
	}
	if diff := cmp.Diff(map[string]string{"a": "a", "b": "b"}, s.Triggers()); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
	ev := pub.Named(EventTriggersLoaded)
	if len(ev) != 1 || ev[0].Fields["triggers"] != 2 {
		t.Fatalf("unexpected events %+v", ev)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	<-ctx.Done()
	if _, err := s.IngestLog(ctx, strings.NewReader("x\n")); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestIngest_EmptyTablePublished(t *testing.T) {
	s, pub, _ := newFixture(t, "invokeai")
	s.IngestLine("Textual inversion triggers: <a> from a.pt")
	if n := s.IngestLine("Textual inversion triggers: broken entry"); n != 0 || len(s.Triggers()) != 0 {
		t.Fatalf("expected emptied table, n=%d table=%v", n, s.Triggers())
	}
	ev := pub.Named(EventTriggersLoaded)
	if len(ev) != 2 || ev[1].Fields["triggers"] != 0 {
		t.Fatalf("emptied table must be published, got %+v", ev)
	}

	log := "Textual inversion triggers: <b> from b.pt\nTextual inversion triggers: junk\n"
	n, err := s.IngestLog(context.Background(), strings.NewReader(log))
	if err != nil || n != 0 {
		t.Fatalf("last table loaded was empty: n=%d err=%v", n, err)
	}
	if got := len(pub.Named(EventTriggersLoaded)); got != 4 {
		t.Fatalf("expected 4 trigger events, got %d", got)
	}
}

func TestStatus(t *testing.T) {
	s, _, root := newFixture(t, "invokeai")
	s.IngestLine("Textual inversion triggers: <mystyle> from style.pt")
	st := s.Status()
	if st.SessionID != s.ID() || st.Implementation != "invokeai" {
		t.Fatalf("unexpected identity %+v", st)
	}
	if st.Models != 2 || st.Vaes != 1 || st.Embeddings != 1 || st.Triggers != 1 {
		t.Fatalf("unexpected counts %+v", st)
	}
	if diff := cmp.Diff([]string{root, filepath.Join(root, "missing")}, st.ModelDirs); diff != "" {
		t.Fatalf("dirs (-want +got):\n%s", diff)
	}
	if !slices.Contains(st.Features, "embeddings") || !slices.Contains(st.Features, "hires-fix") {
		t.Fatalf("expected backend features, got %v", st.Features)
	}
	if st.ModelsHash == "" || st.LastScanUnix == 0 {
		t.Fatalf("expected hash and scan time: %+v", st)
	}
}
