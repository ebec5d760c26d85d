package e2e

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"sdmodeld/internal/httpapi"
	"sdmodeld/internal/session"
)

const checkpointSize = 20 << 20

// createModelsRoot lays out a models root. Names ending in "/" become
// diffusers directories; names under Embeddings/ stay small; every other name
// becomes a sparse checkpoint-sized file.
func createModelsRoot(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		p := filepath.Join(dir, n)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		switch {
		case n[len(n)-1] == '/':
			index := "{\n  \"_class_name\": \"StableDiffusionPipeline\",\n  \"_diffusers_version\": \"0.14.0\"\n}\n"
			if err := os.MkdirAll(p, 0o755); err != nil {
				t.Fatalf("mkdir: %v", err)
			}
			if err := os.WriteFile(filepath.Join(p, "model_index.json"), []byte(index), 0o644); err != nil {
				t.Fatalf("write index: %v", err)
			}
		case filepath.Base(filepath.Dir(p)) == "Embeddings":
			if err := os.WriteFile(p, []byte("embedding"), 0o644); err != nil {
				t.Fatalf("write embedding: %v", err)
			}
		default:
			f, err := os.Create(p)
			if err != nil {
				t.Fatalf("create %s: %v", p, err)
			}
			if err := f.Truncate(checkpointSize); err != nil {
				t.Fatalf("truncate: %v", err)
			}
			f.Close()
		}
	}
	return dir
}

func newServer(t *testing.T, cfg session.Config) (*httptest.Server, *session.Session) {
	t.Helper()
	cfg.Logger = zerolog.Nop()
	sess, err := session.New(cfg)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	srv := httptest.NewServer(httpapi.NewMux(sess))
	t.Cleanup(srv.Close)
	return srv, sess
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	return httpDo(t, http.MethodGet, url, "", nil)
}

func httpPostJSON(t *testing.T, url string, payload []byte) (*http.Response, []byte) {
	t.Helper()
	return httpDo(t, http.MethodPost, url, "application/json", payload)
}

func httpDo(t *testing.T, method, url, ct string, payload []byte) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), method, url, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	if ct != "" {
		req.Header.Set("Content-Type", ct)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}
