package httpapi

import (
	"context"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

func TestSetMaxBodyBytes(t *testing.T) {
	defer SetMaxBodyBytes(0)
	SetMaxBodyBytes(-1)
	if maxBodyBytes != 1<<20 {
		t.Fatalf("expected default 1MiB, got %d", maxBodyBytes)
	}
	SetMaxBodyBytes(1234)
	if maxBodyBytes != 1234 {
		t.Fatalf("expected 1234, got %d", maxBodyBytes)
	}
}

func TestCORSMiddleware_NilWhenDisabled(t *testing.T) {
	SetCORSOptions(false, nil, nil, nil)
	if corsMiddleware() != nil {
		t.Fatalf("expected no middleware")
	}
	SetCORSOptions(true, nil, nil, nil)
	defer SetCORSOptions(false, nil, nil, nil)
	if corsMiddleware() == nil {
		t.Fatalf("expected middleware when enabled")
	}
}

func TestJoinContexts_CanceledByBase(t *testing.T) {
	base, cancelBase := context.WithCancel(context.Background())
	ctx, cancel := joinContexts(base, context.Background())
	defer cancel()
	cancelBase()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatalf("joined context not canceled by base")
	}
}

func TestJoinContexts_CanceledByRequest(t *testing.T) {
	req, cancelReq := context.WithCancel(context.Background())
	ctx, cancel := joinContexts(context.Background(), req)
	defer cancel()
	cancelReq()
	if ctx.Err() == nil {
		t.Fatalf("joined context not canceled by request")
	}
}

func TestSetBaseContext_NilResets(t *testing.T) {
	SetBaseContext(nil)
	if serverBaseCtx != context.Background() {
		t.Fatalf("expected background context")
	}
}

func TestMountSwagger_NoOp(t *testing.T) {
	r := chi.NewRouter()
	MountSwagger(r)
}
