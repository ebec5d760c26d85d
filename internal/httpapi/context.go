package httpapi

import (
	"context"
)

// serverBaseCtx is a process-level context canceled on shutdown.
var serverBaseCtx = context.Background()

// SetBaseContext sets the process-level base context used by long-running
// handlers such as streamed log ingestion.
func SetBaseContext(ctx context.Context) {
	if ctx == nil {
		serverBaseCtx = context.Background()
		return
	}
	serverBaseCtx = ctx
}

// joinContexts returns a context derived from req that is also canceled when
// base is done. The cancel func must be called when the handler ends.
func joinContexts(base, req context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(req)
	stop := context.AfterFunc(base, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
