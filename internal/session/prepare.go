package session

import (
	"context"
	"io"
	"strings"

	"sdmodeld/internal/prompt"
	"sdmodeld/internal/registry"
)

// PreparedPrompt is a prompt in the form handed to the backend.
type PreparedPrompt struct {
	Prompt       string
	Incompatible []string
}

// Prepare normalizes the attention syntax of both prompts, combines them and
// replaces embedding file names with their triggers. Backends without
// embedding support get the combined prompt as is.
func (s *Session) Prepare(positive, negative string) PreparedPrompt {
	combined := prompt.Combine(prompt.Normalize(positive), prompt.Normalize(negative))
	promptsPrepared.Inc()
	if !s.embeddingsSupported() {
		return PreparedPrompt{Prompt: combined}
	}
	out, incompatible := s.resolver.Resolve(combined)
	if len(incompatible) > 0 {
		incompatibleEmbeddings.Add(float64(len(incompatible)))
		s.log.Info().Strs("embeddings", incompatible).
			Msgf("the following embeddings are not compatible with the current model: %s", strings.Join(incompatible, ", "))
	}
	return PreparedPrompt{Prompt: out, Incompatible: incompatible}
}

// Triggers returns a copy of the trigger table.
func (s *Session) Triggers() map[string]string { return s.resolver.Triggers() }

// IngestLine feeds one backend line to the trigger table and returns the
// number of entries loaded (0 when the line carries no trigger list).
func (s *Session) IngestLine(line string) int {
	n, ok := s.resolver.IngestLogLine(line)
	if ok {
		s.triggersLoaded(n)
	}
	return n
}

// IngestLog consumes backend output until EOF or ctx is canceled. It returns
// the size of the last trigger table loaded, or 0 when no line carried one.
func (s *Session) IngestLog(ctx context.Context, r io.Reader) (int, error) {
	loaded := 0
	err := s.resolver.Consume(ctx, r, func(_ string, n int, ok bool) {
		if ok {
			loaded = n
			s.triggersLoaded(n)
		}
	})
	return loaded, err
}

// embeddingsSupported is true for backends that load textual inversions and
// for sessions not bound to a backend.
func (s *Session) embeddingsSupported() bool {
	return s.impl == registry.ImplementationAny || s.impl.Has(registry.FeatureEmbeddings)
}

func (s *Session) triggersLoaded(n int) {
	triggersGauge.Set(float64(n))
	s.pub.Publish(Event{Name: EventTriggersLoaded, Fields: map[string]any{"triggers": n}})
}
