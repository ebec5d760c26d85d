package session

import (
	"time"

	"sdmodeld/internal/registry"
	"sdmodeld/pkg/types"
)

// Status builds a detailed status response for /status.
func (s *Session) Status() types.StatusResponse {
	all := s.all()
	s.mu.RLock()
	last := s.lastScan
	s.mu.RUnlock()
	var features []string
	for _, f := range s.impl.Info().Features {
		features = append(features, string(f))
	}
	return types.StatusResponse{
		SessionID:      s.id,
		Implementation: s.impl.String(),
		Features:       features,
		ModelDirs:      s.reg.Dirs(true),
		Models:         len(registry.Filter(all, types.KindNormal, s.impl)),
		Vaes:           len(registry.Filter(all, types.KindVae, s.impl)),
		Embeddings:     len(s.reg.Embeddings()),
		Triggers:       s.resolver.Len(),
		ModelsHash:     registry.ModelsHash(all),
		UptimeSeconds:  int64(time.Since(s.start).Seconds()),
		LastScanUnix:   last.Unix(),
	}
}
