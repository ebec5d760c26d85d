package session

import (
	"time"

	"github.com/rs/zerolog"

	"sdmodeld/pkg/types"
)

const defaultWatchDebounce = 500 * time.Millisecond

// Config encapsulates all tunables for Session construction.
type Config struct {
	// ModelDirs lists the roots to scan; the first entry is the builtin root.
	ModelDirs []string
	// Implementation names the generation backend; empty accepts every format.
	Implementation string
	// TriggerMarker overrides the embedding trigger marker of backend logs.
	TriggerMarker string
	// Archs assigns architecture tags by model path.
	Archs map[string]types.Architecture
	// WatchDebounce is the quiet time before a directory change triggers a rescan.
	WatchDebounce time.Duration
	Logger        zerolog.Logger
	Publisher     EventPublisher
}
