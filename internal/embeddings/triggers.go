// Package embeddings keeps the table mapping textual inversion file names to
// the trigger tokens the backend expects, and rewrites prompts accordingly.
package embeddings

import (
	"maps"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// DefaultTriggerMarker precedes the "<trigger> from <file>" list in the
// backend's startup output.
const DefaultTriggerMarker = "Textual inversion triggers: "

var tokenPattern = regexp.MustCompile(`<([^<>]+)>`)

// Resolver owns one trigger table. The table is replaced wholesale by every
// successful IngestLogLine and never merged across lines.
type Resolver struct {
	mu       sync.RWMutex
	triggers map[string]string
	marker   string
	log      zerolog.Logger
}

// NewResolver returns a Resolver with an empty table. An empty marker selects
// DefaultTriggerMarker.
func NewResolver(marker string, log zerolog.Logger) *Resolver {
	if marker == "" {
		marker = DefaultTriggerMarker
	}
	return &Resolver{triggers: make(map[string]string), marker: marker, log: log}
}

// Marker is the substring IngestLogLine looks for.
func (r *Resolver) Marker() string { return r.marker }

// IngestLogLine rebuilds the trigger table from a backend line of the form
// "... <marker><trig1> from file1.pt, <trig2> from file2.bin". Lines without
// the marker leave the table untouched. Malformed entries are skipped, so a
// list made only of malformed entries empties the table. It returns the number
// of entries loaded and whether the table was rebuilt.
func (r *Resolver) IngestLogLine(line string) (int, bool) {
	if line == "" {
		return 0, false
	}
	idx := strings.LastIndex(line, r.marker)
	if idx < 0 || strings.TrimSpace(line[idx+len(r.marker):]) == "" {
		r.log.Debug().Str("line", line).Msg("can't load embedding triggers from log line: no trigger list")
		return 0, false
	}
	text := line[idx+len(r.marker):]

	table := make(map[string]string)
	for _, entry := range strings.Split(text, ",") {
		parts := strings.Split(entry, " from ")
		if len(parts) != 2 {
			r.log.Debug().Str("entry", entry).Msg("can't parse embedding trigger entry")
			continue
		}
		trigger := strings.Trim(strings.TrimSpace(parts[0]), "<>")
		file := strings.TrimSpace(parts[1])
		file = strings.TrimSuffix(file, filepath.Ext(file))
		if trigger == "" || file == "" {
			r.log.Debug().Str("entry", entry).Msg("empty embedding trigger or file name")
			continue
		}
		table[file] = trigger
		r.log.Debug().Str("file", file).Str("trigger", trigger).Msg("mapped embedding file to trigger")
	}

	r.mu.Lock()
	r.triggers = table
	r.mu.Unlock()
	r.log.Info().Strs("embeddings", slices.Sorted(maps.Keys(table))).Msg("compatible embeddings")
	return len(table), true
}

// Triggers returns a copy of the current table (file stem -> trigger).
func (r *Resolver) Triggers() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.triggers)
}

func (r *Resolver) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.triggers)
}

// Rewrite replaces "<file-stem>" tokens in prompt with "<trigger>". When log
// is set, tokens that are neither a known trigger nor a known file stem are
// reported once through the logger.
func (r *Resolver) Rewrite(prompt string, log bool) string {
	out, incompatible := r.Resolve(prompt)
	if len(incompatible) > 0 && log {
		r.log.Info().Strs("embeddings", incompatible).
			Msgf("the following embeddings are not compatible with the current model: %s", strings.Join(incompatible, ", "))
	}
	return out
}

// Resolve is Rewrite without logging; it also returns the distinct
// incompatible tokens in order of first appearance.
func (r *Resolver) Resolve(prompt string) (string, []string) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	values := make(map[string]bool, len(r.triggers))
	for _, v := range r.triggers {
		values[v] = true
	}
	var incompatible []string
	for _, tok := range FindTokens(prompt, true) {
		if values[tok] {
			continue
		}
		if trigger, ok := r.triggers[tok]; ok {
			prompt = strings.ReplaceAll(prompt, "<"+tok+">", "<"+trigger+">")
			continue
		}
		incompatible = append(incompatible, tok)
	}
	return prompt, incompatible
}

// FindTokens returns the contents of every "<token>" in s, optionally
// de-duplicated keeping first-appearance order.
func FindTokens(s string, distinct bool) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range tokenPattern.FindAllStringSubmatch(s, -1) {
		tok := m[1]
		if distinct {
			if seen[tok] {
				continue
			}
			seen[tok] = true
		}
		out = append(out, tok)
	}
	return out
}
