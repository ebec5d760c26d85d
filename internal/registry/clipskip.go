package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"sdmodeld/internal/common/fsutil"
	"sdmodeld/pkg/types"
)

const hiddenLayersKey = `"num_hidden_layers":`

// ErrClipSkipUnsupported is returned when CLIP skip is requested for a model
// that is not in diffusers format.
var ErrClipSkipUnsupported = errors.New("clip skip requires a diffusers model")

// SetClipSkip rewrites the text encoder config of a diffusers model so that
// layersToSkip final CLIP layers are dropped. The pristine config is kept next
// to it as config.json.original and is always the source of the rewrite, so
// layersToSkip=0 restores the original layer count. The format is taken from
// the registry cache rather than from m.
func (r *Registry) SetClipSkip(m types.Model, layersToSkip int) error {
	if layersToSkip > 0 && r.DetectFormat(m.Path) != types.FormatDiffusers {
		return ErrClipSkipUnsupported
	}
	if !fsutil.IsDir(m.Path) {
		return fmt.Errorf("clip skip: not a model directory: %s", m.Path)
	}
	cfgPath := filepath.Join(m.Path, "text_encoder", "config.json")
	srcPath := cfgPath + ".original"
	if !fsutil.IsFile(cfgPath) {
		return fmt.Errorf("clip skip: config not found: %s", cfgPath)
	}
	if !fsutil.IsFile(srcPath) {
		b, err := os.ReadFile(cfgPath)
		if err != nil {
			return fmt.Errorf("clip skip: %w", err)
		}
		if err := os.WriteFile(srcPath, b, 0o644); err != nil {
			return fmt.Errorf("clip skip: backup: %w", err)
		}
	}
	src, err := os.ReadFile(srcPath)
	if err != nil {
		return fmt.Errorf("clip skip: %w", err)
	}
	lines := strings.Split(string(src), "\n")
	for i, line := range lines {
		if !strings.HasPrefix(strings.TrimSpace(line), hiddenLayersKey) {
			continue
		}
		idx := strings.Index(line, hiddenLayersKey)
		raw := strings.TrimSpace(line[idx+len(hiddenLayersKey):])
		comma := strings.HasSuffix(raw, ",")
		layers, err := strconv.Atoi(strings.TrimSpace(strings.TrimSuffix(raw, ",")))
		if err != nil {
			return fmt.Errorf("clip skip: parse layer count %q: %w", raw, err)
		}
		n := max(layers-layersToSkip, 1)
		lines[i] = fmt.Sprintf("%s%s %d", line[:idx], hiddenLayersKey, n)
		if comma {
			lines[i] += ","
		}
		r.log.Info().Int("layers", n).Int("total", layers).Int("skip", layersToSkip).Msg("clip skip patched")
	}
	out := strings.Join(lines, "\n")
	if cur, err := os.ReadFile(cfgPath); err == nil && string(cur) == out {
		return nil
	}
	if err := os.WriteFile(cfgPath, []byte(out), 0o644); err != nil {
		return fmt.Errorf("clip skip: %w", err)
	}
	r.cache.Forget(m.Path)
	return nil
}
