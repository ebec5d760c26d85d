package registry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"

	"sdmodeld/pkg/types"
)

// ModelsHash fingerprints the normal and VAE models InvokeAI can load,
// including their architecture tags. Backend config written for a model set
// only needs regenerating when this value changes.
func ModelsHash(models []types.Model) string {
	var lines []string
	for _, m := range models {
		if m.Kind != types.KindNormal && m.Kind != types.KindVae {
			continue
		}
		if !ImplementationInvokeAI.Supports(m.Format) {
			continue
		}
		arch := m.Architecture
		if arch == "" {
			arch = types.ArchAutomatic
		}
		lines = append(lines, m.Path+string(arch))
	}
	sort.Strings(lines)
	return fmt.Sprintf("%016x", xxhash.Sum64String(strings.Join(lines, "\n")))
}
