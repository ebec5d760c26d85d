package registry

import (
	"fmt"
	"slices"
	"strings"

	"sdmodeld/pkg/types"
)

// Implementation identifies a generation backend. The empty value means
// "any backend" wherever a filter is optional.
type Implementation string

const (
	ImplementationAny             Implementation = ""
	ImplementationInvokeAI        Implementation = "invokeai"
	ImplementationOptimizedSD     Implementation = "optimizedsd"
	ImplementationDiffusersOnnx   Implementation = "diffusers-onnx"
	ImplementationInstructPix2Pix Implementation = "instructpix2pix"
)

// Feature is an optional capability of a backend.
type Feature string

const (
	FeatureInteractiveCli      Feature = "interactive-cli"
	FeatureCustomModels        Feature = "custom-models"
	FeatureCustomVae           Feature = "custom-vae"
	FeatureHalfPrecisionToggle Feature = "half-precision-toggle"
	FeatureNegPrompts          Feature = "neg-prompts"
	FeatureNativeInpainting    Feature = "native-inpainting"
	FeatureDeviceSelection     Feature = "device-selection"
	FeatureMultipleSamplers    Feature = "multiple-samplers"
	FeatureEmbeddings          Feature = "embeddings"
	FeatureSeamlessMode        Feature = "seamless-mode"
	FeatureSymmetricMode       Feature = "symmetric-mode"
	FeatureHiresFix            Feature = "hires-fix"
)

// ImplementationInfo describes what a backend can load and do.
type ImplementationInfo struct {
	Backend          string
	SupportedFormats []types.Format
	ValidModelExts   []string
	ValidVaeExts     []string
	Features         []Feature
}

var implementations = map[Implementation]ImplementationInfo{
	ImplementationInvokeAI: {
		Backend:          "cuda",
		SupportedFormats: []types.Format{types.FormatPytorch, types.FormatSafetensors, types.FormatDiffusers},
		ValidModelExts:   []string{".ckpt", ".safetensors"},
		ValidVaeExts:     []string{".ckpt", ".pt"},
		Features: []Feature{FeatureInteractiveCli, FeatureCustomModels, FeatureCustomVae, FeatureHalfPrecisionToggle,
			FeatureNegPrompts, FeatureNativeInpainting, FeatureDeviceSelection, FeatureMultipleSamplers,
			FeatureEmbeddings, FeatureSeamlessMode, FeatureSymmetricMode, FeatureHiresFix},
	},
	ImplementationOptimizedSD: {
		Backend:          "cuda",
		SupportedFormats: []types.Format{types.FormatPytorch},
		ValidModelExts:   []string{".ckpt"},
		Features:         []Feature{FeatureCustomModels, FeatureHalfPrecisionToggle, FeatureDeviceSelection},
	},
	ImplementationDiffusersOnnx: {
		Backend:          "directml",
		SupportedFormats: []types.Format{types.FormatDiffusersOnnx},
		Features:         []Feature{FeatureInteractiveCli, FeatureCustomModels, FeatureHalfPrecisionToggle, FeatureNegPrompts},
	},
	ImplementationInstructPix2Pix: {
		Backend:  "cuda",
		Features: []Feature{FeatureInteractiveCli, FeatureNegPrompts},
	},
}

// Implementations lists the known backends in a stable order.
func Implementations() []Implementation {
	return []Implementation{ImplementationInvokeAI, ImplementationOptimizedSD, ImplementationDiffusersOnnx, ImplementationInstructPix2Pix}
}

// ParseImplementation resolves a backend identifier (case-insensitive).
func ParseImplementation(s string) (Implementation, error) {
	impl := Implementation(strings.ToLower(strings.TrimSpace(s)))
	if impl == ImplementationAny {
		return impl, nil
	}
	if _, ok := implementations[impl]; !ok {
		return ImplementationAny, fmt.Errorf("unknown implementation %q", s)
	}
	return impl, nil
}

// Info returns the capability entry; unknown identifiers yield an empty entry.
func (i Implementation) Info() ImplementationInfo { return implementations[i] }

// Supports reports whether the backend can load models of format f.
// ImplementationAny accepts every valid format.
func (i Implementation) Supports(f types.Format) bool {
	if i == ImplementationAny {
		return f.IsValid()
	}
	return slices.Contains(implementations[i].SupportedFormats, f)
}

// Has reports whether the backend offers the feature.
func (i Implementation) Has(f Feature) bool {
	return slices.Contains(implementations[i].Features, f)
}

func (i Implementation) String() string {
	if i == ImplementationAny {
		return "any"
	}
	return string(i)
}
