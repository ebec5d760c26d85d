package types

import (
	"fmt"
	"strings"
)

// Format is the container format of a model artifact on disk.
// The zero value is FormatUnknown, which no valid artifact ever carries.
type Format int

const (
	FormatUnknown Format = iota
	FormatPytorch
	FormatSafetensors
	FormatDiffusers
	FormatDiffusersOnnx
)

var formatNames = map[Format]string{
	FormatUnknown:       "unknown",
	FormatPytorch:       "pytorch",
	FormatSafetensors:   "safetensors",
	FormatDiffusers:     "diffusers",
	FormatDiffusersOnnx: "diffusers-onnx",
}

func (f Format) String() string {
	if s, ok := formatNames[f]; ok {
		return s
	}
	return fmt.Sprintf("format(%d)", int(f))
}

// IsValid reports whether f is a detected format rather than the unknown sentinel.
func (f Format) IsValid() bool {
	return f >= FormatPytorch && f <= FormatDiffusersOnnx
}

func (f Format) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

func (f *Format) UnmarshalText(b []byte) error {
	v, err := ParseFormat(string(b))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// ParseFormat maps a format name (case-insensitive) back to its Format.
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for f, name := range formatNames {
		if name == s {
			return f, nil
		}
	}
	return FormatUnknown, fmt.Errorf("unknown model format %q", s)
}

// Kind tells which role a model plays, derived from the directory holding it.
type Kind int

const (
	KindNormal Kind = iota
	KindVae
	KindEmbedding
)

func (k Kind) String() string {
	switch k {
	case KindNormal:
		return "normal"
	case KindVae:
		return "vae"
	case KindEmbedding:
		return "embedding"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Kind) UnmarshalText(b []byte) error {
	v, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// ParseKind accepts "normal" (or empty), "vae" and "embedding"/"embeddings".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "normal", "model":
		return KindNormal, nil
	case "vae":
		return KindVae, nil
	case "embedding", "embeddings":
		return KindEmbedding, nil
	}
	return KindNormal, fmt.Errorf("unknown model kind %q", s)
}

// Architecture is the Stable Diffusion architecture a checkpoint is loaded as.
type Architecture string

const (
	ArchAutomatic Architecture = "automatic"
	ArchSD1       Architecture = "sd1"
	ArchSD2       Architecture = "sd2-512"
	ArchSD2V      Architecture = "sd2-768"
)

// ParseArchitecture validates an architecture tag. Empty input yields ArchAutomatic.
func ParseArchitecture(s string) (Architecture, error) {
	a := Architecture(strings.ToLower(strings.TrimSpace(s)))
	switch a {
	case "":
		return ArchAutomatic, nil
	case ArchAutomatic, ArchSD1, ArchSD2, ArchSD2V:
		return a, nil
	}
	return ArchAutomatic, fmt.Errorf("unknown architecture %q", s)
}
