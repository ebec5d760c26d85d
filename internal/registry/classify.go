package registry

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"sdmodeld/internal/common/fsutil"
	"sdmodeld/pkg/types"
)

// MinModelSize is the size below which a file is never treated as a checkpoint.
const MinModelSize = 16 << 20

// maxProbeJSON bounds how many JSON files IsDiffusersDir looks at.
const maxProbeJSON = 20

const (
	markerDiffusersVersion = "_diffusers_version"
	markerOnnxClass        = `"_class_name": "Onnx`
	markerClassName        = `"_class_name":`
)

// Classify returns the format of the artifact at path, or FormatUnknown for
// anything that cannot be determined, including I/O failures.
func Classify(path string) types.Format {
	f, _ := DetectFormat(path)
	return f
}

// DetectFormat is Classify with the underlying I/O error exposed for
// diagnostics. The returned format is FormatUnknown whenever err != nil.
func DetectFormat(path string) (types.Format, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return types.FormatUnknown, fmt.Errorf("detect format: %w", err)
	}
	switch {
	case fi.Mode().IsRegular():
		return classifyFile(path, fi.Size()), nil
	case fi.IsDir():
		return classifyDir(path)
	}
	return types.FormatUnknown, nil
}

func classifyFile(path string, size int64) types.Format {
	if size < MinModelSize {
		return types.FormatUnknown
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ckpt", ".pt":
		return types.FormatPytorch
	case ".safetensors":
		return types.FormatSafetensors
	}
	return types.FormatUnknown
}

func classifyDir(dir string) (types.Format, error) {
	index, err := largestJSON(dir)
	if err != nil {
		return types.FormatUnknown, err
	}
	if index == "" {
		return types.FormatUnknown, nil
	}
	var diffusers, onnx, className bool
	err = scanLines(index, func(line string) bool {
		if strings.Contains(line, markerDiffusersVersion) {
			diffusers = true
		}
		if strings.Contains(line, markerOnnxClass) {
			onnx = true
		}
		if strings.Contains(line, markerClassName) {
			className = true
		}
		return true
	})
	if err != nil {
		return types.FormatUnknown, err
	}
	switch {
	case !diffusers:
		return types.FormatUnknown, nil
	case onnx:
		return types.FormatDiffusersOnnx, nil
	case className:
		return types.FormatDiffusers, nil
	}
	return types.FormatUnknown, nil
}

// largestJSON returns the biggest *.json file directly inside dir. Ties keep
// the first file in name order. Empty result means there is none.
func largestJSON(dir string) (string, error) {
	files, err := fsutil.ListFiles(dir, ".json")
	if err != nil {
		return "", err
	}
	var best string
	var bestSize int64 = -1
	for _, f := range files {
		fi, err := os.Stat(f)
		if err != nil {
			continue
		}
		if fi.Size() > bestSize {
			best, bestSize = f, fi.Size()
		}
	}
	return best, nil
}

// IsDiffusersDir is a cheap probe telling whether dir looks like a diffusers
// model at all: any of its first JSON files mentions the diffusers version key.
func IsDiffusersDir(dir string) bool {
	files, err := fsutil.ListFiles(dir, ".json")
	if err != nil {
		return false
	}
	if len(files) > maxProbeJSON {
		files = files[:maxProbeJSON]
	}
	for _, f := range files {
		found := false
		_ = scanLines(f, func(line string) bool {
			found = strings.Contains(line, markerDiffusersVersion)
			return !found
		})
		if found {
			return true
		}
	}
	return false
}

// scanLines calls fn for each line of the file until fn returns false.
// Lines are not length limited, so minified JSON is read as one line.
func scanLines(path string, fn func(line string) bool) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	r := bufio.NewReader(f)
	for {
		line, err := r.ReadString('\n')
		if len(line) > 0 && !fn(strings.TrimRight(line, "\r\n")) {
			return nil
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

// KindOf derives the model kind from the name of the directory containing path.
func KindOf(path string) types.Kind {
	switch filepath.Base(filepath.Dir(filepath.Clean(path))) {
	case VaeDir:
		return types.KindVae
	case EmbeddingsDir:
		return types.KindEmbedding
	}
	return types.KindNormal
}

// formatSuffixes are trailing name parts that only describe the container.
var formatSuffixes = []string{"-diffusers-onnx", "_diffusers_onnx", "-onnx", "_onnx", "-diffusers", "_diffusers"}

// FormatIndependentName strips the file extension (for files) or a trailing
// container suffix such as "-onnx" (for directories) from a model name.
func FormatIndependentName(name string, isDir bool) string {
	if !isDir {
		return fsutil.TrimExt(name)
	}
	lower := strings.ToLower(name)
	for _, s := range formatSuffixes {
		if strings.HasSuffix(lower, s) && len(name) > len(s) {
			return name[:len(name)-len(s)]
		}
	}
	return name
}
