package usecase

import (
	"path/filepath"
	"strings"
)

const (
	outputMaxName  = 10
	outputMinInput = 5
	outputSep      = "-"
)

// OutputFilename derives the cost sheet path from the input BOM paths.
// A single input keeps its directory and base name with ext swapped in.
// Several inputs have their base names truncated and joined with "-", placed
// in their shared directory or in cwd when they differ.
func OutputFilename(inputs []string, ext, cwd string) string {
	if len(inputs) == 0 {
		return ""
	}
	if len(inputs) == 1 {
		return trimExt(inputs[0]) + ext
	}

	dir := filepath.Dir(inputs[0])
	for _, in := range inputs[1:] {
		if filepath.Dir(in) != dir {
			dir = cwd
			break
		}
	}

	limit := outputMaxName / len(inputs)
	limit = max(limit, outputMinInput-len(outputSep))

	names := make([]string, len(inputs))
	for i, in := range inputs {
		base := trimExt(filepath.Base(in))
		if len(base) > limit {
			base = base[:limit]
		}
		names[i] = base
	}
	return filepath.Join(dir, strings.Join(names, outputSep)+ext)
}

func trimExt(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path))
}
