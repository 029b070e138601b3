package output

import (
	"io"
	"os"
	"strings"
)

// NewTargetWriter chooses the page destination for outPath:
//   - empty: a JSON array on stdout
//   - ending in ".json", or naming an existing regular file: a JSON file
//   - anything else: a directory of per-page files
func NewTargetWriter(stdout io.Writer, outPath string, toMarkdown bool) (Writer, error) {
	if outPath == "" {
		return NewJSONWriter(stdout), nil
	}
	if IsJSONTarget(outPath) {
		return NewJSONFileWriter(outPath)
	}
	return NewFilesWriter(outPath, ExtensionFor(toMarkdown)), nil
}

// IsJSONTarget reports whether outPath receives a JSON array rather than a
// directory of files.
func IsJSONTarget(outPath string) bool {
	if strings.HasSuffix(outPath, ".json") {
		return true
	}
	info, err := os.Stat(outPath)
	return err == nil && info.Mode().IsRegular()
}
