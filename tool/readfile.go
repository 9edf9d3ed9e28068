package tool

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	readFileMaxBytes = 50_000
	readFileMaxChars = 2000
)

// readFile resolves path against the workspace root and returns the file's
// content. Any path escaping the root is rejected, files over the size
// ceiling are refused before reading, and returned content is truncated.
func (d *Dispatcher) readFile(path string) (string, bool) {
	if path == "" {
		return "[No path provided]", false
	}

	root, err := filepath.Abs(d.opts.WorkspaceRoot)
	if err != nil {
		return fmt.Sprintf("[Read error: %v]", err), false
	}

	target := filepath.Clean(filepath.Join(root, filepath.FromSlash(path)))
	rel, err := filepath.Rel(root, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "[Access denied: outside workspace]", false
	}

	info, err := os.Stat(target)
	if err != nil {
		return fmt.Sprintf("[File not found: %s]", path), false
	}
	if info.IsDir() {
		return fmt.Sprintf("[Not a file: %s]", path), false
	}
	if info.Size() > readFileMaxBytes {
		return fmt.Sprintf("[File too large: %d bytes]", info.Size()), false
	}

	data, err := os.ReadFile(target)
	if err != nil {
		return fmt.Sprintf("[Read error: %v]", err), false
	}
	return Truncate(string(data), readFileMaxChars), true
}
