package validator

import (
	"path"
	"slices"
	"strings"
)

// position converts a byte offset in content to a 1-based line and column.
//
// Thread-safety: Pure function, safe for concurrent calls.
func position(content string, offset int) (line, col int) {
	offset = min(max(offset, 0), len(content))
	line = 1 + strings.Count(content[:offset], "\n")
	lastNewline := strings.LastIndexByte(content[:offset], '\n')
	col = offset - lastNewline
	return line, col
}

// hasExtension reports whether name ends with one of exts (case-insensitive).
func hasExtension(name string, exts []string) bool {
	ext := strings.ToLower(path.Ext(name))
	return slices.ContainsFunc(exts, func(e string) bool {
		return strings.ToLower(e) == ext
	})
}

// defineName returns the define name a shared define file is bound to:
// its base name without extension.
func defineName(file string) string {
	base := path.Base(file)
	return strings.TrimSuffix(base, path.Ext(base))
}
