package lookup

import "strings"

// Parse splits the first component off `path`. Leading slashes are skipped;
// `rest` keeps its own leading slash, or is empty when `name` was the last
// component.
func Parse(path string) (name, rest string) {
	path = strings.TrimLeft(path, "/")
	if i := strings.IndexByte(path, '/'); i >= 0 {
		return path[:i], path[i:]
	}
	return path, ""
}

// Depth counts the components of `path`.
func Depth(path string) int {
	depth := 0
	for name, rest := Parse(path); name != ""; name, rest = Parse(rest) {
		depth++
	}
	return depth
}

// Base returns the last component of `path`, ignoring trailing slashes.
func Base(path string) string {
	path = strings.TrimRight(path, "/")
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}

// IsRoot reports whether `path` names the root directory without walking
// any entries: `/`, `/.` and `/..`, with any number of slashes.
func IsRoot(path string) bool {
	if !strings.HasPrefix(path, "/") {
		return false
	}
	switch strings.Trim(path, "/") {
	case "", ".", "..":
		return true
	}
	return false
}
