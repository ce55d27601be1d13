package vfs

import (
	"path"
	"strings"
)

// CleanVirtual normalizes a virtual path to its canonical form: forward
// slashes only, no leading or trailing slash, no empty or dot segments.
// Returns ErrInvalidPath for paths that normalize to nothing and
// ErrPathEscapesMount for paths that climb above the namespace root.
// The path is cleaned unrooted so that ".." traversal stays visible
// instead of being swallowed by rooted normalization.
func CleanVirtual(virtualPath string) (string, error) {
	if len(virtualPath) == 0 {
		return "", ErrInvalidPath
	}

	p := strings.ReplaceAll(virtualPath, "\\", "/")
	p = path.Clean(strings.Trim(p, "/"))
	if p == "" || p == "." {
		return "", ErrInvalidPath
	}
	if p == ".." || strings.HasPrefix(p, "../") {
		return "", ErrPathEscapesMount
	}

	return p, nil
}

// SplitMount splits a canonical virtual path into its leading mount name
// and the remainder relative to the mount root. The remainder is empty
// for the mount root itself.
func SplitMount(virtualPath string) (name, rel string) {
	if idx := strings.Index(virtualPath, "/"); idx >= 0 {
		return virtualPath[:idx], virtualPath[idx+1:]
	}
	return virtualPath, ""
}

// JoinVirtual joins path segments with the canonical virtual separator,
// skipping empty segments.
func JoinVirtual(segments ...string) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "/")
}

// ParentVirtual returns the parent of a canonical virtual path, or ""
// if the path is a mount root.
func ParentVirtual(virtualPath string) string {
	if idx := strings.LastIndex(virtualPath, "/"); idx >= 0 {
		return virtualPath[:idx]
	}
	return ""
}

// hasPathPrefix checks if p equals prefix or lies strictly below it.
// Both paths must be cleaned before calling; sep is the separator of
// the namespace the paths belong to.
func hasPathPrefix(p, prefix, sep string) bool {
	if p == prefix {
		return true
	}
	return strings.HasPrefix(p, prefix+sep)
}
