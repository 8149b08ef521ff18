package zarr

import (
	"path"
	"strings"
)

// Location addresses a node: a store and an absolute "/"-rooted path.
type Location struct {
	Store Store
	Path  string
}

// Root returns the location of the root group of s.
func Root(s Store) Location {
	return Location{Store: s, Path: "/"}
}

// Resolve returns the location of rel relative to l. rel may contain ".."
// segments or be absolute.
func (l Location) Resolve(rel string) Location {
	if strings.HasPrefix(rel, "/") {
		return Location{Store: l.Store, Path: CleanPath(rel)}
	}
	return Location{Store: l.Store, Path: CleanPath(path.Join(l.Path, rel))}
}

// Name returns the last path component, or "" for the root.
func (l Location) Name() string {
	if l.Path == "/" || l.Path == "" {
		return ""
	}
	return path.Base(l.Path)
}

// Parent returns the location of the enclosing group.
func (l Location) Parent() Location {
	return l.Resolve("..")
}

// Key returns the store key of a file below this node.
func (l Location) Key(name string) string {
	return strings.TrimPrefix(path.Join(CleanPath(l.Path), name), "/")
}

// Prefix returns the store key prefix of this node's directory.
func (l Location) Prefix() string {
	return strings.TrimPrefix(CleanPath(l.Path), "/")
}

func (l Location) String() string {
	return l.Path
}

// SplitPath splits a path into its components.
// Leading and trailing slashes are handled, empty components are removed.
//
// Examples:
//   - "/" -> []string{}
//   - "/foo" -> []string{"foo"}
//   - "/foo/bar" -> []string{"foo", "bar"}
func SplitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return []string{}
	}
	parts := strings.Split(p, "/")
	out := parts[:0]
	for _, part := range parts {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// CleanPath normalizes a path, ensuring it starts with "/" and has no
// trailing slash. ".." never climbs above the root.
func CleanPath(p string) string {
	if p == "" || p == "/" {
		return "/"
	}
	return path.Clean("/" + p)
}
