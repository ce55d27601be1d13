package vfs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// MountPoint associates a virtual namespace root with a real filesystem
// directory. Names are unique across the VFS and form the leading segment
// of every virtual path below the mount.
type MountPoint struct {
	Name     string
	RealRoot string
}

type mountEntry struct {
	point     MountPoint
	mountedAt time.Time
}

// VFS translates between the virtual namespace clients see and real
// filesystem paths, based on a table of named mount points.
type VFS struct {
	mu     sync.RWMutex
	mounts map[string]*mountEntry
}

func New() *VFS {
	return &VFS{
		mounts: make(map[string]*mountEntry),
	}
}

// Mount registers a named mount point.
// Returns ErrDuplicateMountName if the name is already registered.
// Returns ErrInvalidRealRoot if realRoot does not exist or is not a directory.
func (v *VFS) Mount(realRoot, name string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.mountLocked(realRoot, name)
}

// mountLocked validates and inserts a mount entry.
// Must be called with the write lock held.
func (v *VFS) mountLocked(realRoot, name string) error {
	if name == "" || strings.ContainsAny(name, "/\\") {
		return fmt.Errorf("%w: %q", ErrInvalidMountName, name)
	}

	if _, exists := v.mounts[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateMountName, name)
	}

	root := filepath.Clean(realRoot)
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrInvalidRealRoot, realRoot)
	}

	v.mounts[name] = &mountEntry{
		point:     MountPoint{Name: name, RealRoot: root},
		mountedAt: time.Now(),
	}

	return nil
}

// Reset replaces the whole mount table with the given declarations.
// The swap is all-or-nothing: if any declaration fails validation the
// previous table stays in place. Used by the configuration collaborator
// on startup and reconfiguration.
func (v *VFS) Reset(points []MountPoint) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	previous := v.mounts
	v.mounts = make(map[string]*mountEntry, len(points))

	for _, p := range points {
		if err := v.mountLocked(p.RealRoot, p.Name); err != nil {
			v.mounts = previous
			return err
		}
	}

	return nil
}

// Mounts returns all registered mount points, sorted by name.
func (v *VFS) Mounts() []MountPoint {
	v.mu.RLock()
	defer v.mu.RUnlock()

	points := make([]MountPoint, 0, len(v.mounts))
	for _, entry := range v.mounts {
		points = append(points, entry.point)
	}

	sort.Slice(points, func(i, j int) bool {
		return points[i].Name < points[j].Name
	})

	return points
}

// VirtualToReal resolves a virtual path to the real filesystem path it
// maps to. The owning mount is identified by the leading path segment.
// Returns ErrMountNotFound if no mount matches.
// Returns ErrPathEscapesMount if the normalized path would leave the
// mount's real root.
func (v *VFS) VirtualToReal(virtualPath string) (string, error) {
	cleaned, err := CleanVirtual(virtualPath)
	if err != nil {
		return "", err
	}

	name, rel := SplitMount(cleaned)

	v.mu.RLock()
	entry, exists := v.mounts[name]
	v.mu.RUnlock()

	if !exists {
		return "", fmt.Errorf("%w: %s", ErrMountNotFound, name)
	}

	root := entry.point.RealRoot
	if rel == "" {
		return root, nil
	}

	real := filepath.Join(root, filepath.FromSlash(rel))
	if !hasPathPrefix(real, root, string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrPathEscapesMount, virtualPath)
	}

	return real, nil
}

// RealToVirtual resolves a real filesystem path back into the virtual
// namespace by substituting the owning mount's name for its real root.
// When several mounts could apply, the longest real root prefix wins.
// Returns ErrPathNotUnderAnyMount if no mount covers the path.
func (v *VFS) RealToVirtual(realPath string) (string, error) {
	if len(realPath) == 0 {
		return "", ErrInvalidPath
	}

	real := filepath.Clean(realPath)
	sep := string(filepath.Separator)

	v.mu.RLock()
	defer v.mu.RUnlock()

	var best *mountEntry
	for _, entry := range v.mounts {
		if !hasPathPrefix(real, entry.point.RealRoot, sep) {
			continue
		}
		if best == nil || len(entry.point.RealRoot) > len(best.point.RealRoot) {
			best = entry
		}
	}

	if best == nil {
		return "", fmt.Errorf("%w: %s", ErrPathNotUnderAnyMount, realPath)
	}

	rel := strings.TrimPrefix(real, best.point.RealRoot)
	rel = strings.TrimPrefix(rel, sep)
	if rel == "" {
		return best.point.Name, nil
	}

	return JoinVirtual(best.point.Name, filepath.ToSlash(rel)), nil
}
