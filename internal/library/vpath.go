package library

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// Virtual namespace segments.
const (
	AssetsNamespace = "/assets"
	DeviceNamespace = "/device"
)

// Reserved subtree names under a user root, auto-created on demand.
const (
	TrashDirName        = "_trash"
	UploadsDirName      = "Uploads"
	DeviceBackupDirName = "DeviceBackup"
)

// PathResolver maps bidirectionally between the virtual path namespace
// and the configured physical storage roots.
//
//	/assets/...        <-> internal managed root
//	/device/{user}/... <-> that user's device root
//
// Resolution normalizes both the candidate and the matched root and
// requires the physical result to stay contained under the root
// (case-insensitive prefix match). Anything else is Forbidden; this is
// the sole defense against path traversal.
type PathResolver struct {
	internalRoot string
	deviceRoots  map[string]string // userID -> physical device root
}

// NewPathResolver creates a resolver over the given physical roots.
func NewPathResolver(internalRoot string, deviceRoots map[string]string) *PathResolver {
	roots := make(map[string]string, len(deviceRoots))
	for id, root := range deviceRoots {
		roots[id] = filepath.Clean(root)
	}
	return &PathResolver{
		internalRoot: filepath.Clean(internalRoot),
		deviceRoots:  roots,
	}
}

// InternalRoot returns the physical root backing the /assets namespace.
func (r *PathResolver) InternalRoot() string { return r.internalRoot }

// DeviceRoot returns the physical device root configured for a user,
// or "" if none is configured.
func (r *PathResolver) DeviceRoot(userID string) string {
	return r.deviceRoots[userID]
}

// UserRoot returns the virtual root owned by a user.
func UserRoot(userID string) string {
	return AssetsNamespace + "/users/" + userID
}

// TrashBucketPath returns the per-day trash bucket for a user.
func TrashBucketPath(userID string, day string) string {
	return UserRoot(userID) + "/" + TrashDirName + "/" + day
}

// NormalizeVirtual cleans a virtual path into canonical form: forward
// slashes, leading slash, no trailing slash, dot segments resolved.
func NormalizeVirtual(p string) string {
	return path.Clean("/" + filepath.ToSlash(p))
}

// ResolvePhysical maps a virtual path to a physical one, enforcing
// containment and access. Non-admins may resolve paths under /assets and
// under their own /device/{id} subtree only.
func (r *PathResolver) ResolvePhysical(virtual string, actor Actor) (string, error) {
	vp := NormalizeVirtual(virtual)

	switch {
	case hasVirtualPrefix(vp, AssetsNamespace):
		return r.splice(vp, AssetsNamespace, r.internalRoot)

	case hasVirtualPrefix(vp, DeviceNamespace):
		rest := strings.TrimPrefix(vp, DeviceNamespace)
		userID, _, _ := strings.Cut(strings.TrimPrefix(rest, "/"), "/")
		if userID == "" {
			return "", fmt.Errorf("device path missing user segment: %w", ErrForbidden)
		}
		if !actor.Admin && actor.UserID != userID {
			return "", fmt.Errorf("device root of user %s: %w", userID, ErrForbidden)
		}
		root, ok := r.deviceRoots[userID]
		if !ok {
			return "", fmt.Errorf("no device root configured for user %s: %w", userID, ErrForbidden)
		}
		return r.splice(vp, DeviceNamespace+"/"+userID, root)

	default:
		return "", fmt.Errorf("path outside virtual namespace: %s: %w", vp, ErrForbidden)
	}
}

// physical resolves a virtual path without actor checks. For internal use
// after authorization has already been established.
func (r *PathResolver) physical(virtual string) (string, error) {
	return r.ResolvePhysical(virtual, Actor{Admin: true})
}

// splice replaces the virtual namespace prefix with the physical root and
// verifies the result is still contained under that root.
func (r *PathResolver) splice(vp, namespace, root string) (string, error) {
	rest := strings.TrimPrefix(vp, namespace)
	phys := filepath.Clean(filepath.Join(root, filepath.FromSlash(rest)))
	if !HasPathPrefix(phys, root) {
		return "", fmt.Errorf("path escapes storage root: %s: %w", vp, ErrForbidden)
	}
	return phys, nil
}

// Virtualize maps a physical path back into the virtual namespace.
// Paths outside all known roots cannot be virtualized.
func (r *PathResolver) Virtualize(physical string) (string, error) {
	p := filepath.Clean(physical)

	if HasPathPrefix(p, r.internalRoot) {
		return NormalizeVirtual(AssetsNamespace + "/" + strings.TrimPrefix(filepath.ToSlash(p[len(r.internalRoot):]), "/")), nil
	}
	for userID, root := range r.deviceRoots {
		if HasPathPrefix(p, root) {
			return NormalizeVirtual(DeviceNamespace + "/" + userID + "/" + strings.TrimPrefix(filepath.ToSlash(p[len(root):]), "/")), nil
		}
	}
	return "", fmt.Errorf("path outside known storage roots: %s", physical)
}

// HasPathPrefix reports whether p equals prefix or lies beneath it.
// The comparison is case-insensitive and separator-aware, so
// "users/12" never matches "users/123".
func HasPathPrefix(p, prefix string) bool {
	p = strings.ToLower(filepath.ToSlash(p))
	prefix = strings.ToLower(strings.TrimSuffix(filepath.ToSlash(prefix), "/"))
	if p == prefix {
		return true
	}
	return strings.HasPrefix(p, prefix+"/")
}

// hasVirtualPrefix is HasPathPrefix for already-normalized virtual paths.
func hasVirtualPrefix(p, prefix string) bool {
	return p == prefix || strings.HasPrefix(p, prefix+"/")
}
