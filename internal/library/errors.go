package library

import "errors"

// Error kinds surfaced by the service. Callers classify failures with
// errors.Is; messages carry the human-readable detail.
var (
	// ErrForbidden: the actor lacks ownership, role, or an explicit grant.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound: the referenced asset, folder, or file does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument: empty id list, blank path, or a precondition
	// violation such as purging an asset that is not in trash.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrAlreadyExists: the content or name is already present. Lifecycle
	// operations handle this transparently (skip or rename); it surfaces
	// only from lookups that promise uniqueness.
	ErrAlreadyExists = errors.New("already exists")
)
