package service

import (
	"errors"
	"fmt"

	"github.com/vocespace/spacekeeper/internal/infra/cache"
	"github.com/vocespace/spacekeeper/internal/modules/repo"
)

// Service layer errors. Handlers map these to user-visible responses.
var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrAlreadyMember    = errors.New("already a member")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrForbidden        = errors.New("forbidden")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrUnknown          = errors.New("unknown error")
)

func notFound(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrNotFound}, args...)...)
}

func alreadyExists(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrAlreadyExists}, args...)...)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidArgument}, args...)...)
}

// wrapStore classifies an error coming from the repo layer.
func wrapStore(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, cache.ErrStoreUnavailable):
		return fmt.Errorf("%w: %s", ErrStoreUnavailable, op)
	case errors.Is(err, repo.ErrSpaceNotFound):
		return fmt.Errorf("%w: %s: space", ErrNotFound, op)
	default:
		return fmt.Errorf("%w: %s: %v", ErrUnknown, op, err)
	}
}
