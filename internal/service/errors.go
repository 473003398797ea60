package service

import (
	"context"
	"errors"

	"elms-extractor/internal/scrapers/elms"
	"elms-extractor/internal/sessioncache"

	"connectrpc.com/connect"
)

func connectCode(err error) connect.Code {
	switch {
	case errors.Is(err, elms.ErrAuthentication),
		errors.Is(err, elms.ErrSessionExpired),
		errors.Is(err, sessioncache.ErrInvalidSession):
		return connect.CodeUnauthenticated
	case errors.Is(err, elms.ErrCourseNotFound):
		return connect.CodeNotFound
	case errors.Is(err, elms.ErrExtraction):
		return connect.CodeFailedPrecondition
	case errors.Is(err, elms.ErrDirectory):
		return connect.CodeInternal
	case errors.Is(err, context.Canceled):
		return connect.CodeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return connect.CodeDeadlineExceeded
	default:
		return connect.CodeUnavailable
	}
}

func connectError(err error) *connect.Error {
	return connect.NewError(connectCode(err), err)
}
