package elms

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthentication is wrapped by every way a login attempt can be
	// rejected, transport failures during login do not wrap it.
	ErrAuthentication     = errors.New("authentication failed")
	ErrLoginTokenNotFound = fmt.Errorf("%w: token not found", ErrAuthentication)
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrAuthentication)
	ErrSesskeyMissing     = fmt.Errorf("%w: session key missing", ErrAuthentication)

	ErrDirectory = errors.New("course directory failed")

	ErrExtraction     = errors.New("course extraction failed")
	ErrCourseNotFound = fmt.Errorf("%w: course not found", ErrExtraction)

	// ErrSessionExpired is wrapped alongside ErrDirectory or ErrExtraction when
	// the portal no longer accepts the session.
	ErrSessionExpired = errors.New("session expired")
)
