package service

import (
	"context"
	"fmt"
	"strings"

	"elms-extractor/internal/scrapers/elms"
	"elms-extractor/internal/sessioncache"

	"connectrpc.com/connect"
)

type authInterceptor = func(ctx context.Context, procedure, authorization string) (context.Context, error)

type genericAuthInterceptor struct {
	fn authInterceptor
}

func newGenericAuthInterceptor(fn authInterceptor) genericAuthInterceptor {
	return genericAuthInterceptor{fn: fn}
}

func (a genericAuthInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		var err error
		ctx, err = a.fn(ctx, req.Spec().Procedure, req.Header().Get("Authorization"))
		if err != nil {
			return nil, err
		}
		return next(ctx, req)
	}
}

func (a genericAuthInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

func (a genericAuthInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return func(ctx context.Context, shc connect.StreamingHandlerConn) error {
		var err error
		ctx, err = a.fn(ctx, shc.Spec().Procedure, shc.RequestHeader().Get("Authorization"))
		if err != nil {
			return err
		}
		return next(ctx, shc)
	}
}

type sessionCtxKeyType int

var sessionCtxKey sessionCtxKeyType

type authedSession struct {
	token   string
	session *elms.Session
}

var unauthorizedError = connect.NewError(connect.CodeUnauthenticated, fmt.Errorf("missing bearer token"))

// newSessionInterceptor resolves the bearer token of every procedure except
// Login, the token's ttl is refreshed on every call.
func newSessionInterceptor(cache *sessioncache.Cache[*elms.Session]) genericAuthInterceptor {
	return newGenericAuthInterceptor(func(ctx context.Context, procedure, authorization string) (context.Context, error) {
		if procedure == LoginProcedure {
			return ctx, nil
		}

		token, ok := strings.CutPrefix(authorization, "Bearer ")
		token = strings.TrimSpace(token)
		if !ok || token == "" {
			return nil, unauthorizedError
		}
		session, err := cache.Get(token)
		if err != nil {
			return nil, connect.NewError(connect.CodeUnauthenticated, err)
		}
		cache.Touch(token)

		return context.WithValue(ctx, sessionCtxKey, authedSession{
			token:   token,
			session: session,
		}), nil
	})
}

func sessionFromContext(ctx context.Context) (authedSession, error) {
	authed, ok := ctx.Value(sessionCtxKey).(authedSession)
	if !ok {
		return authedSession{}, unauthorizedError
	}
	return authed, nil
}
