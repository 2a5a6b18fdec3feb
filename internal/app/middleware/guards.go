package middleware

import (
	"context"
	"errors"
	"strings"

	"lendit/internal/app/commands"
	"lendit/internal/app/queries"
)

var ErrUnauthenticated = errors.New("middleware: authenticated actor required")

// Validator checks struct tags on commands and queries.
type Validator interface {
	Validate(ctx context.Context, message any) error
}

type Authorizer interface {
	Authorize(ctx context.Context, message any) error
}

type AuthorizerFunc func(ctx context.Context, message any) error

func (f AuthorizerFunc) Authorize(ctx context.Context, message any) error {
	return f(ctx, message)
}

// RequireActor rejects messages whose Actor is blank. Whether the actor may
// touch a given booking or item is decided by the handler.
var RequireActor = AuthorizerFunc(func(_ context.Context, message any) error {
	var actor string
	switch m := message.(type) {
	case commands.ActorCommand:
		actor = m.Actor()
	case queries.ActorQuery:
		actor = m.Actor()
	default:
		return nil
	}
	if strings.TrimSpace(actor) == "" {
		return ErrUnauthenticated
	}
	return nil
})

// guard is the shape shared by validators and authorizers.
type guard func(ctx context.Context, message any) error

func guardCommands(check guard) CommandMiddleware {
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if err := check(ctx, cmd); err != nil {
				return nil, err
			}
			return next.Dispatch(ctx, cmd)
		})
	}
}

func guardQueries(check guard) QueryMiddleware {
	return func(next queries.Bus) queries.Bus {
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			if err := check(ctx, q); err != nil {
				return nil, err
			}
			return next.Ask(ctx, q)
		})
	}
}

func Authorization(a Authorizer) CommandMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return guardCommands(a.Authorize)
}

func QueryAuthorization(a Authorizer) QueryMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return guardQueries(a.Authorize)
}

func Validation(v Validator) CommandMiddleware {
	if v == nil {
		panic("middleware: validator required")
	}
	return guardCommands(v.Validate)
}

func QueryValidation(v Validator) QueryMiddleware {
	if v == nil {
		panic("middleware: validator required")
	}
	return guardQueries(v.Validate)
}
