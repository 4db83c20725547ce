package service

import (
	"context"
	"errors"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/esusu/internal/apperr"
	"github.com/mmynk/esusu/internal/middleware"
)

var kindCodes = map[apperr.Kind]connect.Code{
	apperr.KindVerification: connect.CodeFailedPrecondition,
	apperr.KindIdempotency:  connect.CodeAlreadyExists,
	apperr.KindAccounting:   connect.CodeFailedPrecondition,
	apperr.KindLifecycle:    connect.CodeFailedPrecondition,
	apperr.KindNotFound:     connect.CodeNotFound,
	apperr.KindPermission:   connect.CodePermissionDenied,
	apperr.KindInvalid:      connect.CodeInvalidArgument,
	apperr.KindConflict:     connect.CodeAborted,
	apperr.KindFatal:        connect.CodeInternal,
	apperr.KindInternal:     connect.CodeInternal,
}

// Codes whose connect code differs from their kind's.
var codeOverrides = map[apperr.Code]connect.Code{
	apperr.CodeTxNotFound:       connect.CodeNotFound,
	apperr.CodeChainUnavailable: connect.CodeUnavailable,
	apperr.CodeUnauthenticated:  connect.CodeUnauthenticated,
}

// connectCode maps a domain code to the Connect status code it travels with.
func connectCode(code apperr.Code) connect.Code {
	if c, ok := codeOverrides[code]; ok {
		return c
	}
	return kindCodes[apperr.KindOf(code)]
}

// toConnectError converts err into a Connect error carrying the domain code in
// the Esusu-Error-Code header. Errors without a domain code are reported as
// internal without their message.
func toConnectError(err error) *connect.Error {
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return connectErr
	}

	var domainErr *apperr.Error
	if !errors.As(err, &domainErr) {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			return withCode(connect.NewError(connect.CodeDeadlineExceeded, err), apperr.CodeInternal)
		case errors.Is(err, context.Canceled):
			return withCode(connect.NewError(connect.CodeCanceled, err), apperr.CodeInternal)
		}
		slog.Error("Unclassified error", "error", err)
		return withCode(connect.NewError(connect.CodeInternal, errors.New("internal error")), apperr.CodeInternal)
	}

	code := connectCode(domainErr.Code)
	var out *connect.Error
	if code == connect.CodeInternal {
		// Internal and fatal causes stay in the server log.
		slog.Error("Internal error", "code", domainErr.Code, "error", err)
		out = connect.NewError(code, errors.New(domainErr.Message))
	} else {
		out = connect.NewError(code, err)
	}
	return withCode(out, domainErr.Code)
}

func withCode(e *connect.Error, code apperr.Code) *connect.Error {
	e.Meta().Set(middleware.ErrorCodeHeader, string(code))
	return e
}

// ErrorCode returns the domain code carried by an error returned from a client.
func ErrorCode(err error) apperr.Code {
	var connectErr *connect.Error
	if !errors.As(err, &connectErr) {
		return apperr.CodeOf(err)
	}
	if code := connectErr.Meta().Get(middleware.ErrorCodeHeader); code != "" {
		return apperr.Code(code)
	}
	return apperr.CodeUnknown
}

// memberID returns the authenticated caller or an Unauthenticated error.
func memberID(ctx context.Context) (string, error) {
	id := middleware.GetMemberID(ctx)
	if id == "" {
		return "", toConnectError(apperr.New(apperr.CodeUnauthenticated, "authentication required"))
	}
	return id, nil
}
