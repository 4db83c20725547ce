package middleware

import (
	"context"
	"errors"
	"time"

	"connectrpc.com/connect"
)

// RPCObserver records RPC latency. *metrics.Metrics satisfies it.
type RPCObserver interface {
	ObserveRPC(procedure, code string, d time.Duration)
}

// MetricsInterceptor reports the duration and result code of every RPC.
func MetricsInterceptor(observer RPCObserver) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			observer.ObserveRPC(req.Spec().Procedure, resultCode(err), time.Since(start))
			return resp, err
		}
	}
}

func resultCode(err error) string {
	if err == nil {
		return "ok"
	}
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return connectErr.Code().String()
	}
	return connect.CodeUnknown.String()
}
