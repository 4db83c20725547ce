package middleware

import (
	"context"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/esusu/internal/auth"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// MemberIDKey is the context key for storing the authenticated wallet address.
const MemberIDKey contextKey = "member_id"

// GetMemberID extracts the member's wallet address from the context.
// Returns empty string if not found.
func GetMemberID(ctx context.Context) string {
	memberID, _ := ctx.Value(MemberIDKey).(string)
	return memberID
}

// WithMemberID returns a copy of ctx carrying memberID.
func WithMemberID(ctx context.Context, memberID string) context.Context {
	return context.WithValue(ctx, MemberIDKey, memberID)
}

// RequireAuth returns a middleware that validates JWT tokens and requires authentication.
// It extracts the token from the Authorization header, validates it, and adds
// the member's wallet address to the request context.
func RequireAuth(jwtManager *auth.JWTManager) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			// Extract Authorization header
			authHeader := req.Header().Get("Authorization")
			if authHeader == "" {
				return nil, unauthenticated(auth.ErrMissingToken)
			}

			// Parse Bearer token
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				return nil, unauthenticated(auth.ErrInvalidToken)
			}

			// Validate token
			claims, err := jwtManager.Validate(parts[1])
			if err != nil {
				return nil, unauthenticated(err)
			}

			return next(WithMemberID(ctx, claims.MemberID), req)
		}
	}
}

func unauthenticated(err error) *connect.Error {
	connectErr := connect.NewError(connect.CodeUnauthenticated, err)
	connectErr.Meta().Set(ErrorCodeHeader, "UNAUTHENTICATED")
	return connectErr
}
