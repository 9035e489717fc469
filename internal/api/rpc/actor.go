package rpc

import (
	"context"

	"github.com/Domenick1991/itinerary-booking/internal/auth"
	"github.com/Domenick1991/itinerary-booking/internal/domain"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const (
	AuthorizationHeader = "authorization"
	SessionHeader       = "x-session-id"
)

// Namespace resolves the caller from metadata: a bearer token wins, otherwise
// a uuid session id is required.
func Namespace(ctx context.Context, secret []byte) (domain.Namespace, error) {
	md, _ := metadata.FromIncomingContext(ctx)

	userID, ok, err := auth.UserFromBearer(first(md, AuthorizationHeader), secret)
	if err != nil {
		return domain.Namespace{}, status.Error(codes.Unauthenticated, err.Error())
	}
	if ok {
		return auth.UserNamespace(userID), nil
	}
	if ns, ok := auth.AnonymousNamespace(first(md, SessionHeader)); ok {
		return ns, nil
	}
	return domain.Namespace{}, status.Errorf(codes.Unauthenticated, "%s or %s metadata is required", AuthorizationHeader, SessionHeader)
}

func first(md metadata.MD, key string) string {
	if values := md.Get(key); len(values) > 0 {
		return values[0]
	}
	return ""
}
