package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/shiftdesk/internal/common"
	pb "github.com/dmitrijs2005/shiftdesk/internal/presencepb"
	"github.com/dmitrijs2005/shiftdesk/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const userIDKey ctxKey = "userID"

// authenticatedMethods need a valid access token in the metadata.
var authenticatedMethods = map[string]bool{
	pb.Presence_Heartbeat_FullMethodName:   true,
	pb.Presence_SetPresence_FullMethodName: true,
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {

	if authenticatedMethods[info.FullMethod] {

		var accessToken string
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			values := md.Get(common.AccessTokenHeaderName)
			if len(values) > 0 {
				accessToken = values[0]
			}
		}
		if len(accessToken) == 0 {
			return nil, status.Error(codes.Unauthenticated, "missing token")
		}

		userID, err := auth.GetUserIDFromToken(accessToken, s.jwtSecret)
		if err != nil {
			if errors.Is(err, common.ErrTokenExpired) {
				return nil, status.Error(codes.Unauthenticated, common.ErrTokenExpired.Error())
			}
			return nil, status.Error(codes.Unauthenticated, common.ErrInvalidToken.Error())
		}

		ctx = context.WithValue(ctx, userIDKey, userID)

	}

	return handler(ctx, req)
}

func userIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}
