package grpc

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// publicMethods are served without an access token.
var publicMethods = map[string]struct{}{
	MethodLogin:                          {},
	MethodRefresh:                        {},
	healthpb.Health_Check_FullMethodName: {},
}

// methodOperations maps protected methods to the operation they perform.
// Methods in neither table are denied.
var methodOperations = map[string]auth.Operation{
	MethodLogout:    auth.OpUserSelf,
	MethodSelf:      auth.OpUserSelf,
	MethodListUsers: auth.OpUserList,
}

func accessTokenFromMetadata(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get(common.AuthorizationHeaderName)
	if len(values) == 0 {
		return ""
	}

	v := strings.TrimSpace(values[0])
	if scheme, rest, found := strings.Cut(v, " "); found && strings.EqualFold(scheme, common.BearerScheme) {
		return strings.TrimSpace(rest)
	}
	return v
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	if _, ok := publicMethods[info.FullMethod]; ok {
		return handler(ctx, req)
	}

	op, ok := methodOperations[info.FullMethod]
	if !ok {
		return nil, status.Error(codes.PermissionDenied, "method is not permitted")
	}

	accessToken := accessTokenFromMetadata(ctx)
	if len(accessToken) == 0 {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	claims, err := s.codec.Validate(accessToken)
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, err.Error())
	}
	if err := auth.Authorize(claims, op); err != nil {
		s.logger.Info(ctx, "grpc call denied", "method", info.FullMethod, "user_id", claims.UserID)
		return nil, toStatus(err)
	}

	return handler(auth.WithClaims(ctx, claims), req)
}
