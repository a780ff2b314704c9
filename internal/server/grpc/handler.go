package grpc

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

func stringField(req *structpb.Struct, name string) string {
	return req.GetFields()[name].GetStringValue()
}

func tokensToStruct(pair *services.TokenPair) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"expires_in":    int64(pair.ExpiresIn.Seconds()),
	})
}

func userToMap(u *models.User) map[string]interface{} {
	return map[string]interface{}{
		"id":         u.ID.String(),
		"name":       u.Name,
		"email":      u.Email,
		"role":       u.Role.String(),
		"verified":   u.IsVerified,
		"created_at": u.CreatedAt.Format(time.RFC3339),
	}
}

func (s *GRPCServer) Login(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	email, password := stringField(req, "email"), stringField(req, "password")
	if email == "" || password == "" {
		return nil, status.Error(codes.InvalidArgument, "email and password are required")
	}

	tokens, err := s.sessions.Login(ctx, email, password)
	if err != nil {
		return nil, authStatus(err)
	}
	return tokensToStruct(tokens)
}

func (s *GRPCServer) Refresh(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	token := stringField(req, "refresh_token")
	if token == "" {
		return nil, status.Error(codes.InvalidArgument, "refresh_token is required")
	}

	tokens, err := s.sessions.RefreshAccessByToken(ctx, token)
	if err != nil {
		return nil, authStatus(err)
	}
	return tokensToStruct(tokens)
}

func (s *GRPCServer) Logout(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}
	if err := s.sessions.Logout(ctx, claims.UserID); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

func (s *GRPCServer) Self(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	user, err := s.directory.Get(ctx, claims.UserID)
	if err != nil {
		return nil, toStatus(err)
	}

	m := userToMap(user)
	ops := auth.Operations(user.Role)
	perms := make([]interface{}, len(ops))
	for i, op := range ops {
		perms[i] = string(op)
	}
	m["permissions"] = perms
	return structpb.NewStruct(m)
}

func (s *GRPCServer) ListUsers(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	users, err := s.directory.List(ctx)
	if err != nil {
		return nil, toStatus(err)
	}

	list := make([]interface{}, 0, len(users))
	for i := range users {
		list = append(list, userToMap(&users[i]))
	}
	return structpb.NewStruct(map[string]interface{}{"users": list})
}
