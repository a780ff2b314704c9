package grpc

import (
	"errors"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// toStatus converts a service error into a gRPC status.
func toStatus(err error) error {
	switch {
	case errors.Is(err, common.ErrStoreUnavailable):
		return status.Error(codes.Unavailable, "store unavailable")
	case errors.Is(err, common.ErrForbidden):
		return status.Error(codes.PermissionDenied, "forbidden")
	case errors.Is(err, common.ErrInvalidCredential),
		errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrMalformed),
		errors.Is(err, common.ErrSignatureInvalid),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrRevoked),
		errors.Is(err, common.ErrMismatch):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, common.ErrorAlreadyExists), errors.Is(err, common.ErrAlreadyUsed):
		return status.Error(codes.AlreadyExists, err.Error())
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

// authStatus reports any non-store failure of login or refresh as
// Unauthenticated without saying why.
func authStatus(err error) error {
	if errors.Is(err, common.ErrStoreUnavailable) {
		return toStatus(err)
	}
	return status.Error(codes.Unauthenticated, "unauthorized")
}
