package grpc

import (
	"errors"
	"fmt"
	"testing"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestToStatus(t *testing.T) {
	tests := []struct {
		err  error
		want codes.Code
	}{
		{fmt.Errorf("%w: get user: %w", common.ErrStoreUnavailable, errors.New("eof")), codes.Unavailable},
		{common.ErrForbidden, codes.PermissionDenied},
		{common.ErrTokenExpired, codes.Unauthenticated},
		{common.ErrRevoked, codes.Unauthenticated},
		{common.ErrorNotFound, codes.NotFound},
		{common.ErrAlreadyUsed, codes.AlreadyExists},
		{errors.New("boom"), codes.Internal},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, status.Code(toStatus(tt.err)))
		})
	}
}

func TestAuthStatus_HidesReason(t *testing.T) {
	err := authStatus(common.ErrorNotFound)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
	assert.Equal(t, "unauthorized", status.Convert(err).Message())

	err = authStatus(fmt.Errorf("%w: x", common.ErrStoreUnavailable))
	assert.Equal(t, codes.Unavailable, status.Code(err))
}
