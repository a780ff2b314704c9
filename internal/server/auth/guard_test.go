package auth

import (
	"testing"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestPermitted_AdminIsSupersetOfRegular(t *testing.T) {
	regular := Operations(models.RoleRegular)
	assert.NotEmpty(t, regular)

	for _, op := range regular {
		assert.True(t, Permitted(models.RoleAdmin, op), op)
	}
	assert.Greater(t, len(Operations(models.RoleAdmin)), len(regular))
}

func TestPermitted_AdminOnlyOperations(t *testing.T) {
	for _, op := range []Operation{OpUserList, OpUserDelete, OpRoleManage} {
		assert.False(t, Permitted(models.RoleRegular, op), op)
		assert.True(t, Permitted(models.RoleAdmin, op), op)
	}
}

func TestPermitted_Unknown(t *testing.T) {
	assert.False(t, Permitted(models.Role("guest"), OpUserSelf))
	assert.False(t, Permitted(models.RoleAdmin, Operation("db:drop")))
}

func TestAuthorize(t *testing.T) {
	regular := &Claims{UserID: uuid.New(), Role: models.RoleRegular}
	admin := &Claims{UserID: uuid.New(), Role: models.RoleAdmin}

	assert.NoError(t, Authorize(regular, OpPostCreate))
	assert.ErrorIs(t, Authorize(regular, OpUserList), common.ErrForbidden)
	assert.NoError(t, Authorize(admin, OpUserList))
	assert.NoError(t, Authorize(admin, OpCommentDelete))
	assert.ErrorIs(t, Authorize(nil, OpUserSelf), common.ErrorUnauthorized)
}

func TestOperations_Sorted(t *testing.T) {
	ops := Operations(models.RoleAdmin)
	for i := 1; i < len(ops); i++ {
		assert.Less(t, string(ops[i-1]), string(ops[i]))
	}
	assert.Empty(t, Operations(models.Role("nobody")))
}
