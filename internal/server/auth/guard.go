package auth

import (
	"sort"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// Operation names a protected action.
type Operation string

const (
	OpUserSelf           Operation = "user:self"
	OpUserChangePassword Operation = "user:change-password"
	OpPostCreate         Operation = "post:create"
	OpPostDetail         Operation = "post:detail"
	OpPostListByUser     Operation = "post:list-by-user"
	OpPostUpdate         Operation = "post:update"
	OpPostDelete         Operation = "post:delete"
	OpCommentCreate      Operation = "comment:create"
	OpCommentDetail      Operation = "comment:detail"
	OpCommentListByPost  Operation = "comment:list-by-post"
	OpCommentUpdate      Operation = "comment:update"
	OpCommentDelete      Operation = "comment:delete"

	OpUserList   Operation = "user:list"
	OpUserDelete Operation = "user:delete"
	OpRoleManage Operation = "role:manage"
)

var regularOperations = []Operation{
	OpUserSelf, OpUserChangePassword,
	OpPostCreate, OpPostDetail, OpPostListByUser, OpPostUpdate, OpPostDelete,
	OpCommentCreate, OpCommentDetail, OpCommentListByPost, OpCommentUpdate, OpCommentDelete,
}

var adminOperations = []Operation{OpUserList, OpUserDelete, OpRoleManage}

// permissions is built once and only read afterwards.
var permissions = buildPermissions()

func buildPermissions() map[models.Role]map[Operation]struct{} {
	regular := make(map[Operation]struct{}, len(regularOperations))
	for _, op := range regularOperations {
		regular[op] = struct{}{}
	}

	// admin is regular plus the administrative operations
	admin := make(map[Operation]struct{}, len(regular)+len(adminOperations))
	for op := range regular {
		admin[op] = struct{}{}
	}
	for _, op := range adminOperations {
		admin[op] = struct{}{}
	}

	return map[models.Role]map[Operation]struct{}{
		models.RoleRegular: regular,
		models.RoleAdmin:   admin,
	}
}

// Permitted reports whether role may perform op. Unknown roles and
// operations are denied.
func Permitted(role models.Role, op Operation) bool {
	_, ok := permissions[role][op]
	return ok
}

// Authorize returns common.ErrForbidden unless claims allow op.
func Authorize(claims *Claims, op Operation) error {
	if claims == nil {
		return common.ErrorUnauthorized
	}
	if !Permitted(claims.Role, op) {
		return common.ErrForbidden
	}
	return nil
}

// Operations lists the operations granted to role in lexical order.
func Operations(role models.Role) []Operation {
	ops := make([]Operation, 0, len(permissions[role]))
	for op := range permissions[role] {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i] < ops[j] })
	return ops
}
