package auth

import (
	"crypto/sha256"
	"crypto/subtle"

	"github.com/dmitrijs2005/gophauth/internal/common"
)

// BasicVerifier checks a single configured identifier/secret pair, used by
// the administrative Basic-auth endpoint. It does not consult the user store.
type BasicVerifier struct {
	user [sha256.Size]byte
	pass [sha256.Size]byte
}

func NewBasicVerifier(user, pass string) *BasicVerifier {
	return &BasicVerifier{user: sha256.Sum256([]byte(user)), pass: sha256.Sum256([]byte(pass))}
}

// Verify compares digests in constant time; both halves are always compared.
func (v *BasicVerifier) Verify(user, pass string) error {
	u := sha256.Sum256([]byte(user))
	p := sha256.Sum256([]byte(pass))

	userOK := subtle.ConstantTimeCompare(u[:], v.user[:])
	passOK := subtle.ConstantTimeCompare(p[:], v.pass[:])
	if userOK&passOK != 1 {
		return common.ErrInvalidCredential
	}
	return nil
}
