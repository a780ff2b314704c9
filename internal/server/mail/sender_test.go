package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLink(t *testing.T) {
	got, err := Link("https://app.example.com", "verify", "abc")
	require.NoError(t, err)
	assert.Equal(t, "https://app.example.com/verify?token=abc", got)

	got, err = Link("https://app.example.com/base/", "reset-password", "a b")
	require.NoError(t, err)
	assert.Equal(t, "https://app.example.com/base/reset-password?token=a+b", got)

	_, err = Link("://bad", "verify", "x")
	assert.Error(t, err)
}

func TestLogSender(t *testing.T) {
	var buf bytes.Buffer
	s := NewLogSender(logging.NewZapLogger("info", &buf), "http://localhost:3000")
	u := &models.User{Name: "Alice", Email: "alice@example.com"}
	ctx := context.Background()

	require.NoError(t, s.SendVerification(ctx, u, "tok1"))
	require.NoError(t, s.SendPasswordReset(ctx, u, "tok2"))
	require.NoError(t, s.SendWelcome(ctx, u))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "verification mail", first["msg"])
	assert.Equal(t, "alice@example.com", first["to"])
	assert.Equal(t, "http://localhost:3000/verify?token=tok1", first["link"])
	assert.Equal(t, "mail", first["component"])

	assert.Contains(t, lines[1], "reset-password?token=tok2")
	assert.Contains(t, lines[2], "welcome mail")
}
