package auth

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerify(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$2a$"))

	hash2, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, hash, hash2, "salts differ")

	assert.True(t, VerifyPassword(hash, "s3cret"))
	assert.False(t, VerifyPassword(hash, "wrong"))
	assert.False(t, VerifyPassword("not-a-hash", "s3cret"))

	_, err = HashPassword("")
	assert.ErrorIs(t, err, ErrEmptyPassword)
}

func stdinFrom(t *testing.T, content string) *os.File {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stdin")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	f, err := os.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestPromptNewPassword_Piped(t *testing.T) {
	var out bytes.Buffer
	pw, err := PromptNewPassword(stdinFrom(t, "hunter2\nhunter2"), &out)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", pw)
	assert.Contains(t, out.String(), "Confirm password")
}

func TestPromptNewPassword_Errors(t *testing.T) {
	var out bytes.Buffer

	_, err := PromptNewPassword(stdinFrom(t, "one\ntwo\n"), &out)
	assert.ErrorIs(t, err, ErrMismatch)

	_, err = PromptNewPassword(stdinFrom(t, "\n\n"), &out)
	assert.ErrorIs(t, err, ErrEmptyPassword)

	_, err = PromptNewPassword(stdinFrom(t, ""), &out)
	assert.Error(t, err)
}
