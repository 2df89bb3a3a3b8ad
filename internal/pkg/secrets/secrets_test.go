package secrets

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashToken(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		pepper  string
		wantErr error
	}{
		{name: "token and pepper", token: "sk-space-123", pepper: "pepper"},
		{name: "empty pepper", token: "sk-space-123"},
		{name: "long token", token: strings.Repeat("a", 1000), pepper: "pepper"},
		{name: "empty token", token: "", pepper: "pepper", wantErr: ErrEmptyToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := HashToken(tt.token, tt.pepper)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, hash)
				return
			}
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=16384,t=2,p=1$"))
			assert.Len(t, strings.Split(hash, "$"), 6)
			assert.NoError(t, Validate(hash))
		})
	}
}

func TestHashToken_Salted(t *testing.T) {
	a, err := HashToken("same", "p")
	require.NoError(t, err)
	b, err := HashToken("same", "p")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestVerifyToken(t *testing.T) {
	hash, err := HashToken("sk-space-123", "pepper")
	require.NoError(t, err)

	tests := []struct {
		name   string
		token  string
		pepper string
		hash   string
		want   bool
		err    error
	}{
		{"match", "sk-space-123", "pepper", hash, true, nil},
		{"wrong token", "sk-space-124", "pepper", hash, false, nil},
		{"wrong pepper", "sk-space-123", "other", hash, false, nil},
		{"bcrypt hash", "x", "", "$2a$10$abcdefghijklmnopqrstuv", false, ErrUnsupportedFormat},
		{"too few parts", "x", "", "$argon2id$v=19$m=1", false, ErrMalformedHash},
		{"bad params", "x", "", "$argon2id$v=19$garbage$c2FsdA$a2V5", false, ErrMalformedHash},
		{"bad salt", "x", "", "$argon2id$v=19$m=16384,t=2,p=1$!!!$a2V5", false, ErrMalformedHash},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := VerifyToken(tt.token, tt.pepper, tt.hash)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, ok)
		})
	}
}
