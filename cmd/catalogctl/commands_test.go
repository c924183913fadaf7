package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolioapi/internal/auth"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestDecodeURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{
			name: "nested path",
			url:  "https://firebasestorage.googleapis.com/v0/b/site.appspot.com/o/projects%2F2024%2Fa%20b.jpg?alt=media&token=t",
			want: "projects/2024/a b.jpg",
		},
		{name: "no marker", url: "https://example.com/a.jpg?x=1", wantErr: true},
		{name: "no query", url: "https://h/v0/b/b/o/projects%2Fa.jpg", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, "decode-url", tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, strings.TrimSpace(out))
		})
	}
}

func TestToken(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "test-secret")
	t.Setenv("ADMIN_EMAILS", "owner@example.com")

	out, err := execute(t, "token", "--email", "owner@example.com", "--ttl", "1h")
	require.NoError(t, err)

	p, err := auth.NewJWT("test-secret", []string{"owner@example.com"}).Authorize(context.Background(), strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "owner@example.com", p.Email)
}

func TestToken_RequiresSecret(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "")

	_, err := execute(t, "token", "--email", "owner@example.com")
	assert.ErrorContains(t, err, "AUTH_JWT_SECRET")
}

func TestMigrate_RejectsFirestore(t *testing.T) {
	t.Setenv("DOC_STORE", "firestore")

	_, err := execute(t, "migrate")
	assert.ErrorContains(t, err, "DOC_STORE")
}
