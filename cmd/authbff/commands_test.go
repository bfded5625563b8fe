package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/auth-bff/internal/session"
)

func TestKeygen_PrintsUsableKey(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"keygen"})

	require.NoError(t, cmd.Execute())

	hexKey := strings.TrimSpace(out.String())
	assert.Len(t, hexKey, 2*session.KeySize)
	key, err := session.ParseKey(hexKey)
	require.NoError(t, err)
	assert.True(t, key.Valid())
}

func TestKeygen_RejectsArgs(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"keygen", "extra"})

	require.Error(t, cmd.Execute())
}

func TestServe_InvalidConfig(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("AUTH_PROVIDER", "supabase")
	t.Setenv("SUPABASE_URL", "")
	t.Setenv("SESSION_SECRET", "")

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"serve"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}
