package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/maheshrc27/contentloop/pkg/utils"
	"github.com/stretchr/testify/require"
)

func executeRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "missing.env")))
	err := cmd.Execute()
	return out.String(), err
}

func TestRootRegistersSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range newRootCmd().Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "tick", "import", "token"} {
		require.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestTokenCommandIssuesBrandToken(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")

	out, err := executeRoot(t, "token", "--brand", "42", "--ttl", "1h")
	require.NoError(t, err)

	claims, err := utils.ValidateToken("test-secret", strings.TrimSpace(out))
	require.NoError(t, err)
	require.Equal(t, "42", claims.BrandID)
}

func TestTokenCommandRequiresSecret(t *testing.T) {
	t.Setenv("SECRET_KEY", "")

	_, err := executeRoot(t, "token", "--brand", "42")
	require.ErrorContains(t, err, "SECRET_KEY")
}

func TestTickCommandRejectsBadInstant(t *testing.T) {
	_, err := executeRoot(t, "tick", "--at", "yesterday")
	require.ErrorContains(t, err, "invalid --at")
}

func TestImportCommandNeedsLoopFlags(t *testing.T) {
	_, err := executeRoot(t, "import", "items.csv")
	require.Error(t, err)
}
