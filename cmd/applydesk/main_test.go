package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jonathan/applydesk/internal/config"
	"github.com/jonathan/applydesk/internal/server"
	"github.com/jonathan/applydesk/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.Execute()
	return out.String(), err
}

func TestTokenCommand(t *testing.T) {
	const secret = "cli-test-secret-0123456789"
	t.Setenv("JWT_SECRET", secret)
	id := uuid.New()

	out, err := execute(t, "token", "--user", id.String(), "--role", "agent", "--name", "Ravi")
	require.NoError(t, err)

	svc, err := server.NewJWTService(&config.JWTConfig{Secret: secret, ExpirationHours: 24})
	require.NoError(t, err)
	claims, err := svc.ValidateToken(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, types.Actor{ID: id, Name: "Ravi", Role: types.RoleAgent}, claims.GetActor())
}

func TestTokenCommand_RejectsUnknownRole(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-test-secret-0123456789")
	_, err := execute(t, "token", "--user", uuid.NewString(), "--role", "owner")
	assert.Error(t, err)
}

func TestLoadRemoteConfig(t *testing.T) {
	remoteAPIURL, remoteToken = "", ""
	t.Cleanup(func() { remoteAPIURL, remoteToken = "", "" })

	t.Setenv("APPLYDESK_TOKEN", "")
	_, err := loadRemoteConfig()
	assert.ErrorContains(t, err, "token is required")

	t.Setenv("APPLYDESK_TOKEN", "env-token")
	t.Setenv("POLL_CAP", "8s")
	cfg, err := loadRemoteConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", cfg.APIURL)
	assert.Equal(t, "env-token", cfg.Token)
	assert.Equal(t, "8s", cfg.Polling.Cap.String())

	remoteAPIURL, remoteToken = "http://api.internal:9000", "flag-token"
	cfg, err = loadRemoteConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://api.internal:9000", cfg.APIURL)
	assert.Equal(t, "flag-token", cfg.Token)

	t.Setenv("POLL_CAP", "100ms")
	_, err = loadRemoteConfig()
	assert.ErrorContains(t, err, "polling backoff")
}

func TestWorkerRequiresSharedStore(t *testing.T) {
	t.Setenv("STORE", "memory")
	_, err := execute(t, "worker")
	assert.ErrorContains(t, err, "postgres store")
}
