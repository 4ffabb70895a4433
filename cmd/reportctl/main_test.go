package main

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/recruit-timeline-api/internal/app"
	"github.com/noah-isme/recruit-timeline-api/internal/models"
	"github.com/noah-isme/recruit-timeline-api/pkg/config"
)

func testRuntime() *runtime {
	return &runtime{
		cfg: &config.Config{JWT: config.JWTConfig{
			Secret:     "cli-secret",
			Issuer:     "recruit-timeline",
			Expiration: time.Hour,
		}},
		logger: zap.NewNop(),
	}
}

func execute(rt *runtime, args ...string) (string, error) {
	root := newRootCmd(rt)
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestTokenCommandMintsValidToken(t *testing.T) {
	rt := testRuntime()
	out, err := execute(rt, "token", "--user", "ops", "--role", "superadmin", "--ttl", "10m")
	require.NoError(t, err)

	var payload tokenOutput
	require.NoError(t, json.Unmarshal([]byte(out), &payload))
	claims, err := app.NewTokenService(rt.cfg).ValidateToken(payload.Token)
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.UserID)
	assert.Equal(t, models.RoleSuperAdmin, claims.Role)
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), payload.ExpiresAt, time.Minute)
}

func TestTokenCommandRejectsUnknownRole(t *testing.T) {
	_, err := execute(testRuntime(), "token", "--user", "ops", "--role", "viewer")
	assert.Error(t, err)
}

func TestCommandsRequireFlags(t *testing.T) {
	for _, args := range [][]string{
		{"token"},
		{"timeline"},
		{"lead-time", "--company", "Acme"},
		{"record-official", "--step", "1"},
	} {
		_, err := execute(testRuntime(), args...)
		assert.Error(t, err, args)
	}
}
