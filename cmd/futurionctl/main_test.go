package main

import (
	"context"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindCommand(t *testing.T) {
	for _, name := range []string{"secret", "sign", "verify", "migrate", "status", "help"} {
		cmd := findCommand(name)
		require.NotNilf(t, cmd, "command %s", name)
		assert.Equal(t, name, cmd.Name())
		assert.NotEmpty(t, cmd.Description())
	}
	assert.Nil(t, findCommand("create-admin-user"))
}

func TestGenerateSecret(t *testing.T) {
	a, err := generateSecret()
	require.NoError(t, err)
	b, err := generateSecret()
	require.NoError(t, err)

	raw, err := hex.DecodeString(a)
	require.NoError(t, err)
	assert.Len(t, raw, secretBytes)
	assert.NotEqual(t, a, b)
}

func TestOfflineCommandsDoNotNeedTheApp(t *testing.T) {
	for _, cmd := range commands {
		switch cmd.Name() {
		case "migrate", "status":
			assert.True(t, cmd.NeedsApp(), cmd.Name())
		default:
			assert.False(t, cmd.NeedsApp(), cmd.Name())
		}
	}
}

func TestSignAndVerifyRequireArguments(t *testing.T) {
	assert.Error(t, (&SignCommand{}).Execute(context.Background(), nil, nil))
	assert.Error(t, (&VerifyCommand{}).Execute(context.Background(), nil, []string{"only-user"}))
}
