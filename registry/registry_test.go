package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"botmux/core"
	"botmux/models"
)

func mustCommand(t *testing.T, name, description string) *models.Command {
	t.Helper()
	cmd, err := models.NewCommand(name, description, false)
	require.NoError(t, err)
	return cmd
}

func TestCommandRegistry_RegisterAndGet(t *testing.T) {
	reg := NewCommandRegistry()
	ping := mustCommand(t, "ping", "check whether the bot is alive")

	require.NoError(t, reg.Register(ping))

	got, err := reg.Get("ping")
	require.NoError(t, err)
	assert.Same(t, ping, got)
	assert.True(t, reg.Has("ping"))
}

func TestCommandRegistry_DuplicateKeepsFirst(t *testing.T) {
	reg := NewCommandRegistry()
	first := mustCommand(t, "ping", "the original")
	second := mustCommand(t, "ping", "the impostor")

	require.NoError(t, reg.Register(first))

	err := reg.Register(second)
	assert.ErrorIs(t, err, core.ErrDuplicateCommand)

	got, err := reg.Get("ping")
	require.NoError(t, err)
	assert.Same(t, first, got)
	assert.Equal(t, "the original", got.Description())
}

func TestCommandRegistry_DuplicateDetectionIgnoresCase(t *testing.T) {
	reg := NewCommandRegistry()
	first := mustCommand(t, "ping", "the original")
	shouty := mustCommand(t, "Ping", "the impostor")

	require.NoError(t, reg.Register(first))

	err := reg.Register(shouty)
	assert.ErrorIs(t, err, core.ErrDuplicateCommand)

	got, err := reg.Get("ping")
	require.NoError(t, err)
	assert.Same(t, first, got)
	assert.Equal(t, "the original", got.Description())
}

func TestCommandRegistry_GetUnknown(t *testing.T) {
	reg := NewCommandRegistry()

	got, err := reg.Get("missing")
	assert.Nil(t, got)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.False(t, reg.Has("missing"))
}

func TestCommandRegistry_CommandsInRegistrationOrder(t *testing.T) {
	reg := NewCommandRegistry()
	names := []string{"zulu", "alpha", "mike"}
	for _, name := range names {
		require.NoError(t, reg.Register(mustCommand(t, name, "desc")))
	}

	commands := reg.Commands()
	require.Len(t, commands, len(names))
	for i, name := range names {
		assert.Equal(t, name, commands[i].Name())
	}
}
