package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCommand(t *testing.T) {
	tests := []struct {
		name        string
		commandName string
		description string
		wantErr     bool
	}{
		{
			name:        "Simple valid command",
			commandName: "ping",
			description: "check whether the bot is alive",
			wantErr:     false,
		},
		{
			name:        "Name with digits and underscores",
			commandName: "set_volume_2",
			description: "set the playback volume",
			wantErr:     false,
		},
		{
			name:        "Name at the length limit",
			commandName: strings.Repeat("a", MaxCommandNameLength),
			description: "ok",
			wantErr:     false,
		},
		{
			name:        "Name over the length limit",
			commandName: strings.Repeat("a", MaxCommandNameLength+1),
			description: "ok",
			wantErr:     true,
		},
		{
			name:        "Name with a space",
			commandName: "two words",
			description: "ok",
			wantErr:     true,
		},
		{
			name:        "Name with a dash",
			commandName: "kebab-case",
			description: "ok",
			wantErr:     true,
		},
		{
			name:        "Empty name",
			commandName: "",
			description: "ok",
			wantErr:     true,
		},
		{
			name:        "Description over the length limit",
			commandName: "ping",
			description: strings.Repeat("x", MaxCommandDescriptionLength+1),
			wantErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := NewCommand(tt.commandName, tt.description, false)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, cmd)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, strings.ToLower(tt.commandName), cmd.Name())
			assert.Equal(t, tt.description, cmd.Description())
		})
	}
}

func TestNewCommand_NormalizesNameToLowercase(t *testing.T) {
	cmd, err := NewCommand("PlayMusic", "start playback", false)
	require.NoError(t, err)
	assert.Equal(t, "playmusic", cmd.Name())
}

func TestCommand_RequiredFields(t *testing.T) {
	cmd, err := NewCommand("greet", "get a personal greeting", false,
		Field{Name: "name", Description: "your name", Required: true},
		Field{Name: "language", Description: "your language", Required: false},
		Field{Name: "mood", Description: "your mood", Required: true},
	)
	require.NoError(t, err)

	required := cmd.RequiredFields()
	require.Len(t, required, 2)
	assert.Equal(t, "name", required[0].Name)
	assert.Equal(t, "mood", required[1].Name)
}
