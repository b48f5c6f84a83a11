package interaction

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"botmux/core"
	"botmux/models"
	"botmux/registry"
)

func mustCommand(t *testing.T, name, description string, fields ...models.Field) *models.Command {
	t.Helper()
	cmd, err := models.NewCommand(name, description, false, fields...)
	require.NoError(t, err)
	return cmd
}

func newTestRegistry(t *testing.T, commands ...*models.Command) *registry.CommandRegistry {
	t.Helper()
	reg := registry.NewCommandRegistry()
	for _, cmd := range commands {
		require.NoError(t, reg.Register(cmd))
	}
	return reg
}

func TestFactory_FromMessage(t *testing.T) {
	ping := mustCommand(t, "ping", "check whether the bot is alive")
	greet := mustCommand(t, "greet", "get a personal greeting",
		models.Field{Name: "name", Description: "your name", Required: true},
	)

	tests := []struct {
		name      string
		text      string
		wantNil   bool
		wantKind  Kind
		wantCmd   string
		wantReady bool
	}{
		{
			name:    "Empty message produces nothing",
			text:    "   ",
			wantNil: true,
		},
		{
			name:      "Registered command with no fields",
			text:      "/ping",
			wantKind:  KindCommand,
			wantCmd:   "ping",
			wantReady: true,
		},
		{
			name:      "Registered command in mixed case",
			text:      "/PING",
			wantKind:  KindCommand,
			wantCmd:   "ping",
			wantReady: true,
		},
		{
			name:      "Registered command missing its required field",
			text:      "/greet",
			wantKind:  KindCommand,
			wantCmd:   "greet",
			wantReady: false,
		},
		{
			name:      "Registered command with inline value",
			text:      "/greet Ada",
			wantKind:  KindCommand,
			wantCmd:   "greet",
			wantReady: true,
		},
		{
			name:      "Unknown command degrades to text",
			text:      "/frobnicate now",
			wantKind:  KindText,
			wantReady: true,
		},
		{
			name:      "Plain text",
			text:      "hello there",
			wantKind:  KindText,
			wantReady: true,
		},
		{
			name:      "Bare slash is text",
			text:      "/",
			wantKind:  KindText,
			wantReady: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			factory, _ := setupFactory(t, ping, greet)

			ia := factory.FromMessage(testSource(tt.text))
			if tt.wantNil {
				assert.Nil(t, ia)
				return
			}
			require.NotNil(t, ia)
			assert.NotEmpty(t, ia.ID)
			assert.Equal(t, tt.wantKind, ia.Kind)
			assert.Equal(t, tt.wantReady, ia.Ready())
			if tt.wantCmd != "" {
				require.NotNil(t, ia.Command)
				assert.Equal(t, tt.wantCmd, ia.Command.Name())
			} else {
				assert.Nil(t, ia.Command)
			}
		})
	}
}

func TestFactory_FromMessageInlineValueFillsSingleRequiredField(t *testing.T) {
	greet := mustCommand(t, "greet", "get a personal greeting",
		models.Field{Name: "name", Description: "your name", Required: true},
	)
	factory, _ := setupFactory(t, greet)

	ia := factory.FromMessage(testSource("/greet Ada Lovelace"))
	require.NotNil(t, ia)
	assert.True(t, ia.Ready())
	assert.Equal(t, "Ada Lovelace", ia.Field("name"))
}

func TestFactory_FromMessageInlineValueIgnoredWhenAmbiguous(t *testing.T) {
	book := mustCommand(t, "book", "book a table",
		models.Field{Name: "date", Description: "the date", Required: true},
		models.Field{Name: "guests", Description: "the number of guests", Required: true},
	)
	factory, _ := setupFactory(t, book)

	// two required fields, no way to know which one "tomorrow" fills
	ia := factory.FromMessage(testSource("/book tomorrow"))
	require.NotNil(t, ia)
	assert.False(t, ia.Ready())
	assert.Empty(t, ia.Field("date"))
	assert.Empty(t, ia.Field("guests"))
}

func TestFactory_FromCommand(t *testing.T) {
	greet := mustCommand(t, "greet", "get a personal greeting",
		models.Field{Name: "name", Description: "your name", Required: true},
		models.Field{Name: "language", Description: "your language", Required: false},
	)
	factory, _ := setupFactory(t, greet)

	ia, err := factory.FromCommand(testSource("/greet"), "Greet", map[string]string{
		"name":     "Ada",
		"language": "en",
	})
	require.NoError(t, err)
	assert.Equal(t, KindCommand, ia.Kind)
	assert.True(t, ia.Ready())
	assert.Equal(t, "Ada", ia.Field("name"))
	assert.Equal(t, "en", ia.Field("language"))
}

func TestFactory_FromCommandUnknownName(t *testing.T) {
	factory, _ := setupFactory(t)

	ia, err := factory.FromCommand(testSource("/nope"), "nope", nil)
	assert.Nil(t, ia)
	assert.ErrorIs(t, err, core.ErrUnknownCommand)
}

func TestFactory_NewTextIsReady(t *testing.T) {
	factory, _ := setupFactory(t)

	ia := factory.NewText(testSource("just chatting"))
	assert.Equal(t, KindText, ia.Kind)
	assert.True(t, ia.Ready())
	assert.Equal(t, "just chatting", ia.Text())
}

func TestFactory_InteractionsStartProcessing(t *testing.T) {
	ping := mustCommand(t, "ping", "check whether the bot is alive")
	factory, _ := setupFactory(t, ping)
	ctx := context.Background()

	ia := factory.FromMessage(testSource("/ping"))
	require.NotNil(t, ia)
	assert.True(t, ia.Processing())

	require.NoError(t, ia.Reply(ctx, "pong"))
	assert.False(t, ia.Processing())
}
