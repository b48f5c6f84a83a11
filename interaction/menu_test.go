package interaction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seasonsMenu(onChoose ChoiceHandler) *Menu {
	return NewMenu("season", []MenuOption{
		{Key: "spring", Label: "Spring"},
		{Key: "summer", Label: "Summer"},
		{Key: "winter", Label: "Winter"},
	}, onChoose)
}

func TestMenu_KeyAt(t *testing.T) {
	menu := seasonsMenu(nil)

	key, err := menu.KeyAt(1)
	require.NoError(t, err)
	assert.Equal(t, "spring", key)

	key, err = menu.KeyAt(3)
	require.NoError(t, err)
	assert.Equal(t, "winter", key)

	_, err = menu.KeyAt(0)
	assert.Error(t, err)
	_, err = menu.KeyAt(4)
	assert.Error(t, err)
}

func TestMenu_HasKey(t *testing.T) {
	menu := seasonsMenu(nil)
	assert.True(t, menu.HasKey("summer"))
	assert.False(t, menu.HasKey("autumn"))
}

func TestMenu_RenderNumbered(t *testing.T) {
	menu := seasonsMenu(nil)
	assert.Equal(t, "1: Spring\n2: Summer\n3: Winter", menu.Render())
}

func TestMenu_RenderKeyed(t *testing.T) {
	menu := seasonsMenu(nil)
	menu.Numbered = false
	assert.Equal(t, "spring: Spring\nsummer: Summer\nwinter: Winter", menu.Render())
}
