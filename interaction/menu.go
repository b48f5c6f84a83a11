package interaction

import (
	"context"
	"fmt"
	"strings"
)

// MenuOption is one labeled choice in a menu. Key is the stable identifier the
// resolution callback receives; Label is what the user sees.
type MenuOption struct {
	Key   string
	Label string
}

// ChoiceHandler is invoked with the resolved option key when the user answers a
// menu.
type ChoiceHandler func(ctx context.Context, ia *Interaction, key string)

// Menu is a finite labeled choice set offered to a user. In numbered mode the
// options display as positions 1..n which resolve back to keys; in keyed mode
// the raw keys are shown. A menu is referenced, not owned, by an interaction
// and is cleared once resolved.
type Menu struct {
	Name     string
	Options  []MenuOption
	Numbered bool
	OnChoose ChoiceHandler
}

// NewMenu builds a numbered menu; flip Numbered off for keyed display
func NewMenu(name string, options []MenuOption, onChoose ChoiceHandler) *Menu {
	return &Menu{
		Name:     name,
		Options:  options,
		Numbered: true,
		OnChoose: onChoose,
	}
}

// KeyAt resolves a 1-indexed position to its option key
func (m *Menu) KeyAt(index int) (string, error) {
	if index < 1 || index > len(m.Options) {
		return "", fmt.Errorf("menu %s has no option %d", m.Name, index)
	}
	return m.Options[index-1].Key, nil
}

// HasKey reports whether the menu contains an option with the given key
func (m *Menu) HasKey(key string) bool {
	for _, opt := range m.Options {
		if opt.Key == key {
			return true
		}
	}
	return false
}

// Render produces the deterministic "index: label" text listing, one option per
// line in declaration order.
func (m *Menu) Render() string {
	var b strings.Builder
	for i, opt := range m.Options {
		if m.Numbered {
			fmt.Fprintf(&b, "%d: %s\n", i+1, opt.Label)
		} else {
			fmt.Fprintf(&b, "%s: %s\n", opt.Key, opt.Label)
		}
	}
	return strings.TrimSpace(b.String())
}
