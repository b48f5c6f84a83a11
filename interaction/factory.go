package interaction

import (
	"fmt"
	"regexp"
	"strings"

	"botmux/core"
	"botmux/models"
	"botmux/registry"
)

var (
	commandToken = regexp.MustCompile(`^/([^@\s]*)`)
	inlineValue  = regexp.MustCompile(`\s+(.*)`)
)

// Factory classifies inbound events into command or text interactions against
// the shared command registry. Each adapter owns one factory bound to its own
// replier.
type Factory struct {
	registry *registry.CommandRegistry
	replier  Replier
}

func NewFactory(reg *registry.CommandRegistry, replier Replier) *Factory {
	return &Factory{registry: reg, replier: replier}
}

// FromMessage classifies a free-text message the way slash-syntax platforms
// work: a leading /name matching a registered command becomes a command
// interaction, anything else (including unknown commands) degrades to a text
// interaction. Returns nil when there is nothing to work with.
func (f *Factory) FromMessage(src Source) *Interaction {
	text := strings.TrimSpace(src.Text)
	if text == "" {
		return nil
	}

	if match := commandToken.FindStringSubmatch(text); match != nil && match[1] != "" {
		name := strings.ToLower(match[1])
		if command, err := f.registry.Get(name); err == nil {
			return f.newCommand(src, command, extractInlineValue(text))
		}
		// unknown slash commands fall through and are treated as text
	}

	return f.NewText(src)
}

// FromCommand builds a command interaction for fixed-command-surface platforms
// where the platform already parsed the command name and argument values. An
// unregistered name is a caller-visible error.
func (f *Factory) FromCommand(src Source, name string, args map[string]string) (*Interaction, error) {
	command, err := f.registry.Get(strings.ToLower(name))
	if err != nil {
		return nil, fmt.Errorf("no registered command /%s: %w", name, core.ErrUnknownCommand)
	}

	ia := f.newInteraction(src, KindCommand)
	ia.Command = command
	for _, field := range command.Fields {
		if value, ok := args[strings.ToLower(field.Name)]; ok && value != "" {
			ia.fields[field.Name] = value
		}
	}
	ia.checkReadyLocked()
	return ia, nil
}

// NewText builds a text interaction for a message that needs no classification
func (f *Factory) NewText(src Source) *Interaction {
	ia := f.newInteraction(src, KindText)
	ia.ready = true
	return ia
}

func (f *Factory) newCommand(src Source, command *models.Command, inline string) *Interaction {
	ia := f.newInteraction(src, KindCommand)
	ia.Command = command

	// a value trailing the command token is used only when exactly one
	// required field exists, so there is no ambiguity about which field it
	// fills
	required := command.RequiredFields()
	if len(command.Fields) > 0 && len(required) == 1 && inline != "" {
		ia.fields[required[0].Name] = inline
	}

	ia.checkReadyLocked()
	return ia
}

func (f *Factory) newInteraction(src Source, kind Kind) *Interaction {
	return &Interaction{
		ID:         core.NewID("ia"),
		Kind:       kind,
		Source:     src,
		fields:     make(map[string]string),
		processing: true,
		replier:    f.replier,
	}
}

// extractInlineValue returns whatever trails the command token, trimmed
func extractInlineValue(text string) string {
	match := inlineValue.FindStringSubmatch(text)
	if match == nil {
		return ""
	}
	return strings.TrimSpace(match[1])
}
