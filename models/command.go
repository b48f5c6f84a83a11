package models

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// MaxCommandNameLength is the tightest name limit across supported platforms
	MaxCommandNameLength = 32
	// MaxCommandDescriptionLength is the tightest description limit across supported platforms
	MaxCommandDescriptionLength = 200
)

var commandNamePattern = regexp.MustCompile(`^[0-9A-Za-z_]+$`)

// Field is a single input a command collects from the user
type Field struct {
	Name        string
	Description string
	Required    bool
}

// Command is a bot command registered with every configured platform.
// Names are normalized to lowercase at construction and the command is
// immutable afterwards.
type Command struct {
	name        string
	description string
	AdminOnly   bool
	Fields      []Field
}

// NewCommand validates and builds a command definition. Validation failures are
// contract violations by the host application, not runtime conditions.
func NewCommand(name, description string, adminOnly bool, fields ...Field) (*Command, error) {
	if len(name) > MaxCommandNameLength || !commandNamePattern.MatchString(name) {
		return nil, fmt.Errorf("command name %q does not meet requirements of all platforms", name)
	}
	if len(description) > MaxCommandDescriptionLength {
		return nil, fmt.Errorf(
			"command description is not short enough for all platforms (max: %d)",
			MaxCommandDescriptionLength,
		)
	}

	return &Command{
		name:        strings.ToLower(name),
		description: description,
		AdminOnly:   adminOnly,
		Fields:      fields,
	}, nil
}

// Name returns the normalized (lowercase) command name
func (c *Command) Name() string { return c.name }

// Description returns the help text shown to users
func (c *Command) Description() string { return c.description }

// RequiredFields returns the command's required fields in declaration order
func (c *Command) RequiredFields() []Field {
	var required []Field
	for _, f := range c.Fields {
		if f.Required {
			required = append(required, f)
		}
	}
	return required
}
