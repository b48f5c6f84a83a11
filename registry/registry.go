// Package registry holds the canonical store of command definitions shared by
// every platform adapter.
package registry

import (
	"fmt"
	"log"

	"botmux/core"
	"botmux/models"
)

// CommandRegistry maps normalized command names to their definitions. It is
// populated once at startup before any adapter starts accepting events and is
// not designed for concurrent writers while serving.
type CommandRegistry struct {
	commands map[string]*models.Command
	order    []string
}

func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{
		commands: make(map[string]*models.Command),
	}
}

// Register stores a command under its normalized name. A duplicate registration
// is rejected and logged; the first registration is retained.
func (r *CommandRegistry) Register(command *models.Command) error {
	name := command.Name()
	if _, ok := r.commands[name]; ok {
		log.Printf("⚠️ Attempted to register command %s more than once, ignored", name)
		return fmt.Errorf("failed to register command %s: %w", name, core.ErrDuplicateCommand)
	}

	r.commands[name] = command
	r.order = append(r.order, name)
	return nil
}

// Get returns the command registered under name
func (r *CommandRegistry) Get(name string) (*models.Command, error) {
	command, ok := r.commands[name]
	if !ok {
		return nil, fmt.Errorf("command %s: %w", name, core.ErrNotFound)
	}
	return command, nil
}

// Has is a pure existence check
func (r *CommandRegistry) Has(name string) bool {
	_, ok := r.commands[name]
	return ok
}

// Commands returns all registered commands in registration order
func (r *CommandRegistry) Commands() []*models.Command {
	commands := make([]*models.Command, 0, len(r.order))
	for _, name := range r.order {
		commands = append(commands, r.commands[name])
	}
	return commands
}
