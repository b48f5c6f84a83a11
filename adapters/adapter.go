// Package adapters defines the capability contract every platform adapter
// implements, plus the event callbacks adapters raise toward the orchestrator.
package adapters

import (
	"context"

	"botmux/interaction"
	"botmux/models"
)

// Events are the notifications an adapter raises on its inbound event path.
// OnReady fires exactly once after connection and authentication; OnCommand
// fires once per interaction when it reaches readiness; OnText fires for every
// free-text interaction.
type Events struct {
	OnReady   func(a Adapter)
	OnCommand func(ia *interaction.Interaction)
	OnText    func(ia *interaction.Interaction)
}

// Adapter translates between the canonical interaction/command model and one
// chat platform's native API. It owns one dispatch.Dispatcher per distinct
// destination it has seen, created lazily, and implements interaction.Replier
// for the interactions it creates.
type Adapter interface {
	// Platform returns the adapter's platform identifier ("telegram", ...)
	Platform() string

	// IsReady reports whether the adapter is connected and serving
	IsReady() bool

	// Bind installs the orchestrator's event callbacks. Must be called before
	// Start.
	Bind(events Events)

	// Start connects, authenticates and begins delivering inbound events
	Start(ctx context.Context) error

	// Stop disconnects and retires all destination dispatchers
	Stop()

	// PushCommands synchronizes the command registry to the platform's native
	// command surface
	PushCommands(ctx context.Context) error

	// CreateOrUpdateStatus creates the persistent status message in the
	// configured status destination, or edits it in place
	CreateOrUpdateStatus(text string)

	// SendOneTimeStatus sends a one-off message to the status destination,
	// optionally forcing a user notification
	SendOneTimeStatus(text string, notify bool)

	// ReplaceStatus replaces the persistent status message's content with text
	// and starts a fresh status message below it
	ReplaceStatus(text string)

	// SendLog mirrors a log line to the configured log destination
	SendLog(text string)

	// SendToAccount sends a direct message to a specific platform account
	SendToAccount(account models.Account, text string) error
}
