package telegram

import (
	"context"
	"fmt"
	"log"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

// PushCommands synchronizes the registry to Telegram's command menu. Admin
// commands are scoped to administrators of the status and log chats; everything
// else shows up for all private chats.
func (a *Adapter) PushCommands(ctx context.Context) error {
	var userCommands, adminCommands []telego.BotCommand
	for _, c := range a.registry.Commands() {
		botCommand := telego.BotCommand{Command: c.Name(), Description: c.Description()}
		if c.AdminOnly {
			adminCommands = append(adminCommands, botCommand)
		} else {
			userCommands = append(userCommands, botCommand)
		}
	}

	if len(adminCommands) > 0 {
		for _, chatID := range []int64{a.statusDestID, a.logDestID} {
			if chatID == 0 {
				continue
			}
			err := a.bot.SetMyCommands(ctx, &telego.SetMyCommandsParams{
				Commands: adminCommands,
				Scope: &telego.BotCommandScopeChatAdministrators{
					Type:   telego.ScopeTypeChatAdministrators,
					ChatID: tu.ID(chatID),
				},
			})
			if err != nil {
				return fmt.Errorf("failed to push admin commands to chat %d: %w", chatID, err)
			}
		}
	}

	err := a.bot.SetMyCommands(ctx, &telego.SetMyCommandsParams{
		Commands: userCommands,
		Scope:    &telego.BotCommandScopeAllPrivateChats{Type: telego.ScopeTypeAllPrivateChats},
	})
	if err != nil {
		return fmt.Errorf("failed to push commands: %w", err)
	}
	return nil
}

// CreateOrUpdateStatus maintains the single persistent status message in the
// status chat. Re-sending identical text is skipped because Telegram rejects
// no-op edits.
func (a *Adapter) CreateOrUpdateStatus(text string) {
	if !a.IsReady() {
		return
	}

	a.statusMu.Lock()
	defer a.statusMu.Unlock()
	if a.statusDestID == 0 || text == a.statusText {
		return
	}
	a.statusText = text

	if a.statusMessageID == 0 {
		a.enqueueSend(a.statusDestID, text, sendOptions{onSent: func(msg *telego.Message) {
			a.statusMu.Lock()
			a.statusMessageID = msg.MessageID
			a.statusMu.Unlock()
		}})
		return
	}
	a.enqueueEdit(a.statusDestID, a.statusMessageID, text, nil)
}

// SendOneTimeStatus posts a one-off message to the status chat. Telegram has no
// direct "notify" flag for channel posts, but pinning with notification and
// unpinning right after forces one.
func (a *Adapter) SendOneTimeStatus(text string, notify bool) {
	if !a.IsReady() {
		return
	}
	a.statusMu.Lock()
	destID := a.statusDestID
	a.statusMu.Unlock()
	if destID == 0 {
		return
	}

	opts := sendOptions{silent: !notify}
	if notify {
		opts.onSent = func(msg *telego.Message) {
			a.dispatcher(destID).Enqueue(func() {
				if err := a.bot.PinChatMessage(a.rootCtx, &telego.PinChatMessageParams{
					ChatID:    tu.ID(destID),
					MessageID: msg.MessageID,
				}); err != nil {
					log.Printf("⚠️ Failed to pin telegram status message: %v", err)
					return
				}
				if err := a.bot.UnpinChatMessage(a.rootCtx, &telego.UnpinChatMessageParams{
					ChatID:    tu.ID(destID),
					MessageID: msg.MessageID,
				}); err != nil {
					log.Printf("⚠️ Failed to unpin telegram status message: %v", err)
				}
			})
		}
	}
	a.enqueueSend(destID, text, opts)
}

// ReplaceStatus rewrites the old status message with the given text (deleting
// it when the text is empty) and starts a fresh status message below it.
func (a *Adapter) ReplaceStatus(text string) {
	if !a.IsReady() {
		return
	}

	a.statusMu.Lock()
	destID := a.statusDestID
	oldID := a.statusMessageID
	current := a.statusText
	a.statusMessageID = 0
	a.statusText = ""
	a.statusMu.Unlock()

	if destID == 0 {
		return
	}
	if oldID != 0 {
		if text == "" {
			a.enqueueDelete(destID, oldID)
		} else {
			a.enqueueEdit(destID, oldID, text, nil)
		}
	}
	if current != "" {
		a.CreateOrUpdateStatus(current)
	}
}

// SendLog mirrors a log line into the configured log chat
func (a *Adapter) SendLog(text string) {
	if !a.IsReady() {
		return
	}
	a.statusMu.Lock()
	destID := a.logDestID
	a.statusMu.Unlock()
	if destID == 0 {
		return
	}
	a.enqueueSend(destID, text, sendOptions{silent: true})
}
