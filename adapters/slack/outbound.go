package slack

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/slack-go/slack"

	"botmux/interaction"
	"botmux/models"
)

// SendReply implements interaction.Replier. Later replies edit the bot's
// previous message in place; an edit whose target is gone falls back to a new
// message.
func (a *Adapter) SendReply(ctx context.Context, ia *interaction.Interaction, text string) {
	ia.ClearMenu()

	channelID := ia.Source.DestinationID
	onSent := func(ts string) {
		ia.SetBotMessageID(ts)
		ia.SetProcessing(false)
	}

	if ts := ia.BotMessageID(); ts != "" {
		a.enqueueEdit(channelID, ts, text, onSent)
		return
	}
	a.enqueueSend(channelID, text, onSent)
}

// SendMenuReply implements interaction.Replier: the menu renders as plain text
// below the reply.
func (a *Adapter) SendMenuReply(ctx context.Context, ia *interaction.Interaction, text string) {
	menu := ia.Menu()
	if menu == nil {
		a.SendReply(ctx, ia, text)
		return
	}
	rendered := strings.TrimSpace(text + "\n" + menu.Render())
	a.enqueueSend(ia.Source.DestinationID, rendered, func(ts string) {
		ia.SetBotMessageID(ts)
		ia.SetProcessing(false)
	})
}

// Finalize implements interaction.Replier
func (a *Adapter) Finalize(ia *interaction.Interaction) {
	key := activeKey{accountID: ia.Source.Account.ID, destinationID: ia.Source.DestinationID}
	a.mu.Lock()
	if a.active[key] == ia {
		delete(a.active, key)
	}
	a.mu.Unlock()
}

// SendToAccount opens (or reuses) the account's DM conversation and queues the
// message there.
func (a *Adapter) SendToAccount(account models.Account, text string) error {
	channel, _, _, err := a.api.OpenConversationContext(a.rootCtx, &slack.OpenConversationParameters{
		Users: []string{account.ID},
	})
	if err != nil {
		return fmt.Errorf("failed to open slack DM conversation for %s: %w", account.ID, err)
	}
	a.enqueueSend(channel.ID, text, nil)
	return nil
}

// PushCommands is a no-op on Slack: slash commands live in the app manifest
// and cannot be registered over the API.
func (a *Adapter) PushCommands(ctx context.Context) error {
	log.Printf("⚠️ Slack has no command registration API - update the app manifest to match the registry")
	return nil
}

// CreateOrUpdateStatus maintains the single persistent status message in the
// status channel.
func (a *Adapter) CreateOrUpdateStatus(text string) {
	if !a.IsReady() || a.cfg.StatusChannelID == "" {
		return
	}

	a.statusMu.Lock()
	defer a.statusMu.Unlock()
	if text == a.statusText {
		return
	}
	a.statusText = text

	if a.statusMessageTS == "" {
		a.enqueueSend(a.cfg.StatusChannelID, text, func(ts string) {
			a.statusMu.Lock()
			a.statusMessageTS = ts
			a.statusMu.Unlock()
		})
		return
	}
	a.enqueueEdit(a.cfg.StatusChannelID, a.statusMessageTS, text, nil)
}

// SendOneTimeStatus posts a one-off message to the status channel; notify
// prefixes an @here so members get pinged.
func (a *Adapter) SendOneTimeStatus(text string, notify bool) {
	if !a.IsReady() || a.cfg.StatusChannelID == "" {
		return
	}
	if notify {
		text = "<!here> " + text
	}
	a.enqueueSend(a.cfg.StatusChannelID, text, nil)
}

// ReplaceStatus rewrites the old status message with the given text (deleting
// it when empty) and starts a fresh status message below it.
func (a *Adapter) ReplaceStatus(text string) {
	if !a.IsReady() || a.cfg.StatusChannelID == "" {
		return
	}

	a.statusMu.Lock()
	oldTS := a.statusMessageTS
	current := a.statusText
	a.statusMessageTS = ""
	a.statusText = ""
	a.statusMu.Unlock()

	if oldTS != "" {
		if text == "" {
			a.enqueueDelete(a.cfg.StatusChannelID, oldTS)
		} else {
			a.enqueueEdit(a.cfg.StatusChannelID, oldTS, text, nil)
		}
	}
	if current != "" {
		a.CreateOrUpdateStatus(current)
	}
}

// SendLog mirrors a log line into the configured log channel
func (a *Adapter) SendLog(text string) {
	if !a.IsReady() || a.cfg.LogChannelID == "" {
		return
	}
	a.enqueueSend(a.cfg.LogChannelID, text, nil)
}

func (a *Adapter) enqueueSend(channelID, text string, onSent func(ts string)) {
	a.dispatcher(channelID).Enqueue(func() {
		_, ts, err := a.api.PostMessageContext(a.rootCtx, channelID,
			slack.MsgOptionText(truncate(toSlackMarkdown(text)), false))
		if err != nil {
			log.Printf("❌ Failed to send slack message to channel %s: %v", channelID, err)
			return
		}
		if onSent != nil {
			onSent(ts)
		}
	})
}

// enqueueEdit queues an in-place edit; a missing target falls back to a new
// message.
func (a *Adapter) enqueueEdit(channelID, ts, text string, onSent func(ts string)) {
	a.dispatcher(channelID).Enqueue(func() {
		_, newTS, _, err := a.api.UpdateMessageContext(a.rootCtx, channelID, ts,
			slack.MsgOptionText(truncate(toSlackMarkdown(text)), false))
		if err != nil {
			a.enqueueSend(channelID, text, onSent)
			return
		}
		if onSent != nil {
			onSent(newTS)
		}
	})
}

func (a *Adapter) enqueueDelete(channelID, ts string) {
	a.dispatcher(channelID).Enqueue(func() {
		if _, _, err := a.api.DeleteMessageContext(a.rootCtx, channelID, ts); err != nil {
			log.Printf("⚠️ Failed to delete slack message %s: %v", ts, err)
		}
	})
}
