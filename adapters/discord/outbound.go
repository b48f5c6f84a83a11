package discord

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/bwmarrin/discordgo"

	"botmux/interaction"
	"botmux/models"
)

// SendReply implements interaction.Replier. Slash-command interactions edit
// their deferred response; text interactions get a referenced reply message,
// retried without the reference if the referenced message is gone.
func (a *Adapter) SendReply(ctx context.Context, ia *interaction.Interaction, text string) {
	ia.ClearMenu()

	if deferred := a.pendingInteraction(ia.ID); deferred != nil {
		a.dispatcher(ia.Source.DestinationID).Enqueue(func() {
			content := truncate(text)
			if _, err := a.session.InteractionResponseEdit(deferred, &discordgo.WebhookEdit{
				Content: &content,
			}); err != nil {
				log.Printf("❌ Failed to edit discord command response: %v", err)
			}
			ia.SetProcessing(false)
		})
		return
	}

	channelID := ia.Source.DestinationID
	onSent := func(msg *discordgo.Message) {
		ia.SetBotMessageID(msg.ID)
		ia.SetProcessing(false)
	}

	if id := ia.BotMessageID(); id != "" {
		a.enqueueEdit(channelID, id, text, onSent)
		return
	}
	a.enqueueSend(channelID, text, ia.Source.MessageID, onSent)
}

// SendMenuReply implements interaction.Replier: the menu renders as plain text
// below the reply, and the user answers with a regular message.
func (a *Adapter) SendMenuReply(ctx context.Context, ia *interaction.Interaction, text string) {
	menu := ia.Menu()
	if menu == nil {
		a.SendReply(ctx, ia, text)
		return
	}
	rendered := strings.TrimSpace(text + "\n" + menu.Render())

	if deferred := a.pendingInteraction(ia.ID); deferred != nil {
		a.dispatcher(ia.Source.DestinationID).Enqueue(func() {
			content := truncate(rendered)
			if _, err := a.session.InteractionResponseEdit(deferred, &discordgo.WebhookEdit{
				Content: &content,
			}); err != nil {
				log.Printf("❌ Failed to edit discord command response: %v", err)
			}
			ia.SetProcessing(false)
		})
		return
	}

	a.enqueueSend(ia.Source.DestinationID, rendered, ia.Source.MessageID, func(msg *discordgo.Message) {
		ia.SetBotMessageID(msg.ID)
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
	delete(a.pending, ia.ID)
	a.mu.Unlock()
}

// SendToAccount opens (or reuses) the account's DM channel and queues the
// message there.
func (a *Adapter) SendToAccount(account models.Account, text string) error {
	channel, err := a.session.UserChannelCreate(account.ID)
	if err != nil {
		return fmt.Errorf("failed to open discord DM channel for %s: %w", account.ID, err)
	}
	a.enqueueSend(channel.ID, text, "", nil)
	return nil
}

// PushCommands bulk-overwrites the bot's global application commands from the
// registry.
func (a *Adapter) PushCommands(ctx context.Context) error {
	self := a.session.State.User
	if self == nil {
		return fmt.Errorf("discord session has no authenticated user")
	}

	var commands []*discordgo.ApplicationCommand
	for _, c := range a.registry.Commands() {
		appCommand := &discordgo.ApplicationCommand{
			Name:        c.Name(),
			Description: c.Description(),
		}
		for _, field := range c.Fields {
			appCommand.Options = append(appCommand.Options, &discordgo.ApplicationCommandOption{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        strings.ToLower(field.Name),
				Description: field.Description,
				Required:    field.Required,
			})
		}
		commands = append(commands, appCommand)
	}

	if _, err := a.session.ApplicationCommandBulkOverwrite(self.ID, "", commands); err != nil {
		return fmt.Errorf("failed to push discord commands: %w", err)
	}
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

	if a.statusMessageID == "" {
		a.enqueueSend(a.cfg.StatusChannelID, text, "", func(msg *discordgo.Message) {
			a.statusMu.Lock()
			a.statusMessageID = msg.ID
			a.statusMu.Unlock()
		})
		return
	}
	a.enqueueEdit(a.cfg.StatusChannelID, a.statusMessageID, text, nil)
}

// SendOneTimeStatus posts a one-off message to the status channel. Discord
// notifies members according to their channel settings, so notify only toggles
// text-to-speech off/on explicitly.
func (a *Adapter) SendOneTimeStatus(text string, notify bool) {
	if !a.IsReady() || a.cfg.StatusChannelID == "" {
		return
	}
	a.dispatcher(a.cfg.StatusChannelID).Enqueue(func() {
		_, err := a.session.ChannelMessageSendComplex(a.cfg.StatusChannelID, &discordgo.MessageSend{
			Content: truncate(text),
			TTS:     notify,
		})
		if err != nil {
			log.Printf("❌ Failed to send discord one-time status: %v", err)
		}
	})
}

// ReplaceStatus rewrites the old status message with the given text (deleting
// it when empty) and starts a fresh status message below it.
func (a *Adapter) ReplaceStatus(text string) {
	if !a.IsReady() || a.cfg.StatusChannelID == "" {
		return
	}

	a.statusMu.Lock()
	oldID := a.statusMessageID
	current := a.statusText
	a.statusMessageID = ""
	a.statusText = ""
	a.statusMu.Unlock()

	if oldID != "" {
		if text == "" {
			a.enqueueDelete(a.cfg.StatusChannelID, oldID)
		} else {
			a.enqueueEdit(a.cfg.StatusChannelID, oldID, text, nil)
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
	a.enqueueSend(a.cfg.LogChannelID, text, "", nil)
}

// respondEphemeral answers a slash-command interaction with a message only the
// invoking user can see.
func (a *Adapter) respondEphemeral(i *discordgo.Interaction, text string) {
	err := a.session.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: truncate(text),
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		log.Printf("❌ Failed to respond to discord interaction: %v", err)
	}
}

func (a *Adapter) pendingInteraction(id string) *discordgo.Interaction {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending[id]
}

// enqueueSend queues a message send; a rejected reply reference is retried
// without the reference.
func (a *Adapter) enqueueSend(channelID, text, replyTo string, onSent func(msg *discordgo.Message)) {
	a.dispatcher(channelID).Enqueue(func() {
		send := &discordgo.MessageSend{Content: truncate(text)}
		if replyTo != "" {
			send.Reference = &discordgo.MessageReference{MessageID: replyTo, ChannelID: channelID}
		}

		msg, err := a.session.ChannelMessageSendComplex(channelID, send)
		if err != nil {
			if replyTo != "" {
				a.enqueueSend(channelID, text, "", onSent)
				return
			}
			log.Printf("❌ Failed to send discord message to channel %s: %v", channelID, err)
			return
		}
		if onSent != nil {
			onSent(msg)
		}
	})
}

// enqueueEdit queues an in-place edit; a missing target falls back to a new
// message.
func (a *Adapter) enqueueEdit(channelID, messageID, text string, onSent func(msg *discordgo.Message)) {
	a.dispatcher(channelID).Enqueue(func() {
		msg, err := a.session.ChannelMessageEdit(channelID, messageID, truncate(text))
		if err != nil {
			a.enqueueSend(channelID, text, "", onSent)
			return
		}
		if onSent != nil {
			onSent(msg)
		}
	})
}

func (a *Adapter) enqueueDelete(channelID, messageID string) {
	a.dispatcher(channelID).Enqueue(func() {
		if err := a.session.ChannelMessageDelete(channelID, messageID); err != nil {
			log.Printf("⚠️ Failed to delete discord message %s: %v", messageID, err)
		}
	})
}

func (a *Adapter) enqueueTyping(channelID string) {
	a.dispatcher(channelID).Enqueue(func() {
		if err := a.session.ChannelTyping(channelID); err != nil {
			log.Printf("⚠️ Failed to send discord typing indicator: %v", err)
		}
	})
}
