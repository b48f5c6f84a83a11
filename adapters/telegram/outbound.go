package telegram

import (
	"context"
	"log"
	"strconv"
	"strings"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"botmux/interaction"
	"botmux/models"
)

type sendOptions struct {
	replyTo  int
	keyboard *telego.ReplyKeyboardMarkup
	silent   bool
	onSent   func(msg *telego.Message)
}

// enqueueSend queues a message send on the chat's dispatcher. When a reply
// reference is rejected (the referenced message may have been deleted) the send
// is retried without it.
func (a *Adapter) enqueueSend(chatID int64, text string, opts sendOptions) {
	a.dispatcher(chatID).Enqueue(func() {
		params := &telego.SendMessageParams{
			ChatID:              tu.ID(chatID),
			Text:                truncate(text),
			DisableNotification: opts.silent,
		}
		if opts.replyTo != 0 {
			params.ReplyParameters = &telego.ReplyParameters{MessageID: opts.replyTo}
		}
		if opts.keyboard != nil {
			params.ReplyMarkup = opts.keyboard
		}

		msg, err := a.bot.SendMessage(a.rootCtx, params)
		if err != nil {
			if opts.replyTo != 0 {
				retry := opts
				retry.replyTo = 0
				a.enqueueSend(chatID, text, retry)
				return
			}
			log.Printf("❌ Failed to send telegram message to chat %d: %v", chatID, err)
			return
		}
		if opts.onSent != nil {
			opts.onSent(msg)
		}
	})
}

// enqueueEdit queues an in-place edit; if the target message is gone the text
// is sent as a new message instead.
func (a *Adapter) enqueueEdit(chatID int64, messageID int, text string, onSent func(msg *telego.Message)) {
	a.dispatcher(chatID).Enqueue(func() {
		msg, err := a.bot.EditMessageText(a.rootCtx, &telego.EditMessageTextParams{
			ChatID:    tu.ID(chatID),
			MessageID: messageID,
			Text:      truncate(text),
		})
		if err != nil {
			a.enqueueSend(chatID, text, sendOptions{onSent: onSent})
			return
		}
		if onSent != nil {
			onSent(msg)
		}
	})
}

func (a *Adapter) enqueueDelete(chatID int64, messageID int) {
	a.dispatcher(chatID).Enqueue(func() {
		if err := a.bot.DeleteMessage(a.rootCtx, &telego.DeleteMessageParams{
			ChatID:    tu.ID(chatID),
			MessageID: messageID,
		}); err != nil {
			log.Printf("⚠️ Failed to delete telegram message %d in chat %d: %v", messageID, chatID, err)
		}
	})
}

// enqueueTyping shows "Bot is typing..." in the chat window
func (a *Adapter) enqueueTyping(chatID int64) {
	a.dispatcher(chatID).Enqueue(func() {
		if err := a.bot.SendChatAction(a.rootCtx, &telego.SendChatActionParams{
			ChatID: tu.ID(chatID),
			Action: telego.ChatActionTyping,
		}); err != nil {
			log.Printf("⚠️ Failed to send telegram typing action to chat %d: %v", chatID, err)
		}
	})
}

// SendReply implements interaction.Replier. The bot keeps a single reply
// message per interaction: later replies edit it in place. A reply after a
// menu replaces the keyboard message entirely, because Telegram cannot edit a
// keyboard out of an existing message.
func (a *Adapter) SendReply(ctx context.Context, ia *interaction.Interaction, text string) {
	chatID := a.destinationChatID(ia.Source.DestinationID)

	if ia.Menu() != nil {
		ia.ClearMenu()
		if id := ia.BotMessageID(); id != "" {
			a.enqueueDelete(chatID, atoi(id))
			ia.SetBotMessageID("")
		}
	}

	onSent := func(msg *telego.Message) {
		ia.SetBotMessageID(strconv.Itoa(msg.MessageID))
		ia.SetProcessing(false)
	}

	if id := ia.BotMessageID(); id != "" {
		a.enqueueEdit(chatID, atoi(id), text, onSent)
		return
	}
	a.enqueueSend(chatID, text, sendOptions{replyTo: atoi(ia.Source.MessageID), onSent: onSent})
}

// SendMenuReply implements interaction.Replier: the menu renders as text with a
// one-time reply keyboard offering the choices.
func (a *Adapter) SendMenuReply(ctx context.Context, ia *interaction.Interaction, text string) {
	menu := ia.Menu()
	if menu == nil {
		a.SendReply(ctx, ia, text)
		return
	}

	chatID := a.destinationChatID(ia.Source.DestinationID)

	var buttons []telego.KeyboardButton
	for i, opt := range menu.Options {
		label := opt.Key
		if menu.Numbered {
			label = strconv.Itoa(i + 1)
		}
		buttons = append(buttons, telego.KeyboardButton{Text: label})
	}
	keyboard := &telego.ReplyKeyboardMarkup{
		Keyboard:        [][]telego.KeyboardButton{buttons},
		ResizeKeyboard:  true,
		OneTimeKeyboard: true,
		Selective:       true,
	}

	text = strings.TrimSpace(text + "\n" + menu.Render())

	// a keyboard cannot be edited into an existing message, so start fresh
	oldID := ia.BotMessageID()
	a.enqueueSend(chatID, text, sendOptions{
		replyTo:  atoi(ia.Source.MessageID),
		keyboard: keyboard,
		onSent: func(msg *telego.Message) {
			ia.SetBotMessageID(strconv.Itoa(msg.MessageID))
			ia.SetProcessing(false)
		},
	})
	if oldID != "" {
		a.enqueueDelete(chatID, atoi(oldID))
	}
}

// Finalize implements interaction.Replier: the interaction leaves the active
// set and any lingering menu message is deleted so its keyboard stops popping
// up for the user.
func (a *Adapter) Finalize(ia *interaction.Interaction) {
	key := activeKey{accountID: ia.Source.Account.ID, destinationID: ia.Source.DestinationID}

	a.mu.Lock()
	if a.active[key] == ia {
		delete(a.active, key)
	}
	a.mu.Unlock()

	if ia.Menu() != nil {
		if id := ia.BotMessageID(); id != "" {
			a.enqueueDelete(a.destinationChatID(ia.Source.DestinationID), atoi(id))
		}
	}
}

// SendToAccount opens the account's DM chat (its id equals the account id) and
// queues the message there.
func (a *Adapter) SendToAccount(account models.Account, text string) error {
	chatID, err := strconv.ParseInt(account.ID, 10, 64)
	if err != nil {
		return err
	}
	a.enqueueSend(chatID, text, sendOptions{})
	return nil
}

func (a *Adapter) destinationChatID(destinationID string) int64 {
	id, _ := strconv.ParseInt(destinationID, 10, 64)
	return id
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
