// Package telegram adapts the canonical interaction model to the Telegram Bot
// API. Telegram delivers every kind of update through one long-polling stream,
// uses free-text slash syntax for commands, and rate-limits sends per chat, so
// each chat gets its own dispatch queue.
package telegram

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/mymmrac/telego"

	"botmux/adapters"
	"botmux/config"
	"botmux/dispatch"
	"botmux/interaction"
	"botmux/models"
	"botmux/registry"
)

// PlatformName identifies this adapter in canonical sources and accounts
const PlatformName = "telegram"

const maxTextLength = 4096

// foreignBotPattern matches "/command@somebot" so invocations aimed at another
// bot in the same group can be ignored
var foreignBotPattern = regexp.MustCompile(`^/[^@\s]+@(\S+)`)

type activeKey struct {
	accountID     string
	destinationID string
}

// Adapter is the Telegram platform adapter. The inbound update stream is
// processed sequentially; outbound calls all flow through per-chat dispatchers.
type Adapter struct {
	cfg      config.TelegramConfig
	registry *registry.CommandRegistry
	factory  *interaction.Factory
	events   adapters.Events

	bot         *telego.Bot
	botUsername string
	mention     *regexp.Regexp
	ready       atomic.Bool
	rootCtx     context.Context

	mu          sync.Mutex
	dispatchers map[int64]*dispatch.Dispatcher
	active      map[activeKey]*interaction.Interaction

	statusMu        sync.Mutex
	logDestID       int64
	statusDestID    int64
	statusMessageID int
	statusText      string
}

func NewAdapter(cfg config.TelegramConfig, reg *registry.CommandRegistry) (*Adapter, error) {
	bot, err := telego.NewBot(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot client: %w", err)
	}

	a := &Adapter{
		cfg:          cfg,
		registry:     reg,
		bot:          bot,
		dispatchers:  make(map[int64]*dispatch.Dispatcher),
		active:       make(map[activeKey]*interaction.Interaction),
		logDestID:    cfg.LogChannelID,
		statusDestID: cfg.StatusChannelID,
	}
	a.factory = interaction.NewFactory(reg, a)
	return a, nil
}

func (a *Adapter) Platform() string { return PlatformName }

func (a *Adapter) IsReady() bool { return a.ready.Load() }

func (a *Adapter) Bind(events adapters.Events) { a.events = events }

// Start authenticates, begins long polling and fires the one-time ready event
func (a *Adapter) Start(ctx context.Context) error {
	a.rootCtx = ctx

	me, err := a.bot.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("failed to authenticate telegram bot: %w", err)
	}
	a.botUsername = me.Username
	a.mention = regexp.MustCompile(`(?i)@` + regexp.QuoteMeta(a.botUsername) + `(\s|$)`)

	updates, err := a.bot.UpdatesViaLongPolling(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start telegram long polling: %w", err)
	}

	a.ready.Store(true)
	log.Printf("✅ Telegram adapter ready as @%s", a.botUsername)
	if a.events.OnReady != nil {
		a.events.OnReady(a)
	}

	go a.listen(ctx, updates)
	return nil
}

func (a *Adapter) Stop() {
	a.ready.Store(false)
	a.mu.Lock()
	for _, d := range a.dispatchers {
		d.Stop()
	}
	a.mu.Unlock()
}

func (a *Adapter) listen(ctx context.Context, updates <-chan telego.Update) {
	for update := range updates {
		a.handleUpdate(ctx, update)
	}
}

// handleUpdate is the single inbound path. Telegram does not split update
// kinds into separate events, so migrations, service messages and user text
// all get sorted out here.
func (a *Adapter) handleUpdate(ctx context.Context, update telego.Update) {
	msg := update.Message
	if msg == nil {
		return
	}

	if msg.MigrateToChatID != 0 {
		a.handleMigration(msg.Chat.ID, msg.MigrateToChatID)
		return
	}

	chatID := msg.Chat.ID

	// keep groups clear of join/leave/pin service messages
	if len(msg.NewChatMembers) > 0 || msg.LeftChatMember != nil || msg.PinnedMessage != nil {
		a.enqueueDelete(chatID, msg.MessageID)
		return
	}

	// nothing to do without text and an identifiable sender
	if msg.From == nil || strings.TrimSpace(msg.Text) == "" {
		return
	}

	// in group chats only react when addressed directly
	if msg.Chat.Type != telego.ChatTypePrivate &&
		msg.Chat.Type != telego.ChatTypeSender &&
		!a.mention.MatchString(msg.Text) {
		return
	}

	text := strings.TrimSpace(msg.Text)

	// an invocation naming another bot is not for us
	if match := foreignBotPattern.FindStringSubmatch(text); match != nil &&
		!strings.EqualFold(match[1], a.botUsername) {
		return
	}

	src := a.sourceFor(msg)
	key := activeKey{accountID: src.Account.ID, destinationID: src.DestinationID}
	existing := a.activeInteraction(key)

	isCommand := strings.HasPrefix(text, "/")

	// route non-command text to the pending exchange for this user and chat
	if existing != nil && !isCommand {
		if existing.Processing() {
			return // they jumped the gun, a reply is still in flight
		}
		if existing.Menu() != nil {
			existing.HandleMenuResponse(ctx, text)
			return
		}
		if existing.Kind == interaction.KindCommand {
			if existing.ReadAnswer(ctx, text) {
				if existing.Ready() && a.events.OnCommand != nil {
					a.events.OnCommand(existing)
				}
				// clear out answers to follow-up questions
				a.enqueueDelete(chatID, msg.MessageID)
				return
			}
			if !existing.Ready() {
				return
			}
		}
	}

	ia := a.factory.FromMessage(src)
	if ia == nil {
		return
	}

	// a new invocation ends the prior incomplete exchange
	if existing != nil && isCommand && !existing.Ready() {
		existing.End()
	}

	a.setActive(key, ia)
	a.enqueueTyping(chatID)

	if ia.Kind == interaction.KindCommand {
		if ia.Command.AdminOnly && !a.isAdmin(src.Account.Handle) {
			a.SendReply(ctx, ia, "Sorry, only specified admins can use that command")
			ia.End()
			return
		}

		ia.Prepare(ctx)
		if ia.Ready() && a.events.OnCommand != nil {
			a.events.OnCommand(ia)
		}
		return
	}

	if a.events.OnText != nil {
		a.events.OnText(ia)
	}
}

// handleMigration retires a chat whose identity changed (group upgraded to
// supergroup). Continuity cannot be guaranteed, so this is an operator alert,
// not a recovered state transition.
func (a *Adapter) handleMigration(oldID, newID int64) {
	a.mu.Lock()
	if d, ok := a.dispatchers[oldID]; ok {
		d.Stop()
	}
	a.dispatchers[newID] = dispatch.NewDispatcher(dispatch.TelegramChatLimit)
	a.mu.Unlock()

	a.statusMu.Lock()
	if a.statusDestID == oldID {
		a.statusDestID = newID
		a.statusMessageID = 0
	}
	if a.logDestID == oldID {
		a.logDestID = newID
	}
	a.statusMu.Unlock()

	alert := fmt.Sprintf(
		"ALERT: UPDATE SETTINGS!! chat %d has migrated to a supergroup and its id has changed to %d",
		oldID, newID,
	)
	log.Printf("❌ %s", alert)
	a.SendLog(alert)
}

func (a *Adapter) sourceFor(msg *telego.Message) interaction.Source {
	from := msg.From
	name := strings.TrimSpace(from.FirstName + " " + from.LastName)
	handle := ""
	if from.Username != "" {
		handle = "@" + from.Username
	}

	return interaction.Source{
		Platform:      PlatformName,
		MessageID:     strconv.Itoa(msg.MessageID),
		DestinationID: strconv.FormatInt(msg.Chat.ID, 10),
		Text:          msg.Text,
		Account: models.Account{
			Platform:    PlatformName,
			ID:          strconv.FormatInt(from.ID, 10),
			DisplayName: name,
			Handle:      handle,
		},
	}
}

// isAdmin applies the admin policy: an empty allow-list permits everyone
func (a *Adapter) isAdmin(handle string) bool {
	if len(a.cfg.AdminAllowlist) == 0 {
		return true
	}
	handle = strings.TrimPrefix(handle, "@")
	for _, admin := range a.cfg.AdminAllowlist {
		if strings.EqualFold(strings.TrimPrefix(admin, "@"), handle) {
			return true
		}
	}
	return false
}

func (a *Adapter) activeInteraction(key activeKey) *interaction.Interaction {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active[key]
}

func (a *Adapter) setActive(key activeKey, ia *interaction.Interaction) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.active[key] = ia
}

// dispatcher returns the destination's outbound queue, creating it lazily
func (a *Adapter) dispatcher(chatID int64) *dispatch.Dispatcher {
	a.mu.Lock()
	defer a.mu.Unlock()
	d, ok := a.dispatchers[chatID]
	if !ok {
		d = dispatch.NewDispatcher(dispatch.TelegramChatLimit)
		a.dispatchers[chatID] = d
	}
	return d
}

// truncate shortens text to what Telegram accepts in one message
func truncate(text string) string {
	if len(text) > maxTextLength-5 {
		return text[:maxTextLength-5] + "..."
	}
	return text
}
