// Package discord adapts the canonical interaction model to Discord. Commands
// arrive pre-parsed through the slash-command gateway event (a fixed,
// discoverable surface), text arrives through message events, and every
// channel gets its own dispatch queue.
package discord

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"

	"botmux/adapters"
	"botmux/config"
	"botmux/core"
	"botmux/dispatch"
	"botmux/interaction"
	"botmux/models"
	"botmux/registry"
)

// PlatformName identifies this adapter in canonical sources and accounts
const PlatformName = "discord"

const maxTextLength = 2000

type activeKey struct {
	accountID     string
	destinationID string
}

// Adapter is the Discord platform adapter
type Adapter struct {
	cfg      config.DiscordConfig
	registry *registry.CommandRegistry
	factory  *interaction.Factory
	events   adapters.Events

	session *discordgo.Session
	ready   atomic.Bool
	rootCtx context.Context

	mu          sync.Mutex
	dispatchers map[string]*dispatch.Dispatcher
	active      map[activeKey]*interaction.Interaction
	// pending maps interaction ids to the deferred slash-command exchanges
	// their replies must edit
	pending map[string]*discordgo.Interaction

	statusMu        sync.Mutex
	statusMessageID string
	statusText      string
}

func NewAdapter(cfg config.DiscordConfig, reg *registry.CommandRegistry) (*Adapter, error) {
	session, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentGuildMessages |
		discordgo.IntentDirectMessages |
		discordgo.IntentMessageContent

	a := &Adapter{
		cfg:         cfg,
		registry:    reg,
		session:     session,
		dispatchers: make(map[string]*dispatch.Dispatcher),
		active:      make(map[activeKey]*interaction.Interaction),
		pending:     make(map[string]*discordgo.Interaction),
	}
	a.factory = interaction.NewFactory(reg, a)
	return a, nil
}

func (a *Adapter) Platform() string { return PlatformName }

func (a *Adapter) IsReady() bool { return a.ready.Load() }

func (a *Adapter) Bind(events adapters.Events) { a.events = events }

// Start opens the gateway session; the ready event fires the one-time ready
// notification once Discord confirms the connection.
func (a *Adapter) Start(ctx context.Context) error {
	a.rootCtx = ctx

	a.session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		if a.ready.Swap(true) {
			return
		}
		log.Printf("✅ Discord adapter ready as %s", r.User.Username)
		if a.events.OnReady != nil {
			a.events.OnReady(a)
		}
	})
	a.session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		a.handleMessage(ctx, m)
	})
	a.session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		a.handleSlashCommand(ctx, i)
	})

	if err := a.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord gateway: %w", err)
	}
	return nil
}

func (a *Adapter) Stop() {
	a.ready.Store(false)
	a.mu.Lock()
	for _, d := range a.dispatchers {
		d.Stop()
	}
	a.mu.Unlock()
	if err := a.session.Close(); err != nil {
		log.Printf("⚠️ Failed to close discord session: %v", err)
	}
}

// handleMessage processes free-text messages. Outside DMs the bot only reacts
// when mentioned; bot authors are always ignored.
func (a *Adapter) handleMessage(ctx context.Context, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || strings.TrimSpace(m.Content) == "" {
		return
	}
	if m.GuildID != "" && !a.mentionsSelf(m.Mentions) {
		return
	}

	src := a.messageSource(m)
	key := activeKey{accountID: src.Account.ID, destinationID: src.DestinationID}

	// route the text to a pending exchange before classifying it as new
	if existing := a.activeInteraction(key); existing != nil {
		if existing.Processing() {
			return
		}
		if existing.Menu() != nil {
			existing.HandleMenuResponse(ctx, src.Text)
			return
		}
		if existing.Kind == interaction.KindCommand && !existing.Ready() {
			if existing.ReadAnswer(ctx, src.Text) {
				if existing.Ready() && a.events.OnCommand != nil {
					a.events.OnCommand(existing)
				}
				return
			}
		}
	}

	ia := a.factory.NewText(src)
	a.setActive(key, ia)
	a.enqueueTyping(m.ChannelID)

	if a.events.OnText != nil {
		a.events.OnText(ia)
	}
}

// handleSlashCommand processes the fixed command surface. Discord enforces
// required options at invocation, so these interactions are normally ready
// immediately; an unregistered name is surfaced back to the caller.
func (a *Adapter) handleSlashCommand(ctx context.Context, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	data := i.ApplicationCommandData()
	args := make(map[string]string)
	for _, opt := range data.Options {
		if opt.Type == discordgo.ApplicationCommandOptionString {
			args[strings.ToLower(opt.Name)] = opt.StringValue()
		}
	}

	src := a.commandSource(i)
	ia, err := a.factory.FromCommand(src, data.Name, args)
	if err != nil {
		if errors.Is(err, core.ErrUnknownCommand) {
			a.respondEphemeral(i.Interaction, fmt.Sprintf("I don't know the command /%s", data.Name))
		}
		return
	}

	// defer the response so the reply can arrive whenever the host is done
	ephemeral := i.GuildID != ""
	response := &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}
	if ephemeral {
		response.Data = &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral}
	}
	if err := a.session.InteractionRespond(i.Interaction, response); err != nil {
		log.Printf("❌ Failed to defer discord command response: %v", err)
		return
	}

	a.mu.Lock()
	a.pending[ia.ID] = i.Interaction
	a.mu.Unlock()

	key := activeKey{accountID: src.Account.ID, destinationID: src.DestinationID}
	if existing := a.activeInteraction(key); existing != nil && !existing.Ready() {
		existing.End()
	}
	a.setActive(key, ia)

	if ia.Command.AdminOnly && !a.isAdmin(src.Account.Handle) {
		a.SendReply(ctx, ia, "Sorry, only specified admins can use that command")
		ia.End()
		return
	}

	ia.Prepare(ctx)
	if ia.Ready() && a.events.OnCommand != nil {
		a.events.OnCommand(ia)
	}
}

func (a *Adapter) mentionsSelf(mentions []*discordgo.User) bool {
	self := a.session.State.User
	if self == nil {
		return false
	}
	for _, u := range mentions {
		if u.ID == self.ID {
			return true
		}
	}
	return false
}

func (a *Adapter) messageSource(m *discordgo.MessageCreate) interaction.Source {
	return interaction.Source{
		Platform:      PlatformName,
		MessageID:     m.ID,
		DestinationID: m.ChannelID,
		Text:          stripMentions(m.Content),
		Account:       accountFor(m.Author),
	}
}

func (a *Adapter) commandSource(i *discordgo.InteractionCreate) interaction.Source {
	user := i.User
	if user == nil && i.Member != nil {
		user = i.Member.User
	}
	return interaction.Source{
		Platform:      PlatformName,
		MessageID:     i.ID,
		DestinationID: i.ChannelID,
		Account:       accountFor(user),
	}
}

func accountFor(u *discordgo.User) models.Account {
	name := u.GlobalName
	if name == "" {
		name = u.Username
	}
	return models.Account{
		Platform:    PlatformName,
		ID:          u.ID,
		DisplayName: name,
		Handle:      "@" + u.Username,
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

// dispatcher returns the channel's outbound queue, creating it lazily
func (a *Adapter) dispatcher(channelID string) *dispatch.Dispatcher {
	a.mu.Lock()
	defer a.mu.Unlock()
	d, ok := a.dispatchers[channelID]
	if !ok {
		d = dispatch.NewDispatcher(dispatch.DiscordChannelLimit)
		a.dispatchers[channelID] = d
	}
	return d
}

// mentionPattern matches <@USER_ID> and <@!USER_ID> markup
var mentionPattern = regexp.MustCompile(`<@!?[0-9]+>`)

// stripMentions removes mention markup from message text
func stripMentions(text string) string {
	return strings.TrimSpace(mentionPattern.ReplaceAllString(text, ""))
}

// truncate shortens text to what Discord accepts in one message
func truncate(text string) string {
	if len(text) > maxTextLength-5 {
		return text[:maxTextLength-5] + "..."
	}
	return text
}
