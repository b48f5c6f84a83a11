// Package slack adapts the canonical interaction model to Slack over socket
// mode. Slash commands are a fixed surface configured in the app manifest, so
// they cannot be pushed at runtime; message and mention events carry free text.
package slack

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"botmux/adapters"
	"botmux/config"
	"botmux/dispatch"
	"botmux/interaction"
	"botmux/models"
	"botmux/registry"
)

// PlatformName identifies this adapter in canonical sources and accounts
const PlatformName = "slack"

const maxTextLength = 4000

type activeKey struct {
	accountID     string
	destinationID string
}

// Adapter is the Slack platform adapter
type Adapter struct {
	cfg      config.SlackConfig
	registry *registry.CommandRegistry
	factory  *interaction.Factory
	events   adapters.Events

	api     *slack.Client
	socket  *socketmode.Client
	ready   atomic.Bool
	rootCtx context.Context

	mu          sync.Mutex
	dispatchers map[string]*dispatch.Dispatcher
	active      map[activeKey]*interaction.Interaction
	accounts    map[string]models.Account // user id -> last observed account

	statusMu        sync.Mutex
	statusMessageTS string
	statusText      string
}

func NewAdapter(cfg config.SlackConfig, reg *registry.CommandRegistry) (*Adapter, error) {
	if cfg.BotToken == "" || cfg.AppToken == "" {
		return nil, fmt.Errorf("slack adapter needs both a bot token and an app-level token")
	}

	api := slack.New(cfg.BotToken, slack.OptionAppLevelToken(cfg.AppToken))
	a := &Adapter{
		cfg:         cfg,
		registry:    reg,
		api:         api,
		socket:      socketmode.New(api),
		dispatchers: make(map[string]*dispatch.Dispatcher),
		active:      make(map[activeKey]*interaction.Interaction),
		accounts:    make(map[string]models.Account),
	}
	a.factory = interaction.NewFactory(reg, a)
	return a, nil
}

func (a *Adapter) Platform() string { return PlatformName }

func (a *Adapter) IsReady() bool { return a.ready.Load() }

func (a *Adapter) Bind(events adapters.Events) { a.events = events }

// Start runs the socket-mode connection and the event pump
func (a *Adapter) Start(ctx context.Context) error {
	a.rootCtx = ctx

	go func() {
		if err := a.socket.RunContext(ctx); err != nil && ctx.Err() == nil {
			log.Printf("❌ Slack socket mode stopped: %v", err)
		}
	}()
	go a.listen(ctx)
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

func (a *Adapter) listen(ctx context.Context) {
	for evt := range a.socket.Events {
		switch evt.Type {
		case socketmode.EventTypeConnected:
			if !a.ready.Swap(true) {
				log.Printf("✅ Slack adapter connected")
				if a.events.OnReady != nil {
					a.events.OnReady(a)
				}
			}

		case socketmode.EventTypeSlashCommand:
			cmd, ok := evt.Data.(slack.SlashCommand)
			if !ok {
				continue
			}
			a.socket.Ack(*evt.Request)
			a.handleSlashCommand(ctx, cmd)

		case socketmode.EventTypeEventsAPI:
			apiEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
			if !ok {
				continue
			}
			a.socket.Ack(*evt.Request)
			a.handleEventsAPI(ctx, apiEvent)
		}
	}
}

// handleSlashCommand treats Slack's fixed command surface: a name missing from
// the registry is an error surfaced to the caller. Any trailing text fills the
// single required field, as with other slash-syntax invocations.
func (a *Adapter) handleSlashCommand(ctx context.Context, cmd slack.SlashCommand) {
	name := strings.ToLower(strings.TrimPrefix(cmd.Command, "/"))
	src := interaction.Source{
		Platform:      PlatformName,
		DestinationID: cmd.ChannelID,
		Text:          strings.TrimSpace(cmd.Command + " " + cmd.Text),
		Account:       a.accountFor(ctx, cmd.UserID, cmd.UserName),
	}

	if !a.registry.Has(name) {
		ia := a.factory.NewText(src)
		a.SendReply(ctx, ia, fmt.Sprintf("I don't know the command /%s", name))
		return
	}

	synthetic := src
	synthetic.Text = strings.TrimSpace("/" + name + " " + cmd.Text)
	ia := a.factory.FromMessage(synthetic)
	if ia == nil || ia.Kind != interaction.KindCommand {
		return
	}

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

func (a *Adapter) handleEventsAPI(ctx context.Context, apiEvent slackevents.EventsAPIEvent) {
	if apiEvent.Type != slackevents.CallbackEvent {
		return
	}

	switch ev := apiEvent.InnerEvent.Data.(type) {
	case *slackevents.MessageEvent:
		// direct messages only; channel traffic comes in as app mentions
		if ev.ChannelType != "im" || ev.BotID != "" || ev.User == "" {
			return
		}
		a.handleText(ctx, ev.User, ev.Channel, ev.TimeStamp, ev.Text)

	case *slackevents.AppMentionEvent:
		if ev.User == "" {
			return
		}
		a.handleText(ctx, ev.User, ev.Channel, ev.TimeStamp, stripMentions(ev.Text))
	}
}

func (a *Adapter) handleText(ctx context.Context, userID, channelID, ts, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	src := interaction.Source{
		Platform:      PlatformName,
		MessageID:     ts,
		DestinationID: channelID,
		Text:          text,
		Account:       a.accountFor(ctx, userID, ""),
	}
	key := activeKey{accountID: src.Account.ID, destinationID: src.DestinationID}

	if existing := a.activeInteraction(key); existing != nil {
		if existing.Processing() {
			return
		}
		if existing.Menu() != nil {
			existing.HandleMenuResponse(ctx, text)
			return
		}
		if existing.Kind == interaction.KindCommand && !existing.Ready() {
			if existing.ReadAnswer(ctx, text) {
				if existing.Ready() && a.events.OnCommand != nil {
					a.events.OnCommand(existing)
				}
				return
			}
		}
	}

	ia := a.factory.NewText(src)
	a.setActive(key, ia)
	if a.events.OnText != nil {
		a.events.OnText(ia)
	}
}

// accountFor projects a Slack user into a canonical account, caching profile
// lookups per user id.
func (a *Adapter) accountFor(ctx context.Context, userID, fallbackName string) models.Account {
	a.mu.Lock()
	cached, ok := a.accounts[userID]
	a.mu.Unlock()
	if ok {
		return cached
	}

	account := models.Account{
		Platform:    PlatformName,
		ID:          userID,
		DisplayName: fallbackName,
		Handle:      "@" + fallbackName,
	}
	if user, err := a.api.GetUserInfoContext(ctx, userID); err == nil {
		name := user.Profile.DisplayName
		if name == "" {
			name = user.Profile.RealName
		}
		account.DisplayName = name
		account.Handle = "@" + user.Name
	}

	a.mu.Lock()
	a.accounts[userID] = account
	a.mu.Unlock()
	return account
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
		d = dispatch.NewDispatcher(dispatch.SlackChannelLimit)
		a.dispatchers[channelID] = d
	}
	return d
}

// stripMentions removes <@USERID> markup from event text
func stripMentions(text string) string {
	for {
		start := strings.Index(text, "<@")
		if start < 0 {
			break
		}
		end := strings.Index(text[start:], ">")
		if end < 0 {
			break
		}
		text = text[:start] + text[start+end+1:]
	}
	return strings.TrimSpace(text)
}

// truncate shortens text to a safe single-message length
func truncate(text string) string {
	if len(text) > maxTextLength-5 {
		return text[:maxTextLength-5] + "..."
	}
	return text
}
