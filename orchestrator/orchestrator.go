// Package orchestrator coordinates the configured platform adapters. It owns
// the shared command registry, reconciles inbound accounts into unified users,
// and fans command/text/ready events from every adapter into the handlers the
// host application registered.
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/samber/mo"

	"botmux/adapters"
	"botmux/interaction"
	"botmux/models"
	"botmux/registry"
	"botmux/store"
)

type CommandHandler func(ctx context.Context, ia *interaction.Interaction)
type TextHandler func(ctx context.Context, ia *interaction.Interaction)
type ReadyHandler func(adapter adapters.Adapter)
type UserUpdateHandler func(user *models.UnifiedUser)

type Orchestrator struct {
	registry *registry.CommandRegistry
	adapters []adapters.Adapter
	store    store.UserStore

	mu    sync.Mutex
	users []*models.UnifiedUser

	onCommand    CommandHandler
	onText       TextHandler
	onReady      ReadyHandler
	onUserUpdate UserUpdateHandler

	ctx context.Context
}

func New(reg *registry.CommandRegistry, userStore store.UserStore, adapterList ...adapters.Adapter) *Orchestrator {
	if userStore == nil {
		userStore = store.NewMemoryUserStore()
	}
	return &Orchestrator{
		registry: reg,
		adapters: adapterList,
		store:    userStore,
	}
}

// RegisterCommand adds a command to the shared registry. Validation failures
// and duplicates affect only that registration.
func (o *Orchestrator) RegisterCommand(cmd *models.Command) error {
	return o.registry.Register(cmd)
}

func (o *Orchestrator) RegisterCommandHandler(handler CommandHandler) {
	o.onCommand = handler
}

func (o *Orchestrator) RegisterTextHandler(handler TextHandler) {
	o.onText = handler
}

func (o *Orchestrator) RegisterReadyHandler(handler ReadyHandler) {
	o.onReady = handler
}

func (o *Orchestrator) RegisterUserUpdateHandler(handler UserUpdateHandler) {
	o.onUserUpdate = handler
}

// Start loads persisted users, binds event routing and starts every adapter.
// Handlers must be registered before Start is called.
func (o *Orchestrator) Start(ctx context.Context) error {
	log.Printf("📋 Starting orchestrator with %d adapters", len(o.adapters))
	o.ctx = ctx

	users, err := o.store.LoadUsers(ctx)
	if err != nil {
		return fmt.Errorf("failed to load persisted users: %w", err)
	}
	o.mu.Lock()
	o.users = users
	o.mu.Unlock()
	if len(users) > 0 {
		log.Printf("📋 Loaded %d known users", len(users))
	}

	events := adapters.Events{
		OnReady:   o.handleReady,
		OnCommand: o.handleCommand,
		OnText:    o.handleText,
	}
	for _, a := range o.adapters {
		a.Bind(events)
	}
	for _, a := range o.adapters {
		if err := a.Start(ctx); err != nil {
			return fmt.Errorf("failed to start %s adapter: %w", a.Platform(), err)
		}
	}
	log.Printf("✅ Orchestrator started")
	return nil
}

func (o *Orchestrator) Stop() {
	for _, a := range o.adapters {
		a.Stop()
	}
	log.Printf("✅ Orchestrator stopped")
}

// handleReady runs when an adapter first connects: push the command surface,
// then notify the host.
func (o *Orchestrator) handleReady(a adapters.Adapter) {
	log.Printf("✅ %s adapter is ready", a.Platform())
	if err := a.PushCommands(o.ctx); err != nil {
		log.Printf("❌ Failed to push commands to %s: %v", a.Platform(), err)
	}
	if o.onReady != nil {
		o.dispatch(func() { o.onReady(a) })
	}
}

func (o *Orchestrator) handleCommand(ia *interaction.Interaction) {
	o.assignUser(ia)
	if o.onCommand == nil {
		return
	}
	o.dispatch(func() { o.onCommand(o.ctx, ia) })
}

func (o *Orchestrator) handleText(ia *interaction.Interaction) {
	o.assignUser(ia)
	if o.onText == nil {
		return
	}
	o.dispatch(func() { o.onText(o.ctx, ia) })
}

// dispatch shields the event pumps from host handler panics
func (o *Orchestrator) dispatch(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ Recovered from panic in event handler: %v", r)
		}
	}()
	fn()
}

// assignUser resolves the interaction's originating account to a unified user
// and attaches it to the interaction.
func (o *Orchestrator) assignUser(ia *interaction.Interaction) {
	user, updated := o.createOrFindUser(ia.Source.Account)
	ia.SetUser(user)

	if err := o.store.SaveUser(o.ctx, user); err != nil {
		log.Printf("⚠️ Failed to persist user %s: %v", user.ID, err)
	}
	if updated && o.onUserUpdate != nil {
		o.dispatch(func() { o.onUserUpdate(user) })
	}
}

// createOrFindUser returns the unified user owning the account, creating one
// on first sight. A known account whose observed name or handle diverges from
// the cached values is refreshed in place, and the second return reports that
// exactly one update notification is due.
func (o *Orchestrator) createOrFindUser(account models.Account) (*models.UnifiedUser, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	existing := o.userByAccount(account.Platform, account.ID)
	user, found := existing.Get()
	if !found {
		user = models.NewUnifiedUser(account)
		o.users = append(o.users, user)
		log.Printf("📋 New user %s (%s on %s)", user.DisplayName(), account.Handle, account.Platform)
		return user, false
	}

	previous, refreshed := user.RefreshAccount(account)
	if refreshed {
		log.Printf("🔍 User %s changed name to %s", previous.DisplayName, account.DisplayName)
	}
	return user, refreshed
}

// userByAccount looks up the unified user owning a platform account.
// Callers must hold o.mu.
func (o *Orchestrator) userByAccount(platform, accountID string) mo.Option[*models.UnifiedUser] {
	for _, user := range o.users {
		if user.OwnsAccount(platform, accountID) {
			return mo.Some(user)
		}
	}
	return mo.None[*models.UnifiedUser]()
}

// Users returns a snapshot of all known unified users
func (o *Orchestrator) Users() []*models.UnifiedUser {
	o.mu.Lock()
	defer o.mu.Unlock()
	snapshot := make([]*models.UnifiedUser, len(o.users))
	copy(snapshot, o.users)
	return snapshot
}

// LogAll posts a line to every adapter's log destination
func (o *Orchestrator) LogAll(text string) {
	for _, a := range o.adapters {
		a.SendLog(text)
	}
}

// SendStatusUpdate creates or edits the pinned-style status message on every
// adapter's status destination.
func (o *Orchestrator) SendStatusUpdate(text string) {
	for _, a := range o.adapters {
		a.CreateOrUpdateStatus(text)
	}
}

// SendOneTimeStatusUpdate posts a standalone message to every status
// destination without touching the live status message.
func (o *Orchestrator) SendOneTimeStatusUpdate(text string, notify bool) {
	for _, a := range o.adapters {
		a.SendOneTimeStatus(text, notify)
	}
}

// ReplaceStatusMessage retires the live status message and reposts it below a
// one-time announcement, keeping the status text at the bottom of the channel.
func (o *Orchestrator) ReplaceStatusMessage(text string) {
	for _, a := range o.adapters {
		a.ReplaceStatus(text)
	}
}

// SendToUser messages the user's primary account directly. A nil user has no
// deliverable account, so the text lands in the log destinations instead.
func (o *Orchestrator) SendToUser(user *models.UnifiedUser, text string) error {
	var primary models.Account
	var ok bool
	if user != nil {
		primary, ok = user.PrimaryAccount()
	}
	if !ok {
		o.LogAll("Message to unknown user: " + text)
		return nil
	}
	for _, a := range o.adapters {
		if a.Platform() != primary.Platform {
			continue
		}
		if err := a.SendToAccount(primary, text); err != nil {
			return fmt.Errorf("failed to send to user %s: %w", user.ID, err)
		}
		return nil
	}
	return fmt.Errorf("no adapter configured for platform %s", primary.Platform)
}
