package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"botmux/adapters"
	"botmux/interaction"
	"botmux/models"
	"botmux/registry"
	"botmux/store"
)

// recordingReplier stands in for an adapter on the outbound side of an
// interaction.
type recordingReplier struct {
	mu        sync.Mutex
	replies   []string
	finalized int
}

func (r *recordingReplier) SendReply(ctx context.Context, ia *interaction.Interaction, text string) {
	r.mu.Lock()
	r.replies = append(r.replies, text)
	r.mu.Unlock()
	ia.SetProcessing(false)
}

func (r *recordingReplier) SendMenuReply(ctx context.Context, ia *interaction.Interaction, text string) {
	r.SendReply(ctx, ia, text)
}

func (r *recordingReplier) Finalize(ia *interaction.Interaction) {
	r.mu.Lock()
	r.finalized++
	r.mu.Unlock()
}

func mustCommand(t *testing.T, name, description string, fields ...models.Field) *models.Command {
	t.Helper()
	cmd, err := models.NewCommand(name, description, false, fields...)
	require.NoError(t, err)
	return cmd
}

func sourceFor(accountID, displayName, handle string) interaction.Source {
	return interaction.Source{
		Platform:      "telegram",
		MessageID:     "100",
		DestinationID: "-200",
		Account: models.Account{
			Platform:    "telegram",
			ID:          accountID,
			DisplayName: displayName,
			Handle:      handle,
		},
	}
}

func setupOrchestratorTest(t *testing.T, commands ...*models.Command) (*Orchestrator, *interaction.Factory, *recordingReplier) {
	t.Helper()
	reg := registry.NewCommandRegistry()
	for _, cmd := range commands {
		require.NoError(t, reg.Register(cmd))
	}

	o := New(reg, store.NewMemoryUserStore())
	o.ctx = context.Background()

	replier := &recordingReplier{}
	return o, interaction.NewFactory(reg, replier), replier
}

func TestOrchestrator_SameAccountResolvesToSameUser(t *testing.T) {
	o, factory, _ := setupOrchestratorTest(t)

	var seen []*models.UnifiedUser
	o.RegisterTextHandler(func(ctx context.Context, ia *interaction.Interaction) {
		seen = append(seen, ia.User())
	})

	first := factory.NewText(sourceFor("42", "Ada", "@ada"))
	second := factory.NewText(sourceFor("42", "Ada", "@ada"))

	o.handleText(first)
	o.handleText(second)

	require.Len(t, seen, 2)
	require.NotNil(t, seen[0])
	assert.Same(t, seen[0], seen[1])
	assert.Len(t, o.Users(), 1)
}

func TestOrchestrator_NameChangeTriggersExactlyOneUserUpdate(t *testing.T) {
	o, factory, _ := setupOrchestratorTest(t)

	var updates []*models.UnifiedUser
	o.RegisterUserUpdateHandler(func(user *models.UnifiedUser) {
		updates = append(updates, user)
	})

	o.handleText(factory.NewText(sourceFor("42", "Ada", "@ada")))
	assert.Empty(t, updates, "first sight of an account is a creation, not an update")

	o.handleText(factory.NewText(sourceFor("42", "Countess Ada", "@ada")))
	require.Len(t, updates, 1)
	assert.Equal(t, "Countess Ada", updates[0].DisplayName())

	// unchanged info must not fire again
	o.handleText(factory.NewText(sourceFor("42", "Countess Ada", "@ada")))
	assert.Len(t, updates, 1)
}

func TestOrchestrator_DistinctAccountsGetDistinctUsers(t *testing.T) {
	o, factory, _ := setupOrchestratorTest(t)
	o.RegisterTextHandler(func(ctx context.Context, ia *interaction.Interaction) {})

	o.handleText(factory.NewText(sourceFor("42", "Ada", "@ada")))
	o.handleText(factory.NewText(sourceFor("43", "Grace", "@grace")))

	users := o.Users()
	require.Len(t, users, 2)
	assert.NotEqual(t, users[0].ID, users[1].ID)
}

func TestOrchestrator_PingCommandScenario(t *testing.T) {
	ping := mustCommand(t, "ping", "check whether the bot is alive")
	o, factory, replier := setupOrchestratorTest(t, ping)
	ctx := context.Background()

	var handled int
	o.RegisterCommandHandler(func(ctx context.Context, ia *interaction.Interaction) {
		handled++
		require.NoError(t, ia.Reply(ctx, "pong"))
		ia.End()
	})

	src := sourceFor("42", "Ada", "@ada")
	src.Text = "/ping"
	ia := factory.FromMessage(src)
	require.NotNil(t, ia)
	require.True(t, ia.Ready())
	ia.Prepare(ctx)

	o.handleCommand(ia)

	assert.Equal(t, 1, handled)
	assert.Equal(t, []string{"pong"}, replier.replies)
	assert.True(t, ia.Ended())
	require.NotNil(t, ia.User())
	assert.Equal(t, "Ada", ia.User().DisplayName())
}

func TestOrchestrator_GreetCommandScenario(t *testing.T) {
	greet := mustCommand(t, "greet", "get a personal greeting",
		models.Field{Name: "name", Description: "your name", Required: true},
	)
	o, factory, replier := setupOrchestratorTest(t, greet)

	o.RegisterCommandHandler(func(ctx context.Context, ia *interaction.Interaction) {
		require.NoError(t, ia.Reply(ctx, fmt.Sprintf("Hello, %s!", ia.Field("name"))))
		ia.End()
	})

	src := sourceFor("42", "Ada", "@ada")
	ia, err := factory.FromCommand(src, "greet", map[string]string{"name": "Ada"})
	require.NoError(t, err)
	require.True(t, ia.Ready())

	o.handleCommand(ia)

	assert.Equal(t, []string{"Hello, Ada!"}, replier.replies)
}

func TestOrchestrator_RecoversFromHandlerPanic(t *testing.T) {
	o, factory, _ := setupOrchestratorTest(t)

	o.RegisterTextHandler(func(ctx context.Context, ia *interaction.Interaction) {
		panic("handler bug")
	})

	assert.NotPanics(t, func() {
		o.handleText(factory.NewText(sourceFor("42", "Ada", "@ada")))
	})
	// the panic must not poison identity tracking
	assert.Len(t, o.Users(), 1)
}

func TestOrchestrator_SendToUnknownUserGoesToLogs(t *testing.T) {
	adapter := &adapters.MockAdapter{}
	adapter.On("SendLog", "Message to unknown user: the show starts at 8").Return()

	o := New(registry.NewCommandRegistry(), nil, adapter)
	require.NoError(t, o.SendToUser(nil, "the show starts at 8"))

	adapter.AssertExpectations(t)
}

func TestOrchestrator_SendToUserUsesPrimaryAccountPlatform(t *testing.T) {
	telegramAdapter := &adapters.MockAdapter{}
	telegramAdapter.On("Platform").Return("telegram")
	discordAdapter := &adapters.MockAdapter{}
	discordAdapter.On("Platform").Return("discord")

	account := models.Account{Platform: "discord", ID: "77", DisplayName: "Grace", Handle: "@grace"}
	user := models.NewUnifiedUser(account)
	discordAdapter.On("SendToAccount", account, "your request is done").Return(nil)

	o := New(registry.NewCommandRegistry(), nil, telegramAdapter, discordAdapter)
	require.NoError(t, o.SendToUser(user, "your request is done"))

	discordAdapter.AssertExpectations(t)
	telegramAdapter.AssertNotCalled(t, "SendToAccount", mock.Anything, mock.Anything)
}

func TestOrchestrator_StatusFanOut(t *testing.T) {
	first := &adapters.MockAdapter{}
	second := &adapters.MockAdapter{}
	for _, a := range []*adapters.MockAdapter{first, second} {
		a.On("CreateOrUpdateStatus", "Online").Return()
		a.On("SendOneTimeStatus", "Brief interruption", true).Return()
		a.On("ReplaceStatus", "Show over").Return()
		a.On("SendLog", "something happened").Return()
	}

	o := New(registry.NewCommandRegistry(), nil, first, second)
	o.SendStatusUpdate("Online")
	o.SendOneTimeStatusUpdate("Brief interruption", true)
	o.ReplaceStatusMessage("Show over")
	o.LogAll("something happened")

	first.AssertExpectations(t)
	second.AssertExpectations(t)
}

func TestOrchestrator_StartBindsAndStartsAdapters(t *testing.T) {
	adapter := &adapters.MockAdapter{}
	adapter.On("Bind", mock.AnythingOfType("adapters.Events")).Return()
	adapter.On("Start", mock.Anything).Return(nil)
	adapter.On("Stop").Return()

	o := New(registry.NewCommandRegistry(), nil, adapter)
	require.NoError(t, o.Start(context.Background()))
	o.Stop()

	adapter.AssertExpectations(t)
}
