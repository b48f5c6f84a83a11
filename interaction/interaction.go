// Package interaction holds the canonical state machine for one user exchange:
// classification of inbound events into command or text interactions, required
// field collection over follow-up prompts, and menu resolution.
package interaction

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"

	"botmux/models"
)

// Kind tags the interaction variant. There are exactly two: a recognized
// command invocation or a free-text message.
type Kind int

const (
	KindText Kind = iota
	KindCommand
)

// Replier is the adapter-side capability an interaction uses to talk back to
// its destination. All sends are enqueued on the destination's dispatcher and
// complete asynchronously.
type Replier interface {
	// SendReply sends or edits the bot's reply message for this interaction
	SendReply(ctx context.Context, ia *Interaction, text string)
	// SendMenuReply sends a reply carrying the interaction's attached menu
	SendMenuReply(ctx context.Context, ia *Interaction, text string)
	// Finalize releases ephemeral affordances and drops the interaction from
	// the adapter's active set
	Finalize(ia *Interaction)
}

// apologyText is sent when a menu answer cannot be resolved to an option
const apologyText = "Well I wasn't expecting that"

// Interaction is one logical exchange between a user and the bot, spanning one
// or more physical messages. It is created on an inbound platform event,
// mutated by field answers or menu choices, and destroyed by End.
type Interaction struct {
	ID      string
	Kind    Kind
	Source  Source
	Command *models.Command // set only for KindCommand

	replier Replier

	mu           sync.Mutex
	user         *models.UnifiedUser
	fields       map[string]string
	menu         *Menu
	waitingField string
	processing   bool
	ready        bool
	ended        bool
	botMessageID string
}

// Text returns the raw text of the originating message
func (ia *Interaction) Text() string { return ia.Source.Text }

// User returns the unified user assigned by the orchestrator, if any
func (ia *Interaction) User() *models.UnifiedUser {
	ia.mu.Lock()
	defer ia.mu.Unlock()
	return ia.user
}

// SetUser assigns the unified user resolved for the originating account
func (ia *Interaction) SetUser(user *models.UnifiedUser) {
	ia.mu.Lock()
	defer ia.mu.Unlock()
	ia.user = user
}

// Ready reports whether every required field has a recorded value
func (ia *Interaction) Ready() bool {
	ia.mu.Lock()
	defer ia.mu.Unlock()
	return ia.ready
}

// Ended reports whether End has been called
func (ia *Interaction) Ended() bool {
	ia.mu.Lock()
	defer ia.mu.Unlock()
	return ia.ended
}

// Processing reports whether a reply to this interaction is still in flight.
// Inbound messages that arrive while processing are ignored to avoid racing
// the pending reply.
func (ia *Interaction) Processing() bool {
	ia.mu.Lock()
	defer ia.mu.Unlock()
	return ia.processing
}

// SetProcessing is called by the adapter when a reply send completes
func (ia *Interaction) SetProcessing(processing bool) {
	ia.mu.Lock()
	defer ia.mu.Unlock()
	ia.processing = processing
}

// Menu returns the attached reply menu, or nil if none is pending
func (ia *Interaction) Menu() *Menu {
	ia.mu.Lock()
	defer ia.mu.Unlock()
	return ia.menu
}

// ClearMenu detaches the menu once it has been resolved or replaced
func (ia *Interaction) ClearMenu() {
	ia.mu.Lock()
	defer ia.mu.Unlock()
	ia.menu = nil
}

// BotMessageID returns the platform id of the bot's last reply message
func (ia *Interaction) BotMessageID() string {
	ia.mu.Lock()
	defer ia.mu.Unlock()
	return ia.botMessageID
}

// SetBotMessageID records the platform id of the reply the adapter just sent
func (ia *Interaction) SetBotMessageID(id string) {
	ia.mu.Lock()
	defer ia.mu.Unlock()
	ia.botMessageID = id
}

// Fields returns a copy of the collected field values
func (ia *Interaction) Fields() map[string]string {
	ia.mu.Lock()
	defer ia.mu.Unlock()
	fields := make(map[string]string, len(ia.fields))
	for k, v := range ia.fields {
		fields[k] = v
	}
	return fields
}

// Field returns a single collected field value
func (ia *Interaction) Field(name string) string {
	ia.mu.Lock()
	defer ia.mu.Unlock()
	return ia.fields[name]
}

// Prepare completes construction of a command interaction: if required fields
// are still missing it sends the follow-up prompt for the next one. Text
// interactions and ready commands need no preparation.
func (ia *Interaction) Prepare(ctx context.Context) {
	ia.mu.Lock()
	if ia.Kind != KindCommand || ia.ready || ia.ended {
		ia.mu.Unlock()
		return
	}
	prompt := ia.promptLocked()
	ia.processing = false
	ia.mu.Unlock()

	ia.replier.SendReply(ctx, ia, prompt)
}

// ReadAnswer records a plain-text message as the answer to the outstanding
// field. It returns false when the message was ignored: no field is pending, a
// reply is still in flight, or the interaction has ended. When recording leaves
// further required fields unfilled the next follow-up prompt is sent before
// returning.
func (ia *Interaction) ReadAnswer(ctx context.Context, text string) bool {
	ia.mu.Lock()
	if ia.ended || ia.processing || ia.waitingField == "" {
		ia.mu.Unlock()
		return false
	}

	ia.fields[ia.waitingField] = text
	ia.checkReadyLocked()

	var prompt string
	if !ia.ready {
		prompt = ia.promptLocked()
	}
	ia.mu.Unlock()

	if prompt != "" {
		ia.replier.SendReply(ctx, ia, prompt)
	}
	return true
}

// Reply sends text back to the interaction's destination. If the bot already
// replied once the existing message is edited in place.
func (ia *Interaction) Reply(ctx context.Context, text string) error {
	ia.mu.Lock()
	if ia.ended {
		ia.mu.Unlock()
		return fmt.Errorf("interaction %s has ended", ia.ID)
	}
	ia.processing = false
	ia.mu.Unlock()

	ia.replier.SendReply(ctx, ia, text)
	return nil
}

// ReplyWithOptions attaches a menu and sends it along with introductory text.
// The next message from the same user in the same destination is treated as
// the menu answer.
func (ia *Interaction) ReplyWithOptions(ctx context.Context, menu *Menu, text string) error {
	ia.mu.Lock()
	if ia.ended {
		ia.mu.Unlock()
		return fmt.Errorf("interaction %s has ended", ia.ID)
	}
	ia.menu = menu
	ia.processing = false
	ia.mu.Unlock()

	ia.replier.SendMenuReply(ctx, ia, text)
	return nil
}

// HandleMenuResponse resolves a user message against the attached menu. An
// unparsable or out-of-range answer ends the interaction with an apology
// instead of leaving it pending indefinitely.
func (ia *Interaction) HandleMenuResponse(ctx context.Context, text string) {
	menu := ia.Menu()
	if menu == nil {
		return
	}

	text = strings.TrimSpace(text)
	if menu.Numbered {
		index, err := strconv.Atoi(text)
		if err != nil {
			ia.apologize(ctx)
			return
		}
		if err := ia.ChooseOptionIndex(ctx, index); err != nil {
			ia.apologize(ctx)
		}
		return
	}

	if err := ia.ChooseOptionKey(ctx, text); err != nil {
		ia.apologize(ctx)
	}
}

// ChooseOptionIndex resolves a 1-indexed menu position to its key and
// dispatches the menu's callback.
func (ia *Interaction) ChooseOptionIndex(ctx context.Context, index int) error {
	menu := ia.Menu()
	if menu == nil {
		return fmt.Errorf("interaction %s has no menu attached", ia.ID)
	}
	key, err := menu.KeyAt(index)
	if err != nil {
		return err
	}
	return ia.ChooseOptionKey(ctx, key)
}

// ChooseOptionKey dispatches the menu's callback with the chosen key
func (ia *Interaction) ChooseOptionKey(ctx context.Context, key string) error {
	menu := ia.Menu()
	if menu == nil {
		return fmt.Errorf("interaction %s has no menu attached", ia.ID)
	}
	if !menu.HasKey(key) {
		return fmt.Errorf("menu %s has no option %q", menu.Name, key)
	}
	if menu.OnChoose != nil {
		ia.dispatchChoice(ctx, menu, key)
	}
	return nil
}

// dispatchChoice invokes the host's menu callback. A panicking callback must
// not take down the adapter's inbound loop, so it is contained here.
func (ia *Interaction) dispatchChoice(ctx context.Context, menu *Menu, key string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ Recovered from panic in menu callback: %v", r)
		}
	}()
	menu.OnChoose(ctx, ia, key)
}

// End resolves the interaction: ephemeral affordances are released and the
// adapter forgets it. Safe to call more than once.
func (ia *Interaction) End() {
	ia.mu.Lock()
	if ia.ended {
		ia.mu.Unlock()
		return
	}
	ia.ended = true
	ia.mu.Unlock()

	ia.replier.Finalize(ia)
}

func (ia *Interaction) apologize(ctx context.Context) {
	ia.replier.SendReply(ctx, ia, apologyText)
	ia.End()
}

// checkReadyLocked recomputes readiness and the next outstanding field.
// Caller must hold ia.mu.
func (ia *Interaction) checkReadyLocked() {
	if ia.Command == nil {
		ia.ready = true
		return
	}
	for _, field := range ia.Command.Fields {
		if !field.Required {
			continue
		}
		if _, ok := ia.fields[field.Name]; !ok {
			ia.waitingField = field.Name
			ia.ready = false
			return
		}
	}
	ia.waitingField = ""
	ia.ready = true
}

// promptLocked builds the follow-up question for the outstanding field.
// Caller must hold ia.mu.
func (ia *Interaction) promptLocked() string {
	label := ia.waitingField
	for _, field := range ia.Command.Fields {
		if field.Name == ia.waitingField && field.Description != "" {
			label = field.Description
			break
		}
	}
	return fmt.Sprintf("What is %s?", label)
}
