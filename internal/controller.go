package internal

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ControllerState is the position of the active conversation in its lifecycle
type ControllerState int

const (
	StateUninitialized ControllerState = iota
	StateAwaitingPersonaChoice
	StateReady
	StateStreaming
)

func (s ControllerState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateAwaitingPersonaChoice:
		return "awaiting-persona"
	case StateReady:
		return "ready"
	case StateStreaming:
		return "streaming"
	default:
		return "unknown"
	}
}

// ControllerOption configures a Controller
type ControllerOption func(*Controller)

// WithClock sets the clock used for turn ids and timestamps
func WithClock(now func() time.Time) ControllerOption {
	return func(c *Controller) { c.now = now }
}

// WithTurnTimeout bounds each streamed response. Zero disables the bound.
func WithTurnTimeout(d time.Duration) ControllerOption {
	return func(c *Controller) { c.timeout = d }
}

// WithFragmentHook registers fn to run after each fragment is appended. It
// receives a copy of the growing response turn.
func WithFragmentHook(fn func(Turn)) ControllerOption {
	return func(c *Controller) { c.onFragment = fn }
}

// WithSessionIDs replaces the session id generator
func WithSessionIDs(next func() string) ControllerOption {
	return func(c *Controller) { c.newSessionID = next }
}

// Controller owns the single active conversation and is the only caller of
// the Gateway. Every mutation is persisted through the SessionStore.
type Controller struct {
	store   *SessionStore
	gateway Gateway

	now          func() time.Time
	timeout      time.Duration
	onFragment   func(Turn)
	newSessionID func() string
	ids          TurnIDs

	mu    sync.Mutex
	state ControllerState
	conv  *Conversation
	chat  ChatContext
}

// NewController creates a controller in the Uninitialized state
func NewController(store *SessionStore, gateway Gateway, opts ...ControllerOption) *Controller {
	c := &Controller{
		store:        store,
		gateway:      gateway,
		now:          time.Now,
		newSessionID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start leaves Uninitialized. A restored conversation makes the controller
// Ready with its gateway context re-opened; otherwise it awaits a persona.
// Calls after the first are no-ops.
func (c *Controller) Start(ctx context.Context, restored Restored) ControllerState {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateUninitialized {
		return c.state
	}

	if restored.Active == nil || len(restored.Active.Turns) == 0 {
		c.state = StateAwaitingPersonaChoice
		LogDebug("No active conversation to restore")
		return c.state
	}

	conv := restored.Active.Clone()
	conv.Streaming = false
	if conv.SessionID == "" {
		conv.SessionID = c.newSessionID()
	}
	c.observeTurns(conv.Turns)
	c.adopt(ctx, conv)
	LogInfo("Restored conversation %s (%s, %d turns)", conv.SessionID, conv.Persona, len(conv.Turns))
	return c.state
}

// ChoosePersona starts a fresh conversation for id, seeded with its greeting.
// While Ready it behaves as SwitchPersona.
func (c *Controller) ChoosePersona(ctx context.Context, id PersonaID) error {
	persona, ok := LookupPersona(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPersona, id)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateUninitialized:
		return ErrNotReady
	case StateStreaming:
		return ErrBusy
	case StateReady:
		return c.switchPersona(ctx, persona)
	}
	c.begin(ctx, persona)
	return nil
}

// SwitchPersona archives the current conversation when it holds more than the
// greeting and starts a fresh one for id. Switching to the current persona is
// a no-op.
func (c *Controller) SwitchPersona(ctx context.Context, id PersonaID) error {
	persona, ok := LookupPersona(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPersona, id)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateUninitialized:
		return ErrNotReady
	case StateStreaming:
		return ErrBusy
	case StateAwaitingPersonaChoice:
		c.begin(ctx, persona)
		return nil
	}
	return c.switchPersona(ctx, persona)
}

func (c *Controller) switchPersona(ctx context.Context, persona Persona) error {
	if c.conv.Persona == persona.ID {
		return nil
	}
	c.archiveCurrent()
	c.begin(ctx, persona)
	return nil
}

// ExitToNeutral archives the current conversation when it holds more than the
// greeting, clears the persisted active record and awaits a persona again.
func (c *Controller) ExitToNeutral() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateUninitialized:
		return ErrNotReady
	case StateStreaming:
		return ErrBusy
	case StateAwaitingPersonaChoice:
		return nil
	}

	c.archiveCurrent()
	if err := c.store.ClearActiveConversation(); err != nil {
		LogWarn("Active session not cleared: %v", err)
	}
	c.conv = nil
	c.chat = nil
	c.state = StateAwaitingPersonaChoice
	return nil
}

// RestoreArchivedSession makes an archived session the active conversation.
// The current conversation is archived first when it holds more than the
// greeting. Restoring the active session itself keeps the live turns.
func (c *Controller) RestoreArchivedSession(ctx context.Context, session ArchivedSession) error {
	if len(session.Turns) == 0 {
		return fmt.Errorf("%w: %s has no turns", ErrSessionNotFound, session.ID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateUninitialized:
		return ErrNotReady
	case StateStreaming:
		return ErrBusy
	case StateReady:
		if session.ID != "" && session.ID == c.conv.SessionID {
			LogDebug("Session %s is already active", session.ID)
			return nil
		}
		c.archiveCurrent()
	}

	persona := session.Persona
	if _, known := LookupPersona(persona); !known {
		persona = DefaultPersona
	}
	conv := &Conversation{
		Persona:   persona,
		SessionID: session.ID,
		Turns:     CloneTurns(session.Turns),
	}
	if conv.SessionID == "" {
		conv.SessionID = c.newSessionID()
	}
	c.observeTurns(conv.Turns)
	c.adopt(ctx, conv)
	LogInfo("Restored archived session %s", session.ID)
	return nil
}

// SubmitTurn appends the user's turn and streams the reply into a new model
// turn. Gateway failures never surface as errors: the reply is replaced by an
// error-flagged turn. It returns the final model-side turn.
func (c *Controller) SubmitTurn(ctx context.Context, text string, audio *Audio) (Turn, error) {
	text = strings.TrimSpace(text)
	if text == "" && audio == nil {
		return Turn{}, ErrEmptyTurn
	}

	c.mu.Lock()
	switch c.state {
	case StateStreaming:
		c.mu.Unlock()
		return Turn{}, ErrBusy
	case StateReady:
	default:
		c.mu.Unlock()
		return Turn{}, ErrNotReady
	}

	var reinitErr error
	if c.chat == nil {
		LogDebug("No gateway context, re-opening with %d turns", len(c.conv.Turns))
		c.chat, reinitErr = c.openContext(ctx, MustPersona(c.conv.Persona), c.conv.Turns)
	}

	now := c.now()
	c.conv.Turns = append(c.conv.Turns, Turn{
		ID:        c.ids.Next(now),
		Role:      RoleUser,
		Text:      text,
		Audio:     cloneAudio(audio),
		Timestamp: now,
	})

	if reinitErr != nil {
		LogWarn("Gateway context unavailable: %v", reinitErr)
		failure := c.errorTurn(reinitErr)
		c.conv.Turns = append(c.conv.Turns, failure)
		c.persist()
		c.mu.Unlock()
		return failure, nil
	}

	now = c.now()
	c.conv.Turns = append(c.conv.Turns, Turn{
		ID:        c.ids.Next(now),
		Role:      RoleModel,
		Timestamp: now,
	})
	idx := len(c.conv.Turns) - 1
	c.state = StateStreaming
	c.conv.Streaming = true
	c.persist()
	chat := c.chat
	c.mu.Unlock()

	sendCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	stream := chat.Send(sendCtx, text, audio)
	for {
		fragment, ok := stream.Next()
		if !ok {
			break
		}
		if fragment == "" {
			continue
		}
		c.mu.Lock()
		c.conv.Turns[idx].Text += fragment
		snapshot := c.conv.Turns[idx]
		c.persist()
		c.mu.Unlock()

		if c.onFragment != nil {
			c.onFragment(snapshot)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch stream.State() {
	case StreamCompleted:
		LogDebug("Response %s completed (%d bytes)", c.conv.Turns[idx].ID, len(c.conv.Turns[idx].Text))
	case StreamCancelled:
		LogWarn("Response %s cancelled", c.conv.Turns[idx].ID)
		c.conv.Turns[idx] = c.failureTurn(c.conv.Turns[idx].ID, MessageCancelled)
	default:
		err := stream.Err()
		LogWarn("Response %s failed: %v", c.conv.Turns[idx].ID, err)
		c.conv.Turns[idx] = c.failureTurn(c.conv.Turns[idx].ID, FailureMessage(err))
	}

	c.state = StateReady
	c.conv.Streaming = false
	c.persist()
	return c.conv.Turns[idx], nil
}

// Reflection asks the gateway for a short reflection for the current persona,
// or the preferred one when no conversation is active.
func (c *Controller) Reflection(ctx context.Context) string {
	c.mu.Lock()
	id := DefaultPersona
	if c.conv != nil {
		id = c.conv.Persona
	} else if preferred := c.store.PreferredPersona(); preferred != "" {
		id = preferred
	}
	c.mu.Unlock()

	if c.gateway == nil {
		return ReflectionErrorFallback
	}
	return c.gateway.GenerateReflection(ctx, MustPersona(id))
}

// State returns the current controller state
func (c *Controller) State() ControllerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Conversation returns a copy of the active conversation, nil when none
func (c *Controller) Conversation() *Conversation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conv.Clone()
}

// Persona returns the persona of the active conversation
func (c *Controller) Persona() (Persona, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conv == nil {
		return Persona{}, false
	}
	return MustPersona(c.conv.Persona), true
}

// begin replaces the conversation with a fresh one for persona. A gateway that
// cannot open leaves a single configuration error turn instead of the greeting.
func (c *Controller) begin(ctx context.Context, persona Persona) {
	if err := c.store.SetPreferredPersona(persona.ID); err != nil {
		LogWarn("Preferred persona not saved: %v", err)
	}

	conv := &Conversation{
		Persona:   persona.ID,
		SessionID: c.newSessionID(),
	}

	chat, err := c.openContext(ctx, persona, nil)
	if err != nil {
		LogWarn("Gateway context not opened for %s: %v", persona.ID, err)
		conv.Turns = []Turn{c.errorTurn(err)}
	} else {
		greeting := persona.Greeting
		if greeting == "" {
			greeting = FallbackGreeting
		}
		now := c.now()
		conv.Turns = []Turn{{
			ID:        c.ids.Next(now),
			Role:      RoleModel,
			Text:      greeting,
			Timestamp: now,
		}}
	}

	c.conv = conv
	c.chat = chat
	c.state = StateReady
	c.persist()
	LogInfo("Started conversation %s with %s", conv.SessionID, persona.ID)
}

// adopt installs conv as the active conversation and re-opens the gateway
// context from its history. A context that fails to open is retried lazily on
// the next submission.
func (c *Controller) adopt(ctx context.Context, conv *Conversation) {
	chat, err := c.openContext(ctx, MustPersona(conv.Persona), conv.Turns)
	if err != nil {
		LogWarn("Gateway context not re-opened: %v", err)
		chat = nil
	}
	c.conv = conv
	c.chat = chat
	c.state = StateReady
	c.persist()
}

func (c *Controller) openContext(ctx context.Context, persona Persona, turns []Turn) (ChatContext, error) {
	if c.gateway == nil {
		return nil, &GatewayError{Kind: GatewayConfiguration, Op: "open", Err: ErrNoCredential}
	}
	return c.gateway.OpenContext(ctx, SystemInstruction(persona), BuildHistory(turns))
}

// archiveCurrent archives the active conversation when it holds more than the
// greeting turn
func (c *Controller) archiveCurrent() {
	if c.conv == nil || len(c.conv.Turns) <= 1 {
		return
	}
	if session, ok := c.store.ArchiveSession(c.conv.Turns, c.conv.Persona, c.conv.SessionID); ok {
		LogInfo("Archived session %s (%q)", session.ID, session.Title)
	}
}

func (c *Controller) persist() {
	if c.state == StateUninitialized || c.conv == nil {
		return
	}
	if err := c.store.SaveActiveConversation(c.conv); err != nil {
		LogWarn("Active session not saved: %v", err)
	}
}

func (c *Controller) errorTurn(err error) Turn {
	return c.failureTurn(c.ids.Next(c.now()), FailureMessage(err))
}

func (c *Controller) failureTurn(id, message string) Turn {
	return Turn{
		ID:        id,
		Role:      RoleModel,
		Text:      message,
		Timestamp: c.now(),
		IsError:   true,
	}
}

func (c *Controller) observeTurns(turns []Turn) {
	for _, t := range turns {
		c.ids.Observe(t.ID)
	}
}

func cloneAudio(a *Audio) *Audio {
	if a == nil {
		return nil
	}
	out := *a
	out.Data = append([]byte(nil), a.Data...)
	return &out
}
