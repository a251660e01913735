package internal

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/iksnae/fale-com-deus/testutil"
)

type openCall struct {
	systemPrompt string
	history      []ContextTurn
}

// fakeGateway replies to every Send with the producer returned by reply
type fakeGateway struct {
	mu         sync.Mutex
	openErr    error
	opens      []openCall
	sent       []string
	reply      func(text string) Producer
	reflection string
	reflected  []PersonaID
}

func (g *fakeGateway) OpenContext(ctx context.Context, systemPrompt string, history []ContextTurn) (ChatContext, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.opens = append(g.opens, openCall{systemPrompt: systemPrompt, history: history})
	if g.openErr != nil {
		return nil, g.openErr
	}
	return &fakeChat{g: g}, nil
}

func (g *fakeGateway) GenerateReflection(ctx context.Context, persona Persona) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reflected = append(g.reflected, persona.ID)
	return g.reflection
}

func (g *fakeGateway) setOpenErr(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.openErr = err
}

func (g *fakeGateway) openCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.opens)
}

func (g *fakeGateway) lastOpen() openCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.opens[len(g.opens)-1]
}

type fakeChat struct {
	g *fakeGateway
}

func (c *fakeChat) Send(ctx context.Context, text string, audio *Audio) *Stream {
	c.g.mu.Lock()
	c.g.sent = append(c.g.sent, text)
	reply := c.g.reply
	c.g.mu.Unlock()

	if reply == nil {
		return NewStream(ctx, fragments("Paz."))
	}
	return NewStream(ctx, reply(text))
}

var errLeaked = &GatewayError{
	Kind: GatewayAuthorization,
	Op:   "send",
	Err:  errors.New("Error 403: Your API key was reported as leaked. PERMISSION_DENIED"),
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type controllerFixture struct {
	ctrl    *Controller
	store   *SessionStore
	kv      *MemoryKV
	gateway *fakeGateway
}

func newControllerFixture(t *testing.T, seed map[string]string, opts ...ControllerOption) (*controllerFixture, Restored) {
	t.Helper()
	kv := NewMemoryKV()
	for k, v := range seed {
		_ = kv.Set(k, v)
	}
	clock := &testClock{now: TestEpoch}
	store, restored := NewBootstrap(kv).WithClock(clock.Now).Restore()
	gw := &fakeGateway{reflection: "Respire."}

	n := 0
	opts = append([]ControllerOption{
		WithClock(clock.Now),
		WithSessionIDs(func() string {
			n++
			return "session-" + string(rune('a'+n-1))
		}),
	}, opts...)

	return &controllerFixture{
		ctrl:    NewController(store, gw, opts...),
		store:   store,
		kv:      kv,
		gateway: gw,
	}, restored
}

func startedFixture(t *testing.T, persona PersonaID, opts ...ControllerOption) *controllerFixture {
	t.Helper()
	f, restored := newControllerFixture(t, nil, opts...)
	if state := f.ctrl.Start(context.Background(), restored); state != StateAwaitingPersonaChoice {
		t.Fatalf("Start() = %v, want awaiting-persona", state)
	}
	if err := f.ctrl.ChoosePersona(context.Background(), persona); err != nil {
		t.Fatalf("ChoosePersona() error = %v", err)
	}
	return f
}

func TestController_ChoosePersona(t *testing.T) {
	f := startedFixture(t, PersonaBuddhism)

	if f.ctrl.State() != StateReady {
		t.Fatalf("State() = %v, want ready", f.ctrl.State())
	}
	conv := f.ctrl.Conversation()
	if len(conv.Turns) != 1 || conv.Turns[0].Text != MustPersona(PersonaBuddhism).Greeting || conv.Turns[0].Role != RoleModel {
		t.Errorf("turns = %+v, want the greeting only", conv.Turns)
	}
	if conv.SessionID != "session-a" {
		t.Errorf("SessionID = %q", conv.SessionID)
	}

	open := f.gateway.lastOpen()
	if len(open.history) != 0 || !strings.Contains(open.systemPrompt, MustPersona(PersonaBuddhism).Prompt) {
		t.Errorf("OpenContext() = %+v", open)
	}

	persisted, ok := f.store.LoadActiveConversation()
	if !ok || persisted.Persona != PersonaBuddhism || len(persisted.Turns) != 1 {
		t.Errorf("persisted = %+v, %v", persisted, ok)
	}
	if f.store.PreferredPersona() != PersonaBuddhism {
		t.Errorf("PreferredPersona() = %q", f.store.PreferredPersona())
	}
}

func TestController_SubmitTurn_StreamsFragments(t *testing.T) {
	var (
		mu        sync.Mutex
		snapshots []string
	)
	f := startedFixture(t, PersonaUniversal, WithFragmentHook(func(turn Turn) {
		mu.Lock()
		defer mu.Unlock()
		snapshots = append(snapshots, turn.Text)
	}))
	f.gateway.reply = func(string) Producer { return fragments("Ol", "á, ", "tudo bem?") }

	turn, err := f.ctrl.SubmitTurn(context.Background(), "  Oi  ", nil)
	if err != nil {
		t.Fatalf("SubmitTurn() error = %v", err)
	}
	if turn.Text != "Olá, tudo bem?" || turn.IsError {
		t.Errorf("turn = %+v", turn)
	}

	want := []string{"Ol", "Olá, ", "Olá, tudo bem?"}
	if len(snapshots) != len(want) {
		t.Fatalf("hook saw %q, want %q", snapshots, want)
	}
	for i := range want {
		if snapshots[i] != want[i] {
			t.Errorf("snapshot %d = %q, want %q", i, snapshots[i], want[i])
		}
	}

	conv := f.ctrl.Conversation()
	if len(conv.Turns) != 3 || conv.Turns[1].Text != "Oi" || conv.Turns[1].Role != RoleUser {
		t.Errorf("turns = %+v", conv.Turns)
	}
	if conv.Streaming || f.ctrl.State() != StateReady {
		t.Errorf("controller still streaming: %v", f.ctrl.State())
	}

	persisted, _ := f.store.LoadActiveConversation()
	if got := persisted.Turns[2].Text; got != "Olá, tudo bem?" {
		t.Errorf("persisted reply = %q", got)
	}
}

func TestController_SubmitTurn_AuthFailureAfterFragment(t *testing.T) {
	f := startedFixture(t, PersonaStoicism)
	f.gateway.reply = func(string) Producer {
		return func(ctx context.Context, emit func(string) bool) error {
			emit("parcial")
			return errLeaked
		}
	}

	turn, err := f.ctrl.SubmitTurn(context.Background(), "Por quê?", nil)
	if err != nil {
		t.Fatalf("SubmitTurn() error = %v", err)
	}

	conv := f.ctrl.Conversation()
	if len(conv.Turns) != 3 {
		t.Fatalf("turns = %d, want greeting + user + one reply", len(conv.Turns))
	}
	reply := conv.Turns[2]
	if !reply.IsError || reply.Role != RoleModel || reply.Text != MessageLeakedKey {
		t.Errorf("reply = %+v, want a leaked-key error turn", reply)
	}
	if strings.Contains(reply.Text, "parcial") || turn.ID != reply.ID {
		t.Errorf("partial text survived or ids differ: %+v vs %+v", turn, reply)
	}
}

func TestController_SubmitTurn_TransportFailure(t *testing.T) {
	f := startedFixture(t, PersonaIslam)
	f.gateway.reply = func(string) Producer {
		return func(context.Context, func(string) bool) error { return errors.New("connection reset") }
	}

	turn, _ := f.ctrl.SubmitTurn(context.Background(), "Salam", nil)
	if !turn.IsError || turn.Text != MessageDisconnected {
		t.Errorf("turn = %+v, want the disconnection notice", turn)
	}
}

func TestController_SubmitTurn_Timeout(t *testing.T) {
	f := startedFixture(t, PersonaJudaism, WithTurnTimeout(20*time.Millisecond))
	f.gateway.reply = func(string) Producer {
		return func(ctx context.Context, emit func(string) bool) error {
			emit("Sha")
			<-ctx.Done()
			return ctx.Err()
		}
	}

	turn, _ := f.ctrl.SubmitTurn(context.Background(), "Shalom", nil)
	if !turn.IsError || turn.Text != MessageDisconnected {
		t.Errorf("turn = %+v, want a failure notice after the deadline", turn)
	}
	if f.ctrl.State() != StateReady {
		t.Errorf("State() = %v after timeout", f.ctrl.State())
	}
}

func TestController_SubmitTurn_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := startedFixture(t, PersonaHinduism, WithFragmentHook(func(Turn) { cancel() }))
	f.gateway.reply = func(string) Producer {
		return func(ctx context.Context, emit func(string) bool) error {
			for emit("om ") {
			}
			return ctx.Err()
		}
	}

	turn, err := f.ctrl.SubmitTurn(ctx, "Namastê", nil)
	if err != nil {
		t.Fatalf("SubmitTurn() error = %v", err)
	}
	if !turn.IsError || turn.Text != MessageCancelled {
		t.Errorf("turn = %+v, want the cancellation notice", turn)
	}
	if got := len(f.ctrl.Conversation().Turns); got != 3 {
		t.Errorf("turns = %d, want 3", got)
	}
}

func TestController_SubmitTurn_Busy(t *testing.T) {
	f := startedFixture(t, PersonaCatholicism)
	release := make(chan struct{})
	f.gateway.reply = func(string) Producer {
		return func(ctx context.Context, emit func(string) bool) error {
			<-release
			return nil
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = f.ctrl.SubmitTurn(context.Background(), "Ave", nil)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for f.ctrl.State() != StateStreaming {
		if time.Now().After(deadline) {
			t.Fatal("controller never started streaming")
		}
		time.Sleep(time.Millisecond)
	}

	if _, err := f.ctrl.SubmitTurn(context.Background(), "de novo", nil); !errors.Is(err, ErrBusy) {
		t.Errorf("SubmitTurn() while streaming error = %v, want ErrBusy", err)
	}
	if err := f.ctrl.SwitchPersona(context.Background(), PersonaIslam); !errors.Is(err, ErrBusy) {
		t.Errorf("SwitchPersona() while streaming error = %v, want ErrBusy", err)
	}
	if err := f.ctrl.ExitToNeutral(); !errors.Is(err, ErrBusy) {
		t.Errorf("ExitToNeutral() while streaming error = %v, want ErrBusy", err)
	}
	if conv := f.ctrl.Conversation(); !conv.Streaming {
		t.Error("Conversation().Streaming = false while streaming")
	}

	close(release)
	<-done
	if f.ctrl.State() != StateReady {
		t.Errorf("State() = %v, want ready", f.ctrl.State())
	}
}

func TestController_SubmitTurn_Rejects(t *testing.T) {
	f, restored := newControllerFixture(t, nil)

	if _, err := f.ctrl.SubmitTurn(context.Background(), "oi", nil); !errors.Is(err, ErrNotReady) {
		t.Errorf("SubmitTurn() before Start error = %v, want ErrNotReady", err)
	}
	f.ctrl.Start(context.Background(), restored)
	if _, err := f.ctrl.SubmitTurn(context.Background(), "oi", nil); !errors.Is(err, ErrNotReady) {
		t.Errorf("SubmitTurn() without persona error = %v, want ErrNotReady", err)
	}
	if _, err := f.ctrl.SubmitTurn(context.Background(), "   ", nil); !errors.Is(err, ErrEmptyTurn) {
		t.Errorf("SubmitTurn(blank) error = %v, want ErrEmptyTurn", err)
	}
	if err := f.ctrl.ChoosePersona(context.Background(), "Zoroastrismo"); !errors.Is(err, ErrUnknownPersona) {
		t.Errorf("ChoosePersona(unknown) error = %v, want ErrUnknownPersona", err)
	}
}

func TestController_SubmitTurn_Audio(t *testing.T) {
	f := startedFixture(t, PersonaUmbanda)
	audio := &Audio{Data: []byte("ogg"), MimeType: "audio/ogg"}

	if _, err := f.ctrl.SubmitTurn(context.Background(), "", audio); err != nil {
		t.Fatalf("SubmitTurn(audio) error = %v", err)
	}
	audio.Data[0] = 'x'

	user := f.ctrl.Conversation().Turns[1]
	if user.Audio == nil || string(user.Audio.Data) != "ogg" || user.Text != "" {
		t.Errorf("user turn = %+v, want a private copy of the audio", user)
	}
}

func TestController_SwitchPersona_ArchivesConversation(t *testing.T) {
	f := startedFixture(t, PersonaBuddhism)
	if _, err := f.ctrl.SubmitTurn(context.Background(), "Como meditar?", nil); err != nil {
		t.Fatalf("SubmitTurn() error = %v", err)
	}
	if got := len(f.ctrl.Conversation().Turns); got != 3 {
		t.Fatalf("turns = %d, want 3", got)
	}

	if err := f.ctrl.SwitchPersona(context.Background(), PersonaStoicism); err != nil {
		t.Fatalf("SwitchPersona() error = %v", err)
	}

	archive := f.store.LoadArchive()
	if len(archive) != 1 {
		t.Fatalf("archive = %d entries, want 1", len(archive))
	}
	if archive[0].Persona != PersonaBuddhism || archive[0].ID != "session-a" || len(archive[0].Turns) != 3 {
		t.Errorf("archived = %s/%s/%d", archive[0].Persona, archive[0].ID, len(archive[0].Turns))
	}
	if archive[0].Title != "Como meditar?" {
		t.Errorf("Title = %q", archive[0].Title)
	}

	conv := f.ctrl.Conversation()
	if conv.Persona != PersonaStoicism || len(conv.Turns) != 1 || conv.Turns[0].Text != MustPersona(PersonaStoicism).Greeting {
		t.Errorf("active = %s with %+v", conv.Persona, conv.Turns)
	}
	persisted, ok := f.store.LoadActiveConversation()
	if !ok || persisted.Persona != PersonaStoicism || len(persisted.Turns) != 1 {
		t.Errorf("persisted = %+v", persisted)
	}

	// same persona is a no-op
	opens := f.gateway.openCount()
	if err := f.ctrl.SwitchPersona(context.Background(), PersonaStoicism); err != nil {
		t.Fatalf("SwitchPersona(same) error = %v", err)
	}
	if f.gateway.openCount() != opens || f.ctrl.Conversation().SessionID != conv.SessionID {
		t.Error("SwitchPersona(same) started a new conversation")
	}
}

func TestController_GreetingOnlyRestoreNeverArchives(t *testing.T) {
	greetingOnly := `{"messages":[{"id":"1710081000000","role":"model","text":"Shalom aleikhem.","timestamp":"2024-03-10T14:30:00.000Z"}],"religion":"Judaísmo"}`
	f, restored := newControllerFixture(t, map[string]string{KeyActiveSession: greetingOnly})

	if state := f.ctrl.Start(context.Background(), restored); state != StateReady {
		t.Fatalf("Start() = %v, want ready", state)
	}
	if err := f.ctrl.SwitchPersona(context.Background(), PersonaIslam); err != nil {
		t.Fatalf("SwitchPersona() error = %v", err)
	}
	if err := f.ctrl.ExitToNeutral(); err != nil {
		t.Fatalf("ExitToNeutral() error = %v", err)
	}
	if archive := f.store.LoadArchive(); len(archive) != 0 {
		t.Errorf("archive = %d entries, want none for greeting-only conversations", len(archive))
	}
}

func TestController_StartRestoresLegacySession(t *testing.T) {
	f, restored := newControllerFixture(t, map[string]string{
		KeyActiveSession: testutil.LegacyActiveSessionJSON,
	})

	if state := f.ctrl.Start(context.Background(), restored); state != StateReady {
		t.Fatalf("Start() = %v, want ready", state)
	}
	conv := f.ctrl.Conversation()
	if conv.SessionID != "session-a" || conv.Persona != PersonaBuddhism || len(conv.Turns) != 3 {
		t.Errorf("conversation = %+v", conv)
	}

	open := f.gateway.lastOpen()
	if len(open.history) != 3 || open.history[1].Text() != "Como lidar com a ansiedade?" {
		t.Errorf("history = %+v", open.history)
	}

	persisted, _ := f.store.LoadActiveConversation()
	if persisted.SessionID != "session-a" {
		t.Errorf("persisted SessionID = %q", persisted.SessionID)
	}

	// new turn ids sort after the restored ones
	if _, err := f.ctrl.SubmitTurn(context.Background(), "Obrigado", nil); err != nil {
		t.Fatalf("SubmitTurn() error = %v", err)
	}
	turns := f.ctrl.Conversation().Turns
	if turns[3].ID <= turns[2].ID {
		t.Errorf("new id %s does not sort after %s", turns[3].ID, turns[2].ID)
	}

	if state := f.ctrl.Start(context.Background(), Restored{}); state != StateReady {
		t.Errorf("second Start() = %v, want no-op", state)
	}
}

func TestController_HistoryExcludesErrorTurns(t *testing.T) {
	f := startedFixture(t, PersonaSpiritism)
	f.gateway.reply = func(string) Producer {
		return func(context.Context, func(string) bool) error { return errors.New("offline") }
	}
	f.ctrl.SubmitTurn(context.Background(), "Olá?", nil)

	session := ArchivedSession{ID: "restore-me", Persona: PersonaSpiritism, Turns: f.ctrl.Conversation().Turns}
	if err := f.ctrl.RestoreArchivedSession(context.Background(), session); err != nil {
		t.Fatalf("RestoreArchivedSession() error = %v", err)
	}

	for _, h := range f.gateway.lastOpen().history {
		if h.Text() == MessageDisconnected {
			t.Error("error turn leaked into the gateway history")
		}
	}
	if got := len(f.gateway.lastOpen().history); got != 2 {
		t.Errorf("history = %d turns, want greeting + user", got)
	}
}

func TestController_LazyReinit(t *testing.T) {
	f, restored := newControllerFixture(t, map[string]string{
		KeyActiveSession: testutil.LegacyActiveSessionJSON,
	})
	f.gateway.setOpenErr(&GatewayError{Kind: GatewayConfiguration, Op: "open", Err: ErrNoCredential})
	f.ctrl.Start(context.Background(), restored)

	turn, err := f.ctrl.SubmitTurn(context.Background(), "Alguém aí?", nil)
	if err != nil {
		t.Fatalf("SubmitTurn() error = %v", err)
	}
	if !turn.IsError || turn.Text != MessageConfiguration {
		t.Errorf("turn = %+v, want the configuration notice", turn)
	}
	turns := f.ctrl.Conversation().Turns
	if len(turns) != 5 || turns[3].Text != "Alguém aí?" {
		t.Fatalf("turns = %d, want the user turn kept with an error reply", len(turns))
	}
	if f.gateway.openCount() != 2 {
		t.Errorf("OpenContext() calls = %d, want restore + one retry", f.gateway.openCount())
	}

	f.gateway.setOpenErr(nil)
	turn, _ = f.ctrl.SubmitTurn(context.Background(), "E agora?", nil)
	if turn.IsError || turn.Text != "Paz." {
		t.Errorf("turn after recovery = %+v", turn)
	}
	if got := len(f.gateway.lastOpen().history); got != 4 {
		t.Errorf("re-opened history = %d turns, want the 4 non-error turns", got)
	}
}

func TestController_NoGatewayConfigured(t *testing.T) {
	kv := NewMemoryKV()
	store, restored := NewBootstrap(kv).Restore()
	ctrl := NewController(store, nil)
	ctrl.Start(context.Background(), restored)

	if err := ctrl.ChoosePersona(context.Background(), PersonaAgnostic); err != nil {
		t.Fatalf("ChoosePersona() error = %v", err)
	}
	turns := ctrl.Conversation().Turns
	if len(turns) != 1 || !turns[0].IsError || turns[0].Text != MessageConfiguration {
		t.Errorf("turns = %+v, want a single configuration error turn", turns)
	}
	if got := ctrl.Reflection(context.Background()); got != ReflectionErrorFallback {
		t.Errorf("Reflection() = %q, want fallback", got)
	}
}

func TestController_ExitToNeutral(t *testing.T) {
	f := startedFixture(t, PersonaEvangelical)
	f.ctrl.SubmitTurn(context.Background(), "Ore por mim", nil)

	if err := f.ctrl.ExitToNeutral(); err != nil {
		t.Fatalf("ExitToNeutral() error = %v", err)
	}
	if f.ctrl.State() != StateAwaitingPersonaChoice || f.ctrl.Conversation() != nil {
		t.Errorf("State() = %v, conversation = %+v", f.ctrl.State(), f.ctrl.Conversation())
	}
	if _, ok, _ := f.kv.Get(KeyActiveSession); ok {
		t.Error("active_session still persisted after exit")
	}
	if got := len(f.store.LoadArchive()); got != 1 {
		t.Errorf("archive = %d entries, want 1", got)
	}
	if err := f.ctrl.ExitToNeutral(); err != nil {
		t.Errorf("second ExitToNeutral() error = %v", err)
	}
	if _, ok := f.ctrl.Persona(); ok {
		t.Error("Persona() ok = true with no conversation")
	}
}

func TestController_RestoreArchivedSession(t *testing.T) {
	f := startedFixture(t, PersonaBuddhism)
	f.ctrl.SubmitTurn(context.Background(), "Primeira", nil)

	target := CreateTestArchivedSession("archived-1", PersonaIslam)
	if _, ok := f.store.ArchiveSession(target.Turns, target.Persona, target.ID); !ok {
		t.Fatal("ArchiveSession() ok = false")
	}
	if err := f.ctrl.RestoreArchivedSession(context.Background(), target); err != nil {
		t.Fatalf("RestoreArchivedSession() error = %v", err)
	}

	conv := f.ctrl.Conversation()
	if conv.Persona != PersonaIslam || conv.SessionID != "archived-1" || len(conv.Turns) != 3 {
		t.Errorf("conversation = %s/%s/%d", conv.Persona, conv.SessionID, len(conv.Turns))
	}
	archive := f.store.LoadArchive()
	if len(archive) != 2 || archive[0].ID != "session-a" {
		t.Fatalf("archive = %v, want the previous conversation archived first", archive)
	}

	// continuing and archiving again replaces the restored entry
	f.ctrl.SubmitTurn(context.Background(), "Continuação", nil)
	if err := f.ctrl.ExitToNeutral(); err != nil {
		t.Fatalf("ExitToNeutral() error = %v", err)
	}
	archive = f.store.LoadArchive()
	if len(archive) != 2 || archive[1].ID != "archived-1" || len(archive[1].Turns) != 5 {
		t.Errorf("archive = %d entries, want archived-1 replaced in place", len(archive))
	}

	if err := f.ctrl.RestoreArchivedSession(context.Background(), archive[1]); err != nil {
		t.Fatalf("RestoreArchivedSession() from neutral error = %v", err)
	}
	if got := len(f.store.LoadArchive()); got != 2 {
		t.Errorf("archive = %d entries after restoring from neutral, want 2", got)
	}

	if err := f.ctrl.RestoreArchivedSession(context.Background(), ArchivedSession{ID: "empty"}); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("RestoreArchivedSession(empty) error = %v", err)
	}
}

func TestController_RestoreActiveSessionKeepsTurns(t *testing.T) {
	f := startedFixture(t, PersonaBuddhism)

	target := CreateTestArchivedSession("archived-1", PersonaIslam)
	f.store.ArchiveSession(target.Turns, target.Persona, target.ID)
	if err := f.ctrl.RestoreArchivedSession(context.Background(), target); err != nil {
		t.Fatalf("RestoreArchivedSession() error = %v", err)
	}
	f.ctrl.SubmitTurn(context.Background(), "Continuação", nil)

	// a snapshot read before the new turns must not replace them
	stale, err := f.store.FindArchived("archived-1")
	if err != nil {
		t.Fatalf("FindArchived() error = %v", err)
	}
	if err := f.ctrl.RestoreArchivedSession(context.Background(), stale); err != nil {
		t.Fatalf("RestoreArchivedSession() of the active session error = %v", err)
	}
	if got := len(f.ctrl.Conversation().Turns); got != 5 {
		t.Errorf("active turns = %d after restoring the active session, want 5", got)
	}

	if err := f.ctrl.ExitToNeutral(); err != nil {
		t.Fatalf("ExitToNeutral() error = %v", err)
	}
	archived, err := f.store.FindArchived("archived-1")
	if err != nil {
		t.Fatalf("FindArchived() error = %v", err)
	}
	if len(archived.Turns) != 5 {
		t.Errorf("archived turns = %d, want 5", len(archived.Turns))
	}
}

func TestController_Reflection(t *testing.T) {
	f, restored := newControllerFixture(t, map[string]string{KeyPreferredReligion: string(PersonaHinduism)})
	f.ctrl.Start(context.Background(), restored)

	if got := f.ctrl.Reflection(context.Background()); got != "Respire." {
		t.Errorf("Reflection() = %q", got)
	}
	f.ctrl.ChoosePersona(context.Background(), PersonaJudaism)
	f.ctrl.Reflection(context.Background())

	if len(f.gateway.reflected) != 2 || f.gateway.reflected[0] != PersonaHinduism || f.gateway.reflected[1] != PersonaJudaism {
		t.Errorf("reflected personas = %v", f.gateway.reflected)
	}
}

func TestControllerState_String(t *testing.T) {
	if StateAwaitingPersonaChoice.String() != "awaiting-persona" || StateStreaming.String() != "streaming" {
		t.Error("unexpected state names")
	}
}
