package internal

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Title and preview fallbacks for audio-only conversations
const (
	UntitledSession = "Nova conversa"
	VoicePreview    = "Mensagem de voz"
)

const (
	titleLength   = 30
	previewLength = 50
)

// Restored is everything read from storage at startup
type Restored struct {
	Active           *Conversation
	Archive          []ArchivedSession
	PreferredPersona PersonaID
	Theme            ThemeID
}

// Bootstrap is the session store before its persisted state has been read.
// It cannot write; Restore hands out the writable *SessionStore.
type Bootstrap struct {
	kv  KVStore
	now func() time.Time
}

// NewBootstrap wraps kv for a single Restore
func NewBootstrap(kv KVStore) *Bootstrap {
	return &Bootstrap{kv: kv, now: time.Now}
}

// WithClock overrides the clock used for archive dates
func (b *Bootstrap) WithClock(now func() time.Time) *Bootstrap {
	b.now = now
	return b
}

// Restore reads the persisted records and returns the ready store
func (b *Bootstrap) Restore() (*SessionStore, Restored) {
	s := &SessionStore{kv: b.kv, now: b.now, dedup: NewDeduplicator()}

	restored := Restored{
		Archive:          s.LoadArchive(),
		PreferredPersona: s.PreferredPersona(),
		Theme:            s.Theme(),
	}
	if active, ok := s.LoadActiveConversation(); ok {
		restored.Active = active
	}
	return s, restored
}

// SessionStore persists the active conversation and the archive
type SessionStore struct {
	kv    KVStore
	now   func() time.Time
	dedup *Deduplicator
}

// LoadActiveConversation reads the active_session record. Missing, empty or
// malformed records all read as absent.
func (s *SessionStore) LoadActiveConversation() (*Conversation, bool) {
	raw, ok, err := s.kv.Get(KeyActiveSession)
	if err != nil {
		LogError("Failed to read active session: %v", err)
		return nil, false
	}
	if !ok || raw == "" {
		return nil, false
	}

	var rec activeRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		LogError("%v", &ParseError{Source: KeyActiveSession, Key: KeyActiveSession, Err: err})
		return nil, false
	}
	if len(rec.Messages) == 0 {
		return nil, false
	}

	persona := rec.Religion
	if _, known := LookupPersona(persona); !known {
		LogWarn("Active session has unknown persona %q, using %q", persona, DefaultPersona)
		persona = DefaultPersona
	}

	return &Conversation{
		Persona:   persona,
		SessionID: rec.SessionID,
		Turns:     rec.Messages,
	}, true
}

// SaveActiveConversation overwrites the active_session record
func (s *SessionStore) SaveActiveConversation(c *Conversation) error {
	if c == nil {
		return nil
	}
	turns := c.Turns
	if turns == nil {
		turns = []Turn{}
	}
	data, err := json.Marshal(activeRecord{
		Messages:  turns,
		Religion:  c.Persona,
		SessionID: c.SessionID,
	})
	if err != nil {
		return &ParseError{Source: KeyActiveSession, Key: KeyActiveSession, Err: err}
	}
	if err := s.kv.Set(KeyActiveSession, string(data)); err != nil {
		LogError("Failed to save active session: %v", err)
		return err
	}
	return nil
}

// ClearActiveConversation removes the active_session record
func (s *SessionStore) ClearActiveConversation() error {
	if err := s.kv.Delete(KeyActiveSession); err != nil {
		LogError("Failed to clear active session: %v", err)
		return err
	}
	return nil
}

// LoadArchive reads chat_history, most recent first. Unreadable entries are
// skipped; an unreadable record reads as empty.
func (s *SessionStore) LoadArchive() []ArchivedSession {
	raw, ok, err := s.kv.Get(KeyChatHistory)
	if err != nil {
		LogError("Failed to read chat history: %v", err)
		return []ArchivedSession{}
	}
	if !ok || raw == "" {
		return []ArchivedSession{}
	}

	var entries []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		LogError("%v", &ParseError{Source: KeyChatHistory, Key: KeyChatHistory, Err: err})
		return []ArchivedSession{}
	}

	archive := make([]ArchivedSession, 0, len(entries))
	for i, entry := range entries {
		var session ArchivedSession
		if err := json.Unmarshal(entry, &session); err != nil {
			LogWarn("Skipping chat history entry %d: %v", i, err)
			continue
		}
		archive = append(archive, session)
	}
	return archive
}

func (s *SessionStore) saveArchive(archive []ArchivedSession) error {
	if archive == nil {
		archive = []ArchivedSession{}
	}
	data, err := json.Marshal(archive)
	if err != nil {
		return &ParseError{Source: KeyChatHistory, Key: KeyChatHistory, Err: err}
	}
	if err := s.kv.Set(KeyChatHistory, string(data)); err != nil {
		LogError("Failed to save chat history: %v", err)
		return err
	}
	return nil
}

// ArchiveSession stores turns as an archived session. It returns false without
// touching storage when no turn was authored by the user. A session matching
// an existing entry (see Deduplicator) replaces it in place.
func (s *SessionStore) ArchiveSession(turns []Turn, persona PersonaID, sessionID string) (ArchivedSession, bool) {
	first := firstUserTurn(turns)
	if first == nil {
		return ArchivedSession{}, false
	}

	hasID := sessionID != ""
	id := sessionID
	if !hasID {
		id = uuid.NewString()
	}

	session := ArchivedSession{
		ID:      id,
		Date:    s.now(),
		Persona: persona,
		Title:   UntitledSession,
		Preview: VoicePreview,
		Turns:   CloneTurns(turns),
	}
	if first.Text != "" {
		session.Title = truncateRunes(first.Text, titleLength)
		session.Preview = truncateRunes(first.Text, previewLength) + "..."
	}

	archive := s.LoadArchive()
	if i := s.dedup.IndexOf(archive, session, hasID); i >= 0 {
		LogDebug("Replacing archived session %s", archive[i].ID)
		archive[i] = session
	} else {
		archive = append([]ArchivedSession{session}, archive...)
	}

	if err := s.saveArchive(archive); err != nil {
		return session, false
	}
	return session, true
}

// FindArchived looks up an entry by id or by a unique id prefix
func (s *SessionStore) FindArchived(id string) (ArchivedSession, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return ArchivedSession{}, ErrSessionNotFound
	}
	var (
		match ArchivedSession
		count int
	)
	for _, entry := range s.LoadArchive() {
		if entry.ID == id {
			return entry, nil
		}
		if strings.HasPrefix(entry.ID, id) {
			match = entry
			count++
		}
	}
	if count != 1 {
		return ArchivedSession{}, ErrSessionNotFound
	}
	return match, nil
}

// DeleteArchiveEntry removes one entry and persists the archive
func (s *SessionStore) DeleteArchiveEntry(id string) error {
	archive := s.LoadArchive()
	kept := archive[:0]
	removed := false
	for _, entry := range archive {
		if entry.ID == id {
			removed = true
			continue
		}
		kept = append(kept, entry)
	}
	if !removed {
		return ErrSessionNotFound
	}
	return s.saveArchive(kept)
}

// ClearArchive removes every archived session
func (s *SessionStore) ClearArchive() error {
	if err := s.kv.Delete(KeyChatHistory); err != nil {
		LogError("Failed to clear chat history: %v", err)
		return err
	}
	return nil
}

// PreferredPersona returns the last chosen persona, or "" when none is stored
func (s *SessionStore) PreferredPersona() PersonaID {
	raw, ok, err := s.kv.Get(KeyPreferredReligion)
	if err != nil {
		LogError("Failed to read preferred persona: %v", err)
		return ""
	}
	if !ok {
		return ""
	}
	id := PersonaID(raw)
	if _, known := LookupPersona(id); !known {
		return ""
	}
	return id
}

// SetPreferredPersona stores the last chosen persona
func (s *SessionStore) SetPreferredPersona(id PersonaID) error {
	if err := s.kv.Set(KeyPreferredReligion, string(id)); err != nil {
		LogError("Failed to save preferred persona: %v", err)
		return err
	}
	return nil
}

// Theme returns the stored theme preference, or "" when none or unknown
func (s *SessionStore) Theme() ThemeID {
	raw, ok, err := s.kv.Get(KeyAppTheme)
	if err != nil {
		LogError("Failed to read theme: %v", err)
		return ""
	}
	if !ok {
		return ""
	}
	th, known := LookupTheme(ThemeID(raw))
	if !known {
		return ""
	}
	return th.ID
}

// SetTheme stores the theme preference
func (s *SessionStore) SetTheme(id ThemeID) error {
	th, ok := LookupTheme(id)
	if !ok {
		return ErrUnknownTheme
	}
	if err := s.kv.Set(KeyAppTheme, string(th.ID)); err != nil {
		LogError("Failed to save theme: %v", err)
		return err
	}
	return nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
