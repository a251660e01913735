package internal

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"
)

// Role identifies who authored a turn
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// TimestampLayout is the persisted timestamp form (UTC, millisecond precision)
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Audio is a recorded voice message attached to a turn
type Audio struct {
	Data     []byte
	MimeType string
}

// DefaultAudioMimeType is assumed when a persisted audio turn has no media type
const DefaultAudioMimeType = "audio/webm"

// Turn is one message of a conversation
type Turn struct {
	ID        string
	Role      Role
	Text      string
	Audio     *Audio
	Timestamp time.Time
	IsError   bool
}

// turnRecord is the persisted JSON shape of a Turn
type turnRecord struct {
	ID        string `json:"id"`
	Role      Role   `json:"role"`
	Text      string `json:"text"`
	Audio     string `json:"audio,omitempty"`
	MimeType  string `json:"mimeType,omitempty"`
	Timestamp string `json:"timestamp"`
	IsError   bool   `json:"isError,omitempty"`
}

// FormatTimestamp renders t in the persisted form
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp reads a persisted timestamp. Any RFC 3339 form is accepted.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

// SameInstant compares two times at persisted (millisecond) precision
func SameInstant(a, b time.Time) bool {
	return a.UnixMilli() == b.UnixMilli()
}

// MarshalJSON implements json.Marshaler
func (t Turn) MarshalJSON() ([]byte, error) {
	rec := turnRecord{
		ID:        t.ID,
		Role:      t.Role,
		Text:      t.Text,
		Timestamp: FormatTimestamp(t.Timestamp),
		IsError:   t.IsError,
	}
	if t.Audio != nil {
		rec.Audio = base64.StdEncoding.EncodeToString(t.Audio.Data)
		rec.MimeType = t.Audio.MimeType
	}
	return json.Marshal(rec)
}

// UnmarshalJSON implements json.Unmarshaler
func (t *Turn) UnmarshalJSON(data []byte) error {
	var rec turnRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	if rec.Role != RoleUser && rec.Role != RoleModel {
		return fmt.Errorf("turn %s: invalid role %q", rec.ID, rec.Role)
	}
	ts, err := ParseTimestamp(rec.Timestamp)
	if err != nil {
		return fmt.Errorf("turn %s: invalid timestamp: %w", rec.ID, err)
	}

	*t = Turn{
		ID:        rec.ID,
		Role:      rec.Role,
		Text:      rec.Text,
		Timestamp: ts,
		IsError:   rec.IsError,
	}
	if rec.Audio != "" {
		raw, err := base64.StdEncoding.DecodeString(rec.Audio)
		if err != nil {
			return fmt.Errorf("turn %s: invalid audio payload: %w", rec.ID, err)
		}
		mime := rec.MimeType
		if mime == "" {
			mime = DefaultAudioMimeType
		}
		t.Audio = &Audio{Data: raw, MimeType: mime}
	}
	return nil
}

// HasContent reports whether the turn carries text or audio
func (t Turn) HasContent() bool {
	return t.Text != "" || t.Audio != nil
}

// Conversation is the active, in-progress chat
type Conversation struct {
	Persona   PersonaID
	SessionID string
	Turns     []Turn
	Streaming bool
}

// Clone returns a deep copy so callers never alias controller state
func (c *Conversation) Clone() *Conversation {
	if c == nil {
		return nil
	}
	out := *c
	out.Turns = CloneTurns(c.Turns)
	return &out
}

// HasUserTurn reports whether any turn was authored by the user
func HasUserTurn(turns []Turn) bool {
	return firstUserTurn(turns) != nil
}

func firstUserTurn(turns []Turn) *Turn {
	for i := range turns {
		if turns[i].Role == RoleUser {
			return &turns[i]
		}
	}
	return nil
}

// CloneTurns copies a turn slice including audio payloads
func CloneTurns(turns []Turn) []Turn {
	if turns == nil {
		return nil
	}
	out := make([]Turn, len(turns))
	for i, t := range turns {
		out[i] = t
		if t.Audio != nil {
			a := *t.Audio
			a.Data = append([]byte(nil), t.Audio.Data...)
			out[i].Audio = &a
		}
	}
	return out
}

// activeRecord is the persisted shape of the active_session key
type activeRecord struct {
	Messages  []Turn    `json:"messages"`
	Religion  PersonaID `json:"religion"`
	SessionID string    `json:"sessionId,omitempty"`
}

// ArchivedSession is a conversation kept for later recall
type ArchivedSession struct {
	ID      string
	Title   string
	Date    time.Time
	Preview string
	Persona PersonaID
	Turns   []Turn
}

type archivedRecord struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Date     string    `json:"date"`
	Preview  string    `json:"preview"`
	Religion PersonaID `json:"religion"`
	Messages []Turn    `json:"messages"`
}

// MarshalJSON implements json.Marshaler
func (s ArchivedSession) MarshalJSON() ([]byte, error) {
	turns := s.Turns
	if turns == nil {
		turns = []Turn{}
	}
	return json.Marshal(archivedRecord{
		ID:       s.ID,
		Title:    s.Title,
		Date:     FormatTimestamp(s.Date),
		Preview:  s.Preview,
		Religion: s.Persona,
		Messages: turns,
	})
}

// UnmarshalJSON implements json.Unmarshaler
func (s *ArchivedSession) UnmarshalJSON(data []byte) error {
	var rec archivedRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	date, err := ParseTimestamp(rec.Date)
	if err != nil {
		return fmt.Errorf("session %s: invalid date: %w", rec.ID, err)
	}
	if len(rec.Messages) == 0 {
		return fmt.Errorf("session %s: no messages", rec.ID)
	}
	*s = ArchivedSession{
		ID:      rec.ID,
		Title:   rec.Title,
		Date:    date,
		Preview: rec.Preview,
		Persona: rec.Religion,
		Turns:   rec.Messages,
	}
	return nil
}

// FirstTurnTime returns the timestamp of the first turn, the legacy archive key
func (s ArchivedSession) FirstTurnTime() (time.Time, bool) {
	if len(s.Turns) == 0 {
		return time.Time{}, false
	}
	return s.Turns[0].Timestamp, true
}

// TurnIDs hands out turn ids derived from creation time. Ids are strictly
// increasing even when several turns are created within one millisecond.
type TurnIDs struct {
	mu   sync.Mutex
	last int64
}

// Next returns the id for a turn created at now
func (g *TurnIDs) Next(now time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := now.UnixMilli()
	if ms <= g.last {
		ms = g.last + 1
	}
	g.last = ms
	return strconv.FormatInt(ms, 10)
}

// Observe records an existing id so later ids sort after it
func (g *TurnIDs) Observe(id string) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if n > g.last {
		g.last = n
	}
}
