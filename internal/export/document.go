package export

import (
	"encoding/json"
	"io"

	"github.com/iksnae/fale-com-deus/internal"
	"gopkg.in/yaml.v3"
)

// document is the readable export shape shared by the json and yaml formats.
// Audio payloads are summarized rather than embedded.
type document struct {
	ID          string    `json:"id" yaml:"id"`
	Title       string    `json:"title" yaml:"title"`
	Persona     string    `json:"persona" yaml:"persona"`
	PersonaName string    `json:"persona_name" yaml:"persona_name"`
	Date        string    `json:"date" yaml:"date"`
	Preview     string    `json:"preview" yaml:"preview"`
	Messages    []message `json:"messages" yaml:"messages"`
}

type message struct {
	ID        string `json:"id" yaml:"id"`
	Role      string `json:"role" yaml:"role"`
	Speaker   string `json:"speaker" yaml:"speaker"`
	Text      string `json:"text" yaml:"text"`
	Timestamp string `json:"timestamp" yaml:"timestamp"`
	Audio     *audio `json:"audio,omitempty" yaml:"audio,omitempty"`
	IsError   bool   `json:"is_error,omitempty" yaml:"is_error,omitempty"`
}

type audio struct {
	MimeType string `json:"mime_type" yaml:"mime_type"`
	Bytes    int    `json:"bytes" yaml:"bytes"`
}

// UserSpeaker labels user turns in exports
const UserSpeaker = "Você"

func newDocument(s internal.ArchivedSession) document {
	p := internal.MustPersona(s.Persona)
	doc := document{
		ID:          s.ID,
		Title:       s.Title,
		Persona:     string(s.Persona),
		PersonaName: p.Name,
		Date:        internal.FormatTimestamp(s.Date),
		Preview:     s.Preview,
		Messages:    make([]message, 0, len(s.Turns)),
	}
	for _, t := range s.Turns {
		doc.Messages = append(doc.Messages, newMessage(t, p))
	}
	return doc
}

func newMessage(t internal.Turn, p internal.Persona) message {
	m := message{
		ID:        t.ID,
		Role:      string(t.Role),
		Speaker:   speaker(t.Role, p),
		Text:      t.Text,
		Timestamp: internal.FormatTimestamp(t.Timestamp),
		IsError:   t.IsError,
	}
	if t.Audio != nil {
		m.Audio = &audio{MimeType: t.Audio.MimeType, Bytes: len(t.Audio.Data)}
	}
	return m
}

func speaker(r internal.Role, p internal.Persona) string {
	if r == internal.RoleUser {
		return UserSpeaker
	}
	return p.Name
}

// JSONExporter writes the session document as indented JSON
type JSONExporter struct{}

func (e *JSONExporter) Export(session internal.ArchivedSession, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(newDocument(session))
}

func (e *JSONExporter) Extension() string { return "json" }

// YAMLExporter writes the same document as YAML
type YAMLExporter struct{}

func (e *YAMLExporter) Export(session internal.ArchivedSession, w io.Writer) (err error) {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer func() {
		if cerr := enc.Close(); err == nil {
			err = cerr
		}
	}()
	return enc.Encode(newDocument(session))
}

func (e *YAMLExporter) Extension() string { return "yaml" }
