package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/iksnae/fale-com-deus/internal"
)

// JSONLExporter exports sessions in JSONL format (one message per line).
// Every line carries the session id so files can be concatenated.
type JSONLExporter struct{}

type line struct {
	Session string `json:"session"`
	message
}

// Export exports a session to JSONL format
func (e *JSONLExporter) Export(session internal.ArchivedSession, w io.Writer) error {
	enc := json.NewEncoder(w)
	p := internal.MustPersona(session.Persona)

	for _, t := range session.Turns {
		if err := enc.Encode(line{Session: session.ID, message: newMessage(t, p)}); err != nil {
			return fmt.Errorf("failed to encode message: %w", err)
		}
	}

	return nil
}

// Extension returns the file extension for this format
func (e *JSONLExporter) Extension() string {
	return "jsonl"
}
