package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/iksnae/fale-com-deus/internal"
)

// MarkdownExporter exports sessions in Markdown format
type MarkdownExporter struct{}

// Export exports a session to Markdown format
func (e *MarkdownExporter) Export(session internal.ArchivedSession, w io.Writer) error {
	p := internal.MustPersona(session.Persona)

	// Header
	_, _ = fmt.Fprintf(w, "# %s\n\n", escapeMarkdown(session.Title))
	_, _ = fmt.Fprintf(w, "**Caminho:** %s  \n", p.Label())
	_, _ = fmt.Fprintf(w, "**Data:** %s  \n", session.Date.Local().Format("02/01/2006 15:04"))
	_, _ = fmt.Fprintf(w, "**Mensagens:** %d  \n", len(session.Turns))
	_, _ = fmt.Fprintf(w, "**ID:** %s\n\n", session.ID)

	_, _ = fmt.Fprintf(w, "---\n\n")

	for i, t := range session.Turns {
		_, _ = fmt.Fprintf(w, "**%s** (%s)\n\n", speaker(t.Role, p), t.Timestamp.Local().Format("15:04"))

		if t.Audio != nil {
			_, _ = fmt.Fprintf(w, "> 🎤 Mensagem de voz (%s, %d bytes)\n\n", t.Audio.MimeType, len(t.Audio.Data))
		}
		if t.Text != "" {
			text := escapeMarkdown(t.Text)
			if t.IsError {
				text = "_" + text + "_"
			}
			_, _ = fmt.Fprintf(w, "%s\n\n", text)
		}

		// Add horizontal rule after each message (except the last one)
		if i < len(session.Turns)-1 {
			_, _ = fmt.Fprintf(w, "---\n\n")
		}
	}

	return nil
}

// escapeMarkdown escapes bold/underline markers outside code blocks
func escapeMarkdown(text string) string {
	lines := strings.Split(text, "\n")
	result := make([]string, 0, len(lines))
	inCodeBlock := false

	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "```"):
			inCodeBlock = !inCodeBlock
		case !inCodeBlock:
			line = strings.ReplaceAll(line, "**", "\\*\\*")
			line = strings.ReplaceAll(line, "__", "\\_\\_")
		}
		result = append(result, line)
	}

	return strings.Join(result, "\n")
}

// Extension returns the file extension for this format
func (e *MarkdownExporter) Extension() string {
	return "md"
}
