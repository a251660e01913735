package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/fale-com-deus/internal"
)

// chatStyles are the lipgloss styles derived from a theme palette
type chatStyles struct {
	header     lipgloss.Style
	title      lipgloss.Style
	muted      lipgloss.Style
	user       lipgloss.Style
	model      lipgloss.Style
	speaker    lipgloss.Style
	failure    lipgloss.Style
	reflection lipgloss.Style
	id         lipgloss.Style
	count      lipgloss.Style
}

func newChatStyles(th internal.Theme) chatStyles {
	p := th.Palette
	return chatStyles{
		header: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.Primary).
			Padding(0, 1),
		title: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.Accent),
		muted: lipgloss.NewStyle().
			Foreground(p.Muted),
		user: lipgloss.NewStyle().
			Foreground(p.UserText).
			Background(p.UserBubble).
			Padding(0, 1),
		model: lipgloss.NewStyle().
			Foreground(p.Text).
			Padding(0, 1),
		speaker: lipgloss.NewStyle().
			Foreground(p.Accent).
			Bold(true),
		failure: lipgloss.NewStyle().
			Foreground(p.Error).
			Italic(true).
			Padding(0, 1),
		reflection: lipgloss.NewStyle().
			Foreground(p.Reflection).
			Italic(true).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(p.Border).
			Padding(0, 1),
		id: lipgloss.NewStyle().
			Foreground(p.Muted).
			Italic(true),
		count: lipgloss.NewStyle().
			Foreground(p.Primary).
			Bold(true),
	}
}

// renderTurn writes one finished turn
func (s chatStyles) renderTurn(w io.Writer, t internal.Turn, p internal.Persona) {
	stamp := s.muted.Render(t.Timestamp.Local().Format("15:04"))
	if t.Role == internal.RoleUser {
		fmt.Fprintf(w, "%s %s\n", s.speaker.Render("Você"), stamp)
		if t.Audio != nil {
			fmt.Fprintln(w, s.user.Render(fmt.Sprintf("🎤 %s (%s)", internal.VoicePreview, t.Audio.MimeType)))
		}
		if t.Text != "" {
			fmt.Fprintln(w, s.user.Render(t.Text))
		}
		fmt.Fprintln(w)
		return
	}

	fmt.Fprintf(w, "%s %s\n", s.speaker.Render(p.Label()), stamp)
	if t.IsError {
		fmt.Fprintln(w, s.failure.Render(t.Text))
	} else {
		fmt.Fprintln(w, s.model.Render(t.Text))
	}
	fmt.Fprintln(w)
}

// renderConversation writes a header and every turn of conv
func (s chatStyles) renderConversation(w io.Writer, conv *internal.Conversation) {
	p := internal.MustPersona(conv.Persona)
	fmt.Fprintln(w, s.header.Render(p.Label()))
	fmt.Fprintln(w, s.muted.Render(p.Description))
	fmt.Fprintln(w)
	for _, t := range conv.Turns {
		s.renderTurn(w, t, p)
	}
}

// renderPersonas writes the numbered persona selector. The preferred persona
// is marked.
func (s chatStyles) renderPersonas(w io.Writer, preferred internal.PersonaID) {
	fmt.Fprintln(w, s.header.Render("Escolha seu caminho"))
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for i, p := range internal.Personas() {
		mark := " "
		if p.ID == preferred {
			mark = "●"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%2d\t%s\t%s\t%s\n", mark, i+1, p.Label(), s.id.Render(p.Key), s.muted.Render(p.Description))
	}
	_ = tw.Flush()
	fmt.Fprintln(w)
}

// renderTopics writes the conversation starters
func (s chatStyles) renderTopics(w io.Writer) {
	fmt.Fprintln(w, s.title.Render("Sugestões para começar:"))
	for i, topic := range internal.InitialTopics {
		fmt.Fprintf(w, "  %s %s\n", s.muted.Render(fmt.Sprintf("/topic %d", i+1)), topic)
	}
	fmt.Fprintln(w)
}

// renderArchive writes the archive as a table, most recent first
func (s chatStyles) renderArchive(w io.Writer, archive []internal.ArchivedSession) {
	if len(archive) == 0 {
		fmt.Fprintln(w, s.header.Render("📜 Nenhuma conversa arquivada"))
		return
	}

	fmt.Fprintln(w, s.header.Render(fmt.Sprintf("📜 %d conversa(s) arquivada(s)", len(archive))))
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(tw, s.title.Render("ID")+"\t"+s.title.Render("Título")+"\t"+s.title.Render("Caminho")+"\t"+s.title.Render("Mensagens")+"\t"+s.title.Render("Data")+"\t")
	_, _ = fmt.Fprintln(tw, strings.Repeat("─", 90))

	now := time.Now()
	for _, entry := range archive {
		p := internal.MustPersona(entry.Persona)
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n",
			s.id.Render(shortID(entry.ID)),
			entry.Title,
			p.Label(),
			s.count.Render(strconv.Itoa(len(entry.Turns))),
			s.muted.Render(relativeDate(entry.Date, now)),
		)
	}
	_ = tw.Flush()
}

// shortID keeps ids readable in tables; lookups accept any unique prefix
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func relativeDate(t, now time.Time) string {
	t = t.Local()
	diff := now.Sub(t)
	switch {
	case diff < 24*time.Hour:
		return t.Format("Hoje 15:04")
	case diff < 7*24*time.Hour:
		return t.Format("02/01 15:04")
	default:
		return t.Format("02/01/2006")
	}
}
