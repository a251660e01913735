package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/iksnae/fale-com-deus/internal"
	"github.com/spf13/cobra"
)

var chatPersona string

const chatHelp = `Start an interactive conversation with a spiritual guide.

The last conversation is resumed when there is one; otherwise you pick a path.
Type a message and press Enter. Lines starting with / are commands:

  /persona KEY      switch path (the current conversation is archived)
  /personas         list the available paths
  /history          list archived conversations
  /restore ID       resume an archived conversation
  /delete ID        delete an archived conversation
  /audio FILE [txt] send a voice message, optionally with text
  /topic N          send one of the suggested topics
  /reflect          a short reflection for the current path
  /theme ID         change the color theme
  /exit             archive the conversation and go back to the path choice
  /quit             leave; the conversation is kept for next time

Ctrl-C while the guide is answering interrupts the answer.`

// chatCmd represents the chat command
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start or resume a conversation",
	Long:  chatHelp,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if !a.gateway.Configured() {
			a.printer.Warning(fmt.Sprintf("AI gateway not configured: %s", a.gateway.Describe()))
		}

		s := newChatSession(a, cmd.InOrStdin(), cmd.OutOrStdout())
		return s.run(cmd.Context(), chatPersona)
	},
}

// chatSession is one run of the interactive loop
type chatSession struct {
	app    *app
	ctrl   *internal.Controller
	in     *bufio.Scanner
	out    io.Writer
	styles chatStyles

	mu      sync.Mutex
	printed int
}

func newChatSession(a *app, in io.Reader, out io.Writer) *chatSession {
	s := &chatSession{
		app:    a,
		in:     bufio.NewScanner(in),
		out:    out,
		styles: newChatStyles(a.theme),
	}
	s.in.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	s.ctrl = a.newController(internal.WithFragmentHook(s.onFragment))
	return s
}

// errQuit ends the loop
var errQuit = errors.New("quit")

func (s *chatSession) run(ctx context.Context, persona string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	s.ctrl.Start(ctx, s.app.restored)

	if persona != "" {
		p, err := internal.ParsePersona(persona)
		if err != nil {
			return err
		}
		if err := s.ctrl.SwitchPersona(ctx, p.ID); err != nil {
			return err
		}
	}

	s.showCurrent()

	for {
		fmt.Fprint(s.out, s.styles.title.Render("› "))
		if !s.in.Scan() {
			fmt.Fprintln(s.out)
			return s.in.Err()
		}
		line := strings.TrimSpace(s.in.Text())
		if line == "" {
			continue
		}

		err := s.handle(ctx, line)
		switch {
		case errors.Is(err, errQuit):
			return nil
		case err != nil:
			s.app.printer.Error(err.Error())
		}
	}
}

// showCurrent renders the active conversation or the persona selector
func (s *chatSession) showCurrent() {
	if conv := s.ctrl.Conversation(); conv != nil {
		s.styles.renderConversation(s.out, conv)
		if len(conv.Turns) == 1 {
			s.styles.renderTopics(s.out)
		}
		return
	}
	s.styles.renderPersonas(s.out, s.app.store.PreferredPersona())
	fmt.Fprintln(s.out, s.styles.muted.Render("Digite o número ou o nome de um caminho."))
}

func (s *chatSession) handle(ctx context.Context, line string) error {
	if !strings.HasPrefix(line, "/") {
		if s.ctrl.State() == internal.StateAwaitingPersonaChoice {
			return s.choose(ctx, line)
		}
		return s.submit(ctx, line, nil)
	}

	name, arg, _ := strings.Cut(line[1:], " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(name) {
	case "quit", "q":
		return errQuit
	case "help", "?":
		fmt.Fprintln(s.out, chatHelp)
	case "personas":
		s.styles.renderPersonas(s.out, s.app.store.PreferredPersona())
	case "persona":
		if arg == "" {
			return errors.New("usage: /persona KEY")
		}
		return s.choose(ctx, arg)
	case "history":
		s.styles.renderArchive(s.out, s.app.store.LoadArchive())
		fmt.Fprintln(s.out)
	case "restore":
		session, err := s.app.store.FindArchived(arg)
		if err != nil {
			return fmt.Errorf("%w: %s", err, arg)
		}
		if err := s.ctrl.RestoreArchivedSession(ctx, session); err != nil {
			return err
		}
		s.showCurrent()
	case "delete":
		session, err := s.app.store.FindArchived(arg)
		if err != nil {
			return fmt.Errorf("%w: %s", err, arg)
		}
		if err := s.app.store.DeleteArchiveEntry(session.ID); err != nil {
			return err
		}
		s.app.printer.Success(fmt.Sprintf("Conversa %q apagada", session.Title))
	case "exit":
		if err := s.ctrl.ExitToNeutral(); err != nil {
			return err
		}
		s.showCurrent()
	case "theme":
		th, err := internal.ParseTheme(arg)
		if err != nil {
			return err
		}
		if err := s.app.setTheme(th.ID); err != nil {
			return err
		}
		s.styles = newChatStyles(s.app.theme)
		s.app.printer.Success(fmt.Sprintf("Tema: %s", th.Name))
	case "reflect":
		return s.reflect(ctx)
	case "topic":
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 || n > len(internal.InitialTopics) {
			return fmt.Errorf("usage: /topic 1-%d", len(internal.InitialTopics))
		}
		return s.submit(ctx, internal.InitialTopics[n-1], nil)
	case "audio":
		file, text, _ := strings.Cut(arg, " ")
		if file == "" {
			return errors.New("usage: /audio FILE [text]")
		}
		audio, err := readAudio(file)
		if err != nil {
			return err
		}
		return s.submit(ctx, text, audio)
	default:
		return fmt.Errorf("unknown command /%s (try /help)", name)
	}
	return nil
}

func (s *chatSession) choose(ctx context.Context, input string) error {
	p, err := internal.ParsePersona(input)
	if err != nil {
		return err
	}
	if err := s.ctrl.SwitchPersona(ctx, p.ID); err != nil {
		return err
	}
	s.showCurrent()
	return nil
}

func (s *chatSession) submit(ctx context.Context, text string, audio *internal.Audio) error {
	if s.ctrl.State() != internal.StateReady {
		return errors.New("escolha um caminho primeiro (/personas)")
	}
	p, _ := s.ctrl.Persona()

	s.mu.Lock()
	s.printed = 0
	s.mu.Unlock()
	fmt.Fprintf(s.out, "%s\n", s.styles.speaker.Render(p.Label()))

	turnCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	reply, err := s.ctrl.SubmitTurn(turnCtx, text, audio)
	stop()
	if err != nil {
		return err
	}

	s.mu.Lock()
	streamed := s.printed > 0
	s.mu.Unlock()
	if streamed {
		fmt.Fprintln(s.out)
	}
	if reply.IsError {
		fmt.Fprintln(s.out, s.styles.failure.Render(reply.Text))
	}
	fmt.Fprintln(s.out)
	return nil
}

// onFragment prints the part of the growing reply not yet on screen
func (s *chatSession) onFragment(t internal.Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(t.Text) <= s.printed {
		return
	}
	fmt.Fprint(s.out, t.Text[s.printed:])
	s.printed = len(t.Text)
}

func (s *chatSession) reflect(ctx context.Context) error {
	var text string
	err := s.app.printer.Spin(ctx, "Buscando uma reflexão...", func() error {
		text = s.ctrl.Reflection(ctx)
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, s.styles.reflection.Render("✧ "+text))
	fmt.Fprintln(s.out)
	return nil
}

// readAudio loads a voice message, guessing its media type from the extension
func readAudio(path string) (*internal.Audio, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("audio file %s is empty", path)
	}
	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = mimeType[:i]
	}
	if !strings.HasPrefix(mimeType, "audio/") {
		mimeType = internal.DefaultAudioMimeType
	}
	return &internal.Audio{Data: data, MimeType: mimeType}, nil
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringVarP(&chatPersona, "persona", "p", "", "Start (or switch to) this path: key, name or number")
}
