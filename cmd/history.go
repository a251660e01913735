package cmd

import (
	"fmt"

	"github.com/iksnae/fale-com-deus/internal"
	"github.com/spf13/cobra"
)

var (
	showLimit int
	clearYes  bool
)

// historyCmd groups the archive subcommands
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage archived conversations",
	Long: `List, show and delete archived conversations.

A conversation is archived when you change path, leave it with /exit or
restore another one. IDs can be abbreviated to any unique prefix.`,
}

var historyListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List archived conversations",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		styles := newChatStyles(a.theme)
		styles.renderArchive(cmd.OutOrStdout(), a.store.LoadArchive())
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show the turns of an archived conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		session, err := a.store.FindArchived(args[0])
		if err != nil {
			return fmt.Errorf("%w: %s (use 'fale-com-deus history list' to see archived conversations)", err, args[0])
		}

		turns := session.Turns
		if showLimit > 0 && len(turns) > showLimit {
			turns = turns[len(turns)-showLimit:]
		}

		out := cmd.OutOrStdout()
		styles := newChatStyles(a.theme)
		p := internal.MustPersona(session.Persona)
		fmt.Fprintln(out, styles.header.Render(session.Title))
		fmt.Fprintln(out, styles.muted.Render(fmt.Sprintf("%s • %s • %d mensagens • %s",
			p.Label(), session.Date.Local().Format("02/01/2006 15:04"), len(session.Turns), session.ID)))
		fmt.Fprintln(out)
		for _, t := range turns {
			styles.renderTurn(out, t, p)
		}
		return nil
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete an archived conversation",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		session, err := a.store.FindArchived(args[0])
		if err != nil {
			return fmt.Errorf("%w: %s", err, args[0])
		}
		if err := a.store.DeleteArchiveEntry(session.ID); err != nil {
			return err
		}
		a.printer.Success(fmt.Sprintf("Deleted %q (%s)", session.Title, session.ID))
		return nil
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every archived conversation",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !clearYes {
			return fmt.Errorf("refusing to clear the archive without --yes")
		}
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		n := len(a.store.LoadArchive())
		if err := a.store.ClearArchive(); err != nil {
			return err
		}
		a.printer.Success(fmt.Sprintf("Cleared %d archived conversation(s)", n))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyDeleteCmd, historyClearCmd)
	historyShowCmd.Flags().IntVarP(&showLimit, "limit", "n", 0, "Show only the last N turns")
	historyClearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "Confirm clearing the archive")
}
