package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/fale-com-deus/internal"
	"github.com/spf13/cobra"
)

// themeCmd represents the theme command
var themeCmd = &cobra.Command{
	Use:   "theme [id]",
	Short: "Show or change the color theme",
	Long: `Without an argument, list the themes and mark the active one.
With an argument, store it as the theme for the next sessions.

The theme in config.yaml, when set, takes precedence over the stored one.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if len(args) == 1 {
			th, err := internal.ParseTheme(args[0])
			if err != nil {
				return err
			}
			if err := a.setTheme(th.ID); err != nil {
				return err
			}
			if a.cfg.Theme != "" && a.cfg.Theme != th.ID {
				a.printer.Warning(fmt.Sprintf("config.yaml sets theme %q, which overrides the stored theme", a.cfg.Theme))
			}
			a.printer.Success(fmt.Sprintf("Theme set to %s", th.Name))
			return nil
		}

		out := cmd.OutOrStdout()
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		for _, th := range internal.Themes() {
			mark := " "
			if th.ID == a.theme.ID {
				mark = "●"
			}
			swatch := lipgloss.NewStyle().
				Foreground(th.Palette.UserText).
				Background(th.Palette.UserBubble).
				Padding(0, 1).
				Render(th.Name)
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", mark, th.ID, swatch)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(themeCmd)
}
