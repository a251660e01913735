package cmd

import (
	"fmt"

	"github.com/iksnae/fale-com-deus/internal"
	"github.com/spf13/cobra"
)

// reflectCmd represents the reflect command
var reflectCmd = &cobra.Command{
	Use:   "reflect [persona]",
	Short: "Print a short daily reflection",
	Long: `Ask the guide for a short reflection in the voice of a path.

Without an argument the path of the active conversation is used, then the
last chosen path.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		var p internal.Persona
		switch {
		case len(args) == 1:
			p, err = internal.ParsePersona(args[0])
			if err != nil {
				return err
			}
		case a.restored.Active != nil:
			p = internal.MustPersona(a.restored.Active.Persona)
		default:
			p = internal.MustPersona(a.store.PreferredPersona())
		}

		var text string
		err = a.printer.Spin(cmd.Context(), fmt.Sprintf("Buscando uma reflexão (%s)...", p.Name), func() error {
			text = a.gateway.GenerateReflection(cmd.Context(), p)
			return nil
		})
		if err != nil {
			return err
		}

		styles := newChatStyles(a.theme)
		fmt.Fprintln(cmd.OutOrStdout(), styles.speaker.Render(p.Label()))
		fmt.Fprintln(cmd.OutOrStdout(), styles.reflection.Render(text))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reflectCmd)
}
