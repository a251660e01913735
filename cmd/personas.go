package cmd

import (
	"github.com/spf13/cobra"
)

// personasCmd represents the personas command
var personasCmd = &cobra.Command{
	Use:     "personas",
	Aliases: []string{"paths"},
	Short:   "List the available spiritual paths",
	Long: `List the spiritual paths a conversation can follow.

The key, the name or the number shown can be passed to 'chat --persona'.
The path marked with ● is the one you chose last.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		newChatStyles(a.theme).renderPersonas(cmd.OutOrStdout(), a.store.PreferredPersona())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(personasCmd)
}
