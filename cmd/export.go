package cmd

import (
	"fmt"
	"strings"

	"github.com/iksnae/fale-com-deus/internal"
	"github.com/iksnae/fale-com-deus/internal/export"
	"github.com/spf13/cobra"
)

var (
	format      string
	outputDir   string
	exportForce bool
	clearExport bool
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export [id]",
	Short: "Export archived conversations to files",
	Long: `Export archived conversations to one of: ` + strings.Join(export.Formats, ", ") + `.

Each conversation is written to its own file and a sessions.yaml index is kept
in the output directory. Conversations already exported unchanged are skipped
unless --force is given. Pass an ID to export a single conversation.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		exporter, err := export.NewExporter(format)
		if err != nil {
			return err
		}

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		dir := outputDir
		if dir == "" {
			dir = a.paths.ExportDir
		}
		writer := export.NewDirWriter(dir, exporter)

		if clearExport {
			if err := writer.Clear(); err != nil {
				a.printer.Warning(fmt.Sprintf("Failed to clear previous export: %v", err))
			} else {
				internal.LogInfo("Cleared previous export in %s", dir)
			}
		}

		if len(args) == 1 {
			session, err := a.store.FindArchived(args[0])
			if err != nil {
				return fmt.Errorf("%w: %s (use 'fale-com-deus history list' to see archived conversations)", err, args[0])
			}
			path, err := writer.WriteSession(session)
			if err != nil {
				return err
			}
			a.printer.Success(fmt.Sprintf("Exported %q to %s", session.Title, path))
			return nil
		}

		sessions := a.store.LoadArchive()
		if len(sessions) == 0 {
			a.printer.Info("Nothing to export: the archive is empty")
			return nil
		}

		var result export.Result
		err = a.printer.Spin(cmd.Context(), fmt.Sprintf("Exporting %d conversation(s) to %s", len(sessions), dir), func() error {
			var werr error
			result, werr = writer.WriteAll(sessions, exportForce)
			return werr
		})
		if err != nil {
			return err
		}

		msg := fmt.Sprintf("Export complete: %d written, %d unchanged", result.Written, result.Skipped)
		if result.Failed > 0 {
			a.printer.Warning(fmt.Sprintf("%s, %d failed", msg, result.Failed))
			return fmt.Errorf("%d conversation(s) failed to export", result.Failed)
		}
		a.printer.Success(msg)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&format, "format", "f", "md", "Export format ("+strings.Join(export.Formats, ", ")+")")
	exportCmd.Flags().StringVarP(&outputDir, "out", "o", "", "Output directory (default ~/.fale-com-deus/exports)")
	exportCmd.Flags().BoolVar(&exportForce, "force", false, "Rewrite conversations even when unchanged")
	exportCmd.Flags().BoolVar(&clearExport, "clear", false, "Remove the previous export before writing")
}
