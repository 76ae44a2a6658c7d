package commands

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ibdtool/ibdtool/internal/report"
)

func newDiffCommand(log *zap.Logger) *cobra.Command {
	var opts report.DiffOptions
	cmd := &cobra.Command{
		Use:   "diff <file-a> <file-b>",
		Short: "Compare two tablespace images page by page (diff_report)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openTablespaceFromFlags(cmd, args[0])
			if err != nil {
				return err
			}
			defer a.Close()
			b, err := openTablespaceFromFlags(cmd, args[1])
			if err != nil {
				return err
			}
			defer b.Close()

			rep, err := report.Diff(cmd.Context(), a, b, opts)
			if err != nil {
				return err
			}
			log.Info("diff_report complete",
				zap.Int("identical", rep.Identical),
				zap.Int("modified", rep.Modified),
				zap.Int("only_in_a", rep.OnlyInA),
				zap.Int("only_in_b", rep.OnlyInB))
			return writeReport(cmd, rep)
		},
	}
	cmd.Flags().BoolVar(&opts.Verbose, "verbose", false, "report changed FIL-header fields per modified page")
	cmd.Flags().BoolVar(&opts.ByteRanges, "byte-ranges", false, "report differing byte ranges per modified page")
	return cmd
}
