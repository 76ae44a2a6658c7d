package commands

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ibdtool/ibdtool/internal/report"
)

func newRecoverCommand(log *zap.Logger) *cobra.Command {
	var opts report.RecoverOptions
	cmd := &cobra.Command{
		Use:   "recover <file>",
		Short: "Classify pages Intact/Corrupt/Empty/Unreadable and count salvageable records (recover_report)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := openTablespaceFromFlags(cmd, args[0])
			if err != nil {
				return err
			}
			defer ts.Close()

			rep, err := report.Recover(cmd.Context(), ts, opts)
			if err != nil {
				return err
			}
			log.Info("recover_report complete", zap.String("file", args[0]), zap.Int("total_pages", rep.TotalPages))
			return writeReport(cmd, rep)
		},
	}
	cmd.Flags().BoolVar(&opts.Force, "force", false, "also walk record chains on Corrupt INDEX pages")
	return cmd
}
