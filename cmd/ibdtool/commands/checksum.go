package commands

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ibdtool/ibdtool/internal/report"
)

func newChecksumCommand(log *zap.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checksum <file>",
		Short: "Classify every page as Valid, Invalid, or Empty (checksum_report)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := openTablespaceFromFlags(cmd, args[0])
			if err != nil {
				return err
			}
			defer ts.Close()

			rep, err := report.Checksum(cmd.Context(), ts)
			if err != nil {
				return err
			}
			log.Info("checksum_report complete",
				zap.String("file", args[0]),
				zap.Int("valid", rep.Valid),
				zap.Int("invalid", rep.Invalid),
				zap.Int("empty", rep.Empty))
			return writeReport(cmd, rep)
		},
	}
	return cmd
}
