package commands

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ibdtool/ibdtool/internal/report"
)

func newHealthCommand(log *zap.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health <file>",
		Short: "Per-index fill factor, fragmentation, and tree depth (health_report)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := openTablespaceFromFlags(cmd, args[0])
			if err != nil {
				return err
			}
			defer ts.Close()

			rep, err := report.Health(cmd.Context(), ts)
			if err != nil {
				return err
			}
			log.Info("health_report complete", zap.Int("indexes", len(rep.Indexes)))
			return writeReport(cmd, rep)
		},
	}
	return cmd
}
