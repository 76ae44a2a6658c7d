package commands

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ibdtool/ibdtool/internal/report"
)

func newRepairCommand(log *zap.Logger) *cobra.Command {
	var opts report.RepairOptions
	cmd := &cobra.Command{
		Use:   "repair <file>",
		Short: "Recompute and rewrite invalid page checksums in place",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := openTablespaceFromFlags(cmd, args[0])
			if err != nil {
				return err
			}
			defer ts.Close()

			auditLog, err := openAuditLogger(cmd)
			if err != nil {
				return err
			}
			if auditLog != nil {
				defer auditLog.Close()
				auditLog.SessionStart(append([]string{"repair"}, args...))
				defer auditLog.SessionEnd()
			}

			rep, err := report.Repair(cmd.Context(), args[0], ts, auditLog, opts)
			if err != nil {
				return err
			}
			log.Info("repair complete", zap.String("file", args[0]), zap.Int("changed", len(rep.Changed)), zap.Bool("dry_run", opts.DryRun))
			return writeReport(cmd, rep)
		},
	}
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "report what would change without mutating the file")
	cmd.Flags().BoolVar(&opts.NoBackup, "no-backup", false, "skip creating a .bak copy before mutating")
	return cmd
}
