package commands

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ibdtool/ibdtool/internal/report"
)

func newRebuildCommand(log *zap.Logger) *cobra.Command {
	var outPath string
	var force bool
	cmd := &cobra.Command{
		Use:   "rebuild <file>",
		Short: "Rebuild a tablespace from its Intact (optionally + Corrupt) pages into a fresh output file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := openTablespaceFromFlags(cmd, args[0])
			if err != nil {
				return err
			}
			defer ts.Close()

			recovery, err := report.Recover(cmd.Context(), ts, report.RecoverOptions{Force: force})
			if err != nil {
				return err
			}

			auditLog, err := openAuditLogger(cmd)
			if err != nil {
				return err
			}
			if auditLog != nil {
				defer auditLog.Close()
				auditLog.SessionStart(append([]string{"rebuild"}, args...))
				defer auditLog.SessionEnd()
			}

			if err := report.Rebuild(cmd.Context(), ts, recovery, force, outPath); err != nil {
				return err
			}
			if auditLog != nil {
				auditLog.FileWrite(outPath)
			}
			log.Info("rebuild complete", zap.String("source", args[0]), zap.String("output", outPath))
			return nil
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "", "rebuilt output file path")
	cmd.Flags().BoolVar(&force, "force", false, "seed the rebuild from Corrupt pages in addition to Intact ones")
	cmd.MarkFlagRequired("out")
	return cmd
}
