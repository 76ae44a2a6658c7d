package commands

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ibdtool/ibdtool/internal/report"
)

func newDefragCommand(log *zap.Logger) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "defrag <file>",
		Short: "Renumber and rewrite pages into a defragmented output file, leaving the source untouched",
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
				auditLog.SessionStart(append([]string{"defrag"}, args...))
				defer auditLog.SessionEnd()
			}

			if err := report.Defrag(cmd.Context(), ts, outPath); err != nil {
				return err
			}
			if auditLog != nil {
				auditLog.FileWrite(outPath)
			}
			log.Info("defrag complete", zap.String("source", args[0]), zap.String("output", outPath))
			return nil
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "", "defragmented output file path")
	cmd.MarkFlagRequired("out")
	return cmd
}
