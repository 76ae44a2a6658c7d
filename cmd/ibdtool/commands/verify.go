package commands

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ibdtool/ibdtool/internal/ibderrors"
	"github.com/ibdtool/ibdtool/internal/redolog"
	"github.com/ibdtool/ibdtool/internal/report"
)

func newVerifyCommand(log *zap.Logger) *cobra.Command {
	var opts report.VerifyOptions
	var redoPath string
	cmd := &cobra.Command{
		Use:   "verify <file>",
		Short: "Run verify_report's structural consistency checks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := openTablespaceFromFlags(cmd, args[0])
			if err != nil {
				return err
			}
			defer ts.Close()

			if redoPath != "" {
				blocks, err := readCheckpointBlocks(redoPath)
				if err != nil {
					return err
				}
				opts.RedoCheckpointBlocks = blocks
			}

			rep, err := report.Verify(cmd.Context(), ts, opts)
			if err != nil {
				return err
			}
			log.Info("verify_report complete", zap.Int("passed", len(rep.Passed)), zap.Int("failed", len(rep.Failed)))
			return writeReport(cmd, rep)
		},
	}
	cmd.Flags().BoolVar(&opts.Chain, "chain", false, "additionally verify B-tree level consistency between sibling pages")
	cmd.Flags().Uint64Var(&opts.LSNTolerance, "lsn-tolerance", 0, "allowed LSN regression before flagging")
	cmd.Flags().StringVar(&redoPath, "redo", "", "compare against a redo log's latest checkpoint LSN (ib_logfile0/1 or an #ib_redoN file)")
	return cmd
}

// readCheckpointBlocks reads the two checkpoint blocks (file blocks 1
// and 3) from a redo log file at path, for verify's --redo mode.
func readCheckpointBlocks(path string) ([][]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ibderrors.IOWrap(err, "opening redo log %q", path)
	}
	defer f.Close()

	blocks := make([][]byte, 0, 2)
	for _, blockIndex := range []int64{1, 3} {
		buf := make([]byte, redolog.BlockSize)
		if _, err := f.ReadAt(buf, blockIndex*redolog.BlockSize); err != nil {
			return nil, ibderrors.IOWrap(err, "reading checkpoint block %d from %q", blockIndex, path)
		}
		blocks = append(blocks, buf)
	}
	return blocks, nil
}
