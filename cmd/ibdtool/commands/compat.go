package commands

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ibdtool/ibdtool/internal/compression"
	"github.com/ibdtool/ibdtool/internal/page"
	"github.com/ibdtool/ibdtool/internal/record"
	"github.com/ibdtool/ibdtool/internal/report"
)

func newCompatCommand(log *zap.Logger) *cobra.Command {
	var opts report.CompatOptions
	var targetVersion uint32
	cmd := &cobra.Command{
		Use:   "compat <file>",
		Short: "Check a tablespace against a target server version (compat_report)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := openTablespaceFromFlags(cmd, args[0])
			if err != nil {
				return err
			}
			defer ts.Close()

			if opts.RowFormat == "" || !opts.HasInstantCols {
				if obj, err := extractSDI(ts); err == nil && len(obj) > 0 {
					opts.SDI = obj
					if opts.RowFormat == "" {
						opts.RowFormat = dominantRowFormat(obj)
					}
				}
			}

			if opts.CompressionAlgorithm == compression.AlgorithmNone && ts.VendorInfo().PageCompressionFlagSet() && ts.PageCount() > 1 {
				if buf, err := ts.ReadPage(1); err == nil && len(buf) > page.DataOffset {
					opts.CompressionAlgorithm = compression.Detect(buf[page.DataOffset:])
				}
			}

			rep := report.Compat(ts, targetVersion, opts)
			log.Info("compat_report complete", zap.Int("findings", len(rep.Findings)))
			return writeReport(cmd, rep)
		},
	}
	cmd.Flags().Uint32Var(&targetVersion, "target-version", 80000, "target server version, e.g. 80400 for MySQL 8.4")
	cmd.Flags().StringVar(&opts.RowFormat, "row-format", "", "override detected ROW_FORMAT")
	cmd.Flags().BoolVar(&opts.HasInstantCols, "instant-columns", false, "the table has INSTANT-added columns")
	return cmd
}

func dominantRowFormat(objs []record.SDIObject) string {
	for _, obj := range objs {
		if obj.Table != nil && obj.Table.RowFormat != "" {
			return obj.Table.RowFormat
		}
	}
	return ""
}
