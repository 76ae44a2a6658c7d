// Package commands wires the report and write-path engine in
// internal/report onto a cobra command tree.
package commands

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewRootCommand builds the ibdtool command tree. log is used for
// progress/diagnostic output only; report results themselves are
// written to stdout (or --output) as JSON, independent of logging.
func NewRootCommand(log *zap.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:           "ibdtool",
		Short:         "Offline InnoDB tablespace and redo log toolkit",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().String("page-size", "", "override page size instead of auto-detecting")
	root.PersistentFlags().Var(&vendorFlag{}, "vendor", "override vendor detection: mysql, percona, or mariadb")
	root.PersistentFlags().String("keyring", "", "keyring_file path, for decrypting encrypted tablespaces")
	root.PersistentFlags().String("output", "", "write report JSON here instead of stdout")
	root.PersistentFlags().String("audit-log", "", "append write-path events to this NDJSON audit log")

	root.AddCommand(
		newChecksumCommand(log),
		newDiffCommand(log),
		newRecoverCommand(log),
		newVerifyCommand(log),
		newCompatCommand(log),
		newHealthCommand(log),
		newSDICommand(log),
		newRepairCommand(log),
		newDefragCommand(log),
		newTransplantCommand(log),
		newRebuildCommand(log),
	)
	return root
}
