// Command ibdtool is the offline InnoDB tablespace and redo-log toolkit:
// checksum/diff/recover/verify/compat/health reports plus the repair,
// defrag, transplant, and rebuild write-path operations, all dispatched
// through one cobra command tree.
package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/ibdtool/ibdtool/cmd/ibdtool/commands"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, "ibdtool: failed to initialize logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	root := commands.NewRootCommand(logger)
	if err := root.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
