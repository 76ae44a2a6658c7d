package commands

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ibdtool/ibdtool/internal/ibderrors"
	"github.com/ibdtool/ibdtool/internal/report"
)

func newTransplantCommand(log *zap.Logger) *cobra.Command {
	var opts report.TransplantOptions
	var pagesRaw string
	cmd := &cobra.Command{
		Use:   "transplant <donor> <target>",
		Short: "Copy specific pages from a donor tablespace into a target file in place",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pages, err := parsePageList(pagesRaw)
			if err != nil {
				return err
			}

			donor, err := openTablespaceFromFlags(cmd, args[0])
			if err != nil {
				return err
			}
			defer donor.Close()

			target, err := openTablespaceFromFlags(cmd, args[1])
			if err != nil {
				return err
			}
			defer target.Close()

			auditLog, err := openAuditLogger(cmd)
			if err != nil {
				return err
			}
			if auditLog != nil {
				defer auditLog.Close()
				auditLog.SessionStart(append([]string{"transplant"}, args...))
				defer auditLog.SessionEnd()
			}

			if err := report.Transplant(donor, target, args[1], pages, opts); err != nil {
				return err
			}
			for _, p := range pages {
				if auditLog != nil {
					auditLog.PageWrite(args[1], p, "")
				}
			}
			log.Info("transplant complete", zap.String("donor", args[0]), zap.String("target", args[1]), zap.Int("pages", len(pages)))
			return nil
		},
	}
	cmd.Flags().StringVar(&pagesRaw, "pages", "", "comma-separated page numbers to transplant")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "override page-size/space_id/checksum/page-0 precondition checks")
	cmd.MarkFlagRequired("pages")
	return cmd
}

func parsePageList(raw string) ([]int, error) {
	var pages []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, ibderrors.Argument("invalid page number %q in --pages", part)
		}
		pages = append(pages, n)
	}
	if len(pages) == 0 {
		return nil, ibderrors.Argument("--pages must name at least one page number")
	}
	return pages, nil
}
