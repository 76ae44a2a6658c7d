package commands

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ibdtool/ibdtool/internal/audit"
	"github.com/ibdtool/ibdtool/internal/ibderrors"
	"github.com/ibdtool/ibdtool/internal/ioreader"
	"github.com/ibdtool/ibdtool/internal/keyring"
	"github.com/ibdtool/ibdtool/internal/tablespace"
	"github.com/ibdtool/ibdtool/internal/vendor"
)

// openTablespaceFromFlags opens path honoring the root command's
// persistent --page-size, --vendor, and --keyring overrides.
func openTablespaceFromFlags(cmd *cobra.Command, path string) (*tablespace.Tablespace, error) {
	opts := tablespace.Options{}

	if raw, _ := cmd.Flags().GetString("page-size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, ibderrors.Argument("invalid --page-size %q", raw)
		}
		opts.PageSize = n
	}

	if flag := cmd.Flags().Lookup("vendor"); flag != nil {
		if vf, ok := flag.Value.(*vendorFlag); ok {
			opts.VendorHint = vf.Pointer()
		}
	}

	if raw, _ := cmd.Flags().GetString("keyring"); raw != "" {
		data, err := os.ReadFile(raw)
		if err != nil {
			return nil, ibderrors.IOWrap(err, "reading keyring file %q", raw)
		}
		kr, err := keyring.Parse(data)
		if err != nil {
			return nil, err
		}
		opts.Keyring = kr
	}

	src, err := ioreader.OpenFile(path)
	if err != nil {
		return nil, ibderrors.IOWrap(err, "opening %q", path)
	}
	return tablespace.Open(src, opts)
}

func parseVendorHint(raw string) (vendor.Vendor, error) {
	switch strings.ToLower(raw) {
	case "mysql":
		return vendor.VendorMySQL, nil
	case "percona":
		return vendor.VendorPercona, nil
	case "mariadb":
		return vendor.VendorMariaDB, nil
	default:
		return vendor.VendorUnknown, ibderrors.Argument("unknown --vendor %q (want mysql, percona, or mariadb)", raw)
	}
}

// writeReport marshals v as indented JSON to --output, or stdout when
// unset, mirroring the JSON export path of ibdtool's teacher CLI.
func writeReport(cmd *cobra.Command, v interface{}) error {
	out := os.Stdout
	if path, _ := cmd.Flags().GetString("output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return ibderrors.IOWrap(err, "creating %q", path)
		}
		defer f.Close()
		out = f
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// openAuditLogger opens --audit-log if the caller supplied one; returns
// a nil *audit.Logger (a legal no-op receiver for Repair) otherwise.
func openAuditLogger(cmd *cobra.Command) (*audit.Logger, error) {
	path, _ := cmd.Flags().GetString("audit-log")
	if path == "" {
		return nil, nil
	}
	return audit.Open(path)
}
