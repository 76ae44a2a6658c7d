package commands

import (
	"strings"

	"github.com/spf13/pflag"

	"github.com/ibdtool/ibdtool/internal/vendor"
)

// vendorFlag is a pflag.Value wrapping --vendor so cobra validates and
// echoes it the same way it does any other typed flag, rather than
// deferring the mysql/percona/mariadb check to RunE.
type vendorFlag struct {
	set bool
	v   vendor.Vendor
}

var _ pflag.Value = (*vendorFlag)(nil)

func (f *vendorFlag) String() string {
	if !f.set {
		return ""
	}
	return strings.ToLower(f.v.String())
}

func (f *vendorFlag) Set(raw string) error {
	v, err := parseVendorHint(raw)
	if err != nil {
		return err
	}
	f.v = v
	f.set = true
	return nil
}

func (f *vendorFlag) Type() string { return "vendor" }

func (f *vendorFlag) Pointer() *vendor.Vendor {
	if !f.set {
		return nil
	}
	return &f.v
}
