package report

import (
	"fmt"

	"github.com/ibdtool/ibdtool/internal/compression"
	"github.com/ibdtool/ibdtool/internal/record"
	"github.com/ibdtool/ibdtool/internal/tablespace"
	"github.com/ibdtool/ibdtool/internal/vendor"
)

// Severity is a compat_report finding's severity.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "Error"
	case SeverityWarning:
		return "Warning"
	default:
		return "Info"
	}
}

// Finding is one compat_report entry.
type Finding struct {
	Severity Severity
	Check    string
	Detail   string
}

// CompatReport is compat_report's output.
type CompatReport struct {
	TargetVersion uint32
	Findings      []Finding
}

// CompatOptions parameterizes compat_report with facts the tablespace
// decoder alone can't surface (a row format or instant-column claim
// normally comes from SDI, but a caller may already have it in hand from
// a schema dump).
type CompatOptions struct {
	RowFormat      string // "REDUNDANT", "COMPACT", "DYNAMIC", "COMPRESSED"
	HasInstantCols bool
	SDI            []record.SDIObject

	// CompressionAlgorithm is the MariaDB page-compression codec sampled
	// from a page body (compression.Detect), when the tablespace's FSP
	// flags declare page compression in use. AlgorithmNone if the
	// tablespace isn't page-compressed or the caller never sampled it.
	CompressionAlgorithm compression.Algorithm
}

// versionAtLeast compares dotted MySQL-style version numbers encoded as
// v*10000 + r*100 + p (e.g. 8.0.0 -> 80000).
func versionAtLeast(v, threshold uint32) bool { return v >= threshold }

// Compat runs compat_report: emit Error/Warning/Info findings for page
// size, SDI presence, encryption, vendor, row format, compression, and
// instant columns against a version-threshold table.
func Compat(ts *tablespace.Tablespace, targetVersion uint32, opts CompatOptions) *CompatReport {
	report := &CompatReport{TargetVersion: targetVersion}
	add := func(sev Severity, check, detail string) {
		report.Findings = append(report.Findings, Finding{Severity: sev, Check: check, Detail: detail})
	}

	info := ts.VendorInfo()

	if info.Vendor == vendor.VendorMariaDB {
		add(SeverityError, "vendor", "MariaDB tablespace is incompatible with any MySQL target")
	}

	if versionAtLeast(targetVersion, 80000) && len(opts.SDI) == 0 {
		add(SeverityError, "sdi", "SDI metadata required at MySQL 8.0 and above but none was found")
	}

	if ts.IsEncrypted() && info.Vendor == vendor.VendorMariaDB {
		add(SeverityWarning, "encryption", "MariaDB encryption key derivation differs from MySQL/Percona")
	}

	switch opts.RowFormat {
	case "COMPRESSED":
		if versionAtLeast(targetVersion, 80400) {
			add(SeverityWarning, "row_format", "ROW_FORMAT=COMPRESSED is deprecated at MySQL 8.4 and above")
		}
	case "REDUNDANT":
		if versionAtLeast(targetVersion, 90000) {
			add(SeverityWarning, "row_format", "ROW_FORMAT=REDUNDANT is deprecated at MySQL 9.0 and above")
		}
	}

	if opts.HasInstantCols && !versionAtLeast(targetVersion, 80000) {
		add(SeverityError, "instant_columns", "instant ADD COLUMN metadata requires MySQL 8.0 or above")
	}

	if info.Vendor == vendor.VendorPercona && versionAtLeast(targetVersion, 80000) {
		add(SeverityInfo, "vendor", "Percona Server tablespace; expect MySQL-compatible on-disk format with vendor-specific extensions")
	}

	pageSize := ts.PageSize()
	if pageSize != 16384 {
		add(SeverityInfo, "page_size", "non-default page size; confirm target innodb_page_size matches")
	}
	if ts.PageSizeDetected() {
		add(SeverityInfo, "page_size", "page size heuristically detected from the candidate-size fallback, not an explicit override")
	}

	if info.PageCompressionFlagSet() {
		switch algo := opts.CompressionAlgorithm; {
		case algo == compression.AlgorithmNone:
			add(SeverityWarning, "compression", "MariaDB page-compression flag is set but no algorithm could be identified from sampled page data")
		case algo.Decodable():
			add(SeverityInfo, "compression", fmt.Sprintf("MariaDB page compression (%s) is fully supported by this tool", algo))
		default:
			add(SeverityWarning, "compression", fmt.Sprintf("MariaDB page compression (%s) is detected but not decoded by this tool", algo))
		}
	}

	return report
}
