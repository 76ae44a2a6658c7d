package report

import (
	"context"

	"github.com/ibdtool/ibdtool/internal/checksum"
	"github.com/ibdtool/ibdtool/internal/tablespace"
)

// PageChecksumResult is one page's classification within a
// checksum_report.
type PageChecksumResult struct {
	Page     int
	Status   checksum.Status
	Algorithm checksum.Algorithm
	Stored   uint32
	Computed uint32
	LSNMismatch bool
}

// ChecksumReport is checksum_report's output: per-page classification
// plus totals.
type ChecksumReport struct {
	TotalPages int
	Valid      int
	Invalid    int
	Empty      int
	InvalidPages []int
	Pages      []PageChecksumResult
}

// Checksum runs checksum_report: classify every page as Valid / Invalid
// / Empty / LsnMismatch, in parallel across the tablespace's pages.
func Checksum(ctx context.Context, ts *tablespace.Tablespace) (*ChecksumReport, error) {
	permitted := ts.VendorInfo().PermittedAlgorithms()

	results, err := forEachPageParallel(ctx, ts, func(n int, buf []byte) (PageChecksumResult, error) {
		res := checksum.Validate(buf, permitted)
		return PageChecksumResult{
			Page:        n,
			Status:      res.Status,
			Algorithm:   res.Algorithm,
			Stored:      res.Stored,
			Computed:    res.Computed,
			LSNMismatch: !checksum.LSNConsistent(buf),
		}, nil
	})
	if err != nil {
		return nil, err
	}

	report := &ChecksumReport{TotalPages: len(results), Pages: results}
	for _, r := range results {
		switch r.Status {
		case checksum.StatusValid:
			report.Valid++
		case checksum.StatusEmpty:
			report.Empty++
		case checksum.StatusInvalid:
			report.Invalid++
			report.InvalidPages = append(report.InvalidPages, r.Page)
		}
	}
	return report, nil
}
