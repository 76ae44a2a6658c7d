package report

import (
	"bytes"
	"context"
	"strconv"

	"github.com/ibdtool/ibdtool/internal/page"
	"github.com/ibdtool/ibdtool/internal/tablespace"
)

// PageDiffClass classifies one page number's comparison between two
// tablespaces.
type PageDiffClass int

const (
	DiffIdentical PageDiffClass = iota
	DiffModified
	DiffOnlyInA
	DiffOnlyInB
)

// FieldChange is one FIL-header field that differs between A and B's
// copy of a page, surfaced only under --verbose.
type FieldChange struct {
	Field string
	A, B  string
}

// ByteRange is a run of consecutive differing bytes, surfaced only
// under --byte-ranges.
type ByteRange struct {
	Start, End int
}

// PageDiff is one page's diff_report entry.
type PageDiff struct {
	Page          int
	Class         PageDiffClass
	ChangedFields []FieldChange
	ByteRanges    []ByteRange
}

// DiffReport is diff_report's output.
type DiffReport struct {
	Identical int
	Modified  int
	OnlyInA   int
	OnlyInB   int
	ModifiedPages []PageDiff
	PageSizeWarning bool
}

// DiffOptions controls how much detail diff_report computes once a page
// is known to differ.
type DiffOptions struct {
	Verbose     bool
	ByteRanges  bool
}

// Diff runs diff_report(A, B): zip by page number over
// min(page_count_A, page_count_B), classify each page, and (on mismatch)
// compute field- or byte-level detail per opts.
func Diff(ctx context.Context, a, b *tablespace.Tablespace, opts DiffOptions) (*DiffReport, error) {
	report := &DiffReport{}

	if a.PageSize() != b.PageSize() {
		report.PageSizeWarning = true
		return diffHeadersOnly(a, b, report)
	}

	n := a.PageCount()
	if b.PageCount() < n {
		n = b.PageCount()
	}

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pa, err := a.ReadPage(i)
		if err != nil {
			return nil, err
		}
		pb, err := b.ReadPage(i)
		if err != nil {
			return nil, err
		}
		if bytes.Equal(pa, pb) {
			report.Identical++
			continue
		}
		report.Modified++
		pd := PageDiff{Page: i, Class: DiffModified}
		if opts.Verbose {
			pd.ChangedFields = diffHeaderFields(pa, pb)
		}
		if opts.ByteRanges {
			pd.ByteRanges = diffByteRanges(pa, pb)
		}
		report.ModifiedPages = append(report.ModifiedPages, pd)
	}

	if a.PageCount() > n {
		report.OnlyInA = a.PageCount() - n
	}
	if b.PageCount() > n {
		report.OnlyInB = b.PageCount() - n
	}
	return report, nil
}

// diffHeadersOnly handles the mismatched-page-size case: compare only
// the first 38 bytes per page.
func diffHeadersOnly(a, b *tablespace.Tablespace, report *DiffReport) (*DiffReport, error) {
	n := a.PageCount()
	if b.PageCount() < n {
		n = b.PageCount()
	}
	for i := 0; i < n; i++ {
		pa, err := a.ReadPage(i)
		if err != nil {
			return nil, err
		}
		pb, err := b.ReadPage(i)
		if err != nil {
			return nil, err
		}
		if bytes.Equal(pa[:page.FILHeaderSize], pb[:page.FILHeaderSize]) {
			report.Identical++
		} else {
			report.Modified++
			report.ModifiedPages = append(report.ModifiedPages, PageDiff{Page: i, Class: DiffModified})
		}
	}
	return report, nil
}

func diffHeaderFields(a, b []byte) []FieldChange {
	ha, errA := page.ParseHeader(a)
	hb, errB := page.ParseHeader(b)
	if errA != nil || errB != nil {
		return nil
	}
	var changes []FieldChange
	add := func(name, av, bv string) {
		if av != bv {
			changes = append(changes, FieldChange{Field: name, A: av, B: bv})
		}
	}
	add("checksum", u32s(ha.Checksum), u32s(hb.Checksum))
	add("page_number", u32s(uint32(ha.PageNumber)), u32s(uint32(hb.PageNumber)))
	add("prev", u32s(uint32(ha.Prev)), u32s(uint32(hb.Prev)))
	add("next", u32s(uint32(ha.Next)), u32s(uint32(hb.Next)))
	add("lsn", u64s(uint64(ha.LSN)), u64s(uint64(hb.LSN)))
	add("type", u32s(uint32(ha.RawType)), u32s(uint32(hb.RawType)))
	add("space_id", u32s(uint32(ha.SpaceID)), u32s(uint32(hb.SpaceID)))
	return changes
}

func diffByteRanges(a, b []byte) []ByteRange {
	var ranges []ByteRange
	inRange := false
	start := 0
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if !inRange {
				inRange = true
				start = i
			}
		} else if inRange {
			ranges = append(ranges, ByteRange{Start: start, End: i})
			inRange = false
		}
	}
	if inRange {
		ranges = append(ranges, ByteRange{Start: start, End: n})
	}
	return ranges
}

func u32s(v uint32) string { return strconv.FormatUint(uint64(v), 10) }
func u64s(v uint64) string { return strconv.FormatUint(v, 10) }
