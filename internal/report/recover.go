package report

import (
	"context"

	"github.com/ibdtool/ibdtool/internal/checksum"
	"github.com/ibdtool/ibdtool/internal/compression"
	"github.com/ibdtool/ibdtool/internal/page"
	"github.com/ibdtool/ibdtool/internal/record"
	"github.com/ibdtool/ibdtool/internal/tablespace"
)

// PageCondition classifies one page's recoverability.
type PageCondition int

const (
	ConditionIntact PageCondition = iota
	ConditionCorrupt
	ConditionEmpty
	ConditionUnreadable
)

func (c PageCondition) String() string {
	switch c {
	case ConditionIntact:
		return "Intact"
	case ConditionCorrupt:
		return "Corrupt"
	case ConditionEmpty:
		return "Empty"
	default:
		return "Unreadable"
	}
}

// PageRecovery is one page's recover_report entry.
type PageRecovery struct {
	Page                 int
	Condition            PageCondition
	UserRecords          int
	HasUserRecords       bool
	CompressionAlgorithm compression.Algorithm // AlgorithmNone unless the tablespace declares page compression
}

// RecoverReport is recover_report's output.
type RecoverReport struct {
	TotalPages int
	Pages      []PageRecovery

	// PageSizeHeuristic is true when page 0 couldn't be trusted outright
	// and the page size driving this whole report came from the
	// candidate-size fallback rather than an explicit override.
	PageSizeHeuristic bool
}

// RecoverOptions controls recover_report's behavior.
type RecoverOptions struct {
	Force bool // walk record chains on Corrupt pages too
}

// Recover runs recover_report: classify each page Intact (checksum
// valid AND LSN consistent) / Corrupt (checksum or LSN wrong but header
// parseable) / Empty / Unreadable, counting user records on INDEX pages
// via the compact-chain walk.
func Recover(ctx context.Context, ts *tablespace.Tablespace, opts RecoverOptions) (*RecoverReport, error) {
	permitted := ts.VendorInfo().PermittedAlgorithms()
	vend := ts.VendorInfo()

	results, err := forEachPageParallel(ctx, ts, func(n int, buf []byte) (PageRecovery, error) {
		return classifyPage(buf, n, permitted, vend, opts)
	})
	if err != nil {
		return nil, err
	}
	return &RecoverReport{TotalPages: len(results), Pages: results, PageSizeHeuristic: ts.PageSizeDetected()}, nil
}

func classifyPage(buf []byte, n int, permitted []checksum.Algorithm, vend interface {
	ResolveAmbiguousType(page.Type) page.Type
	PageCompressionFlagSet() bool
}, opts RecoverOptions) (PageRecovery, error) {
	hdr, err := page.ParseHeader(buf)
	if err != nil {
		return PageRecovery{Page: n, Condition: ConditionUnreadable}, nil
	}

	res := checksum.Validate(buf, permitted)
	pr := PageRecovery{Page: n}

	switch res.Status {
	case checksum.StatusEmpty:
		pr.Condition = ConditionEmpty
		return pr, nil
	case checksum.StatusValid:
		if checksum.LSNConsistent(buf) {
			pr.Condition = ConditionIntact
		} else {
			pr.Condition = ConditionCorrupt
		}
	default:
		pr.Condition = ConditionCorrupt
	}

	if vend.PageCompressionFlagSet() && len(buf) > page.DataOffset {
		pr.CompressionAlgorithm = compression.Detect(buf[page.DataOffset:])
		if pr.Condition == ConditionIntact && !pageCompressionPlausible(pr.CompressionAlgorithm, buf[page.DataOffset:]) {
			pr.Condition = ConditionCorrupt
		}
	}

	shouldCount := pr.Condition == ConditionIntact || (pr.Condition == ConditionCorrupt && opts.Force)
	resolvedType := vend.ResolveAmbiguousType(page.FromRaw(hdr.RawType))
	if shouldCount && resolvedType == page.TypeIndex {
		ih, err := page.ParseIndexHeader(buf)
		if err == nil {
			format := record.RowFormatCompact
			if !ih.IsCompact {
				format = record.RowFormatRedundant
			}
			count, err := record.CountUserRecords(buf, record.InfimumOrigin(format), format)
			if err == nil {
				pr.HasUserRecords = true
				pr.UserRecords = count
			}
		}
	}
	return pr, nil
}

// pageCompressionPlausible reports whether body's leading bytes are
// consistent with a structurally sound stream for algo, beyond what the
// checksum alone can tell us (a page-compressed page's body can be
// checksum-valid on its FIL header/trailer while its compressed payload
// is itself garbage). Decodable algorithms are fully decompressed;
// detection-only ones are only checked for stream-structure plausibility,
// per the non-goal that this tool never fully decompresses them.
func pageCompressionPlausible(algo compression.Algorithm, body []byte) bool {
	switch algo {
	case compression.AlgorithmZlib:
		_, err := compression.InflateZlib(body)
		return err == nil
	case compression.AlgorithmLZ4:
		_, err := compression.DecodeLZ4(body)
		return err == nil
	case compression.AlgorithmZstd:
		_, err := compression.DecodeZstd(body)
		return err == nil
	case compression.AlgorithmSnappy:
		_, ok := compression.SnappyDecodedLen(body)
		return ok
	case compression.AlgorithmBzip2:
		// "BZh" is followed by the block-size digit '1'-'9'.
		return len(body) >= 4 && body[3] >= '1' && body[3] <= '9'
	default:
		// AlgorithmNone and AlgorithmLZO: LZO has no cheap structural
		// check available in this package, so it is reported but never
		// second-guessed.
		return true
	}
}
