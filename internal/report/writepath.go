package report

import (
	"context"
	"encoding/binary"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/ibdtool/ibdtool/internal/audit"
	"github.com/ibdtool/ibdtool/internal/checksum"
	"github.com/ibdtool/ibdtool/internal/ibderrors"
	"github.com/ibdtool/ibdtool/internal/page"
	"github.com/ibdtool/ibdtool/internal/tablespace"
	"github.com/ibdtool/ibdtool/internal/types"
)

// writeChecksum stamps the page's checksum (and, for FullCRC32, the
// trailing 4 bytes in place of the FIL trailer's low LSN) for algo,
// returning whether the value changed.
func writeChecksum(buf []byte, algo checksum.Algorithm) (changed bool, err error) {
	computed, err := checksum.Compute(buf, algo)
	if err != nil {
		return false, err
	}
	if algo == checksum.AlgorithmFullCRC32 {
		off := len(buf) - 4
		old := binary.BigEndian.Uint32(buf[off:])
		if old == computed {
			return false, nil
		}
		binary.BigEndian.PutUint32(buf[off:], computed)
		return true, nil
	}
	old := binary.BigEndian.Uint32(buf[0:4])
	if old == computed {
		return false, nil
	}
	binary.BigEndian.PutUint32(buf[0:4], computed)
	return true, nil
}

func backupFile(path string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()
	dst, err := os.Create(path + ".bak")
	if err != nil {
		return err
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return err
	}
	return nil
}

// RepairOptions controls repair's behavior.
type RepairOptions struct {
	DryRun   bool
	NoBackup bool
}

// RepairedPage is one page repair touched or would touch.
type RepairedPage struct {
	Page      int
	Algorithm checksum.Algorithm
	OldValue  uint32
	NewValue  uint32
}

// RepairReport is repair's output.
type RepairReport struct {
	Changed []RepairedPage
}

// Repair runs repair: recompute each page's checksum under the
// tablespace's detected algorithm, rewriting mismatches in place
//. Under --dry-run nothing is written; under
// --no-backup no .bak copy is made first.
func Repair(ctx context.Context, path string, ts *tablespace.Tablespace, log *audit.Logger, opts RepairOptions) (*RepairReport, error) {
	permitted := ts.VendorInfo().PermittedAlgorithms()
	if len(permitted) == 0 {
		return nil, ibderrors.Parse("repair: no permitted checksum algorithm for this vendor")
	}
	algo := permitted[0]

	report := &RepairReport{}
	n := ts.PageCount()

	var f *os.File
	var err error
	if !opts.DryRun {
		if !opts.NoBackup {
			if err := backupFile(path); err != nil {
				return nil, err
			}
			if log != nil {
				log.BackupCreated(path + ".bak")
			}
		}
		f, err = os.OpenFile(path, os.O_RDWR, 0o644)
		if err != nil {
			return nil, err
		}
		defer f.Close()
	}
	var mu sync.Mutex

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		buf, err := ts.ReadPage(i)
		if err != nil {
			return nil, err
		}
		res := checksum.Validate(buf, permitted)
		if res.Status != checksum.StatusInvalid {
			continue
		}
		old := res.Stored
		changed, err := writeChecksum(buf, algo)
		if err != nil {
			return nil, err
		}
		if !changed {
			continue
		}
		computed, _ := checksum.Compute(buf, algo)
		report.Changed = append(report.Changed, RepairedPage{Page: i, Algorithm: algo, OldValue: old, NewValue: computed})

		if !opts.DryRun {
			mu.Lock()
			_, werr := f.WriteAt(buf, int64(i)*int64(ts.PageSize()))
			mu.Unlock()
			if werr != nil {
				return nil, werr
			}
			if log != nil {
				log.PageWrite(path, i, algo.String())
			}
		}
	}
	return report, nil
}

// TransplantOptions controls transplant's precondition checks.
type TransplantOptions struct {
	Force bool
}

// Transplant copies pages listed by number from donor into target,
// enforcing: identical page size and space_id (overridable with
// --force), checksum-valid donor pages (overridable), and page 0
// refused unless --force.
func Transplant(donor, target *tablespace.Tablespace, targetPath string, pages []int, opts TransplantOptions) error {
	if donor.PageSize() != target.PageSize() && !opts.Force {
		return ibderrors.Argument("transplant: donor and target page sizes differ")
	}
	if donor.SpaceID() != target.SpaceID() && !opts.Force {
		return ibderrors.Argument("transplant: donor and target space_id differ")
	}

	f, err := os.OpenFile(targetPath, os.O_RDWR, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	permitted := donor.VendorInfo().PermittedAlgorithms()
	for _, p := range pages {
		if p == 0 && !opts.Force {
			return ibderrors.Argument("transplant: page 0 transplant refused without --force")
		}
		buf, err := donor.ReadPage(p)
		if err != nil {
			return err
		}
		if !opts.Force {
			if res := checksum.Validate(buf, permitted); res.Status != checksum.StatusValid {
				return ibderrors.Argument("transplant: donor page %d is not checksum-valid", p)
			}
		}
		if _, err := f.WriteAt(buf, int64(p)*int64(target.PageSize())); err != nil {
			return err
		}
	}
	return nil
}

// rebuildablePage is one surviving page carried into defrag/rebuild.
type rebuildablePage struct {
	pageNum int
	buf     []byte
	indexID uint64
	level   uint16
	isIndex bool
}

// Defrag reads every page, discards Empty and Corrupt, sorts INDEX
// pages by (index_id, level, page_number), renumbers pages
// sequentially, rewrites prev/next chains within each (index_id, level)
// group into a contiguous list, synthesizes a fresh page 0, and
// recomputes every checksum. It never touches the source file.
func Defrag(ctx context.Context, ts *tablespace.Tablespace, outPath string) error {
	survivors, err := collectSurvivors(ctx, ts, nil)
	if err != nil {
		return err
	}
	return writeRebuilt(ts, survivors, outPath)
}

// Rebuild is recover --rebuild: same as Defrag but seeded only from
// pages classified Intact (or, under force, Intact + Corrupt).
func Rebuild(ctx context.Context, ts *tablespace.Tablespace, recovery *RecoverReport, force bool, outPath string) error {
	keep := make(map[int]bool, len(recovery.Pages))
	for _, pr := range recovery.Pages {
		if pr.Condition == ConditionIntact || (force && pr.Condition == ConditionCorrupt) {
			keep[pr.Page] = true
		}
	}
	survivors, err := collectSurvivors(ctx, ts, keep)
	if err != nil {
		return err
	}
	return writeRebuilt(ts, survivors, outPath)
}

func collectSurvivors(ctx context.Context, ts *tablespace.Tablespace, allow map[int]bool) ([]rebuildablePage, error) {
	permitted := ts.VendorInfo().PermittedAlgorithms()
	n := ts.PageCount()
	var survivors []rebuildablePage

	for i := 1; i < n; i++ { // page 0 is synthesized fresh, never carried over
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if allow != nil && !allow[i] {
			continue
		}
		buf, err := ts.ReadPage(i)
		if err != nil {
			continue
		}
		if checksum.IsAllZero(buf) {
			continue
		}
		res := checksum.Validate(buf, permitted)
		if allow == nil && res.Status != checksum.StatusValid {
			continue
		}
		hdr, err := page.ParseHeader(buf)
		if err != nil {
			continue
		}
		rp := rebuildablePage{pageNum: i, buf: append([]byte(nil), buf...)}
		resolved := ts.VendorInfo().ResolveAmbiguousType(page.FromRaw(hdr.RawType))
		if resolved == page.TypeIndex {
			if ih, err := page.ParseIndexHeader(buf); err == nil {
				rp.isIndex = true
				rp.indexID = ih.IndexID
				rp.level = ih.Level
			}
		}
		survivors = append(survivors, rp)
	}
	return survivors, nil
}

func writeRebuilt(ts *tablespace.Tablespace, survivors []rebuildablePage, outPath string) error {
	sort.SliceStable(survivors, func(i, j int) bool {
		a, b := survivors[i], survivors[j]
		if a.isIndex != b.isIndex {
			return a.isIndex && !b.isIndex
		}
		if a.indexID != b.indexID {
			return a.indexID < b.indexID
		}
		if a.level != b.level {
			return a.level < b.level
		}
		return a.pageNum < b.pageNum
	})

	pageSize := ts.PageSize()
	permitted := ts.VendorInfo().PermittedAlgorithms()
	algo := checksum.AlgorithmCRC32C
	if len(permitted) > 0 {
		algo = permitted[0]
	}

	// group boundaries by (index_id, level) among index pages, to
	// rewrite prev/next into a contiguous chain per group.
	type groupKey struct {
		indexID uint64
		level   uint16
	}
	groups := make(map[groupKey][]int) // slice positions, in final order

	for i, rp := range survivors {
		if rp.isIndex {
			k := groupKey{rp.indexID, rp.level}
			groups[k] = append(groups[k], i)
		}
	}

	for _, positions := range groups {
		for gi, pos := range positions {
			hdr, err := page.ParseHeader(survivors[pos].buf)
			if err != nil {
				continue
			}
			if gi == 0 {
				hdr.Prev = types.FILNull
			} else {
				hdr.Prev = types.PageNumber(positions[gi-1] + 1)
			}
			if gi == len(positions)-1 {
				hdr.Next = types.FILNull
			} else {
				hdr.Next = types.PageNumber(positions[gi+1] + 1)
			}
			page.PutHeader(survivors[pos].buf, hdr)
		}
	}

	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	fresh0 := make([]byte, pageSize)
	fsp, _ := page.ParseFSPHeader(mustPage0(ts))
	fsp.Size = uint32(len(survivors) + 1)
	page.PutFSPHeader(fresh0, fsp)
	hdr0 := page.Header{PageNumber: 0, SpaceID: ts.SpaceID(), RawType: uint16(page.TypeFSPHdr)}
	page.PutHeader(fresh0, hdr0)
	writeChecksum(fresh0, algo)
	if _, err := f.WriteAt(fresh0, 0); err != nil {
		return err
	}

	for i, rp := range survivors {
		hdr, _ := page.ParseHeader(rp.buf)
		hdr.PageNumber = types.PageNumber(i + 1)
		page.PutHeader(rp.buf, hdr)
		writeChecksum(rp.buf, algo)
		if _, err := f.WriteAt(rp.buf, int64(i+1)*int64(pageSize)); err != nil {
			return err
		}
	}
	return nil
}

func mustPage0(ts *tablespace.Tablespace) []byte {
	buf, err := ts.ReadPage(0)
	if err != nil {
		return make([]byte, ts.PageSize())
	}
	return buf
}
