package report

import (
	"context"

	"github.com/ibdtool/ibdtool/internal/page"
	"github.com/ibdtool/ibdtool/internal/tablespace"
	"github.com/ibdtool/ibdtool/internal/types"
)

// IndexHealth is health_report's per-index_id entry.
type IndexHealth struct {
	IndexID        uint64
	FillFactor     float64
	Fragmentation  float64
	GarbageRatio   float64
	TreeDepth      int
	LeafCount      int
	InternalCount  int
}

// HealthReport is health_report's output.
type HealthReport struct {
	Indexes map[uint64]*IndexHealth
}

type leafInfo struct {
	pageNum int
	prev    types.PageNumber
	next    types.PageNumber
}

// Health computes, per index_id, fill factor, fragmentation,
// garbage ratio, tree depth, and leaf/internal page counts.
func Health(ctx context.Context, ts *tablespace.Tablespace) (*HealthReport, error) {
	n := ts.PageCount()
	pageSize := ts.PageSize()
	report := &HealthReport{Indexes: make(map[uint64]*IndexHealth)}

	leavesByIndex := make(map[uint64][]leafInfo)
	levelsByIndex := make(map[uint64]map[uint16]bool)

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		buf, err := ts.ReadPage(i)
		if err != nil {
			return nil, err
		}
		hdr, err := page.ParseHeader(buf)
		if err != nil {
			continue
		}
		resolved := ts.VendorInfo().ResolveAmbiguousType(page.FromRaw(hdr.RawType))
		if resolved != page.TypeIndex {
			continue
		}
		ih, err := page.ParseIndexHeader(buf)
		if err != nil {
			continue
		}

		ix := report.Indexes[ih.IndexID]
		if ix == nil {
			ix = &IndexHealth{IndexID: ih.IndexID}
			report.Indexes[ih.IndexID] = ix
			levelsByIndex[ih.IndexID] = make(map[uint16]bool)
		}
		levelsByIndex[ih.IndexID][ih.Level] = true

		usableStart := page.DataOffsetIndex
		usableEnd := pageSize - page.FILTrailerSize
		denom := usableEnd - usableStart
		if denom > 0 {
			fill := float64(int(ih.HeapTop)-usableStart-int(ih.Garbage)) / float64(denom)
			if fill < 0 {
				fill = 0
			}
			if fill > 1 {
				fill = 1
			}
			ix.FillFactor = (ix.FillFactor*float64(ix.LeafCount+ix.InternalCount) + fill) / float64(ix.LeafCount+ix.InternalCount+1)
		}

		heapSpan := int(ih.HeapTop) - usableStart
		if heapSpan > 0 {
			garbageRatio := float64(ih.Garbage) / float64(heapSpan)
			total := ix.LeafCount + ix.InternalCount
			ix.GarbageRatio = (ix.GarbageRatio*float64(total) + garbageRatio) / float64(total+1)
		}

		if ih.Level == 0 {
			ix.LeafCount++
			leavesByIndex[ih.IndexID] = append(leavesByIndex[ih.IndexID], leafInfo{pageNum: i, prev: hdr.Prev, next: hdr.Next})
		} else {
			ix.InternalCount++
		}
	}

	for indexID, ix := range report.Indexes {
		ix.TreeDepth = len(levelsByIndex[indexID])
		ix.Fragmentation = fragmentationOf(leavesByIndex[indexID])
	}
	return report, nil
}

// fragmentationOf is the fraction of leaf pages whose physical position
// diverges from the order implied by the prev/next chain: walk the
// chain starting from the leaf with no prev, and count the steps that
// move to a lower page number than the page before, divided by the
// number of steps walked. A chain of one page or none gives 0.
func fragmentationOf(leaves []leafInfo) float64 {
	if len(leaves) == 0 {
		return 0
	}
	byPage := make(map[int]leafInfo, len(leaves))
	for _, l := range leaves {
		byPage[l.pageNum] = l
	}

	var head *leafInfo
	for i := range leaves {
		if leaves[i].prev == types.FILNull {
			head = &leaves[i]
			break
		}
	}
	if head == nil {
		head = &leaves[0]
	}

	chainOrder := make([]int, 0, len(leaves))
	visited := make(map[int]bool)
	cur := head
	for cur != nil && !visited[cur.pageNum] {
		visited[cur.pageNum] = true
		chainOrder = append(chainOrder, cur.pageNum)
		if cur.next == types.FILNull {
			break
		}
		next, ok := byPage[int(cur.next)]
		if !ok {
			break
		}
		cur = &next
	}

	mismatches := 0
	for i, pageNum := range chainOrder {
		if i == 0 {
			continue
		}
		if pageNum < chainOrder[i-1] {
			mismatches++
		}
	}
	if len(chainOrder) <= 1 {
		return 0
	}
	return float64(mismatches) / float64(len(chainOrder)-1)
}
