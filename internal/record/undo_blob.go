package record

import (
	"github.com/ibdtool/ibdtool/internal/ibderrors"
	"github.com/ibdtool/ibdtool/internal/page"
	"github.com/ibdtool/ibdtool/internal/types"
)

// UndoPage is a decoded UNDO_LOG page: its per-page header and, if this
// is an UNDO segment's first page, the segment header immediately
// following it.
type UndoPage struct {
	Header  page.UndoPageHeader
	Segment *page.UndoSegmentHeader // nil unless this page starts a segment
}

// DecodeUndoPage decodes an UNDO_LOG page. isSegmentHeader tells the
// decoder whether to also read the segment header that only exists on
// an undo segment's first page.
func DecodeUndoPage(pg []byte, isSegmentHeader bool) (UndoPage, error) {
	hdr, err := page.ParseUndoPageHeader(pg)
	if err != nil {
		return UndoPage{}, err
	}
	up := UndoPage{Header: hdr}
	if isSegmentHeader {
		seg, err := page.ParseUndoSegmentHeader(pg)
		if err != nil {
			return UndoPage{}, err
		}
		up.Segment = &seg
	}
	return up, nil
}

// BlobChunk is one link of a classical multi-page BLOB chain, carrying
// the data found on its page plus the header describing how much more
// follows.
type BlobChunk struct {
	PageNumber types.PageNumber
	Header     page.BlobHeader
	Data       []byte
}

// WalkBlobChain follows a classic BLOB/TEXT overflow chain starting at
// firstPage (FIL_NULL terminates), fetching
// each subsequent page through fetch. It never decompresses anything;
// MariaDB's zlib/LZ4-compressed BLOB pages are decompressed by the
// caller via the compression package once concatenated.
func WalkBlobChain(firstPage types.PageNumber, fetch func(n types.PageNumber) ([]byte, error), maxPages int) ([]BlobChunk, error) {
	var chunks []BlobChunk
	visited := make(map[types.PageNumber]bool)
	next := firstPage
	for i := 0; next != types.FILNull; i++ {
		if i >= maxPages {
			return chunks, ibderrors.Parse("blob chain exceeded %d pages", maxPages)
		}
		if visited[next] {
			return chunks, ibderrors.Parse("blob chain cycle detected at page %d", next)
		}
		visited[next] = true

		buf, err := fetch(next)
		if err != nil {
			return chunks, err
		}
		hdr, err := page.ParseBlobHeader(buf)
		if err != nil {
			return chunks, err
		}
		dataStart := page.DataOffset + page.BlobHeaderSize
		end := dataStart + int(hdr.PartLen)
		if end > len(buf) {
			return chunks, ibderrors.Parse("blob page %d truncated: want %d bytes", next, hdr.PartLen)
		}
		chunks = append(chunks, BlobChunk{PageNumber: next, Header: hdr, Data: buf[dataStart:end]})
		next = hdr.NextPage
	}
	return chunks, nil
}

// ConcatBlobChain concatenates every chunk's data in chain order.
func ConcatBlobChain(chunks []BlobChunk) []byte {
	var out []byte
	for _, c := range chunks {
		out = append(out, c.Data...)
	}
	return out
}

// DecodeLobFirst decodes a LOB_FIRST page, MySQL 8.0's replacement for
// classical BLOB chains.
func DecodeLobFirst(pg []byte) (page.LobFirstHeader, error) {
	return page.ParseLobFirstHeader(pg)
}
