// Package page is the Page Codec layer: the 38-byte FIL header, 8-byte
// FIL trailer, page-0 FSP header, and the fixed-size per-type sub-headers
// (INDEX, UNDO, BLOB, LOB_FIRST, INODE, XDES, SDI record header). It
// never validates checksums — that is the checksum engine's job — and it
// never resolves the vendor-ambiguous page type 18 — that is vendor
// dispatch's job, carried in as a parameter rather than read from global
// state.
package page

import (
	"encoding/binary"

	"github.com/ibdtool/ibdtool/internal/ibderrors"
	"github.com/ibdtool/ibdtool/internal/types"
)

// Size-independent byte offsets within every page.
const (
	FILHeaderSize  = 38
	FILTrailerSize = 8

	offChecksum   = 0
	offPageNumber = 4
	offPrev       = 8
	offNext       = 12
	offLSN        = 16
	offPageType   = 24
	offFlushLSN   = 26
	offSpaceID    = 34

	// DataOffset is where the page body begins, right after the FIL
	// header; FSP header and all per-type sub-headers live here.
	DataOffset = FILHeaderSize
)

// Header is the 38-byte FIL header common to every page.
type Header struct {
	Checksum   uint32
	PageNumber types.PageNumber
	Prev       types.PageNumber
	Next       types.PageNumber
	LSN        types.LSN
	RawType    uint16 // on-disk type code, before vendor-ambiguity resolution
	FlushLSN   uint64
	SpaceID    types.SpaceID
}

// Trailer is the 8-byte FIL trailer.
type Trailer struct {
	OldChecksum uint32
	LSNLow32    uint32
}

// ParseHeader decodes the FIL header from the start of page.
func ParseHeader(pg []byte) (Header, error) {
	if len(pg) < FILHeaderSize {
		return Header{}, ibderrors.Parse("page too short for FIL header: %d bytes", len(pg))
	}
	return Header{
		Checksum:   binary.BigEndian.Uint32(pg[offChecksum:]),
		PageNumber: types.PageNumber(binary.BigEndian.Uint32(pg[offPageNumber:])),
		Prev:       types.PageNumber(binary.BigEndian.Uint32(pg[offPrev:])),
		Next:       types.PageNumber(binary.BigEndian.Uint32(pg[offNext:])),
		LSN:        types.LSN(binary.BigEndian.Uint64(pg[offLSN:])),
		RawType:    binary.BigEndian.Uint16(pg[offPageType:]),
		FlushLSN:   binary.BigEndian.Uint64(pg[offFlushLSN:]),
		SpaceID:    types.SpaceID(binary.BigEndian.Uint32(pg[offSpaceID:])),
	}, nil
}

// ParseTrailer decodes the 8-byte FIL trailer at the end of page.
func ParseTrailer(pg []byte) (Trailer, error) {
	size := len(pg)
	if size < FILHeaderSize+FILTrailerSize {
		return Trailer{}, ibderrors.Parse("page too short for FIL trailer: %d bytes", size)
	}
	t := pg[size-FILTrailerSize:]
	return Trailer{
		OldChecksum: binary.BigEndian.Uint32(t[0:4]),
		LSNLow32:    binary.BigEndian.Uint32(t[4:8]),
	}, nil
}

// PutHeader serializes h back into the first 38 bytes of pg, used by the
// write-path (repair/defrag/transplant/rebuild) to synthesize or patch
// pages.
func PutHeader(pg []byte, h Header) {
	binary.BigEndian.PutUint32(pg[offChecksum:], h.Checksum)
	binary.BigEndian.PutUint32(pg[offPageNumber:], uint32(h.PageNumber))
	binary.BigEndian.PutUint32(pg[offPrev:], uint32(h.Prev))
	binary.BigEndian.PutUint32(pg[offNext:], uint32(h.Next))
	binary.BigEndian.PutUint64(pg[offLSN:], uint64(h.LSN))
	binary.BigEndian.PutUint16(pg[offPageType:], h.RawType)
	binary.BigEndian.PutUint64(pg[offFlushLSN:], h.FlushLSN)
	binary.BigEndian.PutUint32(pg[offSpaceID:], uint32(h.SpaceID))
}

// PutTrailer serializes t back into the last 8 bytes of pg.
func PutTrailer(pg []byte, t Trailer) {
	size := len(pg)
	binary.BigEndian.PutUint32(pg[size-8:], t.OldChecksum)
	binary.BigEndian.PutUint32(pg[size-4:], t.LSNLow32)
}
