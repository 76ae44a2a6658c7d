package page

import (
	"encoding/binary"

	"github.com/ibdtool/ibdtool/internal/ibderrors"
	"github.com/ibdtool/ibdtool/internal/types"
)

// --- INDEX page header (PAGE_HEADER + two FSEG headers) ---

const (
	indexHdrOffNDirSlots  = 0
	indexHdrOffHeapTop    = 2
	indexHdrOffNHeap      = 4
	indexHdrOffFree       = 6
	indexHdrOffGarbage    = 8
	indexHdrOffLastInsert = 10
	indexHdrOffDirection  = 12
	indexHdrOffNDirection = 14
	indexHdrOffNRecs      = 16
	indexHdrOffMaxTrxID   = 18
	indexHdrOffLevel      = 26
	indexHdrOffIndexID    = 28

	// PageHeaderSize is PAGE_HEADER (36 bytes) alone, without the two
	// trailing FSEG headers.
	PageHeaderSize = 36
	fsegHeaderSize = 10
	// IndexHeaderSize is PAGE_HEADER plus both FSEG headers (leaf, top).
	IndexHeaderSize = PageHeaderSize + 2*fsegHeaderSize

	// DataOffsetIndex is where the first record (infimum) begins on an
	// INDEX page.
	DataOffsetIndex = DataOffset + IndexHeaderSize
)

// Direction is the PAGE_DIRECTION field: the pattern of the last few
// inserts, used by the storage engine to decide page-split heuristics.
type Direction uint16

const (
	DirLeft        Direction = 1
	DirRight       Direction = 2
	DirSameRec     Direction = 3
	DirSamePage    Direction = 4
	DirNoDirection Direction = 5
)

// IndexHeader is an INDEX page's PAGE_HEADER: record-chain bookkeeping
// and the B+Tree index_id/level this page belongs to.
type IndexHeader struct {
	NDirSlots  uint16
	HeapTop    uint16
	NHeap      uint16
	IsCompact  bool // top bit of n_heap
	Free       uint16
	Garbage    uint16
	LastInsert uint16
	Direction  Direction
	NDirection uint16
	NRecs      uint16
	MaxTrxID   uint64
	Level      uint16
	IndexID    uint64
}

// ParseIndexHeader decodes the PAGE_HEADER of an INDEX page. pg is a full
// page buffer.
func ParseIndexHeader(pg []byte) (IndexHeader, error) {
	if len(pg) < DataOffset+PageHeaderSize {
		return IndexHeader{}, ibderrors.Parse("page too short for INDEX header: %d bytes", len(pg))
	}
	h := pg[DataOffset:]
	nHeapRaw := binary.BigEndian.Uint16(h[indexHdrOffNHeap:])
	return IndexHeader{
		NDirSlots:  binary.BigEndian.Uint16(h[indexHdrOffNDirSlots:]),
		HeapTop:    binary.BigEndian.Uint16(h[indexHdrOffHeapTop:]),
		NHeap:      nHeapRaw &^ 0x8000,
		IsCompact:  nHeapRaw&0x8000 != 0,
		Free:       binary.BigEndian.Uint16(h[indexHdrOffFree:]),
		Garbage:    binary.BigEndian.Uint16(h[indexHdrOffGarbage:]),
		LastInsert: binary.BigEndian.Uint16(h[indexHdrOffLastInsert:]),
		Direction:  Direction(binary.BigEndian.Uint16(h[indexHdrOffDirection:])),
		NDirection: binary.BigEndian.Uint16(h[indexHdrOffNDirection:]),
		NRecs:      binary.BigEndian.Uint16(h[indexHdrOffNRecs:]),
		MaxTrxID:   binary.BigEndian.Uint64(h[indexHdrOffMaxTrxID:]),
		Level:      binary.BigEndian.Uint16(h[indexHdrOffLevel:]),
		IndexID:    binary.BigEndian.Uint64(h[indexHdrOffIndexID:]),
	}, nil
}

// PutIndexHeader serializes h back into pg's PAGE_HEADER, used by defrag
// when rewriting prev/next chains and renumbering pages.
func PutIndexHeader(pg []byte, ih IndexHeader) {
	h := pg[DataOffset:]
	nHeap := ih.NHeap
	if ih.IsCompact {
		nHeap |= 0x8000
	}
	binary.BigEndian.PutUint16(h[indexHdrOffNDirSlots:], ih.NDirSlots)
	binary.BigEndian.PutUint16(h[indexHdrOffHeapTop:], ih.HeapTop)
	binary.BigEndian.PutUint16(h[indexHdrOffNHeap:], nHeap)
	binary.BigEndian.PutUint16(h[indexHdrOffFree:], ih.Free)
	binary.BigEndian.PutUint16(h[indexHdrOffGarbage:], ih.Garbage)
	binary.BigEndian.PutUint16(h[indexHdrOffLastInsert:], ih.LastInsert)
	binary.BigEndian.PutUint16(h[indexHdrOffDirection:], uint16(ih.Direction))
	binary.BigEndian.PutUint16(h[indexHdrOffNDirection:], ih.NDirection)
	binary.BigEndian.PutUint16(h[indexHdrOffNRecs:], ih.NRecs)
	binary.BigEndian.PutUint64(h[indexHdrOffMaxTrxID:], ih.MaxTrxID)
	binary.BigEndian.PutUint16(h[indexHdrOffLevel:], ih.Level)
	binary.BigEndian.PutUint64(h[indexHdrOffIndexID:], ih.IndexID)
}

// --- UNDO page / segment header ---

// UndoPageType distinguishes insert-undo from update-undo pages.
type UndoPageType uint16

const (
	UndoPageInsert UndoPageType = 1
	UndoPageUpdate UndoPageType = 2
)

const (
	undoHdrOffType  = 0
	undoHdrOffStart = 2
	undoHdrOffFree  = 4
	// UndoPageHeaderSize is the fixed TRX_UNDO_PAGE_HDR size.
	UndoPageHeaderSize = 6
)

// UndoPageHeader is an UNDO_LOG page's per-page header.
type UndoPageHeader struct {
	Type  UndoPageType
	Start uint16
	Free  uint16
}

// ParseUndoPageHeader decodes the per-page portion of an UNDO_LOG page.
func ParseUndoPageHeader(pg []byte) (UndoPageHeader, error) {
	if len(pg) < DataOffset+UndoPageHeaderSize {
		return UndoPageHeader{}, ibderrors.Parse("page too short for UNDO page header: %d bytes", len(pg))
	}
	h := pg[DataOffset:]
	return UndoPageHeader{
		Type:  UndoPageType(binary.BigEndian.Uint16(h[undoHdrOffType:])),
		Start: binary.BigEndian.Uint16(h[undoHdrOffStart:]),
		Free:  binary.BigEndian.Uint16(h[undoHdrOffFree:]),
	}, nil
}

// SegmentState is an UNDO segment's lifecycle state. The decoder surfaces the observed state only; it never
// drives a transition.
type SegmentState uint16

const (
	SegmentActive SegmentState = iota + 1
	SegmentCached
	SegmentToFree
	SegmentToPurge
	SegmentPrepared
)

func (s SegmentState) String() string {
	switch s {
	case SegmentActive:
		return "ACTIVE"
	case SegmentCached:
		return "CACHED"
	case SegmentToFree:
		return "TO_FREE"
	case SegmentToPurge:
		return "TO_PURGE"
	case SegmentPrepared:
		return "PREPARED"
	default:
		return "UNKNOWN"
	}
}

const (
	// UndoSegmentHeaderSize is TRX_UNDO_SEG_HDR: state(2) + last_log(2) +
	// fseg_header(10).
	UndoSegmentHeaderSize = 2 + 2 + fsegHeaderSize
	undoSegOffState   = 0
	undoSegOffLastLog = 2
)

// UndoSegmentHeader is the segment-level header present on an UNDO
// segment's first page, immediately following the per-page header.
type UndoSegmentHeader struct {
	State   SegmentState
	LastLog uint16
}

// ParseUndoSegmentHeader decodes the segment header that follows the
// per-page UNDO header at DataOffset+UndoPageHeaderSize.
func ParseUndoSegmentHeader(pg []byte) (UndoSegmentHeader, error) {
	start := DataOffset + UndoPageHeaderSize
	if len(pg) < start+UndoSegmentHeaderSize {
		return UndoSegmentHeader{}, ibderrors.Parse("page too short for UNDO segment header: %d bytes", len(pg))
	}
	h := pg[start:]
	return UndoSegmentHeader{
		State:   SegmentState(binary.BigEndian.Uint16(h[undoSegOffState:])),
		LastLog: binary.BigEndian.Uint16(h[undoSegOffLastLog:]),
	}, nil
}

// --- Classic BLOB page header ---

const (
	blobOffPartLen  = 0
	blobOffNextPage = 4
	// BlobHeaderSize is the classic (pre-LOB) BLOB page header:
	// part_len(4) + next_page_no(4).
	BlobHeaderSize = 8
)

// BlobHeader is a classic multi-page BLOB/TEXT chain link.
type BlobHeader struct {
	PartLen  uint32
	NextPage types.PageNumber
}

// ParseBlobHeader decodes a classic BLOB page header.
func ParseBlobHeader(pg []byte) (BlobHeader, error) {
	if len(pg) < DataOffset+BlobHeaderSize {
		return BlobHeader{}, ibderrors.Parse("page too short for BLOB header: %d bytes", len(pg))
	}
	h := pg[DataOffset:]
	return BlobHeader{
		PartLen:  binary.BigEndian.Uint32(h[blobOffPartLen:]),
		NextPage: types.PageNumber(binary.BigEndian.Uint32(h[blobOffNextPage:])),
	}, nil
}

// --- LOB_FIRST page header (MySQL 8.0 compressed/uncompressed LOBs) ---

const (
	lobOffVersion   = 0
	lobOffFlags     = 2
	lobOffDataLen   = 4
	lobOffTrxID     = 8
	// LobFirstHeaderSize is version(2) + flags(2) + total_data_len(4) +
	// trx_id(8).
	LobFirstHeaderSize = 16
)

// LobFirstHeader is the header of a LOB_FIRST page.
type LobFirstHeader struct {
	Version  uint16
	Flags    uint16
	DataLen  uint32
	TrxID    uint64
}

// ParseLobFirstHeader decodes a LOB_FIRST page header.
func ParseLobFirstHeader(pg []byte) (LobFirstHeader, error) {
	if len(pg) < DataOffset+LobFirstHeaderSize {
		return LobFirstHeader{}, ibderrors.Parse("page too short for LOB_FIRST header: %d bytes", len(pg))
	}
	h := pg[DataOffset:]
	return LobFirstHeader{
		Version: binary.BigEndian.Uint16(h[lobOffVersion:]),
		Flags:   binary.BigEndian.Uint16(h[lobOffFlags:]),
		DataLen: binary.BigEndian.Uint32(h[lobOffDataLen:]),
		TrxID:   binary.BigEndian.Uint64(h[lobOffTrxID:]),
	}, nil
}

// --- INODE entries (FSEG_INODE) ---

// InodeEntrySize is one FSEG_INODE entry's fixed size: fseg_id(8) +
// n_used(4) + not_full list base node(16) + free list base node(16) +
// full list base node(16) + magic_n(4) + fragment array (32 slots * 4).
const InodeEntrySize = 8 + 4 + 16 + 16 + 16 + 4 + 32*4

// InodeEntry is one file segment's bookkeeping entry on an INODE page.
type InodeEntry struct {
	SegID  uint64
	NUsed  uint32
	MagicN uint32
}

// ParseInodeEntry decodes the entry at the given index (0-based) on an
// INODE page.
func ParseInodeEntry(pg []byte, index int) (InodeEntry, error) {
	start := DataOffset + index*InodeEntrySize
	if len(pg) < start+InodeEntrySize {
		return InodeEntry{}, ibderrors.Parse("inode entry %d out of range", index)
	}
	e := pg[start:]
	magicOff := 8 + 4 + 16 + 16 + 16
	return InodeEntry{
		SegID:  binary.BigEndian.Uint64(e[0:]),
		NUsed:  binary.BigEndian.Uint32(e[8:]),
		MagicN: binary.BigEndian.Uint32(e[magicOff:]),
	}, nil
}

// --- XDES (extent descriptor) entries ---

// XDESState is an extent's allocation state.
type XDESState uint32

const (
	XDESFree     XDESState = 1
	XDESFreeFrag XDESState = 2
	XDESFullFrag XDESState = 3
	XDESFSeg     XDESState = 4
)

// XDESEntrySize is one extent descriptor: fseg_id(8) + list node(12) +
// state(4) + bitmap (64 pages * 2 bits, rounded up to bytes = 16).
const XDESEntrySize = 8 + 12 + 4 + 16

// XDESEntry describes one 64-page extent's allocation state.
type XDESEntry struct {
	SegID uint64
	State XDESState
	Bitmap [16]byte
}

// ParseXDESEntry decodes the extent descriptor at the given index on an
// XDES (or page-0 FSP_HDR, which embeds the first XDES array inline)
// page.
func ParseXDESEntry(pg []byte, base, index int) (XDESEntry, error) {
	start := base + index*XDESEntrySize
	if len(pg) < start+XDESEntrySize {
		return XDESEntry{}, ibderrors.Parse("xdes entry %d out of range", index)
	}
	e := pg[start:]
	var entry XDESEntry
	entry.SegID = binary.BigEndian.Uint64(e[0:])
	entry.State = XDESState(binary.BigEndian.Uint32(e[20:]))
	copy(entry.Bitmap[:], e[24:24+16])
	return entry, nil
}

// --- SDI record header ---

// SDIObjectType distinguishes Table SDI records from Tablespace ones.
type SDIObjectType uint32

const (
	SDIObjectTable      SDIObjectType = 1
	SDIObjectTablespace SDIObjectType = 2
)

// SDIRecordHeaderSize is type(4) + id(8) + compressed length(4) +
// uncompressed length(4).
const SDIRecordHeaderSize = 4 + 8 + 4 + 4

// SDIRecordHeader precedes every SDI record's compressed JSON payload.
type SDIRecordHeader struct {
	ObjectType         SDIObjectType
	ID                 uint64
	CompressedLength   uint32
	UncompressedLength uint32
}

// ParseSDIRecordHeader decodes an SDI record header at the given offset
// within an SDI page's body.
func ParseSDIRecordHeader(buf []byte) (SDIRecordHeader, error) {
	if len(buf) < SDIRecordHeaderSize {
		return SDIRecordHeader{}, ibderrors.Parse("truncated SDI record header: %d bytes", len(buf))
	}
	return SDIRecordHeader{
		ObjectType:         SDIObjectType(binary.BigEndian.Uint32(buf[0:])),
		ID:                 binary.BigEndian.Uint64(buf[4:]),
		CompressedLength:   binary.BigEndian.Uint32(buf[12:]),
		UncompressedLength: binary.BigEndian.Uint32(buf[16:]),
	}, nil
}
