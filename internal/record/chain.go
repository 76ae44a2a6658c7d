// Package record is the Record & Sub-page Decoders layer: INDEX page
// record-chain walking (Compact and Redundant row formats), the field
// decoder for typed column values, the SDI extractor and CREATE TABLE
// schema reconstruction, and thin wrappers around the UNDO/BLOB/LOB/
// XDES/INODE sub-headers the page codec layer already exposes.
package record

import (
	"github.com/ibdtool/ibdtool/internal/ibderrors"
	"github.com/ibdtool/ibdtool/internal/page"
)

// RecType is an INDEX record's role within the page.
type RecType int

const (
	RecConventional RecType = 0
	RecNodePointer  RecType = 1
	RecInfimum      RecType = 2
	RecSupremum     RecType = 3
)

// RowFormat distinguishes the two on-disk record header encodings.
type RowFormat int

const (
	RowFormatCompact RowFormat = iota
	RowFormatRedundant
)

// RecordHeader is the fixed-size header immediately preceding a
// record's data pointer, normalized across both row formats.
type RecordHeader struct {
	InfoBits  byte
	NOwned    byte
	HeapNo    uint16
	Type      RecType
	NextDelta int    // Compact: signed, relative to this record's origin. Redundant: absolute page offset, already resolved into a delta by parseHeader for uniform walking.
	DeleteMark bool
	MinRecMark bool
}

const (
	compactHeaderSize   = 5
	redundantHeaderSize = 6
)

// Compact info-bits layout (top nibble of the first header byte):
// bit 5 (0x20) = deleted, bit 4 (0x10) = min-rec. The bottom nibble is
// n_owned.
const (
	compactInfoDeleted = 0x20
	compactInfoMinRec  = 0x10
)

// parseCompactHeader reads the 5-byte Compact header ending at origin
// (the record pointer itself; header bytes are origin-5 .. origin-1).
func parseCompactHeader(pg []byte, origin int) (RecordHeader, error) {
	if origin < compactHeaderSize || origin > len(pg) {
		return RecordHeader{}, ibderrors.Parse("compact record header out of range at origin %d", origin)
	}
	b0 := pg[origin-5]
	b1 := pg[origin-4]
	b2 := pg[origin-3]
	b3 := pg[origin-2]
	b4 := pg[origin-1]

	heapRecWord := uint16(b1)<<8 | uint16(b2)
	nextRaw := int16(uint16(b3)<<8 | uint16(b4))

	return RecordHeader{
		InfoBits:   b0 & 0xF0,
		NOwned:     b0 & 0x0F,
		HeapNo:     heapRecWord >> 3,
		Type:       recTypeFromBits(heapRecWord & 0x7),
		NextDelta:  int(nextRaw),
		DeleteMark: b0&compactInfoDeleted != 0,
		MinRecMark: b0&compactInfoMinRec != 0,
	}, nil
}

// parseRedundantHeader reads the 6-byte Redundant header ending at
// origin, resolving its absolute next-record offset into a delta
// relative to origin so both formats can share one walking loop.
func parseRedundantHeader(pg []byte, origin int) (RecordHeader, error) {
	if origin < redundantHeaderSize || origin > len(pg) {
		return RecordHeader{}, ibderrors.Parse("redundant record header out of range at origin %d", origin)
	}
	b0 := pg[origin-6]
	b1 := pg[origin-5]
	b2 := pg[origin-4]
	b3 := pg[origin-3]
	b4 := pg[origin-2]
	b5 := pg[origin-1]

	heapRecWord := uint16(b1)<<8 | uint16(b2)
	nextAbs := int(uint16(b4)<<8 | uint16(b5))
	_ = b3 // n_fields / 1-byte-offset flag, not needed for chain walking

	return RecordHeader{
		InfoBits:   b0 & 0xF0,
		NOwned:     b0 & 0x0F,
		HeapNo:     heapRecWord >> 3,
		Type:       recTypeFromBits(heapRecWord & 0x7),
		NextDelta:  nextAbs - origin,
		DeleteMark: b0&compactInfoDeleted != 0,
		MinRecMark: b0&compactInfoMinRec != 0,
	}, nil
}

func recTypeFromBits(v uint16) RecType {
	switch v {
	case 1:
		return RecNodePointer
	case 2:
		return RecInfimum
	case 3:
		return RecSupremum
	default:
		return RecConventional
	}
}

// ParseHeader decodes the record header immediately preceding origin,
// dispatching on format.
func ParseHeader(pg []byte, origin int, format RowFormat) (RecordHeader, error) {
	if format == RowFormatRedundant {
		return parseRedundantHeader(pg, origin)
	}
	return parseCompactHeader(pg, origin)
}

// WalkEntry is one step of a chain walk: the record's origin offset and
// decoded header.
type WalkEntry struct {
	Origin int
	Header RecordHeader
}

// Walk follows the singly-linked record chain starting at infimumOrigin
// until it reaches a Supremum record or exhausts maxSteps, detecting
// cycles by tracking every visited origin.
func Walk(pg []byte, infimumOrigin int, format RowFormat, maxSteps int) ([]WalkEntry, error) {
	visited := make(map[int]bool)
	var entries []WalkEntry

	origin := infimumOrigin
	for step := 0; ; step++ {
		if step > maxSteps {
			return entries, ibderrors.Parse("record chain exceeded %d steps without reaching supremum", maxSteps)
		}
		if visited[origin] {
			return entries, ibderrors.Parse("record chain cycle detected at offset %d", origin)
		}
		visited[origin] = true

		h, err := ParseHeader(pg, origin, format)
		if err != nil {
			return entries, err
		}
		entries = append(entries, WalkEntry{Origin: origin, Header: h})
		if h.Type == RecSupremum {
			return entries, nil
		}

		next := origin + h.NextDelta
		if next == origin {
			return entries, ibderrors.Parse("record chain self-loop at offset %d", origin)
		}
		origin = next
	}
}

// UserRecords filters a walked chain down to the conventional user
// records, excluding the Infimum/Supremum bookends and any node-pointer
// entries on non-leaf pages.
func UserRecords(entries []WalkEntry) []WalkEntry {
	var out []WalkEntry
	for _, e := range entries {
		if e.Header.Type == RecConventional {
			out = append(out, e)
		}
	}
	return out
}

// CountUserRecords walks the chain starting at infimumOrigin and
// returns the count of conventional user records, used by recover_report
// to count records on INDEX pages.
func CountUserRecords(pg []byte, infimumOrigin int, format RowFormat) (int, error) {
	entries, err := Walk(pg, infimumOrigin, format, len(pg))
	if err != nil {
		return 0, err
	}
	return len(UserRecords(entries)), nil
}

// InfimumOrigin returns the conventional origin offset of the Infimum
// pseudo-record on an INDEX page: immediately after its fixed-size
// header, right at the start of the record area.
func InfimumOrigin(format RowFormat) int {
	if format == RowFormatRedundant {
		return page.DataOffsetIndex + redundantHeaderSize
	}
	return page.DataOffsetIndex + compactHeaderSize
}
