package report

import (
	"encoding/binary"

	"github.com/ibdtool/ibdtool/internal/checksum"
	"github.com/ibdtool/ibdtool/internal/ioreader"
	"github.com/ibdtool/ibdtool/internal/page"
	"github.com/ibdtool/ibdtool/internal/tablespace"
	"github.com/ibdtool/ibdtool/internal/types"
)

const testPageSize = 16384

func stampChecksum(buf []byte) {
	cs := checksum.CRC32C(buf)
	binary.BigEndian.PutUint32(buf[0:4], cs)
	binary.BigEndian.PutUint32(buf[len(buf)-8:len(buf)-4], cs)
}

func buildPage(pageNumber, spaceID uint32, rawType uint16, lsn uint64, prev, next uint32) []byte {
	buf := make([]byte, testPageSize)
	page.PutHeader(buf, page.Header{
		PageNumber: types.PageNumber(pageNumber),
		Prev:       types.PageNumber(prev),
		Next:       types.PageNumber(next),
		LSN:        types.LSN(lsn),
		RawType:    rawType,
		SpaceID:    types.SpaceID(spaceID),
	})
	page.PutTrailer(buf, page.Trailer{LSNLow32: uint32(lsn)})
	stampChecksum(buf)
	return buf
}

// writeCompactRecordHeader patches the 5-byte Compact record header
// immediately preceding origin: infoBits/nOwned in byte 0, heap number
// and record type packed into bytes 1-2, and a signed next-record delta
// in bytes 3-4.
func writeCompactRecordHeader(buf []byte, origin, heapNo int, recType int, nextDelta int) {
	heapRecWord := uint16(heapNo)<<3 | uint16(recType&0x7)
	buf[origin-5] = 0
	binary.BigEndian.PutUint16(buf[origin-4:], heapRecWord)
	binary.BigEndian.PutUint16(buf[origin-2:], uint16(int16(nextDelta)))
}

// buildIndexPage builds an INDEX page with a real infimum -> userRecords
// -> supremum Compact record chain, so record.Walk succeeds against it.
func buildIndexPage(pageNumber, spaceID uint32, lsn uint64, prev, next uint32, indexID uint64, level uint16, userRecords int) []byte {
	buf := buildPage(pageNumber, spaceID, uint16(page.TypeIndex), lsn, prev, next)

	const recordSpacing = 6 // 5-byte header + 1 filler byte of "data"
	const (
		recInfimum      = 2
		recSupremum     = 3
		recConventional = 0
	)

	total := 2 + userRecords
	origins := make([]int, total)
	origin := page.DataOffsetIndex + 5
	for i := range origins {
		origins[i] = origin
		origin += recordSpacing
	}

	for i, o := range origins {
		recType := recConventional
		if i == 0 {
			recType = recInfimum
		} else if i == len(origins)-1 {
			recType = recSupremum
		}
		nextDelta := 0
		if i < len(origins)-1 {
			nextDelta = origins[i+1] - o
		}
		writeCompactRecordHeader(buf, o, i, recType, nextDelta)
	}

	page.PutIndexHeader(buf, page.IndexHeader{
		NHeap:     uint16(total),
		IsCompact: true,
		HeapTop:   uint16(origin),
		Garbage:   4,
		Level:     level,
		IndexID:   indexID,
	})
	stampChecksum(buf)
	return buf
}

func buildPage0(spaceID, totalPages, fspFlags uint32) []byte {
	buf := buildPage(0, spaceID, uint16(page.TypeFSPHdr), 100, 0xFFFFFFFF, 0xFFFFFFFF)
	page.PutFSPHeader(buf, page.FSPHeader{
		SpaceID: types.SpaceID(spaceID),
		Size:    totalPages,
		Flags:   fspFlags,
	})
	stampChecksum(buf)
	return buf
}

func openTestTablespace(pages ...[]byte) *tablespace.Tablespace {
	var img []byte
	for _, p := range pages {
		img = append(img, p...)
	}
	src := ioreader.NewBufferSource(img)
	ts, err := tablespace.Open(src, tablespace.Options{})
	if err != nil {
		panic(err)
	}
	return ts
}
