// Package redolog is the Redo Log Decoder layer: 512-byte block layout,
// the file header and its two checkpoint blocks, dual pre-/post-8.0.30
// (and 9.x) layout dispatch, and an optional MLOG record-type scan that
// classifies records without parsing their payloads.
package redolog

import (
	"encoding/binary"
	"hash/crc32"
	"strings"

	"github.com/ibdtool/ibdtool/internal/ibderrors"
	"github.com/ibdtool/ibdtool/internal/types"
)

// BlockSize is the fixed redo log block size.
const BlockSize = 512

// Layout identifies which header field positions a redo log file uses.
type Layout int

const (
	LayoutUnknown Layout = iota
	LayoutClassic        // ib_logfile0/1, pre-8.0.30
	LayoutModern808       // post-8.0.30, pre-9.x
	LayoutModern9x        // MySQL 9.x, adds a format-version field
)

func (l Layout) String() string {
	switch l {
	case LayoutClassic:
		return "classic"
	case LayoutModern808:
		return "modern-8.0.30"
	case LayoutModern9x:
		return "modern-9.x"
	default:
		return "unknown"
	}
}

// DetectLayout classifies a redo log file's layout from its path: the
// legacy naming convention is ib_logfile0/ib_logfile1 at the datadir
// root; the modern convention places #ib_redoN files inside an
// #innodb_redo/ subdirectory.
func DetectLayout(path string) Layout {
	if strings.Contains(path, "#innodb_redo") || strings.Contains(path, "#ib_redo") {
		return LayoutModern808
	}
	if strings.Contains(path, "ib_logfile") {
		return LayoutClassic
	}
	return LayoutUnknown
}

// FileHeader is block 0: group ID, starting LSN, file number, and the
// creator string used for vendor detection.
type FileHeader struct {
	GroupID      uint64
	StartLSN     types.LSN
	FileNumber   uint32
	Creator      string
	FormatVersion uint32 // only meaningful under LayoutModern9x
}

// File header field offsets. Classic and the 8.0.30+ layout share the
// same field order; only the overall block header preceding the
// group/LSN/creator fields differs in what else it carries. 9.x adds a
// trailing format-version field the older layouts don't have.
const (
	fileHdrOffGroupID    = 0
	fileHdrOffStartLSN   = 8
	fileHdrOffFileNumber = 16
	fileHdrOffCreator    = 20
	fileHdrCreatorSize   = 32
	fileHdrOffFormatVer  = 52 // LayoutModern9x only
)

// ParseFileHeader decodes block 0 according to layout.
func ParseFileHeader(block []byte, layout Layout) (FileHeader, error) {
	if len(block) < BlockSize {
		return FileHeader{}, ibderrors.Parse("redo log file header block too short: %d bytes", len(block))
	}
	h := FileHeader{
		GroupID:    binary.BigEndian.Uint64(block[fileHdrOffGroupID:]),
		StartLSN:   types.LSN(binary.BigEndian.Uint64(block[fileHdrOffStartLSN:])),
		FileNumber: binary.BigEndian.Uint32(block[fileHdrOffFileNumber:]),
		Creator:    trimCreator(block[fileHdrOffCreator : fileHdrOffCreator+fileHdrCreatorSize]),
	}
	if layout == LayoutModern9x {
		h.FormatVersion = binary.BigEndian.Uint32(block[fileHdrOffFormatVer:])
	}
	return h, nil
}

func trimCreator(buf []byte) string {
	i := 0
	for i < len(buf) && buf[i] != 0 {
		i++
	}
	return string(buf[:i])
}

// Checkpoint is the content of a checkpoint block (blocks 1 and 3).
type Checkpoint struct {
	Number       uint64
	LSN          types.LSN
	Offset       uint64
	BufferSize   uint64
	ArchivedLSN  types.LSN
}

const (
	ckptOffNumber     = 0
	ckptOffLSN        = 8
	ckptOffOffset     = 16
	ckptOffBufferSize = 24
	ckptOffArchivedLSN = 32

	// CheckpointSize is the decoded region's size; checkpoint blocks are
	// padded to BlockSize but only this prefix is meaningful.
	CheckpointSize = 40
)

// ParseCheckpoint decodes a checkpoint block (block index 1 or 3).
func ParseCheckpoint(block []byte) (Checkpoint, error) {
	if len(block) < CheckpointSize {
		return Checkpoint{}, ibderrors.Parse("checkpoint block too short: %d bytes", len(block))
	}
	return Checkpoint{
		Number:      binary.BigEndian.Uint64(block[ckptOffNumber:]),
		LSN:         types.LSN(binary.BigEndian.Uint64(block[ckptOffLSN:])),
		Offset:      binary.BigEndian.Uint64(block[ckptOffOffset:]),
		BufferSize:  binary.BigEndian.Uint64(block[ckptOffBufferSize:]),
		ArchivedLSN: types.LSN(binary.BigEndian.Uint64(block[ckptOffArchivedLSN:])),
	}, nil
}

// BlockHeader is a data block's (index >= 4) 14-byte header.
type BlockHeader struct {
	BlockNumber     uint32
	FlushFlag       bool
	DataLen         uint16
	FirstRecGroup   uint16
	CheckpointNo    uint32
	HeaderSizeField uint16
}

const (
	blkOffBlockNumber   = 0
	blkOffDataLen       = 4
	blkOffFirstRecGroup = 6
	blkOffCheckpointNo  = 8
	blkOffHeaderSize    = 12

	// BlockHeaderSize is the fixed data-block header size.
	BlockHeaderSize = 14
	// CRCOffset is where the trailing CRC-32C sits within a data block.
	CRCOffset = 508
)

const blockNumberFlushFlag = uint32(1) << 31

// ParseBlockHeader decodes a data block's 14-byte header.
func ParseBlockHeader(block []byte) (BlockHeader, error) {
	if len(block) < BlockHeaderSize {
		return BlockHeader{}, ibderrors.Parse("redo log block header too short: %d bytes", len(block))
	}
	raw := binary.BigEndian.Uint32(block[blkOffBlockNumber:])
	return BlockHeader{
		BlockNumber:     raw &^ blockNumberFlushFlag,
		FlushFlag:       raw&blockNumberFlushFlag != 0,
		DataLen:         binary.BigEndian.Uint16(block[blkOffDataLen:]),
		FirstRecGroup:   binary.BigEndian.Uint16(block[blkOffFirstRecGroup:]),
		CheckpointNo:    binary.BigEndian.Uint32(block[blkOffCheckpointNo:]),
		HeaderSizeField: binary.BigEndian.Uint16(block[blkOffHeaderSize:]),
	}, nil
}

// IsEmpty reports whether a data block carries no record bytes:
// data_len <= header_size.
func (h BlockHeader) IsEmpty() bool {
	return h.DataLen <= h.HeaderSizeField
}

var castagnoliTable = crc32.MakeTable(crc32.Castagnoli)

// BlockCRC32C computes the CRC-32C over block[0:508], the value stored
// at block[508:512] for every data block.
func BlockCRC32C(block []byte) uint32 {
	return crc32.Checksum(block[:CRCOffset], castagnoliTable)
}

// VerifyBlockCRC reports whether block's stored trailing CRC matches
// BlockCRC32C(block).
func VerifyBlockCRC(block []byte) bool {
	if len(block) < BlockSize {
		return false
	}
	stored := binary.BigEndian.Uint32(block[CRCOffset:])
	return stored == BlockCRC32C(block)
}
