package page

import (
	"encoding/binary"

	"github.com/ibdtool/ibdtool/internal/ibderrors"
	"github.com/ibdtool/ibdtool/internal/types"
)

// FSP header field offsets, relative to DataOffset (i.e. absolute offset
// is DataOffset+off).
const (
	fspOffSpaceID    = 0
	fspOffNotUsed    = 4
	fspOffSize       = 8
	fspOffFreeLimit  = 12
	fspOffFlags      = 16 // absolute offset 54 (DataOffset + 16)
	fspOffFragNUsed  = 20 // FSP_FRAG_N_USED, immediately follows FSP_SPACE_FLAGS

	// FSPHeaderSize is the portion of page 0 decoded here; XDES entries
	// and free-list nodes that follow are outside this package's scope.
	FSPHeaderSize = 24
)

// FSPFlagsAbsoluteOffset is the absolute byte offset of the FSP flags
// field within page 0.
const FSPFlagsAbsoluteOffset = DataOffset + fspOffFlags

// FSPHeader is page 0's file-space header.
type FSPHeader struct {
	SpaceID   types.SpaceID
	Size      uint32 // total pages
	FreeLimit uint32
	Flags     uint32
	FragNUsed uint32
}

// ParseFSPHeader decodes the FSP header from page 0. pg must include the
// FIL header (i.e. be a full page buffer, not just the body).
func ParseFSPHeader(pg []byte) (FSPHeader, error) {
	if len(pg) < DataOffset+FSPHeaderSize {
		return FSPHeader{}, ibderrors.Parse("page too short for FSP header: %d bytes", len(pg))
	}
	body := pg[DataOffset:]
	return FSPHeader{
		SpaceID:   types.SpaceID(binary.BigEndian.Uint32(body[fspOffSpaceID:])),
		Size:      binary.BigEndian.Uint32(body[fspOffSize:]),
		FreeLimit: binary.BigEndian.Uint32(body[fspOffFreeLimit:]),
		Flags:     binary.BigEndian.Uint32(body[fspOffFlags:]),
		FragNUsed: binary.BigEndian.Uint32(body[fspOffFragNUsed:]),
	}, nil
}

// PutFSPHeader serializes h into page 0's FSP header region, used by
// defrag/rebuild when synthesizing a fresh page 0.
func PutFSPHeader(pg []byte, h FSPHeader) {
	body := pg[DataOffset:]
	binary.BigEndian.PutUint32(body[fspOffSpaceID:], uint32(h.SpaceID))
	binary.BigEndian.PutUint32(body[fspOffSize:], h.Size)
	binary.BigEndian.PutUint32(body[fspOffFreeLimit:], h.FreeLimit)
	binary.BigEndian.PutUint32(body[fspOffFlags:], h.Flags)
	binary.BigEndian.PutUint32(body[fspOffFragNUsed:], h.FragNUsed)
}

// Encryption magic values identifying the keyring format version used to
// wrap a tablespace's key, read from page 0's encryption info block.
const (
	EncryptionMagicV1 = "lCA"
	EncryptionMagicV2 = "lCB"
	EncryptionMagicV3 = "lCC"
)

// Encryption info block layout, relative to its own start (DataOffset +
// FSPHeaderSize, immediately following the FSP header decoded above).
const (
	encOffMagic       = 0
	encMagicSize      = 3
	encOffMasterKeyID = 3
	encOffServerUUID  = 7
	encServerUUIDSize = 36
	encOffKeyAndIV    = 43
	encKeyAndIVSize   = 64

	// EncryptionInfoSize is magic(3) + master_key_id(4) + uuid(36) +
	// wrapped key+iv(64).
	EncryptionInfoSize = encMagicSize + 4 + encServerUUIDSize + encKeyAndIVSize
)

// EncryptionInfoOffset is the absolute byte offset of the encryption
// block within page 0.
const EncryptionInfoOffset = DataOffset + FSPHeaderSize

// EncryptionInfo is the 100-ish byte encryption block embedded in page 0
// when the tablespace is transparently encrypted.
type EncryptionInfo struct {
	Present      bool
	Magic        string
	MasterKeyID  uint32
	ServerUUID   [36]byte
	WrappedKeyIV [64]byte
}

// ParseEncryptionInfo reads the encryption block from page 0, returning
// Present=false (no error) if the magic bytes don't match a known
// keyring format version.
func ParseEncryptionInfo(pg []byte) (EncryptionInfo, error) {
	start := EncryptionInfoOffset
	if len(pg) < start+EncryptionInfoSize {
		return EncryptionInfo{}, ibderrors.Parse("page too short for encryption info: %d bytes", len(pg))
	}
	block := pg[start : start+EncryptionInfoSize]
	magic := string(block[encOffMagic : encOffMagic+encMagicSize])
	if magic != EncryptionMagicV1 && magic != EncryptionMagicV2 && magic != EncryptionMagicV3 {
		return EncryptionInfo{Present: false}, nil
	}
	info := EncryptionInfo{
		Present:     true,
		Magic:       magic,
		MasterKeyID: binary.BigEndian.Uint32(block[encOffMasterKeyID:]),
	}
	copy(info.ServerUUID[:], block[encOffServerUUID:encOffServerUUID+encServerUUIDSize])
	copy(info.WrappedKeyIV[:], block[encOffKeyAndIV:encOffKeyAndIV+encKeyAndIVSize])
	return info, nil
}

// PutEncryptionInfo serializes info into page 0's encryption block.
func PutEncryptionInfo(pg []byte, info EncryptionInfo) {
	start := EncryptionInfoOffset
	block := pg[start : start+EncryptionInfoSize]
	copy(block[encOffMagic:], []byte(info.Magic))
	binary.BigEndian.PutUint32(block[encOffMasterKeyID:], info.MasterKeyID)
	copy(block[encOffServerUUID:], info.ServerUUID[:])
	copy(block[encOffKeyAndIV:], info.WrappedKeyIV[:])
}
