package page

import "fmt"

// Type enumerates the page-type codes InnoDB writes into the FIL header.
// Numeric values follow the real fil0fil.h FIL_PAGE_* assignments so that
// decoded tablespaces read the way a developer familiar with InnoDB
// would expect. Code 18 is vendor-ambiguous; see ResolveAmbiguousType in
// the vendor package, which is the only place that may pick between its
// two meanings.
type Type uint16

const (
	TypeAllocated Type = 0
	TypeUnused    Type = 1
	TypeUndoLog   Type = 2
	TypeInode     Type = 3
	TypeIbufFreeList Type = 4
	TypeIbufBitmap Type = 5
	TypeSys       Type = 6
	TypeTrxSys    Type = 7
	TypeFSPHdr    Type = 8
	TypeXDES      Type = 9
	TypeBlob      Type = 10
	TypeZBlob     Type = 11
	TypeZBlob2    Type = 12
	TypeUnknown   Type = 13
	TypeCompressed Type = 14
	TypeEncrypted Type = 15
	TypeCompressedAndEncrypted Type = 16
	TypeEncryptedRTree Type = 17

	// TypeAmbiguous18 is FIL_PAGE_SDI_BLOB under MySQL, and MariaDB's
	// FIL_PAGE_TYPE_INSTANT under MariaDB. Never return this from a
	// vendor-aware call path; it exists only so ParseHeader's raw type
	// can be inspected before resolution.
	TypeAmbiguous18 Type = 18

	TypeSDIZBlob  Type = 19
	TypeLobIndex  Type = 20
	TypeLobData   Type = 21
	TypeLobFirst  Type = 22
	TypeZLobFirst Type = 23
	TypeZLobData  Type = 24
	TypeZLobIndex Type = 25
	TypeZLobFrag  Type = 26
	TypeZLobFragEntry Type = 27
	TypeRsegArray Type = 28
	TypeLegacyDblWr Type = 29

	// Resolved-only synthetic values, never present on disk as the raw
	// FIL header code; vendor dispatch maps TypeAmbiguous18 to one of
	// these depending on vendor.
	TypeSDIBlob Type = 1018
	TypeInstant Type = 1019

	// TypeIndex and TypeSDI use InnoDB's real large numeric codes
	// (0x45BF / 0x45BD) rather than small sequential ones.
	TypeIndex Type = 17855
	TypeRTree Type = 17854
	TypeSDI   Type = 17853

	// MariaDB-only synthetic page type, reported after MariaDB format
	// detection; MariaDB stores this information in FSP flags rather
	// than as a distinct FIL_PAGE_TYPE, so it is only ever produced by
	// the vendor dispatch layer, never decoded from RawType directly.
	TypePageCompressed Type = 2014
)

var typeNames = map[Type]string{
	TypeAllocated:              "ALLOCATED",
	TypeUnused:                 "UNUSED",
	TypeUndoLog:                "UNDO_LOG",
	TypeInode:                  "INODE",
	TypeIbufFreeList:           "IBUF_FREE_LIST",
	TypeIbufBitmap:             "IBUF_BITMAP",
	TypeSys:                    "SYS",
	TypeTrxSys:                 "TRX_SYS",
	TypeFSPHdr:                 "FSP_HDR",
	TypeXDES:                   "XDES",
	TypeBlob:                   "BLOB",
	TypeZBlob:                  "ZBLOB",
	TypeZBlob2:                 "ZBLOB2",
	TypeUnknown:                "UNKNOWN",
	TypeCompressed:             "COMPRESSED",
	TypeEncrypted:              "ENCRYPTED",
	TypeCompressedAndEncrypted: "COMPRESSED_AND_ENCRYPTED",
	TypeEncryptedRTree:         "ENCRYPTED_RTREE",
	TypeAmbiguous18:            "AMBIGUOUS_18",
	TypeSDIZBlob:               "SDI_ZBLOB",
	TypeLobIndex:               "LOB_INDEX",
	TypeLobData:                "LOB_DATA",
	TypeLobFirst:               "LOB_FIRST",
	TypeZLobFirst:              "ZLOB_FIRST",
	TypeZLobData:               "ZLOB_DATA",
	TypeZLobIndex:              "ZLOB_INDEX",
	TypeZLobFrag:               "ZLOB_FRAG",
	TypeZLobFragEntry:          "ZLOB_FRAG_ENTRY",
	TypeRsegArray:              "RSEG_ARRAY",
	TypeLegacyDblWr:            "LEGACY_DBLWR",
	TypeSDIBlob:                "SDI_BLOB",
	TypeInstant:                "INSTANT",
	TypeIndex:                  "INDEX",
	TypeRTree:                  "RTREE",
	TypeSDI:                    "SDI",
	TypePageCompressed:         "PAGE_COMPRESSED",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TYPE_%d", uint16(t))
}

// FromRaw converts an on-disk RawType code into a Type, without resolving
// the ambiguous code 18. Callers that need code-18 resolved must go
// through vendor.ResolveAmbiguousType instead.
func FromRaw(raw uint16) Type {
	return Type(raw)
}
