package redolog

// MLogType classifies a redo log record's type code. The ~50-variant
// table mirrors mtr0types.h's mlog_id_t; only the subset the scanner
// and verify/health reports care about carries a dedicated constant,
// and String() returns "MLOG_UNKNOWN" for every other code.
type MLogType uint8

const (
	MLog1Byte              MLogType = 1
	MLog2Bytes             MLogType = 2
	MLog4Bytes             MLogType = 4
	MLog8Bytes             MLogType = 8
	MLogRecInsert          MLogType = 9
	MLogCompRecInsert      MLogType = 38
	MLogRecClustDeleteMark MLogType = 10
	MLogCompRecClustDeleteMark MLogType = 41
	MLogRecSecDeleteMark   MLogType = 11
	MLogRecUpdateInPlace   MLogType = 13
	MLogCompRecUpdateInPlace MLogType = 39
	MLogListEndDelete      MLogType = 14
	MLogCompListEndDelete  MLogType = 42
	MLogListStartDelete    MLogType = 15
	MLogCompListStartDelete MLogType = 43
	MLogListEndCopyCreated MLogType = 16
	MLogCompListEndCopyCreated MLogType = 44
	MLogPageReorganize     MLogType = 17
	MLogCompPageReorganize MLogType = 45
	MLogPageCreate         MLogType = 18
	MLogCompPageCreate     MLogType = 46
	MLogUndoInsert         MLogType = 19
	MLogUndoEraseEnd       MLogType = 20
	MLogUndoInit           MLogType = 21
	MLogUndoHdrDiscard     MLogType = 22
	MLogUndoHdrReuse       MLogType = 24
	MLogUndoHdrCreate      MLogType = 25
	MLogRecMinMarker       MLogType = 26
	MLogIbufBitmapInit     MLogType = 27
	MLogInitFileSys        MLogType = 29
	MLogWriteString        MLogType = 30
	MLogMultiRecEnd        MLogType = 31
	MLogDummyRecord        MLogType = 32
	MLogFileCreate         MLogType = 33
	MLogFileRename         MLogType = 34
	MLogFileDelete         MLogType = 35
	MLogCompRecDeleteMark  MLogType = 40
	MLogZipWriteNode       MLogType = 47
	MLogZipWriteBlobPtr    MLogType = 48
	MLogZipWriteHeader     MLogType = 49
	MLogZipPageCompress    MLogType = 51
	MLogFileCreate2        MLogType = 52
	MLogZipPageCompressNoData MLogType = 53
	MLogFileNameType       MLogType = 56
	MLogCheckpoint         MLogType = 58
	MLogPageCreateRTree    MLogType = 57
	MLogCompPageCreateRTree MLogType = 59
	MLogInitRowsWithMetadata MLogType = 60
	MLogTableDynamicMeta   MLogType = 61
)

var mlogNames = map[MLogType]string{
	MLog1Byte:                  "MLOG_1BYTE",
	MLog2Bytes:                 "MLOG_2BYTES",
	MLog4Bytes:                 "MLOG_4BYTES",
	MLog8Bytes:                 "MLOG_8BYTES",
	MLogRecInsert:              "MLOG_REC_INSERT",
	MLogCompRecInsert:          "MLOG_COMP_REC_INSERT",
	MLogRecClustDeleteMark:     "MLOG_REC_CLUST_DELETE_MARK",
	MLogCompRecClustDeleteMark: "MLOG_COMP_REC_CLUST_DELETE_MARK",
	MLogRecSecDeleteMark:       "MLOG_REC_SEC_DELETE_MARK",
	MLogRecUpdateInPlace:       "MLOG_REC_UPDATE_IN_PLACE",
	MLogCompRecUpdateInPlace:   "MLOG_COMP_REC_UPDATE_IN_PLACE",
	MLogListEndDelete:          "MLOG_LIST_END_DELETE",
	MLogCompListEndDelete:      "MLOG_COMP_LIST_END_DELETE",
	MLogListStartDelete:        "MLOG_LIST_START_DELETE",
	MLogCompListStartDelete:    "MLOG_COMP_LIST_START_DELETE",
	MLogListEndCopyCreated:     "MLOG_LIST_END_COPY_CREATED",
	MLogCompListEndCopyCreated: "MLOG_COMP_LIST_END_COPY_CREATED",
	MLogPageReorganize:         "MLOG_PAGE_REORGANIZE",
	MLogCompPageReorganize:     "MLOG_COMP_PAGE_REORGANIZE",
	MLogPageCreate:             "MLOG_PAGE_CREATE",
	MLogCompPageCreate:         "MLOG_COMP_PAGE_CREATE",
	MLogUndoInsert:             "MLOG_UNDO_INSERT",
	MLogUndoEraseEnd:           "MLOG_UNDO_ERASE_END",
	MLogUndoInit:               "MLOG_UNDO_INIT",
	MLogUndoHdrDiscard:         "MLOG_UNDO_HDR_DISCARD",
	MLogUndoHdrReuse:           "MLOG_UNDO_HDR_REUSE",
	MLogUndoHdrCreate:          "MLOG_UNDO_HDR_CREATE",
	MLogRecMinMarker:           "MLOG_REC_MIN_MARK",
	MLogIbufBitmapInit:         "MLOG_IBUF_BITMAP_INIT",
	MLogInitFileSys:            "MLOG_INIT_FILE_SYS",
	MLogWriteString:            "MLOG_WRITE_STRING",
	MLogMultiRecEnd:            "MLOG_MULTI_REC_END",
	MLogDummyRecord:            "MLOG_DUMMY_RECORD",
	MLogFileCreate:             "MLOG_FILE_CREATE",
	MLogFileRename:             "MLOG_FILE_RENAME",
	MLogFileDelete:             "MLOG_FILE_DELETE",
	MLogCompRecDeleteMark:      "MLOG_COMP_REC_DELETE_MARK",
	MLogZipWriteNode:           "MLOG_ZIP_WRITE_NODE_PTR",
	MLogZipWriteBlobPtr:        "MLOG_ZIP_WRITE_BLOB_PTR",
	MLogZipWriteHeader:         "MLOG_ZIP_WRITE_HEADER",
	MLogZipPageCompress:        "MLOG_ZIP_PAGE_COMPRESS",
	MLogFileCreate2:            "MLOG_FILE_CREATE2",
	MLogZipPageCompressNoData: "MLOG_ZIP_PAGE_COMPRESS_NO_DATA",
	MLogFileNameType:           "MLOG_FILE_NAME",
	MLogCheckpoint:             "MLOG_CHECKPOINT",
	MLogPageCreateRTree:        "MLOG_PAGE_CREATE_RTREE",
	MLogCompPageCreateRTree:    "MLOG_COMP_PAGE_CREATE_RTREE",
	MLogInitRowsWithMetadata:   "MLOG_INIT_ROWS_WITH_METADATA",
	MLogTableDynamicMeta:       "MLOG_TABLE_DYNAMIC_META",
}

func (t MLogType) String() string {
	// t is looked up as given; the multi-record high bit is split off
	// beforehand by RecordTypeCode. Codes without a name report
	// MLOG_UNKNOWN.
	if name, ok := mlogNames[t]; ok {
		return name
	}
	return "MLOG_UNKNOWN"
}

// multiRecordFlag is OR'd into a record's type byte on disk when the
// record is part of a multi-record group (an atomic mini-transaction
// spanning more than one log record).
const multiRecordFlag = 0x80

// RecordTypeCode splits a raw on-disk type byte into its base MLogType
// and whether the multi-record-group flag is set.
func RecordTypeCode(raw byte) (MLogType, bool) {
	return MLogType(raw &^ multiRecordFlag), raw&multiRecordFlag != 0
}
