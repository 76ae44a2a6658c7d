package redolog

import (
	"github.com/ibdtool/ibdtool/internal/ibderrors"
	"github.com/ibdtool/ibdtool/internal/record"
)

// RecordObservation is one MLOG record-type sighting within a data
// block's scan, starting at FirstRecGroup: only the type code and
// multi-record-group bookkeeping are recorded, never the payload.
//
// MultiRecordGroup, IsGroupStart, and IsGroupEnd restore the grouping
// concept an atomic mini-transaction's log records share: MLOG_*
// records carrying the multi-record flag belong to the same group until
// an MLOG_MULTI_REC_END closes it.
type RecordObservation struct {
	Offset           int
	Type             MLogType
	MultiRecordGroup int  // 0 if this record is not part of a multi-record group
	IsGroupStart     bool
	IsGroupEnd       bool

	// SpaceID and PageNumber are the compressed-integer location fields
	// (mach_parse_compressed) that immediately follow the type byte on
	// most MLOG record kinds. HasLocation is false for the handful of
	// types that carry none (MLOG_MULTI_REC_END, MLOG_DUMMY_RECORD,
	// MLOG_CHECKPOINT) or when the trailing bytes don't fit in the block.
	// When HasLocation is true the scan cursor advances past the type
	// byte and both location fields together, since they were consumed
	// decoding this record; otherwise it advances one byte.
	SpaceID     uint64
	PageNumber  uint64
	HasLocation bool
}

// typeCarriesLocation reports whether base's on-disk encoding is
// immediately followed by a compressed (space_id, page_no) pair, the
// layout MySQL's mlog_parse_initial_log_record expects for everything
// except the handful of header-only/global record kinds.
func typeCarriesLocation(base MLogType) bool {
	switch base {
	case MLogMultiRecEnd, MLogDummyRecord, MLogCheckpoint, MLogFileNameType:
		return false
	default:
		return true
	}
}

// ScanBlock reads record type codes starting at header.FirstRecGroup
// within a data block's payload (block[BlockHeaderSize:CRCOffset]),
// classifying each into the MLOG enum. It stops at a zero type byte
// (padding) or at the end of the block's data region, whichever comes
// first; an MLOG_MULTI_REC_END closes the open group and the scan goes
// on. Scanning is a no-op (returns nil, nil) when the caller has
// already determined the vendor is MariaDB, enforced by callers passing
// mlogDecodingAllowed=false rather than by this function inspecting
// vendor state itself.
func ScanBlock(block []byte, header BlockHeader, mlogDecodingAllowed bool) ([]RecordObservation, error) {
	if !mlogDecodingAllowed {
		return nil, nil
	}
	if header.IsEmpty() {
		return nil, nil
	}
	dataEnd := BlockHeaderSize + int(header.DataLen)
	if dataEnd > CRCOffset {
		dataEnd = CRCOffset
	}
	if dataEnd > len(block) {
		return nil, ibderrors.Parse("redo log block shorter than declared data_len")
	}

	var observations []RecordObservation
	groupCounter := 0
	inGroup := false
	offset := int(header.FirstRecGroup)
	if offset == 0 {
		// No record group starts in this block (it only continues one
		// begun earlier); nothing to scan from our point of view.
		return nil, nil
	}

	for offset < dataEnd {
		raw := block[offset]
		if raw == 0 {
			break
		}
		baseType, isMulti := RecordTypeCode(raw)

		obs := RecordObservation{Offset: offset, Type: baseType}
		consumed := 1
		if typeCarriesLocation(baseType) && offset+1 < dataEnd {
			if spaceID, n1, err := record.DecodeCompressedUint(block[offset+1 : dataEnd]); err == nil {
				if pageNo, n2, err := record.DecodeCompressedUint(block[offset+1+n1 : dataEnd]); err == nil {
					obs.SpaceID = spaceID
					obs.PageNumber = pageNo
					obs.HasLocation = true
					consumed = 1 + n1 + n2
				}
			}
		}
		if isMulti {
			if !inGroup {
				groupCounter++
				inGroup = true
				obs.IsGroupStart = true
			}
			obs.MultiRecordGroup = groupCounter
		}
		if baseType == MLogMultiRecEnd {
			obs.IsGroupEnd = true
			inGroup = false
		}
		observations = append(observations, obs)
		offset += consumed
	}
	return observations, nil
}

// CountsByType tallies how many observations fall under each MLogType,
// the per-block summary's reports surface.
func CountsByType(observations []RecordObservation) map[MLogType]int {
	counts := make(map[MLogType]int)
	for _, o := range observations {
		counts[o.Type]++
	}
	return counts
}
