// Package checksum is the Checksum Engine: the three InnoDB page
// checksum algorithms (CRC-32C, the legacy ut_fold_binary, and MariaDB's
// full_crc32), plus the validity classification that decides which
// algorithm(s) a page is allowed to match.
package checksum

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

// Algorithm identifies one of the three checksum schemes a page may be
// validated against.
type Algorithm int

const (
	AlgorithmUnknown Algorithm = iota
	// AlgorithmCRC32C is MySQL >= 5.7.7's Castagnoli CRC, XOR of two
	// independently computed ranges.
	AlgorithmCRC32C
	// AlgorithmLegacyInnoDB is the byte-level ut_fold_binary fold used by
	// InnoDB before 5.7.7.
	AlgorithmLegacyInnoDB
	// AlgorithmFullCRC32 is MariaDB >= 10.5's full_crc32 scheme: one
	// CRC-32C over the whole page minus its trailing 4 bytes, stored in
	// those trailing 4 bytes rather than the FIL header.
	AlgorithmFullCRC32
)

func (a Algorithm) String() string {
	switch a {
	case AlgorithmCRC32C:
		return "crc32c"
	case AlgorithmLegacyInnoDB:
		return "legacy_innodb"
	case AlgorithmFullCRC32:
		return "full_crc32"
	default:
		return "unknown"
	}
}

// SentinelDeadbeef is the stored-checksum value InnoDB writes into a page
// it intentionally left uninitialized ("empty"); such a page is reported
// EMPTY rather than INVALID even though no algorithm will match it.
const SentinelDeadbeef uint32 = 0xDEADBEEF

var castagnoliTable = crc32.MakeTable(crc32.Castagnoli)

// crc32cRange returns the raw (non-XORed) CRC-32C of buf[start:end].
func crc32cRange(buf []byte, start, end int) uint32 {
	return crc32.Checksum(buf[start:end], castagnoliTable)
}

// CRC32C computes InnoDB's default page checksum: CRC-32C over [4,26)
// XOR CRC-32C over [38, size-8). The two ranges are never chained into
// one CRC.
func CRC32C(page []byte) uint32 {
	size := len(page)
	lo := crc32cRange(page, 4, 26)
	hi := crc32cRange(page, 38, size-8)
	return lo ^ hi
}

// utFoldBinary is InnoDB's ut_fold_binary: a 32-bit wrapping byte-by-byte
// fold. The byte-level (not word-level) iteration order is load-bearing;
// an early, word-level reimplementation was an acknowledged InnoDB bug
// and must not be reproduced.
func utFoldBinary(buf []byte) uint32 {
	var a uint32
	for _, b := range buf {
		sum := a + uint32(b)
		a = sum ^ (sum >> 8)
	}
	return a
}

// LegacyInnoDB is the original InnoDB checksum, folded over the same
// two ranges as CRC32C.
func LegacyInnoDB(page []byte) uint32 {
	size := len(page)
	lo := utFoldBinary(page[4:26])
	hi := utFoldBinary(page[38 : size-8])
	return lo ^ hi
}

// FullCRC32 is MariaDB's full_crc32 mode: a single CRC-32C over the
// whole page body, [0, size-4).
func FullCRC32(page []byte) uint32 {
	size := len(page)
	return crc32cRange(page, 0, size-4)
}

// storedValue returns the checksum value stored on-disk for algo: the
// first 4 bytes of the FIL header for CRC32C/Legacy, or the last 4 bytes
// of the page for FullCRC32.
func storedValue(page []byte, algo Algorithm) uint32 {
	if algo == AlgorithmFullCRC32 {
		return binary.BigEndian.Uint32(page[len(page)-4:])
	}
	return binary.BigEndian.Uint32(page[0:4])
}

// Compute returns the checksum page would have under algo.
func Compute(page []byte, algo Algorithm) (uint32, error) {
	switch algo {
	case AlgorithmCRC32C:
		return CRC32C(page), nil
	case AlgorithmLegacyInnoDB:
		return LegacyInnoDB(page), nil
	case AlgorithmFullCRC32:
		return FullCRC32(page), nil
	default:
		return 0, fmt.Errorf("checksum: unknown algorithm %v", algo)
	}
}

// Status classifies a page's checksum against its permitted algorithms.
type Status int

const (
	StatusValid Status = iota
	StatusInvalid
	StatusEmpty
)

func (s Status) String() string {
	switch s {
	case StatusValid:
		return "VALID"
	case StatusInvalid:
		return "INVALID"
	case StatusEmpty:
		return "EMPTY"
	default:
		return "UNKNOWN"
	}
}

// Result is the outcome of validating one page.
type Result struct {
	Status   Status
	Algorithm Algorithm // the algorithm that matched (Valid), or the first permitted one tried (Invalid)
	Stored   uint32
	Computed uint32
}

// IsAllZero reports whether page's body (everything between the FIL
// header and trailer) is entirely zero bytes.
func IsAllZero(page []byte) bool {
	if len(page) <= 46 {
		return false
	}
	for _, b := range page[38 : len(page)-8] {
		if b != 0 {
			return false
		}
	}
	return true
}

// Validate classifies page against the algorithms permitted for its
// vendor/version (as resolved by the vendor dispatch layer). A page is
// VALID if any permitted algorithm matches; INVALID only if all of them
// reject it; EMPTY (not invalid) if its stored checksum is the sentinel
// 0xDEADBEEF or its body is all-zero.B.
func Validate(page []byte, permitted []Algorithm) Result {
	if len(permitted) == 0 {
		permitted = []Algorithm{AlgorithmCRC32C}
	}

	headerStored := binary.BigEndian.Uint32(page[0:4])
	if headerStored == SentinelDeadbeef || IsAllZero(page) {
		return Result{Status: StatusEmpty, Stored: headerStored}
	}

	var first Result
	for i, algo := range permitted {
		stored := storedValue(page, algo)
		computed, err := Compute(page, algo)
		if err != nil {
			continue
		}
		res := Result{Algorithm: algo, Stored: stored, Computed: computed}
		if i == 0 {
			first = res
		}
		if stored == computed {
			res.Status = StatusValid
			return res
		}
	}
	first.Status = StatusInvalid
	return first
}

// LSNConsistent reports whether the FIL header's low-32 LSN bits equal
// the FIL trailer's low-32 LSN bits, checked independently of checksum
// validity.B.
func LSNConsistent(page []byte) bool {
	size := len(page)
	headerLSN := binary.BigEndian.Uint64(page[16:24])
	trailerLow := binary.BigEndian.Uint32(page[size-4:])
	return uint32(headerLSN) == trailerLow
}
