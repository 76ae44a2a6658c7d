package tablespace

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/ibdtool/ibdtool/internal/checksum"
	"github.com/ibdtool/ibdtool/internal/ioreader"
	"github.com/ibdtool/ibdtool/internal/keyring"
	"github.com/ibdtool/ibdtool/internal/page"
	"github.com/ibdtool/ibdtool/internal/types"
)

const testPageSize = 16384

// buildPage buffers a FIL header/trailer and recomputes the CRC-32C
// checksum so that detection and checksum validation see a valid page.
func buildPage(pageNumber uint32, spaceID uint32, rawType uint16, lsn uint64) []byte {
	buf := make([]byte, testPageSize)
	h := page.Header{
		PageNumber: types.PageNumber(pageNumber),
		Prev:       types.PageNumber(0xFFFFFFFF),
		Next:       types.PageNumber(0xFFFFFFFF),
		LSN:        types.LSN(lsn),
		RawType:    rawType,
		SpaceID:    types.SpaceID(spaceID),
	}
	page.PutHeader(buf, h)
	page.PutTrailer(buf, page.Trailer{LSNLow32: uint32(lsn)})
	cs := checksum.CRC32C(buf)
	binary.BigEndian.PutUint32(buf[0:4], cs)
	binary.BigEndian.PutUint32(buf[len(buf)-8:len(buf)-4], cs)
	return buf
}

func buildPage0(spaceID uint32, totalPages uint32, fspFlags uint32) []byte {
	buf := buildPage(0, spaceID, uint16(page.TypeFSPHdr), 100)
	page.PutFSPHeader(buf, page.FSPHeader{
		SpaceID: types.SpaceID(spaceID),
		Size:    totalPages,
		Flags:   fspFlags,
	})
	cs := checksum.CRC32C(buf)
	binary.BigEndian.PutUint32(buf[0:4], cs)
	binary.BigEndian.PutUint32(buf[len(buf)-8:len(buf)-4], cs)
	return buf
}

type TablespaceTestSuite struct {
	suite.Suite
}

func TestTablespaceTestSuite(t *testing.T) {
	suite.Run(t, new(TablespaceTestSuite))
}

func (s *TablespaceTestSuite) TestOpenDetectsPageSizeAndSpaceID() {
	p0 := buildPage0(7, 3, 0)
	p1 := buildPage(1, 7, uint16(page.TypeIndex), 200)
	p2 := buildPage(2, 7, uint16(page.TypeAllocated), 300)

	img := append(append(p0, p1...), p2...)
	src := ioreader.NewBufferSource(img)

	ts, err := Open(src, Options{})
	s.Require().NoError(err)
	s.Equal(testPageSize, ts.PageSize())
	s.Equal(types.SpaceID(7), ts.SpaceID())
	s.Equal(3, ts.PageCount())
}

func (s *TablespaceTestSuite) TestReadPageRoundTrip() {
	p0 := buildPage0(9, 2, 0)
	p1 := buildPage(1, 9, uint16(page.TypeIndex), 500)
	img := append(append([]byte{}, p0...), p1...)
	src := ioreader.NewBufferSource(img)

	ts, err := Open(src, Options{})
	s.Require().NoError(err)

	got, err := ts.ReadPage(1)
	s.Require().NoError(err)
	s.Equal(p1, got)
}

func (s *TablespaceTestSuite) TestEncryptedTablespaceDecryptsWithKeyring() {
	masterKey := make([]byte, 32)
	for i := range masterKey {
		masterKey[i] = byte(i)
	}
	tsKey := make([]byte, 32)
	tsIV := make([]byte, 16)
	for i := range tsKey {
		tsKey[i] = byte(0x40 + i)
	}
	for i := range tsIV {
		tsIV[i] = byte(0x80 + i)
	}

	block, err := aes.NewCipher(masterKey)
	s.Require().NoError(err)
	wrapped := make([]byte, 48)
	plainKeyIV := append(append([]byte{}, tsKey...), tsIV...)
	for off := 0; off < 48; off += aes.BlockSize {
		block.Encrypt(wrapped[off:off+aes.BlockSize], plainKeyIV[off:off+aes.BlockSize])
	}

	p0 := buildPage0(3, 2, 0)
	var enc page.EncryptionInfo
	enc.Present = true
	enc.Magic = page.EncryptionMagicV1
	enc.MasterKeyID = 5
	copy(enc.ServerUUID[:], "11111111-1111-1111-1111-111111111111")
	copy(enc.WrappedKeyIV[:], wrapped)
	page.PutEncryptionInfo(p0, enc)
	recs := checksum.CRC32C(p0)
	binary.BigEndian.PutUint32(p0[0:4], recs)
	binary.BigEndian.PutUint32(p0[len(p0)-8:len(p0)-4], recs)

	plainPage := buildPage(1, 3, uint16(page.TypeIndex), 777)
	body := plainPage[page.DataOffset : len(plainPage)-page.FILTrailerSize]
	n := (len(body) / aes.BlockSize) * aes.BlockSize
	cipherPage := make([]byte, len(plainPage))
	copy(cipherPage, plainPage)
	tsBlock, err := aes.NewCipher(tsKey)
	s.Require().NoError(err)
	mode := cipher.NewCBCEncrypter(tsBlock, tsIV)
	mode.CryptBlocks(cipherPage[page.DataOffset:page.DataOffset+n], body[:n])

	img := append(append([]byte{}, p0...), cipherPage...)
	src := ioreader.NewBufferSource(img)

	krEntries := []keyring.Entry{{ServerUUID: "11111111-1111-1111-1111-111111111111", KeyID: 5}}
	copy(krEntries[0].Key[:], masterKey)
	kr := buildTestKeyring(s.T(), krEntries)

	ts, err := Open(src, Options{Keyring: kr})
	s.Require().NoError(err)
	s.True(ts.IsEncrypted())

	got, err := ts.ReadPage(1)
	s.Require().NoError(err)
	s.Equal(plainPage, got)
}

func (s *TablespaceTestSuite) TestReadPageWithoutKeyringReturnsCiphertext() {
	p0 := buildPage0(3, 2, 0)
	var enc page.EncryptionInfo
	enc.Present = true
	enc.Magic = page.EncryptionMagicV1
	page.PutEncryptionInfo(p0, enc)
	cs := checksum.CRC32C(p0)
	binary.BigEndian.PutUint32(p0[0:4], cs)
	binary.BigEndian.PutUint32(p0[len(p0)-8:len(p0)-4], cs)

	p1 := buildPage(1, 3, uint16(page.TypeIndex), 1)
	img := append(append([]byte{}, p0...), p1...)
	src := ioreader.NewBufferSource(img)

	ts, err := Open(src, Options{})
	s.Require().NoError(err)
	s.True(ts.IsEncrypted())

	got, err := ts.ReadPage(1)
	s.Require().NoError(err)
	s.Equal(p1, got)
}

// buildTestKeyring constructs a keyring.Keyring via the real Parse path
// so the test exercises the same decode logic production code uses.
func buildTestKeyring(t *testing.T, entries []keyring.Entry) *keyring.Keyring {
	t.Helper()
	plain := make([]byte, 4)
	binary.BigEndian.PutUint32(plain, uint32(len(entries)))
	for _, e := range entries {
		rec := make([]byte, 4+36+32)
		binary.BigEndian.PutUint32(rec[0:4], e.KeyID)
		copy(rec[4:4+36], e.ServerUUID)
		copy(rec[4+36:], e.Key[:])
		plain = append(plain, rec...)
	}
	pad := []byte("*305=Ljt0#C1)9pgtd6-&Pp!SnKFA_)")
	obf := make([]byte, len(plain))
	for i, b := range plain {
		obf[i] = b ^ pad[i%len(pad)]
	}
	tag := sha256.Sum256(obf)
	buf := append([]byte(keyring.MagicV1), obf...)
	buf = append(buf, tag[:]...)

	kr, err := keyring.Parse(buf)
	require(t, err)
	return kr
}

func require(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
