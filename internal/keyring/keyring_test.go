package keyring

import (
	"crypto/sha256"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/suite"
)

type KeyringTestSuite struct {
	suite.Suite
}

func TestKeyringTestSuite(t *testing.T) {
	suite.Run(t, new(KeyringTestSuite))
}

func buildKeyringFile(magic string, entries []Entry) []byte {
	plain := make([]byte, 4)
	binary.BigEndian.PutUint32(plain, uint32(len(entries)))
	for _, e := range entries {
		rec := make([]byte, entryFixedSize)
		binary.BigEndian.PutUint32(rec[0:4], e.KeyID)
		copy(rec[4:4+entryUUIDSize], e.ServerUUID)
		copy(rec[4+entryUUIDSize:], e.Key[:])
		plain = append(plain, rec...)
	}
	obfuscated := xorPad(plain)
	tag := sha256.Sum256(obfuscated)

	buf := append([]byte(magic), obfuscated...)
	buf = append(buf, tag[:]...)
	return buf
}

func (s *KeyringTestSuite) TestParseAndLookup() {
	entries := []Entry{
		{ServerUUID: "11111111-1111-1111-1111-111111111111", KeyID: 1, Key: [32]byte{1, 2, 3}},
		{ServerUUID: "22222222-2222-2222-2222-222222222222", KeyID: 2, Key: [32]byte{4, 5, 6}},
	}
	buf := buildKeyringFile(MagicV1, entries)

	kr, err := Parse(buf)
	s.Require().NoError(err)
	s.Equal(MagicV1, kr.Magic)
	s.Len(kr.Entries, 2)

	found, ok := kr.Lookup("22222222-2222-2222-2222-222222222222", 2)
	s.True(ok)
	s.Equal(entries[1].Key, found.Key)

	_, ok = kr.Lookup("nonexistent", 99)
	s.False(ok)
}

func (s *KeyringTestSuite) TestParseRejectsBadMagic() {
	buf := buildKeyringFile(MagicV1, nil)
	buf[0] = 'x'
	_, err := Parse(buf)
	s.Error(err)
}

func (s *KeyringTestSuite) TestParseRejectsCorruptTag() {
	buf := buildKeyringFile(MagicV2, []Entry{{ServerUUID: "u", KeyID: 1}})
	buf[len(buf)-1] ^= 0xFF
	_, err := Parse(buf)
	s.Error(err)
}
