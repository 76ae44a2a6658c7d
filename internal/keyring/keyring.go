// Package keyring decodes MySQL/Percona keyring_file files: the binary
// master-key store consulted to unwrap a transparently-encrypted
// tablespace's page key.
//
// Entries are XOR-obfuscated with a fixed, well-known pad (keyring_file
// does not attempt secrecy against an attacker who already has read
// access to the file; the obfuscation only defeats casual inspection)
// and the file carries a trailing SHA-256 tag over the obfuscated
// payload for integrity checking, not confidentiality.
package keyring

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"

	"github.com/ibdtool/ibdtool/internal/ibderrors"
)

// Magic values identifying the keyring file format version, matching
// the three versions page 0's encryption info block may reference.
const (
	MagicV1 = "lCA"
	MagicV2 = "lCB"
	MagicV3 = "lCC"
)

// obfuscationPad is keyring_file's well-known XOR pad. It is fixed and
// public by design: the scheme protects against accidental disclosure
// (e.g. a stray `strings` over the file), not a determined attacker.
var obfuscationPad = []byte("*305=Ljt0#C1)9pgtd6-&Pp!SnKFA_)")

func xorPad(buf []byte) []byte {
	out := make([]byte, len(buf))
	for i, b := range buf {
		out[i] = b ^ obfuscationPad[i%len(obfuscationPad)]
	}
	return out
}

// Entry is one master key record: the (server UUID, key ID) pair that
// page 0's encryption info looks up, and the 32-byte AES-256 key used to
// unwrap a tablespace's per-space key.
type Entry struct {
	ServerUUID string
	KeyID      uint32
	Key        [32]byte
}

// Keyring is a parsed keyring_file, indexed for lookup by (UUID, KeyID).
type Keyring struct {
	Magic   string
	Entries []Entry
	index   map[lookupKey]int
}

type lookupKey struct {
	uuid  string
	keyID uint32
}

const (
	hashSize   = sha256.Size
	entryUUIDSize = 36
	// entryFixedSize is key_id(4) + uuid(36) + key(32).
	entryFixedSize = 4 + entryUUIDSize + 32
)

// Parse decodes a keyring_file image: 3-byte magic, a count of entries,
// the XOR-obfuscated entry table, and a trailing SHA-256 tag over the
// obfuscated bytes.
func Parse(buf []byte) (*Keyring, error) {
	if len(buf) < 3+4+hashSize {
		return nil, ibderrors.Parse("keyring file too short: %d bytes", len(buf))
	}
	magic := string(buf[0:3])
	if magic != MagicV1 && magic != MagicV2 && magic != MagicV3 {
		return nil, ibderrors.Parse("keyring file: unrecognized magic %q", magic)
	}

	tag := buf[len(buf)-hashSize:]
	obfuscated := buf[3 : len(buf)-hashSize]
	computed := sha256.Sum256(obfuscated)
	if !bytes.Equal(computed[:], tag) {
		return nil, ibderrors.Parse("keyring file: integrity check failed")
	}

	plain := xorPad(obfuscated)
	if len(plain) < 4 {
		return nil, ibderrors.Parse("keyring file: truncated entry count")
	}
	count := binary.BigEndian.Uint32(plain[0:4])
	plain = plain[4:]

	kr := &Keyring{Magic: magic, index: make(map[lookupKey]int)}
	for i := uint32(0); i < count; i++ {
		if len(plain) < entryFixedSize {
			return nil, ibderrors.Parse("keyring file: truncated entry %d", i)
		}
		e := Entry{
			KeyID:      binary.BigEndian.Uint32(plain[0:4]),
			ServerUUID: string(bytes.TrimRight(plain[4:4+entryUUIDSize], "\x00")),
		}
		copy(e.Key[:], plain[4+entryUUIDSize:entryFixedSize])
		kr.index[lookupKey{uuid: e.ServerUUID, keyID: e.KeyID}] = len(kr.Entries)
		kr.Entries = append(kr.Entries, e)
		plain = plain[entryFixedSize:]
	}
	return kr, nil
}

// Lookup finds the master key for (serverUUID, keyID), the identifiers
// carried in a tablespace's encryption info block.
func (k *Keyring) Lookup(serverUUID string, keyID uint32) (Entry, bool) {
	idx, ok := k.index[lookupKey{uuid: serverUUID, keyID: keyID}]
	if !ok {
		return Entry{}, false
	}
	return k.Entries[idx], true
}
