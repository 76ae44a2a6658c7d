package record

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type FieldsTestSuite struct {
	suite.Suite
}

func TestFieldsTestSuite(t *testing.T) {
	suite.Run(t, new(FieldsTestSuite))
}

func encodeSignedInt(v int64, width int) []byte {
	u := uint64(v)
	buf := make([]byte, width)
	for i := width - 1; i >= 0; i-- {
		buf[i] = byte(u)
		u >>= 8
	}
	buf[0] ^= 0x80
	return buf
}

func (s *FieldsTestSuite) TestDecodeSignedIntRoundTrip() {
	cases := []struct {
		v     int64
		width int
	}{
		{0, 1}, {-1, 1}, {127, 1}, {-128, 1},
		{12345, 4}, {-12345, 4},
		{1 << 40, 8}, {-(1 << 40), 8},
	}
	for _, c := range cases {
		buf := encodeSignedInt(c.v, c.width)
		got, err := DecodeSignedInt(buf)
		s.Require().NoError(err)
		s.Equal(c.v, got, "width=%d v=%d", c.width, c.v)
	}
}

func (s *FieldsTestSuite) TestDecodeDecimalPositive() {
	// 12345.67 with int_digits=5, frac_digits=2.
	// int leftover = 5 (since 5%9==5), width table[5]=3 bytes for value 12345.
	intBuf := make([]byte, 3)
	v := uint32(12345)
	intBuf[2] = byte(v)
	intBuf[1] = byte(v >> 8)
	intBuf[0] = byte(v >> 16)
	fracBuf := []byte{67}
	buf := append(intBuf, fracBuf...)
	buf[0] |= 0x80 // positive sign

	got, err := DecodeDecimal(buf, 5, 2)
	s.Require().NoError(err)
	s.Equal("12345.67", got)
}

func (s *FieldsTestSuite) TestDecodeDate() {
	// 2024-03-15: day=15, month=3, year=2024
	v := uint32(15) | uint32(3)<<5 | uint32(2024)<<9
	buf := []byte{byte(v >> 16), byte(v >> 8), byte(v)}
	year, month, day, err := DecodeDate(buf)
	s.Require().NoError(err)
	s.Equal(2024, year)
	s.Equal(3, month)
	s.Equal(15, day)
}

func (s *FieldsTestSuite) TestDecodeTime2() {
	raw := int32(5<<12|30<<6|15) + timeBias
	buf := []byte{byte(raw >> 16), byte(raw >> 8), byte(raw)}
	t2, err := DecodeTime2(buf)
	s.Require().NoError(err)
	s.Equal(5, t2.Hours)
	s.Equal(30, t2.Minutes)
	s.Equal(15, t2.Seconds)
	s.False(t2.Negative)
}

func (s *FieldsTestSuite) TestDecodeTimestamp2() {
	buf := []byte{0x66, 0x1A, 0x2B, 0x3C}
	got, err := DecodeTimestamp2(buf)
	s.Require().NoError(err)
	s.Equal(int64(0x661A2B3C), got)
}

func (s *FieldsTestSuite) TestDecodeVarchar() {
	buf := append([]byte{5}, []byte("hello world")...)
	got, err := DecodeVarchar(buf, 1)
	s.Require().NoError(err)
	s.Equal("hello", string(got))
}

func (s *FieldsTestSuite) TestDecodeEnumAndSet() {
	idx, err := DecodeEnum([]byte{3})
	s.Require().NoError(err)
	s.Equal(3, idx)

	mask, err := DecodeSet([]byte{0x05})
	s.Require().NoError(err)
	s.Equal(uint64(5), mask)
}

func (s *FieldsTestSuite) TestDecodeBlobHeaderInline() {
	buf := append([]byte{0, 5}, []byte("hello!!!")...)
	data, ext, err := DecodeBlobHeader(buf, 2, false)
	s.Require().NoError(err)
	s.Nil(ext)
	s.Equal("hello", string(data))
}

func (s *FieldsTestSuite) TestDecodeBlobHeaderExtern() {
	lenPrefix := []byte{0, 0}
	extern := make([]byte, 20)
	extern[3] = 7  // space id
	extern[7] = 3  // page number
	extern[11] = 9 // offset
	extern[19] = 42
	buf := append(lenPrefix, extern...)
	data, ext, err := DecodeBlobHeader(buf, 2, true)
	s.Require().NoError(err)
	s.Nil(data)
	s.Require().NotNil(ext)
	s.Equal(uint32(7), ext.SpaceID)
	s.Equal(uint32(3), ext.PageNumber)
	s.Equal(uint32(9), ext.Offset)
	s.Equal(uint64(42), ext.Length)
}

func (s *FieldsTestSuite) TestDecodeCompressedUintWidths() {
	cases := []struct {
		name  string
		buf   []byte
		value uint64
		width int
	}{
		{"1-byte", []byte{0x05}, 5, 1},
		{"2-byte", []byte{0x80, 0x2A}, 0x2A, 2},
		{"3-byte", []byte{0xC0, 0x01, 0x02}, 0x0102, 3},
		{"4-byte", []byte{0xE0, 0x01, 0x02, 0x03}, 0x010203, 4},
		{"5-byte", []byte{0xF0, 0x01, 0x02, 0x03, 0x04}, 0x01020304, 5},
		{"9-byte escape", append([]byte{0xFF}, 0, 0, 0, 0, 0, 0, 0, 42), 42, 9},
	}
	for _, c := range cases {
		value, width, err := DecodeCompressedUint(c.buf)
		s.Require().NoErrorf(err, "case %s", c.name)
		s.Equalf(c.value, value, "case %s", c.name)
		s.Equalf(c.width, width, "case %s", c.name)
	}
}

func (s *FieldsTestSuite) TestDecodeCompressedUintTruncated() {
	_, _, err := DecodeCompressedUint([]byte{0xC0})
	s.Error(err)
}

func (s *FieldsTestSuite) TestDecodeCompressedUintRejectsUnsupportedLead() {
	_, _, err := DecodeCompressedUint([]byte{0xF9, 0, 0, 0, 0, 0})
	s.Error(err)
}
