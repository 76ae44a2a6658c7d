package record

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/ibdtool/ibdtool/internal/page"
)

type SDITestSuite struct {
	suite.Suite
}

func TestSDITestSuite(t *testing.T) {
	suite.Run(t, new(SDITestSuite))
}

func zlibCompress(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	_, err := w.Write(data)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func (s *SDITestSuite) TestExtractSingleTableRecord() {
	jsonDoc := []byte(`{"name":"actor","engine":"InnoDB","columns":[{"name":"actor_id","type":"smallint"}]}`)
	compressed := zlibCompress(s.T(), jsonDoc)

	buf := make([]byte, 16384)
	body := buf[page.DataOffsetIndex:]
	binary.BigEndian.PutUint32(body[0:4], uint32(page.SDIObjectTable))
	binary.BigEndian.PutUint64(body[4:12], 1)
	binary.BigEndian.PutUint32(body[12:16], uint32(len(compressed)))
	binary.BigEndian.PutUint32(body[16:20], uint32(len(jsonDoc)))
	copy(body[page.SDIRecordHeaderSize:], compressed)

	pages := map[int]PageInfo{4: NewPageInfo(page.TypeSDI, buf)}
	objs, err := ExtractSDI(pages, func(n int) ([]byte, error) { return nil, nil })
	s.Require().NoError(err)
	s.Require().Len(objs, 1)
	s.Require().NotNil(objs[0].Table)
	s.Equal("actor", objs[0].Table.Name)
	s.Equal("actor_id", objs[0].Table.Columns[0].Name)
}

func (s *SDITestSuite) TestExtractOverflowsIntoSDIBlob() {
	jsonDoc := bytes.Repeat([]byte("x"), 200)
	jsonDoc = append([]byte(`{"name":"wide","pad":"`), jsonDoc...)
	jsonDoc = append(jsonDoc, []byte(`"}`)...)
	compressed := zlibCompress(s.T(), jsonDoc)

	sdiPage := make([]byte, 16384)
	h := page.Header{RawType: uint16(page.TypeSDI), Next: 5}
	page.PutHeader(sdiPage, h)
	body := sdiPage[page.DataOffsetIndex:]
	binary.BigEndian.PutUint32(body[0:4], uint32(page.SDIObjectTable))
	binary.BigEndian.PutUint64(body[4:12], 9)
	binary.BigEndian.PutUint32(body[12:16], uint32(len(compressed)))
	binary.BigEndian.PutUint32(body[16:20], uint32(len(jsonDoc)))

	firstChunkLen := 10
	copy(body[page.SDIRecordHeaderSize:], compressed[:firstChunkLen])
	// Truncate body artificially by shrinking available space: simulate by
	// only leaving firstChunkLen bytes of page body after the header.
	sdiPage = sdiPage[:page.DataOffsetIndex+page.SDIRecordHeaderSize+firstChunkLen]

	blobPage := make([]byte, 16384)
	blobHdr := page.BlobHeader{PartLen: uint32(len(compressed) - firstChunkLen), NextPage: 0xFFFFFFFF}
	binary.BigEndian.PutUint32(blobPage[page.DataOffset:], blobHdr.PartLen)
	binary.BigEndian.PutUint32(blobPage[page.DataOffset+4:], uint32(blobHdr.NextPage))
	copy(blobPage[page.DataOffset+page.BlobHeaderSize:], compressed[firstChunkLen:])

	pages := map[int]PageInfo{4: NewPageInfo(page.TypeSDI, sdiPage)}
	fetch := func(n int) ([]byte, error) {
		if n == 5 {
			return blobPage, nil
		}
		return nil, nil
	}
	objs, err := ExtractSDI(pages, fetch)
	s.Require().NoError(err)
	s.Require().Len(objs, 1)
	s.Equal("wide", objs[0].Table.Name)
}

func (s *SDITestSuite) TestReconstructSchema() {
	t := &Table{
		Name:      "actor",
		Engine:    "InnoDB",
		RowFormat: "DYNAMIC",
		Columns: []Column{
			{Name: "actor_id", Type: "smallint", IsNullable: false, IsAutoIncrement: true},
			{Name: "name", Type: "varchar(45)", IsNullable: false},
		},
		Indexes: []Index{
			{Name: "PRIMARY", Type: "PRIMARY", Elements: []IndexElement{{ColumnName: "actor_id"}}},
		},
	}
	ddl := ReconstructSchema(t)
	s.Contains(ddl, "CREATE TABLE `actor`")
	s.Contains(ddl, "`actor_id` smallint NOT NULL AUTO_INCREMENT")
	s.Contains(ddl, "PRIMARY KEY (`actor_id`)")
	s.Contains(ddl, "ENGINE=InnoDB")
	s.Contains(ddl, "ROW_FORMAT=DYNAMIC")
}
