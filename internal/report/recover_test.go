package report

import (
	"bytes"
	"compress/zlib"
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/ibdtool/ibdtool/internal/compression"
	"github.com/ibdtool/ibdtool/internal/ioreader"
	"github.com/ibdtool/ibdtool/internal/page"
	"github.com/ibdtool/ibdtool/internal/tablespace"
)

type RecoverTestSuite struct {
	suite.Suite
}

func TestRecoverTestSuite(t *testing.T) {
	suite.Run(t, new(RecoverTestSuite))
}

func (s *RecoverTestSuite) TestClassifiesIntactCorruptEmpty() {
	p0 := buildPage0(1, 4, 0)
	intact := buildIndexPage(1, 1, 200, 0xFFFFFFFF, 0xFFFFFFFF, 55, 0, 3)
	corrupt := buildIndexPage(2, 1, 300, 0xFFFFFFFF, 0xFFFFFFFF, 55, 0, 3)
	binary.BigEndian.PutUint32(corrupt[0:4], 0xBAADF00D)
	empty := make([]byte, testPageSize)

	ts := openTestTablespace(p0, intact, corrupt, empty)
	defer ts.Close()

	report, err := Recover(context.Background(), ts, RecoverOptions{})
	s.Require().NoError(err)
	s.Require().Len(report.Pages, 4)
	s.Equal(ConditionIntact, report.Pages[0].Condition)
	s.Equal(ConditionIntact, report.Pages[1].Condition)
	s.Equal(ConditionCorrupt, report.Pages[2].Condition)
	s.Equal(ConditionEmpty, report.Pages[3].Condition)
	s.True(report.Pages[1].HasUserRecords)
}

func (s *RecoverTestSuite) TestForceWalksChainsOnCorruptPages() {
	p0 := buildPage0(1, 2, 0)
	corrupt := buildIndexPage(1, 1, 200, 0xFFFFFFFF, 0xFFFFFFFF, 9, 0, 2)
	binary.BigEndian.PutUint32(corrupt[0:4], 0xFEEDFACE)

	ts := openTestTablespace(p0, corrupt)
	defer ts.Close()

	without, err := Recover(context.Background(), ts, RecoverOptions{})
	s.Require().NoError(err)
	s.False(without.Pages[1].HasUserRecords)

	_ = page.TypeIndex
	withForce, err := Recover(context.Background(), ts, RecoverOptions{Force: true})
	s.Require().NoError(err)
	s.True(withForce.Pages[1].HasUserRecords)
}

func (s *RecoverTestSuite) TestValidPageCompressionStaysIntact() {
	var compressed bytes.Buffer
	w := zlib.NewWriter(&compressed)
	_, err := w.Write([]byte("hello"))
	s.Require().NoError(err)
	s.Require().NoError(w.Close())

	p0 := buildPage0(1, 2, mariaDBPageCompressedFlags)
	pg := buildPage(1, 1, uint16(page.TypeIndex), 100, 0xFFFFFFFF, 0xFFFFFFFF)
	copy(pg[page.DataOffset:], compressed.Bytes())
	stampChecksum(pg)

	ts := openTestTablespace(p0, pg)
	defer ts.Close()

	report, err := Recover(context.Background(), ts, RecoverOptions{})
	s.Require().NoError(err)
	s.Equal(compression.AlgorithmZlib, report.Pages[1].CompressionAlgorithm)
	s.Equal(ConditionIntact, report.Pages[1].Condition)
}

func (s *RecoverTestSuite) TestGarbageCompressedPayloadDemotesToCorrupt() {
	p0 := buildPage0(1, 2, mariaDBPageCompressedFlags)
	pg := buildPage(1, 1, uint16(page.TypeIndex), 100, 0xFFFFFFFF, 0xFFFFFFFF)
	copy(pg[page.DataOffset:], []byte{0x04, 0x22, 0x4D, 0x18, 0xFF, 0xFF, 0xFF, 0xFF})
	stampChecksum(pg)

	ts := openTestTablespace(p0, pg)
	defer ts.Close()

	report, err := Recover(context.Background(), ts, RecoverOptions{})
	s.Require().NoError(err)
	s.Equal(compression.AlgorithmLZ4, report.Pages[1].CompressionAlgorithm)
	s.Equal(ConditionCorrupt, report.Pages[1].Condition)
}

func (s *RecoverTestSuite) TestPageSizeHeuristicFlag() {
	p0 := buildPage0(1, 1, 0)

	fallbackSrc := ioreader.NewBufferSource(append([]byte{}, p0...))
	tsFallback, err := tablespace.Open(fallbackSrc, tablespace.Options{})
	s.Require().NoError(err)
	defer tsFallback.Close()
	reportFallback, err := Recover(context.Background(), tsFallback, RecoverOptions{})
	s.Require().NoError(err)
	s.True(reportFallback.PageSizeHeuristic)

	explicitSrc := ioreader.NewBufferSource(append([]byte{}, p0...))
	tsExplicit, err := tablespace.Open(explicitSrc, tablespace.Options{PageSize: testPageSize})
	s.Require().NoError(err)
	defer tsExplicit.Close()
	reportExplicit, err := Recover(context.Background(), tsExplicit, RecoverOptions{})
	s.Require().NoError(err)
	s.False(reportExplicit.PageSizeHeuristic)
}
