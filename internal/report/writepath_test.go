package report

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/ibdtool/ibdtool/internal/checksum"
	"github.com/ibdtool/ibdtool/internal/ioreader"
	"github.com/ibdtool/ibdtool/internal/page"
	"github.com/ibdtool/ibdtool/internal/tablespace"
)

type WritePathTestSuite struct {
	suite.Suite
	dir string
}

func TestWritePathTestSuite(t *testing.T) {
	suite.Run(t, new(WritePathTestSuite))
}

func (s *WritePathTestSuite) SetupTest() {
	dir, err := os.MkdirTemp("", "writepath_test")
	s.Require().NoError(err)
	s.dir = dir
}

func (s *WritePathTestSuite) TearDownTest() {
	os.RemoveAll(s.dir)
}

func (s *WritePathTestSuite) writeFile(name string, pages ...[]byte) string {
	path := filepath.Join(s.dir, name)
	var img []byte
	for _, p := range pages {
		img = append(img, p...)
	}
	s.Require().NoError(os.WriteFile(path, img, 0o644))
	return path
}

func (s *WritePathTestSuite) openFile(path string) *tablespace.Tablespace {
	data, err := os.ReadFile(path)
	s.Require().NoError(err)
	src := ioreader.NewBufferSource(data)
	ts, err := tablespace.Open(src, tablespace.Options{})
	s.Require().NoError(err)
	return ts
}

func (s *WritePathTestSuite) TestRepairFixesInvalidChecksumAndBacksUp() {
	p0 := buildPage0(1, 2, 0)
	p1 := buildPage(1, 1, uint16(page.TypeAllocated), 200, 0xFFFFFFFF, 0xFFFFFFFF)
	binary.BigEndian.PutUint32(p1[0:4], 0x11111111)

	path := s.writeFile("t.ibd", p0, p1)
	ts := s.openFile(path)
	defer ts.Close()

	report, err := Repair(context.Background(), path, ts, nil, RepairOptions{})
	s.Require().NoError(err)
	s.Require().Len(report.Changed, 1)
	s.Equal(1, report.Changed[0].Page)

	s.FileExists(path + ".bak")

	fixed, err := os.ReadFile(path)
	s.Require().NoError(err)
	permitted := ts.VendorInfo().PermittedAlgorithms()
	res := checksum.Validate(fixed[testPageSize:2*testPageSize], permitted)
	s.Equal(checksum.StatusValid, res.Status)
}

func (s *WritePathTestSuite) TestRepairDryRunLeavesFileUnchanged() {
	p0 := buildPage0(1, 2, 0)
	p1 := buildPage(1, 1, uint16(page.TypeAllocated), 200, 0xFFFFFFFF, 0xFFFFFFFF)
	binary.BigEndian.PutUint32(p1[0:4], 0x22222222)

	path := s.writeFile("t2.ibd", p0, p1)
	ts := s.openFile(path)
	defer ts.Close()

	report, err := Repair(context.Background(), path, ts, nil, RepairOptions{DryRun: true})
	s.Require().NoError(err)
	s.Require().Len(report.Changed, 1)
	s.NoFileExists(path + ".bak")

	unchanged, err := os.ReadFile(path)
	s.Require().NoError(err)
	s.Equal(uint32(0x22222222), binary.BigEndian.Uint32(unchanged[testPageSize:testPageSize+4]))
}

func (s *WritePathTestSuite) TestTransplantRefusesPageZeroWithoutForce() {
	donorP0 := buildPage0(1, 2, 0)
	donorP1 := buildPage(1, 1, uint16(page.TypeAllocated), 200, 0xFFFFFFFF, 0xFFFFFFFF)
	targetP0 := buildPage0(1, 2, 0)
	targetP1 := buildPage(1, 1, uint16(page.TypeAllocated), 999, 0xFFFFFFFF, 0xFFFFFFFF)

	donorPath := s.writeFile("donor.ibd", donorP0, donorP1)
	targetPath := s.writeFile("target.ibd", targetP0, targetP1)

	donor := s.openFile(donorPath)
	target := s.openFile(targetPath)
	defer donor.Close()
	defer target.Close()

	err := Transplant(donor, target, targetPath, []int{0}, TransplantOptions{})
	s.Error(err)
}

func (s *WritePathTestSuite) TestTransplantCopiesRequestedPage() {
	donorP0 := buildPage0(1, 2, 0)
	donorP1 := buildPage(1, 1, uint16(page.TypeAllocated), 200, 0xFFFFFFFF, 0xFFFFFFFF)
	targetP0 := buildPage0(1, 2, 0)
	targetP1 := buildPage(1, 1, uint16(page.TypeAllocated), 999, 0xFFFFFFFF, 0xFFFFFFFF)

	donorPath := s.writeFile("donor2.ibd", donorP0, donorP1)
	targetPath := s.writeFile("target2.ibd", targetP0, targetP1)

	donor := s.openFile(donorPath)
	target := s.openFile(targetPath)
	defer donor.Close()
	defer target.Close()

	s.Require().NoError(Transplant(donor, target, targetPath, []int{1}, TransplantOptions{}))

	merged, err := os.ReadFile(targetPath)
	s.Require().NoError(err)
	s.Equal(donorP1, merged[testPageSize:2*testPageSize])
}

func (s *WritePathTestSuite) TestDefragWritesNewFileLeavingSourceUntouched() {
	p0 := buildPage0(1, 3, 0)
	leaf1 := buildIndexPage(1, 1, 200, 0xFFFFFFFF, 2, 3, 0, 1)
	leaf2 := buildIndexPage(2, 1, 300, 1, 0xFFFFFFFF, 3, 0, 1)

	srcPath := s.writeFile("src.ibd", p0, leaf1, leaf2)
	original, err := os.ReadFile(srcPath)
	s.Require().NoError(err)

	ts := s.openFile(srcPath)
	defer ts.Close()

	outPath := filepath.Join(s.dir, "out.ibd")
	s.Require().NoError(Defrag(context.Background(), ts, outPath))

	s.FileExists(outPath)
	stillThere, err := os.ReadFile(srcPath)
	s.Require().NoError(err)
	s.Equal(original, stillThere)
}
