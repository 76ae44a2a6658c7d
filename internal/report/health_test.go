package report

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"
)

type HealthTestSuite struct {
	suite.Suite
}

func TestHealthTestSuite(t *testing.T) {
	suite.Run(t, new(HealthTestSuite))
}

func (s *HealthTestSuite) TestComputesPerIndexMetrics() {
	p0 := buildPage0(1, 3, 0)
	leaf1 := buildIndexPage(1, 1, 200, 0xFFFFFFFF, 2, 42, 0, 3)
	leaf2 := buildIndexPage(2, 1, 300, 1, 0xFFFFFFFF, 42, 0, 2)

	ts := openTestTablespace(p0, leaf1, leaf2)
	defer ts.Close()

	report, err := Health(context.Background(), ts)
	s.Require().NoError(err)
	s.Require().Contains(report.Indexes, uint64(42))
	ix := report.Indexes[42]
	s.Equal(2, ix.LeafCount)
	s.Equal(0, ix.InternalCount)
	s.Equal(1, ix.TreeDepth)
	s.GreaterOrEqual(ix.FillFactor, 0.0)
	s.LessOrEqual(ix.FillFactor, 1.0)
}

func (s *HealthTestSuite) TestFragmentationIsZeroForContiguousChain() {
	p0 := buildPage0(1, 3, 0)
	leaf1 := buildIndexPage(1, 1, 200, 0xFFFFFFFF, 2, 7, 0, 1)
	leaf2 := buildIndexPage(2, 1, 300, 1, 0xFFFFFFFF, 7, 0, 1)

	ts := openTestTablespace(p0, leaf1, leaf2)
	defer ts.Close()

	report, err := Health(context.Background(), ts)
	s.Require().NoError(err)
	s.Equal(0.0, report.Indexes[7].Fragmentation)
}
