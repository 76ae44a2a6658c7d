package report

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/ibdtool/ibdtool/internal/compression"
	"github.com/ibdtool/ibdtool/internal/record"
)

// mariaDBPageCompressedFlags sets the original-MariaDB page-size
// signature (bit 16 with bits 11-14 clear) plus the page-compression
// bit, so vendor.Detect classifies the tablespace as MariaDB with
// PageCompressionFlagSet true.
const mariaDBPageCompressedFlags = 1<<16 | 1<<22

type CompatTestSuite struct {
	suite.Suite
}

func TestCompatTestSuite(t *testing.T) {
	suite.Run(t, new(CompatTestSuite))
}

func (s *CompatTestSuite) TestMissingSDIIsErrorAgainstMySQL8() {
	p0 := buildPage0(1, 1, 0)
	ts := openTestTablespace(p0)
	defer ts.Close()

	report := Compat(ts, 80000, CompatOptions{})
	var found bool
	for _, f := range report.Findings {
		if f.Check == "sdi" && f.Severity == SeverityError {
			found = true
		}
	}
	s.True(found)
}

func (s *CompatTestSuite) TestSDIPresentSatisfiesCheck() {
	p0 := buildPage0(1, 1, 0)
	ts := openTestTablespace(p0)
	defer ts.Close()

	report := Compat(ts, 80000, CompatOptions{SDI: []record.SDIObject{{}}})
	for _, f := range report.Findings {
		s.NotEqual("sdi", f.Check)
	}
}

func (s *CompatTestSuite) TestRedundantRowFormatDeprecatedAtMySQL9() {
	p0 := buildPage0(1, 1, 0)
	ts := openTestTablespace(p0)
	defer ts.Close()

	report := Compat(ts, 90000, CompatOptions{RowFormat: "REDUNDANT"})
	var found bool
	for _, f := range report.Findings {
		if f.Check == "row_format" && f.Severity == SeverityWarning {
			found = true
		}
	}
	s.True(found)
}

func (s *CompatTestSuite) TestUndecodableCompressionAlgorithmWarns() {
	p0 := buildPage0(1, 1, mariaDBPageCompressedFlags)
	ts := openTestTablespace(p0)
	defer ts.Close()

	report := Compat(ts, 80000, CompatOptions{CompressionAlgorithm: compression.AlgorithmLZO})
	var found bool
	for _, f := range report.Findings {
		if f.Check == "compression" && f.Severity == SeverityWarning {
			found = true
		}
	}
	s.True(found)
}

func (s *CompatTestSuite) TestDecodableCompressionAlgorithmIsInfoOnly() {
	p0 := buildPage0(1, 1, mariaDBPageCompressedFlags)
	ts := openTestTablespace(p0)
	defer ts.Close()

	report := Compat(ts, 80000, CompatOptions{CompressionAlgorithm: compression.AlgorithmLZ4})
	for _, f := range report.Findings {
		if f.Check == "compression" {
			s.Equal(SeverityInfo, f.Severity)
		}
	}
}

func (s *CompatTestSuite) TestNoCompressionFindingWithoutFlag() {
	p0 := buildPage0(1, 1, 0)
	ts := openTestTablespace(p0)
	defer ts.Close()

	report := Compat(ts, 80000, CompatOptions{})
	for _, f := range report.Findings {
		s.NotEqual("compression", f.Check)
	}
}
