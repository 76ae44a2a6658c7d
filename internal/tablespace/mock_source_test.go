package tablespace

import (
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/suite"

	"github.com/ibdtool/ibdtool/internal/ibderrors"
	"github.com/ibdtool/ibdtool/internal/ioreader"
)

type MockSourceTestSuite struct {
	suite.Suite
}

func TestMockSourceTestSuite(t *testing.T) {
	suite.Run(t, new(MockSourceTestSuite))
}

// TestOpenPropagatesReadError exercises the page-0 read failure path
// with a mocked Source, since a real file or buffer can't be made to
// fail ReadAt on demand the way a flaky device or truncated NFS mount
// would in production.
func (s *MockSourceTestSuite) TestOpenPropagatesReadError() {
	ctrl := gomock.NewController(s.T())
	defer ctrl.Finish()

	src := ioreader.NewMockSource(ctrl)
	src.EXPECT().ReadAt(gomock.Any(), int64(0)).Return(0, ibderrors.IO("simulated device read failure"))

	_, err := Open(src, Options{PageSize: 16384})
	s.Error(err)
}
