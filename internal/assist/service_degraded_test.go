package assist_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"trrhub/internal/assist"
	"trrhub/internal/assist/mocks"
	"trrhub/internal/timeline"
)

// DegradedCacheSuite verifies the service keeps answering when the cache
// backend misbehaves.
type DegradedCacheSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	cache    *mocks.MockCache
	upstream *mocks.MockSuggester
	service  *assist.Service
}

func TestDegradedCacheSuite(t *testing.T) {
	suite.Run(t, new(DegradedCacheSuite))
}

func (s *DegradedCacheSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.cache = mocks.NewMockCache(s.ctrl)
	s.upstream = mocks.NewMockSuggester(s.ctrl)

	service, err := assist.NewService(s.cache, assist.NewLimiter(), s.upstream)
	s.Require().NoError(err)
	s.service = service
}

func (s *DegradedCacheSuite) request() assist.Request {
	return assist.Request{
		Type:     assist.SuggestionTitle,
		FormData: timeline.Snapshot{"x": 1},
		Context:  assist.RequestContext{OrganizationID: "org1"},
	}
}

func (s *DegradedCacheSuite) TestCacheReadFailureFallsThroughToUpstream() {
	resp := assist.Response{Suggestions: []string{"from upstream"}}

	s.cache.EXPECT().Get(gomock.Any(), gomock.Any()).
		Return(assist.Response{}, false, errors.New("redis timeout"))
	s.upstream.EXPECT().Suggest(gomock.Any(), gomock.Any()).Return(resp, nil)
	s.cache.EXPECT().Put(gomock.Any(), gomock.Any(), resp, gomock.Any()).Return(nil)

	got, err := s.service.GetSuggestion(context.Background(), s.request())
	s.Require().NoError(err)
	s.Equal(resp, got)
}

func (s *DegradedCacheSuite) TestCacheWriteFailureDoesNotFailTheCall() {
	resp := assist.Response{Suggestions: []string{"still returned"}}

	s.cache.EXPECT().Get(gomock.Any(), gomock.Any()).
		Return(assist.Response{}, false, nil)
	s.upstream.EXPECT().Suggest(gomock.Any(), gomock.Any()).Return(resp, nil)
	s.cache.EXPECT().Put(gomock.Any(), gomock.Any(), resp, gomock.Any()).
		Return(errors.New("redis down"))

	got, err := s.service.GetSuggestion(context.Background(), s.request())
	s.Require().NoError(err)
	s.Equal(resp, got)
}
