package nsapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"citizenship/internal/nation"
	"citizenship/pkg/platform/circuit"
	"citizenship/pkg/platform/sentinel"
	"citizenship/pkg/testutil"
)

// =============================================================================
// Nation API Client Test Suite
// =============================================================================

type ClientSuite struct {
	suite.Suite
	handler http.HandlerFunc
	server  *httptest.Server
	client  *Client
	hits    atomic.Int32
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientSuite))
}

func (s *ClientSuite) SetupTest() {
	s.hits.Store(0)
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		s.handler(w, r)
	}))
	var err error
	s.client, err = New(s.server.URL, "citizenship tests",
		WithRateLimit(1000, time.Second),
		WithLogger(testutil.DiscardLogger()),
		WithBreaker(circuit.New("test", circuit.WithFailureThreshold(2), circuit.WithCooldown(time.Hour))),
	)
	s.Require().NoError(err)
}

func (s *ClientSuite) TearDownTest() {
	s.server.Close()
}

func (s *ClientSuite) TestNew() {
	s.Run("user agent is required", func() {
		_, err := New("http://x", " ")
		s.Error(err)
	})
}

func (s *ClientSuite) TestNation() {
	ctx := context.Background()

	s.Run("parses shards and sends user agent", func() {
		s.handler = func(w http.ResponseWriter, r *http.Request) {
			s.Equal("citizenship tests", r.Header.Get("User-Agent"))
			s.Equal("testlandia", r.URL.Query().Get("nation"))
			s.Equal("name region wa", r.URL.Query().Get("q"))
			_, _ = w.Write([]byte(`<NATION id="testlandia"><NAME>Testlandia</NAME>` +
				`<REGION>The North Pacific</REGION><UNSTATUS>WA Member</UNSTATUS></NATION>`))
		}
		n, err := s.client.Nation(ctx, "testlandia")
		s.Require().NoError(err)
		s.Equal("Testlandia", n.Name)
		s.Equal(nation.Key("the_north_pacific"), n.Region)
		s.True(n.WAMember)
	})

	s.Run("non-members are not WA members", func() {
		s.handler = func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<NATION><NAME>X</NAME><REGION>Lazarus</REGION><UNSTATUS>Non-member</UNSTATUS></NATION>`))
		}
		n, err := s.client.Nation(ctx, "x")
		s.Require().NoError(err)
		s.False(n.WAMember)
	})

	s.Run("404 is not found, not a transport failure", func() {
		s.handler = func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}
		_, err := s.client.Nation(ctx, "nowhere")
		s.ErrorIs(err, sentinel.ErrNotFound)
		s.NotErrorIs(err, sentinel.ErrUnavailable)
	})

	s.Run("5xx is a transport failure", func() {
		s.handler = func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}
		_, err := s.client.Nation(ctx, "testlandia")
		s.ErrorIs(err, sentinel.ErrUnavailable)
		var te *TransportError
		s.True(errors.As(err, &te))
		s.Equal(http.StatusBadGateway, te.Status)
	})
}

func (s *ClientSuite) TestBreakerShortCircuits() {
	ctx := context.Background()
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	for i := 0; i < 2; i++ {
		_, err := s.client.Nation(ctx, "testlandia")
		s.ErrorIs(err, sentinel.ErrUnavailable)
	}
	s.False(s.client.Healthy())

	_, err := s.client.Nation(ctx, "testlandia")
	s.ErrorIs(err, sentinel.ErrUnavailable)
	s.Equal(int32(2), s.hits.Load(), "open breaker skips the request")
}

func (s *ClientSuite) TestRateLimited() {
	ctx := context.Background()
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "120")
		w.WriteHeader(http.StatusTooManyRequests)
	}

	_, err := s.client.Nation(ctx, "testlandia")
	var rl *RateLimitError
	s.Require().True(errors.As(err, &rl))
	s.Equal(120*time.Second, rl.RetryAfter)
	s.True(s.client.BlockedUntil().After(time.Now()))

	_, err = s.client.Nation(ctx, "testlandia")
	s.True(errors.As(err, &rl))
	s.Equal(int32(1), s.hits.Load(), "blocked window skips the request")
}

func (s *ClientSuite) TestRegion() {
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		s.Equal("the_north_pacific", r.URL.Query().Get("region"))
		_, _ = w.Write([]byte(`<REGION id="the_north_pacific">
			<NATIONS>testlandia:otherland:third_one</NATIONS>
			<UNNATIONS>testlandia,otherland</UNNATIONS>
			<DELEGATE>testlandia</DELEGATE><DELEGATEAUTH>XWA</DELEGATEAUTH>
			<FOUNDER>0</FOUNDER><FOUNDERAUTH></FOUNDERAUTH>
			<OFFICERS>
				<OFFICER><NATION>otherland</NATION><OFFICE>Speaker</OFFICE><AUTHORITY>CP</AUTHORITY></OFFICER>
			</OFFICERS>
		</REGION>`))
	}

	r, err := s.client.Region(context.Background(), "the_north_pacific", "nations", "officers")
	s.Require().NoError(err)
	s.Equal([]nation.Key{"testlandia", "otherland", "third_one"}, r.Nations)
	s.Equal([]nation.Key{"testlandia", "otherland"}, r.WANations)
	s.Equal(nation.Key("testlandia"), r.Delegate)
	s.Equal("XWA", r.DelegateAuthority)
	s.True(r.Founder.IsZero())
	s.Require().Len(r.Officers, 1)
	s.Equal(Officer{Nation: "otherland", Office: "Speaker", Authority: "CP"}, r.Officers[0])
}

func (s *ClientSuite) TestWorldNations() {
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		s.Equal("nations", r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(`<WORLD><NATIONS>a,b_c,d</NATIONS></WORLD>`))
	}
	got, err := s.client.WorldNations(context.Background())
	s.Require().NoError(err)
	s.Equal([]nation.Key{"a", "b_c", "d"}, got)
}
