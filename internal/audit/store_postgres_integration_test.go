//go:build integration

package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"citizenship/pkg/testutil"
	"citizenship/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.pg = containers.GetPostgres(s.T())
	s.store = NewPostgresStore(s.pg.Pool)
	s.Require().NoError(s.store.EnsureSchema(context.Background()))
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateTables(context.Background(), "audit_events"))
}

func (s *PostgresStoreSuite) TestRoundTripAndDelete() {
	ctx := context.Background()
	s.Require().NoError(s.store.Append(ctx, Event{
		ID: "b", Timestamp: testutil.Epoch.Add(time.Minute), UserID: "42", Action: ActionRemoved, Nation: "testlandia",
	}))
	s.Require().NoError(s.store.Append(ctx, Event{
		ID: "a", Timestamp: testutil.Epoch, UserID: "42", ActorID: "7", Action: ActionClaimed, Nation: "testlandia",
	}))

	events, err := s.store.ListByUser(ctx, "42")
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal(ActionClaimed, events[0].Action)
	s.Equal("7", events[0].ActorID.String())

	s.Require().NoError(s.store.DeleteUser(ctx, "42"))
	events, err = s.store.ListByUser(ctx, "42")
	s.Require().NoError(err)
	s.Empty(events)
}
