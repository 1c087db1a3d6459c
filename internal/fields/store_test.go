package fields

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"citizenship/pkg/platform/sentinel"
)

// =============================================================================
// Field Store Contract Suite
// =============================================================================
// Every backend runs the same suite so the identity store and guild settings
// can treat them interchangeably.

type StoreContractSuite struct {
	suite.Suite
	newStore func(t *testing.T) Store
	store    Store
}

func TestInMemoryStoreContract(t *testing.T) {
	suite.Run(t, &StoreContractSuite{newStore: func(*testing.T) Store {
		return NewInMemoryStore()
	}})
}

func TestRedisStoreContract(t *testing.T) {
	suite.Run(t, &StoreContractSuite{newStore: func(t *testing.T) Store {
		srv := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		return NewRedisStore(client)
	}})
}

func (s *StoreContractSuite) SetupTest() {
	s.store = s.newStore(s.T())
}

func (s *StoreContractSuite) TestGetSet() {
	ctx := context.Background()

	s.Run("unset field is not found", func() {
		_, err := s.store.Get(ctx, User("1", NameNation))
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("set then get", func() {
		s.Require().NoError(s.store.Set(ctx, User("1", NameNation), "testlandia"))
		v, err := s.store.Get(ctx, User("1", NameNation))
		s.Require().NoError(err)
		s.Equal("testlandia", v)
	})

	s.Run("set overwrites", func() {
		s.Require().NoError(s.store.Set(ctx, User("1", NameNation), "otherland"))
		v, err := s.store.Get(ctx, User("1", NameNation))
		s.Require().NoError(err)
		s.Equal("otherland", v)
	})

	s.Run("global fields have no entity", func() {
		s.Require().NoError(s.store.Set(ctx, Global(NameSheetsKey), "k"))
		v, err := s.store.Get(ctx, Global(NameSheetsKey))
		s.Require().NoError(err)
		s.Equal("k", v)
	})
}

func (s *StoreContractSuite) TestAll() {
	ctx := context.Background()
	s.Require().NoError(s.store.Set(ctx, User("1", NameNation), "a"))
	s.Require().NoError(s.store.Set(ctx, User("2", NameNation), "b"))
	s.Require().NoError(s.store.Set(ctx, Guild("9", NameEnabled), "true"))

	users, err := s.store.All(ctx, KindUser, NameNation)
	s.Require().NoError(err)
	s.Equal(map[string]string{"1": "a", "2": "b"}, users)

	guilds, err := s.store.All(ctx, KindGuild, NameEnabled)
	s.Require().NoError(err)
	s.Equal(map[string]string{"9": "true"}, guilds)

	empty, err := s.store.All(ctx, KindGuild, "missing")
	s.Require().NoError(err)
	s.Empty(empty)
}

func (s *StoreContractSuite) TestClear() {
	ctx := context.Background()

	s.Run("clear removes one field", func() {
		s.Require().NoError(s.store.Set(ctx, User("1", NameNation), "a"))
		s.Require().NoError(s.store.Clear(ctx, User("1", NameNation)))
		_, err := s.store.Get(ctx, User("1", NameNation))
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("clearing an unset field is fine", func() {
		s.NoError(s.store.Clear(ctx, User("404", NameNation)))
	})

	s.Run("clear entity sweeps every field of that entity only", func() {
		s.Require().NoError(s.store.Set(ctx, User("1", NameNation), "a"))
		s.Require().NoError(s.store.Set(ctx, User("1", "note"), "x"))
		s.Require().NoError(s.store.Set(ctx, User("2", NameNation), "b"))

		s.Require().NoError(s.store.ClearEntity(ctx, KindUser, "1"))

		_, err := s.store.Get(ctx, User("1", NameNation))
		s.ErrorIs(err, sentinel.ErrNotFound)
		_, err = s.store.Get(ctx, User("1", "note"))
		s.ErrorIs(err, sentinel.ErrNotFound)
		v, err := s.store.Get(ctx, User("2", NameNation))
		s.Require().NoError(err)
		s.Equal("b", v)
	})
}
