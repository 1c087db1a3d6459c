package settings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"citizenship/internal/fields"
	"citizenship/pkg/domain"
	"citizenship/pkg/testutil"
)

type SettingsSuite struct {
	suite.Suite
	ctx   context.Context
	store *fields.InMemoryStore
}

func TestSettingsSuite(t *testing.T) {
	suite.Run(t, new(SettingsSuite))
}

func (s *SettingsSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = fields.NewInMemoryStore()
}

func (s *SettingsSuite) newSettings(opts ...Option) *Settings {
	opts = append([]Option{WithLogger(testutil.DiscardLogger())}, opts...)
	st, err := New(s.store, opts...)
	s.Require().NoError(err)
	s.Require().NoError(st.Load(s.ctx))
	return st
}

func (s *SettingsSuite) TestLoadMirrorsStoredFlags() {
	s.Require().NoError(s.store.Set(s.ctx, fields.Guild("1", fields.NameEnabled), "true"))
	s.Require().NoError(s.store.Set(s.ctx, fields.Guild("2", fields.NameEnabled), "false"))
	s.Require().NoError(s.store.Set(s.ctx, fields.Guild("3", fields.NameEnabled), "maybe"))

	st := s.newSettings()
	s.True(st.IsEnabled("1"))
	s.False(st.IsEnabled("2"))
	s.False(st.IsEnabled("3"))
	s.Equal([]domain.GuildID{"1"}, st.Enabled())
}

func (s *SettingsSuite) TestToggle() {
	st := s.newSettings()

	s.Run("nil flips", func() {
		on, err := st.Toggle(s.ctx, "7", nil)
		s.Require().NoError(err)
		s.True(on)
		s.True(st.IsEnabled("7"))

		on, err = st.Toggle(s.ctx, "7", nil)
		s.Require().NoError(err)
		s.False(on)
	})

	s.Run("explicit value is persisted", func() {
		yes := true
		_, err := st.Toggle(s.ctx, "7", &yes)
		s.Require().NoError(err)
		v, err := s.store.Get(s.ctx, fields.Guild("7", fields.NameEnabled))
		s.Require().NoError(err)
		s.Equal("true", v)

		reloaded := s.newSettings()
		s.True(reloaded.IsEnabled("7"))
	})
}

func (s *SettingsSuite) TestCredential() {
	s.Run("bootstrap seeds an empty store", func() {
		st := s.newSettings(WithBootstrapKey("env-key"))
		key, err := st.Credential(s.ctx)
		s.Require().NoError(err)
		s.Equal("env-key", key)
	})

	s.Run("bootstrap never overwrites a stored key", func() {
		s.Require().NoError(s.store.Set(s.ctx, fields.Global(fields.NameSheetsKey), "stored"))
		st := s.newSettings(WithBootstrapKey("env-key"))
		key, err := st.Credential(s.ctx)
		s.Require().NoError(err)
		s.Equal("stored", key)
	})

	s.Run("empty key clears", func() {
		st := s.newSettings()
		s.Require().NoError(st.SetCredential(s.ctx, " "))
		key, err := st.Credential(s.ctx)
		s.Require().NoError(err)
		s.Empty(key)
	})
}
