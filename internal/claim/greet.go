package claim

import (
	"context"
	"errors"
	"time"

	"citizenship/internal/chat"
	"citizenship/internal/nation"
	"citizenship/pkg/platform/sentinel"
)

const greeting = "Greetings! Do you have a nation on nationstates.net? " +
	"If so, could you post a direct link to that nation, so I can give you the proper roles?"

// Greet handles a member joining an enabled guild. Members who already
// claimed a nation get their roles straight away. Otherwise, in guilds with
// a welcome channel, the bot asks for a nation link and claims the first one
// the member posts before the greeting times out.
func (s *Service) Greet(ctx context.Context, m chat.Member) error {
	if m.User.Bot || s.guilds == nil || !s.guilds.IsEnabled(m.GuildID) {
		return nil
	}
	if _, ok := s.identities.Get(m.User.ID); ok {
		_, err := s.reconciler.Member(ctx, m)
		return err
	}
	channel, ok := s.welcome[m.GuildID]
	if !ok || s.prompter == nil {
		return nil
	}

	s.cooldowns.forget(m.User.ID)
	prompt := m.User.Mention() + ": " + greeting
	deadline := time.Now().Add(s.greetingWait)
	var key nation.Key
	for key.IsZero() {
		wait := time.Until(deadline)
		if wait <= 0 {
			return nil
		}
		reply, err := s.prompter.AwaitReply(ctx, channel, m.User.ID, prompt, wait)
		if errors.Is(err, sentinel.ErrTimeout) {
			s.logger.DebugContext(ctx, "greeting went unanswered", "guild_id", m.GuildID, "user_id", m.User.ID)
			return nil
		}
		if err != nil {
			return err
		}
		prompt = ""
		key, _ = nation.MatchLink(reply)
	}

	res, err := s.Claim(ctx, Request{
		Raw:       key.String(),
		Actor:     m.User.ID,
		Target:    m.User.ID,
		ChannelID: channel,
	})
	return s.prompter.Send(ctx, channel, Describe(res, err))
}
