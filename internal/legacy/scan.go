package legacy

import (
	"context"

	"citizenship/internal/chat"
	"citizenship/internal/nation"
	"citizenship/pkg/domain"
)

// History pages backwards through a channel; before is a message id, empty
// for the newest messages.
type History interface {
	History(ctx context.Context, channel domain.ChannelID, before string, limit int) ([]chat.Message, error)
}

const scanPage = 100

// ScanHistory walks up to limit messages of channel, newest first, and
// claims the first nation link each unclaimed author posted. It is a
// migration aid for members who answered the join greeting while the
// previous bot was down.
func (i *Importer) ScanHistory(ctx context.Context, history History, channel domain.ChannelID, limit int) (*Report, error) {
	report := &Report{}
	// Newest link wins per author, so collect before claiming.
	found := make(map[domain.UserID]nation.Key)
	var authors []chat.User
	before := ""
	for seen := 0; seen < limit; {
		page := min(scanPage, limit-seen)
		msgs, err := history.History(ctx, channel, before, page)
		if err != nil {
			return report, err
		}
		for _, m := range msgs {
			seen++
			before = m.ID
			if m.Author.Bot {
				continue
			}
			key, ok := nation.MatchLink(m.Content)
			if !ok {
				continue
			}
			if _, dup := found[m.Author.ID]; dup {
				continue
			}
			found[m.Author.ID] = key
			authors = append(authors, m.Author)
		}
		if len(msgs) < page {
			break
		}
	}

	err := i.identities.RunInTx(ctx, func(ctx context.Context) error {
		for _, author := range authors {
			if i.claim(ctx, author.ID, found[author.ID]) {
				report.Nations++
			} else {
				report.Skipped++
			}
		}
		return nil
	})
	i.logger.InfoContext(ctx, "history scanned", "channel_id", channel, "claimed", report.Nations, "skipped", report.Skipped)
	return report, err
}
