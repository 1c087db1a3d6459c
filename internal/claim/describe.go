package claim

import (
	"errors"
	"fmt"
	"strings"

	"citizenship/internal/chat"
	"citizenship/internal/nation"
	"citizenship/pkg/domain"
)

func mention(id domain.UserID) string { return chat.User{ID: id}.Mention() }

// Describe renders a claim result or error as the chat reply.
func Describe(res *Result, err error) string {
	var (
		cooldown *CooldownError
		conflict *ConflictError
	)
	switch {
	case errors.As(err, &cooldown):
		return fmt.Sprintf("You may only claim nations every hour. You may claim another nation in %d minutes.",
			int(cooldown.Remaining.Minutes()))
	case errors.As(err, &conflict):
		return fmt.Sprintf("That nation was already claimed by %s.", mention(conflict.Owner))
	case errors.Is(err, ErrInvalidNation):
		return "That doesn't look like a nation name to me."
	case errors.Is(err, ErrNoSuchUser):
		return "No user has claimed that nation."
	case errors.Is(err, ErrNationNotFound):
		return "I can't find that nation. \U0001F937"
	case errors.Is(err, ErrVerificationUnavailable):
		return "I couldn't access the API to verify your nation. \U0001F614"
	case errors.Is(err, ErrNoNation):
		return "You have no nation associated with your account."
	case err != nil:
		return "Something went wrong while setting that nation."
	case res == nil:
		return ""
	}

	switch res.Outcome {
	case OutcomeRemoved:
		return "Nation removed."
	case OutcomeDeclined:
		return "Okay, I haven't changed your nation."
	case OutcomeAlreadyClaimed:
		if res.ThirdParty {
			return fmt.Sprintf("%s has already claimed that nation.", mention(res.Target))
		}
		return "You already claimed that nation."
	}

	var b strings.Builder
	if res.RolesForbidden {
		if res.ThirdParty {
			fmt.Fprintf(&b, "I couldn't modify %s's roles. Please check my permissions.\n", mention(res.Target))
		} else {
			b.WriteString("I couldn't modify your roles. Please ask an administrator to check my permissions.\n")
		}
	}
	b.WriteString("Nation set.")
	return b.String()
}

// DescribeIdentity renders a Show lookup.
func DescribeIdentity(id Identity, err error) string {
	switch {
	case errors.Is(err, ErrInvalidNation):
		return "That doesn't look like a nation name to me."
	case errors.Is(err, ErrNotInData) && !id.Nation.IsZero():
		return fmt.Sprintf("%s is not in my data.", nation.Display(id.Nation))
	case errors.Is(err, ErrNotInData):
		return fmt.Sprintf("%s is not in my data.", mention(id.User))
	case err != nil:
		return "Something went wrong while looking that up."
	}
	return fmt.Sprintf("%s \U0001F449 %s", nation.Display(id.Nation), mention(id.User))
}

// DescribeExport renders a data export as plain text.
func DescribeExport(e *Export, region nation.Key) string {
	if e == nil || (e.Nation.IsZero() && len(e.History) == 0) {
		return "I hold no data about you."
	}
	var b strings.Builder
	switch {
	case e.Nation.IsZero():
		b.WriteString("You have no nation associated with your account.")
	case len(e.Titles) == 0:
		fmt.Fprintf(&b, "Your nation is %s.", nation.Display(e.Nation))
	default:
		fmt.Fprintf(&b, "Your nation is %s, and it has the following positions relating to %s:\n%s.",
			nation.Display(e.Nation), nation.Display(region), humanizeList(e.Titles))
	}
	if len(e.History) > 0 {
		b.WriteString("\n\nHistory:")
		for _, ev := range e.History {
			fmt.Fprintf(&b, "\n%s %s", ev.Timestamp.UTC().Format("2006-01-02 15:04 MST"), ev.Action)
			if ev.Nation != "" {
				fmt.Fprintf(&b, " %s", nation.Display(nation.Key(ev.Nation)))
			}
		}
	}
	return b.String()
}

func humanizeList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	}
	return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
}
