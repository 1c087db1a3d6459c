package discord

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"citizenship/internal/chat"
	"citizenship/internal/claim"
	"citizenship/internal/scheduler"
	"citizenship/pkg/domain"
)

const (
	forgetTimeout   = 60 * time.Second
	defaultScanSize = 1000

	msgNoPermission = "You don't have permission to do that."
	msgGuildOnly    = "That command only works in a server."
)

const help = "**identify** commands:\n" +
	"`identify <nation>`: associate your nation with your account (once an hour)\n" +
	"`identify remove`: remove the nation associated with your account\n" +
	"`identify show [member|nation]`: show who holds a nation\n" +
	"`identify set <nation> [member]`: set or clear a nation for someone else (Manage Roles)\n" +
	"`identify set toggle [on|off]`: turn autoroles on or off for this server (Manage Server)\n" +
	"`identify data`: receive everything I hold about you\n" +
	"`identify forget`: delete everything I hold about you"

func (r *Router) dispatch(ctx context.Context, msg chat.Message, cmd command) string {
	switch cmd.name {
	case "help":
		return help
	case "nation":
		if cmd.args == "" {
			return help
		}
		res, err := r.claims.Claim(ctx, claim.Request{
			Raw:       cmd.args,
			Actor:     msg.Author.ID,
			Target:    msg.Author.ID,
			ChannelID: msg.ChannelID,
		})
		return claim.Describe(res, err)
	case "remove":
		_, err := r.claims.Remove(ctx, msg.Author.ID)
		if err != nil {
			return claim.Describe(nil, err)
		}
		return "Nation removed."
	case "show":
		return r.show(ctx, msg, cmd.args)
	case "set":
		return r.set(ctx, msg, cmd.args)
	case "data":
		return r.exportData(ctx, msg)
	case "forget":
		return r.forget(ctx, msg)
	case "task":
		return r.taskCommand(ctx, msg, cmd.args)
	case "import":
		return r.importCommand(ctx, msg, cmd.args)
	}
	return ""
}

func (r *Router) show(ctx context.Context, msg chat.Message, args string) string {
	q := claim.Query{User: msg.Author.ID}
	if args != "" {
		if user, ok := parseMention(args); ok {
			q.User = user
		} else {
			q = claim.Query{Nation: args}
		}
	}
	id, err := r.claims.Show(ctx, q)
	return claim.DescribeIdentity(id, err)
}

func (r *Router) set(ctx context.Context, msg chat.Message, args string) string {
	if head, rest, _ := strings.Cut(args, " "); strings.EqualFold(head, "toggle") {
		return r.toggle(ctx, msg, strings.TrimSpace(rest))
	}
	if !r.allowed(ctx, msg, discordgo.PermissionManageRoles) {
		return msgNoPermission
	}
	if args == "" {
		return help
	}

	raw, target := args, domain.UserID("")
	if i := strings.LastIndex(args, " "); i > 0 {
		if user, ok := parseMention(args[i+1:]); ok {
			raw, target = strings.TrimSpace(args[:i]), user
		}
	}
	res, err := r.claims.Claim(ctx, claim.Request{
		Raw:        raw,
		Actor:      msg.Author.ID,
		Target:     target,
		ThirdParty: target != msg.Author.ID,
		ChannelID:  msg.ChannelID,
	})
	return claim.Describe(res, err)
}

func (r *Router) toggle(ctx context.Context, msg chat.Message, arg string) string {
	if msg.GuildID.IsNil() {
		return msgGuildOnly
	}
	if !r.allowed(ctx, msg, discordgo.PermissionManageServer) {
		return msgNoPermission
	}
	if r.toggles == nil {
		return ""
	}
	var value *bool
	if arg != "" {
		v, ok := parseBool(arg)
		if !ok {
			return "Please answer on or off."
		}
		value = &v
	}
	on, err := r.toggles.Toggle(ctx, msg.GuildID, value)
	if err != nil {
		r.logger.ErrorContext(ctx, "toggle failed", "guild_id", msg.GuildID, "error", err)
		return "I couldn't save that setting."
	}
	if on {
		return "Autoroles for this server are **on**."
	}
	return "Autoroles for this server are **off**."
}

func (r *Router) exportData(ctx context.Context, msg chat.Message) string {
	export, err := r.claims.ExportUserData(ctx, msg.Author.ID)
	if err != nil {
		r.logger.ErrorContext(ctx, "data export failed", "user_id", msg.Author.ID, "error", err)
		return "I couldn't gather your data right now."
	}
	if err := r.messenger.DM(ctx, msg.Author.ID, claim.DescribeExport(export, r.claims.HomeRegion())); err != nil {
		return "I couldn't send you a direct message. Please check your privacy settings."
	}
	if msg.GuildID.IsNil() {
		return ""
	}
	return "I've sent you a direct message with your data."
}

func (r *Router) forget(ctx context.Context, msg chat.Message) string {
	yes, err := r.messenger.Confirm(ctx, msg.ChannelID, msg.Author.ID,
		"This removes your nation, your claim history and your title roles. Are you sure? (yes/no)", forgetTimeout)
	if err != nil || !yes {
		return "Okay, I haven't deleted anything."
	}
	if err := r.claims.DeleteUserData(ctx, msg.Author.ID); err != nil {
		r.logger.ErrorContext(ctx, "data deletion failed", "user_id", msg.Author.ID, "error", err)
		return "Something went wrong while deleting your data."
	}
	return "Your data has been deleted."
}

func (r *Router) taskCommand(ctx context.Context, msg chat.Message, args string) string {
	if !r.isOperator(msg.Author.ID) || r.task == nil {
		return msgNoPermission
	}
	switch strings.ToLower(args) {
	case "", "status":
	case "run":
		if !r.task.RunNow() {
			return "Task is not suspended.\n" + DescribeStatus(r.task.Status(), time.Now())
		}
	case "restart":
		if err := r.task.Restart(ctx); err != nil {
			return fmt.Sprintf("Restart failed: %v", err)
		}
		return "Task restarted."
	default:
		return "Usage: `identify task [run|restart]`"
	}
	return DescribeStatus(r.task.Status(), time.Now())
}

func (r *Router) importCommand(ctx context.Context, msg chat.Message, args string) string {
	if !r.isOperator(msg.Author.ID) || r.importer == nil {
		return msgNoPermission
	}
	head, rest, _ := strings.Cut(args, " ")
	if strings.EqualFold(head, "scan") {
		return r.scan(ctx, strings.Fields(rest))
	}
	if args == "" {
		return "Usage: `identify import <path>` or `identify import scan <channel> [limit]`"
	}
	report, err := r.importer.Import(ctx, args)
	if err != nil {
		r.notifyAuthor(ctx, msg.Author.ID, fmt.Sprintf("I couldn't load your data due to an error:\n`%v`", err))
		return ""
	}
	return "Import done: " + report.String() + "."
}

func (r *Router) scan(ctx context.Context, fields []string) string {
	if len(fields) == 0 || r.history == nil {
		return "Usage: `identify import scan <channel> [limit]`"
	}
	channel, err := domain.ParseChannelID(strings.Trim(fields[0], "<#>"))
	if err != nil {
		return "That doesn't look like a channel."
	}
	limit := defaultScanSize
	if len(fields) > 1 {
		if n, err := strconv.Atoi(fields[1]); err == nil && n > 0 {
			limit = n
		}
	}
	report, err := r.importer.ScanHistory(ctx, r.history, channel, limit)
	if err != nil {
		return fmt.Sprintf("Scan stopped early: %v", err)
	}
	return "Scan done: " + report.String() + "."
}

func (r *Router) notifyAuthor(ctx context.Context, user domain.UserID, text string) {
	if err := r.messenger.DM(ctx, user, text); err != nil {
		r.logger.WarnContext(ctx, "failed to notify author", "user_id", user, "error", err)
	}
}

// DescribeStatus renders the scheduler state for operators.
func DescribeStatus(st scheduler.Status, now time.Time) string {
	var b strings.Builder
	switch st.State {
	case scheduler.StateStopped:
		b.WriteString("Task is stopped")
	case scheduler.StateSuspendedIndefinite:
		b.WriteString("Task is suspended until resumed")
	case scheduler.StateSuspendedTimed:
		fmt.Fprintf(&b, "Task is suspended for duration: %s", st.WakeAt.Sub(now).Round(time.Second))
	default:
		fmt.Fprintf(&b, "Task is running (%s)", st.State)
	}
	if st.Generation != "" {
		fmt.Fprintf(&b, "\nGeneration: %s", st.Generation)
	}
	fmt.Fprintf(&b, "\nCached nations: %d", st.Nations)
	if !st.LastCycle.IsZero() {
		fmt.Fprintf(&b, "\nLast cycle: %s", st.LastCycle.UTC().Format(time.RFC3339))
	}
	if st.LastError != "" {
		fmt.Fprintf(&b, "\nLast error: %s", st.LastError)
	}
	return b.String()
}

// parseMention accepts <@id> and <@!id>.
func parseMention(s string) (domain.UserID, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "<@") || !strings.HasSuffix(s, ">") {
		return "", false
	}
	id, err := domain.ParseUserID(strings.TrimPrefix(s[2:len(s)-1], "!"))
	return id, err == nil
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "on", "yes", "y", "enable", "enabled":
		return true, true
	case "off", "no", "n", "disable", "disabled":
		return false, true
	}
	v, err := strconv.ParseBool(s)
	return v, err == nil
}
