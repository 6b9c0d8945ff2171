package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"parlor/internal/chat"
	"parlor/internal/core"
	"parlor/internal/mail"
)

func handleMail(ctx context.Context, d *Dispatcher, ev chat.InboundEvent, args string) error {
	text := strings.TrimSpace(args)
	if text == "" {
		entries, err := d.Mail.List(ctx, ev.UserID)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			d.reply(ctx, ev.ChannelID, "邮箱是空的")
			return nil
		}
		var lines []string
		for i, e := range entries {
			mark := "未读"
			if e.IsRead {
				mark = "已读"
			}
			lines = append(lines, fmt.Sprintf("%d. [%s]「%s」", i+1, mark, e.Title))
		}
		d.reply(ctx, ev.ChannelID, strings.Join(lines, "\n"))
		return nil
	}

	index, err := strconv.Atoi(text)
	if err != nil || index < 1 {
		return core.New(core.KindInvalidArgument, "邮件编号必须是正整数")
	}
	entries, err := d.Mail.List(ctx, ev.UserID)
	if err != nil {
		return err
	}
	if index > len(entries) {
		return core.New(core.KindNotFound, "没有这封邮件")
	}

	entry, err := d.Mail.Read(ctx, ev.UserID, entries[index-1].ID)
	if err != nil {
		return err
	}
	msg := fmt.Sprintf("「%s」\n%s", entry.Title, entry.Content)
	if entry.StarShards > 0 {
		msg += fmt.Sprintf("\n获得 %d 个星之碎片", entry.StarShards)
	}
	d.reply(ctx, ev.ChannelID, msg)
	return nil
}

// handleScheduleMail implements the admin-only "schedulemail add/list/info/edit/delete"
// structured subcommand, per spec.md §6/§4.8.
func handleScheduleMail(ctx context.Context, d *Dispatcher, ev chat.InboundEvent, args string) error {
	if !d.isSuperuser(ev.UserID) {
		return core.New(core.KindInvalidArgument, "此命令仅限管理员使用")
	}

	fields := strings.Fields(args)
	if len(fields) == 0 {
		return core.New(core.KindInvalidArgument, "用法：schedulemail {add,list,info,edit,delete} ...")
	}

	sub, rest := fields[0], fields[1:]
	switch sub {
	case "add":
		return scheduleMailAdd(ctx, d, ev, rest)
	case "list":
		return scheduleMailList(ctx, d, ev)
	case "info":
		return scheduleMailInfo(ctx, d, ev, rest)
	case "edit":
		return scheduleMailEdit(ctx, d, ev, rest)
	case "delete":
		return scheduleMailDelete(ctx, d, ev, rest)
	default:
		return core.New(core.KindInvalidArgument, "unknown subcommand: "+sub)
	}
}

// scheduleMailAdd expects: <name> <recipients> <star_shards> <expire_days> <time> <title> -- <content>
func scheduleMailAdd(ctx context.Context, d *Dispatcher, ev chat.InboundEvent, fields []string) error {
	if len(fields) < 6 {
		return core.New(core.KindInvalidArgument,
			"用法：schedulemail add <name> <recipients> <star_shards> <expire_days> <time> <title> -- <content>")
	}
	name, recipients := fields[0], fields[1]
	starShards, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return core.New(core.KindInvalidArgument, "star_shards must be an integer")
	}
	expireDays, err := strconv.Atoi(fields[3])
	if err != nil {
		return core.New(core.KindInvalidArgument, "expire_days must be an integer")
	}
	scheduledTime, err := mail.ParseTimeString(fields[4])
	if err != nil {
		return err
	}

	rest := strings.Join(fields[5:], " ")
	title, content, ok := strings.Cut(rest, "--")
	if !ok {
		return core.New(core.KindInvalidArgument, "missing \"-- <content>\" section")
	}
	title, content = strings.TrimSpace(title), strings.TrimSpace(content)

	sched, err := d.Mail.CreateScheduled(ctx, name, recipients, title, content, starShards, expireDays, scheduledTime, ev.UserID)
	if err != nil {
		return err
	}
	d.reply(ctx, ev.ChannelID, fmt.Sprintf("scheduled mail %q created, firing at %s", sched.Name, sched.ScheduledTime.Format("2006-01-02 15:04")))
	return nil
}

func scheduleMailList(ctx context.Context, d *Dispatcher, ev chat.InboundEvent) error {
	scheduled, err := d.Mail.GetScheduled(ctx, true)
	if err != nil {
		return err
	}
	if len(scheduled) == 0 {
		d.reply(ctx, ev.ChannelID, "no scheduled mail")
		return nil
	}
	var lines []string
	for _, s := range scheduled {
		status := "pending"
		if s.IsSent {
			status = "sent"
		}
		lines = append(lines, fmt.Sprintf("%s [%s] -> %s at %s", s.Name, status, s.Recipients, s.ScheduledTime.Format("2006-01-02 15:04")))
	}
	d.reply(ctx, ev.ChannelID, strings.Join(lines, "\n"))
	return nil
}

func scheduleMailInfo(ctx context.Context, d *Dispatcher, ev chat.InboundEvent, fields []string) error {
	if len(fields) < 1 {
		return core.New(core.KindInvalidArgument, "用法：schedulemail info <name>")
	}
	sched, err := d.Mail.GetScheduledByName(ctx, fields[0])
	if err != nil {
		return err
	}
	if sched == nil {
		return core.New(core.KindNotFound, "no such scheduled mail: "+fields[0])
	}
	d.reply(ctx, ev.ChannelID, fmt.Sprintf(
		"%s\nrecipients: %s\ntitle: %s\nstar_shards: %d\nexpire_days: %d\nscheduled_time: %s\nsent: %v",
		sched.Name, sched.Recipients, sched.Title, sched.StarShards, sched.ExpireDays,
		sched.ScheduledTime.Format("2006-01-02 15:04"), sched.IsSent))
	return nil
}

// scheduleMailEdit expects: <name> <field>=<value> [<field>=<value> ...]
// where field is one of title, content, recipients, star_shards, expire_days, time.
func scheduleMailEdit(ctx context.Context, d *Dispatcher, ev chat.InboundEvent, fields []string) error {
	if len(fields) < 2 {
		return core.New(core.KindInvalidArgument, "用法：schedulemail edit <name> <field>=<value> ...")
	}
	name := fields[0]

	var title, content, recipients *string
	var starShards *int64
	var expireDays *int
	var scheduledTime *time.Time

	for _, kv := range fields[1:] {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return core.New(core.KindInvalidArgument, "expected field=value, got: "+kv)
		}
		switch k {
		case "title":
			title = &v
		case "content":
			content = &v
		case "recipients":
			recipients = &v
		case "star_shards":
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return core.New(core.KindInvalidArgument, "star_shards must be an integer")
			}
			starShards = &n
		case "expire_days":
			n, err := strconv.Atoi(v)
			if err != nil {
				return core.New(core.KindInvalidArgument, "expire_days must be an integer")
			}
			expireDays = &n
		case "time":
			t, err := mail.ParseTimeString(v)
			if err != nil {
				return err
			}
			scheduledTime = &t
		default:
			return core.New(core.KindInvalidArgument, "unknown field: "+k)
		}
	}

	updated, err := d.Mail.UpdateScheduled(ctx, name, title, content, recipients, starShards, expireDays, scheduledTime)
	if err != nil {
		return err
	}
	if !updated {
		return core.New(core.KindNotFound, "no such scheduled mail: "+name)
	}
	d.reply(ctx, ev.ChannelID, "scheduled mail updated")
	return nil
}

func scheduleMailDelete(ctx context.Context, d *Dispatcher, ev chat.InboundEvent, fields []string) error {
	if len(fields) < 1 {
		return core.New(core.KindInvalidArgument, "用法：schedulemail delete <name>")
	}
	deleted, err := d.Mail.DeleteScheduled(ctx, fields[0])
	if err != nil {
		return err
	}
	if !deleted {
		return core.New(core.KindNotFound, "no such scheduled mail: "+fields[0])
	}
	d.reply(ctx, ev.ChannelID, "scheduled mail deleted")
	return nil
}
