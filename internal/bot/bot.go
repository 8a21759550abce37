// Package bot adds a slack command surface for the irrigation hub: report zones and
// status, start and stop watering, force a refresh.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/clambin/go-common/slackbot"
	"github.com/mwindborn/rainbird-monitor/internal/device"
	"github.com/mwindborn/rainbird-monitor/internal/poller"
	"github.com/mwindborn/rainbird-monitor/internal/zones"
	"github.com/slack-go/slack"
)

type Bot struct {
	sessions SessionManager
	slack    SlackBot
	poller   Publisher
	logger   *slog.Logger
	lock     sync.RWMutex
	snapshot poller.Snapshot
	updated  bool
}

// SessionManager routes requests to the current hub session.
type SessionManager interface {
	RequestStart(ctx context.Context, zone int, duration time.Duration) error
	RequestStop(ctx context.Context, zone int) error
	RequestStopAll(ctx context.Context) error
	Refresh()
	Zones() zones.Zones
}

type SlackBot interface {
	Register(name string, command slackbot.CommandFunc)
	Run(ctx context.Context) error
	Send(channel string, attachments []slack.Attachment) error
}

// Publisher is the subscription half of a poller.
type Publisher interface {
	Subscribe() chan poller.Snapshot
	Unsubscribe(ch chan poller.Snapshot)
}

func New(sessions SessionManager, slackBot SlackBot, p Publisher, logger *slog.Logger) *Bot {
	b := Bot{
		sessions: sessions,
		slack:    slackBot,
		poller:   p,
		logger:   logger,
	}
	slackBot.Register("zones", b.ReportZones)
	slackBot.Register("status", b.ReportStatus)
	slackBot.Register("start", b.StartZone)
	slackBot.Register("stop", b.StopZone)
	slackBot.Register("refresh", b.DoRefresh)

	return &b
}

// Run caches hub snapshots until ctx is canceled.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Debug("started")
	defer b.logger.Debug("stopped")

	ch := b.poller.Subscribe()
	defer b.poller.Unsubscribe(ch)
	for {
		select {
		case <-ctx.Done():
			return nil
		case snapshot := <-ch:
			b.lock.Lock()
			b.snapshot = snapshot
			b.updated = true
			b.lock.Unlock()
		}
	}
}

func (b *Bot) ReportZones(_ context.Context, _ ...string) []slack.Attachment {
	known := b.sessions.Zones()
	if len(known) == 0 {
		return []slack.Attachment{{
			Color: "bad",
			Text:  "no zones configured",
		}}
	}

	text := make([]string, len(known))
	for i, zone := range known {
		text[i] = fmt.Sprintf("%d: %s", zone.ID, zone.Name)
	}
	return []slack.Attachment{{
		Color: "good",
		Title: "zones:",
		Text:  strings.Join(text, "\n"),
	}}
}

func (b *Bot) ReportStatus(_ context.Context, _ ...string) []slack.Attachment {
	b.lock.RLock()
	defer b.lock.RUnlock()

	if !b.updated {
		return []slack.Attachment{{
			Color: "bad",
			Text:  "no update yet. please check back later",
		}}
	}

	if !b.snapshot.InUse {
		return []slack.Attachment{{
			Color: "good",
			Title: "status:",
			Text:  "not watering",
		}}
	}

	text := "watering"
	if b.snapshot.ActiveZone != nil {
		name, ok := b.sessions.Zones().Name(*b.snapshot.ActiveZone)
		if !ok {
			name = device.ZoneUnknown
		}
		text += " " + name
		text += " (" + device.FormatTimeLeft(b.snapshot.TimeRemaining) + " left)"
	}
	return []slack.Attachment{{
		Color: "good",
		Title: "status:",
		Text:  text,
	}}
}

func (b *Bot) StartZone(ctx context.Context, args ...string) []slack.Attachment {
	zone, duration, err := b.parseStartCommand(args...)
	if err == nil {
		err = b.sessions.RequestStart(ctx, zone.ID, duration)
	}
	if err != nil {
		return []slack.Attachment{{
			Color: "bad",
			Text:  err.Error(),
		}}
	}

	b.sessions.Refresh()

	text := "starting " + zone.Name
	if duration > 0 {
		text += " for " + duration.String()
	}
	return []slack.Attachment{{
		Color: "good",
		Text:  text,
	}}
}

func (b *Bot) StopZone(ctx context.Context, args ...string) []slack.Attachment {
	if len(args) == 0 {
		return []slack.Attachment{{
			Color: "bad",
			Text:  "missing zone\nUsage: stop <zone>|all",
		}}
	}

	if strings.EqualFold(args[0], "all") {
		if err := b.sessions.RequestStopAll(ctx); err != nil {
			return []slack.Attachment{{
				Color: "bad",
				Text:  err.Error(),
			}}
		}
		b.sessions.Refresh()
		return []slack.Attachment{{
			Color: "good",
			Text:  "stopping irrigation",
		}}
	}

	zone, err := b.resolveZone(strings.Join(args, " "))
	if err == nil {
		err = b.sessions.RequestStop(ctx, zone.ID)
	}
	if err != nil {
		return []slack.Attachment{{
			Color: "bad",
			Text:  err.Error(),
		}}
	}

	b.sessions.Refresh()
	return []slack.Attachment{{
		Color: "good",
		Text:  "stopping " + zone.Name,
	}}
}

func (b *Bot) DoRefresh(_ context.Context, _ ...string) []slack.Attachment {
	b.sessions.Refresh()
	return []slack.Attachment{{
		Text: "refreshing hub state",
	}}
}

func (b *Bot) parseStartCommand(args ...string) (zones.Zone, time.Duration, error) {
	if len(args) == 0 {
		return zones.Zone{}, 0, fmt.Errorf("missing zone\nUsage: start <zone> [<duration>]")
	}

	// the last argument may be a duration; everything before it is the zone query
	var duration time.Duration
	query := args
	if len(args) > 1 {
		if parsed, err := time.ParseDuration(args[len(args)-1]); err == nil {
			duration = parsed
			query = args[:len(args)-1]
		}
	}

	zone, err := b.resolveZone(strings.Join(query, " "))
	if err != nil {
		return zones.Zone{}, 0, err
	}
	if duration < 0 {
		return zones.Zone{}, 0, fmt.Errorf("invalid duration: %s", duration)
	}
	return zone, duration, nil
}

// resolveZone finds a zone by id or by case-insensitive substring match on its name.
// The query must match exactly one zone.
func (b *Bot) resolveZone(query string) (zones.Zone, error) {
	known := b.sessions.Zones()

	if id, err := strconv.Atoi(query); err == nil {
		for _, zone := range known {
			if zone.ID == id {
				return zone, nil
			}
		}
		return zones.Zone{}, fmt.Errorf("invalid zone: %d", id)
	}

	matched := known.Match(query)
	switch len(matched) {
	case 0:
		return zones.Zone{}, fmt.Errorf("no zone matches %q", query)
	case 1:
		return matched[0], nil
	default:
		names := make([]string, len(matched))
		for i, zone := range matched {
			names[i] = zone.Name
		}
		return zones.Zone{}, fmt.Errorf("%q is ambiguous: %s", query, strings.Join(names, ", "))
	}
}
