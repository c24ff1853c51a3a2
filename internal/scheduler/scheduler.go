// Package scheduler runs the periodic activity digest.
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/robfig/cron/v3"

	"github.com/chris/wingman/internal/db"
)

// digestSize is how many recently active profiles a digest lists.
const digestSize = 5

// Deliverer sends a finished digest somewhere the operator will see it.
type Deliverer interface {
	Deliver(ctx context.Context, label, content string) error
}

type Scheduler struct {
	cron    *cron.Cron
	db      *db.DB
	out     Deliverer
	logger  *log.Logger
	now     func() time.Time
	timeout time.Duration
}

func New(database *db.DB, out Deliverer, logger *log.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		db:      database,
		out:     out,
		logger:  logger,
		now:     time.Now,
		timeout: time.Minute,
	}
}

// Start registers the digest on spec and starts the cron loop. An empty
// spec disables the digest.
func (s *Scheduler) Start(spec string) error {
	if spec == "" {
		s.logger.Info("digest disabled")
		return nil
	}
	if _, err := s.cron.AddFunc(spec, s.runDigest); err != nil {
		return fmt.Errorf("invalid digest cron %q: %w", spec, err)
	}
	s.cron.Start()
	s.logger.Info("scheduler started", "digest", spec)
	return nil
}

// Stop halts the cron loop and waits for a running digest to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runDigest() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	text, err := s.Digest()
	if err != nil {
		s.logger.Error("building digest", "err", err)
		return
	}
	if err := s.out.Deliver(ctx, "digest", text); err != nil {
		s.logger.Error("delivering digest", "err", err)
		return
	}
	s.logger.Info("digest delivered")
}

// Digest summarises stored profiles and the most recent conversations.
func (s *Scheduler) Digest() (string, error) {
	stats, err := s.db.GetStats()
	if err != nil {
		return "", fmt.Errorf("loading stats: %w", err)
	}
	recent, err := s.db.RecentActivity(digestSize)
	if err != nil {
		return "", fmt.Errorf("loading recent activity: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**Digest**: %s %s, %s stored %s.\n",
		humanize.Comma(int64(stats.TotalProfiles)), plural(stats.TotalProfiles, "profile"),
		humanize.Comma(int64(stats.TotalMessages)), plural(stats.TotalMessages, "message"))
	if len(recent) == 0 {
		b.WriteString("No conversations yet.")
		return b.String(), nil
	}

	b.WriteString("Recent conversations:\n")
	now := s.now()
	for _, a := range recent {
		fmt.Fprintf(&b, "- %s (`%s`): %d %s, active %s",
			a.Name, a.ID, a.Messages, plural(a.Messages, "message"), humanize.RelTime(a.UpdatedAt, now, "ago", "from now"))
		if a.LastMessage.Text != "" {
			fmt.Fprintf(&b, ", last from %s: %q", a.LastMessage.From, clip(a.LastMessage.Text, 80))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
