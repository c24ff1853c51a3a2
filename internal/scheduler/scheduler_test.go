package scheduler

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/chris/wingman/internal/db"
	"github.com/chris/wingman/internal/profile"
)

type recorder struct {
	mu       sync.Mutex
	labels   []string
	contents []string
	err      error
}

func (r *recorder) Deliver(_ context.Context, label, content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.labels = append(r.labels, label)
	r.contents = append(r.contents, content)
	return r.err
}

func openTestDB(t *testing.T) *db.DB {
	t.Helper()
	d, err := db.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func TestDigest_Empty(t *testing.T) {
	s := New(openTestDB(t), &recorder{}, log.New(io.Discard))

	got, err := s.Digest()
	require.NoError(t, err)
	assert.Equal(t, "**Digest**: 0 profiles, 0 stored messages.\nNo conversations yet.", got)
}

func TestDigest_RecentConversations(t *testing.T) {
	d := openTestDB(t)
	_, err := d.AppendMessage("42", profile.Message{From: "Ana", Text: "see you at 8"}, "Ana")
	require.NoError(t, err)

	s := New(d, &recorder{}, log.New(io.Discard))
	s.now = func() time.Time { return time.Now().Add(3*time.Hour + 30*time.Minute) }

	got, err := s.Digest()
	require.NoError(t, err)
	assert.Contains(t, got, "1 profile, 1 stored message.")
	assert.Contains(t, got, "- Ana (`42`): 1 message, active 3 hours ago")
	assert.Contains(t, got, `last from Ana: "see you at 8"`)
}

func TestRunDigest_Delivers(t *testing.T) {
	rec := &recorder{}
	s := New(openTestDB(t), rec, log.New(io.Discard))

	s.runDigest()

	require.Len(t, rec.labels, 1)
	assert.Equal(t, "digest", rec.labels[0])
	assert.Contains(t, rec.contents[0], "**Digest**")
}

func TestRunDigest_DeliveryErrorIsLogged(t *testing.T) {
	rec := &recorder{err: errors.New("offline")}
	s := New(openTestDB(t), rec, log.New(io.Discard))

	assert.NotPanics(t, s.runDigest)
}

func TestStart_InvalidSpec(t *testing.T) {
	s := New(openTestDB(t), &recorder{}, log.New(io.Discard))
	assert.Error(t, s.Start("not a cron"))
}

func TestStartStop_NoLeaks(t *testing.T) {
	before := goleak.IgnoreCurrent()
	d, err := db.Open("sqlite", ":memory:")
	require.NoError(t, err)

	s := New(d, &recorder{}, log.New(io.Discard))
	require.NoError(t, s.Start("@every 1h"))
	require.NoError(t, s.Start(""))
	s.Stop()
	require.NoError(t, d.Close())

	goleak.VerifyNone(t, before)
}

func TestClipAndPlural(t *testing.T) {
	assert.Equal(t, "abc", clip("abc", 3))
	assert.Equal(t, "ab...", clip("abc", 2))
	assert.Equal(t, "message", plural(1, "message"))
	assert.Equal(t, "messages", plural(0, "message"))
}
