package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chris/wingman/internal/db"
	"github.com/chris/wingman/internal/llm"
	"github.com/chris/wingman/internal/llm/llmtest"
	"github.com/chris/wingman/internal/profile"
	"github.com/chris/wingman/internal/prompt"
)

const (
	selfID      = "111"
	repliesJSON = `{"reply_1": "one", "reply_2": "two", "reply_3": "three"}`
)

func openTestDB(t *testing.T) *db.DB {
	t.Helper()
	d, err := db.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func newController(t *testing.T, client llm.Client) (*Controller, *db.DB) {
	t.Helper()
	d := openTestDB(t)
	c := New(d, client, prompt.New(), Identity{SelfID: selfID, SelfLabel: "Me", SelfName: "Iulian"}, log.New(io.Discard))
	return c, d
}

// --- Handle ---

func TestHandle_CounterpartMessage(t *testing.T) {
	fake := (&llmtest.Fake{}).Reply(`{"likes": ["pizza"]}`)
	c, d := newController(t, fake)

	res, err := c.Handle(context.Background(), Event{SenderID: "99", RecipientID: selfID, TimestampMs: 1700000000000, Text: "I love pizza"}, Options{})
	require.NoError(t, err)

	assert.Equal(t, "99", res.ProfileID)
	assert.False(t, res.FromSelf)
	assert.False(t, res.RepliesRequested)
	assert.Equal(t, []string{"pizza"}, res.Profile.Likes)
	assert.Len(t, fake.Calls(), 1, "no reply generation unless requested")

	stored, err := d.GetProfile("99")
	require.NoError(t, err)
	assert.Equal(t, "@99", stored.Name)
	require.Len(t, stored.PreviousMessages, 1)
	assert.Equal(t, profile.Message{From: "@99", Text: "I love pizza", Timestamp: "2023-11-14T22:13:20Z"}, stored.PreviousMessages[0])
	assert.Equal(t, []string{"pizza"}, stored.Likes)
}

func TestHandle_UsesExistingName(t *testing.T) {
	c, d := newController(t, &llmtest.Fake{})
	require.NoError(t, d.UpsertProfile(profile.New("99", "Jessica")))

	_, err := c.Handle(context.Background(), Event{SenderID: "99", RecipientID: selfID, Text: "hey"}, Options{})
	require.NoError(t, err)

	stored, err := d.GetProfile("99")
	require.NoError(t, err)
	assert.Equal(t, "Jessica", stored.PreviousMessages[0].From)
}

func TestHandle_SelfMessage(t *testing.T) {
	fake := (&llmtest.Fake{}).Reply(`{"likes": ["gym"]}`)
	c, d := newController(t, fake)

	res, err := c.Handle(context.Background(), Event{SenderID: selfID, RecipientID: "99", Text: "off to the gym"}, Options{WantReplies: true})
	require.NoError(t, err)

	assert.True(t, res.FromSelf)
	assert.Equal(t, "99", res.ProfileID)
	assert.False(t, res.RepliesRequested, "own messages never get suggestions")
	assert.Len(t, fake.Calls(), 1)
	assert.Contains(t, fake.Calls()[0].Prompt, "things I like")

	stored, err := d.GetProfile("99")
	require.NoError(t, err)
	assert.Equal(t, "Me", stored.PreviousMessages[0].From)
	assert.Empty(t, stored.Likes, "self facts must not land on the counterpart")

	self, err := d.GetSelf("")
	require.NoError(t, err)
	assert.Equal(t, "Iulian", self.Name)
	assert.Equal(t, []string{"gym"}, self.Likes)
}

func TestHandle_WithReplies(t *testing.T) {
	fake := (&llmtest.Fake{}).Reply(`{"likes": ["hiking"]}`).Reply("```json\n" + repliesJSON + "\n```")
	c, _ := newController(t, fake)

	res, err := c.Handle(context.Background(), Event{SenderID: "99", RecipientID: selfID, Text: "went hiking"}, Options{
		WantReplies: true,
		Context:     profile.PromptContext{Tone: "playful"},
	})
	require.NoError(t, err)

	assert.True(t, res.RepliesRequested)
	assert.Equal(t, [3]string{"one", "two", "three"}, res.Replies)

	calls := fake.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, llm.ExtractionOptions, calls[0].Options)
	assert.Equal(t, llm.ReplyOptions, calls[1].Options)
	assert.Contains(t, calls[1].Prompt, "Tone preference: playful")
}

// probeClient records what the store held at each backend call.
type probeClient struct {
	db      *db.DB
	id      string
	history []int
	prompts []string
}

func (p *probeClient) Generate(_ context.Context, text string, opts llm.Options) (*llm.Response, error) {
	n := -1
	if prof, err := p.db.GetProfile(p.id); err == nil {
		n = len(prof.PreviousMessages)
	}
	p.history = append(p.history, n)
	p.prompts = append(p.prompts, text)
	if opts == llm.ExtractionOptions {
		return llm.TextResponse(`{"likes": ["kayaking"]}`), nil
	}
	return llm.TextResponse(repliesJSON), nil
}

func TestHandle_AppendThenExtractThenReply(t *testing.T) {
	d := openTestDB(t)
	probe := &probeClient{db: d, id: "99"}
	c := New(d, probe, nil, Identity{SelfID: selfID}, log.New(io.Discard))

	_, err := c.Handle(context.Background(), Event{SenderID: "99", Text: "kayak trip!"}, Options{WantReplies: true})
	require.NoError(t, err)

	require.Len(t, probe.history, 2)
	assert.Equal(t, []int{1, 1}, probe.history, "message is stored before extraction runs")
	assert.Contains(t, probe.prompts[1], "kayaking", "reply prompt sees the merged facts")
	assert.Contains(t, probe.prompts[1], "@99: kayak trip!")
}

func TestHandle_BackendFailuresAreAbsorbed(t *testing.T) {
	fake := (&llmtest.Fake{}).Fail(llm.ErrUnavailable).Fail(llm.ErrUnavailable)
	c, d := newController(t, fake)

	res, err := c.Handle(context.Background(), Event{SenderID: "99", Text: "hello?"}, Options{WantReplies: true})
	require.NoError(t, err)

	assert.True(t, res.RepliesRequested)
	assert.Equal(t, [3]string{"", "", ""}, res.Replies)
	assert.True(t, res.Facts.Empty())

	stored, err := d.GetProfile("99")
	require.NoError(t, err)
	assert.Len(t, stored.PreviousMessages, 1)
}

func TestHandle_UnconfiguredBackendStillIngests(t *testing.T) {
	client, err := llm.NewClient(context.Background(), llm.ProviderConfig{Provider: "gemini"})
	require.NoError(t, err)
	c, d := newController(t, client)

	res, err := c.Handle(context.Background(), Event{SenderID: "99", Text: "hi"}, Options{WantReplies: true})
	require.NoError(t, err)
	assert.Equal(t, [3]string{}, res.Replies)

	_, err = d.GetProfile("99")
	assert.NoError(t, err)
}

func TestHandle_RejectsBadEvents(t *testing.T) {
	c, _ := newController(t, &llmtest.Fake{})

	_, err := c.Handle(context.Background(), Event{SenderID: "99", Text: "  "}, Options{})
	assert.ErrorIs(t, err, ErrEmptyMessage)

	_, err = c.Handle(context.Background(), Event{SenderID: selfID, Text: "hi"}, Options{})
	assert.ErrorIs(t, err, ErrMissingIdentity)
}

func TestHandle_ConcurrentSameCounterpart(t *testing.T) {
	c, d := newController(t, &llmtest.Fake{})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := c.Handle(context.Background(), Event{SenderID: "99", Text: fmt.Sprintf("m%d", i)}, Options{})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	stored, err := d.GetProfile("99")
	require.NoError(t, err)
	assert.Len(t, stored.PreviousMessages, 20)
	assert.Zero(t, c.locks.size())
}

// --- AddMessage ---

func TestAddMessage(t *testing.T) {
	fake := (&llmtest.Fake{}).Reply(`{"likes": ["jazz"]}`).Reply(`{"likes": ["tea"]}`)
	c, d := newController(t, fake)

	_, err := c.AddMessage(context.Background(), "42", profile.Message{From: "Ana", Text: "hi"}, Options{})
	assert.ErrorIs(t, err, db.ErrNotFound)
	assert.Empty(t, fake.Calls())

	require.NoError(t, d.UpsertProfile(profile.New("42", "Ana")))

	res, err := c.AddMessage(context.Background(), "42", profile.Message{Text: "I love jazz"}, Options{})
	require.NoError(t, err)
	assert.False(t, res.FromSelf)
	assert.Equal(t, []string{"jazz"}, res.Profile.Likes)
	assert.Equal(t, "Ana", res.Profile.PreviousMessages[0].From)
	assert.NotEmpty(t, res.Profile.PreviousMessages[0].Timestamp)

	res, err = c.AddMessage(context.Background(), "42", profile.Message{From: "me", Text: "tea person here"}, Options{WantReplies: true})
	require.NoError(t, err)
	assert.True(t, res.FromSelf)
	assert.False(t, res.RepliesRequested)

	self, err := d.GetSelf("")
	require.NoError(t, err)
	assert.Equal(t, []string{"tea"}, self.Likes)
}

func TestAddMessage_SelfAliasRefused(t *testing.T) {
	c, _ := newController(t, &llmtest.Fake{})

	_, err := c.AddMessage(context.Background(), profile.SelfAlias, profile.Message{Text: "hi"}, Options{})
	assert.ErrorIs(t, err, db.ErrProtectedRecord)
}

// --- SuggestReplies ---

func TestSuggestReplies(t *testing.T) {
	fake := (&llmtest.Fake{}).Reply(repliesJSON)
	c, d := newController(t, fake)
	p := profile.New("42", "Ana")
	p.PreviousMessages = []profile.Message{{From: "Ana", Text: "what are you up to?"}}
	require.NoError(t, d.UpsertProfile(p))

	got, err := c.SuggestReplies(context.Background(), "42", "", profile.PromptContext{Language: "Spanish"})
	require.NoError(t, err)
	assert.Equal(t, [3]string{"one", "two", "three"}, got)

	calls := fake.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Prompt, "Their last message: 'what are you up to?'")
	assert.Contains(t, calls[0].Prompt, "Reply in this language: Spanish")
}

func TestSuggestReplies_Errors(t *testing.T) {
	c, d := newController(t, (&llmtest.Fake{}).Fail(errors.New("boom")))
	require.NoError(t, d.UpsertProfile(profile.New("42", "Ana")))

	_, err := c.SuggestReplies(context.Background(), "404", "hi", profile.PromptContext{})
	assert.ErrorIs(t, err, db.ErrNotFound)

	got, err := c.SuggestReplies(context.Background(), "42", "hi", profile.PromptContext{})
	require.NoError(t, err, "backend failures degrade to empty suggestions")
	assert.Equal(t, [3]string{"", "", ""}, got)

	c2, d2 := newController(t, (&llmtest.Fake{}).Fail(fmt.Errorf("wrapped: %w", llm.ErrNotConfigured)))
	require.NoError(t, d2.UpsertProfile(profile.New("42", "Ana")))
	_, err = c2.SuggestReplies(context.Background(), "42", "hi", profile.PromptContext{})
	assert.ErrorIs(t, err, llm.ErrNotConfigured)
}

func TestSuggestReplies_SelfAlias(t *testing.T) {
	fake := (&llmtest.Fake{}).Reply(repliesJSON)
	c, _ := newController(t, fake)

	got, err := c.SuggestReplies(context.Background(), profile.SelfAlias, "hey", profile.PromptContext{})
	require.NoError(t, err)
	assert.Equal(t, "one", got[0])
	assert.Contains(t, fake.Calls()[0].Prompt, "Their name: Iulian")
}

// --- Regenerate, Polish, Simulate ---

func TestRegenerate(t *testing.T) {
	fake := (&llmtest.Fake{}).Reply(`{"reply_1": "a", "option_reply": "b"}`)
	c, _ := newController(t, fake)

	_, err := c.Regenerate(context.Background(), nil, "", "")
	assert.ErrorIs(t, err, ErrEmptyConversation)

	got, err := c.Regenerate(context.Background(), []profile.Message{{From: "Ana", Text: "so?"}}, "bold", "date")
	require.NoError(t, err)
	assert.Equal(t, [3]string{"a", "b", ""}, got)
	assert.Equal(t, llm.RegenerateOptions, fake.Calls()[0].Options)
}

func TestPolish(t *testing.T) {
	fake := (&llmtest.Fake{}).Reply("  Want to grab coffee this week?  ").Fail(llm.ErrUnavailable)
	c, d := newController(t, fake)
	require.NoError(t, d.UpsertProfile(profile.New("42", "Ana")))

	_, err := c.Polish(context.Background(), "nobody", "coffee?", "", "")
	assert.ErrorIs(t, err, db.ErrNotFound)

	got, err := c.Polish(context.Background(), "42", "coffee?", "casual", "")
	require.NoError(t, err)
	assert.Equal(t, "Want to grab coffee this week?", got)

	got, err = c.Polish(context.Background(), "42", "coffee?", "", "")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSimulate(t *testing.T) {
	fake := (&llmtest.Fake{}).Reply("haha maybe").Fail(llm.ErrUnavailable).Reply("   ")
	c, _ := newController(t, fake)
	req := SimulationRequest{Persona: prompt.Persona{Name: "Ana"}, UserMessage: "hey", Difficulty: "hard"}

	assert.Equal(t, "haha maybe", c.Simulate(context.Background(), req))
	assert.Equal(t, SimulationFallback, c.Simulate(context.Background(), req))
	assert.Equal(t, SimulationFallback, c.Simulate(context.Background(), req))
	assert.Equal(t, llm.SimulateOptions, fake.Calls()[0].Options)
}

// --- Import ---

func TestImport(t *testing.T) {
	fake := (&llmtest.Fake{}).Reply(`{"likes": ["sushi"], "bio": "Night owl", "conversation_goals": ["second date"]}`)
	c, d := newController(t, fake)
	var msgs []profile.Message
	for i := 0; i < 60; i++ {
		from := "Ana"
		if i%2 == 0 {
			from = "Me"
		}
		msgs = append(msgs, profile.Message{From: from, Text: fmt.Sprintf("t%d", i)})
	}

	p, err := c.Import(context.Background(), "", msgs)
	require.NoError(t, err)

	assert.Equal(t, defaultImportName, p.Name)
	assert.Len(t, p.ID, 36)
	assert.Len(t, p.PreviousMessages, profile.MaxMessages)
	assert.Equal(t, "t10", p.PreviousMessages[0].Text)
	assert.Equal(t, []string{"sushi"}, p.Likes)
	assert.Equal(t, "Night owl", p.Bio)

	stored, err := d.GetProfile(p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Likes, stored.Likes)

	sent := fake.Calls()[0].Prompt
	assert.Contains(t, sent, "t1 t3")
	assert.NotContains(t, sent, "t0 ")
}

func TestImport_Empty(t *testing.T) {
	c, _ := newController(t, &llmtest.Fake{})
	_, err := c.Import(context.Background(), "Ana", nil)
	assert.ErrorIs(t, err, ErrEmptyConversation)
}

// --- keyedMutex ---

func TestKeyedMutex_SerialisesSameKey(t *testing.T) {
	k := newKeyedMutex()
	var active, maxActive int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock("a")
			n := atomic.AddInt32(&active, 1)
			for {
				m := atomic.LoadInt32(&maxActive)
				if n <= m || atomic.CompareAndSwapInt32(&maxActive, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&active, -1)
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxActive)
	assert.Zero(t, k.size())
}

func TestKeyedMutex_DifferentKeysIndependent(t *testing.T) {
	k := newKeyedMutex()
	unlockA := k.Lock("a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlock := k.Lock("b")
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on b blocked behind a")
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab...", truncate("abcdef", 2))
}
