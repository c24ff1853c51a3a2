// Package llmtest provides a scripted llm.Client for tests.
package llmtest

import (
	"context"
	"sync"

	"github.com/chris/wingman/internal/llm"
)

// Call is one recorded Generate invocation.
type Call struct {
	Prompt  string
	Options llm.Options
}

// Fake replies from a queue of scripted results. Once the queue is empty
// it returns Default, or an empty envelope when Default is nil.
type Fake struct {
	mu      sync.Mutex
	script  []result
	Default *llm.Response
	calls   []Call
}

type result struct {
	resp *llm.Response
	err  error
}

// Reply queues a text answer.
func (f *Fake) Reply(text string) *Fake {
	return f.Respond(llm.TextResponse(text), nil)
}

// Fail queues an error.
func (f *Fake) Fail(err error) *Fake {
	return f.Respond(nil, err)
}

func (f *Fake) Respond(resp *llm.Response, err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.script = append(f.script, result{resp: resp, err: err})
	return f
}

func (f *Fake) Generate(ctx context.Context, prompt string, opts llm.Options) (*llm.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Prompt: prompt, Options: opts})
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(f.script) == 0 {
		if f.Default != nil {
			return f.Default, nil
		}
		return &llm.Response{}, nil
	}
	r := f.script[0]
	f.script = f.script[1:]
	return r.resp, r.err
}

// Calls returns a copy of every recorded invocation.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}
