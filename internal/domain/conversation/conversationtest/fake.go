// Package conversationtest provides a scripted conversation.Client for tests.
package conversationtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/cyberguardian/internal/domain/conversation"
	"github.com/okian/cyberguardian/internal/domain/model"
)

// Call records one invocation.
type Call struct {
	Op     string
	Handle conversation.Handle
	Text   string
}

// Fake answers every turn with a scammer line unless a reply or failure has
// been queued. Handles are "h1", "h2", ... in start order.
type Fake struct {
	mu        sync.Mutex
	started   int
	live      map[conversation.Handle]bool
	replies   []conversation.Reply
	continues []conversation.Reply
	failures  map[string][]error
	calls     []Call
	gate      chan struct{}
	entered   chan struct{}
}

// New returns an empty Fake.
func New() *Fake {
	return &Fake{
		live:     make(map[conversation.Handle]bool),
		failures: make(map[string][]error),
	}
}

// QueueReply makes the next SendMessage return r.
func (f *Fake) QueueReply(r conversation.Reply) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, r)
}

// QueueMentor makes the next SendMessage a mentor intervention.
func (f *Fake) QueueMentor(tactic, guidance string) {
	f.QueueReply(conversation.Reply{Mode: conversation.ModeMentor, Message: guidance, Risk: "HIGH", Tactic: tactic, Guidance: guidance})
}

// FailNext makes the next call of op ("start", "message", "continue", "retry") return err.
func (f *Fake) FailNext(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op] = append(f.failures[op], err)
}

// Expire forgets h as if the backend dropped the session.
func (f *Fake) Expire(h conversation.Handle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.live, h)
}

// Hold blocks SendMessage calls until the returned release is called. The
// returned channel receives once per blocked call after it entered.
func (f *Fake) Hold() (entered <-chan struct{}, release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gate = make(chan struct{})
	f.entered = make(chan struct{}, 16)
	gate := f.gate
	var once sync.Once
	return f.entered, func() { once.Do(func() { close(gate) }) }
}

// Calls returns the recorded calls of op, or all calls if op is empty.
func (f *Fake) Calls(op string) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Call
	for _, c := range f.calls {
		if op == "" || c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

func (f *Fake) record(c Call) error {
	f.calls = append(f.calls, c)
	if q := f.failures[c.Op]; len(q) > 0 {
		f.failures[c.Op] = q[1:]
		return q[0]
	}
	return nil
}

// Start implements conversation.Client.
func (f *Fake) Start(_ context.Context, scenario model.ScenarioType, identity model.Identity, age model.AgeGroup) (conversation.Opening, error) {
	if !scenario.Valid() || !identity.Valid() || !age.Valid() {
		return conversation.Opening{}, fmt.Errorf("%w: %q/%q/%q", model.ErrInvalidEnum, scenario, identity, age)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(Call{Op: "start", Text: string(scenario)}); err != nil {
		return conversation.Opening{}, err
	}
	f.started++
	h := conversation.Handle(fmt.Sprintf("h%d", f.started))
	f.live[h] = true
	return conversation.Opening{Message: fmt.Sprintf("opening %d for %s", f.started, scenario), Handle: h}, nil
}

// SendMessage implements conversation.Client.
func (f *Fake) SendMessage(ctx context.Context, h conversation.Handle, text string) (conversation.Reply, error) {
	f.mu.Lock()
	gate, entered := f.gate, f.entered
	f.mu.Unlock()
	if gate != nil {
		entered <- struct{}{}
		select {
		case <-gate:
		case <-ctx.Done():
			return conversation.Reply{}, fmt.Errorf("%w: %v", conversation.ErrTransport, ctx.Err())
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if h == "" {
		return conversation.Reply{}, conversation.ErrNoSession
	}
	if err := f.record(Call{Op: "message", Handle: h, Text: text}); err != nil {
		return conversation.Reply{}, err
	}
	if !f.live[h] {
		return conversation.Reply{}, conversation.ErrSessionEnded
	}
	if len(f.replies) > 0 {
		r := f.replies[0]
		f.replies = f.replies[1:]
		if r.Mode == conversation.ModeEnded {
			delete(f.live, h)
		}
		return r, nil
	}
	return conversation.Reply{Mode: conversation.ModeSimulator, Message: "scammer reply to " + text}, nil
}

// QueueContinue makes the next Continue return r.
func (f *Fake) QueueContinue(r conversation.Reply) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.continues = append(f.continues, r)
}

// Continue implements conversation.Client.
func (f *Fake) Continue(_ context.Context, h conversation.Handle) (conversation.Reply, error) {
	r, err := f.session("continue", h)
	if err != nil {
		return r, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.continues) > 0 {
		r = f.continues[0]
		f.continues = f.continues[1:]
		if r.Mode == conversation.ModeEnded {
			delete(f.live, h)
		}
	}
	return r, nil
}

// Retry implements conversation.Client.
func (f *Fake) Retry(_ context.Context, h conversation.Handle) (conversation.Reply, error) {
	r, err := f.session("retry", h)
	if err == nil {
		f.Expire(h)
		r.Mode = conversation.ModeEnded
	}
	return r, err
}

func (f *Fake) session(op string, h conversation.Handle) (conversation.Reply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if h == "" {
		return conversation.Reply{}, conversation.ErrNoSession
	}
	if err := f.record(Call{Op: op, Handle: h}); err != nil {
		return conversation.Reply{}, err
	}
	if !f.live[h] {
		return conversation.Reply{}, conversation.ErrSessionEnded
	}
	return conversation.Reply{Mode: conversation.ModeSimulator, Message: op + " line"}, nil
}

var _ conversation.Client = (*Fake)(nil)
