// Package training drives one trainee through identity, age group and
// scenario selection and then the scammer/mentor conversation.
package training

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/cyberguardian/internal/domain/conversation"
	"github.com/okian/cyberguardian/internal/domain/model"
	"github.com/okian/cyberguardian/pkg/logger"
	"github.com/okian/cyberguardian/pkg/metrics"
)

// State is the selection step or the active conversation.
type State string

// Machine states.
const (
	StateChoosingIdentity State = "choosing_identity"
	StateChoosingAgeGroup State = "choosing_age_group"
	StateChoosingScenario State = "choosing_scenario"
	StateActive           State = "active"
)

// Turn is whose move it is while Active.
type Turn string

// Active sub-states.
const (
	TurnSimulator Turn = "simulator"
	TurnMentor    Turn = "mentor"
)

// Saver persists a finished or abandoned attempt.
type Saver func(ctx context.Context, draft model.SessionDraft) error

// Mentor is the intervention shown while in TurnMentor.
type Mentor struct {
	Tactic   string `json:"tactic"`
	Guidance string `json:"guidance"`
	Risk     string `json:"risk,omitempty"`
}

// Snapshot is a copy of the machine's observable state.
type Snapshot struct {
	State               State              `json:"state"`
	Turn                Turn               `json:"turn,omitempty"`
	Identity            model.Identity     `json:"identity,omitempty"`
	AgeGroup            model.AgeGroup     `json:"ageGroup,omitempty"`
	Scenario            model.ScenarioType `json:"scenario,omitempty"`
	Transcript          []model.Message    `json:"transcript"`
	MentorInterventions int                `json:"mentorInterventions"`
	TacticsEncountered  []string           `json:"tacticsEncountered"`
	StartedAt           *time.Time         `json:"startedAt,omitempty"`
	Mentor              *Mentor            `json:"mentor,omitempty"`
	Ended               bool               `json:"ended"`
	Busy                bool               `json:"busy"`
	Notice              string             `json:"notice,omitempty"`
}

// Machine is the per-trainee state machine. It is safe for concurrent use;
// at most one turn is in flight at a time and competing calls get ErrBusy.
type Machine struct {
	client      conversation.Client
	save        Saver
	now         func() time.Time
	turnTimeout time.Duration
	log         logger.Logger
	fallback    string

	mu            sync.Mutex
	state         State
	turn          Turn
	identity      model.Identity
	ageGroup      model.AgeGroup
	scenario      model.ScenarioType
	handle        conversation.Handle
	transcript    []model.Message
	interventions int
	tactics       []string
	startedAt     time.Time
	mentor        *Mentor
	ended         bool
	busy          bool
	notice        string
	lastActivity  time.Time
}

// New returns a machine in StateChoosingIdentity.
func New(client conversation.Client, save Saver, opts ...Option) *Machine {
	m := &Machine{
		client:      client,
		save:        save,
		now:         time.Now,
		turnTimeout: DefaultTurnTimeout,
		log:         logger.Nop(),
		fallback:    FallbackNotice,
		state:       StateChoosingIdentity,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.lastActivity = m.now()
	return m
}

// Snapshot returns the current observable state.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// LastActivity reports when the machine last accepted an operation.
func (m *Machine) LastActivity() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastActivity
}

// Busy reports whether a turn is in flight.
func (m *Machine) Busy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.busy
}

// Active reports whether a conversation is in progress.
func (m *Machine) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateActive
}

func (m *Machine) snapshotLocked() Snapshot {
	s := Snapshot{
		State:               m.state,
		Identity:            m.identity,
		AgeGroup:            m.ageGroup,
		Scenario:            m.scenario,
		Transcript:          append([]model.Message{}, m.transcript...),
		MentorInterventions: m.interventions,
		TacticsEncountered:  append([]string{}, m.tactics...),
		Ended:               m.ended,
		Busy:                m.busy,
		Notice:              m.notice,
	}
	if m.state == StateActive {
		s.Turn = m.turn
		started := m.startedAt
		s.StartedAt = &started
	}
	if m.mentor != nil {
		mentor := *m.mentor
		s.Mentor = &mentor
	}
	return s
}

// SelectIdentity records the trainee's identity and moves to age selection.
func (m *Machine) SelectIdentity(id model.Identity) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.guardLocked(StateChoosingIdentity); err != nil {
		return m.snapshotLocked(), err
	}
	if !id.Valid() {
		return m.snapshotLocked(), fmt.Errorf("%w: identity %q", model.ErrInvalidEnum, id)
	}
	m.identity = id
	m.state = StateChoosingAgeGroup
	m.touchLocked()
	return m.snapshotLocked(), nil
}

// SelectAgeGroup records the age group and moves to scenario selection.
func (m *Machine) SelectAgeGroup(age model.AgeGroup) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.guardLocked(StateChoosingAgeGroup); err != nil {
		return m.snapshotLocked(), err
	}
	if !age.Valid() {
		return m.snapshotLocked(), fmt.Errorf("%w: age group %q", model.ErrInvalidEnum, age)
	}
	m.ageGroup = age
	m.state = StateChoosingScenario
	m.touchLocked()
	return m.snapshotLocked(), nil
}

// Back returns to the previous selection step.
func (m *Machine) Back() (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.busy {
		return m.snapshotLocked(), ErrBusy
	}
	switch m.state {
	case StateChoosingAgeGroup:
		m.state = StateChoosingIdentity
	case StateChoosingScenario:
		m.state = StateChoosingAgeGroup
	default:
		return m.snapshotLocked(), fmt.Errorf("%w: back from %s", ErrInvalidTransition, m.state)
	}
	m.touchLocked()
	return m.snapshotLocked(), nil
}

// SelectScenario starts a conversation. On failure the machine stays in
// StateChoosingScenario with the fallback notice set.
func (m *Machine) SelectScenario(ctx context.Context, scenario model.ScenarioType) (Snapshot, error) {
	m.mu.Lock()
	if err := m.guardLocked(StateChoosingScenario); err != nil {
		defer m.mu.Unlock()
		return m.snapshotLocked(), err
	}
	if !scenario.Valid() {
		defer m.mu.Unlock()
		return m.snapshotLocked(), fmt.Errorf("%w: scenario %q", model.ErrInvalidEnum, scenario)
	}
	m.busy = true
	identity, age := m.identity, m.ageGroup
	m.mu.Unlock()

	started := m.now()
	opening, err := m.start(ctx, scenario, identity, age)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.busy = false
	m.touchLocked()
	if err != nil {
		m.notice = m.fallback
		m.record(ctx, "select_scenario", err)
		return m.snapshotLocked(), err
	}
	m.scenario = scenario
	m.beginLocked(opening, started)
	m.record(ctx, "select_scenario", nil)
	return m.snapshotLocked(), nil
}

// Send delivers the trainee's message. A failed delivery leaves transcript and
// counters untouched.
func (m *Machine) Send(ctx context.Context, text string) (Snapshot, error) {
	m.mu.Lock()
	if err := m.guardActiveLocked(); err != nil {
		defer m.mu.Unlock()
		return m.snapshotLocked(), err
	}
	if strings.TrimSpace(text) == "" {
		defer m.mu.Unlock()
		return m.snapshotLocked(), ErrEmptyMessage
	}
	m.busy = true
	h := m.handle
	m.mu.Unlock()

	sentAt := m.now()
	reply, restarted, err := m.sendWithRestart(ctx, h, text)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.busy = false
	m.touchLocked()
	if err != nil {
		m.notice = m.fallback
		m.record(ctx, "send", err)
		return m.snapshotLocked(), err
	}
	if restarted != "" {
		m.handle = restarted
	}
	m.notice = ""
	m.appendLocked(model.RoleUser, text, sentAt)

	switch reply.Mode {
	case conversation.ModeMentor:
		m.turn = TurnMentor
		m.interventions++
		if !contains(m.tactics, reply.Tactic) {
			m.tactics = append(m.tactics, reply.Tactic)
		}
		m.mentor = &Mentor{Tactic: reply.Tactic, Guidance: reply.Guidance, Risk: reply.Risk}
		metrics.RecordMentorIntervention()
		metrics.RecordTrainingTurn("send", "mentor")
	case conversation.ModeEnded:
		if reply.Message != "" {
			m.appendLocked(model.RoleScammer, reply.Message, m.now())
		}
		m.ended = true
		m.handle = ""
		metrics.RecordTrainingTurn("send", "ended")
	case conversation.ModeSimulator:
		m.appendLocked(model.RoleScammer, reply.Message, m.now())
		metrics.RecordTrainingTurn("send", "simulator")
	}
	return m.snapshotLocked(), nil
}

// Continue dismisses the mentor and resumes the conversation.
func (m *Machine) Continue(ctx context.Context) (Snapshot, error) {
	m.mu.Lock()
	if m.busy {
		defer m.mu.Unlock()
		return m.snapshotLocked(), ErrBusy
	}
	if m.state != StateActive || m.turn != TurnMentor {
		defer m.mu.Unlock()
		return m.snapshotLocked(), fmt.Errorf("%w: continue without a mentor intervention", ErrInvalidTransition)
	}
	m.busy = true
	h, scenario, identity, age := m.handle, m.scenario, m.identity, m.ageGroup
	m.mu.Unlock()

	handle := h
	reply, err := m.call(ctx, func(c context.Context) (conversation.Reply, error) { return m.client.Continue(c, h) })
	if errors.Is(err, conversation.ErrNoSession) {
		var opening conversation.Opening
		opening, err = m.start(ctx, scenario, identity, age)
		reply = conversation.Reply{Mode: conversation.ModeSimulator, Message: opening.Message}
		handle = opening.Handle
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.busy = false
	m.touchLocked()
	if err != nil {
		m.notice = m.fallback
		m.record(ctx, "continue", err)
		return m.snapshotLocked(), err
	}
	m.handle = handle
	m.notice = ""
	m.turn = TurnSimulator
	m.mentor = nil
	if reply.Message != "" {
		m.appendLocked(model.RoleScammer, reply.Message, m.now())
	}
	if reply.Mode == conversation.ModeEnded {
		m.ended = true
		m.handle = ""
	}
	m.record(ctx, "continue", nil)
	return m.snapshotLocked(), nil
}

// Retry abandons the attempt and restarts the scenario. An attempt with more
// than the opening line is first saved with completed=false.
func (m *Machine) Retry(ctx context.Context) (Snapshot, error) {
	m.mu.Lock()
	if err := m.guardLocked(StateActive); err != nil {
		defer m.mu.Unlock()
		return m.snapshotLocked(), err
	}
	m.busy = true
	h, scenario, identity, age := m.handle, m.scenario, m.identity, m.ageGroup
	var draft *model.SessionDraft
	if len(m.transcript) > 1 {
		d := m.draftLocked(false)
		draft = &d
	}
	m.mu.Unlock()

	if draft != nil {
		if err := m.save(ctx, *draft); err != nil {
			m.mu.Lock()
			defer m.mu.Unlock()
			m.busy = false
			m.record(ctx, "retry", err)
			return m.snapshotLocked(), fmt.Errorf("save abandoned session: %w", err)
		}
	}

	if h != "" {
		if _, err := m.call(ctx, func(c context.Context) (conversation.Reply, error) { return m.client.Retry(c, h) }); err != nil {
			m.log.Debug(ctx, "backend retry failed, restarting anyway", logger.Error(err))
		}
	}

	started := m.now()
	opening, err := m.start(ctx, scenario, identity, age)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.busy = false
	m.touchLocked()
	if err != nil {
		m.resetChatLocked()
		m.state = StateChoosingScenario
		m.notice = m.fallback
		m.record(ctx, "retry", err)
		return m.snapshotLocked(), err
	}
	m.beginLocked(opening, started)
	m.record(ctx, "retry", nil)
	return m.snapshotLocked(), nil
}

// Exit ends the attempt, saves it with completed=true and returns to
// scenario selection. If the save fails the conversation is kept.
func (m *Machine) Exit(ctx context.Context) (Snapshot, error) {
	m.mu.Lock()
	if err := m.guardLocked(StateActive); err != nil {
		defer m.mu.Unlock()
		return m.snapshotLocked(), err
	}
	m.busy = true
	draft := m.draftLocked(true)
	m.mu.Unlock()

	err := m.save(ctx, draft)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.busy = false
	m.touchLocked()
	if err != nil {
		m.record(ctx, "exit", err)
		return m.snapshotLocked(), fmt.Errorf("save session: %w", err)
	}
	m.resetChatLocked()
	m.state = StateChoosingScenario
	m.record(ctx, "exit", nil)
	return m.snapshotLocked(), nil
}

func (m *Machine) guardLocked(want State) error {
	if m.busy {
		return ErrBusy
	}
	if m.state != want {
		return fmt.Errorf("%w: %s requires %s", ErrInvalidTransition, m.state, want)
	}
	return nil
}

func (m *Machine) guardActiveLocked() error {
	if err := m.guardLocked(StateActive); err != nil {
		return err
	}
	if m.turn == TurnMentor {
		return ErrMentorPending
	}
	if m.ended {
		return ErrConversationEnded
	}
	return nil
}

func (m *Machine) beginLocked(opening conversation.Opening, started time.Time) {
	m.resetChatLocked()
	m.state = StateActive
	m.turn = TurnSimulator
	m.handle = opening.Handle
	m.startedAt = started
	m.appendLocked(model.RoleScammer, opening.Message, m.now())
}

func (m *Machine) resetChatLocked() {
	m.turn = TurnSimulator
	m.handle = ""
	m.transcript = nil
	m.interventions = 0
	m.tactics = nil
	m.startedAt = time.Time{}
	m.mentor = nil
	m.ended = false
	m.notice = ""
}

func (m *Machine) appendLocked(role model.Role, content string, at time.Time) {
	m.transcript = append(m.transcript, model.Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: model.TimestampOf(at),
	})
}

func (m *Machine) draftLocked(completed bool) model.SessionDraft {
	users := 0
	for _, msg := range m.transcript {
		if msg.Role == model.RoleUser {
			users++
		}
	}
	duration := int(m.now().Sub(m.startedAt) / time.Second)
	if duration < 0 {
		duration = 0
	}
	return model.SessionDraft{
		ScenarioType:        m.scenario,
		Identity:            m.identity,
		AgeGroup:            m.ageGroup,
		MessagesCount:       users,
		MentorInterventions: m.interventions,
		TacticsEncountered:  append([]string{}, m.tactics...),
		Completed:           completed,
		Duration:            duration,
	}
}

func (m *Machine) touchLocked() { m.lastActivity = m.now() }

// start opens a backend session within the turn timeout.
func (m *Machine) start(ctx context.Context, scenario model.ScenarioType, identity model.Identity, age model.AgeGroup) (conversation.Opening, error) {
	c, cancel := context.WithTimeout(ctx, m.turnTimeout)
	defer cancel()
	opening, err := m.client.Start(c, scenario, identity, age)
	return opening, normalize(err)
}

// call runs one backend turn within the turn timeout.
func (m *Machine) call(ctx context.Context, fn func(context.Context) (conversation.Reply, error)) (conversation.Reply, error) {
	c, cancel := context.WithTimeout(ctx, m.turnTimeout)
	defer cancel()
	reply, err := fn(c)
	return reply, normalize(err)
}

// sendWithRestart delivers text and, if the backend no longer knows the
// session, opens a new one with the same parameters and delivers text once
// more. The new handle is returned when that happened.
func (m *Machine) sendWithRestart(ctx context.Context, h conversation.Handle, text string) (conversation.Reply, conversation.Handle, error) {
	reply, err := m.call(ctx, func(c context.Context) (conversation.Reply, error) { return m.client.SendMessage(c, h, text) })
	if !errors.Is(err, conversation.ErrNoSession) {
		return reply, "", err
	}

	m.mu.Lock()
	scenario, identity, age := m.scenario, m.identity, m.ageGroup
	m.mu.Unlock()
	m.log.Info(ctx, "simulation session lost, starting a new one",
		logger.String("scenario", string(scenario)))

	opening, err := m.start(ctx, scenario, identity, age)
	if err != nil {
		return conversation.Reply{}, "", err
	}
	reply, err = m.call(ctx, func(c context.Context) (conversation.Reply, error) {
		return m.client.SendMessage(c, opening.Handle, text)
	})
	if err != nil {
		return conversation.Reply{}, "", err
	}
	return reply, opening.Handle, nil
}

// normalize folds context expiry into the transport kind so callers branch
// on conversation.IsTransient alone.
func normalize(err error) error {
	if err == nil || conversation.IsTransient(err) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", conversation.ErrTransport, err)
	}
	return err
}

func (m *Machine) record(ctx context.Context, op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
		m.log.Warn(ctx, "training operation failed",
			logger.String("operation", op),
			logger.Error(err))
	}
	metrics.RecordTrainingTurn(op, outcome)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
