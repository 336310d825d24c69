// Package suggest runs the accept/decline workflow over recalibration
// suggestions.
//
// Each tool serial moves pending -> in_transition -> accepted|declined. The
// transition state is set before the external save and the terminal state
// only after it succeeded; any failure puts the tool back to pending.
package suggest

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"calibtrack/internal/calendar"
	"calibtrack/internal/id"
	appLog "calibtrack/internal/log"
	"calibtrack/internal/model"
	"calibtrack/internal/risk"
	"calibtrack/internal/store"
)

var (
	ErrAlreadyDecided = errors.New("suggestion already decided")
	ErrInTransition   = errors.New("suggestion is being processed")
	ErrNoSerial       = errors.New("tool has no serial id")

	// ErrAlreadyScheduled is the event store's link error; Accept returns it
	// when the tool already has a calendar event.
	ErrAlreadyScheduled = store.ErrToolScheduled
)

// DefaultSaveTimeout bounds the external calendar-state save.
const DefaultSaveTimeout = 5 * time.Second

// Decision is published after a tool was accepted or declined.
type Decision struct {
	ToolSerialID string                `json:"toolSerialId"`
	Description  string                `json:"description"`
	State        model.SuggestionState `json:"state"`
	RiskLevel    model.RiskLevel       `json:"riskLevel"`
	Date         time.Time             `json:"date"`
	EventID      string                `json:"eventId,omitempty"`
	DecidedAt    time.Time             `json:"decidedAt"`
}

// Notifier is told about every decision. Failures are logged only.
type Notifier interface {
	Notify(ctx context.Context, d Decision) error
}

type Options struct {
	Classifier  risk.Classifier
	Notifier    Notifier
	Location    *time.Location
	SaveTimeout time.Duration
	Now         func() time.Time
}

type Workflow struct {
	events store.EventStore
	states store.CalendarStateStore

	classifier  risk.Classifier
	notifier    Notifier
	loc         *time.Location
	saveTimeout time.Duration
	now         func() time.Time

	mu     sync.Mutex
	status map[string]model.SuggestionState
}

func New(events store.EventStore, states store.CalendarStateStore, opts Options) *Workflow {
	w := &Workflow{
		events:      events,
		states:      states,
		classifier:  opts.Classifier,
		notifier:    opts.Notifier,
		loc:         opts.Location,
		saveTimeout: opts.SaveTimeout,
		now:         opts.Now,
		status:      make(map[string]model.SuggestionState),
	}
	if w.loc == nil {
		w.loc = time.Local
	}
	if w.saveTimeout <= 0 {
		w.saveTimeout = DefaultSaveTimeout
	}
	if w.now == nil {
		w.now = time.Now
	}
	return w
}

// State returns the workflow state of serial; unknown serials are pending.
func (w *Workflow) State(serial string) model.SuggestionState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stateLocked(serial)
}

func (w *Workflow) stateLocked(serial string) model.SuggestionState {
	if st, ok := w.status[serial]; ok {
		return st
	}
	return model.StatePending
}

// begin moves serial into in_transition, refusing decided or busy tools.
func (w *Workflow) begin(serial string) error {
	if serial == "" {
		return ErrNoSerial
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	switch st := w.stateLocked(serial); {
	case st.Terminal():
		return fmt.Errorf("tool %s is %s: %w", serial, st, ErrAlreadyDecided)
	case st == model.StateInTransition:
		return fmt.Errorf("tool %s: %w", serial, ErrInTransition)
	}
	w.status[serial] = model.StateInTransition
	return nil
}

func (w *Workflow) finish(serial string, st model.SuggestionState) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if st == model.StatePending {
		delete(w.status, serial)
		return
	}
	w.status[serial] = st
}

// Accept schedules a calibration event for tool. The calendar state is saved
// first, then the event is added; on any failure the tool stays pending and
// nothing is added.
func (w *Workflow) Accept(ctx context.Context, tool model.Tool) (model.CalendarEvent, error) {
	if err := w.begin(tool.SerialID); err != nil {
		return model.CalendarEvent{}, err
	}

	ev, c, err := w.accept(ctx, tool)
	if err != nil {
		w.finish(tool.SerialID, model.StatePending)
		appLog.Error("suggestion accept failed", err, "serial", tool.SerialID)
		return model.CalendarEvent{}, err
	}

	w.finish(tool.SerialID, model.StateAccepted)
	appLog.Info("suggestion accepted", "serial", tool.SerialID, "event", ev.ID, "start", ev.Start.Format(time.DateOnly))
	w.publish(ctx, Decision{
		ToolSerialID: tool.SerialID,
		Description:  tool.Description,
		State:        model.StateAccepted,
		RiskLevel:    c.Level,
		Date:         ev.Start,
		EventID:      ev.ID,
		DecidedAt:    w.now(),
	})
	return ev, nil
}

func (w *Workflow) accept(ctx context.Context, tool model.Tool) (model.CalendarEvent, model.Classification, error) {
	var c model.Classification
	// The store enforces the link on Add; this only skips a needless save.
	if _, found, err := w.events.FindByTool(ctx, tool.SerialID); err != nil {
		return model.CalendarEvent{}, c, err
	} else if found {
		return model.CalendarEvent{}, c, fmt.Errorf("tool %s: %w", tool.SerialID, ErrAlreadyScheduled)
	}

	now := w.now()
	c = w.classifier.Classify(tool, now)
	start := calendar.ScheduleDate(tool, c, now.In(w.loc), w.loc)
	ev := calendar.NewCalibrationEvent(id.ForTool(tool.SerialID, now), tool, c, start)

	if err := w.save(ctx, tool.SerialID, true, c.Level, start); err != nil {
		return model.CalendarEvent{}, c, err
	}

	if err := w.events.Add(ctx, ev); err != nil {
		// Undo the saved decision so a restart does not see a dangling accept.
		if derr := w.states.Delete(context.WithoutCancel(ctx), tool.SerialID); derr != nil && !errors.Is(derr, store.ErrNotFound) {
			appLog.Error("calendar state rollback failed", derr, "serial", tool.SerialID)
		}
		return model.CalendarEvent{}, c, fmt.Errorf("add calendar event: %w", err)
	}
	return ev, c, nil
}

// Decline records that tool should not be scheduled. No event is created.
func (w *Workflow) Decline(ctx context.Context, tool model.Tool) error {
	if err := w.begin(tool.SerialID); err != nil {
		return err
	}

	now := w.now()
	c := w.classifier.Classify(tool, now)
	var predicted time.Time
	if c.RecommendedDate != nil {
		predicted = calendar.StartOfDay(c.RecommendedDate.In(w.loc), w.loc)
	}

	if err := w.save(ctx, tool.SerialID, false, c.Level, predicted); err != nil {
		w.finish(tool.SerialID, model.StatePending)
		appLog.Error("suggestion decline failed", err, "serial", tool.SerialID)
		return err
	}

	w.finish(tool.SerialID, model.StateDeclined)
	appLog.Info("suggestion declined", "serial", tool.SerialID)
	w.publish(ctx, Decision{
		ToolSerialID: tool.SerialID,
		Description:  tool.Description,
		State:        model.StateDeclined,
		RiskLevel:    c.Level,
		Date:         predicted,
		DecidedAt:    now,
	})
	return nil
}

// save persists the decision under the save timeout. A timeout is a failure.
func (w *Workflow) save(ctx context.Context, serial string, accepted bool, level model.RiskLevel, date time.Time) error {
	saveCtx, cancel := context.WithTimeout(ctx, w.saveTimeout)
	defer cancel()

	_, err := w.states.Upsert(saveCtx, model.CalendarState{
		ToolSerialID:             serial,
		IsAccepted:               accepted,
		RiskLevel:                level.Code(),
		PredictedCalibrationDate: date,
		UpdatedAt:                w.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("save calendar state for %s: %w", serial, err)
	}
	return nil
}

func (w *Workflow) publish(ctx context.Context, d Decision) {
	if w.notifier == nil {
		return
	}
	if err := w.notifier.Notify(context.WithoutCancel(ctx), d); err != nil {
		appLog.Error("decision notify failed", err, "serial", d.ToolSerialID, "state", d.State)
	}
}

// Reset returns serial to pending and forgets its saved decision. A linked
// calendar event is left alone, so a reset accepted tool still cannot be
// scheduled twice.
func (w *Workflow) Reset(ctx context.Context, serial string) error {
	w.mu.Lock()
	if w.stateLocked(serial) == model.StateInTransition {
		w.mu.Unlock()
		return fmt.Errorf("tool %s: %w", serial, ErrInTransition)
	}
	delete(w.status, serial)
	w.mu.Unlock()

	if err := w.states.Delete(ctx, serial); err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("reset %s: %w", serial, err)
	}
	appLog.Info("suggestion reset", "serial", serial)
	return nil
}

// Restore rebuilds the decision map from the calendar-state store. Accepted
// records count only when their calendar event still exists. Serials with no
// usable record return to pending; tools in transition are left alone.
func (w *Workflow) Restore(ctx context.Context) (int, error) {
	states, err := w.states.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("restore suggestions: %w", err)
	}

	restored := make(map[string]model.SuggestionState, len(states))
	for _, st := range states {
		s, err := w.decided(ctx, st)
		if err != nil {
			return 0, fmt.Errorf("restore suggestions: %w", err)
		}
		if s != model.StatePending {
			restored[st.ToolSerialID] = s
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for serial, st := range w.status {
		if st == model.StateInTransition {
			continue
		}
		if _, ok := restored[serial]; !ok {
			delete(w.status, serial)
		}
	}
	for serial, st := range restored {
		if w.stateLocked(serial) == model.StateInTransition {
			continue
		}
		w.status[serial] = st
	}
	return len(restored), nil
}

// Sync sets the state of one serial from its saved record: pending when there
// is none or when an accepted record has no calendar event.
func (w *Workflow) Sync(ctx context.Context, serial string) (model.SuggestionState, error) {
	next := model.StatePending
	st, err := w.states.Get(ctx, serial)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return "", fmt.Errorf("sync %s: %w", serial, err)
	default:
		if next, err = w.decided(ctx, st); err != nil {
			return "", fmt.Errorf("sync %s: %w", serial, err)
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stateLocked(serial) == model.StateInTransition {
		return "", fmt.Errorf("tool %s: %w", serial, ErrInTransition)
	}
	if next == model.StatePending {
		delete(w.status, serial)
	} else {
		w.status[serial] = next
	}
	return next, nil
}

// decided maps a saved record to the state it implies.
func (w *Workflow) decided(ctx context.Context, st model.CalendarState) (model.SuggestionState, error) {
	if !st.IsAccepted {
		return model.StateDeclined, nil
	}
	_, found, err := w.events.FindByTool(ctx, st.ToolSerialID)
	if err != nil {
		return "", err
	}
	if !found {
		return model.StatePending, nil
	}
	return model.StateAccepted, nil
}

// Suggest builds the suggestion view of one tool.
func (w *Workflow) Suggest(tool model.Tool) model.Suggestion {
	return model.Suggestion{
		Tool:           tool,
		Classification: w.classifier.Classify(tool, w.now()),
		State:          w.State(tool.SerialID),
	}
}

// Pending lists the tools still awaiting a decision, most urgent first:
// Overdue, then Drifting, then the rest; within a level by remaining months
// (unknown last), then by description ignoring case. A serial listed twice
// is considered once.
func (w *Workflow) Pending(tools []model.Tool) []model.Suggestion {
	now := w.now()

	w.mu.Lock()
	out := make([]model.Suggestion, 0, len(tools))
	seen := make(map[string]struct{}, len(tools))
	for _, t := range tools {
		if t.SerialID == "" {
			continue
		}
		if _, dup := seen[t.SerialID]; dup {
			continue
		}
		seen[t.SerialID] = struct{}{}
		st := w.stateLocked(t.SerialID)
		if st.Terminal() {
			continue
		}
		out = append(out, model.Suggestion{Tool: t, State: st})
	}
	w.mu.Unlock()

	for i := range out {
		out[i].Classification = w.classifier.Classify(out[i].Tool, now)
	}
	slices.SortStableFunc(out, compareSuggestions)
	return out
}

func compareSuggestions(a, b model.Suggestion) int {
	if c := cmp.Compare(risk.Priority(a.Classification.Level), risk.Priority(b.Classification.Level)); c != 0 {
		return c
	}
	ra, rb := a.Classification.RemainingMonths, b.Classification.RemainingMonths
	switch {
	case ra != nil && rb == nil:
		return -1
	case ra == nil && rb != nil:
		return 1
	case ra != nil && rb != nil && *ra != *rb:
		return cmp.Compare(*ra, *rb)
	}
	return cmp.Compare(strings.ToLower(a.Tool.Description), strings.ToLower(b.Tool.Description))
}
