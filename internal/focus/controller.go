package focus

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/Avenger11764/duo-learning/internal/clock"
	"github.com/Avenger11764/duo-learning/internal/model"
	"github.com/Avenger11764/duo-learning/internal/profile"
	"github.com/Avenger11764/duo-learning/internal/session"
	"github.com/Avenger11764/duo-learning/internal/store"
	"github.com/Avenger11764/duo-learning/internal/telemetry"
)

type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateFinished State = "finished"
)

var (
	ErrNotRunning     = errors.New("no focus session running")
	ErrAlreadyRunning = errors.New("focus session already running")
	ErrBadDuration    = errors.New("duration must be positive")
)

// CompletionNote is the fixed note attached to sessions logged by the
// countdown.
const CompletionNote = "Completed a Focus Session"

// Controller is the client-local countdown state machine. Its transitions
// are mirrored best-effort into the shared profile's focusStatus field so
// other clients can observe them; the local timer never waits on, or rolls
// back for, those writes.
type Controller struct {
	mu sync.Mutex

	clock     clock.Clock
	profiles  *profile.Repo
	logger    *session.Logger
	telemetry telemetry.Repository
	logOut    *log.Logger

	profileID model.ProfileID
	state     State
	subject   model.Subject
	requested int
	endTime   time.Time
}

type Options struct {
	Clock     clock.Clock
	Profiles  *profile.Repo
	Logger    *session.Logger
	Telemetry telemetry.Repository
	Log       *log.Logger
	ProfileID model.ProfileID
}

func NewController(opts Options) *Controller {
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if opts.Log == nil {
		opts.Log = log.Default()
	}
	return &Controller{
		clock:     opts.Clock,
		profiles:  opts.Profiles,
		logger:    opts.Logger,
		telemetry: opts.Telemetry,
		logOut:    opts.Log,
		profileID: opts.ProfileID,
		state:     StateIdle,
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// publishStatus mirrors the local state into the shared profile. A failed
// write only affects what other clients see; the local state machine has
// already moved on and is never rolled back.
func (c *Controller) publishStatus(ctx context.Context, fs model.FocusStatus) {
	if c.profiles == nil {
		return
	}
	if err := c.profiles.UpdateFields(ctx, c.profileID, store.Fields{"focusStatus": fs}); err != nil {
		c.logOut.Printf("focus status write not acknowledged: %v", err)
	}
}

func (c *Controller) record(t telemetry.EventType, md telemetry.EventMetadata) {
	if c.telemetry != nil {
		_ = c.telemetry.RecordEvent(t, md)
	}
}

// Start begins a countdown for the chosen subject and publishes the
// focusing status for other clients.
func (c *Controller) Start(ctx context.Context, subject model.Subject, minutes int) error {
	if minutes <= 0 {
		return ErrBadDuration
	}

	c.mu.Lock()
	if c.state == StateRunning {
		c.mu.Unlock()
		return ErrAlreadyRunning
	}
	now := c.clock.Now()
	c.state = StateRunning
	c.subject = subject
	c.requested = minutes
	c.endTime = now.Add(time.Duration(minutes) * time.Minute)
	end := c.endTime.UnixMilli()
	c.mu.Unlock()

	c.publishStatus(ctx, model.FocusStatus{
		IsActive: true,
		EndTime:  &end,
		Subject:  subject.Name,
	})
	c.record(telemetry.EventFocusStarted, telemetry.EventMetadata{
		"profile": string(c.profileID), "subject": subject.Name, "minutes": minutes,
	})
	return nil
}

// Stop cancels a running countdown without logging a session.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateRunning {
		c.mu.Unlock()
		return ErrNotRunning
	}
	c.state = StateIdle
	c.mu.Unlock()

	c.publishStatus(ctx, model.FocusStatus{IsActive: false})
	c.record(telemetry.EventFocusStopped, telemetry.EventMetadata{
		"profile": string(c.profileID),
	})
	return nil
}

// Tick advances the countdown against the injected clock. When the
// countdown reaches zero it transitions to Finished and logs the full
// requested duration. The remaining duration is returned while running.
func (c *Controller) Tick(ctx context.Context) (time.Duration, State, error) {
	c.mu.Lock()
	if c.state != StateRunning {
		st := c.state
		c.mu.Unlock()
		return 0, st, nil
	}
	remaining := c.endTime.Sub(c.clock.Now())
	if remaining > 0 {
		c.mu.Unlock()
		return remaining, StateRunning, nil
	}
	c.state = StateFinished
	subject := c.subject
	minutes := c.requested
	c.mu.Unlock()

	return 0, StateFinished, c.complete(ctx, subject, minutes)
}

// FinishEarly ends a running countdown now, logging the minutes actually
// spent: the requested duration minus the remaining time rounded up to
// whole minutes.
func (c *Controller) FinishEarly(ctx context.Context) (int, error) {
	c.mu.Lock()
	if c.state != StateRunning {
		c.mu.Unlock()
		return 0, ErrNotRunning
	}
	remaining := c.endTime.Sub(c.clock.Now())
	if remaining < 0 {
		remaining = 0
	}
	minutes := c.requested - int((remaining+time.Minute-1)/time.Minute)
	if minutes < 0 {
		minutes = 0
	}
	c.state = StateFinished
	subject := c.subject
	c.mu.Unlock()

	return minutes, c.complete(ctx, subject, minutes)
}

func (c *Controller) complete(ctx context.Context, subject model.Subject, minutes int) error {
	c.publishStatus(ctx, model.FocusStatus{IsActive: false})
	c.record(telemetry.EventFocusFinished, telemetry.EventMetadata{
		"profile": string(c.profileID), "subject": subject.Name, "minutes": minutes,
	})

	if c.logger == nil || minutes <= 0 {
		return nil
	}
	// The status write above and this log write are independent; either
	// may fail without rolling back the other.
	if _, err := c.logger.Log(ctx, c.profileID, subject.ID, minutes, CompletionNote); err != nil {
		return err
	}
	return nil
}

// Effective applies tolerant reading to a persisted status: an endTime in
// the past means the writer abandoned the session, so readers treat it as
// idle even though the stale flag is still stored.
func Effective(fs model.FocusStatus, now time.Time) model.FocusStatus {
	if !fs.IsActive {
		return model.FocusStatus{IsActive: false}
	}
	if fs.EndTime == nil || *fs.EndTime <= now.UnixMilli() {
		return model.FocusStatus{IsActive: false}
	}
	return fs
}
