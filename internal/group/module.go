package group

import (
	"context"
	"fmt"
	"time"

	"github.com/winstonhome/winston/internal/channel"
	"github.com/winstonhome/winston/internal/module"
)

// Type is the module key of group channels.
const Type = "group"

// Logger defines the logging interface used by the group module.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Dispatcher executes an action path. *rpc.Router implements it.
type Dispatcher interface {
	Execute(ctx context.Context, action string) error
}

// Recorder persists executions.
type Recorder interface {
	CreateExecution(ctx context.Context, exec *Execution) error
}

// Notifier is told about every trigger firing.
type Notifier interface {
	TriggerFired(ctx context.Context, exec Execution)
}

// Notifiers fans one firing out to several notifiers in order.
type Notifiers []Notifier

// TriggerFired calls every notifier.
func (ns Notifiers) TriggerFired(ctx context.Context, exec Execution) {
	for _, n := range ns {
		n.TriggerFired(ctx, exec)
	}
}

// Module is the "group" module. The dispatcher is wired after the router
// exists, since the router in turn resolves this module.
type Module struct {
	module.Base
	triggers   map[string][]Trigger
	dispatcher Dispatcher
	recorder   Recorder
	notifier   Notifier
	logger     Logger
}

var _ module.Instance = (*Module)(nil)

// New creates an uninitialized group module.
func New() *Module {
	return &Module{
		Base:     module.NewBase(Type),
		triggers: make(map[string][]Trigger),
		logger:   noopLogger{},
	}
}

// SetDispatcher sets the action dispatcher.
func (m *Module) SetDispatcher(d Dispatcher) { m.dispatcher = d }

// SetRecorder sets the execution recorder.
func (m *Module) SetRecorder(r Recorder) { m.recorder = r }

// SetNotifier sets the execution notifier.
func (m *Module) SetNotifier(n Notifier) { m.notifier = n }

// SetLogger sets the logger.
func (m *Module) SetLogger(l Logger) { m.logger = l }

// Initialize builds one channel per group from its "trigger" parameters.
func (m *Module) Initialize(_ context.Context, channels []module.ChannelParams) error {
	for _, cp := range channels {
		defs := cp.Params.All("trigger")
		if len(defs) == 0 {
			return fmt.Errorf("%w: group %q has no triggers", module.ErrMissingParameter, cp.ID)
		}
		triggers := make([]Trigger, 0, len(defs))
		for _, def := range defs {
			t, err := ParseTrigger(def)
			if err != nil {
				return fmt.Errorf("group %q: %w", cp.ID, err)
			}
			triggers = append(triggers, t)
		}
		if err := m.AddGroup(cp.ID, triggers); err != nil {
			return err
		}
	}
	return nil
}

// AddGroup registers a group channel with its triggers.
func (m *Module) AddGroup(id string, triggers []Trigger) error {
	ch := channel.New(id, channel.TypeGroup,
		channel.String("input", channel.WriteOnly, nil,
			func(ctx context.Context, v string) error { return m.Fire(ctx, id, v) },
		),
	)
	if err := m.Add(ch); err != nil {
		return err
	}
	m.triggers[id] = triggers
	return nil
}

// Triggers returns the triggers of a group.
func (m *Module) Triggers(id string) []Trigger {
	return m.triggers[id]
}

// Fire runs every trigger of group id that accepts value, in declaration
// order. A failed action stops only its own trigger; the first failure is
// returned once every matching trigger has run. A value no trigger accepts
// is a no-op.
func (m *Module) Fire(ctx context.Context, id, value string) error {
	triggers, ok := m.triggers[id]
	if !ok {
		return fmt.Errorf("%w: group %q", channel.ErrNotFound, id)
	}

	var firstErr error
	for i, t := range triggers {
		if !t.Matches(value) {
			continue
		}
		if err := m.run(ctx, id, value, i, t); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m *Module) run(ctx context.Context, id, value string, idx int, t Trigger) error {
	exec := Execution{
		ID:           GenerateID(),
		Group:        id,
		Input:        value,
		TriggerIndex: idx,
		ActionsTotal: len(t.Actions),
		StartedAt:    time.Now().UTC(),
	}

	var runErr error
	for _, action := range t.Actions {
		if err := m.execute(ctx, action); err != nil {
			runErr = &TriggerError{Group: id, Action: action, Err: err}
			failed := action
			exec.FailedAction = &failed
			break
		}
		exec.ActionsCompleted++
	}

	exec.CompletedAt = time.Now().UTC()
	exec.DurationMS = int(exec.CompletedAt.Sub(exec.StartedAt).Milliseconds())
	exec.Status = StatusCompleted
	if runErr != nil {
		exec.Status = StatusFailed
		msg := runErr.Error()
		exec.Error = &msg
	}

	m.logger.Info("group trigger fired",
		"group", id,
		"input", value,
		"trigger", idx,
		"status", exec.Status,
		"completed", exec.ActionsCompleted,
		"total", exec.ActionsTotal,
	)

	if m.recorder != nil {
		if err := m.recorder.CreateExecution(ctx, &exec); err != nil {
			m.logger.Error("failed to record trigger execution", "group", id, "error", err)
		}
	}
	if m.notifier != nil {
		m.notifier.TriggerFired(ctx, exec)
	}

	return runErr
}

func (m *Module) execute(ctx context.Context, action string) error {
	if m.dispatcher == nil {
		return ErrNoDispatcher
	}
	return m.dispatcher.Execute(ctx, action)
}
