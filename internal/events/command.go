package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/winstonhome/winston/internal/channel"
	"github.com/winstonhome/winston/internal/infrastructure/mqtt"
	"github.com/winstonhome/winston/internal/rpc"
)

// Command pool defaults.
const (
	DefaultCommandWorkers = 2
	DefaultCommandQueue   = 32
)

// ErrCommandQueueFull is reported when a command arrives while every
// worker is busy and the queue is full.
var ErrCommandQueueFull = errors.New("events: command queue full")

// Handler executes an RPC path. *rpc.Router implements it.
type Handler interface {
	Handle(ctx context.Context, rawPath string) rpc.Response
}

// Command is a JSON command payload. A plain-text payload is treated as
// the path alone.
type Command struct {
	ID   string `json:"id,omitempty"`
	Path string `json:"path"`
}

// CommandResult is published after every command.
type CommandResult struct {
	ID     string `json:"id"`
	Path   string `json:"path"`
	Status int    `json:"status"`
	Body   string `json:"body"`
	Kind   string `json:"kind,omitempty"`
}

// CommandListener runs RPC paths received over MQTT on a fixed set of
// workers, so the MQTT client's delivery goroutine never waits on a device.
type CommandListener struct {
	handler Handler
	pub     MQTTPublisher
	workers int
	jobs    chan Command
	logger  Logger
}

// NewCommandListener creates a listener that publishes results with pub.
// Commands are queued until Run executes them.
func NewCommandListener(h Handler, pub MQTTPublisher, workers, queueSize int) *CommandListener {
	if workers <= 0 {
		workers = DefaultCommandWorkers
	}
	if queueSize <= 0 {
		queueSize = DefaultCommandQueue
	}
	return &CommandListener{
		handler: h,
		pub:     pub,
		workers: workers,
		jobs:    make(chan Command, queueSize),
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger.
func (l *CommandListener) SetLogger(logger Logger) { l.logger = logger }

// ParseCommand decodes a command payload.
func ParseCommand(payload []byte) (Command, error) {
	text := strings.TrimSpace(string(payload))
	if text == "" {
		return Command{}, fmt.Errorf("%w: empty command", channel.ErrMalformed)
	}

	var cmd Command
	if strings.HasPrefix(text, "{") {
		if err := json.Unmarshal([]byte(text), &cmd); err != nil {
			return Command{}, fmt.Errorf("%w: %w", channel.ErrMalformed, err)
		}
	} else {
		cmd.Path = text
	}
	if cmd.Path == "" {
		return Command{}, fmt.Errorf("%w: command path required", channel.ErrMalformed)
	}
	if cmd.ID == "" {
		cmd.ID = uuid.New().String()
	}
	return cmd, nil
}

// HandleMessage is an mqtt.MessageHandler for the command topic. It only
// parses and queues; malformed and rejected commands are answered at once.
func (l *CommandListener) HandleMessage(_ string, payload []byte) error {
	cmd, err := ParseCommand(payload)
	if err != nil {
		kind := channel.Classify(err)
		return l.publish(CommandResult{
			ID:     uuid.New().String(),
			Status: rpc.StatusFor(kind),
			Body:   err.Error(),
			Kind:   kind.String(),
		})
	}

	select {
	case l.jobs <- cmd:
		return nil
	default:
		l.logger.Warn("mqtt command rejected, queue full", "id", cmd.ID, "path", cmd.Path, "capacity", cap(l.jobs))
		return l.publish(CommandResult{
			ID:     cmd.ID,
			Path:   cmd.Path,
			Status: http.StatusTooManyRequests,
			Body:   ErrCommandQueueFull.Error(),
		})
	}
}

// Run executes queued commands until ctx is cancelled, then finishes
// whatever is still queued and returns. A command that has started is
// never cancelled; only device I/O timeouts bound it.
func (l *CommandListener) Run(ctx context.Context) {
	execCtx := context.WithoutCancel(ctx)

	var wg sync.WaitGroup
	for i := 0; i < l.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.work(ctx, execCtx)
		}()
	}
	wg.Wait()
}

func (l *CommandListener) work(ctx, execCtx context.Context) {
	for {
		select {
		case cmd := <-l.jobs:
			l.execute(execCtx, cmd)
		case <-ctx.Done():
			for {
				select {
				case cmd := <-l.jobs:
					l.execute(execCtx, cmd)
				default:
					return
				}
			}
		}
	}
}

func (l *CommandListener) execute(ctx context.Context, cmd Command) {
	resp := l.handler.Handle(ctx, cmd.Path)
	result := CommandResult{ID: cmd.ID, Path: cmd.Path, Status: resp.Status, Body: resp.Body}
	if resp.Kind != channel.KindNone {
		result.Kind = resp.Kind.String()
	}
	l.logger.Debug("mqtt command handled", "id", cmd.ID, "path", cmd.Path, "status", resp.Status)
	if err := l.publish(result); err != nil {
		l.logger.Error("mqtt command result not published", "id", cmd.ID, "error", err)
	}
}

func (l *CommandListener) publish(result CommandResult) error {
	if err := l.pub.PublishJSON(mqtt.Topics{}.CommandResult(), result, false); err != nil {
		return fmt.Errorf("publishing command result: %w", err)
	}
	return nil
}
