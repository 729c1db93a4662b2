package gpio

import (
	"fmt"
	"sync"
)

// Op names a recorded driver call.
type Op string

// Recorded operations.
const (
	OpOutput Op = "output"
	OpInput  Op = "input"
	OpWrite  Op = "write"
	OpRead   Op = "read"
	OpClose  Op = "close"
)

// Call is one recorded driver call.
type Call struct {
	Op    Op
	Pin   int
	Level Level
}

// Memory is a Driver without hardware. Levels written to outputs are kept
// and inputs read whatever SetInput last stored.
type Memory struct {
	mu       sync.Mutex
	closed   bool
	levels   map[int]Level
	shutdown map[int]Level
	inputs   map[int]bool
	calls    []Call
}

var _ Driver = (*Memory)(nil)

// NewMemory creates an empty in-memory driver.
func NewMemory() *Memory {
	return &Memory{
		levels:   make(map[int]Level),
		shutdown: make(map[int]Level),
		inputs:   make(map[int]bool),
	}
}

// Output provisions pin n as an output.
func (m *Memory) Output(n int, shutdown Level) (Pin, error) {
	if err := checkPin(n); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	if _, used := m.shutdown[n]; used || m.inputs[n] {
		return nil, fmt.Errorf("%w: %d", ErrPinInUse, n)
	}
	m.shutdown[n] = shutdown
	m.calls = append(m.calls, Call{Op: OpOutput, Pin: n, Level: shutdown})
	return &memoryPin{m: m, n: n, output: true}, nil
}

// Input provisions pin n as an input.
func (m *Memory) Input(n int) (Pin, error) {
	if err := checkPin(n); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	if _, used := m.shutdown[n]; used || m.inputs[n] {
		return nil, fmt.Errorf("%w: %d", ErrPinInUse, n)
	}
	m.inputs[n] = true
	m.calls = append(m.calls, Call{Op: OpInput, Pin: n})
	return &memoryPin{m: m, n: n}, nil
}

// Close drives outputs to their shutdown levels.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	for n, l := range m.shutdown {
		m.levels[n] = l
	}
	m.calls = append(m.calls, Call{Op: OpClose})
	return nil
}

// SetInput sets the level an input pin reads.
func (m *Memory) SetInput(n int, l Level) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.levels[n] = l
}

// Level returns the current level of pin n.
func (m *Memory) Level(n int) Level {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.levels[n]
}

// Calls returns a copy of the recorded calls.
func (m *Memory) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallsFor returns the recorded calls of op.
func (m *Memory) CallsFor(op Op) []Call {
	var out []Call
	for _, c := range m.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

type memoryPin struct {
	m      *Memory
	n      int
	output bool
}

func (p *memoryPin) Number() int { return p.n }

func (p *memoryPin) Read() (Level, error) {
	p.m.mu.Lock()
	defer p.m.mu.Unlock()
	if p.m.closed {
		return Low, ErrClosed
	}
	l := p.m.levels[p.n]
	p.m.calls = append(p.m.calls, Call{Op: OpRead, Pin: p.n, Level: l})
	return l, nil
}

func (p *memoryPin) Write(l Level) error {
	if !p.output {
		return fmt.Errorf("gpio: pin %d is an input", p.n)
	}
	p.m.mu.Lock()
	defer p.m.mu.Unlock()
	if p.m.closed {
		return ErrClosed
	}
	p.m.levels[p.n] = l
	p.m.calls = append(p.m.calls, Call{Op: OpWrite, Pin: p.n, Level: l})
	return nil
}
