// Package filtertest provides a deterministic transform engine for tests.
package filtertest

import (
	"fmt"
	"sync"
)

// Engine renders each transform as text, so composed results can be
// compared literally: Transform("blur", "B", 5) yields "blur(5)[B]".
type Engine struct {
	mu     sync.Mutex
	fail   map[string]error
	panics map[string]bool
	calls  []Call

	// Gate, when set, blocks every Transform until a value is received.
	Gate chan struct{}
	// Started, when set, receives the filter name as each Transform begins.
	Started chan string
}

type Call struct {
	Name  string
	Input string
	Param float64
}

func NewEngine() *Engine {
	return &Engine{
		fail:   make(map[string]error),
		panics: make(map[string]bool),
	}
}

// Render returns what Transform produces for the given arguments.
func Render(name string, input []byte, param float64) []byte {
	return []byte(fmt.Sprintf("%s(%g)[%s]", name, param, input))
}

func (e *Engine) FailWith(name string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fail[name] = err
}

func (e *Engine) PanicOn(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.panics[name] = true
}

func (e *Engine) Calls() []Call {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Call, len(e.calls))
	copy(out, e.calls)
	return out
}

func (e *Engine) Transform(name string, input []byte, param float64) ([]byte, error) {
	e.mu.Lock()
	e.calls = append(e.calls, Call{Name: name, Input: string(input), Param: param})
	err := e.fail[name]
	shouldPanic := e.panics[name]
	e.mu.Unlock()

	if e.Started != nil {
		e.Started <- name
	}
	if e.Gate != nil {
		<-e.Gate
	}

	if shouldPanic {
		panic("engine exploded")
	}
	if err != nil {
		return nil, err
	}
	return Render(name, input, param), nil
}

func (e *Engine) ContentType() string { return "image/png" }
