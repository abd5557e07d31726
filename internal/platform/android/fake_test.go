package android

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/icarus-itcs/simyard/internal/execx"
)

// fakeRunner replays scripted responses for exact command lines. Scripting
// the same command more than once builds a queue whose last entry repeats,
// which is how poll loops are driven through state changes.
type fakeRunner struct {
	mu       sync.Mutex
	scripts  map[string][]scripted
	calls    []string
	spawned  []string
	spawnErr error
}

type scripted struct {
	out string
	err error
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{scripts: map[string][]scripted{}}
}

func (f *fakeRunner) on(cmd, out string) {
	f.scripts[cmd] = append(f.scripts[cmd], scripted{out: out})
}

func (f *fakeRunner) onErr(cmd string, err error) {
	f.scripts[cmd] = append(f.scripts[cmd], scripted{err: err})
}

func (f *fakeRunner) next(cmd string) (scripted, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, cmd)
	queue, ok := f.scripts[cmd]
	if !ok || len(queue) == 0 {
		return scripted{}, fmt.Errorf("unscripted command: %s", cmd)
	}
	head := queue[0]
	if len(queue) > 1 {
		f.scripts[cmd] = queue[1:]
	}
	return head, nil
}

func (f *fakeRunner) Output(_ context.Context, name string, args ...string) (string, error) {
	s, err := f.next(join(name, args))
	if err != nil {
		return "", err
	}
	if s.err != nil {
		return "", s.err
	}
	return strings.TrimSpace(s.out), nil
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) (execx.Result, error) {
	s, err := f.next(join(name, args))
	if err != nil {
		return execx.Result{}, err
	}
	if s.err != nil {
		return execx.Result{}, s.err
	}
	return execx.Result{Stdout: s.out}, nil
}

func (f *fakeRunner) Spawn(name string, args ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.spawnErr != nil {
		return f.spawnErr
	}
	f.spawned = append(f.spawned, join(name, args))
	return nil
}

func (f *fakeRunner) count(cmd string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, c := range f.calls {
		if c == cmd {
			n++
		}
	}
	return n
}

func join(name string, args []string) string {
	return strings.Join(append([]string{name}, args...), " ")
}
