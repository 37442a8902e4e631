package cli

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/kittynode/kittynode/internal/config"
	"github.com/kittynode/kittynode/internal/lifecycle"
	"github.com/kittynode/kittynode/internal/model"
	"github.com/kittynode/kittynode/internal/paths"
)

// stubRuntime is an in-memory lifecycle.Runtime recording calls as
// "<Method> <argument>".
type stubRuntime struct {
	mu         sync.Mutex
	calls      []string
	errs       map[string]error
	containers map[string]string
	logs       map[string][]string
	managed    []model.ContainerInfo
	lastTail   int
}

func newStubRuntime() *stubRuntime {
	return &stubRuntime{
		errs:       make(map[string]error),
		containers: make(map[string]string),
		logs:       make(map[string][]string),
	}
}

func (s *stubRuntime) record(method, arg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, method+" "+arg)
	return s.errs[method]
}

// Calls returns the recorded calls of one method.
func (s *stubRuntime) Calls(method string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, c := range s.calls {
		if strings.HasPrefix(c, method+" ") {
			out = append(out, c)
		}
	}
	return out
}

func (s *stubRuntime) CreateOrRecreateNetwork(_ context.Context, name string) error {
	return s.record("CreateOrRecreateNetwork", name)
}

func (s *stubRuntime) RemoveNetwork(_ context.Context, name string) error {
	return s.record("RemoveNetwork", name)
}

func (s *stubRuntime) PullAndStartContainer(_ context.Context, _ string, c model.Container, _ string) error {
	if err := s.record("PullAndStartContainer", c.Name); err != nil {
		return err
	}
	s.containers[c.Name] = "running"
	return nil
}

func (s *stubRuntime) FindContainers(_ context.Context, name string) ([]model.ContainerInfo, error) {
	if err := s.record("FindContainers", name); err != nil {
		return nil, err
	}
	if state, ok := s.containers[name]; ok {
		return []model.ContainerInfo{{ID: "id-" + name, Name: name, State: state}}, nil
	}
	return nil, nil
}

func (s *stubRuntime) ListManagedContainers(context.Context) ([]model.ContainerInfo, error) {
	if err := s.record("ListManagedContainers", ""); err != nil {
		return nil, err
	}
	return s.managed, nil
}

func (s *stubRuntime) RemoveContainer(_ context.Context, name string) error {
	if err := s.record("RemoveContainer", name); err != nil {
		return err
	}
	delete(s.containers, name)
	return nil
}

func (s *stubRuntime) ContainerLogs(_ context.Context, name string, tail int) ([]string, error) {
	if err := s.record("ContainerLogs", name); err != nil {
		return nil, err
	}
	s.lastTail = tail
	lines, ok := s.logs[name]
	if !ok {
		return nil, model.NotFoundError("container", name)
	}
	return lines, nil
}

func (s *stubRuntime) RemoveImage(_ context.Context, ref string) error {
	return s.record("RemoveImage", ref)
}

func (s *stubRuntime) RemoveVolume(_ context.Context, name string) error {
	return s.record("RemoveVolume", name)
}

// withHome points the data directory at a fresh temporary directory and
// returns it.
func withHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv(paths.HomeEnv, home)
	t.Setenv(config.EnvDockerHost, "")
	t.Setenv(config.EnvLogLevel, "")
	t.Setenv(config.EnvMetricsFile, "")
	return home
}

// cliResult holds the captured output of one command run.
type cliResult struct {
	stdout string
	stderr string
	err    error
}

// runCLI executes the root command with args against rt. A nil rt makes
// every runtime connection fail as if the daemon were down.
func runCLI(t *testing.T, rt lifecycle.Runtime, stdin string, args ...string) cliResult {
	t.Helper()

	prevFactory := runtimeFactory
	runtimeFactory = func(context.Context, *session) (lifecycle.Runtime, func(), error) {
		if rt == nil {
			return nil, nil, model.NewError(model.KindRuntimeUnavailable, "ping Docker daemon", "", context.DeadlineExceeded)
		}
		return rt, func() {}, nil
	}
	t.Cleanup(func() {
		runtimeFactory = prevFactory
		current = nil
	})

	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	err := cmd.ExecuteContext(context.Background())
	endSession()

	return cliResult{stdout: stdout.String(), stderr: stderr.String(), err: err}
}
