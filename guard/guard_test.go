package guard

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"
)

// TestHelperProcess is not a real test: it is re-executed as an
// independent process that competes for the guard.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	g, err := New(os.Getenv("GUARD_METHOD"), os.Getenv("GUARD_ADDRESS"))
	if err != nil {
		fmt.Println("error", err)
		os.Exit(2)
	}
	lock, err := g.Acquire()
	switch {
	case errors.Is(err, ErrAlreadyRunning):
		fmt.Println("busy")
		os.Exit(0)
	case err != nil:
		fmt.Println("error", err)
		os.Exit(2)
	}
	fmt.Println("ready")
	time.Sleep(5 * time.Second)
	lock.Release()
	os.Exit(0)
}

type guardCase struct {
	method  string
	address string
}

func guardCases(t *testing.T) []guardCase {
	t.Helper()
	return []guardCase{
		{MethodFlock, filepath.Join(t.TempDir(), "radio.lock")},
		{MethodTCP, freeTCPAddress(t)},
		{MethodAbstract, fmt.Sprintf("@myra-test-%d-%d", os.Getpid(), time.Now().UnixNano())},
	}
}

func freeTCPAddress(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	return ln.Addr().String()
}

type helper struct {
	cmd   *exec.Cmd
	lines *bufio.Reader
}

func startHelper(t *testing.T, c guardCase) *helper {
	t.Helper()
	cmd := exec.Command(os.Args[0], "-test.run=^TestHelperProcess$")
	cmd.Env = append(os.Environ(),
		"GO_WANT_HELPER_PROCESS=1",
		"GUARD_METHOD="+c.method,
		"GUARD_ADDRESS="+c.address,
	)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		t.Fatalf("stdout pipe: %v", err)
	}
	if err := cmd.Start(); err != nil {
		t.Fatalf("start helper: %v", err)
	}
	h := &helper{cmd: cmd, lines: bufio.NewReader(stdout)}
	t.Cleanup(func() {
		h.cmd.Process.Kill()
		h.cmd.Wait()
	})
	return h
}

func (h *helper) readLine(t *testing.T) string {
	t.Helper()
	line, err := h.lines.ReadString('\n')
	if err != nil && err != io.EOF {
		t.Fatalf("read helper output: %v", err)
	}
	return strings.TrimSpace(line)
}

func TestAcquireRelease(t *testing.T) {
	for _, c := range guardCases(t) {
		t.Run(c.method, func(t *testing.T) {
			g, err := New(c.method, c.address)
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}

			lock, err := g.Acquire()
			if err != nil {
				t.Fatalf("Acquire failed: %v", err)
			}
			if _, err := g.Acquire(); !errors.Is(err, ErrAlreadyRunning) {
				t.Fatalf("expected ErrAlreadyRunning while held, got %v", err)
			}

			if err := lock.Release(); err != nil {
				t.Fatalf("Release failed: %v", err)
			}
			if err := lock.Release(); err != nil {
				t.Errorf("second Release failed: %v", err)
			}

			again, err := g.Acquire()
			if err != nil {
				t.Fatalf("Acquire after release failed: %v", err)
			}
			again.Release()
		})
	}
}

func TestConcurrentProcessesExactlyOneWins(t *testing.T) {
	for _, c := range guardCases(t) {
		t.Run(c.method, func(t *testing.T) {
			const contenders = 4
			results := make([]string, contenders)
			var wg sync.WaitGroup
			helpers := make([]*helper, contenders)
			for i := range helpers {
				helpers[i] = startHelper(t, c)
			}
			for i, h := range helpers {
				wg.Add(1)
				go func(i int, h *helper) {
					defer wg.Done()
					line, _ := h.lines.ReadString('\n')
					results[i] = strings.TrimSpace(line)
				}(i, h)
			}
			wg.Wait()

			winners := 0
			for _, r := range results {
				switch r {
				case "ready":
					winners++
				case "busy":
				default:
					t.Errorf("unexpected helper output %q", r)
				}
			}
			if winners != 1 {
				t.Errorf("expected exactly one winner, got %d (%v)", winners, results)
			}
		})
	}
}

func TestReleasedWhenHolderKilled(t *testing.T) {
	for _, c := range guardCases(t) {
		t.Run(c.method, func(t *testing.T) {
			h := startHelper(t, c)
			if line := h.readLine(t); line != "ready" {
				t.Fatalf("helper did not acquire the guard: %q", line)
			}

			g, err := New(c.method, c.address)
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			if _, err := g.Acquire(); !errors.Is(err, ErrAlreadyRunning) {
				t.Fatalf("expected ErrAlreadyRunning while helper holds the guard, got %v", err)
			}

			if err := h.cmd.Process.Signal(syscall.SIGKILL); err != nil {
				t.Fatalf("kill helper: %v", err)
			}
			h.cmd.Wait()

			lock, err := g.Acquire()
			if err != nil {
				t.Fatalf("guard not released after SIGKILL: %v", err)
			}
			lock.Release()
		})
	}
}

func TestNewInvalidMethod(t *testing.T) {
	if _, err := New("pidfile", ""); err == nil {
		t.Error("expected an error for an unknown method")
	}
}

func TestNewDefaults(t *testing.T) {
	g, err := New("", "")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	fg, ok := g.(*FileGuard)
	if !ok {
		t.Fatalf("expected *FileGuard, got %T", g)
	}
	if fg.path != DefaultLockFile() {
		t.Errorf("expected %s, got %s", DefaultLockFile(), fg.path)
	}
}

func TestFileGuardReadOnlyLockFile(t *testing.T) {
	// a lock file left behind by another user is not writable
	path := filepath.Join(t.TempDir(), "radio.lock")
	if err := os.WriteFile(path, nil, 0444); err != nil {
		t.Fatalf("write lock file: %v", err)
	}

	g := NewFileGuard(path)
	lock, err := g.Acquire()
	if err != nil {
		t.Fatalf("Acquire on a read-only lock file failed: %v", err)
	}
	if _, err := g.Acquire(); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning while held, got %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
}

func TestFileGuardCreatesSharedLockFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "radio.lock")

	lock, err := NewFileGuard(path).Acquire()
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer lock.Release()

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("lock file not created: %v", err)
	}
	if mode := info.Mode().Perm(); mode != lockFileMode {
		t.Errorf("expected mode %o so other users can lock it, got %o", lockFileMode, mode)
	}
	if info.Size() != 0 {
		t.Errorf("lock file should stay empty, got %d bytes", info.Size())
	}
}
