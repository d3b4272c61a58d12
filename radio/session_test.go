package radio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/b0bbywan/go-myra/guard"
	"github.com/b0bbywan/go-myra/playercmd"
	"github.com/b0bbywan/go-myra/stations"
	"github.com/b0bbywan/go-myra/supervisor"
)

// TestHelperProcess is not a real test: it is re-executed as a controller
// playing a stream with the real guard and supervisor.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	c := &Controller{
		Stations: func() (*stations.Directory, error) {
			return stations.Load(strings.NewReader(""))
		},
		Builder: playercmd.NewBuilder(os.Getenv("RADIO_PLAYER"), playercmd.DefaultCacheSize),
		Guard:   guard.NewFileGuard(os.Getenv("RADIO_LOCK")),
		Runner:  supervisor.New(0, false, nil),
		Out:     os.Stdout,
	}
	if _, err := c.Play(context.Background(), "http://stream.example/radio1.mp3"); err != nil {
		fmt.Println("error", err)
		os.Exit(2)
	}
	os.Exit(0)
}

func TestPlayerDiesWithController(t *testing.T) {
	dir := t.TempDir()
	lockFile := filepath.Join(dir, "radio.lock")
	pidFile := filepath.Join(dir, "player.pid")
	player := filepath.Join(dir, "fakeplayer")
	script := fmt.Sprintf("#!/bin/sh\necho $$ > %[1]s.tmp\nmv %[1]s.tmp %[1]s\nexec sleep 30\n", pidFile)
	if err := os.WriteFile(player, []byte(script), 0755); err != nil {
		t.Fatalf("write player: %v", err)
	}

	cmd := exec.Command(os.Args[0], "-test.run=^TestHelperProcess$")
	cmd.Env = append(os.Environ(),
		"GO_WANT_HELPER_PROCESS=1",
		"RADIO_LOCK="+lockFile,
		"RADIO_PLAYER="+player,
	)
	if err := cmd.Start(); err != nil {
		t.Fatalf("start controller: %v", err)
	}
	t.Cleanup(func() {
		cmd.Process.Kill()
		cmd.Wait()
	})

	pid := waitForPid(t, pidFile)
	t.Cleanup(func() { syscall.Kill(pid, syscall.SIGKILL) })

	g := guard.NewFileGuard(lockFile)
	if _, err := g.Acquire(); !errors.Is(err, guard.ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning while the controller plays, got %v", err)
	}

	if err := cmd.Process.Signal(syscall.SIGKILL); err != nil {
		t.Fatalf("kill controller: %v", err)
	}
	cmd.Wait()

	deadline := time.Now().Add(5 * time.Second)
	for !processGone(pid) {
		if time.Now().After(deadline) {
			t.Fatalf("player %d still running after its controller was killed", pid)
		}
		time.Sleep(20 * time.Millisecond)
	}

	lock, err := g.Acquire()
	if err != nil {
		t.Fatalf("guard not released after the controller was killed: %v", err)
	}
	lock.Release()
}

func waitForPid(t *testing.T, path string) int {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		data, err := os.ReadFile(path)
		if err == nil {
			pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
			if err != nil {
				t.Fatalf("bad pid file %q: %v", data, err)
			}
			return pid
		}
		if time.Now().After(deadline) {
			t.Fatalf("player was not started: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

// processGone reports whether pid has exited. A zombie waiting for its
// new parent to reap it counts as gone.
func processGone(pid int) bool {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return true
	}
	stat := string(data)
	i := strings.LastIndexByte(stat, ')')
	if i < 0 {
		return false
	}
	fields := strings.Fields(stat[i+1:])
	return len(fields) > 0 && (fields[0] == "Z" || fields[0] == "X")
}
