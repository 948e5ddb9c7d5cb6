package stream

import (
	"context"
	"fmt"
	"os/exec"
	"sync"
	"time"
)

// Streamer launches the external MJPEG server (mjpg_streamer or similar) once.
// It does not supervise the process: if the server dies the stream read fails.
type Streamer struct {
	command string
	warmup  time.Duration

	mu  sync.Mutex
	cmd *exec.Cmd
}

func NewStreamer(command string, warmup time.Duration) *Streamer {
	return &Streamer{command: command, warmup: warmup}
}

// Start runs the command through the shell and waits for the warmup period.
// An empty command is a no-op.
func (s *Streamer) Start(ctx context.Context) error {
	if s.command == "" {
		return nil
	}

	s.mu.Lock()
	if s.cmd != nil {
		s.mu.Unlock()
		return fmt.Errorf("streamer already started")
	}
	cmd := exec.CommandContext(ctx, "sh", "-c", s.command)
	if err := cmd.Start(); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("start streamer: %w", err)
	}
	s.cmd = cmd
	s.mu.Unlock()

	// reap the process so it does not linger as a zombie
	go cmd.Wait()

	select {
	case <-time.After(s.warmup):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop kills the streamer if it was started.
func (s *Streamer) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd == nil || s.cmd.Process == nil {
		return nil
	}
	if err := s.cmd.Process.Kill(); err != nil {
		return fmt.Errorf("failed to kill streamer: %w", err)
	}
	s.cmd = nil
	return nil
}

// Pid returns the streamer process id, or 0 when not running.
func (s *Streamer) Pid() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd == nil || s.cmd.Process == nil {
		return 0
	}
	return s.cmd.Process.Pid
}
