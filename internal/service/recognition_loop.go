package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"platewatch/internal/config"
	"platewatch/internal/logger"
	"platewatch/internal/model"
	"platewatch/internal/service/matcher"
	"platewatch/internal/service/recognizer"
	"platewatch/internal/service/report"
	"platewatch/internal/service/signal"
)

// FrameSource is the consumer side of the frame store.
type FrameSource interface {
	Get() (model.Frame, bool)
}

// ChangeDetector tells whether a frame differs enough from the previous one
// to be worth another recognition pass.
type ChangeDetector interface {
	Changed(frame []byte) (bool, error)
}

const (
	minFailureBackoff = 100 * time.Millisecond
	maxFailureBackoff = 5 * time.Second
)

// LoopStats counts what the loop has done since it started.
type LoopStats struct {
	Iterations   uint64 `json:"iterations"`
	EmptyPolls   uint64 `json:"empty_polls"`
	OracleErrors uint64 `json:"oracle_errors"`
	Reused       uint64 `json:"reused"`
}

// RecognitionLoop polls the latest frame, asks the recognizer for candidates,
// matches them against the target and reports one decision per iteration.
type RecognitionLoop struct {
	frames     FrameSource
	recognizer recognizer.Recognizer
	matcher    *matcher.Matcher
	reporter   report.Reporter
	signal     *signal.Controller
	logger     *logger.Logger

	startupDelay time.Duration
	idleInterval time.Duration

	detector       ChangeDetector
	lastCandidates []string
	haveLast       bool

	mu    sync.RWMutex
	stats LoopStats
}

func NewRecognitionLoop(frames FrameSource, rec recognizer.Recognizer, m *matcher.Matcher, reporter report.Reporter, sig *signal.Controller, config *config.Config, logger *logger.Logger) *RecognitionLoop {
	if sig == nil {
		sig = signal.NewController(signal.Nop{}, 0, logger)
	}
	return &RecognitionLoop{
		frames:       frames,
		recognizer:   recognizer.WithTimeout(rec, config.OracleTimeout),
		matcher:      m,
		reporter:     reporter,
		signal:       sig,
		logger:       logger,
		startupDelay: config.StartupDelay,
		idleInterval: config.IdleInterval,
	}
}

// SetChangeDetector makes the loop reuse the previous candidates while the
// scene stays unchanged instead of calling the recognizer again.
func (l *RecognitionLoop) SetChangeDetector(d ChangeDetector) {
	l.detector = d
}

// Run blocks until ctx is cancelled. It never returns any other error.
func (l *RecognitionLoop) Run(ctx context.Context) error {
	l.logger.Info("🔎 Recognition loop started, target %s, threshold %.2f", l.matcher.Target(), l.matcher.Threshold())

	if err := sleep(ctx, l.startupDelay); err != nil {
		return err
	}

	failures := 0
	for {
		if err := ctx.Err(); err != nil {
			l.signal.Off(context.WithoutCancel(ctx))
			l.logger.Info("Recognition loop stopped")
			return err
		}

		decision, empty, ok := l.iterate(ctx)
		if !ok {
			continue
		}
		l.publish(ctx, decision)

		var wait time.Duration
		switch {
		case empty:
			wait = l.idleInterval
		case decision.Failed():
			failures++
			wait = l.failureBackoff(failures)
		default:
			failures = 0
		}
		if wait > 0 {
			sleep(ctx, wait)
		}
	}
}

// failureBackoff doubles from the idle interval with every consecutive
// recognizer failure, up to maxFailureBackoff.
func (l *RecognitionLoop) failureBackoff(failures int) time.Duration {
	d := l.idleInterval
	if d < minFailureBackoff {
		d = minFailureBackoff
	}
	for i := 1; i < failures && d < maxFailureBackoff; i++ {
		d *= 2
	}
	if d > maxFailureBackoff {
		d = maxFailureBackoff
	}
	return d
}

// Step runs a single iteration and reports its decision.
func (l *RecognitionLoop) Step(ctx context.Context) model.Decision {
	decision, _, _ := l.iterate(ctx)
	l.publish(ctx, decision)
	return decision
}

func (l *RecognitionLoop) Stats() LoopStats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.stats
}

// iterate evaluates the current frame. empty is set when the store had nothing;
// ok is false when ctx was cancelled mid-recognition and nothing should be reported.
func (l *RecognitionLoop) iterate(ctx context.Context) (decision model.Decision, empty bool, ok bool) {
	l.count(func(s *LoopStats) { s.Iterations++ })

	frame, found := l.frames.Get()
	if !found {
		l.count(func(s *LoopStats) { s.EmptyPolls++ })
		return model.Decision{Kind: model.NoCandidates, Timestamp: time.Now()}, true, true
	}

	candidates, err := l.candidates(ctx, frame)
	if err != nil {
		if ctx.Err() != nil {
			return model.Decision{Kind: model.NoCandidates, FrameSeq: frame.Seq, Timestamp: time.Now()}, false, false
		}
		l.count(func(s *LoopStats) { s.OracleErrors++ })
		l.logger.Error("Recognition failed for frame %d: %v", frame.Seq, err)
		return model.Decision{Kind: model.NoCandidates, FrameSeq: frame.Seq, Timestamp: time.Now(), Error: err.Error()}, false, true
	}

	result := l.matcher.Match(candidates)
	decision = model.Decision{
		Kind:       result.Kind,
		Plate:      result.Plate,
		Similarity: result.Similarity,
		Candidates: candidates,
		FrameSeq:   frame.Seq,
		Timestamp:  time.Now(),
	}
	if decision.IsMatch() {
		decision.Frame = frame.Data
	}
	return decision, false, true
}

func (l *RecognitionLoop) candidates(ctx context.Context, frame model.Frame) ([]string, error) {
	if l.detector != nil {
		changed, err := l.detector.Changed(frame.Data)
		if err != nil {
			l.logger.Warning("Change detection failed for frame %d: %v", frame.Seq, err)
		} else if !changed && l.haveLast {
			l.count(func(s *LoopStats) { s.Reused++ })
			return l.lastCandidates, nil
		}
	}

	candidates, err := l.recognizer.Recognize(ctx, frame.Data)
	if recognizer.IsBenign(err) {
		candidates, err = nil, nil
	}
	if err != nil {
		l.haveLast = false
		return nil, err
	}

	l.lastCandidates = candidates
	l.haveLast = true
	return candidates, nil
}

func (l *RecognitionLoop) publish(ctx context.Context, d model.Decision) {
	if l.reporter != nil {
		l.reporter.Report(d)
	}
	l.signal.Update(ctx, d.IsMatch(), d.Timestamp)
}

func (l *RecognitionLoop) count(f func(s *LoopStats)) {
	l.mu.Lock()
	f(&l.stats)
	l.mu.Unlock()
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsShutdown reports whether err only signals a requested stop.
func IsShutdown(err error) bool {
	return errors.Is(err, context.Canceled)
}
