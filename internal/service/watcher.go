package service

import (
	"context"
	"time"

	"platewatch/internal/config"
	"platewatch/internal/logger"
	"platewatch/internal/model"
	"platewatch/internal/service/framestore"
	"platewatch/internal/service/matcher"
	"platewatch/internal/service/recognizer"
	"platewatch/internal/service/report"
	"platewatch/internal/service/signal"
	"platewatch/internal/stream"

	"github.com/hybridgroup/mjpeg"
)

// WatcherOptions carries the collaborators a Watcher does not build itself.
type WatcherOptions struct {
	RunID          string
	Recognizer     recognizer.Recognizer
	Matcher        *matcher.Matcher
	Reporters      []report.Reporter
	Signal         *signal.Controller
	FrameFilter    stream.FrameFilter
	ChangeDetector ChangeDetector
}

// Status is the live view served by the status endpoint.
type Status struct {
	RunID     string                `json:"run_id"`
	Target    string                `json:"target"`
	Threshold float64               `json:"threshold"`
	StartedAt time.Time             `json:"started_at"`
	Assembler stream.AssemblerStats `json:"assembler"`
	Store     framestore.Stats      `json:"store"`
	Loop      LoopStats             `json:"loop"`
	SignalOn  bool                  `json:"signal_on"`
	Decisions report.Summary        `json:"decisions"`
}

// Watcher wires the frame producer to the recognition loop through the
// single-slot frame store and re-serves assembled frames as MJPEG.
type Watcher struct {
	runID     string
	startedAt time.Time
	matcher   *matcher.Matcher
	store     *framestore.Store
	assembler *stream.Assembler
	loop      *RecognitionLoop
	signal    *signal.Controller
	latest    *report.Latest
	restream  *mjpeg.Stream
	logger    *logger.Logger
}

func NewWatcher(config *config.Config, logger *logger.Logger, opts WatcherOptions) *Watcher {
	w := &Watcher{
		runID:     opts.RunID,
		startedAt: time.Now(),
		matcher:   opts.Matcher,
		store:     framestore.New(),
		signal:    opts.Signal,
		latest:    report.NewLatest(),
		restream:  mjpeg.NewStream(),
		logger:    logger,
	}
	if w.signal == nil {
		w.signal = signal.NewController(signal.Nop{}, 0, logger)
	}

	assemblerOpts := []stream.Option{
		stream.WithMaxBufferSize(config.MaxBufferSize),
		stream.WithObserver(func(f model.Frame) { w.restream.UpdateJPEG(f.Data) }),
	}
	if opts.FrameFilter != nil {
		assemblerOpts = append(assemblerOpts, stream.WithFilter(opts.FrameFilter))
	}
	w.assembler = stream.NewAssembler(w.store, assemblerOpts...)

	reporters := append(report.Multi{w.latest}, opts.Reporters...)
	w.loop = NewRecognitionLoop(w.store, opts.Recognizer, opts.Matcher, reporters, w.signal, config, logger)
	if opts.ChangeDetector != nil {
		w.loop.SetChangeDetector(opts.ChangeDetector)
	}

	return w
}

// Run feeds src into the store while the recognition loop consumes it. It
// returns when the stream fails (the error is terminal) or ctx is cancelled.
func (w *Watcher) Run(ctx context.Context, src stream.Source) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		w.loop.Run(ctx)
	}()

	err := w.assembler.Run(ctx, src)
	cancel()
	<-loopDone

	if err != nil && !IsShutdown(err) {
		w.logger.Error("Frame producer stopped: %v", err)
	}
	return err
}

// LatestFrame returns the stored frame without affecting recognition statistics.
func (w *Watcher) LatestFrame() (model.Frame, bool) {
	return w.store.Peek()
}

func (w *Watcher) Restream() *mjpeg.Stream {
	return w.restream
}

func (w *Watcher) GetRecognitionLoop() *RecognitionLoop {
	return w.loop
}

func (w *Watcher) Status() Status {
	return Status{
		RunID:     w.runID,
		Target:    w.matcher.Target(),
		Threshold: w.matcher.Threshold(),
		StartedAt: w.startedAt,
		Assembler: w.assembler.Stats(),
		Store:     w.store.Stats(),
		Loop:      w.loop.Stats(),
		SignalOn:  w.signal.On(),
		Decisions: w.latest.Summary(),
	}
}
