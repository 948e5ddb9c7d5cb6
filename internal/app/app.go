package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"platewatch/internal/config"
	"platewatch/internal/logger"
	"platewatch/internal/repository/sqlite"
	"platewatch/internal/route"
	"platewatch/internal/service"
	"platewatch/internal/service/matcher"
	"platewatch/internal/service/mqtt"
	"platewatch/internal/service/recognizer"
	"platewatch/internal/service/recognizer/tesseract"
	"platewatch/internal/service/report"
	"platewatch/internal/service/signal"
	"platewatch/internal/service/storage"
	"platewatch/internal/service/vision"
	"platewatch/internal/service/websocket"
	"platewatch/internal/stream"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
)

type App struct {
	config *config.Config
	logger *logger.Logger
	runID  string

	db            *sqlite.DB
	sightingRepo  *sqlite.SightingRepository
	snapshotRepo  *sqlite.SnapshotRepository
	visionService *vision.Service
	bufferService *storage.BufferService
	hubService    *websocket.HubService
	mqttClient    *mqtt.Client
	streamer      *stream.Streamer
	watcher       *service.Watcher

	closers []func()
}

// NewApp builds every component from cfg. Nothing is started yet except the
// MQTT connection, which sinks need before the first decision.
func NewApp(ctx context.Context, cfg *config.Config, logger *logger.Logger) (*App, error) {
	a := &App{
		config:   cfg,
		logger:   logger,
		runID:    report.NewRunID(),
		streamer: stream.NewStreamer(cfg.StreamerCmd, cfg.StreamerWarmup),
	}

	var matchOpts []matcher.Option
	if cfg.Normalize {
		matchOpts = append(matchOpts, matcher.WithNormalization())
	}
	m, err := matcher.New(cfg.TargetPlate, cfg.Threshold, matchOpts...)
	if err != nil {
		return nil, err
	}

	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	a.db = db
	a.closers = append(a.closers, func() { db.Close() })
	a.sightingRepo = sqlite.NewSightingRepository(db)
	a.snapshotRepo = sqlite.NewSnapshotRepository(db)

	a.visionService = vision.NewService(logger, cfg.ChangeThreshold)
	a.closers = append(a.closers, a.visionService.Close)
	a.bufferService = storage.NewBufferService(cfg, logger, a.snapshotRepo, a.visionService)
	a.hubService = websocket.NewHubService(logger)

	if cfg.MQTTBroker != "" {
		a.mqttClient = mqtt.NewClient(cfg, logger)
		if err := a.mqttClient.Connect(ctx); err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, a.mqttClient.Close)
	}

	rec, err := a.newRecognizer(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	sink, err := a.newSink()
	if err != nil {
		a.Close()
		return nil, err
	}

	reporters := []report.Reporter{
		report.NewConsole(os.Stdout),
		report.NewHubReporter(a.hubService, a.runID, m.Target(), logger),
		report.NewSightingRecorder(a.runID, m.Target(), a.sightingRepo, a.bufferService, logger),
	}
	if a.mqttClient != nil {
		reporters = append(reporters, report.NewMQTTReporter(a.mqttClient, a.mqttClient.Topic("decisions"), a.runID, m.Target(), logger))
	}

	opts := service.WatcherOptions{
		RunID:      a.runID,
		Recognizer: rec,
		Matcher:    m,
		Reporters:  reporters,
		Signal:     signal.NewController(sink, cfg.RelayHold, logger),
	}
	if cfg.ValidateFrames {
		opts.FrameFilter = a.visionService.Decodable
	}
	if cfg.ChangeThreshold > 0 {
		opts.ChangeDetector = a.visionService
	}
	a.watcher = service.NewWatcher(cfg, logger, opts)

	return a, nil
}

func (a *App) newRecognizer(ctx context.Context) (recognizer.Recognizer, error) {
	switch a.config.Recognizer {
	case "tesseract":
		t, err := tesseract.New(a.config.TesseractLang, a.visionService.Binarize, a.config.PlateRegex)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { t.Close() })
		return t, nil

	case "rekognition":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(a.config.AWSRegion))
		if err != nil {
			return nil, fmt.Errorf("unable to load AWS SDK config: %w", err)
		}
		return recognizer.NewRekognition(rekognition.NewFromConfig(awsCfg), a.config.PlateRegex, float32(a.config.MinConfidence))

	default:
		return recognizer.NewAlpr(a.config.AlprBinary, a.config.Country, a.config.AlprConfigPath, a.config.AlprTopN), nil
	}
}

func (a *App) newSink() (signal.Sink, error) {
	var sinks signal.Multi

	if a.config.GPIOPin >= 0 {
		relay, err := signal.NewGPIORelay(a.config.GPIORoot, a.config.GPIOPin)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, relay)
	}
	if a.mqttClient != nil {
		sinks = append(sinks, signal.NewMQTTSink(a.mqttClient, a.mqttClient.Topic("relay")))
	}

	if len(sinks) == 0 {
		a.logger.Warning("No relay configured, matches will only be reported")
		return signal.Nop{}, nil
	}
	return sinks, nil
}

// Run starts the streaming server, connects to the stream and watches it
// until the stream fails or ctx is cancelled. A stream failure is returned.
func (a *App) Run(ctx context.Context) error {
	defer a.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.hubService.Run(ctx)

	bufferDone := make(chan struct{})
	go func() {
		defer close(bufferDone)
		a.bufferService.Run(ctx)
	}()
	defer func() { <-bufferDone }()
	defer cancel()

	if err := a.streamer.Start(ctx); err != nil {
		return err
	}
	defer a.streamer.Stop()

	serverErr := make(chan error, 1)
	if a.config.HTTPEnabled {
		server := &http.Server{
			Addr:    fmt.Sprintf(":%d", a.config.Port),
			Handler: route.SetupRoutes(a.watcher, a.hubService, a.config, a.logger, a.sightingRepo, a.snapshotRepo),
		}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErr <- err
				cancel()
			}
		}()
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			server.Shutdown(shutdownCtx)
		}()
		a.logger.Info("HTTP server listening on :%d", a.config.Port)
	}

	src, err := stream.Dial(ctx, http.DefaultClient, a.config.StreamURL, a.config.ChunkSize)
	if err != nil {
		return err
	}
	defer src.Close()

	a.logger.Info("Watching %s for %s (run %s, recognizer %s)", a.config.StreamURL, a.config.TargetPlate, a.runID, a.config.Recognizer)

	err = a.watcher.Run(ctx, src)

	select {
	case httpErr := <-serverErr:
		return fmt.Errorf("http server: %w", httpErr)
	default:
	}
	return err
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
