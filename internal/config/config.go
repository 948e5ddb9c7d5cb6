package config

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// DefaultCountry is the recognition locale hint used when none is given.
	DefaultCountry = "us"
	// DefaultThreshold is the minimum similarity a candidate needs to match the target.
	DefaultThreshold = 0.70
	// DefaultStreamURL points at a local mjpg-streamer instance.
	DefaultStreamURL = "http://0.0.0.0:8080/?action=stream"
)

// ErrMissingPlate is returned when no target plate pattern was supplied.
var ErrMissingPlate = errors.New(`"plate pattern" positional parameter required!`)

type Config struct {
	// Matching
	TargetPlate string
	Country     string
	Threshold   float64
	Normalize   bool // compare plates upper-cased and trimmed

	// Stream
	StreamURL      string
	ChunkSize      int
	MaxBufferSize  int
	ValidateFrames bool
	StreamerCmd    string
	StreamerWarmup time.Duration

	// Recognition
	Recognizer     string // alpr, tesseract or rekognition
	AlprBinary     string
	AlprTopN       int
	AlprConfigPath string
	TesseractLang  string
	AWSRegion      string
	MinConfidence  float64 // Rekognition text confidence floor, percent
	PlateRegex     string
	OracleTimeout  time.Duration // 0 disables the timeout

	// Loop
	StartupDelay    time.Duration
	IdleInterval    time.Duration
	ChangeThreshold int // changed pixels needed before re-running recognition; 0 disables

	// Signal
	GPIOPin   int // <0 disables the relay
	GPIORoot  string
	RelayHold time.Duration

	// MQTT
	MQTTBroker   string // empty disables MQTT
	MQTTClientID string
	MQTTTopic    string
	MQTTUsername string
	MQTTPassword string

	// HTTP and storage
	HTTPEnabled              bool
	Port                     int
	Password                 string
	DatabasePath             string
	ImageDirectory           string
	ImageBufferLimit         int
	ImageBufferFlushInterval int
	LogDirectory             string

	// env values that were set but did not parse
	loadErrs []error
}

// Load reads .env (if present) and the environment into a Config.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: could not load .env file: %v", err)
	}

	env := &envReader{}
	cfg := &Config{
		TargetPlate: getEnv("TARGET_PLATE", ""),
		Country:     getEnv("COUNTRY", DefaultCountry),
		Threshold:   env.asFloat("THRESHOLD", DefaultThreshold),
		Normalize:   env.asBool("NORMALIZE_PLATES", false),

		StreamURL:      getEnv("STREAM_URL", DefaultStreamURL),
		ChunkSize:      env.asInt("CHUNK_SIZE", 8096),
		MaxBufferSize:  env.asInt("MAX_BUFFER_SIZE", 8<<20),
		ValidateFrames: env.asBool("VALIDATE_FRAMES", false),
		StreamerCmd:    getEnv("STREAMER_CMD", ""),
		StreamerWarmup: env.asDuration("STREAMER_WARMUP", time.Second),

		Recognizer:     strings.ToLower(getEnv("RECOGNIZER", "alpr")),
		AlprBinary:     getEnv("ALPR_BINARY", "alpr"),
		AlprTopN:       env.asInt("ALPR_TOP_N", 10),
		AlprConfigPath: getEnv("ALPR_CONFIG", "/etc/openalpr/openalpr.conf"),
		TesseractLang:  getEnv("TESSERACT_LANG", "eng"),
		AWSRegion:      getEnv("AWS_REGION", "eu-west-1"),
		MinConfidence:  env.asFloat("MIN_CONFIDENCE", 80),
		PlateRegex:     getEnv("PLATE_REGEX", ""),
		OracleTimeout:  env.asDuration("ORACLE_TIMEOUT", 0),

		StartupDelay: env.asDuration("STARTUP_DELAY", time.Second),
		IdleInterval: env.asDuration("IDLE_INTERVAL", 250*time.Millisecond),

		ChangeThreshold: env.asInt("CHANGE_THRESHOLD", 0),

		GPIOPin:   env.asInt("GPIO_PIN", -1),
		GPIORoot:  getEnv("GPIO_ROOT", "/sys/class/gpio"),
		RelayHold: env.asDuration("RELAY_HOLD", 0),

		MQTTBroker:   getEnv("MQTT_BROKER", ""),
		MQTTClientID: getEnv("MQTT_CLIENT_ID", "platewatch"),
		MQTTTopic:    getEnv("MQTT_TOPIC", "platewatch"),
		MQTTUsername: getEnv("MQTT_USERNAME", ""),
		MQTTPassword: getEnv("MQTT_PASSWORD", ""),

		HTTPEnabled:              env.asBool("HTTP_ENABLED", true),
		Port:                     env.asInt("PORT", 8090),
		Password:                 getEnv("PASSWORD", "platewatch"),
		DatabasePath:             getEnv("DB_PATH", filepath.Join(".", "data", "sightings.db")),
		ImageDirectory:           getEnv("IMAGE_DIR", filepath.Join(".", "sightings")),
		ImageBufferLimit:         env.asInt("BUFFER_LIMIT", 10),
		ImageBufferFlushInterval: env.asInt("FLUSH_INTERVAL", 30),
		LogDirectory:             getEnv("LOG_DIR", filepath.Join(".", "logs")),
	}
	cfg.loadErrs = env.errs
	return cfg
}

// ParseArgs applies command line flags and the positional plate pattern on top of cfg.
func (c *Config) ParseArgs(args []string) error {
	fs := flag.NewFlagSet("platewatch", flag.ContinueOnError)
	fs.StringVar(&c.Country, "country", c.Country, "country/locale hint for the recognizer")
	fs.Float64Var(&c.Threshold, "threshold", c.Threshold, "minimum similarity for a plate to match (0-1]")
	fs.StringVar(&c.StreamURL, "stream", c.StreamURL, "MJPEG stream URL")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: %s [flags] <plate>\n", fs.Name())
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		c.TargetPlate = fs.Arg(0)
	}
	return nil
}

// Validate reports the first configuration error that would make the watcher unusable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.TargetPlate) == "" {
		return ErrMissingPlate
	}
	if len(c.loadErrs) > 0 {
		return errors.Join(c.loadErrs...)
	}
	if math.IsNaN(c.Threshold) || c.Threshold <= 0 || c.Threshold > 1 {
		return fmt.Errorf("threshold must be in (0, 1], got %v", c.Threshold)
	}
	if c.StreamURL == "" {
		return fmt.Errorf("stream url is required")
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", c.ChunkSize)
	}
	if c.StartupDelay < 0 || c.IdleInterval < 0 || c.OracleTimeout < 0 || c.RelayHold < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	if c.Country == "" {
		return fmt.Errorf("country must not be empty")
	}
	switch c.Recognizer {
	case "alpr", "tesseract", "rekognition":
	default:
		return fmt.Errorf("unknown recognizer %q", c.Recognizer)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// envReader parses typed environment values, keeping every value that is
// set but malformed so Validate can refuse to start.
type envReader struct {
	errs []error
}

func (e *envReader) fail(key, value string, err error) {
	e.errs = append(e.errs, fmt.Errorf("invalid %s=%q: %w", key, value, err))
}

func (e *envReader) asInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		e.fail(key, value, err)
		return defaultValue
	}
	return intValue
}

func (e *envReader) asFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		e.fail(key, value, err)
		return defaultValue
	}
	return floatValue
}

func (e *envReader) asBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		e.fail(key, value, err)
		return defaultValue
	}
	return boolValue
}

func (e *envReader) asDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		e.fail(key, value, err)
		return defaultValue
	}
	return d
}
