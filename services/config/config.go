// Package config loads the kiosk configuration: built-in defaults, then an
// optional YAML file, then FACEBEER_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// DefaultThreshold is the guest cut-off used when nothing overrides it.
const DefaultThreshold = 0.75

type Config struct {
	// Threshold is the guest cut-off on classifier confidence, in (0,1).
	Threshold float64 `yaml:"threshold" env:"FACEBEER_THRESHOLD"`

	Log        Log        `yaml:"log"`
	Hardware   Hardware   `yaml:"hardware"`
	Classifier Classifier `yaml:"classifier"`
	Recorder   Recorder   `yaml:"recorder"`
	Kiosk      Kiosk      `yaml:"kiosk"`
	Journal    Journal    `yaml:"journal"`
	Telemetry  Telemetry  `yaml:"telemetry"`
}

type Log struct {
	Level  string `yaml:"level" env:"FACEBEER_LOG_LEVEL"`   // debug|info|warn|error
	Format string `yaml:"format" env:"FACEBEER_LOG_FORMAT"` // text|json
}

type Hardware struct {
	// I2CBus is a periph bus name; "" picks the first bus.
	I2CBus string `yaml:"i2c_bus" env:"FACEBEER_I2C_BUS"`

	Button Button `yaml:"button"`
	ADC    ADC    `yaml:"adc"`
	OLED   OLED   `yaml:"oled"`
	Camera Camera `yaml:"camera"`
}

type Button struct {
	Pin       int    `yaml:"pin" env:"FACEBEER_BUTTON_PIN"`
	Pull      string `yaml:"pull" env:"FACEBEER_BUTTON_PULL"`
	ActiveLow bool   `yaml:"active_low" env:"FACEBEER_BUTTON_ACTIVE_LOW"`
}

type ADC struct {
	Address   uint16  `yaml:"address" env:"FACEBEER_ADC_ADDRESS"`
	Gain      int     `yaml:"gain" env:"FACEBEER_ADC_GAIN"`
	Channel   int     `yaml:"channel" env:"FACEBEER_ADC_CHANNEL"`
	Slope     float64 `yaml:"slope" env:"FACEBEER_ADC_SLOPE"`
	Intercept float64 `yaml:"intercept" env:"FACEBEER_ADC_INTERCEPT"`
}

type OLED struct {
	Address       uint16        `yaml:"address" env:"FACEBEER_OLED_ADDRESS"`
	Width         int16         `yaml:"width" env:"FACEBEER_OLED_WIDTH"`
	Height        int16         `yaml:"height" env:"FACEBEER_OLED_HEIGHT"`
	Border        int16         `yaml:"border" env:"FACEBEER_OLED_BORDER"`
	Speed         int16         `yaml:"speed" env:"FACEBEER_OLED_SPEED"`
	FrameInterval time.Duration `yaml:"frame_interval" env:"FACEBEER_OLED_FRAME_INTERVAL"`
}

type Camera struct {
	Command string        `yaml:"command" env:"FACEBEER_CAMERA_COMMAND"`
	Width   int           `yaml:"width" env:"FACEBEER_CAMERA_WIDTH"`
	Height  int           `yaml:"height" env:"FACEBEER_CAMERA_HEIGHT"`
	Warmup  time.Duration `yaml:"warmup" env:"FACEBEER_CAMERA_WARMUP"`
	Timeout time.Duration `yaml:"timeout" env:"FACEBEER_CAMERA_TIMEOUT"`
}

type Classifier struct {
	Labels    string        `yaml:"labels" env:"FACEBEER_CLASSIFIER_LABELS"`
	Model     string        `yaml:"model" env:"FACEBEER_CLASSIFIER_MODEL"`
	Command   string        `yaml:"command" env:"FACEBEER_CLASSIFIER_COMMAND"`
	InputSize int           `yaml:"input_size" env:"FACEBEER_CLASSIFIER_INPUT_SIZE"`
	Timeout   time.Duration `yaml:"timeout" env:"FACEBEER_CLASSIFIER_TIMEOUT"`
}

type Recorder struct {
	URL     string        `yaml:"url" env:"FACEBEER_RECORDER_URL"`
	Timeout time.Duration `yaml:"timeout" env:"FACEBEER_RECORDER_TIMEOUT"`
}

type Kiosk struct {
	ConfirmWindow time.Duration `yaml:"confirm_window" env:"FACEBEER_CONFIRM_WINDOW"`
	BlowWindow    time.Duration `yaml:"blow_window" env:"FACEBEER_BLOW_WINDOW"`
	Settle        time.Duration `yaml:"settle" env:"FACEBEER_SETTLE"`
	Poll          time.Duration `yaml:"poll" env:"FACEBEER_POLL"`
}

type Journal struct {
	// Path of the sqlite file; "" disables the journal.
	Path string `yaml:"path" env:"FACEBEER_JOURNAL_PATH"`
}

type Telemetry struct {
	// Listen address of the status server; "" disables it.
	Listen string `yaml:"listen" env:"FACEBEER_TELEMETRY_LISTEN"`
	// Heartbeat is the liveness publish interval.
	Heartbeat time.Duration `yaml:"heartbeat" env:"FACEBEER_TELEMETRY_HEARTBEAT"`
}

// Default returns the stock appliance wiring.
func Default() Config {
	return Config{
		Threshold: DefaultThreshold,
		Log:       Log{Level: "info", Format: "text"},
		Hardware: Hardware{
			Button: Button{Pin: 23, Pull: "up", ActiveLow: true},
			ADC:    ADC{Address: 0x48, Gain: 1, Channel: 0, Slope: 7e-6, Intercept: -0.037},
			OLED:   OLED{Address: 0x3C, Width: 128, Height: 64, Border: 5, Speed: 10, FrameInterval: 50 * time.Millisecond},
			Camera: Camera{
				Command: "rpicam-still -n -e jpg -o - --width {width} --height {height} -t {warmup_ms}",
				Width:   1920,
				Height:  1080,
				Warmup:  2 * time.Second,
				Timeout: 15 * time.Second,
			},
		},
		Classifier: Classifier{
			Labels:    "labels.txt",
			Model:     "model.tflite",
			Command:   "facebeer-infer --model {model} --size {size}",
			InputSize: 256,
			Timeout:   30 * time.Second,
		},
		Recorder: Recorder{URL: "http://api.facebeer.net:8000/append", Timeout: 10 * time.Second},
		Kiosk: Kiosk{
			ConfirmWindow: 10 * time.Second,
			BlowWindow:    10 * time.Second,
			Settle:        2 * time.Second,
			Poll:          10 * time.Millisecond,
		},
		Journal:   Journal{Path: "facebeer.db"},
		Telemetry: Telemetry{Listen: ":9100", Heartbeat: 5 * time.Second},
	}
}

// Load layers the YAML file at path (optional) and the environment over Default.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := decodeYAML(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

func decodeYAML(raw []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate checks the values the kiosk cannot run without.
func (c Config) Validate() error {
	var errs []error
	if !(c.Threshold > 0 && c.Threshold < 1) {
		errs = append(errs, fmt.Errorf("threshold %v must be in (0,1)", c.Threshold))
	}
	if c.Kiosk.ConfirmWindow <= 0 || c.Kiosk.BlowWindow <= 0 {
		errs = append(errs, errors.New("kiosk windows must be positive"))
	}
	if c.Kiosk.Settle < 0 || c.Kiosk.Poll < 0 {
		errs = append(errs, errors.New("kiosk settle and poll must not be negative"))
	}
	if c.Hardware.Camera.Command == "" || c.Classifier.Command == "" {
		errs = append(errs, errors.New("camera and classifier commands are required"))
	}
	if c.Hardware.Button.Pin < 0 {
		errs = append(errs, errors.New("button pin must not be negative"))
	}
	if c.Classifier.Labels == "" {
		errs = append(errs, errors.New("classifier labels path is required"))
	}
	if c.Recorder.URL == "" {
		errs = append(errs, errors.New("recorder url is required"))
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log level %q", c.Log.Level))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	return errors.Join(errs...)
}
