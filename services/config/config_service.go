package config

import (
	"context"
	"reflect"
	"sort"
	"sync"

	"facebeer-go/bus"
)

const configPrefix = "config"

// ConfigService publishes the effective configuration as retained messages,
// one per section, so late subscribers (the status server) can read it.
type ConfigService struct {
	Name string

	mu  sync.Mutex
	cfg Config
}

func NewConfigService(cfg Config) *ConfigService {
	return &ConfigService{Name: configPrefix, cfg: cfg}
}

// Sections maps the top-level keys to their values.
func (c Config) Sections() map[string]any {
	return map[string]any{
		"threshold":  c.Threshold,
		"log":        c.Log,
		"hardware":   c.Hardware,
		"classifier": c.Classifier,
		"recorder":   c.Recorder,
		"kiosk":      c.Kiosk,
		"journal":    c.Journal,
		"telemetry":  c.Telemetry,
	}
}

func publishSection(conn *bus.Connection, name string, v any) {
	conn.Publish(conn.NewMessage(bus.T(configPrefix, name), v, true))
}

// Start publishes synchronously; retained messages need no goroutine.
func (s *ConfigService) Start(_ context.Context, conn *bus.Connection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range s.cfg.Sections() {
		publishSection(conn, k, v)
	}
}

// Reload swaps in cfg and republishes only the sections that differ from the
// previous configuration. It returns the changed section names, sorted.
func (s *ConfigService) Reload(conn *bus.Connection, cfg Config) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.cfg.Sections()
	var changed []string
	for k, v := range cfg.Sections() {
		if reflect.DeepEqual(old[k], v) {
			continue
		}
		publishSection(conn, k, v)
		changed = append(changed, k)
	}
	s.cfg = cfg
	sort.Strings(changed)
	return changed
}
