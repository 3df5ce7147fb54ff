// Package heartbeat publishes a retained liveness beat so the status page can
// tell a wedged kiosk from an idle one.
package heartbeat

import (
	"context"
	"log/slog"
	"time"

	"facebeer-go/bus"
	"facebeer-go/services/config"

	"github.com/jonboulle/clockwork"
)

var (
	Topic                = bus.T("heartbeat")
	topicConfigTelemetry = bus.T("config", "telemetry")
)

const defaultInterval = 5 * time.Second

// Beat is the retained payload on Topic.
type Beat struct {
	Seq     uint64 `json:"seq"`
	TSms    int64  `json:"ts_ms"`
	UptimeS int64  `json:"uptime_s"`
}

type Service struct {
	Interval time.Duration
	Clock    clockwork.Clock
	Log      *slog.Logger
}

// Run beats until ctx is cancelled. A retained config/telemetry section
// with a positive Heartbeat resets the interval.
func (s *Service) Run(ctx context.Context, conn *bus.Connection) error {
	clock := s.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	log := s.Log
	if log == nil {
		log = slog.Default()
	}
	log = log.With("svc", "heartbeat")
	interval := s.Interval
	if interval <= 0 {
		interval = defaultInterval
	}

	cfgSub := conn.Subscribe(topicConfigTelemetry)
	defer conn.Unsubscribe(cfgSub)

	started := clock.Now()
	tick := clock.NewTicker(interval)
	defer tick.Stop()

	var seq uint64
	beat := func(now time.Time) {
		seq++
		conn.Publish(conn.NewMessage(Topic, Beat{
			Seq:     seq,
			TSms:    now.UnixMilli(),
			UptimeS: int64(now.Sub(started).Seconds()),
		}, true))
	}
	beat(started)

	for {
		select {
		case <-ctx.Done():
			log.Debug("stopping", "beats", seq)
			return nil
		case now := <-tick.Chan():
			beat(now)
		case msg := <-cfgSub.Channel():
			t, ok := msg.Payload.(config.Telemetry)
			if !ok || t.Heartbeat <= 0 || t.Heartbeat == interval {
				continue
			}
			interval = t.Heartbeat
			tick.Reset(interval)
			log.Info("interval changed", "interval", interval)
		}
	}
}
