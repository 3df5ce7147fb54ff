package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"facebeer-go/bus"
	"facebeer-go/services/config"
)

func newFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("facebeer", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func TestParseFlags(t *testing.T) {
	cases := []struct {
		args []string
		want float64
		set  bool
	}{
		{nil, 0.75, false},
		{[]string{"-t", "0.6"}, 0.6, true},
		{[]string{"--threshold", "0.9"}, 0.9, true},
		{[]string{"--threshold=0.5"}, 0.5, true},
	}
	for _, c := range cases {
		got, set, err := parseFlags(newFlagSet(), c.args)
		if err != nil || got != c.want || set != c.set {
			t.Errorf("parseFlags(%v) = %v, %v, %v", c.args, got, set, err)
		}
	}
}

func TestParseFlagsRejects(t *testing.T) {
	for _, args := range [][]string{
		{"-t", "abc"},
		{"--config", "x.yaml"},
		{"stray"},
	} {
		if _, _, err := parseFlags(newFlagSet(), args); err == nil {
			t.Errorf("parseFlags(%v) should fail", args)
		}
	}
}

func TestLoadConfigFlagWins(t *testing.T) {
	p := filepath.Join(t.TempDir(), "facebeer.yaml")
	if err := os.WriteFile(p, []byte("threshold: 0.6\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("FACEBEER_THRESHOLD", "0.65")

	cfg, err := loadConfig(p, 0, false)
	if err != nil || cfg.Threshold != 0.65 {
		t.Fatalf("env should beat file: %v, %v", cfg.Threshold, err)
	}
	cfg, err = loadConfig(p, 0.8, true)
	if err != nil || cfg.Threshold != 0.8 {
		t.Fatalf("flag should beat env: %v, %v", cfg.Threshold, err)
	}
	if _, err := loadConfig(p, 1.5, true); err == nil {
		t.Fatal("threshold outside (0,1) must fail validation")
	}
}

func TestEmptyJournalPathDisablesJournal(t *testing.T) {
	p := filepath.Join(t.TempDir(), "facebeer.yaml")
	if err := os.WriteFile(p, []byte("journal:\n  path: \"\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := loadConfig(p, 0, false)
	if err != nil {
		t.Fatalf("empty journal path should validate: %v", err)
	}
	store, err := openJournal(cfg.Journal.Path)
	if err != nil || store != nil {
		t.Fatalf("openJournal(%q) = %v, %v", cfg.Journal.Path, store, err)
	}

	store, err = openJournal(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil || store == nil {
		t.Fatalf("openJournal(file) = %v, %v", store, err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestReloadLoopRepublishesOnSignal(t *testing.T) {
	b := bus.NewBus(16)
	conn := b.NewConnection("config")
	cfg := config.Default()
	svc := config.NewConfigService(cfg)
	svc.Start(t.Context(), conn)

	sub := b.NewConnection("watch").Subscribe(bus.T("config", "telemetry"))
	<-sub.Channel()

	next := cfg
	next.Telemetry.Heartbeat = time.Minute
	loads := []struct {
		cfg config.Config
		err error
	}{
		{err: errors.New("threshold out of range")},
		{cfg: next},
	}
	calls := 0
	load := func() (config.Config, error) {
		l := loads[calls]
		calls++
		return l.cfg, l.err
	}

	ctx, cancel := context.WithCancel(t.Context())
	trigger := make(chan os.Signal)
	done := make(chan error, 1)
	go func() {
		done <- reloadLoop(ctx, trigger, load, svc, conn, slog.New(slog.NewTextHandler(io.Discard, nil)))
	}()

	trigger <- syscall.SIGHUP // rejected, nothing republished
	trigger <- syscall.SIGHUP
	select {
	case m := <-sub.Channel():
		if tel, ok := m.Payload.(config.Telemetry); !ok || tel.Heartbeat != time.Minute {
			t.Fatalf("payload = %#v", m.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("telemetry section not republished")
	}
	if calls != 2 {
		t.Fatalf("load called %d times", calls)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("reloadLoop = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("reloadLoop did not stop")
	}
}
