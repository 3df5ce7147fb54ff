package execx

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestRunFeedsStdin(t *testing.T) {
	out, err := Run(context.Background(), []string{"cat"}, []byte("0.1 0.9"))
	if err != nil || string(out) != "0.1 0.9" {
		t.Fatalf("Run = %q, %v", out, err)
	}
}

func TestRunWithoutStdin(t *testing.T) {
	out, err := Run(context.Background(), []string{"echo", "frame"}, nil)
	if err != nil || strings.TrimSpace(string(out)) != "frame" {
		t.Fatalf("Run = %q, %v", out, err)
	}
}

func TestRunFoldsStderr(t *testing.T) {
	_, err := Run(context.Background(), []string{"sh", "-c", "echo no camera >&2; exit 3"}, nil)
	if err == nil || !strings.Contains(err.Error(), "no camera") {
		t.Fatalf("err = %v", err)
	}
}

func TestRunHonoursContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	if _, err := Run(ctx, []string{"sleep", "5"}, nil); err == nil {
		t.Fatal("expected the process to be killed")
	}
	if time.Since(start) > 3*time.Second {
		t.Fatal("context did not stop the process")
	}
}

func TestRunEmptyArgv(t *testing.T) {
	if _, err := Run(context.Background(), nil, nil); err == nil {
		t.Fatal("expected error for empty argv")
	}
}
