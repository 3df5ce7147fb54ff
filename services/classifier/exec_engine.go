package classifier

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"strconv"
	"strings"
	"time"

	"facebeer-go/x/execx"

	"github.com/google/shlex"
)

// Runner executes argv with stdin and returns its stdout.
type Runner func(ctx context.Context, argv []string, stdin []byte) ([]byte, error)

// ExecEngine runs an external inference command per frame. The command reads
// a JPEG on stdin and prints the output tensor as whitespace-separated floats.
// "{model}" and "{size}" in the command line are expanded once.
type ExecEngine struct {
	argv    []string
	timeout time.Duration
	run     Runner
}

func NewExecEngine(command, model string, size int, timeout time.Duration) (*ExecEngine, error) {
	return NewExecEngineWithRunner(command, model, size, timeout, execx.Run)
}

func NewExecEngineWithRunner(command, model string, size int, timeout time.Duration, run Runner) (*ExecEngine, error) {
	argv, err := shlex.Split(command)
	if err != nil {
		return nil, fmt.Errorf("inference command: %w", err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("inference command: empty")
	}
	rep := strings.NewReplacer("{model}", model, "{size}", strconv.Itoa(size))
	for i, a := range argv {
		argv[i] = rep.Replace(a)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ExecEngine{argv: argv, timeout: timeout, run: run}, nil
}

func (e *ExecEngine) Argv() []string { return append([]string(nil), e.argv...) }

func (e *ExecEngine) Infer(ctx context.Context, img image.Image) ([]float64, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	out, err := e.run(ctx, e.argv, buf.Bytes())
	if err != nil {
		return nil, err
	}
	return ParseScores(out)
}

// ParseScores reads whitespace-separated floats. Brackets and commas, as
// printed by numpy or JSON, are treated as separators.
func ParseScores(out []byte) ([]float64, error) {
	fields := strings.FieldsFunc(string(out), func(r rune) bool {
		switch r {
		case ' ', '\t', '\n', '\r', ',', '[', ']':
			return true
		}
		return false
	})
	if len(fields) == 0 {
		return nil, fmt.Errorf("inference: no scores")
	}
	scores := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("inference: score %d: %w", i, err)
		}
		scores[i] = v
	}
	return scores, nil
}
