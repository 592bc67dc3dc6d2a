// Package batch runs bank and shape operations over many files concurrently.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/james-see/zplanebank/pkg/bank"
	"github.com/james-see/zplanebank/pkg/zplane"
	"golang.org/x/sync/errgroup"
)

// Op selects the per-file operation
type Op string

// Supported operations
const (
	OpEncode  Op = "encode"
	OpDecode  Op = "decode"
	OpConvert Op = "convert"
)

// ParseOp validates an operation name
func ParseOp(name string) (Op, error) {
	switch op := Op(strings.ToLower(name)); op {
	case OpEncode, OpDecode, OpConvert:
		return op, nil
	}
	return "", fmt.Errorf("unknown batch operation %q (want encode, decode or convert)", name)
}

// Result is the outcome for one input file
type Result struct {
	Input    string
	Outputs  []string
	Warnings []error
	Err      error
	Elapsed  time.Duration
}

// Runner holds the settings shared by every file of a batch
type Runner struct {
	Workers       int
	OutputDir     string
	BankName      string
	DestRate      int
	DecodeOptions []bank.Option
	Logger        *slog.Logger
}

// Run processes inputs with at most Workers files in flight. Results are in
// input order; a failed file does not stop the others. Files not started
// before ctx is done report ctx.Err().
func (r *Runner) Run(ctx context.Context, op Op, inputs []string) []Result {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	workers := r.Workers
	if workers < 1 {
		workers = 1
	}

	results := make([]Result, len(inputs))
	var g errgroup.Group
	g.SetLimit(workers)

	for i, input := range inputs {
		g.Go(func() error {
			res := Result{Input: input}
			if err := ctx.Err(); err != nil {
				res.Err = err
				results[i] = res
				return nil
			}

			start := time.Now()
			res.Outputs, res.Warnings, res.Err = r.process(op, input, logger)
			res.Elapsed = time.Since(start)
			if res.Err != nil {
				logger.Error("batch file failed", "op", op, "input", input, "error", res.Err)
			} else {
				logger.Info("batch file done", "op", op, "input", input, "outputs", len(res.Outputs), "elapsed", res.Elapsed)
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (r *Runner) process(op Op, input string, logger *slog.Logger) ([]string, []error, error) {
	if err := os.MkdirAll(r.outputDir(), 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	obs := bank.NewLogObserver(logger.With("input", input))

	switch op {
	case OpEncode:
		out := filepath.Join(r.outputDir(), base+".svz")
		res, err := bank.EncodeFile(input, out, r.BankName, bank.WithObserver(obs))
		if err != nil {
			return nil, nil, err
		}
		return []string{out}, res.Warnings, nil

	case OpDecode:
		opts := append([]bank.Option{bank.WithObserver(obs)}, r.DecodeOptions...)
		artifacts, written, err := bank.DecodeFile(input, filepath.Join(r.outputDir(), base), opts...)
		if err != nil {
			return nil, nil, err
		}
		var warnings []error
		for _, w := range artifacts.Warnings {
			warnings = append(warnings, errors.New(w))
		}
		return written, warnings, nil

	case OpConvert:
		out := filepath.Join(r.outputDir(), fmt.Sprintf("%s_%d.json", base, r.DestRate))
		if _, err := zplane.ConvertFile(input, out, r.DestRate); err != nil {
			return nil, nil, err
		}
		return []string{out}, nil, nil
	}
	return nil, nil, fmt.Errorf("unknown batch operation %q", op)
}

func (r *Runner) outputDir() string {
	if r.OutputDir == "" {
		return "."
	}
	return r.OutputDir
}

// Failed counts results with an error
func Failed(results []Result) int {
	n := 0
	for _, res := range results {
		if res.Err != nil {
			n++
		}
	}
	return n
}
