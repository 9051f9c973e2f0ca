package mirror

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aryankumar/linemill/internal/metrics"
	"github.com/aryankumar/linemill/internal/util"
)

// Result describes one mirrored file
type Result struct {
	Input  string
	Output string
	Lines  int64
	Bytes  int64
}

// Processor transforms one input file into its mirrored output file
type Processor struct {
	sink         *Sink
	newTransform TransformFactory
	lines        *metrics.Counter
	logger       *slog.Logger
}

// NewProcessor creates a processor writing through sink.
// Lines written to committed outputs are added to lines when it is not nil.
func NewProcessor(sink *Sink, transform TransformFactory, lines *metrics.Counter, logger *slog.Logger) *Processor {
	if transform == nil {
		transform = transforms[DefaultTransform]
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		sink:         sink,
		newTransform: transform,
		lines:        lines,
		logger:       logger,
	}
}

// Process reads input line by line, applies the transform, and writes each line
// followed by "\n" to the mirrored path. Output is written to a temporary file
// in the target directory and renamed into place only when the whole input was
// processed, so a failed or cancelled task leaves nothing at the target path.
// ctx is checked before every line.
func (p *Processor) Process(ctx context.Context, input string) (*Result, error) {
	res, err := p.process(ctx, input)
	if err != nil {
		return nil, util.WrapTaskError(input, err)
	}
	return res, nil
}

func (p *Processor) process(ctx context.Context, input string) (*Result, error) {
	target, err := p.sink.Target(input)
	if err != nil {
		return nil, err
	}
	if err := p.sink.EnsureParent(target); err != nil {
		return nil, err
	}

	in, err := os.Open(input)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("failed to create output: %w", err)
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		tmp.Close()
		if rmErr := os.Remove(tmp.Name()); rmErr != nil && !os.IsNotExist(rmErr) {
			p.logger.Warn("failed to remove partial output", "path", tmp.Name(), "error", rmErr)
		}
	}()

	transform := p.newTransform()
	r := bufio.NewReader(in)
	w := bufio.NewWriter(tmp)

	var lines, written int64
	for {
		if err := ctx.Err(); err != nil {
			return nil, context.Cause(ctx)
		}

		line, readErr := r.ReadString('\n')
		if readErr != nil && readErr != io.EOF {
			return nil, fmt.Errorf("failed to read input: %w", readErr)
		}
		if readErr == io.EOF && line == "" {
			break
		}

		line = strings.TrimSuffix(line, "\n")
		line = strings.TrimSuffix(line, "\r")

		n, err := w.WriteString(transform(line) + "\n")
		if err != nil {
			return nil, fmt.Errorf("failed to write output: %w", err)
		}
		written += int64(n)
		lines++

		if readErr == io.EOF {
			break
		}
	}

	if err := w.Flush(); err != nil {
		return nil, fmt.Errorf("failed to write output: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return nil, fmt.Errorf("failed to set output permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to close output: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return nil, fmt.Errorf("failed to commit output: %w", err)
	}
	committed = true

	if p.lines != nil {
		p.lines.Add(lines)
	}

	p.logger.Debug("file processed", "input", input, "output", target, "lines", lines)

	return &Result{
		Input:  input,
		Output: target,
		Lines:  lines,
		Bytes:  written,
	}, nil
}
