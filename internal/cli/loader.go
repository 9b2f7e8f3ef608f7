package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/roach88/ordex/internal/config"
	"github.com/roach88/ordex/internal/notify"
)

// loadFixture decodes the YAML fixture at path into v, rejecting unknown
// fields. Failures are reported through f.
func loadFixture(f *OutputFormatter, path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return commandError(f, ErrCodeNotFound, fmt.Sprintf("fixture not found: %s", path), nil)
		}
		return commandError(f, ErrCodeGeneric, fmt.Sprintf("failed to read fixture: %v", err), nil)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return commandError(f, ErrCodeParse, fmt.Sprintf("failed to parse fixture: %v", err), nil)
	}
	return nil
}

// groupExecutor runs callbacks on fresh goroutines and lets the command
// wait for all of them before it prints.
type groupExecutor struct {
	g errgroup.Group
}

func (e *groupExecutor) Schedule(fn func()) bool {
	e.g.Go(func() error {
		fn()
		return nil
	})
	return true
}

// newExecutor builds the executor named by cfg. The returned wait
// function blocks until every scheduled callback has run and releases the
// executor.
func newExecutor(cfg config.RouterConfig, log *slog.Logger) (notify.Executor, func()) {
	switch cfg.Executor {
	case config.ExecutorGoroutine:
		exec := &groupExecutor{}
		return exec, func() { _ = exec.g.Wait() }

	case config.ExecutorSerial:
		serial := notify.NewSerial(log)
		var g errgroup.Group
		g.Go(func() error {
			return serial.Run(context.Background())
		})
		return serial, func() {
			serial.Close()
			if err := g.Wait(); err != nil {
				log.Warn("serial executor stopped", "error", err)
			}
		}
	}
	return notify.Inline{}, func() {}
}
