// Package logging configures the exporter's logrus logger.
package logging

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"runtime/pprof"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileName is the name of the log file written to the log directory.
const FileName = "prometheus-launchpad-exporter.log"

const (
	maxFileSizeMB = 10
	maxBackups    = 5
)

// Options configures New.
type Options struct {
	Debug bool
	// Directory receives a rotated log file when not empty.
	Directory string
	// Output defaults to stderr.
	Output io.Writer
}

// New returns a logger writing logfmt lines. The returned closer flushes
// and closes the log file, if any.
func New(opts Options) (*logrus.Logger, io.Closer, error) {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	var closer io.Closer = nopCloser{}
	if opts.Directory != "" {
		info, err := os.Stat(opts.Directory)
		if err != nil {
			return nil, nil, errors.Wrap(err, "log directory")
		}
		if !info.IsDir() {
			return nil, nil, errors.Errorf("log directory %s is not a directory", opts.Directory)
		}

		file := &lumberjack.Logger{
			Filename:   filepath.Join(opts.Directory, FileName),
			MaxSize:    maxFileSizeMB,
			MaxBackups: maxBackups,
		}
		out = io.MultiWriter(out, file)
		closer = file
	}

	log := logrus.New()
	log.SetOutput(out)
	log.SetFormatter(&logrus.TextFormatter{
		DisableColors:    true,
		FullTimestamp:    true,
		DisableSorting:   false,
		QuoteEmptyFields: true,
	})
	SetDebug(log, opts.Debug)

	return log, closer, nil
}

// SetDebug switches the logger between debug and info level.
func SetDebug(log *logrus.Logger, debug bool) {
	if debug {
		log.SetLevel(logrus.DebugLevel)
		return
	}
	log.SetLevel(logrus.InfoLevel)
}

// DumpGoroutines logs the stack of every goroutine.
func DumpGoroutines(log logrus.FieldLogger) {
	var buf bytes.Buffer
	if err := pprof.Lookup("goroutine").WriteTo(&buf, 2); err != nil {
		log.WithError(err).Error("Failed to dump goroutines")
		return
	}
	log.WithField("stacks", buf.String()).Info("Goroutine dump")
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
