// Package observe provides progress observers for evolution runs.
package observe

import (
	"log/slog"

	"github.com/san-kum/popsynth/internal/evolve"
	"github.com/san-kum/popsynth/internal/units"
)

// Log reports every advance as a structured log record with the model time
// in Myr.
type Log struct {
	logger *slog.Logger
}

// NewLog returns a Log writing to logger, or to slog.Default() when nil.
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

func (l *Log) OnStep(p evolve.Progress) {
	myr, err := p.Time.ValueIn(units.Myr)
	if err != nil {
		l.logger.Warn("progress time is not a duration", slog.String("time", p.Time.String()))
		return
	}
	l.logger.Info("evolved to time",
		slog.Int("step", p.Step),
		slog.Int("total", p.Total),
		slog.Float64("time_myr", myr),
		slog.Duration("wall", p.Wall))
}

func (l *Log) OnState(from, to evolve.State) {
	l.logger.Debug("driver state", slog.String("from", from.String()), slog.String("to", to.String()))
}
