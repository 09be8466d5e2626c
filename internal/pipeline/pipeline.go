// Package pipeline paces the dashboard's processing steps. The stages perform no work;
// they only wait for their configured duration.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Stage identifies one scripted step of the upload and inference flow.
type Stage string

const (
	Loading      Stage = "loading"
	Processing   Stage = "processing"
	Transforming Stage = "transforming"
	Inferring    Stage = "inferring"
)

var messages = map[Stage]string{
	Loading:      "Carregando arquivo...",
	Processing:   "Processando dados...",
	Transforming: "Transformando dados...",
	Inferring:    "Fazendo a inferência dos dados...",
}

// Message returns the progress text shown while the stage runs.
func (s Stage) Message() string {
	return messages[s]
}

// Simulator waits out each stage.
type Simulator struct {
	durations map[Stage]time.Duration
	logger    *zap.Logger
}

// NewSimulator builds a simulator from durations keyed by stage name. Missing stages take no time.
func NewSimulator(durations map[string]time.Duration, logger *zap.Logger) *Simulator {
	d := make(map[Stage]time.Duration, len(durations))
	for name, v := range durations {
		d[Stage(name)] = v
	}
	return &Simulator{durations: d, logger: logger}
}

// Duration reports how long stage waits.
func (s *Simulator) Duration(stage Stage) time.Duration {
	return s.durations[stage]
}

// Run blocks for the stage's duration or until ctx is done.
func (s *Simulator) Run(ctx context.Context, stage Stage) error {
	if _, ok := messages[stage]; !ok {
		return fmt.Errorf("unknown stage %q", stage)
	}

	d := s.Duration(stage)
	s.logger.Debug(stage.Message(), zap.String("stage", string(stage)), zap.Duration("delay", d))
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RunAll runs stages in order, stopping at the first error.
func (s *Simulator) RunAll(ctx context.Context, stages ...Stage) error {
	for _, stage := range stages {
		if err := s.Run(ctx, stage); err != nil {
			return err
		}
	}
	return nil
}
