package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestStageMessages(t *testing.T) {
	assert.Equal(t, "Carregando arquivo...", Loading.Message())
	assert.Equal(t, "Processando dados...", Processing.Message())
	assert.Equal(t, "Transformando dados...", Transforming.Message())
	assert.Equal(t, "Fazendo a inferência dos dados...", Inferring.Message())
}

func TestRun_WaitsConfiguredDuration(t *testing.T) {
	sim := NewSimulator(map[string]time.Duration{"loading": 20 * time.Millisecond}, zap.NewNop())

	start := time.Now()
	require.NoError(t, sim.Run(context.Background(), Loading))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	assert.Equal(t, 20*time.Millisecond, sim.Duration(Loading))
	assert.Zero(t, sim.Duration(Inferring))
}

func TestRun_ZeroDurationReturnsImmediately(t *testing.T) {
	sim := NewSimulator(nil, zap.NewNop())
	require.NoError(t, sim.RunAll(context.Background(), Loading, Processing, Transforming, Inferring))
}

func TestRun_Cancelled(t *testing.T) {
	sim := NewSimulator(map[string]time.Duration{"inferring": time.Hour}, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := sim.Run(ctx, Inferring)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRun_UnknownStage(t *testing.T) {
	sim := NewSimulator(nil, zap.NewNop())
	assert.Error(t, sim.Run(context.Background(), Stage("training")))
}
