package core

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/guregu/null/v6"

	ex "mc.forecast/extensions"
	m "mc.forecast/models"
)

func TestJobsAndIterationsLogicIsCorrect(t *testing.T) {
	jobs, nWorkers := GetNumberOfJobsAndWorkers(10_000, 1_000, 4)

	ex.AssertAreEqual(t, "jobs", 10, len(jobs))
	ex.AssertAreEqual(t, "workers", 4, nWorkers)
	for i := 1; i < len(jobs); i++ {
		if jobs[i].start != jobs[i-1].end {
			t.Errorf("job %d starts at %d, previous job ends at %d", i, jobs[i].start, jobs[i-1].end)
		}
	}

	// should have 4 jobs, the last one with 500 iterations
	jobs, nWorkers = GetNumberOfJobsAndWorkers(3_500, 1_000, 4)

	ex.AssertAreEqual(t, "jobs", 4, len(jobs))
	ex.AssertAreEqual(t, "workers", 4, nWorkers)
	ex.AssertAreEqual(t, "last job start", 3_000, jobs[3].start)
	ex.AssertAreEqual(t, "last job end (exclusive)", 3_500, jobs[3].end)

	jobs, nWorkers = GetNumberOfJobsAndWorkers(10, 1_000, 4)

	ex.AssertAreEqual(t, "jobs", 1, len(jobs))
	ex.AssertAreEqual(t, "workers", 1, nWorkers)
	ex.AssertAreEqual(t, "first job start", 0, jobs[0].start)
	ex.AssertAreEqual(t, "first job end (exclusive)", 10, jobs[0].end)
}

func TestRunEnsembleRejectsZeroTrialsOrSteps(t *testing.T) {
	params := m.DistributionParameters{Mean: 1, StdDev: 0.1}

	_, err := RunEnsemble(context.Background(), params, EnsembleSettings{Simulations: 0, Steps: 7, Start: 1})
	if !errors.Is(err, ErrConfiguration) {
		t.Errorf("zero simulations: expected configuration error, got %v", err)
	}

	_, err = RunEnsemble(context.Background(), params, EnsembleSettings{Simulations: 100, Steps: 0, Start: 1})
	if !errors.Is(err, ErrConfiguration) {
		t.Errorf("zero steps: expected configuration error, got %v", err)
	}
}

func TestRunEnsembleRejectsInvalidDistribution(t *testing.T) {
	params := m.DistributionParameters{Mean: 1, StdDev: -1}

	_, err := RunEnsemble(context.Background(), params, EnsembleSettings{Simulations: 10, Steps: 7, Start: 1})
	if !errors.Is(err, ErrDistribution) {
		t.Errorf("expected distribution error, got %v", err)
	}
}

func TestRunEnsembleProducesEveryWalk(t *testing.T) {
	params := m.DistributionParameters{Mean: 1.0002, StdDev: 0.03}
	settings := EnsembleSettings{
		Simulations: 25_000, // > BatchSize to utilize multiple workers
		Steps:       30,
		Start:       1.0,
		Seed:        null.IntFrom(42),
	}

	start := time.Now()
	walks, err := RunEnsemble(context.Background(), params, settings)
	t.Logf("RunEnsemble (%d paths, %d steps): %v", settings.Simulations, settings.Steps, time.Since(start))
	if err != nil {
		t.Fatalf("RunEnsemble: %v", err)
	}

	ex.AssertAreEqual(t, "walks", settings.Simulations, len(walks))
	for i, w := range walks {
		if len(w) != settings.Steps {
			t.Fatalf("walk %d: expected %d steps, got %d", i, settings.Steps, len(w))
		}
		if w[0] != settings.Start {
			t.Fatalf("walk %d: expected start %v, got %v", i, settings.Start, w[0])
		}
	}
}

// TestRunEnsembleIsWorkerCountIndependent runs the same seeded ensemble on one worker and on many
func TestRunEnsembleIsWorkerCountIndependent(t *testing.T) {
	params := m.DistributionParameters{Mean: 1.001, StdDev: 0.04}
	base := EnsembleSettings{Simulations: 2_500, Steps: 12, Start: 1.0, Seed: null.IntFrom(1234), BatchSize: 100}

	sequential := base
	sequential.Workers = 1
	parallel := base
	parallel.Workers = 8

	a, err := RunEnsemble(context.Background(), params, sequential)
	if err != nil {
		t.Fatalf("sequential RunEnsemble: %v", err)
	}
	b, err := RunEnsemble(context.Background(), params, parallel)
	if err != nil {
		t.Fatalf("parallel RunEnsemble: %v", err)
	}

	// compare as multisets, the ensemble carries no ordering guarantee
	key := func(w m.Walk) string { return fmt.Sprint([]float64(w)) }
	ak := make([]string, len(a))
	bk := make([]string, len(b))
	for i := range a {
		ak[i] = key(a[i])
		bk[i] = key(b[i])
	}
	slices.Sort(ak)
	slices.Sort(bk)

	if !slices.Equal(ak, bk) {
		t.Fatalf("1 worker and 8 workers produced different walks for the same seed")
	}
}

func TestRunEnsembleWithoutSeedIsNotDeterministic(t *testing.T) {
	params := m.DistributionParameters{Mean: 1, StdDev: 0.1}
	settings := EnsembleSettings{Simulations: 10, Steps: 5, Start: 1}

	a, _ := RunEnsemble(context.Background(), params, settings)
	b, _ := RunEnsemble(context.Background(), params, settings)

	if slices.Equal(a[0], b[0]) && slices.Equal(a[9], b[9]) {
		t.Errorf("unseeded runs should not repeat each other")
	}
}

func TestRunEnsembleStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := RunEnsemble(ctx, m.DistributionParameters{Mean: 1, StdDev: 0.1}, EnsembleSettings{Simulations: 100, Steps: 5, Start: 1})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func BenchmarkForecastEnsemble(b *testing.B) {
	params := m.DistributionParameters{Mean: 1.0, StdDev: 0.5}

	for _, sims := range []int{10, 100, 1_000, 10_000, 100_000} {
		b.Run(fmt.Sprintf("simulations=%d", sims), func(b *testing.B) {
			settings := EnsembleSettings{Simulations: sims, Steps: 10, Start: 1.0}
			for b.Loop() {
				walks, err := RunEnsemble(context.Background(), params, settings)
				if err != nil {
					b.Fatal(err)
				}
				if _, err := CalculateSimulationPercentiles(context.Background(), walks, settings.Steps, null.Float{}, Workers); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
