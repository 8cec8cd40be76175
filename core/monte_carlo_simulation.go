package core

import (
	"context"
	"log"

	"github.com/guregu/null/v6"
	"golang.org/x/sync/errgroup"

	ex "mc.forecast/extensions"
	m "mc.forecast/models"
)

const (
	Workers   = 8
	BatchSize = 10_000
)

// EnsembleSettings is everything one run of the ensemble needs besides the distribution
type EnsembleSettings struct {
	Simulations int
	Steps       int
	Start       float64
	Seed        null.Int // optional, makes every trial reproducible

	Workers   int // defaults to Workers
	BatchSize int // defaults to BatchSize
}

func (es EnsembleSettings) withDefaults() EnsembleSettings {
	if es.Workers <= 0 {
		es.Workers = Workers
	}
	if es.BatchSize <= 0 {
		es.BatchSize = BatchSize
	}
	return es
}

// job is a half open range of trial indexes [start, end)
type job struct {
	start int
	end   int
}

// GetNumberOfJobsAndWorkers splits iterations into batches of batchSize and caps the worker count at the number of batches
func GetNumberOfJobsAndWorkers(iterations int, batchSize int, workers int) ([]job, int) {
	nJobs := ex.CeilDiv(iterations, batchSize)
	nWorkers := min(nJobs, workers)

	// the last job is truncated to the number of iterations
	jobs := make([]job, nJobs)
	for i := range nJobs {
		jobs[i] = job{
			start: i * batchSize,
			end:   min((i+1)*batchSize, iterations),
		}
	}

	return jobs, nWorkers
}

// RunEnsemble generates settings.Simulations independent walks. Trials never share random state,
// walk i is written only by the worker that owns the batch containing i, so no locking is needed.
// Either every walk is produced or an error is returned.
func RunEnsemble(ctx context.Context, params m.DistributionParameters, settings EnsembleSettings) ([]m.Walk, error) {
	settings = settings.withDefaults()

	if settings.Simulations < 1 {
		return nil, configurationError("simulations must be at least 1, got %d", settings.Simulations)
	}
	if err := validateWalkShape(settings.Steps, settings.Start); err != nil {
		return nil, err
	}
	if err := ValidateDistribution(params); err != nil {
		return nil, err
	}

	jobs, nWorkers := GetNumberOfJobsAndWorkers(settings.Simulations, settings.BatchSize, settings.Workers)

	log.Println("Starting monte carlo simulation:")
	log.Printf("\t Distribution: mean %.6f, std dev %.6f", params.Mean, params.StdDev)
	log.Printf("\t Simulation steps: %v", settings.Steps)
	log.Printf("\t Simulation paths: %v", settings.Simulations)
	log.Printf("\t Simulation batch size: %v", settings.BatchSize)
	log.Printf("\t Workers: %v", nWorkers)

	jobsChannel := make(chan job, len(jobs))
	for _, v := range jobs {
		jobsChannel <- v
	}
	close(jobsChannel)

	res := make([]m.Walk, settings.Simulations)

	// a failing worker cancels the derived context, the caller's context is left alone
	g, ctx := errgroup.WithContext(ctx)
	for range nWorkers {
		g.Go(func() error {
			for j := range jobsChannel {
				select {
				case <-ctx.Done():
					return ctx.Err()
				default:
				}

				for sim := j.start; sim < j.end; sim++ {
					dist, err := NewNormalDistribution(params, NewTrialSource(settings.Seed, sim))
					if err != nil {
						return err
					}
					res[sim] = generateWalk(dist, settings.Steps, settings.Start)
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return res, nil
}
