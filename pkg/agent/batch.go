package agent

import (
	"context"
	"sync"

	"github.com/opd-ai/go-lander/pkg/lander"
	"github.com/opd-ai/go-lander/pkg/logging"
)

// Job is one episode of a batch. Each job needs its own Policy instance
// when the policy carries state.
type Job struct {
	Name       string
	Conditions lander.InitialConditions
	Policy     Policy
	MaxSteps   int
	Observer   Observer
}

// JobResult is the outcome of a Job
type JobResult struct {
	Name   string
	Result EpisodeResult
	Err    error
}

// batchJob pairs a job with its position in the input
type batchJob struct {
	index int
	job   Job
}

// batchResult is the output of a single batch job
type batchResult struct {
	index  int
	result JobResult
}

// Batch runs independent episodes on a fixed number of goroutines
type Batch struct {
	workers int
	newEnv  func(Job) (Environment, error)
	logger  *logging.Logger
}

// NewBatch creates a batch runner. newEnv must return a fresh environment
// for every job since environments are not shared between workers.
func NewBatch(workers int, newEnv func(Job) (Environment, error), logger *logging.Logger) *Batch {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &Batch{workers: workers, newEnv: newEnv, logger: logger}
}

// Run executes all jobs and returns their results in input order.
// Jobs not started before ctx is cancelled report ctx.Err().
func (b *Batch) Run(ctx context.Context, jobs []Job) []JobResult {
	results := make([]JobResult, len(jobs))
	for i, j := range jobs {
		results[i] = JobResult{Name: j.Name, Err: context.Canceled}
	}
	if len(jobs) == 0 {
		return results
	}

	queue := make(chan batchJob, b.workers*2)
	done := make(chan batchResult, b.workers*2)

	var wg sync.WaitGroup
	for i := 0; i < b.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for bj := range queue {
				r := b.runJob(ctx, bj.job)
				select {
				case done <- batchResult{index: bj.index, result: r}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(queue)
		for i, j := range jobs {
			select {
			case queue <- batchJob{index: i, job: j}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(done)
	}()

	for d := range done {
		results[d.index] = d.result
		if d.result.Err != nil {
			b.logger.Warn(ctx, "batch episode failed", "job", d.result.Name, "error", d.result.Err.Error())
		}
	}
	if err := ctx.Err(); err != nil {
		for i := range results {
			if results[i].Err == context.Canceled {
				results[i].Err = err
			}
		}
	}
	return results
}

func (b *Batch) runJob(ctx context.Context, job Job) JobResult {
	env, err := b.newEnv(job)
	if err != nil {
		return JobResult{Name: job.Name, Err: err}
	}
	res, err := RunEpisode(ctx, env, job.Conditions, job.Policy, job.MaxSteps, job.Observer)
	return JobResult{Name: job.Name, Result: res, Err: err}
}
