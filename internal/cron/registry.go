package cron

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Job is one unit of scheduled work. Jobs decide for themselves whether a
// given cycle has anything to do and return nil when it does not.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry is the ordered job list a cycle walks. Names double as metric
// labels, so they must be unique and non-blank.
type Registry struct {
	jobs []Job
}

// NewRegistry panics on an invalid job; that is a wiring bug in main.
func NewRegistry(jobs ...Job) *Registry {
	r := &Registry{}
	for _, job := range jobs {
		if err := r.Register(job); err != nil {
			panic(err)
		}
	}
	return r
}

// Register appends job. A nil job is ignored so optional jobs can be
// registered unconditionally.
func (r *Registry) Register(job Job) error {
	if job == nil {
		return nil
	}
	name := job.Name()
	if strings.TrimSpace(name) == "" {
		return errors.New("cron job name is required")
	}
	if slices.ContainsFunc(r.jobs, func(j Job) bool { return j.Name() == name }) {
		return fmt.Errorf("cron job %q registered twice", name)
	}
	r.jobs = append(r.jobs, job)
	return nil
}

func (r *Registry) Jobs() []Job {
	return slices.Clone(r.jobs)
}

func (r *Registry) Names() []string {
	names := make([]string, len(r.jobs))
	for i, job := range r.jobs {
		names[i] = job.Name()
	}
	return names
}
