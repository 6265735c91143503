package cron

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Job is one unit of scheduled maintenance. Name doubles as the lease key
// and the metrics label, so it must be stable.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry is the set of jobs a worker knows, in registration order.
type Registry struct {
	jobs []Job
}

// NewRegistry registers jobs in order, rejecting unnamed or duplicate ones.
func NewRegistry(jobs ...Job) (*Registry, error) {
	registry := &Registry{}
	for _, job := range jobs {
		if err := registry.Register(job); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// Register adds job to the registry.
func (r *Registry) Register(job Job) error {
	if job == nil {
		return errors.New("nil cron job")
	}
	name := strings.TrimSpace(job.Name())
	if name == "" {
		return fmt.Errorf("cron job %T has no name", job)
	}
	if r.find(name) != nil {
		return fmt.Errorf("cron job %q registered twice", name)
	}
	r.jobs = append(r.jobs, job)
	return nil
}

// Names lists registered job names in order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.jobs))
	for _, job := range r.jobs {
		names = append(names, job.Name())
	}
	return names
}

// Select returns the named jobs in registration order, or every job when no
// name is given. Unknown names are an error so a typo in the schedule fails
// loudly.
func (r *Registry) Select(names ...string) ([]Job, error) {
	wanted := make([]string, 0, len(names))
	for _, name := range names {
		if name = strings.TrimSpace(name); name != "" {
			wanted = append(wanted, name)
		}
	}
	if len(wanted) == 0 {
		return slices.Clone(r.jobs), nil
	}
	for _, name := range wanted {
		if r.find(name) == nil {
			return nil, fmt.Errorf("unknown cron job %q (known: %s)", name, strings.Join(r.Names(), ", "))
		}
	}
	selected := make([]Job, 0, len(wanted))
	for _, job := range r.jobs {
		if slices.Contains(wanted, job.Name()) {
			selected = append(selected, job)
		}
	}
	return selected, nil
}

func (r *Registry) find(name string) Job {
	for _, job := range r.jobs {
		if job.Name() == name {
			return job
		}
	}
	return nil
}
