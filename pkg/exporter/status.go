package exporter

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// TaskStatus is the outcome of the runs of one refresh task
type TaskStatus struct {
	Name        string        `json:"name"`
	Runs        int           `json:"runs"`
	Failures    int           `json:"failures"`
	LastRun     time.Time     `json:"last_run,omitzero"`
	LastSuccess time.Time     `json:"last_success,omitzero"`
	LastError   string        `json:"last_error,omitempty"`
	Duration    time.Duration `json:"duration_ns"`
}

// Succeeded reports whether the task ever completed without error
func (s TaskStatus) Succeeded() bool {
	return !s.LastSuccess.IsZero()
}

// Registry holds the status of every registered task
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]*TaskStatus
}

// NewRegistry creates a registry with the named tasks registered
func NewRegistry(names ...string) *Registry {
	r := &Registry{tasks: make(map[string]*TaskStatus)}
	for _, name := range names {
		r.Register(name)
	}
	return r
}

// Register adds a task to the registry
func (r *Registry) Register(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[name]; !ok {
		r.tasks[name] = &TaskStatus{Name: name}
	}
}

// Record stores the outcome of a run that started at start
func (r *Registry) Record(name string, start, end time.Time, err error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	status, ok := r.tasks[name]
	if !ok {
		return fmt.Errorf("task %q not found", name)
	}

	status.Runs++
	status.LastRun = start
	status.Duration = end.Sub(start)
	if err != nil {
		status.Failures++
		status.LastError = err.Error()
		return nil
	}
	status.LastSuccess = end
	status.LastError = ""
	return nil
}

// Get returns a copy of a task's status
func (r *Registry) Get(name string) (TaskStatus, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	status, ok := r.tasks[name]
	if !ok {
		return TaskStatus{}, false
	}
	return *status, true
}

// All returns a copy of every task's status, sorted by name
func (r *Registry) All() []TaskStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	statuses := make([]TaskStatus, 0, len(r.tasks))
	for _, status := range r.tasks {
		statuses = append(statuses, *status)
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Name < statuses[j].Name })
	return statuses
}

// AllSucceeded reports whether every task has succeeded at least once
func (r *Registry) AllSucceeded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.tasks) == 0 {
		return false
	}
	for _, status := range r.tasks {
		if !status.Succeeded() {
			return false
		}
	}
	return true
}
