// Package concurrency implements a channel based resource manager for concurrent operations.
package concurrency

import (
	"sync"
)

// ResourceManager stores a pool of resources (e.g. evaluators) meant to be
// used by concurrent tasks, one task per resource at a time, and records
// the first error returned by a task.
type ResourceManager[T any] struct {
	wg        sync.WaitGroup
	mu        sync.Mutex
	err       error
	resources chan T
}

// NewResourceManager instantiates a new ResourceManager over the given resources.
// The number of resources bounds the number of tasks running at the same time.
func NewResourceManager[T any](resources []T) *ResourceManager[T] {
	ch := make(chan T, len(resources))
	for i := range resources {
		ch <- resources[i]
	}
	return &ResourceManager[T]{
		resources: ch,
	}
}

// Task is a function taking as input a resource that must not be shared
// with any other task while it runs.
type Task[T any] func(resource T) (err error)

// Run runs a Task in a new goroutine once a resource is available.
// If a previous task already failed, the task is skipped.
func (r *ResourceManager[T]) Run(f Task[T]) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		resource := <-r.resources
		defer func() { r.resources <- resource }()

		if r.failed() {
			return
		}

		if err := f(resource); err != nil {
			r.mu.Lock()
			if r.err == nil {
				r.err = err
			}
			r.mu.Unlock()
		}
	}()
}

func (r *ResourceManager[T]) failed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err != nil
}

// Wait waits until all tasks have finished and returns the first
// encountered error, if any.
func (r *ResourceManager[T]) Wait() (err error) {
	r.wg.Wait()
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}
