package coordinator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a job: idle, running, then completed or
// cancelled. A job never runs twice.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Job is one survey run started by a Coordinator.
type Job struct {
	id     string
	kind   Kind
	target string

	mu         sync.Mutex
	status     Status
	found      int
	startedAt  time.Time
	finishedAt time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

type JobSnapshot struct {
	ID         string     `json:"id"`
	Kind       Kind       `json:"kind"`
	Target     string     `json:"target"`
	Status     Status     `json:"status"`
	Found      int        `json:"found"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

func newJob(kind Kind, target string, cancel context.CancelFunc) *Job {
	return &Job{
		id:     uuid.NewString(),
		kind:   kind,
		target: target,
		status: StatusIdle,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

func (j *Job) ID() string {
	return j.id
}

func (j *Job) Kind() Kind {
	return j.kind
}

func (j *Job) Target() string {
	return j.target
}

func (j *Job) Status() Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

func (j *Job) Found() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.found
}

// Cancel requests the job to stop. It returns immediately; use Wait or Done to
// observe the end of the job.
func (j *Job) Cancel() {
	j.cancel()
}

// Done is closed once the job's completion event has been delivered.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

func (j *Job) Wait() {
	<-j.done
}

func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()

	snapshot := JobSnapshot{
		ID:        j.id,
		Kind:      j.kind,
		Target:    j.target,
		Status:    j.status,
		Found:     j.found,
		StartedAt: j.startedAt,
	}
	if !j.finishedAt.IsZero() {
		finished := j.finishedAt
		snapshot.FinishedAt = &finished
	}
	return snapshot
}

func (j *Job) transition(from Status, to Status) bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.status != from {
		return false
	}
	j.status = to

	switch to {
	case StatusRunning:
		j.startedAt = time.Now()
	case StatusCompleted, StatusCancelled:
		j.finishedAt = time.Now()
	}
	return true
}

func (j *Job) recordFinding() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.found++
}
