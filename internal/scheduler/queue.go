package scheduler

import (
	"sync"

	"github.com/vvka-141/pgfastload/internal/schema"
)

// Job is one discovered data file and the table it resolves to.
type Job struct {
	Path  string
	Table schema.TableKey
}

// JobQueue is a FIFO shared by all workers. It is seeded once and only
// drains; TryPop never blocks.
type JobQueue struct {
	mu   sync.Mutex
	jobs []Job
	head int
}

// NewJobQueue returns a queue holding jobs in order.
func NewJobQueue(jobs []Job) *JobQueue {
	q := &JobQueue{jobs: make([]Job, len(jobs))}
	copy(q.jobs, jobs)
	return q
}

// TryPop removes and returns the oldest job. It reports false when the
// queue is empty.
func (q *JobQueue) TryPop() (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.head >= len(q.jobs) {
		return Job{}, false
	}
	job := q.jobs[q.head]
	q.jobs[q.head] = Job{}
	q.head++
	return job, true
}

// Len returns the number of jobs not yet popped.
func (q *JobQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs) - q.head
}
