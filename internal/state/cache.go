// Package state holds the client's local view of the manager: queues, job
// types, and the jobs and stats of the selected queue.
package state

import (
	"sync"
	"time"

	"github.com/RevCBH/batchq/internal/client"
)

// Cache is the in-memory snapshot shared by the poller, the command
// dispatcher and the views. It is safe for concurrent access.
// Collections are replaced wholesale, never patched.
type Cache struct {
	mu            sync.RWMutex
	queues        []client.Queue
	types         []client.JobType
	selected      string
	jobs          []client.Job
	stats         client.QueueStats
	generation    uint64
	refreshedAt   time.Time
	typesLoadedAt time.Time
	now           func() time.Time
}

// Snapshot is a point-in-time deep copy of the cache
type Snapshot struct {
	Queues      []client.Queue
	Types       []client.JobType
	Selected    string
	Jobs        []client.Job
	Stats       client.QueueStats
	Generation  uint64
	RefreshedAt time.Time
}

// SelectedQueue returns the selected queue from the snapshot, if present
func (s Snapshot) SelectedQueue() (client.Queue, bool) {
	for _, q := range s.Queues {
		if q.Name == s.Selected {
			return q, true
		}
	}
	return client.Queue{}, false
}

// NewCache creates an empty cache with no selection.
func NewCache() *Cache {
	return &Cache{now: time.Now}
}

// Queues returns a copy of the known queues in manager order.
func (c *Cache) Queues() []client.Queue {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return copyQueues(c.queues)
}

// Queue looks up a queue by name.
func (c *Cache) Queue(name string) (client.Queue, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, q := range c.queues {
		if q.Name == name {
			return q, true
		}
	}
	return client.Queue{}, false
}

// Selected returns the selected queue name, or "" when none.
func (c *Cache) Selected() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.selected
}

// Jobs returns a copy of the selected queue's jobs.
func (c *Cache) Jobs() []client.Job {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return copyJobs(c.jobs)
}

// Stats returns the selected queue's counts.
func (c *Cache) Stats() client.QueueStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return copyStats(c.stats)
}

// Types returns a copy of the job type catalog.
func (c *Cache) Types() []client.JobType {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return copyTypes(c.types)
}

// Type looks up a job type by name.
func (c *Cache) Type(name string) (client.JobType, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, t := range c.types {
		if t.Name == name {
			return copyType(t), true
		}
	}
	return client.JobType{}, false
}

// TypesLoaded reports whether ReplaceTypes has been called.
func (c *Cache) TypesLoaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.typesLoadedAt.IsZero()
}

// Snapshot returns a deep copy of the whole cache.
func (c *Cache) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Snapshot{
		Queues:      copyQueues(c.queues),
		Types:       copyTypes(c.types),
		Selected:    c.selected,
		Jobs:        copyJobs(c.jobs),
		Stats:       copyStats(c.stats),
		Generation:  c.generation,
		RefreshedAt: c.refreshedAt,
	}
}

// ReplaceQueues swaps in a new queue list.
func (c *Cache) ReplaceQueues(queues []client.Queue) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queues = copyQueues(queues)
	c.generation++
}

// ReplaceTypes swaps in a new job type catalog.
func (c *Cache) ReplaceTypes(types []client.JobType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.types = copyTypes(types)
	c.typesLoadedAt = c.now()
	c.generation++
}

// ReplaceJobsAndStats stores the jobs and stats fetched for queue.
// It returns false and leaves the cache untouched when queue is no longer
// selected; such results are stale.
func (c *Cache) ReplaceJobsAndStats(queue string, jobs []client.Job, stats client.QueueStats) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if queue == "" || queue != c.selected {
		return false
	}
	c.jobs = copyJobs(jobs)
	c.stats = copyStats(stats)
	c.refreshedAt = c.now()
	c.generation++
	return true
}

// Select changes the selected queue. Switching to a different queue drops
// the jobs and stats of the previous one. It reports whether the selection
// changed.
func (c *Cache) Select(queue string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if queue == c.selected {
		return false
	}
	c.selected = queue
	c.jobs = nil
	c.stats = client.QueueStats{}
	c.generation++
	return true
}

func copyQueues(in []client.Queue) []client.Queue {
	if in == nil {
		return nil
	}
	return append([]client.Queue(nil), in...)
}

func copyJobs(in []client.Job) []client.Job {
	if in == nil {
		return nil
	}
	out := make([]client.Job, len(in))
	for i, j := range in {
		out[i] = j
		out[i].Params = copyParams(j.Params)
	}
	return out
}

func copyParams(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func copyStats(in client.QueueStats) client.QueueStats {
	if in.Counts == nil {
		return client.QueueStats{}
	}
	out := client.QueueStats{Counts: make(map[client.JobStatus]int, len(in.Counts))}
	for k, v := range in.Counts {
		out.Counts[k] = v
	}
	return out
}

func copyTypes(in []client.JobType) []client.JobType {
	if in == nil {
		return nil
	}
	out := make([]client.JobType, len(in))
	for i, t := range in {
		out[i] = copyType(t)
	}
	return out
}

func copyType(t client.JobType) client.JobType {
	out := t
	out.Params = make([]client.ParamSpec, len(t.Params))
	for i, p := range t.Params {
		out.Params[i] = p
		if p.Default != nil {
			def := *p.Default
			out.Params[i].Default = &def
		}
	}
	return out
}
