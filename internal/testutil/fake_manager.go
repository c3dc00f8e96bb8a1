// Package testutil provides an in-memory batch manager for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/RevCBH/batchq/internal/client"
)

// Route keys accepted by FailNext, RespondRaw, Hold and Calls.
const (
	RouteListTypes     = "GET /type"
	RouteListQueues    = "GET /queue"
	RouteCreateQueue   = "POST /queue"
	RouteUpdateQueue   = "PUT /queue/{name}"
	RouteListJobs      = "GET /queue/{name}/jobs"
	RouteEnqueue       = "POST /queue/{name}"
	RouteStats         = "GET /stats/{name}"
	RouteGetJob        = "GET /job/{id}"
	RouteDeleteJob     = "DELETE /job/{id}"
	RouteListSchedules = "GET /schedule"
)

type cannedResponse struct {
	status int
	body   string
}

type hold struct {
	entered chan struct{}
	release chan struct{}
}

// FakeManager serves the manager REST contract from memory.
// Credentials default to alice/secret.
type FakeManager struct {
	Server *httptest.Server

	mu        sync.Mutex
	username  string
	password  string
	queues    []client.Queue
	types     []client.JobType
	schedules []json.RawMessage
	jobs      []client.Job
	nextID    int64
	calls     map[string]int
	canned    map[string][]cannedResponse
	holds     map[string]*hold
}

// NewFakeManager starts a fake manager and registers its shutdown with t.
func NewFakeManager(t testing.TB) *FakeManager {
	t.Helper()

	m := &FakeManager{
		username: "alice",
		password: "secret",
		nextID:   1,
		calls:    make(map[string]int),
		canned:   make(map[string][]cannedResponse),
		holds:    make(map[string]*hold),
	}

	mux := http.NewServeMux()
	m.handle(mux, RouteListTypes, m.listTypes)
	m.handle(mux, RouteListQueues, m.listQueues)
	m.handle(mux, RouteCreateQueue, m.createQueue)
	m.handle(mux, RouteUpdateQueue, m.updateQueue)
	m.handle(mux, RouteListJobs, m.listJobs)
	m.handle(mux, RouteEnqueue, m.enqueue)
	m.handle(mux, RouteStats, m.stats)
	m.handle(mux, RouteGetJob, m.getJob)
	m.handle(mux, RouteDeleteJob, m.deleteJob)
	m.handle(mux, RouteListSchedules, m.listSchedules)

	m.Server = httptest.NewServer(mux)
	t.Cleanup(m.Server.Close)
	return m
}

// URL returns the base URL of the fake manager.
func (m *FakeManager) URL() string {
	return m.Server.URL
}

// SetCredentials changes the accepted basic-auth pair.
func (m *FakeManager) SetCredentials(username, password string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.username, m.password = username, password
}

// AddQueue registers a queue.
func (m *FakeManager) AddQueue(q client.Queue) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queues = append(m.queues, q)
}

// AddType registers a job type.
func (m *FakeManager) AddType(t client.JobType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.types = append(m.types, t)
}

// AddSchedule registers a schedule given as a JSON object.
func (m *FakeManager) AddSchedule(raw string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schedules = append(m.schedules, json.RawMessage(raw))
}

// AddJob stores a job, assigning an id when j.ID is zero.
func (m *FakeManager) AddJob(j client.Job) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addJobLocked(j)
}

func (m *FakeManager) addJobLocked(j client.Job) int64 {
	if j.ID == 0 {
		j.ID = m.nextID
	}
	if j.ID >= m.nextID {
		m.nextID = j.ID + 1
	}
	if j.Status == "" {
		j.Status = client.StatusNew
	}
	m.jobs = append(m.jobs, j)
	return j.ID
}

// SetJobStatus changes the status of a stored job.
func (m *FakeManager) SetJobStatus(id int64, status client.JobStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.jobs {
		if m.jobs[i].ID == id {
			m.jobs[i].Status = status
		}
	}
}

// Queue returns the stored queue by name.
func (m *FakeManager) Queue(name string) (client.Queue, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, q := range m.queues {
		if q.Name == name {
			return q, true
		}
	}
	return client.Queue{}, false
}

// Jobs returns the stored jobs of a queue.
func (m *FakeManager) Jobs(queue string) []client.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.jobsLocked(queue)
}

func (m *FakeManager) jobsLocked(queue string) []client.Job {
	out := []client.Job{}
	for _, j := range m.jobs {
		if j.Queue == queue {
			out = append(out, j)
		}
	}
	return out
}

// FailNext makes the next request to route answer with status and body.
func (m *FakeManager) FailNext(route string, status int, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.canned[route] = append(m.canned[route], cannedResponse{status: status, body: body})
}

// RespondRaw makes the next request to route answer 200 with body verbatim.
func (m *FakeManager) RespondRaw(route string, body string) {
	m.FailNext(route, http.StatusOK, body)
}

// Hold blocks the next request to route until release is called. entered
// is closed once that request has arrived.
func (m *FakeManager) Hold(route string) (entered <-chan struct{}, release func()) {
	h := &hold{entered: make(chan struct{}), release: make(chan struct{})}
	m.mu.Lock()
	m.holds[route] = h
	m.mu.Unlock()

	var once sync.Once
	return h.entered, func() { once.Do(func() { close(h.release) }) }
}

// Calls returns how many requests reached route.
func (m *FakeManager) Calls(route string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[route]
}

func (m *FakeManager) handle(mux *http.ServeMux, route string, fn http.HandlerFunc) {
	mux.HandleFunc(route, func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		m.calls[route]++
		user, pass := m.username, m.password
		h := m.holds[route]
		delete(m.holds, route)
		var canned *cannedResponse
		if queue := m.canned[route]; len(queue) > 0 {
			canned = &queue[0]
			m.canned[route] = queue[1:]
		}
		m.mu.Unlock()

		if h != nil {
			close(h.entered)
			select {
			case <-h.release:
			case <-r.Context().Done():
				return
			}
		}

		if u, p, ok := r.BasicAuth(); !ok || u != user || p != pass {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}

		if canned != nil {
			w.WriteHeader(canned.status)
			fmt.Fprint(w, canned.body)
			return
		}
		fn(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (m *FakeManager) listTypes(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	writeJSON(w, append([]client.JobType{}, m.types...))
}

func (m *FakeManager) listQueues(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	writeJSON(w, append([]client.Queue{}, m.queues...))
}

func (m *FakeManager) listSchedules(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	writeJSON(w, append([]json.RawMessage{}, m.schedules...))
}

func (m *FakeManager) createQueue(w http.ResponseWriter, r *http.Request) {
	var q client.Queue
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil || q.Name == "" {
		http.Error(w, "invalid queue", http.StatusBadRequest)
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.queues {
		if existing.Name == q.Name {
			http.Error(w, "queue exists", http.StatusConflict)
			return
		}
	}
	m.queues = append(m.queues, q)
	writeJSON(w, q)
}

func (m *FakeManager) updateQueue(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	name := r.PathValue("name")
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.queues {
		if m.queues[i].Name == name {
			m.queues[i].Enabled = body.Enabled
			w.WriteHeader(http.StatusOK)
			return
		}
	}
	http.Error(w, "no such queue", http.StatusNotFound)
}

func (m *FakeManager) hasQueueLocked(name string) bool {
	for _, q := range m.queues {
		if q.Name == name {
			return true
		}
	}
	return false
}

func (m *FakeManager) listJobs(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.hasQueueLocked(name) {
		http.Error(w, "no such queue", http.StatusNotFound)
		return
	}
	writeJSON(w, m.jobsLocked(name))
}

func (m *FakeManager) enqueue(w http.ResponseWriter, r *http.Request) {
	var req client.EnqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	name := r.PathValue("name")
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.hasQueueLocked(name) {
		http.Error(w, "no such queue", http.StatusNotFound)
		return
	}
	known := false
	for _, t := range m.types {
		if t.Name == req.Type {
			known = true
		}
	}
	if !known {
		http.Error(w, "no such job type", http.StatusBadRequest)
		return
	}
	job := client.Job{Type: req.Type, Queue: name, Status: client.StatusNew, Params: req.Params}
	job.ID = m.addJobLocked(job)
	writeJSON(w, job)
}

func (m *FakeManager) stats(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.hasQueueLocked(name) {
		http.Error(w, "no such queue", http.StatusNotFound)
		return
	}
	counts := map[string]int{}
	for _, j := range m.jobsLocked(name) {
		counts[string(j.Status)]++
	}
	writeJSON(w, counts)
}

func (m *FakeManager) getJob(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, j := range m.jobs {
		if j.ID == id {
			writeJSON(w, j)
			return
		}
	}
	http.Error(w, "no such job", http.StatusNotFound)
}

func (m *FakeManager) deleteJob(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, j := range m.jobs {
		if j.ID == id {
			m.jobs = append(m.jobs[:i], m.jobs[i+1:]...)
			w.WriteHeader(http.StatusOK)
			return
		}
	}
	http.Error(w, "no such job", http.StatusNotFound)
}
