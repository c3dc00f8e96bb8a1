package client

import (
	"strconv"
	"strings"
)

// ParamType is the declared type of a job type parameter
type ParamType string

const (
	ParamString     ParamType = "string"
	ParamInteger    ParamType = "integer"
	ParamInputFile  ParamType = "input_file"
	ParamOutputFile ParamType = "output_file"
)

// ParamSpec describes one enqueue input of a job type
type ParamSpec struct {
	Name    string    `json:"name"`
	Type    ParamType `json:"type"`
	Title   string    `json:"title,omitempty"`
	Default *string   `json:"default,omitempty"`
}

// DisplayTitle returns Title, falling back to Name
func (p ParamSpec) DisplayTitle() string {
	if p.Title != "" {
		return p.Title
	}
	return p.Name
}

// DefaultValue returns the default or "" when none is declared
func (p ParamSpec) DefaultValue() string {
	if p.Default == nil {
		return ""
	}
	return *p.Default
}

// CheckValue reports whether value is acceptable for this parameter's type.
// Only integers are constrained; every other type accepts any string.
func (p ParamSpec) CheckValue(value string) error {
	if p.Type == ParamInteger {
		if _, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err != nil {
			return err
		}
	}
	return nil
}

// JobType is a named job template with declared parameters
type JobType struct {
	Name   string      `json:"name"`
	Title  string      `json:"title,omitempty"`
	Params []ParamSpec `json:"params"`
}

// DisplayTitle returns Title, falling back to Name
func (t JobType) DisplayTitle() string {
	if t.Title != "" {
		return t.Title
	}
	return t.Name
}

// Param looks up a parameter by name
func (t JobType) Param(name string) (ParamSpec, bool) {
	for _, p := range t.Params {
		if p.Name == name {
			return p, true
		}
	}
	return ParamSpec{}, false
}

// Queue is a named, schedulable channel of jobs
type Queue struct {
	Name         string `json:"name"`
	Title        string `json:"title"`
	Enabled      bool   `json:"enabled"`
	ScheduleName string `json:"schedule_name,omitempty"`
	HostName     string `json:"host_name,omitempty"`
}

// DisplayTitle returns Title, falling back to Name
func (q Queue) DisplayTitle() string {
	if q.Title != "" {
		return q.Title
	}
	return q.Name
}

// Host returns the bound host name or "*" for any host
func (q Queue) Host() string {
	if q.HostName == "" {
		return "*"
	}
	return q.HostName
}

// JobStatus is the lifecycle status of a job
type JobStatus string

const (
	StatusNew        JobStatus = "new"
	StatusProcessing JobStatus = "processing"
	StatusDone       JobStatus = "done"
	StatusFailed     JobStatus = "failed"
)

// AllStatuses lists the statuses reported by the stats endpoint, in display order
var AllStatuses = []JobStatus{StatusNew, StatusProcessing, StatusDone, StatusFailed}

// Job is one unit of work in a queue
type Job struct {
	ID     int64             `json:"id"`
	Type   string            `json:"type"`
	Queue  string            `json:"queue"`
	Status JobStatus         `json:"status"`
	Params map[string]string `json:"params"`
}

// QueueStats counts jobs per status for one queue
type QueueStats struct {
	Counts map[JobStatus]int
}

// Count returns the number of jobs with status (0 when absent)
func (s QueueStats) Count(status JobStatus) int {
	return s.Counts[status]
}

// Total returns the sum over all statuses
func (s QueueStats) Total() int {
	total := 0
	for _, n := range s.Counts {
		total += n
	}
	return total
}

// Schedule is a named trigger description. Everything but the name is
// opaque to the client and kept as raw JSON.
type Schedule struct {
	Name string
	Raw  []byte
}

// EnqueueRequest is the body of POST /queue/{name}
type EnqueueRequest struct {
	Queue  string            `json:"queue"`
	Type   string            `json:"type"`
	Params map[string]string `json:"params"`
}

// queueUpdate is the body of PUT /queue/{name}
type queueUpdate struct {
	Enabled bool `json:"enabled"`
}
