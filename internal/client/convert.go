package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// UnmarshalJSON accepts the manager's type names in any case and with or
// without underscores ("InputFile", "input_file", "INTEGER").
func (t *ParamType) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*t = normalizeParamType(raw)
	return nil
}

func normalizeParamType(raw string) ParamType {
	switch strings.ToLower(strings.ReplaceAll(raw, "_", "")) {
	case "string", "str", "text":
		return ParamString
	case "integer", "int":
		return ParamInteger
	case "inputfile":
		return ParamInputFile
	case "outputfile":
		return ParamOutputFile
	default:
		return ParamType(raw)
	}
}

// UnmarshalJSON accepts a default given as a JSON string or a bare number.
func (p *ParamSpec) UnmarshalJSON(data []byte) error {
	type wire struct {
		Name    string          `json:"name"`
		Type    ParamType       `json:"type"`
		Title   string          `json:"title"`
		Default json.RawMessage `json:"default"`
	}
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	*p = ParamSpec{Name: w.Name, Type: w.Type, Title: w.Title}
	def := bytes.TrimSpace(w.Default)
	if len(def) == 0 || bytes.Equal(def, []byte("null")) {
		return nil
	}

	var s string
	if err := json.Unmarshal(def, &s); err == nil {
		p.Default = &s
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(def, &n); err != nil {
		return fmt.Errorf("param %q: default must be a string or number", w.Name)
	}
	s = n.String()
	p.Default = &s
	return nil
}

// UnmarshalJSON reads {"new": n, "processing": n, "done": n, "failed": n}.
// Missing statuses count as zero; unknown keys are ignored.
func (s *QueueStats) UnmarshalJSON(data []byte) error {
	var raw map[string]int
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		return errors.New("stats must be a JSON object")
	}
	s.Counts = make(map[JobStatus]int, len(AllStatuses))
	for _, status := range AllStatuses {
		s.Counts[status] = raw[string(status)]
	}
	return nil
}

// MarshalJSON writes the four status counts as a flat object.
func (s QueueStats) MarshalJSON() ([]byte, error) {
	out := make(map[string]int, len(AllStatuses))
	for _, status := range AllStatuses {
		out[string(status)] = s.Counts[status]
	}
	return json.Marshal(out)
}

// UnmarshalJSON keeps the whole object as Raw and extracts the name.
func (s *Schedule) UnmarshalJSON(data []byte) error {
	var head struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	s.Name = head.Name
	s.Raw = append([]byte(nil), data...)
	return nil
}

// Description renders the trigger fields (everything except the name) as
// compact JSON with sorted keys.
func (s Schedule) Description() string {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(s.Raw, &fields); err != nil {
		return ""
	}
	delete(fields, "name")
	if len(fields) == 0 {
		return ""
	}
	out, err := json.Marshal(fields)
	if err != nil {
		return ""
	}
	return string(out)
}

// Shape checks applied after decoding. A body that decodes but lacks the
// identifying fields is treated as a protocol mismatch.

func validateQueue(q Queue) error {
	if q.Name == "" {
		return errors.New("queue without name")
	}
	return nil
}

func validateQueues(qs []Queue) error {
	for i, q := range qs {
		if err := validateQueue(q); err != nil {
			return fmt.Errorf("queue[%d]: %w", i, err)
		}
	}
	return nil
}

func validateJobTypes(ts []JobType) error {
	for i, t := range ts {
		if t.Name == "" {
			return fmt.Errorf("type[%d]: job type without name", i)
		}
		for j, p := range t.Params {
			if p.Name == "" {
				return fmt.Errorf("type %q param[%d]: parameter without name", t.Name, j)
			}
		}
	}
	return nil
}

func validateJob(j Job) error {
	if j.Type == "" {
		return fmt.Errorf("job %d without type", j.ID)
	}
	return nil
}

func validateJobs(js []Job) error {
	for i, j := range js {
		if err := validateJob(j); err != nil {
			return fmt.Errorf("job[%d]: %w", i, err)
		}
	}
	return nil
}

func validateSchedules(ss []Schedule) error {
	for i, s := range ss {
		if s.Name == "" {
			return fmt.Errorf("schedule[%d]: schedule without name", i)
		}
	}
	return nil
}
