package agent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ErrorKey is the record key carrying a failure description.
const ErrorKey = "error"

type entry struct {
	Name   StepName
	Output string
}

// Record is the partial-results record of one run: the outputs of the
// completed steps in chain order, plus Error when the run halted.
type Record struct {
	entries []entry
	Error   string
}

// Set stores the output of a step.
func (r *Record) Set(name StepName, output string) {
	for i := range r.entries {
		if r.entries[i].Name == name {
			r.entries[i].Output = output
			return
		}
	}
	r.entries = append(r.entries, entry{Name: name, Output: output})
}

// Get returns the output of a step, if it completed.
func (r Record) Get(name StepName) (string, bool) {
	for _, e := range r.entries {
		if e.Name == name {
			return e.Output, true
		}
	}
	return "", false
}

// Steps lists the completed steps in order.
func (r Record) Steps() []StepName {
	names := make([]StepName, len(r.entries))
	for i, e := range r.entries {
		names[i] = e.Name
	}
	return names
}

func (r Record) Len() int { return len(r.entries) }

func (r Record) Failed() bool { return r.Error != "" }

// Complete reports whether every step produced output and nothing failed.
func (r Record) Complete() bool { return !r.Failed() && len(r.entries) == len(StepOrder) }

// Map returns the flat step-name -> output form, including the error key.
func (r Record) Map() map[string]string {
	m := make(map[string]string, len(r.entries)+1)
	for _, e := range r.entries {
		m[string(e.Name)] = e.Output
	}
	if r.Failed() {
		m[ErrorKey] = r.Error
	}
	return m
}

// MarshalJSON writes a flat object with keys in step order and error last.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	write := func(key, value string) error {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		v, err := json.Marshal(value)
		if err != nil {
			return err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
		return nil
	}
	for _, e := range r.entries {
		if err := write(string(e.Name), e.Output); err != nil {
			return nil, err
		}
	}
	if r.Failed() {
		if err := write(ErrorKey, r.Error); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON restores a record, ordering entries by StepOrder.
func (r *Record) UnmarshalJSON(data []byte) error {
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	rec := Record{Error: m[ErrorKey]}
	for _, name := range StepOrder {
		if out, ok := m[string(name)]; ok {
			rec.Set(name, out)
		}
	}
	for key := range m {
		if key != ErrorKey && !StepName(key).Valid() {
			return fmt.Errorf("unknown record key %q", key)
		}
	}
	*r = rec
	return nil
}

// Markdown renders the record as one document with a section per step.
func (r Record) Markdown(idea string) string {
	var sb strings.Builder
	if idea != "" {
		fmt.Fprintf(&sb, "# Blueprint: %s\n\n", idea)
	}
	for _, e := range r.entries {
		fmt.Fprintf(&sb, "## %s\n\n%s\n\n", e.Name.Title(), strings.TrimSpace(e.Output))
	}
	if r.Failed() {
		fmt.Fprintf(&sb, "## Error\n\n%s\n", r.Error)
	}
	return strings.TrimRight(sb.String(), "\n") + "\n"
}
