package api

import (
	"bytes"
	"encoding/json"

	"github.com/rahul/blueprint/internal/agent"
)

type frame struct {
	AgentName string `json:"agent_name"`
	Output    string `json:"output"`
}

// Payload is the body of one stream frame: the JSON object for a step or
// error event, the literal STREAM_END for the terminal event.
func Payload(ev agent.Event) []byte {
	if ev.IsDone() {
		return []byte(agent.EventDone)
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(frame{AgentName: ev.Name, Output: ev.Output}); err != nil {
		// unreachable for string fields
		return []byte(`{"agent_name":"Error","output":"frame encoding failed"}`)
	}
	return bytes.TrimRight(buf.Bytes(), "\n")
}

// SSEFrame wraps the payload in the data: ... blank-line convention.
func SSEFrame(ev agent.Event) []byte {
	p := Payload(ev)
	out := make([]byte, 0, len(p)+8)
	out = append(out, "data: "...)
	out = append(out, p...)
	return append(out, '\n', '\n')
}

// collector rebuilds the record of a streamed run.
type collector struct {
	rec agent.Record
}

func (c *collector) add(ev agent.Event) {
	if name, ok := ev.Step(); ok {
		c.rec.Set(name, ev.Output)
		return
	}
	if ev.IsError() {
		c.rec.Error = ev.Output
	}
}
