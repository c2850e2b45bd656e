package agent

const (
	// EventError names the event emitted when a step fails.
	EventError = "Error"
	// EventDone is the end-of-stream sentinel.
	EventDone = "STREAM_END"
)

// Event is one item of the stream: a completed step, an error, or the
// end-of-stream sentinel.
type Event struct {
	Name   string
	Output string
}

func stepEvent(name StepName, output string) Event {
	return Event{Name: string(name), Output: output}
}

func errorEvent(msg string) Event {
	return Event{Name: EventError, Output: msg}
}

func (e Event) IsError() bool { return e.Name == EventError }

func (e Event) IsDone() bool { return e.Name == EventDone }

// Step returns the step the event reports on, if any.
func (e Event) Step() (StepName, bool) {
	n := StepName(e.Name)
	return n, n.Valid()
}
