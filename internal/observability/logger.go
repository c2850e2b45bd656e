package observability

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EventType defines the category of the log event.
type EventType string

const (
	EventTypePipeline  EventType = "pipeline"
	EventTypeStep      EventType = "step"
	EventTypeLLM       EventType = "llm"
	EventTypeHTTP      EventType = "http"
	EventTypePersist   EventType = "persist"
	EventTypeGateway   EventType = "gateway"
	EventTypeHeartbeat EventType = "heartbeat"
)

// Event represents a structured log entry.
type Event struct {
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id,omitempty"`
	Step      string    `json:"step,omitempty"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Logger handles structured logging. A nil *Logger discards everything.
type Logger struct {
	mu         sync.Mutex
	out        io.Writer
	llmLogPath string
	maxSize    int64
}

func NewLogger() *Logger {
	return &Logger{
		out:        os.Stdout,
		llmLogPath: filepath.Join("logs", "llm.jsonl"),
		maxSize:    10 * 1024 * 1024, // 10MB
	}
}

// NewLoggerTo writes events to out and LLM transcripts under dir.
func NewLoggerTo(out io.Writer, dir string) *Logger {
	l := NewLogger()
	l.out = out
	l.llmLogPath = filepath.Join(dir, "llm.jsonl")
	return l
}

// Log emits a structured JSON event.
func (l *Logger) Log(evt Event) {
	if l == nil {
		return
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	data, err := json.Marshal(evt)
	if err != nil {
		fmt.Fprintf(l.out, "{\"error\": \"failed to marshal event: %v\"}\n", err)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.out, string(data))

	if evt.Type == EventTypeLLM {
		l.writeToFile(data)
	}
}

func (l *Logger) writeToFile(data []byte) {
	if err := os.MkdirAll(filepath.Dir(l.llmLogPath), 0755); err != nil {
		log.Printf("failed to create log directory: %v", err)
		return
	}

	info, err := os.Stat(l.llmLogPath)
	if err == nil && info.Size() > l.maxSize {
		l.rotateLogs()
	}

	f, err := os.OpenFile(l.llmLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("failed to open log file: %v", err)
		return
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		log.Printf("failed to write to log file: %v", err)
	}
}

// keeps one .old file
func (l *Logger) rotateLogs() {
	oldPath := l.llmLogPath + ".old"
	_ = os.Remove(oldPath)
	_ = os.Rename(l.llmLogPath, oldPath)
}

func (l *Logger) LogPipeline(runID, status string, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	data["status"] = status
	l.Log(Event{Type: EventTypePipeline, RunID: runID, Data: data})
}

func (l *Logger) LogStep(runID, step string, elapsed time.Duration, err error) {
	data := map[string]any{"elapsed_ms": elapsed.Milliseconds()}
	if err != nil {
		data["error"] = err.Error()
	}
	l.Log(Event{Type: EventTypeStep, RunID: runID, Step: step, Data: data})
}

func (l *Logger) LogHTTP(method, path string, status int, elapsed time.Duration) {
	l.Log(Event{
		Type: EventTypeHTTP,
		Data: map[string]any{
			"method":     method,
			"path":       path,
			"status":     status,
			"elapsed_ms": elapsed.Milliseconds(),
		},
	})
}

func (l *Logger) LogPersist(op, chatID string, err error) {
	data := map[string]any{"op": op, "chat_id": chatID}
	if err != nil {
		data["error"] = err.Error()
	}
	l.Log(Event{Type: EventTypePersist, Data: data})
}

func (l *Logger) LogGateway(gateway, chatID, text string) {
	l.Log(Event{
		Type: EventTypeGateway,
		Data: map[string]string{"gateway": gateway, "chat_id": chatID, "text": text},
	})
}

func (l *Logger) LogHeartbeat() {
	l.Log(Event{
		Type: EventTypeHeartbeat,
		Data: map[string]string{"status": "alive"},
	})
}

// LogLLM records a prompt/response pair. taskID names the model.
func (l *Logger) LogLLM(chatID, taskID string, prompt any, response string, toolCalls any) {
	l.Log(Event{
		Type:  EventTypeLLM,
		RunID: chatID,
		Step:  taskID,
		Data: map[string]any{
			"prompt":     prompt,
			"response":   response,
			"tool_calls": toolCalls,
		},
	})
}
