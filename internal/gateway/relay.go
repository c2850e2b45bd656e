package gateway

import (
	"context"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/rahul/blueprint/internal/agent"
	"github.com/rahul/blueprint/internal/governance"
	"github.com/rahul/blueprint/internal/observability"
	"github.com/rahul/blueprint/internal/store"
)

// Relay turns an incoming chat message into a streamed pipeline run,
// sending one chat message per event.
type Relay struct {
	Executor *agent.Executor
	Repo     store.ChatRepository
	Policy   governance.PolicyEngine
	Logger   *observability.Logger
}

// Handle runs the pipeline for idea and delivers every event through
// send, split into chunks of at most limit characters.
func (r *Relay) Handle(ctx context.Context, userID, idea string, limit int, send func(text string) error) error {
	res, err := r.Policy.Evaluate(ctx, governance.Request{Idea: idea, UserID: userID})
	if err != nil {
		return err
	}
	if res.Effect != governance.EffectAllow {
		return send("Cannot start a blueprint: " + res.Reason)
	}

	if err := send(fmt.Sprintf("Working on a blueprint for: %s", res.Idea)); err != nil {
		return err
	}

	var rec agent.Record
	var sendErr error
	for ev := range r.Executor.Stream(ctx, res.Idea) {
		if name, ok := ev.Step(); ok {
			rec.Set(name, ev.Output)
		}
		if ev.IsError() {
			rec.Error = ev.Output
		}
		if sendErr != nil {
			continue
		}
		for _, chunk := range SplitMessage(FormatEvent(ev), limit) {
			if err := send(chunk); err != nil {
				sendErr = err
				break
			}
		}
	}

	if rec.Complete() && r.Repo != nil {
		chat := store.NewChat(userID, res.Idea, rec)
		err := r.Repo.Save(context.WithoutCancel(ctx), chat)
		r.Logger.LogPersist("save", chat.ID, err)
		if err != nil {
			log.Printf("persist chat for %s failed: %v", userID, err)
		}
	}
	return sendErr
}

// FormatEvent renders an event as a chat message.
func FormatEvent(ev agent.Event) string {
	switch {
	case ev.IsDone():
		return "Blueprint finished."
	case ev.IsError():
		return "Error: " + ev.Output
	}
	name, _ := ev.Step()
	return fmt.Sprintf("*%s*\n\n%s", name.Title(), strings.TrimSpace(ev.Output))
}

// SplitMessage cuts text into chunks of at most limit runes, preferring
// line breaks.
func SplitMessage(text string, limit int) []string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var chunks []string
	runes := []rune(text)
	for len(runes) > limit {
		cut := limit
		for i := limit; i > limit/2; i-- {
			if runes[i-1] == '\n' {
				cut = i
				break
			}
		}
		chunks = append(chunks, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}
	return chunks
}
