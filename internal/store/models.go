package store

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rahul/blueprint/internal/agent"
)

const titleLength = 80

// Chat is one stored pipeline run: the idea a user submitted and the
// record it produced.
type Chat struct {
	ID          string       `json:"id"`
	UserID      string       `json:"-"`
	Title       string       `json:"title"`
	ProductIdea string       `json:"product_idea"`
	Response    agent.Record `json:"response"`
	CreatedAt   time.Time    `json:"created_at"`
}

// NewChat assigns an id, title and creation time to a finished run.
func NewChat(userID, idea string, rec agent.Record) Chat {
	return Chat{
		ID:          uuid.NewString(),
		UserID:      userID,
		Title:       makeTitle(idea),
		ProductIdea: idea,
		Response:    rec,
		CreatedAt:   time.Now().UTC(),
	}
}

func makeTitle(idea string) string {
	idea = strings.Join(strings.Fields(idea), " ")
	r := []rune(idea)
	if len(r) <= titleLength {
		return idea
	}
	return string(r[:titleLength-3]) + "..."
}
