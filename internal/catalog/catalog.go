// Package catalog implements the Models Service (C11): the OpenAI
// GET /v1/models response, unioning the chat and embedding descriptor
// tables the way the teacher's /api/info unifies Ollama's own model list
// — except here there's no live backend to ask, so the descriptor table
// in internal/models is the entire answer.
package catalog

import "github.com/otronforge/gateway/internal/models"

// Entry is one item of the OpenAI model list.
type Entry struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

// List is the full GET /v1/models response body.
type List struct {
	Object string  `json:"object"`
	Data   []Entry `json:"data"`
}

// fixedCreated is used for every entry: these are static local catalog
// descriptors, not objects with a real creation timestamp, and §6 only
// requires the field be present and numeric.
const fixedCreated int64 = 1700000000

// Build unions every chat and embedding descriptor into one model list.
func Build() List {
	chat := models.AllChat()
	emb := models.AllEmbeddings()
	entries := make([]Entry, 0, len(chat)+len(emb))
	for _, d := range chat {
		entries = append(entries, Entry{ID: d.ID, Object: "model", Created: fixedCreated, OwnedBy: d.OwnedBy})
	}
	for _, d := range emb {
		entries = append(entries, Entry{ID: d.ID, Object: "model", Created: fixedCreated, OwnedBy: d.OwnedBy})
	}
	return List{Object: "list", Data: entries}
}
