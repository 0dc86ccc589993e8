// Package chat implements the server-side insert pipeline: validate,
// persist, link into the parent's child list, and build the broadcast
// payload.
package chat

import (
	"time"

	"github.com/oklog/ulid/v2"

	"threadchat/pkg/logger"
	"threadchat/pkg/models"
	"threadchat/pkg/store"
	"threadchat/pkg/tree"
	"threadchat/pkg/validation"
)

// SubmitRequest is a client submission, over the websocket channel or REST.
type SubmitRequest struct {
	Body     string `json:"body"`
	Author   string `json:"author"`
	ParentID string `json:"parent_id,omitempty"`
}

var (
	defaultAuthor = models.AnonymousAuthor
	populateDepth = tree.DefaultDepth
)

// SetDefaultAuthor overrides the author used for anonymous submissions.
func SetDefaultAuthor(name string) {
	if name != "" {
		defaultAuthor = name
	}
}

// SetPopulateDepth overrides the expansion depth used for the broadcast
// payload (and shared with the read API).
func SetPopulateDepth(n int) {
	if n > 0 {
		populateDepth = n
	}
}

// Attach validates and persists a submission, links it under its parent
// when one is named, and returns the populated new leaf (its own subtree,
// normally just itself) for broadcast. Validation failures surface before
// any store write. A parent id that matches no stored message leaves the
// message persisted as an orphan; the link is dropped silently.
//
// There is no transaction spanning create and link: a crash between the two
// commits leaves an orphan, which listings simply never reach.
func Attach(req SubmitRequest) (*models.Populated, error) {
	if err := validation.ValidateBody(req.Body); err != nil {
		return nil, err
	}
	author := req.Author
	if author == "" {
		author = defaultAuthor
	}
	m := models.Message{
		ID:        ulid.Make().String(),
		Body:      req.Body,
		Author:    author,
		CreatedTS: time.Now().UTC().UnixNano(),
		ParentID:  req.ParentID,
	}
	if err := store.CreateMessage(m); err != nil {
		return nil, err
	}
	if m.ParentID != "" {
		if err := store.LinkChild(m.ParentID, m.ID); err != nil {
			return nil, err
		}
	}
	populated, err := tree.Populate(m.ID, populateDepth)
	if err != nil {
		return nil, err
	}
	logger.Info("message_attached", "id", m.ID, "parent", m.ParentID, "author", author)
	return populated, nil
}
