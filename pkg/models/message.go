package models

// AnonymousAuthor is used when a submission carries no display name.
const AnonymousAuthor = "Anonymous"

// Message is the durable record for a single chat message. Children are
// persisted as an ordered list of ids on the parent; nested message objects
// only ever exist in populated views.
type Message struct {
	ID        string `json:"id"`
	Body      string `json:"body"`
	Author    string `json:"author"`
	CreatedTS int64  `json:"created_ts"`
	// ParentID is empty for root messages and immutable once set.
	ParentID string `json:"parent_id,omitempty"`
	// ChildIDs is append-only, in creation order.
	ChildIDs []string `json:"child_ids,omitempty"`
}

// IsRoot reports whether the message is a top-level (parentless) message.
func (m Message) IsRoot() bool { return m.ParentID == "" }

// Populated is a reconstructed tree view of a message. Views are transient
// and request-scoped; they are never written back to the store.
type Populated struct {
	ID        string `json:"id"`
	Body      string `json:"body"`
	Author    string `json:"author"`
	CreatedTS int64  `json:"created_ts"`
	ParentID  string `json:"parent_id,omitempty"`
	// Children is always non-nil so leaves and depth-truncated nodes
	// serialize as an empty array.
	Children []*Populated `json:"children"`
}

// NewPopulated builds an unexpanded view of a record (empty children).
func NewPopulated(m Message) *Populated {
	return &Populated{
		ID:        m.ID,
		Body:      m.Body,
		Author:    m.Author,
		CreatedTS: m.CreatedTS,
		ParentID:  m.ParentID,
		Children:  []*Populated{},
	}
}
