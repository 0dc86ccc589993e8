package chat

import (
	"testing"

	"threadchat/pkg/models"
	"threadchat/pkg/store"
	"threadchat/pkg/validation"
)

func openTestStore(t *testing.T) {
	t.Helper()
	if err := store.Open(t.TempDir()); err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
}

func TestAttachRoot(t *testing.T) {
	openTestStore(t)

	p, err := Attach(SubmitRequest{Body: "hello", Author: "alice"})
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if p.ID == "" {
		t.Fatalf("missing id in broadcast payload")
	}
	if p.ParentID != "" {
		t.Fatalf("root must have no parent, got %q", p.ParentID)
	}
	if p.Children == nil || len(p.Children) != 0 {
		t.Fatalf("new leaf payload must carry an empty children list")
	}

	ids, err := store.ListRootIDs()
	if err != nil {
		t.Fatalf("list roots: %v", err)
	}
	if len(ids) != 1 || ids[0] != p.ID {
		t.Fatalf("root listing should contain the new root: %v", ids)
	}
}

func TestAttachDefaultsAuthor(t *testing.T) {
	openTestStore(t)

	p, err := Attach(SubmitRequest{Body: "anon says hi"})
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if p.Author != models.AnonymousAuthor {
		t.Fatalf("expected default author %q, got %q", models.AnonymousAuthor, p.Author)
	}
}

func TestAttachReplyLinksUnderParent(t *testing.T) {
	openTestStore(t)

	root, err := Attach(SubmitRequest{Body: "root", Author: "alice"})
	if err != nil {
		t.Fatalf("attach root: %v", err)
	}
	var replies []string
	for _, body := range []string{"first", "second"} {
		r, err := Attach(SubmitRequest{Body: body, Author: "bob", ParentID: root.ID})
		if err != nil {
			t.Fatalf("attach reply: %v", err)
		}
		if r.ParentID != root.ID {
			t.Fatalf("reply parent: expected %s, got %s", root.ID, r.ParentID)
		}
		replies = append(replies, r.ID)
	}

	parent, err := store.GetMessage(root.ID)
	if err != nil {
		t.Fatalf("get parent: %v", err)
	}
	if len(parent.ChildIDs) != 2 || parent.ChildIDs[0] != replies[0] || parent.ChildIDs[1] != replies[1] {
		t.Fatalf("children must append in attach order: %v vs %v", parent.ChildIDs, replies)
	}
}

func TestAttachValidationBeforeWrite(t *testing.T) {
	openTestStore(t)

	_, err := Attach(SubmitRequest{Body: "   ", Author: "alice"})
	if !validation.IsInvalid(err) {
		t.Fatalf("expected validation failure, got %v", err)
	}

	st, err := store.Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.Messages != 0 {
		t.Fatalf("nothing may be persisted on validation failure, found %d records", st.Messages)
	}
}

func TestAttachOrphanPersistedButInvisible(t *testing.T) {
	openTestStore(t)

	p, err := Attach(SubmitRequest{Body: "reply to nobody", Author: "bob", ParentID: "ghost"})
	if err != nil {
		t.Fatalf("attach orphan must succeed: %v", err)
	}
	if _, err := store.GetMessage(p.ID); err != nil {
		t.Fatalf("orphan must be persisted: %v", err)
	}

	ids, err := store.ListRootIDs()
	if err != nil {
		t.Fatalf("list roots: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("orphan must not appear as a root: %v", ids)
	}
}
