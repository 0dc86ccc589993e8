package store

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"threadchat/pkg/models"
)

func openTestStore(t *testing.T) {
	t.Helper()
	if err := Open(t.TempDir()); err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
}

func TestCreateAndGetMessage(t *testing.T) {
	openTestStore(t)

	m := models.Message{ID: "m1", Body: "hello", Author: "alice", CreatedTS: 100}
	if err := CreateMessage(m); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := GetMessage("m1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != m.ID || got.Body != m.Body || got.Author != m.Author || got.CreatedTS != m.CreatedTS {
		t.Fatalf("round trip mismatch: %+v vs %+v", got, m)
	}
}

func TestGetMessageNotFound(t *testing.T) {
	openTestStore(t)

	_, err := GetMessage("nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLinkChildAppendsInOrder(t *testing.T) {
	openTestStore(t)

	if err := CreateMessage(models.Message{ID: "p", Body: "parent", CreatedTS: 1}); err != nil {
		t.Fatalf("create parent: %v", err)
	}
	for i := 0; i < 3; i++ {
		id := fmt.Sprintf("c%d", i)
		if err := CreateMessage(models.Message{ID: id, Body: "reply", CreatedTS: int64(10 + i), ParentID: "p"}); err != nil {
			t.Fatalf("create child %s: %v", id, err)
		}
		if err := LinkChild("p", id); err != nil {
			t.Fatalf("link child %s: %v", id, err)
		}
	}

	parent, err := GetMessage("p")
	if err != nil {
		t.Fatalf("get parent: %v", err)
	}
	want := []string{"c0", "c1", "c2"}
	if len(parent.ChildIDs) != len(want) {
		t.Fatalf("expected %d children, got %v", len(want), parent.ChildIDs)
	}
	for i, id := range want {
		if parent.ChildIDs[i] != id {
			t.Fatalf("child order: expected %v, got %v", want, parent.ChildIDs)
		}
	}
}

func TestLinkChildMissingParentIsNoop(t *testing.T) {
	openTestStore(t)

	if err := CreateMessage(models.Message{ID: "orphan", Body: "hi", CreatedTS: 1, ParentID: "ghost"}); err != nil {
		t.Fatalf("create orphan: %v", err)
	}
	if err := LinkChild("ghost", "orphan"); err != nil {
		t.Fatalf("link to missing parent must not error: %v", err)
	}
	// the orphan record itself survives
	if _, err := GetMessage("orphan"); err != nil {
		t.Fatalf("orphan record must stay persisted: %v", err)
	}
	if _, err := GetMessage("ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("ghost parent must not be created: %v", err)
	}
}

func TestConcurrentLinksSameParent(t *testing.T) {
	openTestStore(t)

	if err := CreateMessage(models.Message{ID: "p", Body: "parent", CreatedTS: 1}); err != nil {
		t.Fatalf("create parent: %v", err)
	}
	const n = 16
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("r%d", i)
		if err := CreateMessage(models.Message{ID: id, Body: "reply", CreatedTS: int64(i), ParentID: "p"}); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if err := LinkChild("p", id); err != nil {
				t.Errorf("link %s: %v", id, err)
			}
		}(id)
	}
	wg.Wait()

	parent, err := GetMessage("p")
	if err != nil {
		t.Fatalf("get parent: %v", err)
	}
	if len(parent.ChildIDs) != n {
		t.Fatalf("expected %d links to survive, got %d", n, len(parent.ChildIDs))
	}
	seen := map[string]bool{}
	for _, id := range parent.ChildIDs {
		if seen[id] {
			t.Fatalf("duplicate link %s", id)
		}
		seen[id] = true
	}
}

func TestChildrenOfSkipsStaleIDs(t *testing.T) {
	openTestStore(t)

	if err := CreateMessage(models.Message{ID: "p", Body: "parent", CreatedTS: 1}); err != nil {
		t.Fatalf("create parent: %v", err)
	}
	if err := CreateMessage(models.Message{ID: "c1", Body: "real", CreatedTS: 2, ParentID: "p"}); err != nil {
		t.Fatalf("create child: %v", err)
	}
	if err := LinkChild("p", "c1"); err != nil {
		t.Fatalf("link: %v", err)
	}
	// stale link: id recorded but no record exists
	if err := LinkChild("p", "c-gone"); err != nil {
		t.Fatalf("link stale: %v", err)
	}

	kids, err := ChildrenOf("p")
	if err != nil {
		t.Fatalf("children: %v", err)
	}
	if len(kids) != 1 || kids[0].ID != "c1" {
		t.Fatalf("expected only c1, got %+v", kids)
	}
}

func TestListRootIDsCreationOrder(t *testing.T) {
	openTestStore(t)

	for i, id := range []string{"r1", "r2", "r3"} {
		if err := CreateMessage(models.Message{ID: id, Body: "root", CreatedTS: int64(100 + i)}); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}
	// replies never show up in the root listing
	if err := CreateMessage(models.Message{ID: "c", Body: "reply", CreatedTS: 999, ParentID: "r1"}); err != nil {
		t.Fatalf("create reply: %v", err)
	}

	ids, err := ListRootIDs()
	if err != nil {
		t.Fatalf("list roots: %v", err)
	}
	want := []string{"r1", "r2", "r3"}
	if len(ids) != len(want) {
		t.Fatalf("expected %v, got %v", want, ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("root order: expected %v, got %v", want, ids)
		}
	}
}

func TestStatsCountsOrphans(t *testing.T) {
	openTestStore(t)

	if err := CreateMessage(models.Message{ID: "r", Body: "root", CreatedTS: 1}); err != nil {
		t.Fatalf("create root: %v", err)
	}
	if err := CreateMessage(models.Message{ID: "c", Body: "reply", CreatedTS: 2, ParentID: "r"}); err != nil {
		t.Fatalf("create reply: %v", err)
	}
	if err := CreateMessage(models.Message{ID: "o", Body: "lost", CreatedTS: 3, ParentID: "ghost"}); err != nil {
		t.Fatalf("create orphan: %v", err)
	}

	st, err := Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.Messages != 3 || st.Roots != 1 || st.Orphans != 1 {
		t.Fatalf("unexpected stats: %+v", st)
	}
}
