package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/pebble"

	"threadchat/pkg/logger"
	"threadchat/pkg/models"
)

var (
	db     *pebble.DB
	dbPath string

	// seq disambiguates root index keys when two roots share the same
	// nanosecond timestamp.
	seq uint64

	// linkMu serializes read-modify-write appends to a parent's child
	// list so concurrent replies to the same parent both land. Each
	// append is still a single durable commit.
	linkMu sync.Mutex
)

// ErrNotFound is returned when a message id has no stored record.
var ErrNotFound = errors.New("message not found")

// Open opens (or creates) a Pebble database at the given path and keeps a
// global handle for simple usage in this package.
func Open(path string) error {
	var err error
	logger.Info("opening_pebble_db", "path", path)
	db, err = pebble.Open(path, &pebble.Options{})
	if err != nil {
		logger.Error("pebble_open_failed", "path", path, "error", err)
		return err
	}
	dbPath = path
	logger.Info("pebble_opened", "path", path)
	return nil
}

// Close closes the opened pebble DB if present.
func Close() error {
	if db == nil {
		return nil
	}
	if err := db.Close(); err != nil {
		return err
	}
	db = nil
	logger.Info("pebble_closed")
	return nil
}

// Ready reports whether the store is opened and ready.
func Ready() bool {
	return db != nil
}

func msgKey(id string) []byte { return []byte("msg:" + id) }

// CreateMessage durably writes a message record keyed by id. Root messages
// additionally get a sortable index key so root listings iterate in
// creation order. Each write is an individually atomic commit; there is no
// transaction spanning the record and the root index.
func CreateMessage(m models.Message) error {
	if db == nil {
		return fmt.Errorf("pebble not opened; call store.Open first")
	}
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	if err := db.Set(msgKey(m.ID), data, pebble.Sync); err != nil {
		logger.Error("save_message_failed", "id", m.ID, "error", err)
		return err
	}
	if m.IsRoot() {
		s := atomic.AddUint64(&seq, 1)
		idxKey := fmt.Sprintf("root:%020d-%06d", m.CreatedTS, s)
		if err := db.Set([]byte(idxKey), []byte(m.ID), pebble.Sync); err != nil {
			logger.Error("save_root_index_failed", "id", m.ID, "key", idxKey, "error", err)
			return err
		}
	}
	messagesCreated.Inc()
	logger.Info("message_saved", "id", m.ID, "parent", m.ParentID)
	return nil
}

// GetMessage returns the stored record for id, or ErrNotFound.
func GetMessage(id string) (models.Message, error) {
	var m models.Message
	if db == nil {
		return m, fmt.Errorf("pebble not opened; call store.Open first")
	}
	v, closer, err := db.Get(msgKey(id))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return m, ErrNotFound
		}
		logger.Error("get_message_failed", "id", id, "error", err)
		return m, err
	}
	if closer != nil {
		defer closer.Close()
	}
	if err := json.Unmarshal(v, &m); err != nil {
		return m, fmt.Errorf("invalid stored message %s: %w", id, err)
	}
	return m, nil
}

// LinkChild appends childID to the parent's child list and rewrites the
// parent record in one durable commit. Linking against a missing parent is
// a silent no-op: the child stays persisted as an orphan.
func LinkChild(parentID, childID string) error {
	if db == nil {
		return fmt.Errorf("pebble not opened; call store.Open first")
	}
	linkMu.Lock()
	defer linkMu.Unlock()
	parent, err := GetMessage(parentID)
	if errors.Is(err, ErrNotFound) {
		orphanLinks.Inc()
		logger.Warn("orphan_link_dropped", "parent", parentID, "child", childID)
		return nil
	}
	if err != nil {
		return err
	}
	parent.ChildIDs = append(parent.ChildIDs, childID)
	data, err := json.Marshal(parent)
	if err != nil {
		return fmt.Errorf("failed to marshal parent: %w", err)
	}
	if err := db.Set(msgKey(parentID), data, pebble.Sync); err != nil {
		logger.Error("link_child_failed", "parent", parentID, "child", childID, "error", err)
		return err
	}
	childLinks.Inc()
	logger.Info("child_linked", "parent", parentID, "child", childID)
	return nil
}

// ChildrenOf returns the child records of id in creation order. Stale child
// ids with no record are skipped with a warning rather than failing the
// whole read.
func ChildrenOf(id string) ([]models.Message, error) {
	parent, err := GetMessage(id)
	if err != nil {
		return nil, err
	}
	out := make([]models.Message, 0, len(parent.ChildIDs))
	for _, cid := range parent.ChildIDs {
		c, err := GetMessage(cid)
		if errors.Is(err, ErrNotFound) {
			logger.Warn("child_record_missing", "parent", id, "child", cid)
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// ListRootIDs returns the ids of all root messages in creation order.
func ListRootIDs() ([]string, error) {
	if db == nil {
		return nil, fmt.Errorf("pebble not opened; call store.Open first")
	}
	prefix := []byte("root:")
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []string
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		v := append([]byte(nil), iter.Value()...)
		out = append(out, string(v))
	}
	return out, iter.Error()
}

// ForestStats is a point-in-time census of the stored forest.
type ForestStats struct {
	Messages int
	Roots    int
	Orphans  int
}

// Stats scans all message records and counts totals, roots and orphans
// (messages whose declared parent has no record). Used by the janitor
// sweep; cost is linear in the store size.
func Stats() (ForestStats, error) {
	var st ForestStats
	if db == nil {
		return st, fmt.Errorf("pebble not opened; call store.Open first")
	}
	prefix := []byte("msg:")
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return st, err
	}
	defer iter.Close()
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		var m models.Message
		if err := json.Unmarshal(iter.Value(), &m); err != nil {
			logger.Warn("stats_invalid_record", "key", string(iter.Key()))
			continue
		}
		st.Messages++
		if m.IsRoot() {
			st.Roots++
			continue
		}
		_, closer, err := db.Get(msgKey(m.ParentID))
		if errors.Is(err, pebble.ErrNotFound) {
			st.Orphans++
		} else if err == nil && closer != nil {
			_ = closer.Close()
		}
	}
	return st, iter.Error()
}
