// Package tree rebuilds populated reply trees from the flat store.
package tree

import (
	"errors"
	"fmt"

	"threadchat/pkg/logger"
	"threadchat/pkg/models"
	"threadchat/pkg/store"
)

// DefaultDepth bounds reply-tree expansion. Threads deeper than this are
// truncated with no marker; callers see an empty children list at the
// boundary.
const DefaultDepth = 3

// Populate expands the message rootID into a tree view, attaching children
// up to maxDepth levels below the root. At depth 0 a node keeps an empty,
// unexpanded children list. A missing root returns store.ErrNotFound;
// stale child ids are skipped by the store's child lookup.
//
// Expansion runs over an explicit worklist rather than recursion so deep or
// malformed child chains cannot exhaust the call stack.
func Populate(rootID string, maxDepth int) (*models.Populated, error) {
	root, err := store.GetMessage(rootID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("populate %s: %w", rootID, store.ErrNotFound)
		}
		return nil, err
	}

	type item struct {
		node  *models.Populated
		depth int
	}

	view := models.NewPopulated(root)
	work := []item{{node: view, depth: maxDepth}}
	for len(work) > 0 {
		it := work[len(work)-1]
		work = work[:len(work)-1]
		if it.depth <= 0 {
			continue
		}
		children, err := store.ChildrenOf(it.node.ID)
		if errors.Is(err, store.ErrNotFound) {
			// record vanished mid-walk; leave the node unexpanded
			logger.Warn("populate_node_missing", "id", it.node.ID)
			continue
		}
		if err != nil {
			return nil, err
		}
		for _, child := range children {
			cn := models.NewPopulated(child)
			it.node.Children = append(it.node.Children, cn)
			work = append(work, item{node: cn, depth: it.depth - 1})
		}
	}
	return view, nil
}

// ListRoots reconstructs every root tree independently, in creation order.
// A root index entry whose record has vanished is skipped rather than
// failing the snapshot.
func ListRoots(maxDepth int) ([]*models.Populated, error) {
	ids, err := store.ListRootIDs()
	if err != nil {
		return nil, err
	}
	out := make([]*models.Populated, 0, len(ids))
	for _, id := range ids {
		p, err := Populate(id, maxDepth)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				logger.Warn("root_record_missing", "id", id)
				continue
			}
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
