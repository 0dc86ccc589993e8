// Package client holds the client-side mirror of the server's attach
// logic: a projected forest of reply trees that merges one broadcast
// message at a time without refetching.
package client

import "threadchat/pkg/models"

// Node is one projected message. Children are held as ordered ids so a
// merge can copy just the path-affected nodes instead of deep-cloning the
// forest.
type Node struct {
	ID        string
	Body      string
	Author    string
	CreatedTS int64
	ParentID  string
	ChildIDs  []string
}

// Forest is an immutable projected view of root trees. Merge returns a new
// Forest value; existing values are never mutated, so a UI can hold the old
// version while rendering the new one.
type Forest struct {
	nodes map[string]*Node
	roots []string
}

// New returns an empty forest.
func New() Forest {
	return Forest{nodes: map[string]*Node{}}
}

// FromSnapshot indexes a full server snapshot (ordered root trees) into a
// forest. Node order follows the snapshot's children ordering.
func FromSnapshot(trees []*models.Populated) Forest {
	f := Forest{nodes: map[string]*Node{}, roots: make([]string, 0, len(trees))}
	var index func(p *models.Populated)
	index = func(p *models.Populated) {
		n := &Node{
			ID:        p.ID,
			Body:      p.Body,
			Author:    p.Author,
			CreatedTS: p.CreatedTS,
			ParentID:  p.ParentID,
		}
		for _, c := range p.Children {
			n.ChildIDs = append(n.ChildIDs, c.ID)
		}
		f.nodes[p.ID] = n
		for _, c := range p.Children {
			index(c)
		}
	}
	for _, t := range trees {
		f.roots = append(f.roots, t.ID)
		index(t)
	}
	return f
}

// Len reports the number of projected messages.
func (f Forest) Len() int { return len(f.nodes) }

// Has reports whether id is present in the forest.
func (f Forest) Has(id string) bool {
	_, ok := f.nodes[id]
	return ok
}

// Merge attaches one incoming message to the forest and returns the updated
// value. A parentless message is appended as a new root. Otherwise the
// parent is located (ids are globally unique, so the index lookup is the
// depth-first first-match) and the message is appended to its children;
// only the parent node is replaced, everything else is shared with the
// input forest. A message whose parent is not in the forest is silently
// dropped: an accepted inconsistency window, resolved by the next full
// snapshot. Re-delivered ids are ignored.
func Merge(f Forest, m *models.Populated) Forest {
	if f.nodes == nil {
		f = New()
	}
	if _, ok := f.nodes[m.ID]; ok {
		return f
	}
	n := &Node{
		ID:        m.ID,
		Body:      m.Body,
		Author:    m.Author,
		CreatedTS: m.CreatedTS,
		ParentID:  m.ParentID,
	}

	if m.ParentID == "" {
		nodes := cloneNodes(f.nodes)
		nodes[n.ID] = n
		roots := make([]string, 0, len(f.roots)+1)
		roots = append(roots, f.roots...)
		roots = append(roots, n.ID)
		return Forest{nodes: nodes, roots: roots}
	}

	parent, ok := f.nodes[m.ParentID]
	if !ok {
		return f
	}
	p2 := *parent
	p2.ChildIDs = make([]string, 0, len(parent.ChildIDs)+1)
	p2.ChildIDs = append(p2.ChildIDs, parent.ChildIDs...)
	p2.ChildIDs = append(p2.ChildIDs, n.ID)

	nodes := cloneNodes(f.nodes)
	nodes[p2.ID] = &p2
	nodes[n.ID] = n
	return Forest{nodes: nodes, roots: f.roots}
}

// Trees materializes the ordered-children view of the forest. The view is
// freshly built on each call; depth is unbounded, driven by an explicit
// stack.
func (f Forest) Trees() []*models.Populated {
	out := make([]*models.Populated, 0, len(f.roots))
	for _, id := range f.roots {
		if root := f.build(id); root != nil {
			out = append(out, root)
		}
	}
	return out
}

func (f Forest) build(id string) *models.Populated {
	n, ok := f.nodes[id]
	if !ok {
		return nil
	}
	view := &models.Populated{
		ID:        n.ID,
		Body:      n.Body,
		Author:    n.Author,
		CreatedTS: n.CreatedTS,
		ParentID:  n.ParentID,
		Children:  []*models.Populated{},
	}
	type frame struct {
		view     *models.Populated
		childIDs []string
	}
	stack := []frame{{view: view, childIDs: n.ChildIDs}}
	for len(stack) > 0 {
		fr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, cid := range fr.childIDs {
			cn, ok := f.nodes[cid]
			if !ok {
				continue
			}
			cv := &models.Populated{
				ID:        cn.ID,
				Body:      cn.Body,
				Author:    cn.Author,
				CreatedTS: cn.CreatedTS,
				ParentID:  cn.ParentID,
				Children:  []*models.Populated{},
			}
			fr.view.Children = append(fr.view.Children, cv)
			stack = append(stack, frame{view: cv, childIDs: cn.ChildIDs})
		}
	}
	return view
}

// cloneNodes shallow-copies the index; node pointers are shared, which is
// safe because nodes are never mutated after insertion.
func cloneNodes(in map[string]*Node) map[string]*Node {
	out := make(map[string]*Node, len(in)+2)
	for k, v := range in {
		out[k] = v
	}
	return out
}
