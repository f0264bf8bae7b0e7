package discussion

import (
	"fmt"

	"huddle-cli/internal/model"
)

// ParentNotFoundError reports a reply whose parent id resolves to nothing
// in the current forest. The reply is never silently dropped; callers
// decide whether to reject it or re-root it.
type ParentNotFoundError struct {
	ParentID string
}

func (e ParentNotFoundError) Error() string {
	return fmt.Sprintf("reply parent not found: %s", e.ParentID)
}

type treeNode struct {
	msg      model.Message // Replies kept empty; structure lives in children
	children []string
}

// Forest is an ordered forest of discussion messages, indexed flat by id.
// Each node holds an ordered child-id list; nesting is reconstructed on
// demand. Mutating operations return a new Forest and leave the receiver
// untouched, so callers replace their reference on success.
type Forest struct {
	nodes   map[string]treeNode
	roots   []string
	orphans map[string]bool
}

// NewForest returns an empty forest.
func NewForest() Forest {
	return Forest{nodes: map[string]treeNode{}, orphans: map[string]bool{}}
}

// FromMessages builds a forest from the wire shape (nested replies).
// Physical nesting is authoritative for structure. A top-level message
// carrying a parentId that resolves to nothing in the batch is kept as a
// root and flagged orphaned rather than dropped.
func FromMessages(msgs []model.Message) Forest {
	f := NewForest()

	ids := map[string]bool{}
	var collect func(ms []model.Message)
	collect = func(ms []model.Message) {
		for _, m := range ms {
			if m.ID != "" {
				ids[m.ID] = true
			}
			collect(m.Replies)
		}
	}
	collect(msgs)

	var add func(m model.Message) (string, bool)
	add = func(m model.Message) (string, bool) {
		if m.ID == "" {
			return "", false
		}
		if _, dup := f.nodes[m.ID]; dup {
			return "", false
		}
		kids := make([]string, 0, len(m.Replies))
		replies := m.Replies
		m.Replies = nil
		f.nodes[m.ID] = treeNode{msg: m}
		for _, r := range replies {
			if id, ok := add(r); ok {
				kids = append(kids, id)
			}
		}
		n := f.nodes[m.ID]
		n.children = kids
		f.nodes[m.ID] = n
		return m.ID, true
	}

	for _, m := range msgs {
		id, ok := add(m)
		if !ok {
			continue
		}
		f.roots = append(f.roots, id)
		if m.ParentID != nil && *m.ParentID != "" && !ids[*m.ParentID] {
			f.orphans[id] = true
		}
	}
	return f
}

func (f Forest) clone() Forest {
	out := Forest{
		nodes:   make(map[string]treeNode, len(f.nodes)),
		roots:   append([]string(nil), f.roots...),
		orphans: make(map[string]bool, len(f.orphans)),
	}
	for id, n := range f.nodes {
		out.nodes[id] = n
	}
	for id := range f.orphans {
		out.orphans[id] = true
	}
	return out
}

// InsertRoot appends msg as a new top-level message.
func (f Forest) InsertRoot(msg model.Message) Forest {
	out := f.clone()
	msg.Replies = nil
	out.nodes[msg.ID] = treeNode{msg: msg}
	out.roots = append(out.roots, msg.ID)
	return out
}

// InsertReply appends msg to the reply list of parentID. When the parent
// does not exist the forest is returned unchanged along with a
// ParentNotFoundError; no node is touched.
func (f Forest) InsertReply(parentID string, msg model.Message) (Forest, error) {
	parent, ok := f.nodes[parentID]
	if !ok {
		return f, ParentNotFoundError{ParentID: parentID}
	}
	out := f.clone()
	msg.Replies = nil
	out.nodes[msg.ID] = treeNode{msg: msg}
	kids := make([]string, 0, len(parent.children)+1)
	kids = append(kids, parent.children...)
	kids = append(kids, msg.ID)
	parent.children = kids
	out.nodes[parentID] = parent
	return out, nil
}

// CountDescendants returns the total number of replies at all depths under
// id; 0 for leaves and unknown ids.
func (f Forest) CountDescendants(id string) int {
	n, ok := f.nodes[id]
	if !ok {
		return 0
	}
	total := 0
	for _, kid := range n.children {
		total += 1 + f.CountDescendants(kid)
	}
	return total
}

func (f Forest) assemble(id string) (model.Message, bool) {
	n, ok := f.nodes[id]
	if !ok {
		return model.Message{}, false
	}
	msg := n.msg
	msg.Replies = make([]model.Message, 0, len(n.children))
	for _, kid := range n.children {
		if child, ok := f.assemble(kid); ok {
			msg.Replies = append(msg.Replies, child)
		}
	}
	return msg, true
}

// TopLevel returns the top-level messages in original order, replies
// nested. This is also the wire shape for whole-task persistence.
func (f Forest) TopLevel() []model.Message {
	out := make([]model.Message, 0, len(f.roots))
	for _, id := range f.roots {
		if m, ok := f.assemble(id); ok {
			out = append(out, m)
		}
	}
	return out
}

// Messages is an alias for TopLevel, named for serialization call sites.
func (f Forest) Messages() []model.Message {
	return f.TopLevel()
}

// FindByID returns the message with the given id, replies nested.
func (f Forest) FindByID(id string) (model.Message, bool) {
	return f.assemble(id)
}

// Orphaned reports whether id was re-rooted because its recorded parent
// could not be resolved when the forest was built.
func (f Forest) Orphaned(id string) bool {
	return f.orphans[id]
}

// Size returns the total number of messages in the forest.
func (f Forest) Size() int {
	return len(f.nodes)
}
