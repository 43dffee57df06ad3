// Package paint accumulates the attribute and variable tree a component
// produces during a paint cycle.
//
// A Target is write-only from the component's point of view: components
// open a tag, add attributes, variables and text, paint their children and
// close the tag. The resulting Node tree is what the transport serialises
// (see lib/encoding) or renders as HTML (see HTML).
package paint

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrTagMismatch is returned when EndTag does not close the open tag.
	ErrTagMismatch = errors.New("paint: tag mismatch")
	// ErrNoOpenTag is returned when content is added outside any tag.
	ErrNoOpenTag = errors.New("paint: no open tag")
)

// Node is one painted tag.
type Node struct {
	Tag      string         `msgpack:"t"`
	Attrs    map[string]any `msgpack:"a,omitempty"`
	Vars     map[string]any `msgpack:"v,omitempty"`
	Text     string         `msgpack:"x,omitempty"`
	Children []*Node        `msgpack:"c,omitempty"`
}

// Attr returns the named attribute.
func (n *Node) Attr(name string) (any, bool) {
	v, ok := n.Attrs[name]
	return v, ok
}

// Var returns the named variable.
func (n *Node) Var(name string) (any, bool) {
	v, ok := n.Vars[name]
	return v, ok
}

// ID returns the "id" attribute, or "" if the node has none.
func (n *Node) ID() string {
	id, _ := n.Attrs["id"].(string)
	return id
}

// Find returns the first node in the subtree (depth-first, n included)
// whose id is id.
func (n *Node) Find(id string) *Node {
	if n.ID() == id {
		return n
	}
	for _, c := range n.Children {
		if found := c.Find(id); found != nil {
			return found
		}
	}
	return nil
}

// AttrNames returns the attribute names in sorted order.
func (n *Node) AttrNames() []string {
	names := make([]string, 0, len(n.Attrs))
	for k := range n.Attrs {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Target builds a Node forest. The zero value is not usable; call NewTarget.
type Target struct {
	roots []*Node
	stack []*Node
}

// NewTarget returns an empty target.
func NewTarget() *Target {
	return &Target{}
}

// StartTag opens a tag nested in the currently open one, or a new root.
func (t *Target) StartTag(tag string) error {
	n := &Node{Tag: tag}
	if top := t.top(); top != nil {
		top.Children = append(top.Children, n)
	} else {
		t.roots = append(t.roots, n)
	}
	t.stack = append(t.stack, n)
	return nil
}

// EndTag closes the currently open tag, which must be tag.
func (t *Target) EndTag(tag string) error {
	top := t.top()
	if top == nil {
		return ErrNoOpenTag
	}
	if top.Tag != tag {
		return fmt.Errorf("%w: open %q, closing %q", ErrTagMismatch, top.Tag, tag)
	}
	t.stack = t.stack[:len(t.stack)-1]
	return nil
}

// AddAttribute sets an attribute on the open tag.
func (t *Target) AddAttribute(name string, value any) error {
	top := t.top()
	if top == nil {
		return ErrNoOpenTag
	}
	if top.Attrs == nil {
		top.Attrs = make(map[string]any)
	}
	top.Attrs[name] = value
	return nil
}

// AddVariable sets a client-writable variable on the open tag.
func (t *Target) AddVariable(name string, value any) error {
	top := t.top()
	if top == nil {
		return ErrNoOpenTag
	}
	if top.Vars == nil {
		top.Vars = make(map[string]any)
	}
	top.Vars[name] = value
	return nil
}

// AddText appends text content to the open tag.
func (t *Target) AddText(text string) error {
	top := t.top()
	if top == nil {
		return ErrNoOpenTag
	}
	top.Text += text
	return nil
}

// Nodes returns the painted root nodes. It is an error to call Nodes while
// a tag is still open.
func (t *Target) Nodes() ([]*Node, error) {
	if top := t.top(); top != nil {
		return nil, fmt.Errorf("%w: %q left open", ErrTagMismatch, top.Tag)
	}
	return t.roots, nil
}

// Reset discards everything painted so far.
func (t *Target) Reset() {
	t.roots = nil
	t.stack = nil
}

func (t *Target) top() *Node {
	if len(t.stack) == 0 {
		return nil
	}
	return t.stack[len(t.stack)-1]
}
