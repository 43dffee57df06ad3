package hxtree

import (
	"fmt"

	"github.com/pthm/hxtree/lib/event"
)

// Container is a component that owns an ordered list of children.
type Container interface {
	Component
	AddComponent(c Component) error
	RemoveComponent(c Component)
	RemoveAllComponents()
	Components() []Component
	ComponentCount() int
}

// ContainerBase implements Container. Layouts embed it and paint their
// children from PaintContent.
type ContainerBase struct {
	Base
	children []Component
}

func (c *ContainerBase) container() Container {
	if cc, ok := c.self.(Container); ok {
		return cc
	}
	return c
}

// AddComponent appends child, removing it from its previous container
// first.
func (c *ContainerBase) AddComponent(child Component) error {
	return c.AddComponentAt(child, len(c.children))
}

// AddComponentAt inserts child at index. An index past the end appends.
// Adding a component to itself or to one of its own descendants returns
// ErrCycle.
func (c *ContainerBase) AddComponentAt(child Component, index int) error {
	me := c.container()
	if child == nil {
		return nil
	}
	if containsInChain(me, child) {
		return fmt.Errorf("%w: %s into %s", ErrCycle, child.TagName(), me.TagName())
	}
	if index < 0 {
		index = 0
	}

	if old := child.Parent(); old != nil {
		if old == me {
			c.move(child, index)
			return nil
		}
		old.RemoveComponent(child)
	}

	if index > len(c.children) {
		index = len(c.children)
	}
	c.children = append(c.children, nil)
	copy(c.children[index+1:], c.children[index:])
	c.children[index] = child

	if err := child.SetParent(me); err != nil {
		c.children = append(c.children[:index], c.children[index+1:]...)
		return err
	}

	c.FireEvent(&ComponentAttachEvent{Event: NewEvent(KindComponentAttach, me), attached: child})
	me.RequestRepaint()
	return nil
}

func (c *ContainerBase) move(child Component, index int) {
	from := c.indexOf(child)
	if from < 0 {
		return
	}
	c.children = append(c.children[:from], c.children[from+1:]...)
	if index > len(c.children) {
		index = len(c.children)
	}
	c.children = append(c.children, nil)
	copy(c.children[index+1:], c.children[index:])
	c.children[index] = child
	c.container().RequestRepaint()
}

// containsInChain reports whether target is node or one of its ancestors.
func containsInChain(node, target Component) bool {
	for n := node; n != nil; {
		if n == target {
			return true
		}
		p := n.Parent()
		if p == nil {
			return false
		}
		n = p
	}
	return false
}

func (c *ContainerBase) indexOf(child Component) int {
	for i, ch := range c.children {
		if ch == child {
			return i
		}
	}
	return -1
}

// RemoveComponent removes child, detaching it if the container is attached.
// Removing a component that is not a child is a no-op.
func (c *ContainerBase) RemoveComponent(child Component) {
	i := c.indexOf(child)
	if i < 0 {
		return
	}
	me := c.container()
	c.children = append(c.children[:i:i], c.children[i+1:]...)
	if child.Parent() == me {
		// Cannot fail: clearing a parent never conflicts.
		_ = child.SetParent(nil)
	}
	c.FireEvent(&ComponentDetachEvent{Event: NewEvent(KindComponentDetach, me), detached: child})
	me.RequestRepaint()
}

// RemoveAllComponents removes every child in order.
func (c *ContainerBase) RemoveAllComponents() {
	for _, child := range c.Components() {
		c.container().RemoveComponent(child)
	}
}

// Components returns a copy of the children.
func (c *ContainerBase) Components() []Component {
	out := make([]Component, len(c.children))
	copy(out, c.children)
	return out
}

func (c *ContainerBase) ComponentCount() int { return len(c.children) }

// Attach attaches the container and then each child.
func (c *ContainerBase) Attach() {
	c.Base.Attach()
	for _, child := range c.Components() {
		attachComponent(child)
	}
}

// Detach detaches the container and then each child.
func (c *ContainerBase) Detach() {
	c.Base.Detach()
	for _, child := range c.Components() {
		detachComponent(child)
	}
}

// SetEnabled also repaints every descendant, since their effective state
// changed with it.
func (c *ContainerBase) SetEnabled(enabled bool) {
	c.Base.SetEnabled(enabled)
	requestRepaintAll(c.container())
}

// SetReadOnly also repaints every descendant.
func (c *ContainerBase) SetReadOnly(readOnly bool) {
	c.Base.SetReadOnly(readOnly)
	requestRepaintAll(c.container())
}

func requestRepaintAll(c Component) {
	c.RequestRepaint()
	if cc, ok := c.(Container); ok {
		for _, child := range cc.Components() {
			requestRepaintAll(child)
		}
	}
}

// PaintContent paints every child in order.
func (c *ContainerBase) PaintContent(t PaintTarget) error {
	return c.paintChildren(t)
}

func (c *ContainerBase) paintChildren(t PaintTarget) error {
	for _, child := range c.children {
		if err := child.Paint(t); err != nil {
			return err
		}
	}
	return nil
}

// AddComponentAttachListener registers l for ComponentAttachEvents.
func (c *ContainerBase) AddComponentAttachListener(l ComponentAttachListener) (event.Handle, error) {
	return c.AddBoundListener(ComponentAttachBinding, l)
}

func (c *ContainerBase) RemoveComponentAttachListener(l ComponentAttachListener) {
	c.RemoveBoundListener(ComponentAttachBinding, l)
}

// AddComponentDetachListener registers l for ComponentDetachEvents.
func (c *ContainerBase) AddComponentDetachListener(l ComponentDetachListener) (event.Handle, error) {
	return c.AddBoundListener(ComponentDetachBinding, l)
}

func (c *ContainerBase) RemoveComponentDetachListener(l ComponentDetachListener) {
	c.RemoveBoundListener(ComponentDetachBinding, l)
}
