package live

import "github.com/vango-dev/retain/pkg/vdom"

// applyProps applies removals before updates and additions, so a listener
// leaving the node is disabled before anything new is installed.
func (t *Tree) applyProps(n *node, d *vdom.PropsDelta) error {
	if d == nil {
		return nil
	}
	for _, p := range d.Removes {
		if err := t.removeProp(n, p); err != nil {
			return err
		}
	}
	for _, p := range d.Updates {
		if err := t.setProp(n, p); err != nil {
			return err
		}
	}
	for _, p := range d.Adds {
		if err := t.setProp(n, p); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tree) setProp(n *node, p vdom.Prop) error {
	switch p.Kind {
	case vdom.PropAttribute:
		return t.binding.SetAttribute(n.handle, "", p.Name, p.Value)
	case vdom.PropAttributeNS:
		return t.binding.SetAttribute(n.handle, p.Namespace, p.Name, p.Value)
	case vdom.PropStyle:
		return t.binding.SetStyle(n.handle, p.Name, p.Value)
	case vdom.PropProperty:
		return t.binding.SetProperty(n.handle, p.Name, p.Data)
	case vdom.PropListener:
		if l, ok := n.listeners[p.Name]; ok {
			l.handler.Store(p.Handler)
			return nil
		}
		l := &listener{}
		l.handler.Store(p.Handler)
		if n.listeners == nil {
			n.listeners = make(map[string]*listener)
		}
		n.listeners[p.Name] = l
		return t.binding.SetListener(n.handle, p.Name, n.callback(l))
	}
	return nil
}

func (t *Tree) removeProp(n *node, p vdom.Prop) error {
	switch p.Kind {
	case vdom.PropAttribute:
		return t.binding.RemoveAttribute(n.handle, "", p.Name)
	case vdom.PropAttributeNS:
		return t.binding.RemoveAttribute(n.handle, p.Namespace, p.Name)
	case vdom.PropStyle:
		return t.binding.RemoveStyle(n.handle, p.Name)
	case vdom.PropProperty:
		return t.binding.RemoveProperty(n.handle, p.Name)
	case vdom.PropListener:
		if l, ok := n.listeners[p.Name]; ok {
			l.handler.Store(nil)
			delete(n.listeners, p.Name)
		}
		return t.binding.RemoveListener(n.handle, p.Name)
	}
	return nil
}
