// Package ordermap implements an ordered string-keyed map, the sole
// intra-directory index used by the replication engine. It is modeled
// on original_source/btree.c/h: a binary search tree keyed by name
// comparison, offering deterministic lexicographic traversal via
// ForEach. Go's built-in map intentionally provides no ordering
// guarantee, which the replication driver depends on for reproducible
// output and for matching the original tool's traversal order, so this
// package is built fresh rather than reused from the teacher (whose
// own Entry.Contents is an unordered map).
package ordermap

import (
	"strings"
)

// Comparator compares two keys, returning a negative number if a sorts
// before b, zero if they are equal, and a positive number otherwise.
type Comparator func(a, b string) int

// Disposer is invoked on a value when it is removed from the map via Delete.
// Insert never overwrites an existing value, so it never invokes the
// Disposer. A nil Disposer means values are simply dropped.
type Disposer func(value interface{})

// ByteOrderComparator compares keys byte-for-byte, matching strcmp as used by
// btree_create's default comparator when none is supplied.
func ByteOrderComparator(a, b string) int {
	return strings.Compare(a, b)
}

type node struct {
	key         string
	value       interface{}
	left, right *node
}

// Map is an ordered string-keyed map. The zero value is not usable; create
// one with New. A Map is not safe for concurrent use.
type Map struct {
	root    *node
	compare Comparator
	dispose Disposer
	count   int
}

// New creates an empty Map. If compare is nil, ByteOrderComparator is used
// (mirroring btree_create's fallback to strcmp). dispose, if non-nil, is
// called on every value removed from the map.
func New(compare Comparator, dispose Disposer) *Map {
	if compare == nil {
		compare = ByteOrderComparator
	}
	return &Map{compare: compare, dispose: dispose}
}

// Len returns the number of entries in the map, mirroring btree_entries.
func (m *Map) Len() int {
	return m.count
}

// Insert adds key/value to the map. It returns false without modifying the
// map if the key already exists (mirroring btree_insert's EEXIST behavior),
// true otherwise.
func (m *Map) Insert(key string, value interface{}) bool {
	if m.root == nil {
		m.root = &node{key: key, value: value}
		m.count++
		return true
	}

	current := m.root
	for {
		switch {
		case m.compare(key, current.key) < 0:
			if current.left == nil {
				current.left = &node{key: key, value: value}
				m.count++
				return true
			}
			current = current.left
		case m.compare(key, current.key) > 0:
			if current.right == nil {
				current.right = &node{key: key, value: value}
				m.count++
				return true
			}
			current = current.right
		default:
			return false
		}
	}
}

// Search returns the value stored under key, and true if it was found.
func (m *Map) Search(key string) (interface{}, bool) {
	current := m.root
	for current != nil {
		switch c := m.compare(key, current.key); {
		case c < 0:
			current = current.left
		case c > 0:
			current = current.right
		default:
			return current.value, true
		}
	}
	return nil, false
}

// Delete removes key from the map, invoking the map's Disposer on its value
// if present. It returns true if the key was found and removed.
func (m *Map) Delete(key string) bool {
	var parent *node
	current := m.root
	for current != nil {
		c := m.compare(key, current.key)
		if c < 0 {
			parent = current
			current = current.left
		} else if c > 0 {
			parent = current
			current = current.right
		} else {
			break
		}
	}
	if current == nil {
		return false
	}

	m.removeNode(parent, current)
	m.count--
	if m.dispose != nil {
		m.dispose(current.value)
	}
	return true
}

// removeNode detaches target (whose parent is parent, or nil if target is
// the root) from the tree, performing the standard BST deletion cases.
func (m *Map) removeNode(parent, target *node) {
	replace := func(child *node) {
		if parent == nil {
			m.root = child
		} else if parent.left == target {
			parent.left = child
		} else {
			parent.right = child
		}
	}

	switch {
	case target.left == nil:
		replace(target.right)
	case target.right == nil:
		replace(target.left)
	default:
		// Two children: splice in the in-order successor (leftmost node of
		// the right subtree) and remove it from its original position.
		successorParent := target
		successor := target.right
		for successor.left != nil {
			successorParent = successor
			successor = successor.left
		}
		if successorParent != target {
			successorParent.left = successor.right
			successor.right = target.right
		}
		successor.left = target.left
		replace(successor)
	}
}

// ForEach calls fn for every key/value pair in lexicographic key order (an
// in-order traversal), mirroring btree_foreach. If fn returns a non-nil
// error, traversal stops immediately and ForEach returns that error.
func (m *Map) ForEach(fn func(key string, value interface{}) error) error {
	return forEach(m.root, fn)
}

func forEach(n *node, fn func(key string, value interface{}) error) error {
	if n == nil {
		return nil
	}
	if err := forEach(n.left, fn); err != nil {
		return err
	}
	if err := fn(n.key, n.value); err != nil {
		return err
	}
	return forEach(n.right, fn)
}

// Keys returns every key in the map in lexicographic order.
func (m *Map) Keys() []string {
	keys := make([]string, 0, m.count)
	_ = m.ForEach(func(key string, _ interface{}) error {
		keys = append(keys, key)
		return nil
	})
	return keys
}
