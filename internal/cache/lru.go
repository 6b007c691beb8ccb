package cache

// node is one cache entry threaded on the recency ring.
type node[K comparable, V any] struct {
	key        K
	value      V
	prev, next *node[K, V]
}

// ring is a circular doubly-linked list with a sentinel. root.next is the
// most recently used entry and root.prev the least recently used.
// Not safe for concurrent use.
type ring[K comparable, V any] struct {
	root node[K, V]
}

func (r *ring[K, V]) init() {
	r.root.next = &r.root
	r.root.prev = &r.root
}

func (r *ring[K, V]) empty() bool {
	return r.root.next == &r.root
}

// pushFront links n as the most recently used entry.
func (r *ring[K, V]) pushFront(n *node[K, V]) {
	n.prev = &r.root
	n.next = r.root.next
	n.next.prev = n
	r.root.next = n
}

// touch makes n the most recently used entry.
func (r *ring[K, V]) touch(n *node[K, V]) {
	if r.root.next == n {
		return
	}
	r.unlink(n)
	r.pushFront(n)
}

// unlink removes n from the ring.
func (r *ring[K, V]) unlink(n *node[K, V]) {
	n.prev.next = n.next
	n.next.prev = n.prev
	n.prev, n.next = nil, nil
}

// back returns the least recently used entry, or nil if the ring is empty.
func (r *ring[K, V]) back() *node[K, V] {
	if r.empty() {
		return nil
	}
	return r.root.prev
}
