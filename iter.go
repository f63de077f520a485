package radix

// maxIterStack is the deepest possible pre-order stack: one slot per
// address bit plus one, sized for IPv6 so a single iterator serves both
// families.
const maxIterStack = 129

// Iter is a lazy pre-order iterator over the stored prefixes of a Tree.
// It walks with an explicit fixed-size stack, never recursing, and is
// bound to the tree generation at its creation: any Add, Delete or Clear
// performed after that is detected on the next advance and reported as
// ErrConcurrentMutation.
//
// An Iter is not restartable; create a new one to re-enumerate.
//
//	it := tree.Iter()
//	for it.Next() {
//		n := it.Node()
//		...
//	}
//	if err := it.Err(); err != nil {
//		...
//	}
type Iter struct {
	tree  *Tree
	gen   uint64
	node  *Node // last yielded payload node
	next  *Node // pre-order cursor
	stack [maxIterStack]*Node
	sp    int
	err   error
}

// Iter returns an iterator over the tree's stored prefixes.
func (t *Tree) Iter() *Iter {
	return &Iter{tree: t, gen: t.gen, next: t.root}
}

// Next advances to the next stored prefix. It returns false when the
// iteration is exhausted or aborted; check Err to tell the two apart.
func (it *Iter) Next() bool {
	if it.err != nil {
		return false
	}
	for {
		if it.gen != it.tree.gen {
			it.node = nil
			it.err = ErrConcurrentMutation
			return false
		}
		n := it.next
		if n == nil {
			it.node = nil
			return false
		}
		// advance the cursor: left first, untaken right goes on the stack
		switch {
		case n.left != nil:
			if n.right != nil {
				it.stack[it.sp] = n.right
				it.sp++
			}
			it.next = n.left
		case n.right != nil:
			it.next = n.right
		case it.sp > 0:
			it.sp--
			it.next = it.stack[it.sp]
		default:
			it.next = nil
		}
		// glue nodes are traversed but not yielded
		if n.prefix != nil {
			it.node = n
			return true
		}
	}
}

// Node returns the node yielded by the last successful Next.
func (it *Iter) Node() *Node { return it.node }

// Err returns ErrConcurrentMutation if the tree was modified during the
// iteration, nil otherwise.
func (it *Iter) Err() error { return it.err }

// Walk calls fn for every stored prefix in pre-order until fn returns
// false or the tree is exhausted. It returns ErrConcurrentMutation if the
// tree is modified by fn or concurrently during the walk.
func (t *Tree) Walk(fn func(*Node) bool) error {
	it := t.Iter()
	for it.Next() {
		if !fn(it.Node()) {
			return nil
		}
	}
	return it.Err()
}

// Nodes returns every payload node currently in the tree, in pre-order.
func (t *Tree) Nodes() ([]*Node, error) {
	nodes := make([]*Node, 0, t.size)
	if err := t.Walk(func(n *Node) bool {
		nodes = append(nodes, n)
		return true
	}); err != nil {
		return nil, err
	}
	return nodes, nil
}

// Prefixes returns every stored prefix in CIDR form, in pre-order.
func (t *Tree) Prefixes() ([]string, error) {
	prefixes := make([]string, 0, t.size)
	if err := t.Walk(func(n *Node) bool {
		prefixes = append(prefixes, n.String())
		return true
	}); err != nil {
		return nil, err
	}
	return prefixes, nil
}
