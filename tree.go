package radix

import (
	"fmt"
	"io"
)

// Node is a single node of a Tree. Nodes returned by Add, SearchExact and
// SearchBest carry a stored prefix and an opaque Data slot owned by the
// caller; the tree never interprets Data. Glue nodes are internal and are
// never handed out.
//
// A Node handle stays valid until the prefix it represents is deleted or
// the tree is cleared.
type Node struct {
	parent *Node
	left   *Node
	right  *Node
	prefix *Prefix // nil for glue nodes
	bit    int     // bit position this node branches on

	// Data is the caller-owned payload of a stored prefix.
	Data interface{}
}

// Prefix returns the stored prefix, or the zero Prefix for a dead handle.
func (n *Node) Prefix() Prefix {
	if n.prefix == nil {
		return Prefix{}
	}
	return *n.prefix
}

// Network returns the stored prefix's network address, e.g. "10.0.0.0".
func (n *Node) Network() string { return n.Prefix().Network() }

// Bitlen returns the stored prefix's bit length.
func (n *Node) Bitlen() int { return n.Prefix().Bitlen() }

// Family returns the stored prefix's address family.
func (n *Node) Family() Family { return n.Prefix().Family() }

// Packed returns the stored prefix's packed address, 4 or 16 bytes.
func (n *Node) Packed() []byte { return n.Prefix().Packed() }

// String returns the stored prefix in CIDR form.
func (n *Node) String() string { return n.Prefix().String() }

// dir calculates the direction the prefix takes at this node's test bit.
func (n *Node) dir(p *Prefix, maxbits int) int {
	if n.bit < maxbits && p.bit(n.bit) {
		return 1
	}
	return 0
}

func (n *Node) child(dir int) *Node {
	if dir == 1 {
		return n.right
	}
	return n.left
}

// Tree is a radix tree over network prefixes of a single address family.
// The zero value is an empty tree ready to use; the family is fixed by the
// first Add.
//
// A Tree is not synchronized. Concurrent mutation requires external
// locking; mutation racing an iterator is detected via the generation
// counter and reported as ErrConcurrentMutation.
type Tree struct {
	root   *Node
	family Family
	size   int
	gen    uint64
}

// New returns an empty tree.
func New() *Tree {
	return &Tree{}
}

// Len returns the number of stored prefixes in the tree.
func (t *Tree) Len() int { return t.size }

// Family returns the tree's address family, FamilyUnset while empty.
func (t *Tree) Family() Family { return t.family }

// Add inserts the prefix and returns its node. Adding a prefix that is
// already present returns the existing node with its Data slot untouched.
// The first Add fixes the tree's family; a later Add of the other family
// fails with ErrFamilyMismatch and leaves the tree unchanged.
func (t *Tree) Add(p Prefix) (*Node, error) {
	if p.family == FamilyUnset {
		return nil, fmt.Errorf("%w: zero prefix", ErrInvalidFormat)
	}
	if t.family == FamilyUnset {
		t.family = p.family
	} else if t.family != p.family {
		return nil, fmt.Errorf("%w: tree is %s, prefix %s is %s",
			ErrFamilyMismatch, t.family, p, p.family)
	}

	t.gen++

	if t.root == nil {
		n := &Node{bit: int(p.bitlen), prefix: &p}
		t.root = n
		t.size++
		return n, nil
	}

	var (
		maxbits = t.family.Bits()
		bitlen  = int(p.bitlen)
	)

	// descend by bit tests to the closest candidate
	n := t.root
	for n.bit < bitlen || n.prefix == nil {
		next := n.child(n.dir(&p, maxbits))
		if next == nil {
			break
		}
		n = next
	}

	// all prefixes below a node share its first bit bits, so any stored
	// prefix reached by the descent is a valid representative
	test := n.prefix.addr

	check := n.bit
	if bitlen < check {
		check = bitlen
	}
	differ := commonBits(&p.addr, &test, check)

	// back up to the topmost node still below the divergence point
	for parent := n.parent; parent != nil && parent.bit >= differ; parent = n.parent {
		n = parent
	}

	if differ == bitlen && n.bit == bitlen {
		if n.prefix != nil {
			// exact prefix already stored
			return n, nil
		}
		// a glue node at exactly the right spot becomes the payload node
		n.prefix = &p
		t.size++
		return n, nil
	}

	nn := &Node{bit: bitlen, prefix: &p}
	t.size++

	switch {
	case n.bit == differ:
		// n is a proper ancestor: hang the new leaf off its free side
		nn.parent = n
		if n.dir(&p, maxbits) == 1 {
			n.right = nn
		} else {
			n.left = nn
		}

	case bitlen == differ:
		// the new prefix is a proper ancestor of n: splice it in above
		if bitlen < maxbits && test[bitlen>>3]&(0x80>>(uint(bitlen)&7)) != 0 {
			nn.right = n
		} else {
			nn.left = n
		}
		t.replaceChild(n, nn)
		n.parent = nn

	default:
		// fork: a glue node at the divergence bit takes both subtrees
		glue := &Node{bit: differ}
		if differ < maxbits && p.bit(differ) {
			glue.left, glue.right = n, nn
		} else {
			glue.left, glue.right = nn, n
		}
		nn.parent = glue
		t.replaceChild(n, glue)
		n.parent = glue
	}
	return nn, nil
}

// replaceChild makes nn take old's place under old's parent (or as root),
// adopting old's parent link.
func (t *Tree) replaceChild(old, nn *Node) {
	parent := old.parent
	nn.parent = parent
	switch {
	case parent == nil:
		t.root = nn
	case parent.right == old:
		parent.right = nn
	default:
		parent.left = nn
	}
}

// SearchExact returns the node storing exactly p, or nil. It never
// modifies the tree.
func (t *Tree) SearchExact(p Prefix) *Node {
	if t.root == nil || p.family != t.family {
		return nil
	}
	var (
		maxbits = t.family.Bits()
		bitlen  = int(p.bitlen)
	)
	n := t.root
	for n.bit < bitlen {
		n = n.child(n.dir(&p, maxbits))
		if n == nil {
			return nil
		}
	}
	if n.bit > bitlen || n.prefix == nil || !n.prefix.Equal(p) {
		return nil
	}
	return n
}

// SearchBest returns the node of the longest stored prefix containing p
// (routing-style lookup), or nil if no stored prefix contains it. Searching
// for a host route uses the family's full width, e.g. "10.1.2.3/32".
// It never modifies the tree.
func (t *Tree) SearchBest(p Prefix) *Node {
	if t.root == nil || p.family != t.family {
		return nil
	}
	var (
		maxbits = t.family.Bits()
		bitlen  = int(p.bitlen)
		stack   = make([]*Node, 0, maxbits+1)
	)

	// collect payload candidates along the descent
	n := t.root
	for n.bit < bitlen {
		if n.prefix != nil {
			stack = append(stack, n)
		}
		n = n.child(n.dir(&p, maxbits))
		if n == nil {
			break
		}
	}
	if n != nil && n.prefix != nil {
		stack = append(stack, n)
	}

	// deepest candidate that really contains p wins
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i].prefix.Contains(p) {
			return stack[i]
		}
	}
	return nil
}

// Delete removes the prefix from the tree along with any branch nodes that
// become redundant. It fails with ErrNotFound if the exact prefix is not
// stored; the tree is then unchanged.
func (t *Tree) Delete(p Prefix) error {
	n := t.SearchExact(p)
	if n == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	t.remove(n)
	t.gen++
	t.size--
	return nil
}

// remove takes a payload node out of the tree, contracting branch
// structure so that no degree-1 glue node survives.
func (t *Tree) remove(n *Node) {
	n.Data = nil

	if n.left != nil && n.right != nil {
		// still a fork: stays in place as a glue node
		n.prefix = nil
		return
	}

	if n.left == nil && n.right == nil {
		parent := n.parent
		n.parent = nil
		n.prefix = nil
		if parent == nil {
			t.root = nil
			return
		}
		var sibling *Node
		if parent.right == n {
			parent.right = nil
			sibling = parent.left
		} else {
			parent.left = nil
			sibling = parent.right
		}
		if parent.prefix != nil {
			// parent still stores a prefix: degree 1 is fine for it
			return
		}
		// parent was glue, now degree 1: splice the sibling up
		t.replaceChild(parent, sibling)
		parent.parent, parent.left, parent.right = nil, nil, nil
		return
	}

	// one child: splice it directly into our slot, test bits untouched
	child := n.left
	if child == nil {
		child = n.right
	}
	t.replaceChild(n, child)
	n.parent, n.left, n.right, n.prefix = nil, nil, nil, nil
}

// Clear removes every node from the tree, returning it to the pristine
// empty state (family unset). If release is non-nil it is called exactly
// once per stored prefix with the prefix and its Data; this is the hook
// for callers that attach externally managed resources to nodes.
//
// The walk is iterative with an explicit stack, so teardown cost does not
// depend on the call stack even for pathological tree shapes.
func (t *Tree) Clear(release func(p Prefix, data interface{})) {
	stack := make([]*Node, 0, t.family.Bits()+1)
	if t.root != nil {
		stack = append(stack, t.root)
	}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.right != nil {
			stack = append(stack, n.right)
		}
		if n.left != nil {
			stack = append(stack, n.left)
		}
		if n.prefix != nil && release != nil {
			release(*n.prefix, n.Data)
		}
		n.parent, n.left, n.right, n.prefix, n.Data = nil, nil, nil, nil, nil
	}
	t.root = nil
	t.family = FamilyUnset
	t.size = 0
	t.gen++
}

// DebugDump writes the node structure to w, one node per line with
// indentation following the tree shape.
func (t *Tree) DebugDump(w io.Writer) {
	if t.root == nil {
		fmt.Fprintln(w, "<empty>")
		return
	}
	t.debugDump(w, t.root, "T:", "")
}

func (t *Tree) debugDump(w io.Writer, n *Node, tag, indent string) {
	if n.prefix != nil {
		fmt.Fprintf(w, "%s%s NODE bit=%d prefix=%s data=%v\n", indent, tag, n.bit, n.prefix, n.Data)
	} else {
		fmt.Fprintf(w, "%s%s GLUE bit=%d\n", indent, tag, n.bit)
	}
	if n.left != nil {
		t.debugDump(w, n.left, "L:", indent+"  ")
	}
	if n.right != nil {
		t.debugDump(w, n.right, "R:", indent+"  ")
	}
}
