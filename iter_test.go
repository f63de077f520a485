package radix

import (
	"bytes"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Iteration yields each stored prefix exactly once, whatever the insertion
// order was.
func TestIter_YieldsEveryPrefixOnce(t *testing.T) {
	t.Parallel()

	prefixes := []string{
		"10.0.0.0/8", "10.1.0.0/16", "10.1.2.0/24",
		"172.16.0.0/12", "192.168.0.0/16", "0.0.0.0/0",
	}

	for _, order := range [][]string{
		prefixes,
		{"192.168.0.0/16", "0.0.0.0/0", "10.1.2.0/24", "10.0.0.0/8", "172.16.0.0/12", "10.1.0.0/16"},
	} {
		tree := New()
		addAll(t, tree, order...)

		var got []string
		it := tree.Iter()
		for it.Next() {
			got = append(got, it.Node().String())
		}
		require.NoError(t, it.Err())

		sort.Strings(got)
		exp := append([]string(nil), prefixes...)
		sort.Strings(exp)
		assert.Equal(t, exp, got)
	}
}

func TestIter_Empty(t *testing.T) {
	t.Parallel()

	it := New().Iter()

	assert.False(t, it.Next())
	assert.NoError(t, it.Err())
	assert.Nil(t, it.Node())
}

func TestIter_AddInvalidates(t *testing.T) {
	t.Parallel()

	tree := New()
	addAll(t, tree, "10.0.0.0/8", "10.1.0.0/16", "10.2.0.0/16")

	it := tree.Iter()
	require.True(t, it.Next())

	_, err := tree.Add(MustParsePrefix("10.3.0.0/16"))
	require.NoError(t, err)

	assert.False(t, it.Next())
	assert.ErrorIs(t, it.Err(), ErrConcurrentMutation)

	// the error is sticky
	assert.False(t, it.Next())
	assert.ErrorIs(t, it.Err(), ErrConcurrentMutation)

	// a fresh iterator sees the new state
	got, err := tree.Prefixes()
	require.NoError(t, err)
	assert.Len(t, got, 4)
}

func TestIter_DeleteInvalidates(t *testing.T) {
	t.Parallel()

	tree := New()
	addAll(t, tree, "10.0.0.0/8", "10.1.0.0/16")

	it := tree.Iter()
	require.True(t, it.Next())

	require.NoError(t, tree.Delete(MustParsePrefix("10.1.0.0/16")))

	assert.False(t, it.Next())
	assert.ErrorIs(t, it.Err(), ErrConcurrentMutation)
}

// Re-adding an existing prefix is still a mutation as far as an in-flight
// iterator is concerned.
func TestIter_ReAddInvalidates(t *testing.T) {
	t.Parallel()

	tree := New()
	addAll(t, tree, "10.0.0.0/8", "10.1.0.0/16")

	it := tree.Iter()
	require.True(t, it.Next())

	_, err := tree.Add(MustParsePrefix("10.0.0.0/8"))
	require.NoError(t, err)

	assert.False(t, it.Next())
	assert.ErrorIs(t, it.Err(), ErrConcurrentMutation)
}

func TestTree_NodesAndPrefixes(t *testing.T) {
	t.Parallel()

	tree := New()
	addAll(t, tree, "10.0.0.0/8", "10.1.0.0/16", "192.168.0.0/16")

	nodes, err := tree.Nodes()
	require.NoError(t, err)
	require.Len(t, nodes, 3)
	for _, n := range nodes {
		assert.Equal(t, n.String(), n.Data)
	}

	prefixes, err := tree.Prefixes()
	require.NoError(t, err)
	sort.Strings(prefixes)
	assert.Equal(t, []string{"10.0.0.0/8", "10.1.0.0/16", "192.168.0.0/16"}, prefixes)
}

func TestTree_WalkStopsEarly(t *testing.T) {
	t.Parallel()

	tree := New()
	addAll(t, tree, "10.0.0.0/8", "10.1.0.0/16", "10.2.0.0/16")

	seen := 0
	err := tree.Walk(func(*Node) bool {
		seen++
		return seen < 2
	})

	require.NoError(t, err)
	assert.Equal(t, 2, seen)
}

func TestTree_WalkDetectsMutationByCallback(t *testing.T) {
	t.Parallel()

	tree := New()
	addAll(t, tree, "10.0.0.0/8", "10.1.0.0/16", "10.2.0.0/16")

	err := tree.Walk(func(n *Node) bool {
		_, _ = tree.Add(MustParsePrefix("10.3.0.0/16"))
		return true
	})

	assert.ErrorIs(t, err, ErrConcurrentMutation)
}

func TestTree_DebugDump(t *testing.T) {
	t.Parallel()

	tree := New()
	addAll(t, tree, "10.0.0.0/8", "10.1.0.0/16", "10.2.0.0/16")

	var buf bytes.Buffer
	tree.DebugDump(&buf)

	out := buf.String()
	assert.Contains(t, out, "NODE bit=8 prefix=10.0.0.0/8")
	assert.Contains(t, out, "GLUE")

	buf.Reset()
	New().DebugDump(&buf)
	assert.Equal(t, "<empty>\n", buf.String())
}

// Iteration over an IPv6 tree exercises the full 129-slot stack bound.
func TestIter_IPv6(t *testing.T) {
	t.Parallel()

	tree := New()
	addAll(t, tree,
		"::/0", "2001:200::/32", "2001:200:f00::/48",
		"2001:db8::/32", "fe80::/10", "::1/128",
	)

	var got []string
	it := tree.Iter()
	for it.Next() {
		got = append(got, it.Node().String())
	}
	require.NoError(t, it.Err())
	assert.Len(t, got, 6)
}
