// Package radix defines a radix tree (a path-compressed PATRICIA trie) for
// IPv4 and IPv6 network prefixes.
//
// The radix tree is the data structure most commonly used for routing table
// lookups. It stores network prefixes of varying lengths and answers both
// exact-match and longest-prefix ("best") match queries efficiently, even
// with tens of thousands of entries.
//
// Structure:
// ---------
//
// Every tree node branches on a single bit position which strictly increases
// along any root-to-leaf path. Nodes come in two kinds:
//
//   - payload nodes - correspond to a stored Prefix and carry an opaque,
//     caller-owned Data slot;
//   - glue nodes - pure branch points with exactly two children, created and
//     collapsed automatically as prefixes come and go.
//
// A tree holds prefixes of a single address family, fixed by the first Add.
//
// Basic usage:
//
//	tree := radix.New()
//
//	node, _ := tree.Add(radix.MustParsePrefix("10.0.0.0/8"))
//	node.Data = "my route"
//
//	if n := tree.SearchBest(radix.MustParsePrefix("10.123.45.6/32")); n != nil {
//		fmt.Println(n, n.Data) // 10.0.0.0/8 my route
//	}
//
// The tree is not synchronized: callers that share one across goroutines must
// provide their own locking. Mutation during an in-flight iteration is
// detected by a generation counter and reported as ErrConcurrentMutation.
package radix
