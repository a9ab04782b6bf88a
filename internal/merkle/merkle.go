package merkle

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// ErrNoFields is returned when a row has no non-null fields to hash.
var ErrNoFields = errors.New("merkle: no fields to hash")

// Node is a tree node. Leaves carry a field value as Content; inner nodes
// carry the "+"-joined content of their children.
type Node struct {
	Left    *Node
	Right   *Node
	Hash    string
	Content string
	// Copied marks a node duplicated to even out a level.
	Copied bool
}

func (n *Node) copy() *Node {
	return &Node{Left: n.Left, Right: n.Right, Hash: n.Hash, Content: n.Content, Copied: true}
}

// Sum returns the lowercase hex SHA-256 digest of s.
func Sum(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

// Build constructs the tree over fields and returns its root.
func Build(fields []string) (*Node, error) {
	if len(fields) == 0 {
		return nil, ErrNoFields
	}
	leaves := make([]*Node, 0, len(fields)+1)
	for _, f := range fields {
		leaves = append(leaves, &Node{Hash: Sum(f), Content: f})
	}
	return reduce(leaves), nil
}

// reduce pairs nodes until two remain. An odd level gets its last node
// duplicated before it is split.
func reduce(nodes []*Node) *Node {
	if len(nodes)%2 == 1 {
		nodes = append(nodes, nodes[len(nodes)-1].copy())
	}
	if len(nodes) == 2 {
		return join(nodes[0], nodes[1])
	}
	half := len(nodes) / 2
	left := reduce(nodes[:half:half])
	right := reduce(nodes[half:])
	return join(left, right)
}

func join(l, r *Node) *Node {
	return &Node{
		Left:    l,
		Right:   r,
		Hash:    Sum(l.Hash + r.Hash),
		Content: l.Content + "+" + r.Content,
	}
}

// Root returns the root hash for fields.
func Root(fields []string) (string, error) {
	n, err := Build(fields)
	if err != nil {
		return "", err
	}
	return n.Hash, nil
}
