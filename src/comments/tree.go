package comments

import (
	"sort"

	"github.com/newsdesk-cms/newsdesk/src/models"
)

type Node struct {
	Comment *models.Comment
	Replies []*Node
}

/*
BuildTree groups a flat comment list by parent. Roots are the comments with
no parent, and every level is ordered by creation time with the id breaking
ties, so the result does not depend on the order of the input.

A reply whose parent is not in the list cannot be reached from any root and
is left out. Cycles are impossible to reach for the same reason.
*/
func BuildTree(comments []*models.Comment) []*Node {
	sorted := make([]*models.Comment, len(comments))
	copy(sorted, comments)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})

	children := make(map[int][]*models.Comment)
	var roots []*models.Comment
	for _, c := range sorted {
		if c.ParentID == nil {
			roots = append(roots, c)
		} else {
			children[*c.ParentID] = append(children[*c.ParentID], c)
		}
	}

	var build func(c *models.Comment) *Node
	build = func(c *models.Comment) *Node {
		node := &Node{Comment: c, Replies: []*Node{}}
		for _, child := range children[c.ID] {
			node.Replies = append(node.Replies, build(child))
		}
		return node
	}

	result := make([]*Node, 0, len(roots))
	for _, root := range roots {
		result = append(result, build(root))
	}
	return result
}

// Size counts the comments reachable from these nodes.
func Size(nodes []*Node) int {
	n := 0
	for _, node := range nodes {
		n += 1 + Size(node.Replies)
	}
	return n
}
