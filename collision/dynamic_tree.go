package collision

import (
	"math"

	"github.com/ByteArena/rigid2d/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// NullNode marks an absent tree node.
const NullNode = -1

// TreeQueryFunc is called for every proxy overlapping a query box. Return
// false to stop the query.
type TreeQueryFunc func(proxyID int) bool

// TreeRayCastFunc is called for every proxy whose fat box the ray crosses.
// Return 0 to stop, a value in (0, 1] to clip the ray, or -1 to ignore the
// proxy.
type TreeRayCastFunc func(input RayCastInput, proxyID int) float64

type treeNode struct {
	aabb     AABB
	userData any

	// parent, or next when the node is free
	parent int
	child1 int
	child2 int

	// leaf = 0, free node = -1
	height int
}

func (n *treeNode) isLeaf() bool {
	return n.child1 == NullNode
}

// DynamicTree is a dynamic AABB tree. Leaves are proxies holding a fattened
// box so that small motions don't require a tree update. Nodes are pooled
// and addressed by index.
type DynamicTree struct {
	root       int
	nodes      []treeNode
	nodeCount  int
	freeList   int
	extension  float64
	multiplier float64

	insertionCount int
}

// NewDynamicTree returns an empty tree. A non-positive extension or
// multiplier selects AABBExtension or AABBMultiplier.
func NewDynamicTree(extension, multiplier float64) *DynamicTree {
	if extension <= 0 {
		extension = AABBExtension
	}
	if multiplier <= 0 {
		multiplier = AABBMultiplier
	}
	t := &DynamicTree{
		root:       NullNode,
		freeList:   NullNode,
		extension:  extension,
		multiplier: multiplier,
	}
	t.grow(16)
	return t
}

func (t *DynamicTree) grow(capacity int) {
	start := len(t.nodes)
	t.nodes = append(t.nodes, make([]treeNode, capacity-start)...)
	for i := start; i < capacity-1; i++ {
		t.nodes[i].parent = i + 1
		t.nodes[i].height = -1
	}
	t.nodes[capacity-1].parent = t.freeList
	t.nodes[capacity-1].height = -1
	t.freeList = start
}

func (t *DynamicTree) allocateNode() int {
	if t.freeList == NullNode {
		t.grow(2 * len(t.nodes))
	}

	id := t.freeList
	n := &t.nodes[id]
	t.freeList = n.parent
	*n = treeNode{parent: NullNode, child1: NullNode, child2: NullNode}
	t.nodeCount++
	return id
}

func (t *DynamicTree) freeNode(id int) {
	t.nodes[id] = treeNode{parent: t.freeList, height: -1}
	t.freeList = id
	t.nodeCount--
}

func (t *DynamicTree) fatten(aabb AABB) AABB {
	r := mgl64.Vec2{t.extension, t.extension}
	return AABB{Lower: aabb.Lower.Sub(r), Upper: aabb.Upper.Add(r)}
}

// CreateProxy inserts a leaf for aabb and returns its id.
func (t *DynamicTree) CreateProxy(aabb AABB, userData any) int {
	id := t.allocateNode()
	t.nodes[id].aabb = t.fatten(aabb)
	t.nodes[id].userData = userData
	t.nodes[id].height = 0
	t.insertLeaf(id)
	return id
}

// DestroyProxy removes a leaf created by CreateProxy.
func (t *DynamicTree) DestroyProxy(id int) {
	t.removeLeaf(id)
	t.freeNode(id)
}

// MoveProxy re-inserts the proxy when aabb escapes its fat box. The new fat
// box is extended in the direction of displacement. It reports whether the
// proxy was re-inserted.
func (t *DynamicTree) MoveProxy(id int, aabb AABB, displacement mgl64.Vec2) bool {
	if t.nodes[id].aabb.Contains(aabb) {
		return false
	}

	t.removeLeaf(id)

	b := t.fatten(aabb)
	d := displacement.Mul(t.multiplier)
	for i := 0; i < 2; i++ {
		if d[i] < 0 {
			b.Lower[i] += d[i]
		} else {
			b.Upper[i] += d[i]
		}
	}
	t.nodes[id].aabb = b

	t.insertLeaf(id)
	return true
}

// UserData returns the value stored with the proxy.
func (t *DynamicTree) UserData(id int) any {
	return t.nodes[id].userData
}

// FatAABB returns the fattened box of the proxy.
func (t *DynamicTree) FatAABB(id int) AABB {
	return t.nodes[id].aabb
}

// Query calls fn for each proxy whose fat box overlaps aabb.
func (t *DynamicTree) Query(fn TreeQueryFunc, aabb AABB) {
	stack := make([]int, 0, 64)
	stack = append(stack, t.root)

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if id == NullNode {
			continue
		}

		n := &t.nodes[id]
		if !n.aabb.Overlaps(aabb) {
			continue
		}
		if n.isLeaf() {
			if !fn(id) {
				return
			}
		} else {
			stack = append(stack, n.child1, n.child2)
		}
	}
}

// RayCast calls fn for each proxy the segment may hit. The callback
// controls clipping as described on TreeRayCastFunc.
func (t *DynamicTree) RayCast(fn TreeRayCastFunc, input RayCastInput) {
	p1 := input.P1
	p2 := input.P2
	r, length := geom.Normalize(p2.Sub(p1))
	if length == 0 {
		return
	}

	// v is perpendicular to the segment
	v := geom.CrossSV(1, r)
	absV := geom.Abs(v)

	maxFraction := input.MaxFraction
	segment := func() AABB {
		end := p1.Add(p2.Sub(p1).Mul(maxFraction))
		return AABB{Lower: geom.Min(p1, end), Upper: geom.Max(p1, end)}
	}
	segmentAABB := segment()

	stack := make([]int, 0, 64)
	stack = append(stack, t.root)

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if id == NullNode {
			continue
		}

		n := &t.nodes[id]
		if !n.aabb.Overlaps(segmentAABB) {
			continue
		}

		// separating axis for segment: |dot(v, p1 - c)| > dot(|v|, h)
		c := n.aabb.Center()
		h := n.aabb.Extents()
		if math.Abs(v.Dot(p1.Sub(c)))-absV.Dot(h) > 0 {
			continue
		}

		if !n.isLeaf() {
			stack = append(stack, n.child1, n.child2)
			continue
		}

		value := fn(RayCastInput{P1: p1, P2: p2, MaxFraction: maxFraction}, id)
		if value == 0 {
			return
		}
		if value > 0 {
			maxFraction = value
			segmentAABB = segment()
		}
	}
}

func (t *DynamicTree) insertLeaf(leaf int) {
	t.insertionCount++

	if t.root == NullNode {
		t.root = leaf
		t.nodes[leaf].parent = NullNode
		return
	}

	// find the best sibling by surface area heuristic
	leafAABB := t.nodes[leaf].aabb
	index := t.root
	for !t.nodes[index].isLeaf() {
		child1 := t.nodes[index].child1
		child2 := t.nodes[index].child2

		area := t.nodes[index].aabb.Perimeter()
		combinedArea := t.nodes[index].aabb.Combine(leafAABB).Perimeter()

		// cost of creating a new parent for this node and the new leaf
		cost := 2 * combinedArea
		// minimum cost of pushing the leaf further down the tree
		inheritance := 2 * (combinedArea - area)

		cost1 := t.descendCost(child1, leafAABB) + inheritance
		cost2 := t.descendCost(child2, leafAABB) + inheritance

		if cost < cost1 && cost < cost2 {
			break
		}
		if cost1 < cost2 {
			index = child1
		} else {
			index = child2
		}
	}

	sibling := index
	oldParent := t.nodes[sibling].parent
	newParent := t.allocateNode()
	t.nodes[newParent].parent = oldParent
	t.nodes[newParent].aabb = leafAABB.Combine(t.nodes[sibling].aabb)
	t.nodes[newParent].height = t.nodes[sibling].height + 1
	t.nodes[newParent].child1 = sibling
	t.nodes[newParent].child2 = leaf
	t.nodes[sibling].parent = newParent
	t.nodes[leaf].parent = newParent

	if oldParent != NullNode {
		if t.nodes[oldParent].child1 == sibling {
			t.nodes[oldParent].child1 = newParent
		} else {
			t.nodes[oldParent].child2 = newParent
		}
	} else {
		t.root = newParent
	}

	t.refit(t.nodes[leaf].parent)
}

func (t *DynamicTree) descendCost(child int, leafAABB AABB) float64 {
	combined := leafAABB.Combine(t.nodes[child].aabb).Perimeter()
	if t.nodes[child].isLeaf() {
		return combined
	}
	return combined - t.nodes[child].aabb.Perimeter()
}

// refit walks up from index fixing heights and boxes.
func (t *DynamicTree) refit(index int) {
	for index != NullNode {
		index = t.balance(index)

		n := &t.nodes[index]
		c1 := &t.nodes[n.child1]
		c2 := &t.nodes[n.child2]
		n.height = 1 + max(c1.height, c2.height)
		n.aabb = c1.aabb.Combine(c2.aabb)

		index = n.parent
	}
}

func (t *DynamicTree) removeLeaf(leaf int) {
	if leaf == t.root {
		t.root = NullNode
		return
	}

	parent := t.nodes[leaf].parent
	grandParent := t.nodes[parent].parent
	sibling := t.nodes[parent].child1
	if sibling == leaf {
		sibling = t.nodes[parent].child2
	}

	if grandParent == NullNode {
		t.root = sibling
		t.nodes[sibling].parent = NullNode
		t.freeNode(parent)
		return
	}

	// destroy parent and connect sibling to grandParent
	if t.nodes[grandParent].child1 == parent {
		t.nodes[grandParent].child1 = sibling
	} else {
		t.nodes[grandParent].child2 = sibling
	}
	t.nodes[sibling].parent = grandParent
	t.freeNode(parent)

	t.refit(grandParent)
}

// balance performs a left or right rotation if node iA is imbalanced and
// returns the index of the subtree root.
func (t *DynamicTree) balance(iA int) int {
	a := &t.nodes[iA]
	if a.isLeaf() || a.height < 2 {
		return iA
	}

	iB, iC := a.child1, a.child2
	b := &t.nodes[iB]
	c := &t.nodes[iC]

	switch bal := c.height - b.height; {
	case bal > 1:
		t.rotateUp(iA, iC, false)
		return iC
	case bal < -1:
		t.rotateUp(iA, iB, true)
		return iB
	}
	return iA
}

// rotateUp lifts child iX of iA into iA's place. left reports whether iX
// is child1 of iA.
func (t *DynamicTree) rotateUp(iA, iX int, left bool) {
	a := &t.nodes[iA]
	x := &t.nodes[iX]

	iOther := a.child1
	if left {
		iOther = a.child2
	}
	other := &t.nodes[iOther]

	iF, iG := x.child1, x.child2
	f := &t.nodes[iF]
	g := &t.nodes[iG]

	// swap A and X
	x.child1 = iA
	x.parent = a.parent
	a.parent = iX

	if x.parent != NullNode {
		p := &t.nodes[x.parent]
		if p.child1 == iA {
			p.child1 = iX
		} else {
			p.child2 = iX
		}
	} else {
		t.root = iX
	}

	// the taller grandchild stays under X, the other moves to A
	keep, iKeep, move, iMove := f, iF, g, iG
	if f.height <= g.height {
		keep, iKeep, move, iMove = g, iG, f, iF
	}

	x.child2 = iKeep
	if left {
		a.child1 = iMove
	} else {
		a.child2 = iMove
	}
	move.parent = iA

	a.aabb = other.aabb.Combine(move.aabb)
	x.aabb = a.aabb.Combine(keep.aabb)
	a.height = 1 + max(other.height, move.height)
	x.height = 1 + max(a.height, keep.height)
}

// Height returns the height of the tree, 0 when empty.
func (t *DynamicTree) Height() int {
	if t.root == NullNode {
		return 0
	}
	return t.nodes[t.root].height
}

// NodeCount returns the number of allocated nodes, internal ones included.
func (t *DynamicTree) NodeCount() int {
	return t.nodeCount
}

// AreaRatio is the sum of all node perimeters over the root perimeter.
func (t *DynamicTree) AreaRatio() float64 {
	if t.root == NullNode {
		return 0
	}
	rootArea := t.nodes[t.root].aabb.Perimeter()

	total := 0.0
	for i := range t.nodes {
		if t.nodes[i].height < 0 {
			continue
		}
		total += t.nodes[i].aabb.Perimeter()
	}
	return total / rootArea
}

// MaxBalance returns the largest height difference between siblings.
func (t *DynamicTree) MaxBalance() int {
	maxBalance := 0
	for i := range t.nodes {
		n := &t.nodes[i]
		if n.height <= 1 {
			continue
		}
		bal := t.nodes[n.child2].height - t.nodes[n.child1].height
		if bal < 0 {
			bal = -bal
		}
		maxBalance = max(maxBalance, bal)
	}
	return maxBalance
}

// Validate checks parent links, heights and boxes. It returns false on
// the first broken invariant.
func (t *DynamicTree) Validate() bool {
	if t.root != NullNode && t.nodes[t.root].parent != NullNode {
		return false
	}
	free := 0
	for i := t.freeList; i != NullNode; i = t.nodes[i].parent {
		free++
	}
	if free+t.nodeCount != len(t.nodes) {
		return false
	}
	return t.validateNode(t.root)
}

func (t *DynamicTree) validateNode(index int) bool {
	if index == NullNode {
		return true
	}
	n := &t.nodes[index]
	if n.isLeaf() {
		return n.child2 == NullNode && n.height == 0
	}
	c1, c2 := &t.nodes[n.child1], &t.nodes[n.child2]
	if c1.parent != index || c2.parent != index {
		return false
	}
	if n.height != 1+max(c1.height, c2.height) {
		return false
	}
	if n.aabb != c1.aabb.Combine(c2.aabb) {
		return false
	}
	return t.validateNode(n.child1) && t.validateNode(n.child2)
}

// RebuildBottomUp rebuilds an optimal tree from the current leaves. It is
// quadratic in the leaf count.
func (t *DynamicTree) RebuildBottomUp() {
	leaves := make([]int, 0, t.nodeCount)
	for i := range t.nodes {
		if t.nodes[i].height < 0 {
			continue
		}
		if t.nodes[i].isLeaf() {
			t.nodes[i].parent = NullNode
			leaves = append(leaves, i)
		} else {
			t.freeNode(i)
		}
	}
	if len(leaves) == 0 {
		t.root = NullNode
		return
	}

	for len(leaves) > 1 {
		minCost := geom.MaxFloat
		iMin, jMin := -1, -1
		for i := 0; i < len(leaves); i++ {
			for j := i + 1; j < len(leaves); j++ {
				cost := t.nodes[leaves[i]].aabb.Combine(t.nodes[leaves[j]].aabb).Perimeter()
				if cost < minCost {
					iMin, jMin, minCost = i, j, cost
				}
			}
		}

		index1, index2 := leaves[iMin], leaves[jMin]
		p := t.allocateNode()
		c1, c2 := &t.nodes[index1], &t.nodes[index2]
		t.nodes[p].child1 = index1
		t.nodes[p].child2 = index2
		t.nodes[p].height = 1 + max(c1.height, c2.height)
		t.nodes[p].aabb = c1.aabb.Combine(c2.aabb)
		c1.parent = p
		c2.parent = p

		leaves[jMin] = leaves[len(leaves)-1]
		leaves[iMin] = p
		leaves = leaves[:len(leaves)-1]
	}

	t.root = leaves[0]
}

// ShiftOrigin translates every box by -newOrigin.
func (t *DynamicTree) ShiftOrigin(newOrigin mgl64.Vec2) {
	for i := range t.nodes {
		if t.nodes[i].height < 0 {
			continue
		}
		t.nodes[i].aabb.Lower = t.nodes[i].aabb.Lower.Sub(newOrigin)
		t.nodes[i].aabb.Upper = t.nodes[i].aabb.Upper.Sub(newOrigin)
	}
}
