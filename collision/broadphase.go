package collision

import (
	"cmp"
	"slices"

	"github.com/go-gl/mathgl/mgl64"
)

// PairFunc receives the user data of two proxies whose fat boxes overlap.
type PairFunc func(userDataA, userDataB any)

type proxyPair struct {
	a, b int
}

// BroadPhase reduces pair candidates with a dynamic tree. Proxies that move
// are buffered and paired on the next UpdatePairs.
type BroadPhase struct {
	tree       *DynamicTree
	proxyCount int
	moveBuffer []int
	pairBuffer []proxyPair
	queryID    int
}

// NewBroadPhase returns a broad-phase whose tree uses the given fattening
// parameters. Zero values select the package defaults.
func NewBroadPhase(extension, multiplier float64) *BroadPhase {
	return &BroadPhase{
		tree:       NewDynamicTree(extension, multiplier),
		moveBuffer: make([]int, 0, 16),
		pairBuffer: make([]proxyPair, 0, 16),
	}
}

// CreateProxy adds a proxy and marks it for pairing.
func (bp *BroadPhase) CreateProxy(aabb AABB, userData any) int {
	id := bp.tree.CreateProxy(aabb, userData)
	bp.proxyCount++
	bp.bufferMove(id)
	return id
}

// DestroyProxy removes a proxy. Pairs involving it are the caller's to
// clean up.
func (bp *BroadPhase) DestroyProxy(id int) {
	bp.unbufferMove(id)
	bp.proxyCount--
	bp.tree.DestroyProxy(id)
}

// MoveProxy updates the proxy box and buffers it if the tree re-inserted it.
func (bp *BroadPhase) MoveProxy(id int, aabb AABB, displacement mgl64.Vec2) {
	if bp.tree.MoveProxy(id, aabb, displacement) {
		bp.bufferMove(id)
	}
}

// TouchProxy forces the proxy to be re-paired on the next update.
func (bp *BroadPhase) TouchProxy(id int) {
	bp.bufferMove(id)
}

func (bp *BroadPhase) bufferMove(id int) {
	bp.moveBuffer = append(bp.moveBuffer, id)
}

func (bp *BroadPhase) unbufferMove(id int) {
	for i, moved := range bp.moveBuffer {
		if moved == id {
			bp.moveBuffer[i] = NullNode
		}
	}
}

func (bp *BroadPhase) UserData(id int) any  { return bp.tree.UserData(id) }
func (bp *BroadPhase) FatAABB(id int) AABB  { return bp.tree.FatAABB(id) }
func (bp *BroadPhase) ProxyCount() int      { return bp.proxyCount }
func (bp *BroadPhase) TreeHeight() int      { return bp.tree.Height() }
func (bp *BroadPhase) TreeBalance() int     { return bp.tree.MaxBalance() }
func (bp *BroadPhase) TreeQuality() float64 { return bp.tree.AreaRatio() }
func (bp *BroadPhase) Tree() *DynamicTree   { return bp.tree }
func (bp *BroadPhase) MoveCount() int       { return len(bp.moveBuffer) }

// TestOverlap reports whether the fat boxes of two proxies overlap.
func (bp *BroadPhase) TestOverlap(idA, idB int) bool {
	return bp.tree.FatAABB(idA).Overlaps(bp.tree.FatAABB(idB))
}

// UpdatePairs queries the tree for every moved proxy and calls fn once per
// new overlapping pair, in ascending proxy order.
func (bp *BroadPhase) UpdatePairs(fn PairFunc) {
	bp.pairBuffer = bp.pairBuffer[:0]

	for _, id := range bp.moveBuffer {
		if id == NullNode {
			continue
		}
		bp.queryID = id

		// query with the fat box so pairs that may touch later are not missed
		bp.tree.Query(bp.collectPair, bp.tree.FatAABB(id))
	}
	bp.moveBuffer = bp.moveBuffer[:0]

	slices.SortFunc(bp.pairBuffer, func(p, q proxyPair) int {
		if c := cmp.Compare(p.a, q.a); c != 0 {
			return c
		}
		return cmp.Compare(p.b, q.b)
	})
	pairs := slices.Compact(bp.pairBuffer)

	for _, p := range pairs {
		fn(bp.tree.UserData(p.a), bp.tree.UserData(p.b))
	}
}

func (bp *BroadPhase) collectPair(id int) bool {
	// a proxy cannot pair with itself
	if id == bp.queryID {
		return true
	}
	bp.pairBuffer = append(bp.pairBuffer, proxyPair{a: min(id, bp.queryID), b: max(id, bp.queryID)})
	return true
}

// Query calls fn for each proxy overlapping aabb.
func (bp *BroadPhase) Query(fn TreeQueryFunc, aabb AABB) {
	bp.tree.Query(fn, aabb)
}

// RayCast forwards to the tree.
func (bp *BroadPhase) RayCast(fn TreeRayCastFunc, input RayCastInput) {
	bp.tree.RayCast(fn, input)
}

// ShiftOrigin translates all proxies by -newOrigin.
func (bp *BroadPhase) ShiftOrigin(newOrigin mgl64.Vec2) {
	bp.tree.ShiftOrigin(newOrigin)
}
