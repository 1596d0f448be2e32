package mss

// The key-generation tree walker (C6) of spec.md section 4.5: builds
// every leaf in index order with a height-based stack reduction, seeding
// MerkleState for leaf_index=0 and returning the root.
//
// Grounded on original_source/src/mss.c's mss_keygen_core, _init_state
// and _count_trailing_zeros.

// countTrailingOnes returns the number of trailing one-bits of x.
func countTrailingOnes(x uint64) uint32 {
	var n uint32
	for x&1 == 1 {
		n++
		x >>= 1
	}
	return n
}

// GenerateMerkleTree runs the keygen walker for p starting from seed,
// returning the root (the public key) and the fully initialized state
// for leaf_index=0.  seed is not modified; a copy is taken.
func (ctx *Context) GenerateMerkleTree(seed []byte) (root Node, state *MerkleState) {
	p := ctx.p
	state = NewMerkleState(p)
	copy(state.Seed, seed)

	runningSeed := make([]byte, p.N)
	copy(runningSeed, seed)

	var cur Node
	for pos := uint64(0); pos < p.MaxLeafIndex(); pos++ {
		var r []byte
		runningSeed, r = ctx.fsgen(runningSeed)

		_, cur = ctx.makeLeaf(pos, r)
		ctx.initState(state, cur)

		for cur.Height < countTrailingOnes(pos) {
			left := state.Stack.pop()
			cur = ctx.parent(left, cur)
			ctx.initState(state, cur)
		}
		if cur.Height < p.H {
			state.Stack.push(cur)
		}
	}
	root = cur
	return
}

// initState applies the init_state side effects of spec.md section 4.5
// whenever a freshly computed node n is produced during keygen.
func (ctx *Context) initState(state *MerkleState, n Node) {
	p := ctx.p

	if n.Index == 1 && n.Height < p.H {
		state.Auth[n.Height] = n.copy()
	}
	if n.Index == 3 && n.Height < p.H-p.K {
		state.Treehash[n.Height] = treehashInstance{State: thFinished, Node: n.copy()}
		state.TreehashSeed[n.Height] = 3
	}
	if n.Index >= 3 && n.Index%2 == 1 && n.Height >= p.H-p.K && n.Height < p.H-1 {
		slot := retainBase(p, n.Height) + uint32(n.Index>>1) - 1
		state.Retain[slot] = n.copy()
	}
}
