package mss

// The traversal scheduler nextAuth (C7) and treehash_update (C7.1) of
// spec.md sections 4.6-4.7: the budgeted, incremental algorithm that
// amortizes authentication-path maintenance to O(log N) hashes per
// signature while bounding memory to O(log N + 2^K) nodes.
//
// Grounded on original_source/src/mss.c's _nextAuth, _treehash_update,
// _treehash_height, _retain_push and _retain_pop.

// countTrailingZeros returns the number of trailing zero bits of x; x
// must be nonzero.
func countTrailingZeros(x uint64) uint32 {
	var n uint32
	for x&1 == 0 {
		n++
		x >>= 1
	}
	return n
}

// retainPop reads and consumes the next retain entry for tree height h,
// per spec.md section 4.6.
func retainPop(p Params, state *MerkleState, h uint32) Node {
	level := h - (p.H - p.K)
	slot := retainBase(p, h) + state.RetainIndex[level]
	state.RetainIndex[level]++
	return state.Retain[slot].copy()
}

// nextAuth advances state from leaf s to leaf s+1: refreshes auth[tau]
// and spends a bounded treehash-update budget, per spec.md section 4.6.
// currentLeaf is the leaf node just produced and signed for leaf index s.
func (ctx *Context) nextAuth(state *MerkleState, s uint64, currentLeaf Node) {
	p := ctx.p
	tau := countTrailingZeros(s + 1)

	// Step A: park the old auth[tau] into keep[tau].
	if tau < p.H-1 && (s>>(tau+1))&1 == 0 {
		state.Keep[tau] = state.Auth[tau].copy()
	}

	// Step B: refresh auth[tau].
	if tau == 0 {
		state.Auth[0] = currentLeaf.copy()
	} else {
		state.Auth[tau] = ctx.parent(state.Auth[tau-1], state.Keep[tau-1])

		top := tau - 1
		if p.H-p.K-1 < top {
			top = p.H - p.K - 1
		}
		for h := uint32(0); h <= top; h++ {
			state.Auth[h] = state.Treehash[h].Node.copy()
			seed := s + 1 + 3*(uint64(1)<<h)
			if seed < p.MaxLeafIndex() {
				state.Treehash[h] = treehashInstance{State: thNew, Node: newNode(p.N)}
				state.TreehashSeed[h] = seed
			} else {
				state.Treehash[h].State = thFinished
			}
		}

		for h := p.H - p.K; h < tau; h++ {
			state.Auth[h] = retainPop(p, state, h)
		}
	}

	// Step C: spend the treehash-update budget.
	budget := (p.H - p.K) / 2
	ths := p.TreehashSize()
	for i := uint32(0); i < budget; i++ {
		var best int32 = -1
		var bestVal uint32 = thHeightInfinity + 1
		for h := int32(ths) - 1; h >= 0; h-- {
			v := state.Treehash[h].height(uint32(h))
			if v < bestVal {
				bestVal = v
				best = h
			}
		}
		if best < 0 {
			break
		}
		k := uint32(best)
		if state.Treehash[k].State != thFinished {
			ctx.treehashUpdate(state, k, s+1)
		}
	}
}

// treehashUpdate feeds one more leaf into the incremental subtree
// computation at level h, per spec.md section 4.7.  afterLeaf is the
// leaf index that state.Seed is currently positioned to produce
// randomness for (i.e. one past the leaf most recently signed).
func (ctx *Context) treehashUpdate(state *MerkleState, h uint32, afterLeaf uint64) {
	p := ctx.p
	ts := state.TreehashSeed[h]

	var node1 Node
	if h < p.TreehashSize()-1 && ts >= 11*(uint64(1)<<h) && (ts-11*(uint64(1)<<h))%(uint64(1)<<(h+2)) == 0 {
		node1 = state.Store[h].copy()
		node1.Height = 0
		node1.Index = ts
	} else {
		// state.Seed is positioned to produce the randomness for leaf
		// afterLeaf on the very first fsgen call, so reaching leaf ts
		// takes ts-afterLeaf+1 calls, not ts-afterLeaf.
		scratch := make([]byte, p.N)
		copy(scratch, state.Seed)
		var r []byte
		for i := uint64(0); i <= ts-afterLeaf; i++ {
			scratch, r = ctx.fsgen(scratch)
		}
		_, node1 = ctx.makeLeaf(ts, r)
	}

	if h > 0 && ts >= 11*(uint64(1)<<(h-1)) && (ts-11*(uint64(1)<<(h-1)))%(uint64(1)<<(h+1)) == 0 {
		state.Store[h-1] = node1.copy()
	}

	state.TreehashSeed[h] = ts + 1
	tail := uint32(0)

	for !state.Stack.empty() && tail == state.Stack.top().Height && tail+1 < h {
		node2 := state.Stack.pop()
		node1 = ctx.parent(node2, node1)
		tail++
	}

	if tail+1 < h {
		state.Stack.push(node1)
		state.Treehash[h].State = thRunning
		state.Treehash[h].Tailheight = uint8(tail)
		return
	}

	if state.Treehash[h].State == thRunning && node1.Index%2 == 1 {
		node1 = ctx.parent(state.Treehash[h].Node, node1)
		tail++
	}
	newState := thRunning
	if node1.Height == h {
		newState = thFinished
	}
	state.Treehash[h] = treehashInstance{State: newState, Tailheight: uint8(tail), Node: node1}
}
