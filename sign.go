package mss

// Sign (C8) of spec.md section 4.8: assembles the W-OTS signature over
// the current leaf together with a snapshot of its authentication path,
// then advances the traversal state for the next leaf.
//
// Resolves the "legacy even/odd leaf aliasing" open question of section
// 9 in favor of correctness: v is always independently recomputed from r
// (see DESIGN.md), never aliased from authpath[0].

// Signature is the artifact produced by Sign and consumed by Verify.
type Signature struct {
	V        Node     // the W-OTS public value, at height 0, index leaf_index
	AuthPath []Node   // size H, snapshot of auth[0..H) at signing time
	Sig      [][]byte // size WotsLen(), the W-OTS chain chunks
}

// Sign produces a signature over message at state.LeafIndex and advances
// state for the next leaf.  Returns an ExhaustedKey error if the key has
// already signed its last leaf.
func (ctx *Context) Sign(state *MerkleState, message []byte) (*Signature, error) {
	p := ctx.p
	if state.LeafIndex >= p.MaxLeafIndex() {
		return nil, errExhaustedKey(p.MaxLeafIndex())
	}

	s := state.LeafIndex
	newSeed, r := ctx.fsgen(state.Seed)

	v, leaf := ctx.makeLeaf(s, r)

	digest := make([]byte, p.N)
	ctx.etcrHashInto(v, message, digest)

	sig := ctx.wotsSign(r, digest)

	authPath := make([]Node, p.H)
	for i, n := range state.Auth {
		authPath[i] = n.copy()
	}

	state.Seed = newSeed
	if s < p.MaxLeafIndex()-1 {
		ctx.nextAuth(state, s, leaf)
	}
	state.LeafIndex = s + 1

	return &Signature{
		V:        Node{Height: 0, Index: s, Value: v},
		AuthPath: authPath,
		Sig:      sig,
	}, nil
}
