package mss

// Verify (C8) of spec.md section 4.9: completes the W-OTS chains from the
// signature to recover a candidate public value, checks it against the
// transmitted v, then climbs the authentication path to the root.
//
// Resolves the "verify ordering" open question of section 9: rather than
// hashing an uninitialized digest buffer before it exists, the signature
// carries v explicitly (spec.md section 6, "Signature on wire"), breaking
// the circularity between deriving the digest and recovering v.  Verify
// hashes the transmitted v to derive the digest, recomputes v from the
// signature using that digest, and accepts only if the two agree and the
// authentication path climbs to the expected root.
func (ctx *Context) Verify(root []byte, message []byte, sig *Signature) error {
	p := ctx.p

	if len(sig.AuthPath) != int(p.H) {
		return errInvalidSignature("authpath has %d nodes, want %d", len(sig.AuthPath), p.H)
	}
	if len(sig.Sig) != int(p.WotsLen()) {
		return errInvalidSignature("wots signature has %d chunks, want %d", len(sig.Sig), p.WotsLen())
	}
	if sig.V.Index >= p.MaxLeafIndex() {
		return errInvalidSignature("leaf index %d out of range", sig.V.Index)
	}
	if uint32(len(sig.V.Value)) != p.N {
		return errInvalidSignature("v has %d bytes, want %d", len(sig.V.Value), p.N)
	}

	digest := make([]byte, p.N)
	ctx.etcrHashInto(sig.V.Value, message, digest)

	vPrime := ctx.wotsVerify(digest, sig.Sig)
	if !rootsEqual(vPrime, sig.V.Value) {
		return errInvalidSignature("chain completion does not match transmitted v")
	}

	candidate := Node{Height: 0, Index: sig.V.Index, Value: ctx.hash32(sig.V.Value)}
	for h := uint32(0); h < p.H; h++ {
		a := sig.AuthPath[h]
		if a.Index >= candidate.Index {
			candidate = ctx.parent(candidate, a)
		} else {
			candidate = ctx.parent(a, candidate)
		}
	}

	if candidate.Height != p.H || candidate.Index != 0 || !rootsEqual(candidate.Value, root) {
		return errInvalidSignature("reconstructed root does not match")
	}
	return nil
}
