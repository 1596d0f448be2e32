package mss

// The signer-side public API (spec.md section 6 "Produced"): GenerateKeyPair,
// (*PrivateKey).Sign, (*PublicKey).Verify, and the persisted-state and
// signature wire (de)serialization of section 6.
//
// Grounded on the teacher's api.go (GenerateKeyPair, PrivateKey.Sign,
// PublicKey.Verify, Signature.MarshalBinary) for shape; byte layout is
// this module's own, specified by spec.md section 6.

import (
	"crypto/rand"
	"crypto/subtle"
)

// PrivateKey is a signer's full key material: the parameters, the root
// (kept for convenience), and the mutable traversal state.  There must be
// exactly one PrivateKey instance per underlying persisted state at any
// time; see spec.md section 5.
type PrivateKey struct {
	ctx   *Context
	Root  []byte
	State *MerkleState
}

// PublicKey is the root hash together with the parameters needed to
// verify against it.
type PublicKey struct {
	Params Params
	Root   []byte
}

// GenerateKeyPair runs keygen with a freshly drawn random seed and
// returns the new PrivateKey and its PublicKey.  Seed generation itself
// is out of the core's scope (spec.md section 1); crypto/rand is this
// convenience wrapper's entropy source.
func GenerateKeyPair(p Params) (*PrivateKey, *PublicKey, error) {
	seed := make([]byte, p.N)
	if _, err := rand.Read(seed); err != nil {
		return nil, nil, wrapErrorf(err, "reading random seed")
	}
	return GenerateKeyPairFromSeed(p, seed)
}

// GenerateKeyPairFromSeed runs keygen from an explicit seed.  Deterministic:
// the same (p, seed) always yields the same root and initial state.
func GenerateKeyPairFromSeed(p Params, seed []byte) (*PrivateKey, *PublicKey, error) {
	ctx, err := NewContext(p)
	if err != nil {
		return nil, nil, err
	}
	if uint32(len(seed)) != p.N {
		return nil, nil, errorf("seed must be %d bytes, not %d", p.N, len(seed))
	}
	root, state := ctx.GenerateMerkleTree(seed)
	sk := &PrivateKey{ctx: ctx, Root: root.Value, State: state}
	pk := &PublicKey{Params: p, Root: root.Value}
	return sk, pk, nil
}

// Sign signs message with sk, advancing its traversal state by one leaf.
func (sk *PrivateKey) Sign(message []byte) (*Signature, error) {
	sig, err := sk.ctx.Sign(sk.State, message)
	if err != nil {
		return nil, err
	}
	return sig, nil
}

// Params returns the parameters sk was generated with.
func (sk *PrivateKey) Params() Params { return sk.ctx.p }

// PublicKey returns sk's corresponding public key.
func (sk *PrivateKey) PublicKey() *PublicKey {
	return &PublicKey{Params: sk.ctx.p, Root: sk.Root}
}

// Verify checks sig against pk; the dedicated package-level function
// avoids requiring callers to construct a Context themselves.
func (pk *PublicKey) Verify(message []byte, sig *Signature) error {
	ctx, err := NewContext(pk.Params)
	if err != nil {
		return err
	}
	return ctx.Verify(pk.Root, message, sig)
}

// Verify is a convenience wrapper equivalent to pk.Verify(message, sig).
func Verify(pk *PublicKey, message []byte, sig *Signature) error {
	return pk.Verify(message, sig)
}

// --- Persisted state wire format (spec.md section 6) ---

// MarshalBinary encodes the full traversal state.  Deviations from the
// literal byte layout of spec.md section 6, both documented in
// DESIGN.md: leaf_index and treehash_seed entries are widened to
// indexBytes() (consistent with Node's index widening) rather than fixed
// at 2 bytes, since both hold values up to 2^H; and the stack is encoded
// as a live-count prefix followed by exactly that many nodes, rather than
// a fixed STACK_SIZE array, since STACK_SIZE is not otherwise pinned down.
func (state *MerkleState) MarshalBinary(p Params) ([]byte, error) {
	ib := p.indexBytes()
	ns := p.NodeSize()
	ths := p.TreehashSize()

	size := int(ib) // leaf_index
	size += int(ths) // treehash_state
	size += 2        // stack_index
	size += len(state.RetainIndex) * 2
	size += int(ths) * int(ib) // treehash_seed
	size += int(ths) * int(ns) // treehash[]
	size += len(state.Stack.nodes) * int(ns)
	size += len(state.Retain) * int(ns)
	size += len(state.Keep) * int(ns)
	size += len(state.Auth) * int(ns)
	size += len(state.Store) * int(ns)
	size += int(p.N) // seed

	buf := make([]byte, size)
	off := 0

	encodeUint64LEInto(state.LeafIndex, buf[off:off+int(ib)])
	off += int(ib)

	for _, t := range state.Treehash {
		buf[off] = t.packByte()
		off++
	}

	encodeUint64LEInto(uint64(len(state.Stack.nodes)), buf[off:off+2])
	off += 2

	for _, ri := range state.RetainIndex {
		encodeUint64LEInto(uint64(ri), buf[off:off+2])
		off += 2
	}

	for _, ts := range state.TreehashSeed {
		encodeUint64LEInto(ts, buf[off:off+int(ib)])
		off += int(ib)
	}

	for _, t := range state.Treehash {
		t.Node.writeInto(p, buf[off:off+int(ns)])
		off += int(ns)
	}
	for _, n := range state.Stack.nodes {
		n.writeInto(p, buf[off:off+int(ns)])
		off += int(ns)
	}
	for _, n := range state.Retain {
		n.writeInto(p, buf[off:off+int(ns)])
		off += int(ns)
	}
	for _, n := range state.Keep {
		n.writeInto(p, buf[off:off+int(ns)])
		off += int(ns)
	}
	for _, n := range state.Auth {
		n.writeInto(p, buf[off:off+int(ns)])
		off += int(ns)
	}
	for _, n := range state.Store {
		n.writeInto(p, buf[off:off+int(ns)])
		off += int(ns)
	}

	copy(buf[off:off+int(p.N)], state.Seed)
	off += int(p.N)

	return buf, nil
}

// UnmarshalBinaryMerkleState decodes a state blob written by MarshalBinary,
// validating the invariants spec.md section 9 requires readers to check.
func UnmarshalBinaryMerkleState(p Params, buf []byte) (*MerkleState, error) {
	ib := int(p.indexBytes())
	ns := int(p.NodeSize())
	ths := int(p.TreehashSize())

	off := 0
	need := func(n int) error {
		if off+n > len(buf) {
			return errStateCorruption("truncated state: need %d more bytes at offset %d", n, off)
		}
		return nil
	}

	if err := need(ib); err != nil {
		return nil, err
	}
	leafIndex := decodeUint64LE(buf[off : off+ib])
	off += ib
	if leafIndex > p.MaxLeafIndex() {
		return nil, errStateCorruption("leaf_index %d exceeds 2^H", leafIndex)
	}

	state := NewMerkleState(p)
	state.LeafIndex = leafIndex

	if err := need(ths); err != nil {
		return nil, err
	}
	for i := 0; i < ths; i++ {
		s, tail, err := unpackTreehashByte(buf[off], p.H)
		if err != nil {
			return nil, err
		}
		state.Treehash[i].State = s
		state.Treehash[i].Tailheight = tail
		off++
	}

	if err := need(2); err != nil {
		return nil, err
	}
	stackCount := int(decodeUint64LE(buf[off : off+2]))
	off += 2
	if stackCount > int(p.H) {
		return nil, errStateCorruption("stack_index %d exceeds H", stackCount)
	}

	if err := need(len(state.RetainIndex) * 2); err != nil {
		return nil, err
	}
	for i := range state.RetainIndex {
		state.RetainIndex[i] = uint32(decodeUint64LE(buf[off : off+2]))
		off += 2
	}

	if err := need(ths * ib); err != nil {
		return nil, err
	}
	for i := 0; i < ths; i++ {
		state.TreehashSeed[i] = decodeUint64LE(buf[off : off+ib])
		off += ib
	}

	readNodes := func(count int) ([]Node, error) {
		if err := need(count * ns); err != nil {
			return nil, err
		}
		out := make([]Node, count)
		for i := 0; i < count; i++ {
			out[i] = readNode(p, buf[off:off+ns])
			off += ns
		}
		return out, nil
	}

	var err error
	thNodes, err := readNodes(ths)
	if err != nil {
		return nil, err
	}
	for i, n := range thNodes {
		state.Treehash[i].Node = n
	}

	stackNodes, err := readNodes(stackCount)
	if err != nil {
		return nil, err
	}
	state.Stack = newNodeStack(p.H)
	for _, n := range stackNodes {
		state.Stack.push(n)
	}

	if state.Retain, err = readNodes(len(state.Retain)); err != nil {
		return nil, err
	}
	if state.Keep, err = readNodes(len(state.Keep)); err != nil {
		return nil, err
	}
	if state.Auth, err = readNodes(len(state.Auth)); err != nil {
		return nil, err
	}
	if state.Store, err = readNodes(len(state.Store)); err != nil {
		return nil, err
	}

	if err := need(int(p.N)); err != nil {
		return nil, err
	}
	copy(state.Seed, buf[off:off+int(p.N)])
	off += int(p.N)

	return state, nil
}

// --- Signature wire format (spec.md section 6) ---

// MarshalBinary encodes sig as v_node || authpath[0..H) || wots_sig[L*N].
func (sig *Signature) MarshalBinary(p Params) ([]byte, error) {
	ns := int(p.NodeSize())
	buf := make([]byte, ns+int(p.H)*ns+int(p.WotsSignatureSize()))
	off := 0
	sig.V.writeInto(p, buf[off:off+ns])
	off += ns
	for _, n := range sig.AuthPath {
		n.writeInto(p, buf[off:off+ns])
		off += ns
	}
	copy(buf[off:], wotsSignatureToBytes(sig.Sig))
	return buf, nil
}

// UnmarshalBinarySignature decodes a signature written by MarshalBinary.
func UnmarshalBinarySignature(p Params, buf []byte) (*Signature, error) {
	ns := int(p.NodeSize())
	want := ns + int(p.H)*ns + int(p.WotsSignatureSize())
	if len(buf) != want {
		return nil, errInvalidSignature("signature has %d bytes, want %d", len(buf), want)
	}
	off := 0
	v := readNode(p, buf[off:off+ns])
	off += ns
	authPath := make([]Node, p.H)
	for i := range authPath {
		authPath[i] = readNode(p, buf[off:off+ns])
		off += ns
	}
	sig := wotsSignatureFromBytes(buf[off:], p)
	return &Signature{V: v, AuthPath: authPath, Sig: sig}, nil
}

// rootsEqual performs a constant-time comparison of two roots, the way
// the teacher's api.go compares reconstructed and expected roots.
func rootsEqual(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}
