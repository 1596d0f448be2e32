package mss

import (
	"bytes"
	"testing"
)

func testParamsSmall() Params {
	return Params{Func: SHA2, N: 16, H: 4, K: 2, W: 16}
}

func testSeed(n uint32) []byte {
	seed := make([]byte, n)
	for i := range seed {
		seed[i] = byte(0xa0 + i%16)
	}
	return seed
}

func TestKeygenDeterministic(t *testing.T) {
	p := testParamsSmall()
	ctx, err := NewContext(p)
	if err != nil {
		t.Fatalf("NewContext: %s", err)
	}
	root1, _ := ctx.GenerateMerkleTree(testSeed(p.N))
	root2, _ := ctx.GenerateMerkleTree(testSeed(p.N))
	if !bytes.Equal(root1.Value, root2.Value) {
		t.Fatal("GenerateMerkleTree is not deterministic given the same seed")
	}
	if root1.Height != p.H || root1.Index != 0 {
		t.Fatalf("root has height %d index %d, want height %d index 0", root1.Height, root1.Index, p.H)
	}
}

// TestAuthPathIndices checks the structural invariant of spec.md section
// 8 property 3: after sign(s), for every height h, auth[h].Index must be
// the sibling of leaf s+1's ancestor at h, i.e. (s+1)>>h XOR 1. This
// holds independent of hash values, so it isolates bugs in nextAuth's
// index bookkeeping from bugs in the hash primitives.
func TestAuthPathIndices(t *testing.T) {
	p := testParamsSmall()
	ctx, err := NewContext(p)
	if err != nil {
		t.Fatalf("NewContext: %s", err)
	}
	_, state := ctx.GenerateMerkleTree(testSeed(p.N))

	for s := uint64(0); s < p.MaxLeafIndex()-1; s++ {
		if _, err := ctx.Sign(state, []byte("msg")); err != nil {
			t.Fatalf("Sign(%d): %s", s, err)
		}
		next := s + 1
		for h := uint32(0); h < p.H; h++ {
			want := (next >> h) ^ 1
			got := state.Auth[h].Index
			if got != want {
				t.Fatalf("after sign(%d): auth[%d].Index = %d, want %d", s, h, got, want)
			}
		}
	}
}

// TestParityCheckE6 reproduces the end-to-end scenario of spec.md
// section 8, E6: for H=4, after sign(5) the authentication path indices
// must be exactly {h=0: 7, h=1: 2, h=2: 0, h=3: 1}.
func TestParityCheckE6(t *testing.T) {
	p := testParamsSmall()
	ctx, err := NewContext(p)
	if err != nil {
		t.Fatalf("NewContext: %s", err)
	}
	_, state := ctx.GenerateMerkleTree(testSeed(p.N))

	for s := uint64(0); s <= 5; s++ {
		if _, err := ctx.Sign(state, []byte("msg")); err != nil {
			t.Fatalf("Sign(%d): %s", s, err)
		}
	}

	want := []uint64{7, 2, 0, 1}
	for h, w := range want {
		if state.Auth[h].Index != w {
			t.Fatalf("auth[%d].Index = %d, want %d", h, state.Auth[h].Index, w)
		}
	}
}

func TestSignVerifyRoundTrip(t *testing.T) {
	p := testParamsSmall()
	ctx, err := NewContext(p)
	if err != nil {
		t.Fatalf("NewContext: %s", err)
	}
	root, state := ctx.GenerateMerkleTree(testSeed(p.N))

	for i := uint64(0); i < p.MaxLeafIndex(); i++ {
		msg := []byte{0x00, 0x01, 0x02, 0x0f}
		msg[0] ^= byte(i)
		sig, err := ctx.Sign(state, msg)
		if err != nil {
			t.Fatalf("Sign(%d): %s", i, err)
		}
		if err := ctx.Verify(root.Value, msg, sig); err != nil {
			t.Fatalf("Verify(%d): %s", i, err)
		}
	}

	if _, err := ctx.Sign(state, []byte("one too many")); err == nil {
		t.Fatal("Sign past 2^H leaves should fail")
	} else if mssErr, ok := err.(*errorImpl); !ok || mssErr.Kind() != KindExhaustedKey {
		t.Fatalf("expected KindExhaustedKey, got %v", err)
	}
}

func TestVerifyRejectsWrongMessage(t *testing.T) {
	p := testParamsSmall()
	ctx, _ := NewContext(p)
	root, state := ctx.GenerateMerkleTree(testSeed(p.N))

	var sig *Signature
	for i := 0; i < 4; i++ {
		var err error
		sig, err = ctx.Sign(state, []byte("hello"))
		if err != nil {
			t.Fatalf("Sign: %s", err)
		}
	}

	if err := ctx.Verify(root.Value, []byte("goodbye"), sig); err == nil {
		t.Fatal("Verify should reject a signature checked against the wrong message")
	}
}

func TestVerifyRejectsTamperedAuthpath(t *testing.T) {
	p := testParamsSmall()
	ctx, _ := NewContext(p)
	root, state := ctx.GenerateMerkleTree(testSeed(p.N))

	sig, err := ctx.Sign(state, []byte("hello"))
	if err != nil {
		t.Fatalf("Sign: %s", err)
	}
	sig.AuthPath[2].Value[0] ^= 0xff

	if err := ctx.Verify(root.Value, []byte("hello"), sig); err == nil {
		t.Fatal("Verify should reject a tampered authpath")
	}
}

func TestVerifyRejectsTamperedWotsSig(t *testing.T) {
	p := testParamsSmall()
	ctx, _ := NewContext(p)
	root, state := ctx.GenerateMerkleTree(testSeed(p.N))

	sig, err := ctx.Sign(state, []byte("hello"))
	if err != nil {
		t.Fatalf("Sign: %s", err)
	}
	sig.Sig[0][0] ^= 0xff

	if err := ctx.Verify(root.Value, []byte("hello"), sig); err == nil {
		t.Fatal("Verify should reject a tampered W-OTS signature")
	}
}

func TestSameMessageAtDifferentLeavesVerifiesAndDiffers(t *testing.T) {
	p := testParamsSmall()
	ctx, _ := NewContext(p)
	root, state := ctx.GenerateMerkleTree(testSeed(p.N))

	msgs := [][]byte{[]byte("hello"), []byte("world"), []byte("hello")}
	var sigs []*Signature
	for _, m := range msgs {
		sig, err := ctx.Sign(state, m)
		if err != nil {
			t.Fatalf("Sign: %s", err)
		}
		sigs = append(sigs, sig)
	}
	for i, sig := range sigs {
		if err := ctx.Verify(root.Value, msgs[i], sig); err != nil {
			t.Fatalf("Verify(%d): %s", i, err)
		}
	}
	if bytes.Equal(sigs[0].Sig[0], sigs[2].Sig[0]) {
		t.Fatal("signatures of the same plaintext at different leaves must differ")
	}
}

func TestMerkleStateSerializationRoundTrip(t *testing.T) {
	p := testParamsSmall()
	ctx, _ := NewContext(p)
	_, state := ctx.GenerateMerkleTree(testSeed(p.N))

	for i := 0; i < 3; i++ {
		if _, err := ctx.Sign(state, []byte("msg")); err != nil {
			t.Fatalf("Sign: %s", err)
		}
	}

	buf, err := state.MarshalBinary(p)
	if err != nil {
		t.Fatalf("MarshalBinary: %s", err)
	}
	state2, err := UnmarshalBinaryMerkleState(p, buf)
	if err != nil {
		t.Fatalf("UnmarshalBinaryMerkleState: %s", err)
	}
	buf2, err := state2.MarshalBinary(p)
	if err != nil {
		t.Fatalf("re-MarshalBinary: %s", err)
	}
	if !bytes.Equal(buf, buf2) {
		t.Fatal("state round trip is not bit-exact")
	}
}

func TestSignatureSerializationRoundTrip(t *testing.T) {
	p := testParamsSmall()
	ctx, _ := NewContext(p)
	_, state := ctx.GenerateMerkleTree(testSeed(p.N))

	sig, err := ctx.Sign(state, []byte("msg"))
	if err != nil {
		t.Fatalf("Sign: %s", err)
	}
	buf, err := sig.MarshalBinary(p)
	if err != nil {
		t.Fatalf("MarshalBinary: %s", err)
	}
	sig2, err := UnmarshalBinarySignature(p, buf)
	if err != nil {
		t.Fatalf("UnmarshalBinarySignature: %s", err)
	}
	buf2, err := sig2.MarshalBinary(p)
	if err != nil {
		t.Fatalf("re-MarshalBinary: %s", err)
	}
	if !bytes.Equal(buf, buf2) {
		t.Fatal("signature round trip is not bit-exact")
	}
}

// TestTreehashStoreReuseAcrossHeights exercises the store-reuse formulas
// of spec.md section 4.7 by running a full sign sequence over a larger
// tree (H=6) where multiple treehash levels overlap more than once,
// which is the case those formulas exist to optimize.
func TestTreehashStoreReuseAcrossHeights(t *testing.T) {
	p := Params{Func: SHA2, N: 16, H: 6, K: 2, W: 16}
	ctx, err := NewContext(p)
	if err != nil {
		t.Fatalf("NewContext: %s", err)
	}
	root, state := ctx.GenerateMerkleTree(testSeed(p.N))

	for i := uint64(0); i < p.MaxLeafIndex(); i++ {
		msg := []byte{byte(i), byte(i >> 8)}
		sig, err := ctx.Sign(state, msg)
		if err != nil {
			t.Fatalf("Sign(%d): %s", i, err)
		}
		if err := ctx.Verify(root.Value, msg, sig); err != nil {
			t.Fatalf("Verify(%d): %s", i, err)
		}
	}
}
