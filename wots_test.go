package mss

import (
	"bytes"
	"testing"
)

func testWotsSignVerify(p Params, t *testing.T) {
	ctx, err := NewContext(p)
	if err != nil {
		t.Fatalf("NewContext: %s", err)
	}

	r := make([]byte, p.N)
	for i := range r {
		r[i] = byte(i * 7)
	}

	v, _ := ctx.wotsPkGen(r)

	digest := make([]byte, p.N)
	for i := range digest {
		digest[i] = byte(i * 13)
	}

	sig := ctx.wotsSign(r, digest)
	if uint32(len(sig)) != p.WotsLen() {
		t.Fatalf("wotsSign produced %d chunks, want %d", len(sig), p.WotsLen())
	}

	got := ctx.wotsVerify(digest, sig)
	if !bytes.Equal(got, v) {
		t.Fatalf("wotsVerify(digest, wotsSign(r, digest)) != wotsPkGen(r).v")
	}
}

func TestWotsSignVerify(t *testing.T) {
	for _, p := range []Params{
		{SHA2, 32, 10, 4, 4},
		{SHA2, 32, 10, 4, 16},
		{SHA2, 16, 10, 4, 16},
		{SHAKE, 32, 10, 4, 16},
	} {
		testWotsSignVerify(p, t)
	}
}

func TestWotsVerifyRejectsTamperedDigest(t *testing.T) {
	p := Params{SHA2, 32, 10, 4, 16}
	ctx, _ := NewContext(p)

	r := make([]byte, p.N)
	digest := make([]byte, p.N)
	digest[0] = 0x42

	v, _ := ctx.wotsPkGen(r)
	sig := ctx.wotsSign(r, digest)

	tampered := make([]byte, p.N)
	copy(tampered, digest)
	tampered[0] ^= 0xff

	got := ctx.wotsVerify(tampered, sig)
	if bytes.Equal(got, v) {
		t.Fatal("wotsVerify recovered the same v from a signature over a different digest")
	}
}

func TestToBaseW(t *testing.T) {
	in := []byte{0xab, 0xcd}
	out := toBaseW(in, 4, 4)
	want := []uint32{0xa, 0xb, 0xc, 0xd}
	for i, w := range want {
		if out[i] != w {
			t.Fatalf("toBaseW[%d] = %x, want %x", i, out[i], w)
		}
	}
}
