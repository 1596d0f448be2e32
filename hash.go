package mss

// The hash primitives consumed by the rest of the package: H (hash32), the
// MMO-style compressor backing fsgen, the W-OTS chain-step hash and the
// ETCR message hash.  Grounded on the teacher's hash.go (precomputeHashes,
// hashInto, fInto, hInto) generalized away from the WOTS+/XMSS ADRS scheme
// toward the plain keyed-compressor interfaces spec.md section 6 names.

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"hash"

	"github.com/templexxx/xor"
	"golang.org/x/crypto/sha3"
)

const (
	padF    = 0 // domain separator for the W-OTS chain-step hash
	padH    = 1 // domain separator for parent/node hashing
	padHash = 2 // domain separator for the ETCR message hash
	padFs0  = 0 // MMO counter-IV domain tag for fsgen's seed_out
	padFs1  = 1 // MMO counter-IV domain tag for fsgen's r
)

// Context binds a Params to the hash machinery needed to exercise it:
// which hash function backs H.  It holds no scratch state; each hashing
// call allocates its own hashScratchPad.
type Context struct {
	p Params
}

// NewContext validates p and returns a Context for it.
func NewContext(p Params) (*Context, error) {
	if err := p.Validate(); err != nil {
		return nil, wrapErrorf(err, "invalid parameters")
	}
	return &Context{p: p}, nil
}

// Params returns the parameters this Context was constructed with.
func (ctx *Context) Params() Params { return ctx.p }

// hashScratchPad holds the preallocated hash state reused across calls to
// H, avoiding needless allocation the way the teacher's scratchPad does.
type hashScratchPad struct {
	h     hash.Hash
	shake sha3.ShakeHash
}

func (ctx *Context) newHashScratchPad() hashScratchPad {
	var pad hashScratchPad
	switch ctx.p.Func {
	case SHA2:
		if ctx.p.N > 32 {
			pad.h = sha512.New()
		} else {
			pad.h = sha256.New()
		}
	case SHAKE:
		if ctx.p.N > 32 {
			pad.shake = sha3.NewShake256()
		} else {
			pad.shake = sha3.NewShake128()
		}
	}
	return pad
}

// hashInto computes H(in) and writes the first N bytes to out.
func (ctx *Context) hashInto(pad *hashScratchPad, in, out []byte) {
	switch ctx.p.Func {
	case SHA2:
		pad.h.Reset()
		pad.h.Write(in)
		copy(out[:ctx.p.N], pad.h.Sum(nil))
	case SHAKE:
		pad.shake.Reset()
		pad.shake.Write(in)
		pad.shake.Read(out[:ctx.p.N])
	}
}

// hash32 computes H(in) and returns it as a freshly allocated N-byte slice.
func (ctx *Context) hash32(in []byte) []byte {
	pad := ctx.newHashScratchPad()
	out := make([]byte, ctx.p.N)
	ctx.hashInto(&pad, in, out)
	return out
}

// hInto computes the internal-node hash parent = H(PAD_H || left || right),
// per spec.md section 4.4: left bytes precede right, normatively.
func (ctx *Context) hInto(left, right, out []byte) {
	pad := ctx.newHashScratchPad()
	n := ctx.p.N
	buf := make([]byte, n+2*n)
	encodeUint64Into(padH, buf[:n])
	copy(buf[n:2*n], left)
	copy(buf[2*n:3*n], right)
	ctx.hashInto(&pad, buf, out)
}

// chainStepInto computes one W-OTS chain step: the value one position
// further along chain chainIdx, given the current value in and which step
// within the chain this is.  Keyed by the fixed public constant X of
// spec.md section 4.2, so two signers sharing X but not the secret seed
// cannot correlate chain values.
func (ctx *Context) chainStepInto(in []byte, chainIdx, step uint32, out []byte) {
	pad := ctx.newHashScratchPad()
	n := ctx.p.N
	x := ctx.publicConstant()
	buf := make([]byte, n+4+4+n)
	encodeUint64Into(padF, buf[:n])
	binary.BigEndian.PutUint32(buf[n:n+4], chainIdx)
	binary.BigEndian.PutUint32(buf[n+4:n+8], step)
	xor.BytesSameLen(buf[n+8:n+8+n], in, x)
	ctx.hashInto(&pad, buf, out)
}

// etcrHashInto computes the ETCR-style target-collision-resistant message
// hash, keyed by the W-OTS public value v: H(PAD_HASH || v || msg).
func (ctx *Context) etcrHashInto(v, msg, out []byte) {
	pad := ctx.newHashScratchPad()
	n := ctx.p.N
	buf := make([]byte, int(n+n)+len(msg))
	encodeUint64Into(padHash, buf[:n])
	copy(buf[n:2*n], v)
	copy(buf[2*n:], msg)
	ctx.hashInto(&pad, buf, out)
}

var publicConstantSeed = [32]byte{
	0x2a, 0x94, 0x55, 0xe4, 0x6b, 0xfd, 0xe8, 0xaa, 0x40, 0xb1, 0x53, 0xc5,
	0x37, 0x8a, 0x9d, 0x02, 0x0c, 0xb4, 0x4b, 0x3f, 0xaf, 0xfe, 0x4a, 0x69,
	0x78, 0xee, 0x0d, 0x46, 0xc1, 0xb4, 0xe8, 0xdd,
}

// publicConstant derives the fixed, non-secret public constant X baked
// into the W-OTS scheme (spec.md section 4.2), sized to N bytes.
func (ctx *Context) publicConstant() []byte {
	if ctx.p.N == 32 {
		ret := make([]byte, 32)
		copy(ret, publicConstantSeed[:])
		return ret
	}
	h := sha512.Sum512(publicConstantSeed[:])
	ret := make([]byte, ctx.p.N)
	copy(ret, h[:])
	return ret
}

// mmoCompress is a single Matyas-Meyer-Oseas compression: E_key(iv) XOR iv,
// where E is AES.  mmoExpand below chains calls to this to expand a seed
// into as many output bytes as are needed.
func mmoCompress(block cipher.Block, iv, out []byte) {
	block.Encrypt(out, iv)
	xor.BytesSameLen(out, out, iv)
}

// mmoExpand derives outLen pseudorandom bytes from keyMaterial keyed by
// domain, using repeated MMO compressions over a counter-indexed IV.  This
// is fsgen's compression primitive: preimage resistance of the expansion
// follows from AES being modeled as an ideal cipher in the MMO
// construction, so recovering keyMaterial from the output requires
// inverting AES under an unknown key.
func mmoExpand(keyMaterial []byte, domain byte, outLen uint32) []byte {
	aesKey := sha256.Sum256(keyMaterial)
	block, err := aes.NewCipher(aesKey[:16])
	if err != nil {
		panic(err) // aes.NewCipher only fails on bad key length; 16 is always valid
	}
	out := make([]byte, 0, outLen+aes.BlockSize)
	iv := make([]byte, aes.BlockSize)
	blockOut := make([]byte, aes.BlockSize)
	var counter uint32
	for uint32(len(out)) < outLen {
		iv[0] = domain
		binary.BigEndian.PutUint32(iv[aes.BlockSize-4:], counter)
		mmoCompress(block, iv, blockOut)
		out = append(out, blockOut...)
		counter++
	}
	return out[:outLen]
}

// fsgen is the forward-secure PRG of spec.md section 4.1: given the
// current seed, it derives the next seed and this leaf's randomness.
// Disclosing (seedOut, r) must not reveal seedIn; the AES key used to
// derive both is itself a one-way function of seedIn, never recoverable
// from an MMO output.
func (ctx *Context) fsgen(seedIn []byte) (seedOut, r []byte) {
	n := ctx.p.N
	seedOut = mmoExpand(seedIn, padFs0, n)
	r = mmoExpand(seedIn, padFs1, n)
	return
}
