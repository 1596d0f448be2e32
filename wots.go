package mss

// The W-OTS one-time signature subsystem (spec.md section 4.2): given
// per-leaf randomness r and the fixed public constant X, computes the
// leaf's secret chains, its public vector v, signs a digest, and verifies
// a signature against a digest to recover v.
//
// Grounded on the teacher's wots.go (wotsExpandSeed, wotsChainLengths,
// toBaseW, wotsGenChain, wotsPkGen, wotsSign, wotsPkFromSig), generalized
// from ADRS-addressed ephemeral per-leaf keys to chainStepInto's plain
// (chainIdx, step) keying.

const padPrfKeygen = 3 // domain separator for deriving WOTS secret chains from r

// wotsExpandSeed derives the L secret chain seeds from the per-leaf
// randomness r.
func (ctx *Context) wotsExpandSeed(r []byte) [][]byte {
	l := ctx.p.WotsLen()
	n := ctx.p.N
	pad := ctx.newHashScratchPad()
	sk := make([][]byte, l)
	buf := make([]byte, n+4+n)
	encodeUint64Into(padPrfKeygen, buf[:n])
	for i := uint32(0); i < l; i++ {
		encodeUint64Into(uint64(i), buf[n:n+4])
		copy(buf[n+4:], r)
		sk[i] = make([]byte, n)
		ctx.hashInto(&pad, buf, sk[i])
	}
	return sk
}

// wotsGenChain advances in by steps hash-chain applications on chain
// chainIdx, starting at chain position `start`.
func (ctx *Context) wotsGenChain(in []byte, chainIdx, start, steps uint32) []byte {
	out := make([]byte, len(in))
	copy(out, in)
	for i := start; i < start+steps; i++ {
		tmp := make([]byte, len(out))
		ctx.chainStepInto(out, chainIdx, i, tmp)
		out = tmp
	}
	return out
}

// wotsPkGen computes the L public chain tops and their hash v from the
// per-leaf randomness r.
func (ctx *Context) wotsPkGen(r []byte) (v []byte, pk [][]byte) {
	sk := ctx.wotsExpandSeed(r)
	w := uint32(ctx.p.W)
	pk = make([][]byte, len(sk))
	for i, s := range sk {
		pk[i] = ctx.wotsGenChain(s, uint32(i), 0, w-1)
	}
	v = ctx.hash32(concatChains(pk))
	return
}

func concatChains(chains [][]byte) []byte {
	n := 0
	for _, c := range chains {
		n += len(c)
	}
	buf := make([]byte, 0, n)
	for _, c := range chains {
		buf = append(buf, c...)
	}
	return buf
}

// wotsChainLengths splits digest into L1 base-W symbols and appends L2
// checksum symbols such that the symbols sum to L1*(W-1).
func (p Params) wotsChainLengths(digest []byte) []uint32 {
	l1 := p.WotsLen1()
	l2 := p.WotsLen2()
	logW := p.WotsLogW()
	lengths := toBaseW(digest, logW, l1)

	var csum uint32
	for _, l := range lengths {
		csum += uint32(p.W) - 1 - l
	}
	csum <<= (8 - (l2*uint32(logW))%8) % 8
	csumBytes := (l2*uint32(logW) + 7) / 8
	csumBuf := make([]byte, 4)
	encodeUint64Into(uint64(csum), csumBuf)
	lengths = append(lengths, toBaseW(csumBuf[4-int(csumBytes):], logW, l2)...)
	return lengths
}

// toBaseW decomposes in into outLen symbols of logW bits each, MSB first.
func toBaseW(in []byte, logW uint8, outLen uint32) []uint32 {
	out := make([]uint32, outLen)
	var total uint32
	var bits uint8
	inIdx := 0
	for i := uint32(0); i < outLen; i++ {
		for bits == 0 {
			total = uint32(in[inIdx])
			inIdx++
			bits += 8
		}
		bits -= logW
		out[i] = (total >> bits) & ((1 << logW) - 1)
	}
	return out
}

// wotsSign signs an n-bit digest with the per-leaf secret chains derived
// from r, returning the L chain-intermediate chunks.
func (ctx *Context) wotsSign(r, digest []byte) [][]byte {
	sk := ctx.wotsExpandSeed(r)
	lengths := ctx.p.wotsChainLengths(digest)
	sig := make([][]byte, len(sk))
	for i, s := range sk {
		sig[i] = ctx.wotsGenChain(s, uint32(i), 0, lengths[i])
	}
	return sig
}

// wotsVerify completes each chain of sig to the top from the symbols of
// digest, and returns the resulting candidate public value v.
func (ctx *Context) wotsVerify(digest []byte, sig [][]byte) []byte {
	lengths := ctx.p.wotsChainLengths(digest)
	w := uint32(ctx.p.W)
	pk := make([][]byte, len(sig))
	for i, chunk := range sig {
		pk[i] = ctx.wotsGenChain(chunk, uint32(i), lengths[i], w-1-lengths[i])
	}
	return ctx.hash32(concatChains(pk))
}

// wotsSignatureToBytes/wotsSignatureFromBytes flatten the per-chain chunk
// slices to/from the wire layout: L consecutive N-byte chunks.
func wotsSignatureToBytes(sig [][]byte) []byte {
	out := make([]byte, 0, len(sig)*len(sig[0]))
	for _, c := range sig {
		out = append(out, c...)
	}
	return out
}

func wotsSignatureFromBytes(buf []byte, p Params) [][]byte {
	l := p.WotsLen()
	sig := make([][]byte, l)
	for i := uint32(0); i < l; i++ {
		sig[i] = buf[i*p.N : (i+1)*p.N]
	}
	return sig
}
