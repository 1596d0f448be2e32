//go:generate enumer -type HashFunc

package mss

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// Hash function backing H (node, leaf, chain and message hashing).  The
// MMO compressor behind fsgen always uses SHA-256 and AES, whatever the
// HashFunc.
type HashFunc uint8

const (
	// SHA-256 for n<=32 and SHA-512 otherwise.
	SHA2 HashFunc = iota

	// SHAKE-128 for n<=32 and SHAKE-256 otherwise.
	SHAKE
)

// Params describes one concrete MSS instance.
//
// N is the security parameter in bytes.  H is the tree height (the tree
// has 2^H leaves).  K is the treehash-K retain/cache parameter: 0 <= K <=
// H-2 and H-K must be even.  W is the Winternitz base 2^w (chains have
// W-1 steps and each digest symbol is log2(W) bits); only 4, 16 and 256
// are supported.
type Params struct {
	Func HashFunc
	N    uint32
	H    uint32
	K    uint32
	W    uint16
}

func (p Params) String() string {
	wString := ""
	if p.W != 16 {
		wString = fmt.Sprintf("_w%d", p.W)
	}
	return fmt.Sprintf("MSS-%s_%d_%d_%d%s", p.Func, p.H, p.K, p.N*8, wString)
}

// Validate checks the construction-time constraints of spec.md section 3.1.
func (p Params) Validate() error {
	if p.N != 16 && p.N != 32 && p.N != 64 {
		return fmt.Errorf("N must be 16, 32 or 64, not %d", p.N)
	}
	if p.H == 0 || p.H > 63 {
		return fmt.Errorf("H out of range: %d", p.H)
	}
	if p.H < 2 || p.K > p.H-2 {
		return fmt.Errorf("K must be at most H-2")
	}
	if (p.H-p.K)%2 != 0 {
		return fmt.Errorf("H-K must be even")
	}
	switch p.W {
	case 4, 16, 256:
	default:
		return fmt.Errorf("only W=4,16,256 are supported, not %d", p.W)
	}
	return nil
}

// WotsLogW returns log2(W).
func (p Params) WotsLogW() uint8 {
	switch p.W {
	case 4:
		return 2
	case 16:
		return 4
	case 256:
		return 8
	default:
		panic("only W=4,16,256 are supported")
	}
}

// WotsLen1 returns the number of chains that encode the message digest.
func (p Params) WotsLen1() uint32 {
	return (8*p.N + uint32(p.WotsLogW()) - 1) / uint32(p.WotsLogW())
}

// WotsLen2 returns the number of checksum chains.
func (p Params) WotsLen2() uint32 {
	l1 := p.WotsLen1()
	max := uint64(l1) * uint64(p.W-1)
	bits := 0
	for (uint64(1) << uint(bits)) <= max {
		bits++
	}
	return uint32(bits)/uint32(p.WotsLogW()) + 1
}

// WotsLen returns the total number of WOTS chains L = L1 + L2.
func (p Params) WotsLen() uint32 {
	return p.WotsLen1() + p.WotsLen2()
}

// WotsSignatureSize returns the size in bytes of a W-OTS signature.
func (p Params) WotsSignatureSize() uint32 {
	return p.WotsLen() * p.N
}

// TreehashSize returns H-K, the number of treehash instances kept.
func (p Params) TreehashSize() uint32 {
	return p.H - p.K
}

// RetainSize returns 2^K - K - 1, the size of the retain buffer.
func (p Params) RetainSize() uint32 {
	return (uint32(1) << p.K) - p.K - 1
}

// KeepSize returns H, the size of the keep scratch buffer.
func (p Params) KeepSize() uint32 {
	return p.H
}

// MaxLeafIndex returns 2^H, one past the last valid leaf index.
func (p Params) MaxLeafIndex() uint64 {
	return uint64(1) << p.H
}

// NodeSize returns the wire size of a single persisted node:
// height:1 || index_lo:1 || index_hi:1 || value:N -- widened to a uint64
// index field when H >= 16, per spec.md section 6's note that an
// implementation targeting H > 16 must widen the index field.
func (p Params) NodeSize() uint32 {
	return 1 + p.indexBytes() + p.N
}

// indexBytes is the width of persisted indices; 2 bytes hold values up
// to 2^H (leaf_index after the last signature) only while H < 16.
func (p Params) indexBytes() uint32 {
	if p.H < 16 {
		return 2
	}
	return 8
}

// Registry of named MSS instances.
type regEntry struct {
	name   string
	oid    uint32
	params Params
}

var registry = []regEntry{
	{"MSS-SHA2_16_2_256", 0x01, Params{SHA2, 32, 16, 2, 16}},
	{"MSS-SHA2_20_2_256", 0x02, Params{SHA2, 32, 20, 2, 16}},
	{"MSS-SHA2_20_10_256", 0x03, Params{SHA2, 32, 20, 10, 16}},
	{"MSS-SHA2_32_4_256", 0x04, Params{SHA2, 32, 32, 4, 16}},
	{"MSS-SHA2_16_2_512", 0x05, Params{SHA2, 64, 16, 2, 16}},
	{"MSS-SHA2_20_10_512", 0x06, Params{SHA2, 64, 20, 10, 16}},
	{"MSS-SHAKE_16_2_256", 0x07, Params{SHAKE, 32, 16, 2, 16}},
	{"MSS-SHAKE_20_10_256", 0x08, Params{SHAKE, 32, 20, 10, 16}},
	{"MSS-SHAKE_16_2_512", 0x09, Params{SHAKE, 64, 16, 2, 16}},
}

var registryNameLut map[string]regEntry
var registryOidLut map[uint32]regEntry

func init() {
	registryNameLut = make(map[string]regEntry)
	registryOidLut = make(map[uint32]regEntry)
	for _, entry := range registry {
		registryNameLut[entry.name] = entry
		registryOidLut[entry.oid] = entry
	}
}

// ParamsFromName returns the parameters for a named MSS instance, or nil
// if there is no such named instance.
func ParamsFromName(name string) *Params {
	entry, ok := registryNameLut[name]
	if !ok {
		return nil
	}
	p := entry.params
	return &p
}

// ParamsFromOid returns the parameters for a registered OID, or nil.
func ParamsFromOid(oid uint32) *Params {
	entry, ok := registryOidLut[oid]
	if !ok {
		return nil
	}
	p := entry.params
	return &p
}

// ListNames lists all named MSS instances in the registry.
func ListNames() []string {
	names := make([]string, len(registry))
	for i, entry := range registry {
		names[i] = entry.name
	}
	return names
}

// LookupNameAndOid returns the registry name and oid of these parameters,
// or ("", 0) if unlisted.
func (p Params) LookupNameAndOid() (string, uint32) {
	for _, entry := range registry {
		if entry.params == p {
			return entry.name, entry.oid
		}
	}
	return "", 0
}

// MarshalBinary encodes the parameters compactly, mirroring the teacher's
// OID bit-packing scheme:
//
//	8-bit magic    0xEA
//	2-bit version  0
//	1-bit func     0 SHA2, 1 SHAKE
//	4-bit compr-n  (N/8)-1
//	2-bit w        0 W=4, 1 W=16, 2 W=256
//	6-bit H
//	6-bit K
func (p Params) MarshalBinary() ([]byte, error) {
	if p.N%8 != 0 || p.N > 128 {
		return nil, errorf("N out of range")
	}
	if p.H > 63 || p.K > 63 {
		return nil, errorf("H or K out of range")
	}
	var wCode uint32
	switch p.W {
	case 4:
		wCode = 0
	case 16:
		wCode = 1
	case 256:
		wCode = 2
	default:
		return nil, errorf("only W=4,16,256 are supported")
	}
	var val uint32
	val |= 0xea << 24
	val |= uint32(p.Func) << 20
	val |= ((p.N / 8) - 1) << 16
	val |= wCode << 12
	val |= p.H << 6
	val |= p.K
	ret := make([]byte, 4)
	binary.BigEndian.PutUint32(ret, val)
	return ret, nil
}

// UnmarshalBinary decodes parameters as encoded by MarshalBinary.
func (p *Params) UnmarshalBinary(buf []byte) error {
	if len(buf) != 4 {
		return errorf("must be 4 bytes, not %d", len(buf))
	}
	val := binary.BigEndian.Uint32(buf)
	if val>>24 != 0xea {
		return errorf("wrong magic")
	}
	wCode := (val >> 12) & 0x3
	switch wCode {
	case 0:
		p.W = 4
	case 1:
		p.W = 16
	case 2:
		p.W = 256
	default:
		return errorf("unsupported w-code")
	}
	p.Func = HashFunc((val >> 20) & 1)
	p.N = (((val >> 16) & 0xf) + 1) * 8
	p.H = (val >> 6) & 0x3f
	p.K = val & 0x3f
	return nil
}

func parseParamsFromName(name string) (*Params, error) {
	var p Params
	if !strings.HasPrefix(name, "MSS-") {
		return nil, errorf("not an MSS name: %s", name)
	}
	bits := strings.Split(strings.TrimPrefix(name, "MSS-"), "_")
	if len(bits) < 4 || len(bits) > 5 {
		return nil, errorf("expected 4 or 5 underscore-separated fields")
	}
	switch bits[0] {
	case "SHA2":
		p.Func = SHA2
	case "SHAKE":
		p.Func = SHAKE
	default:
		return nil, errorf("unknown hash function: %s", bits[0])
	}
	h, err := strconv.Atoi(bits[1])
	if err != nil {
		return nil, wrapErrorf(err, "parse H")
	}
	p.H = uint32(h)
	k, err := strconv.Atoi(bits[2])
	if err != nil {
		return nil, wrapErrorf(err, "parse K")
	}
	p.K = uint32(k)
	n, err := strconv.Atoi(bits[3])
	if err != nil {
		return nil, wrapErrorf(err, "parse N")
	}
	p.N = uint32(n) / 8
	p.W = 16
	if len(bits) == 5 {
		if !strings.HasPrefix(bits[4], "w") {
			return nil, errorf("expected w<width> as fifth field")
		}
		w, err := strconv.Atoi(bits[4][1:])
		if err != nil {
			return nil, wrapErrorf(err, "parse W")
		}
		p.W = uint16(w)
	}
	return &p, p.Validate()
}

// ParamsFromName2 resolves a named instance first from the registry, then
// by parsing it, for algorithm names not listed in ListNames().
func ParamsFromName2(name string) (*Params, error) {
	if p := ParamsFromName(name); p != nil {
		return p, nil
	}
	return parseParamsFromName(name)
}
