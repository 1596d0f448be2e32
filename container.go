package mss

// The filesystem-backed PrivateKeyContainer of spec.md section 5: the
// Merkle state is a singleton per private key with strict exclusive
// ownership, and concurrent signers sharing one state are unsound. This
// container serializes access with a process lock and exposes
// BorrowSeqNos, an atomic check-and-advance over the persisted
// leaf_index so that two racing callers can never be handed the same
// leaf to sign.
//
// Grounded on the teacher's container.go (fsContainer,
// OpenFSPrivateKeyContainer, writeKeyFile, BorrowSeqNos, SetSeqNo,
// Close), collapsed from a per-subtree mmap cache (XMSSMT's many cached
// subtrees) to a single mmapped state blob, since a flat MSS key carries
// exactly one mutable traversal state.

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/bwesterb/byteswriter"
	"github.com/cespare/xxhash"
	"github.com/edsrzf/mmap-go"
	multierror "github.com/hashicorp/go-multierror"
	"github.com/nightlyone/lockfile"
)

const fsKeyMagic = "MSSK"

// PrivateKeyContainer persists a single MSS private key and arbitrates
// access to its leaf_index counter.
type PrivateKeyContainer interface {
	// Reset creates (or truncates) the container and writes a freshly
	// generated key into it.
	Reset(p Params, root []byte, state *MerkleState) Error

	// Load reads the persisted parameters, root and traversal state.
	Load() (p Params, root []byte, state *MerkleState, err Error)

	// BorrowSeqNos atomically advances the persisted leaf_index cursor by
	// count and returns the first index of the reserved batch. Returns
	// ExhaustedKey if fewer than count leaves remain.
	BorrowSeqNos(count uint64) (first uint64, err Error)

	// Put persists state, replacing whatever traversal state was there.
	// It does not touch the leaf_index cursor BorrowSeqNos manages
	// beyond what state.LeafIndex already records.
	Put(state *MerkleState) Error

	Close() Error
}

// fsContainer is a PrivateKeyContainer backed by a single file protected
// by a lockfile, mmapped for the read path and replaced atomically
// (write-temp, fsync, rename, fsync directory) on every write.
type fsContainer struct {
	path string
	lock lockfile.Lockfile
	p    Params
	root []byte // cached by Reset/Load, so Put need not re-read the file
}

// OpenFSPrivateKeyContainer opens or creates the container at path,
// taking an exclusive process lock at path+".lock".
func OpenFSPrivateKeyContainer(path string) (*fsContainer, Error) {
	lock, err := lockfile.New(path + ".lock")
	if err != nil {
		return nil, wrapErrorf(err, "creating lockfile handle")
	}
	if err := lock.TryLock(); err != nil {
		return nil, &errorImpl{msg: fmt.Sprintf("locking %s: %s", path, err), locked: true, inner: err}
	}
	return &fsContainer{path: path, lock: lock}, nil
}

func (c *fsContainer) Reset(p Params, root []byte, state *MerkleState) Error {
	c.p = p
	c.root = root
	return c.writeKeyFile(root, state)
}

// Load decodes the persisted key by mapping the file into memory -- the
// same technique the teacher uses for its (much larger) cached subtrees,
// applied here to the one state blob an MSS key has -- and copying the
// mapping into a buffer of its own before decoding.
func (c *fsContainer) Load() (Params, []byte, *MerkleState, Error) {
	f, err := os.Open(c.path)
	if err != nil {
		return Params{}, nil, nil, wrapErrorf(err, "opening %s", c.path)
	}
	defer f.Close()

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return Params{}, nil, nil, wrapErrorf(err, "mapping %s", c.path)
	}
	defer m.Unmap()

	buf := make([]byte, len(m))
	copy(buf, m)
	p, root, state, decErr := decodeKeyFile(buf)
	if decErr != nil {
		return Params{}, nil, nil, decErr
	}
	c.p = p
	c.root = root
	return p, root, state, nil
}

func decodeKeyFile(buf []byte) (Params, []byte, *MerkleState, Error) {
	if len(buf) < 4+4+8 {
		return Params{}, nil, nil, errStateCorruption("key file too short")
	}
	if string(buf[:4]) != fsKeyMagic {
		return Params{}, nil, nil, errStateCorruption("bad magic in key file")
	}
	off := 4

	var p Params
	if err := p.UnmarshalBinary(buf[off : off+4]); err != nil {
		return Params{}, nil, nil, wrapErrorf(err, "decoding params")
	}
	off += 4

	if err := p.Validate(); err != nil {
		return Params{}, nil, nil, wrapErrorf(err, "invalid persisted params")
	}

	root := make([]byte, p.N)
	if len(buf) < off+int(p.N) {
		return Params{}, nil, nil, errStateCorruption("key file truncated before root")
	}
	copy(root, buf[off:off+int(p.N)])
	off += int(p.N)

	if len(buf) < off+8 {
		return Params{}, nil, nil, errStateCorruption("key file truncated before checksum")
	}
	wantSum := decodeUint64LE(buf[off : off+8])
	off += 8

	stateBuf := buf[off:]
	gotSum := xxhash.Sum64(stateBuf)
	if gotSum != wantSum {
		return Params{}, nil, nil, errStateCorruption("state checksum mismatch: corruption or tampering")
	}

	state, stdErr := UnmarshalBinaryMerkleState(p, stateBuf)
	if stdErr != nil {
		return Params{}, nil, nil, wrapErrorf(stdErr, "decoding state")
	}
	return p, root, state, nil
}

// writeKeyFile assembles the magic/params/root/checksum header with
// byteswriter, the same bounded-buffer io.Writer the teacher wraps around
// its subtree cache headers, then appends the state blob raw.
func (c *fsContainer) writeKeyFile(root []byte, state *MerkleState) Error {
	pbuf, err := c.p.MarshalBinary()
	if err != nil {
		return wrapErrorf(err, "encoding params")
	}
	sbuf, err := state.MarshalBinary(c.p)
	if err != nil {
		return wrapErrorf(err, "encoding state")
	}
	sum := xxhash.Sum64(sbuf)

	headerLen := len(fsKeyMagic) + len(pbuf) + len(root) + 8
	buf := make([]byte, headerLen+len(sbuf))

	bw := byteswriter.NewWriter(buf)
	if _, err := bw.Write([]byte(fsKeyMagic)); err != nil {
		return wrapErrorf(err, "writing magic")
	}
	if _, err := bw.Write(pbuf); err != nil {
		return wrapErrorf(err, "writing params")
	}
	if _, err := bw.Write(root); err != nil {
		return wrapErrorf(err, "writing root")
	}
	if _, err := bw.Write(encodeUint64LE(sum, 8)); err != nil {
		return wrapErrorf(err, "writing checksum")
	}
	copy(buf[headerLen:], sbuf)

	return atomicWriteFile(c.path, buf)
}

// atomicWriteFile writes buf to path via a temp file in the same
// directory, fsync, rename, then fsync of the containing directory --
// the same crash-safety recipe as the teacher's writeKeyFile.
func atomicWriteFile(path string, buf []byte) Error {
	dir := filepath.Dir(path)
	tmp, err := ioutil.TempFile(dir, filepath.Base(path)+".tmp")
	if err != nil {
		return wrapErrorf(err, "creating temp file")
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(buf); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return wrapErrorf(err, "writing temp file")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return wrapErrorf(err, "fsync temp file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return wrapErrorf(err, "closing temp file")
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return wrapErrorf(err, "renaming temp file into place")
	}
	if dirF, err := os.Open(dir); err == nil {
		dirF.Sync()
		dirF.Close()
	}
	return nil
}

// BorrowSeqNos implements the compare-and-swap leaf_index handout of
// spec.md section 5: it is guarded by the process lock already held by
// this container, so two fsContainers can never observe the same
// leaf_index as available.
func (c *fsContainer) BorrowSeqNos(count uint64) (uint64, Error) {
	p, root, state, err := c.Load()
	if err != nil {
		return 0, err
	}
	first := state.LeafIndex
	if first+count > p.MaxLeafIndex() {
		return 0, errExhaustedKey(p.MaxLeafIndex())
	}
	state.LeafIndex = first + count
	if err := c.writeKeyFile(root, state); err != nil {
		return 0, err
	}
	return first, nil
}

// Put persists state under the root cached by the last Reset or Load,
// avoiding a read-modify-write of the whole file on every sign.
func (c *fsContainer) Put(state *MerkleState) Error {
	if c.root == nil {
		if _, _, _, err := c.Load(); err != nil {
			return err
		}
	}
	return c.writeKeyFile(c.root, state)
}

func (c *fsContainer) Close() Error {
	var result *multierror.Error
	if err := c.lock.Unlock(); err != nil {
		result = multierror.Append(result, err)
	}
	if result.ErrorOrNil() != nil {
		return wrapErrorf(result, "closing container")
	}
	return nil
}
