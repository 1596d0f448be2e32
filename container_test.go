package mss

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
)

func TestFSContainerResetLoadRoundTrip(t *testing.T) {
	dir, err := ioutil.TempDir("", "mss-container-test")
	if err != nil {
		t.Fatalf("TempDir: %s", err)
	}
	defer os.RemoveAll(dir)

	p := testParamsSmall()
	ctx, _ := NewContext(p)
	root, state := ctx.GenerateMerkleTree(testSeed(p.N))

	path := filepath.Join(dir, "key")
	c, cerr := OpenFSPrivateKeyContainer(path)
	if cerr != nil {
		t.Fatalf("OpenFSPrivateKeyContainer: %s", cerr)
	}
	defer c.Close()

	if cerr := c.Reset(p, root.Value, state); cerr != nil {
		t.Fatalf("Reset: %s", cerr)
	}

	p2, root2, state2, cerr := c.Load()
	if cerr != nil {
		t.Fatalf("Load: %s", cerr)
	}
	if p2 != p {
		t.Fatalf("loaded params %v, want %v", p2, p)
	}
	if string(root2) != string(root.Value) {
		t.Fatal("loaded root does not match")
	}
	if state2.LeafIndex != state.LeafIndex {
		t.Fatalf("loaded leaf_index %d, want %d", state2.LeafIndex, state.LeafIndex)
	}
}

func TestFSContainerBorrowSeqNos(t *testing.T) {
	dir, err := ioutil.TempDir("", "mss-container-test")
	if err != nil {
		t.Fatalf("TempDir: %s", err)
	}
	defer os.RemoveAll(dir)

	p := testParamsSmall()
	ctx, _ := NewContext(p)
	root, state := ctx.GenerateMerkleTree(testSeed(p.N))

	path := filepath.Join(dir, "key")
	c, cerr := OpenFSPrivateKeyContainer(path)
	if cerr != nil {
		t.Fatalf("OpenFSPrivateKeyContainer: %s", cerr)
	}
	defer c.Close()
	if cerr := c.Reset(p, root.Value, state); cerr != nil {
		t.Fatalf("Reset: %s", cerr)
	}

	first, cerr := c.BorrowSeqNos(3)
	if cerr != nil {
		t.Fatalf("BorrowSeqNos: %s", cerr)
	}
	if first != 0 {
		t.Fatalf("first = %d, want 0", first)
	}

	second, cerr := c.BorrowSeqNos(2)
	if cerr != nil {
		t.Fatalf("BorrowSeqNos: %s", cerr)
	}
	if second != 3 {
		t.Fatalf("second = %d, want 3", second)
	}
}

func TestFSContainerExhaustion(t *testing.T) {
	dir, err := ioutil.TempDir("", "mss-container-test")
	if err != nil {
		t.Fatalf("TempDir: %s", err)
	}
	defer os.RemoveAll(dir)

	p := testParamsSmall()
	ctx, _ := NewContext(p)
	root, state := ctx.GenerateMerkleTree(testSeed(p.N))

	path := filepath.Join(dir, "key")
	c, cerr := OpenFSPrivateKeyContainer(path)
	if cerr != nil {
		t.Fatalf("OpenFSPrivateKeyContainer: %s", cerr)
	}
	defer c.Close()
	if cerr := c.Reset(p, root.Value, state); cerr != nil {
		t.Fatalf("Reset: %s", cerr)
	}

	if _, cerr := c.BorrowSeqNos(p.MaxLeafIndex()); cerr != nil {
		t.Fatalf("BorrowSeqNos(all): %s", cerr)
	}
	if _, cerr := c.BorrowSeqNos(1); cerr == nil {
		t.Fatal("BorrowSeqNos should fail once the key is exhausted")
	} else if cerr.Kind() != KindExhaustedKey {
		t.Fatalf("expected KindExhaustedKey, got %v", cerr)
	}
}
