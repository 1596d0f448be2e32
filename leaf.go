package mss

// makeLeaf computes the W-OTS public value v and height-0 leaf node for
// per-leaf randomness r at the given index, per spec.md section 4.3.
func (ctx *Context) makeLeaf(index uint64, r []byte) (v []byte, leaf Node) {
	v, _ = ctx.wotsPkGen(r)
	leaf = Node{Height: 0, Index: index, Value: ctx.hash32(v)}
	return
}
