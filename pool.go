package gocog

import "github.com/valyala/bytebufferpool"

// splicePool pools the scratch buffers used to assemble a tile's bytes
// when more than one source range needs concatenating (currently: the
// JPEGTables + tile-body splice for JPEG-compressed tiles). Doing
// this through bytebufferpool rather than a bare make+append avoids a
// fresh allocation on every tile in a hot read loop.
var splicePool bytebufferpool.Pool

// getSpliceBuffer returns an empty *bytebufferpool.ByteBuffer ready to
// Write into. Call putSpliceBuffer when the caller is done copying its
// contents out.
func getSpliceBuffer() *bytebufferpool.ByteBuffer {
	return splicePool.Get()
}

func putSpliceBuffer(b *bytebufferpool.ByteBuffer) {
	splicePool.Put(b)
}
