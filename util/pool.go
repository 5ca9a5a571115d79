package util

import "sync"

// DefaultBufSize is the largest chunk a single socket read returns (32 KiB).
const DefaultBufSize = 32 * 1024

// readBufs holds scratch buffers for socket reads so concurrent reads on
// many handles do not each allocate a fresh 32 KiB slice.
var readBufs = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, DefaultBufSize)
		return &buf
	},
}

// GetBuf retrieves a DefaultBufSize buffer from the pool.  Callers must
// return it with [PutBuf] and must not retain slices of it afterwards.
func GetBuf() *[]byte {
	return readBufs.Get().(*[]byte)
}

// PutBuf returns a buffer to the pool.  Nil and wrongly sized buffers
// are dropped.
func PutBuf(buf *[]byte) {
	if buf == nil || len(*buf) != DefaultBufSize {
		return
	}
	readBufs.Put(buf)
}
