package mss

import (
	"encoding/binary"
	"fmt"
	goLog "log"
)

// ErrorKind classifies the errors of spec.md section 7.
type ErrorKind uint8

const (
	// KindOther is the catch-all kind for errors not classified below.
	KindOther ErrorKind = iota

	// KindExhaustedKey: signing was attempted at leaf_index == 2^H.  Fatal;
	// the caller must rotate keys.
	KindExhaustedKey

	// KindInvalidSignature: verify's reconstructed root mismatches, or the
	// signature was malformed.  A clean, non-fatal result.
	KindInvalidSignature

	// KindStateCorruption: invariants detected broken on load.  Fatal.
	KindStateCorruption
)

// Error is the error type returned by every exported function of this
// package.
type Error interface {
	error
	Locked() bool    // Is this error because something (like a file) was locked?
	Inner() error    // Returns the wrapped error, if any
	Kind() ErrorKind // Classifies the error per spec.md section 7
}

type errorImpl struct {
	msg    string
	locked bool
	inner  error
	kind   ErrorKind
}

func (err *errorImpl) Locked() bool    { return err.locked }
func (err *errorImpl) Inner() error    { return err.inner }
func (err *errorImpl) Kind() ErrorKind { return err.kind }

func (err *errorImpl) Error() string {
	if err.inner != nil {
		return fmt.Sprintf("%s: %s", err.msg, err.inner.Error())
	}
	return err.msg
}

// errorf formats a new Error of KindOther.
func errorf(format string, a ...interface{}) *errorImpl {
	return &errorImpl{msg: fmt.Sprintf(format, a...)}
}

// wrapErrorf formats a new Error of KindOther that wraps another error.
func wrapErrorf(err error, format string, a ...interface{}) *errorImpl {
	return &errorImpl{msg: fmt.Sprintf(format, a...), inner: err}
}

// kindErrorf formats a new Error of the given kind.
func kindErrorf(kind ErrorKind, format string, a ...interface{}) *errorImpl {
	return &errorImpl{msg: fmt.Sprintf(format, a...), kind: kind}
}

// errExhaustedKey is returned by Sign once leaf_index has reached 2^H.
func errExhaustedKey(maxLeafIndex uint64) *errorImpl {
	return kindErrorf(KindExhaustedKey, "signing key exhausted: all %d leaves used", maxLeafIndex)
}

// errInvalidSignature is returned by Verify on any tamper, mismatch or
// malformed input -- spec.md section 7 folds MalformedInput into this
// outcome at the verifier boundary.
func errInvalidSignature(format string, a ...interface{}) *errorImpl {
	return kindErrorf(KindInvalidSignature, format, a...)
}

// errStateCorruption is returned when loading persisted state that
// violates an invariant (unknown treehash flag bits, leaf_index out of
// range, a tailheight >= H, ...).
func errStateCorruption(format string, a ...interface{}) *errorImpl {
	return kindErrorf(KindStateCorruption, format, a...)
}

// Logger receives diagnostic traces of treehash scheduling and container
// I/O.  The default logger discards everything.
type Logger interface {
	Logf(format string, a ...interface{})
}

type dummyLogger struct{}
type stdlibLogger struct{}

func (logger *dummyLogger) Logf(format string, a ...interface{}) {}

func (logger *stdlibLogger) Logf(format string, a ...interface{}) {
	goLog.Printf(format, a...)
}

var log Logger = &dummyLogger{}

// EnableLogging logs to the standard library log package.  For more
// flexibility, see SetLogger.
func EnableLogging() {
	SetLogger(&stdlibLogger{})
}

// SetLogger installs logger as the package-wide Logger.  Pass nil to
// disable logging.
func SetLogger(logger Logger) {
	if logger == nil {
		log = &dummyLogger{}
		return
	}
	log = logger
}

// encodeUint64Into encodes x into out in big-endian, using as many of the
// trailing bytes of out as are needed and zeroing the rest.
func encodeUint64Into(x uint64, out []byte) {
	if len(out)%8 == 0 {
		binary.BigEndian.PutUint64(out[len(out)-8:], x)
		for i := 0; i < len(out)-8; i += 8 {
			binary.BigEndian.PutUint64(out[i:i+8], 0)
		}
	} else {
		for i := len(out) - 1; i >= 0; i-- {
			out[i] = byte(x)
			x >>= 8
		}
	}
}

// encodeUint64 encodes x as a big-endian outLen-byte slice.
func encodeUint64(x uint64, outLen int) []byte {
	ret := make([]byte, outLen)
	encodeUint64Into(x, ret)
	return ret
}

// decodeUint64 interprets in as a big-endian unsigned integer.
func decodeUint64(in []byte) (ret uint64) {
	for i := 0; i < len(in); i++ {
		ret |= uint64(in[i]) << uint64(8*(len(in)-1-i))
	}
	return
}

// encodeUint64LEInto encodes x into out in little endian, the normative
// byte order for persisted state and wire signatures (spec.md section 6).
func encodeUint64LEInto(x uint64, out []byte) {
	for i := 0; i < len(out); i++ {
		out[i] = byte(x)
		x >>= 8
	}
}

// decodeUint64LE interprets in as a little-endian unsigned integer.
func decodeUint64LE(in []byte) (ret uint64) {
	for i := len(in) - 1; i >= 0; i-- {
		ret = (ret << 8) | uint64(in[i])
	}
	return
}

// encodeUint64LE encodes x as a little-endian outLen-byte slice.
func encodeUint64LE(x uint64, outLen int) []byte {
	ret := make([]byte, outLen)
	encodeUint64LEInto(x, ret)
	return ret
}
