// Package encoding assembles the binary WebAssembly module: LEB128 integer
// encoding, section framing, and the GC type section layout wasmgen's type
// generator (component C6) and code generator (component C7) populate.
//
// No third-party binary-codec library covers the WebAssembly LEB128/section
// format; it is the same kind of small, fully-specified binary framing the
// teacher hand-rolls directly (internal/wjson, internal/codec) rather than
// pull in a dependency for.
package encoding

// PutUvarint appends n to buf as an unsigned LEB128 integer.
func PutUvarint(buf []byte, n uint64) []byte {
	for {
		b := byte(n & 0x7f)
		n >>= 7
		if n != 0 {
			b |= 0x80
		}
		buf = append(buf, b)
		if n == 0 {
			return buf
		}
	}
}

// PutVarint appends n to buf as a signed LEB128 integer.
func PutVarint(buf []byte, n int64) []byte {
	for {
		b := byte(n & 0x7f)
		n >>= 7
		signBit := b&0x40 != 0
		if (n == 0 && !signBit) || (n == -1 && signBit) {
			buf = append(buf, b)
			return buf
		}
		buf = append(buf, b|0x80)
	}
}

// PutName appends s as a WebAssembly name: a Uvarint byte length followed
// by the UTF-8 bytes.
func PutName(buf []byte, s string) []byte {
	buf = PutUvarint(buf, uint64(len(s)))
	return append(buf, s...)
}

// PutVec appends a Uvarint count followed by the concatenation of encode
// applied, in order, to each element of items — the vec(B) combinator the
// WebAssembly binary format uses for every section body.
func PutVec[T any](buf []byte, items []T, encode func([]byte, T) []byte) []byte {
	buf = PutUvarint(buf, uint64(len(items)))
	for _, item := range items {
		buf = encode(buf, item)
	}
	return buf
}

// Uvarint decodes an unsigned LEB128 integer from buf, returning the value
// and the number of bytes consumed.
func Uvarint(buf []byte) (uint64, int) {
	var result uint64
	var shift uint
	for i, b := range buf {
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, i + 1
		}
		shift += 7
	}
	return 0, 0
}
