package metadata

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Chunk layout, offsets relative to the start of the chunk.
const (
	offTag          = 0
	offBodyLen      = 4
	offByteOrder    = 8
	offIFDOffset    = 12
	offEntryCount   = 16
	offTagID        = 18
	offPayloadLen   = 22
	offPayloadStart = 26
	offPayload      = 30

	// HeaderLen is the size of everything in the chunk before the JSON payload
	HeaderLen = offPayload

	// riffPreambleLen covers the "RIFF" fourCC and the size field that follows it
	riffPreambleLen = 8
)

const (
	intelByteOrder  uint32 = 0x002a4949
	ifdOffset       uint32 = 0x00000008
	ifdEntryCount   uint16 = 0x0001
	stickerTagID    uint32 = 0x00075741
	payloadPosition uint32 = 0x00000016
)

var chunkTag = []byte("EXIF")

// fieldWriter writes little-endian fields into a buffer allocated up front.
// The first out of range write is remembered and every later write is a
// no-op, so a sequence of writes is checked once at the end.
type fieldWriter struct {
	buf []byte
	err error
}

func (w *fieldWriter) fits(off, n int) bool {
	if w.err != nil {
		return false
	}
	if off < 0 || off+n > len(w.buf) {
		w.err = fmt.Errorf("%w: writing %d bytes at offset %d into %d byte buffer", ErrBufferTooSmall, n, off, len(w.buf))
		return false
	}
	return true
}

func (w *fieldWriter) putBytes(off int, p []byte) {
	if w.fits(off, len(p)) {
		copy(w.buf[off:], p)
	}
}

func (w *fieldWriter) putUint16(off int, v uint16) {
	if w.fits(off, 2) {
		binary.LittleEndian.PutUint16(w.buf[off:], v)
	}
}

func (w *fieldWriter) putUint32(off int, v uint32) {
	if w.fits(off, 4) {
		binary.LittleEndian.PutUint32(w.buf[off:], v)
	}
}

// PayloadLen returns the payload length rounded up to the next even number.
func PayloadLen(payload []byte) int {
	n := len(payload)
	if n%2 != 0 {
		n++
	}
	return n
}

// BuildChunk lays out the metadata chunk around payload. An odd payload is
// followed by a single zero byte so the payload field stays even.
func BuildChunk(payload []byte) ([]byte, error) {
	metadataLen := PayloadLen(payload)
	exifLen := HeaderLen + metadataLen
	if uint64(exifLen) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: payload of %d bytes cannot be described by the chunk header", ErrSerialization, len(payload))
	}

	w := &fieldWriter{buf: make([]byte, exifLen)}
	w.putBytes(offTag, chunkTag)
	w.putUint32(offBodyLen, uint32(exifLen-8))
	w.putUint32(offByteOrder, intelByteOrder)
	w.putUint32(offIFDOffset, ifdOffset)
	w.putUint16(offEntryCount, ifdEntryCount)
	w.putUint32(offTagID, stickerTagID)
	w.putUint32(offPayloadLen, uint32(metadataLen))
	w.putUint32(offPayloadStart, payloadPosition)
	w.putBytes(offPayload, payload)
	if w.err != nil {
		return nil, w.err
	}
	return w.buf, nil
}

// AppendAndPatch returns container followed by chunk, with the RIFF size
// field (bytes 4..7) rewritten to cover the new length.
func AppendAndPatch(container, chunk []byte) ([]byte, error) {
	if len(container) < riffPreambleLen {
		return nil, fmt.Errorf("%w: container has %d bytes, need at least %d for the RIFF size field", ErrBufferTooSmall, len(container), riffPreambleLen)
	}
	total := len(container) + len(chunk)
	if uint64(total-riffPreambleLen) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: container of %d bytes overflows the RIFF size field", ErrBufferTooSmall, total)
	}

	out := make([]byte, total)
	copy(out, container)
	copy(out[len(container):], chunk)
	w := &fieldWriter{buf: out}
	w.putUint32(4, uint32(total-riffPreambleLen))
	if w.err != nil {
		return nil, w.err
	}
	return out, nil
}

// locate returns the offset of the metadata chunk in buf, or -1.
//
// The chunk is always appended last, so the scan runs from the end. A tag
// match only counts when the byte order marker and directory count agree
// with the layout written by BuildChunk and the declared body fits in buf;
// "EXIF" bytes occurring inside encoded image data are skipped.
func locate(buf []byte) int {
	for i := bytes.LastIndex(buf, chunkTag); i >= 0; i = bytes.LastIndex(buf[:i], chunkTag) {
		if validChunkAt(buf, i) {
			return i
		}
	}
	return -1
}

func validChunkAt(buf []byte, i int) bool {
	if i+HeaderLen > len(buf) {
		return false
	}
	chunk := buf[i:]
	if binary.LittleEndian.Uint32(chunk[offByteOrder:]) != intelByteOrder {
		return false
	}
	if binary.LittleEndian.Uint16(chunk[offEntryCount:]) != ifdEntryCount {
		return false
	}
	bodyLen := uint64(binary.LittleEndian.Uint32(chunk[offBodyLen:]))
	return uint64(i)+8+bodyLen <= uint64(len(buf))
}

// HasMetadata reports whether buf carries a metadata chunk.
func HasMetadata(buf []byte) bool {
	return locate(buf) >= 0
}

// Strip : returns buf truncated at the start of its metadata chunk, or buf
// itself when there is none. The result shares memory with buf.
func Strip(buf []byte) []byte {
	if i := locate(buf); i >= 0 {
		return buf[:i]
	}
	return buf
}

// Remove returns a copy of buf without its metadata chunk and with the RIFF
// size field rewritten for the shorter container.
func Remove(buf []byte) ([]byte, error) {
	clean := Strip(buf)
	if len(clean) < riffPreambleLen {
		return nil, fmt.Errorf("%w: container has %d bytes, need at least %d for the RIFF size field", ErrBufferTooSmall, len(clean), riffPreambleLen)
	}
	out := append([]byte(nil), clean...)
	w := &fieldWriter{buf: out}
	w.putUint32(4, uint32(len(out)-riffPreambleLen))
	if w.err != nil {
		return nil, w.err
	}
	return out, nil
}

// Decode finds the metadata chunk in buf and parses its payload.
func Decode(buf []byte) (Metadata, error) {
	start := locate(buf)
	if start < 0 {
		return Metadata{}, fmt.Errorf("%w: no EXIF metadata chunk found", ErrMalformedChunk)
	}

	metadataLen := uint64(binary.LittleEndian.Uint32(buf[start+offPayloadLen:]))
	from := uint64(start + offPayload)
	to := from + metadataLen
	if to > uint64(len(buf)) {
		return Metadata{}, fmt.Errorf("%w: payload of %d bytes at offset %d runs past %d byte buffer", ErrMalformedChunk, metadataLen, from, len(buf))
	}

	raw := bytes.TrimRight(buf[from:to], "\x00")
	return parsePayload(raw)
}
