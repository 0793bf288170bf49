package metadata

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

// fakeWebP returns an n byte RIFF/WEBP container whose body never contains "EXIF".
func fakeWebP(n int) []byte {
	buf := make([]byte, n)
	copy(buf, "RIFF")
	binary.LittleEndian.PutUint32(buf[4:], uint32(n-8))
	copy(buf[8:], "WEBPVP8 ")
	for i := 16; i < n; i++ {
		buf[i] = byte(i % 251)
	}
	return buf
}

func TestBuildChunkLayout(t *testing.T) {
	payload := []byte(`{"a":1}`) // 7 bytes, padded to 8
	chunk, err := BuildChunk(payload)
	if err != nil {
		t.Fatalf("BuildChunk failed: %v", err)
	}
	if len(chunk) != HeaderLen+8 {
		t.Fatalf("chunk length: got %d, want %d", len(chunk), HeaderLen+8)
	}

	if string(chunk[0:4]) != "EXIF" {
		t.Errorf("tag: got %q", chunk[0:4])
	}
	u32 := func(off int) uint32 { return binary.LittleEndian.Uint32(chunk[off:]) }
	tests := []struct {
		name string
		off  int
		want uint32
	}{
		{"body length", 4, uint32(len(chunk) - 8)},
		{"byte order", 8, 0x002a4949},
		{"directory offset", 12, 0x00000008},
		{"tag id", 18, 0x00075741},
		{"payload length", 22, 8},
		{"payload offset", 26, 0x00000016},
	}
	for _, tt := range tests {
		if got := u32(tt.off); got != tt.want {
			t.Errorf("%s at %d: got %#08x, want %#08x", tt.name, tt.off, got, tt.want)
		}
	}
	if got := binary.LittleEndian.Uint16(chunk[16:]); got != 1 {
		t.Errorf("entry count: got %d, want 1", got)
	}
	if !bytes.Equal(chunk[30:37], payload) {
		t.Errorf("payload: got %q, want %q", chunk[30:37], payload)
	}
	if chunk[37] != 0 {
		t.Errorf("filler byte: got %#x, want 0", chunk[37])
	}
}

func TestPayloadLenIsEven(t *testing.T) {
	for n := 0; n < 64; n++ {
		payload := bytes.Repeat([]byte("x"), n)
		got := PayloadLen(payload)
		if got%2 != 0 || got < n || got > n+1 {
			t.Errorf("PayloadLen(%d bytes) = %d", n, got)
		}
		chunk, err := BuildChunk(payload)
		if err != nil {
			t.Fatalf("BuildChunk failed: %v", err)
		}
		declared := int(binary.LittleEndian.Uint32(chunk[22:]))
		if declared != got || len(chunk)-HeaderLen != declared {
			t.Errorf("%d byte payload: declared %d, region %d", n, declared, len(chunk)-HeaderLen)
		}
	}
}

func TestAppendAndPatchRewritesSize(t *testing.T) {
	container := fakeWebP(40)
	chunk, err := BuildChunk([]byte(`{}`))
	if err != nil {
		t.Fatalf("BuildChunk failed: %v", err)
	}
	out, err := AppendAndPatch(container, chunk)
	if err != nil {
		t.Fatalf("AppendAndPatch failed: %v", err)
	}
	if len(out) != len(container)+len(chunk) {
		t.Fatalf("length: got %d, want %d", len(out), len(container)+len(chunk))
	}
	if got := binary.LittleEndian.Uint32(out[4:]); int(got) != len(out)-8 {
		t.Errorf("RIFF size: got %d, want %d", got, len(out)-8)
	}
	if got := binary.LittleEndian.Uint32(container[4:]); got != 32 {
		t.Errorf("input container was modified: size field now %d", got)
	}
}

func TestAppendAndPatchRejectsShortContainer(t *testing.T) {
	chunk, _ := BuildChunk([]byte(`{}`))
	for _, n := range []int{0, 4, 7} {
		_, err := AppendAndPatch(make([]byte, n), chunk)
		if !errors.Is(err, ErrBufferTooSmall) {
			t.Errorf("%d byte container: got %v, want ErrBufferTooSmall", n, err)
		}
	}
}

func TestFieldWriterBounds(t *testing.T) {
	w := &fieldWriter{buf: make([]byte, 6)}
	w.putUint32(0, 1)
	if w.err != nil {
		t.Fatalf("in range write failed: %v", w.err)
	}
	w.putUint32(4, 1)
	if !errors.Is(w.err, ErrBufferTooSmall) {
		t.Fatalf("got %v, want ErrBufferTooSmall", w.err)
	}
	w.putUint16(0, 0xffff)
	if w.buf[0] != 1 {
		t.Error("write after failure should be ignored")
	}
}

func TestStripWithoutChunk(t *testing.T) {
	container := fakeWebP(64)
	if got := Strip(container); !bytes.Equal(got, container) {
		t.Error("Strip should return a container without metadata unchanged")
	}
	if HasMetadata(container) {
		t.Error("HasMetadata reported a chunk in a plain container")
	}
}

func TestStripIgnoresIncidentalTag(t *testing.T) {
	container := fakeWebP(80)
	copy(container[30:], "EXIF")

	if got := Strip(container); len(got) != len(container) {
		t.Errorf("Strip truncated image data at an incidental tag: %d -> %d bytes", len(container), len(got))
	}

	out, err := Embed(container, Metadata{StickerPackID: "abc"})
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if got := Strip(out); len(got) != len(container) {
		t.Errorf("Strip after Embed: got %d bytes, want %d", len(got), len(container))
	}
}

func TestRemovePatchesSize(t *testing.T) {
	out, err := Embed(fakeWebP(40), Metadata{StickerPackID: "abc"})
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	snapshot := append([]byte(nil), out...)

	got, err := Remove(out)
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if len(got) != 40 {
		t.Fatalf("length: got %d, want 40", len(got))
	}
	if size := binary.LittleEndian.Uint32(got[4:]); size != 32 {
		t.Errorf("RIFF size: got %d, want 32", size)
	}
	if !bytes.Equal(out, snapshot) {
		t.Error("Remove modified its input buffer")
	}
	if HasMetadata(got) {
		t.Error("metadata chunk still present after Remove")
	}

	plain, err := Remove(fakeWebP(24))
	if err != nil {
		t.Fatalf("Remove without chunk failed: %v", err)
	}
	if !bytes.Equal(plain, fakeWebP(24)) {
		t.Error("Remove should leave a container without metadata unchanged")
	}
}

func TestRemoveRejectsShortContainer(t *testing.T) {
	for _, n := range []int{0, 4, 7} {
		if _, err := Remove(make([]byte, n)); !errors.Is(err, ErrBufferTooSmall) {
			t.Errorf("%d byte container: got %v, want ErrBufferTooSmall", n, err)
		}
	}
}

func TestDecodeMalformed(t *testing.T) {
	good, err := Embed(fakeWebP(32), Metadata{StickerPackID: "abc"})
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}

	overlong := append([]byte(nil), good...)
	binary.LittleEndian.PutUint32(overlong[32+22:], 4096)

	badJSON := append([]byte(nil), good...)
	copy(badJSON[32+30:], "not json")

	tests := []struct {
		name string
		buf  []byte
	}{
		{"empty", nil},
		{"no tag", fakeWebP(100)},
		{"bare tag", []byte("RIFF\x00\x00\x00\x00EXIF")},
		{"truncated chunk", good[:len(good)-4]},
		{"payload past end", overlong},
		{"invalid json", badJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.buf)
			if !errors.Is(err, ErrMalformedChunk) {
				t.Errorf("got %v, want ErrMalformedChunk", err)
			}
		})
	}
}
