// Package metadata embeds and reads the sticker pack metadata that WhatsApp
// expects in a WebP sticker. The metadata is a JSON document wrapped in a
// minimal EXIF structure and appended to the RIFF container as an "EXIF" chunk.
package metadata

import (
	"errors"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
)

var (
	// ErrSerialization is returned when a record cannot be rendered as a payload
	ErrSerialization = errors.New("metadata: cannot serialize sticker metadata")
	// ErrMalformedChunk is returned when a buffer has no readable metadata chunk
	ErrMalformedChunk = errors.New("metadata: malformed metadata chunk")
	// ErrBufferTooSmall is returned when a field write falls outside its buffer
	ErrBufferTooSmall = errors.New("metadata: buffer too small")
)

// Metadata describes the sticker pack a sticker belongs to.
//
// Empty StickerPackID, StickerPackName and StickerPackPublisher are replaced
// by defaults when the record is serialized, so an explicitly empty pack
// id, name or publisher cannot be expressed. The remaining fields are
// optional: nil means absent and is preserved through a round trip.
type Metadata struct {
	StickerPackID        string
	StickerPackName      string
	StickerPackPublisher string
	Emojis               []string
	AndroidAppStoreLink  *string
	IOSAppStoreLink      *string
	IsFirstPartySticker  *bool
}

// Embed : replaces any metadata chunk in container with one describing m.
// container is not modified.
func Embed(container []byte, m Metadata) ([]byte, error) {
	payload, err := Serialize(m)
	if err != nil {
		return nil, err
	}
	clean := Strip(container)
	chunk, err := BuildChunk(payload)
	if err != nil {
		return nil, err
	}
	out, err := AppendAndPatch(clean, chunk)
	if err != nil {
		return nil, err
	}
	log.Debugf("embedded %d byte sticker metadata (%d -> %d bytes)", len(payload), len(container), len(out))
	return out, nil
}

// Extract : reads the metadata embedded in container without removing it
func Extract(container []byte) (Metadata, error) {
	return Decode(container)
}

// EmbedFile reads the container at src, embeds m and writes the result to dst.
// src and dst may be the same path.
func EmbedFile(src, dst string, m Metadata) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("reading %s: %w", src, err)
	}
	out, err := Embed(data, m)
	if err != nil {
		return fmt.Errorf("embedding metadata into %s: %w", src, err)
	}
	if err := os.WriteFile(dst, out, 0600); err != nil {
		return fmt.Errorf("writing %s: %w", dst, err)
	}
	return nil
}

// ReadFile extracts the metadata embedded in the container at path.
func ReadFile(path string) (Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("reading %s: %w", path, err)
	}
	m, err := Extract(data)
	if err != nil {
		return Metadata{}, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}
