package metadata

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

const (
	// DefaultPackName is used when a record carries no sticker pack name
	DefaultPackName = "MySticker"
	// DefaultPublisher is used when a record carries no publisher
	DefaultPublisher = "StickerMaker"
)

// exifPayload is the JSON document stored in the chunk. Optional fields are
// pointers so that absent values are omitted rather than written as zero values.
type exifPayload struct {
	StickerPackID        string    `json:"sticker-pack-id"`
	StickerPackName      string    `json:"sticker-pack-name"`
	StickerPackPublisher string    `json:"sticker-pack-publisher"`
	Emojis               *[]string `json:"emojis,omitempty"`
	AndroidAppStoreLink  *string   `json:"android-app-store-link,omitempty"`
	IOSAppStoreLink      *string   `json:"ios-app-store-link,omitempty"`
	IsFirstPartySticker  *bool     `json:"is-first-party-sticker,omitempty"`
}

// NewPackID returns 16 random bytes hex encoded. Safe for concurrent use.
func NewPackID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("%w: generating pack id: %v", ErrSerialization, err)
	}
	return hex.EncodeToString(id[:]), nil
}

// WithDefaults returns a copy of m with the pack id, name and publisher filled in.
// Emojis, store links and the first party flag are left as given.
func (m Metadata) WithDefaults() (Metadata, error) {
	out := m
	if out.StickerPackID == "" {
		id, err := NewPackID()
		if err != nil {
			return Metadata{}, err
		}
		out.StickerPackID = id
	}
	if out.StickerPackName == "" {
		out.StickerPackName = DefaultPackName
	}
	if out.StickerPackPublisher == "" {
		out.StickerPackPublisher = DefaultPublisher
	}
	return out, nil
}

// Serialize : renders m, after defaults, as the JSON payload written into the chunk
func Serialize(m Metadata) ([]byte, error) {
	filled, err := m.WithDefaults()
	if err != nil {
		return nil, err
	}
	doc := exifPayload{
		StickerPackID:        filled.StickerPackID,
		StickerPackName:      filled.StickerPackName,
		StickerPackPublisher: filled.StickerPackPublisher,
		AndroidAppStoreLink:  filled.AndroidAppStoreLink,
		IOSAppStoreLink:      filled.IOSAppStoreLink,
		IsFirstPartySticker:  filled.IsFirstPartySticker,
	}
	if filled.Emojis != nil {
		emojis := filled.Emojis
		doc.Emojis = &emojis
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	// store links routinely carry '&'; keep them readable for other sticker readers
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func parsePayload(raw []byte) (Metadata, error) {
	var doc exifPayload
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Metadata{}, fmt.Errorf("%w: payload is not valid JSON: %v", ErrMalformedChunk, err)
	}
	m := Metadata{
		StickerPackID:        doc.StickerPackID,
		StickerPackName:      doc.StickerPackName,
		StickerPackPublisher: doc.StickerPackPublisher,
		AndroidAppStoreLink:  doc.AndroidAppStoreLink,
		IOSAppStoreLink:      doc.IOSAppStoreLink,
		IsFirstPartySticker:  doc.IsFirstPartySticker,
	}
	if doc.Emojis != nil {
		m.Emojis = *doc.Emojis
	}
	return m, nil
}
