package metadata

import (
	"bytes"
	"encoding/json"
	"reflect"
	"sync"
	"testing"
)

func TestSerializeKeysAndOrder(t *testing.T) {
	payload, err := Serialize(Metadata{
		StickerPackID:       "id",
		Emojis:              []string{"😀"},
		IsFirstPartySticker: boolPtr(true),
	})
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	want := `{"sticker-pack-id":"id","sticker-pack-name":"MySticker","sticker-pack-publisher":"StickerMaker","emojis":["😀"],"is-first-party-sticker":true}`
	if string(payload) != want {
		t.Errorf("payload:\n got  %s\n want %s", payload, want)
	}
}

func TestSerializeDoesNotEscapeHTML(t *testing.T) {
	link := "https://example.com/?a=1&b=<2>"
	payload, err := Serialize(Metadata{StickerPackID: "id", AndroidAppStoreLink: &link})
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	if !bytes.Contains(payload, []byte(link)) {
		t.Errorf("link was escaped: %s", payload)
	}
	if bytes.HasSuffix(payload, []byte("\n")) {
		t.Error("payload ends with a newline")
	}
	if !json.Valid(payload) {
		t.Errorf("payload is not valid JSON: %s", payload)
	}
}

func TestWithDefaultsKeepsGivenValues(t *testing.T) {
	in := Metadata{StickerPackID: "keep", StickerPackName: "name", StickerPackPublisher: "pub"}
	got, err := in.WithDefaults()
	if err != nil {
		t.Fatalf("WithDefaults failed: %v", err)
	}
	if !reflect.DeepEqual(got, in) {
		t.Errorf("got %#v, want %#v", got, in)
	}
}

func TestNewPackIDUnique(t *testing.T) {
	const workers, perWorker = 8, 50
	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		seen = make(map[string]struct{})
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				id, err := NewPackID()
				if err != nil {
					t.Errorf("NewPackID failed: %v", err)
					return
				}
				mu.Lock()
				if _, dup := seen[id]; dup {
					t.Errorf("duplicate pack id %s", id)
				}
				seen[id] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if len(seen) != workers*perWorker {
		t.Errorf("got %d distinct ids, want %d", len(seen), workers*perWorker)
	}
}

func TestParsePayloadNullIsAbsent(t *testing.T) {
	m, err := parsePayload([]byte(`{"sticker-pack-id":"a","emojis":null,"ios-app-store-link":null}`))
	if err != nil {
		t.Fatalf("parsePayload failed: %v", err)
	}
	if m.Emojis != nil || m.IOSAppStoreLink != nil {
		t.Errorf("null fields should decode as absent: %#v", m)
	}
}

func TestOddPayloadDecodes(t *testing.T) {
	record := Metadata{StickerPackID: "pack-4x"}
	payload, err := Serialize(record)
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	if len(payload)%2 == 0 {
		t.Fatalf("test needs an odd payload, got %d bytes", len(payload))
	}
	out, err := Embed(fakeWebP(16), record)
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if out[len(out)-1] != 0 {
		t.Errorf("last byte: got %#x, want zero filler", out[len(out)-1])
	}
	got, err := Extract(out)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if got.StickerPackID != "pack-4x" {
		t.Errorf("pack id: got %q", got.StickerPackID)
	}
}
