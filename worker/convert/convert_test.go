package convert

import (
	"context"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/deven96/stickermeta/metadata"
	"github.com/deven96/stickermeta/utils"

	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

type fakeTranscoder struct {
	output []byte
	err    error
}

func (f fakeTranscoder) Transcode(ctx context.Context, task utils.ConvertTask) error {
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(task.ConvertedPath, f.output, 0600)
}

type fakePacks map[string]string

func (f fakePacks) PackID(ctx context.Context, sender string) (string, error) {
	id, ok := f[sender]
	if !ok {
		return "", errors.New("no pack")
	}
	return id, nil
}

func webp(n int) []byte {
	buf := make([]byte, n)
	copy(buf, "RIFF")
	binary.LittleEndian.PutUint32(buf[4:], uint32(n-8))
	copy(buf[8:], "WEBP")
	return buf
}

func newTask(t *testing.T) utils.ConvertTask {
	t.Helper()
	dir := t.TempDir()
	raw := filepath.Join(dir, "raw.jpg")
	if err := os.WriteFile(raw, []byte("jpeg"), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return utils.ConvertTask{
		MediaPath:     raw,
		ConvertedPath: filepath.Join(dir, "converted.webp"),
		MediaType:     "image",
		MessageSender: "2348000000000",
		Metadata:      utils.StickerMetadata{Emojis: []string{"😂"}},
	}
}

func TestProcessEmbedsMetadata(t *testing.T) {
	task := newTask(t)
	consumer := &ConvertConsumer{
		Transcoder: fakeTranscoder{output: webp(64)},
		Packs:      fakePacks{"2348000000000": "sender-pack"},
		Defaults:   metadata.Metadata{StickerPackName: "whatsticker", StickerPackPublisher: "github.com/deven96"},
	}

	if err := consumer.Process(context.Background(), task); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	got, err := metadata.ReadFile(task.ConvertedPath)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if got.StickerPackID != "sender-pack" || got.StickerPackName != "whatsticker" {
		t.Errorf("unexpected metadata %#v", got)
	}
	if len(got.Emojis) != 1 || got.Emojis[0] != "😂" {
		t.Errorf("emojis: got %v", got.Emojis)
	}
	if _, err := os.Stat(task.MediaPath); !os.IsNotExist(err) {
		t.Error("raw media should be removed after conversion")
	}
}

func TestProcessPackLookupFailureStillEmbeds(t *testing.T) {
	task := newTask(t)
	consumer := &ConvertConsumer{
		Transcoder: fakeTranscoder{output: webp(32)},
		Packs:      fakePacks{},
	}
	if err := consumer.Process(context.Background(), task); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	got, err := metadata.ReadFile(task.ConvertedPath)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if got.StickerPackID == "" {
		t.Error("expected a generated pack id")
	}
}

func TestProcessTranscodeError(t *testing.T) {
	task := newTask(t)
	consumer := &ConvertConsumer{Transcoder: fakeTranscoder{err: errors.New("cwebp missing")}}
	if err := consumer.Process(context.Background(), task); err == nil {
		t.Fatal("expected transcode error")
	}
	if _, err := os.Stat(task.MediaPath); !os.IsNotExist(err) {
		t.Error("raw media should be removed when conversion fails")
	}
}

func TestProcessRejectsTruncatedOutput(t *testing.T) {
	task := newTask(t)
	consumer := &ConvertConsumer{Transcoder: fakeTranscoder{output: []byte("RIF")}}
	err := consumer.Process(context.Background(), task)
	if !errors.Is(err, metadata.ErrBufferTooSmall) {
		t.Fatalf("got %v, want ErrBufferTooSmall", err)
	}
	if _, err := os.Stat(task.ConvertedPath); !os.IsNotExist(err) {
		t.Error("unusable output should be removed")
	}
}

func TestExecTranscoderUnsupportedType(t *testing.T) {
	err := ExecTranscoder{}.Transcode(context.Background(), utils.ConvertTask{MediaType: "document"})
	if err == nil {
		t.Fatal("expected error for unsupported media type")
	}
}

type failingAcknowledger struct {
	nacked []bool
}

func (a *failingAcknowledger) Ack(tag uint64, multiple bool) error {
	return errors.New("channel closed")
}

func (a *failingAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	a.nacked = append(a.nacked, requeue)
	return errors.New("channel closed")
}

func (a *failingAcknowledger) Reject(tag uint64, requeue bool) error {
	return errors.New("channel closed")
}

func TestConsumeLogsNackFailure(t *testing.T) {
	hook := logtest.NewGlobal()
	defer hook.Reset()

	ack := &failingAcknowledger{}
	consumer := &ConvertConsumer{}
	consumer.Consume(nil, &amqp.Delivery{Acknowledger: ack, Body: []byte("not json")})

	if len(ack.nacked) != 1 || ack.nacked[0] {
		t.Fatalf("nacks: got %v, want one without requeue", ack.nacked)
	}
	var logged bool
	for _, entry := range hook.AllEntries() {
		if entry.Level == log.ErrorLevel && entry.Message == "Error delivering Nack channel closed" {
			logged = true
		}
	}
	if !logged {
		t.Error("failed Nack was not logged")
	}
}
