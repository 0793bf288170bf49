package task

import (
	"context"
	"encoding/json"
	"net/http"
	"os"

	"github.com/deven96/stickermeta/metadata"
	"github.com/deven96/stickermeta/utils"

	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"
	"go.mau.fi/whatsmeow"
	waProto "go.mau.fi/whatsmeow/binary/proto"
	"go.mau.fi/whatsmeow/types"
	"google.golang.org/protobuf/proto"
)

// CompletedMessage is the proto message sent when done
const CompletedMessage = "Done Stickerizing"

// StickerConsumer uploads converted stickers and replies to the chat they came from
type StickerConsumer struct {
	Client        *whatsmeow.Client
	PushMetricsTo *amqp.Queue
}

// Inspect reads the pack metadata of a converted sticker. Stickers without
// readable metadata are still sent; WhatsApp shows them outside any pack.
func Inspect(data []byte) (metadata.Metadata, bool) {
	meta, err := metadata.Extract(data)
	if err != nil {
		log.Warnf("sticker has no usable pack metadata: %s", err)
		return metadata.Metadata{}, false
	}
	return meta, true
}

// StickerMessage builds the message for an uploaded sticker
func StickerMessage(task utils.ConvertTask, data []byte, uploaded whatsmeow.UploadResponse) *waProto.Message {
	sticker := &waProto.Message{
		StickerMessage: &waProto.StickerMessage{
			Url:           proto.String(uploaded.URL),
			DirectPath:    proto.String(uploaded.DirectPath),
			MediaKey:      uploaded.MediaKey,
			Mimetype:      proto.String(http.DetectContentType(data)),
			FileEncSha256: uploaded.FileEncSHA256,
			FileSha256:    uploaded.FileSHA256,
			FileLength:    proto.Uint64(uint64(len(data))),
		},
	}
	if task.MediaType == "video" || task.MediaType == "gif" {
		sticker.StickerMessage.IsAnimated = proto.Bool(true)
	}
	return sticker
}

func (consumer *StickerConsumer) Consume(ch *amqp.Channel, delivery *amqp.Delivery) {
	var task utils.ConvertTask
	if err := json.Unmarshal(delivery.Body, &task); err != nil {
		log.Errorf("Error unmarshaling delivered body %s", err)
		delivery.Reject(false)
		return
	}
	stickerMetric := utils.NewMetric(task)
	defer func() {
		utils.PublishJSON(ch, consumer.PushMetricsTo, stickerMetric)
	}()
	defer delivery.Ack(false)

	// perform task
	log.Debugf("performing task %#v", task)
	chat, err := types.ParseJID(task.Chat)
	if err != nil {
		log.Errorf("Invalid chat %q: %s", task.Chat, err)
		return
	}
	data, err := os.ReadFile(task.ConvertedPath)
	if err != nil {
		log.Errorf("Failed to read %s: %s", task.ConvertedPath, err)
		return
	}
	defer os.Remove(task.ConvertedPath)

	meta, embedded := Inspect(data)
	if embedded {
		log.Infof("sending sticker from pack %q (%s) to %s", meta.StickerPackName, meta.StickerPackID, chat)
	}

	// Upload WebP
	uploaded, err := consumer.Client.Upload(context.Background(), data, whatsmeow.MediaImage)
	if err != nil {
		log.Errorf("Failed to upload file: %s", err)
		return
	}

	consumer.Client.SendMessage(chat, "", StickerMessage(task, data, uploaded))
	if task.IsGroup {
		completed := &waProto.Message{
			ExtendedTextMessage: &waProto.ExtendedTextMessage{
				Text: proto.String(CompletedMessage),
			},
		}
		consumer.Client.SendMessage(chat, "", completed)
	}

	stickerMetric.FinalMediaLength = len(data)
	stickerMetric.Validated = true
	stickerMetric.MetadataEmbedded = embedded
	stickerMetric.StickerPackID = meta.StickerPackID
}
