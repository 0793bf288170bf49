package handler

import (
	"strings"

	"github.com/deven96/stickermeta/utils"

	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"
	"go.mau.fi/whatsmeow"
	waProto "go.mau.fi/whatsmeow/binary/proto"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"
)

// WebPFormat is the extension of webp
const WebPFormat = ".webp"

// ImageFileSizeLimit limits file sizes to be converted to 2MB(Mebibytes) in Bytes
const ImageFileSizeLimit = 2097000

// VideoFileSizeLimit limits video to be much smaller cuz over 1000KiB(1MiB)
// seems not to animate
const VideoFileSizeLimit = 1024000

const command = "stickerize"

// aliases accepted right after the command word
var aliases = map[string]struct{}{
	"deven96": {},
}

// Handler interface for multiple message types
type Handler interface {
	// SetUp the handler with the event to reply to
	SetUp(client *whatsmeow.Client, event *events.Message, request Caption)
	// Validate : ensures the media conforms to some standards
	Validate() error
	// Handle : downloads the media and queues it for conversion
	Handle(ch *amqp.Channel, pushTo *amqp.Queue) error
}

// Caption is a parsed "stickerize" command
type Caption struct {
	IsCommand bool
	// Emojis listed after the command are written into the sticker metadata
	Emojis []string
}

// ParseCaption : recognises "stickerize [deven96] [emoji...]" in any case
func ParseCaption(caption string) Caption {
	fields := strings.Fields(caption)
	if len(fields) == 0 || strings.ToLower(fields[0]) != command {
		return Caption{}
	}
	fields = fields[1:]
	if len(fields) > 0 {
		if _, ok := aliases[strings.ToLower(fields[0])]; ok {
			fields = fields[1:]
		}
	}
	c := Caption{IsCommand: true}
	if len(fields) > 0 {
		c.Emojis = fields
	}
	return c
}

// Run : the appropriate handler using the event type
func Run(client *whatsmeow.Client, event *events.Message, request Caption, ch *amqp.Channel, convertQueue, loggingQueue *amqp.Queue) {
	var handle Handler
	switch event.Info.MediaType {
	case "image", "video", "gif":
		log.Debugf("Using Media Handler for %s", event.Info.MediaType)
		handle = &Media{}
	default:
		reply(client, event, "Bot currently supports sticker creation from (video/images) only")
		return
	}

	metric := utils.StickerizationMetric{
		MediaType:      event.Info.MediaType,
		IsGroupMessage: event.Info.IsGroup,
		MessageSender:  event.Info.Sender.User,
		TimeOfRequest:  event.Info.Timestamp.String(),
	}
	handle.SetUp(client, event, request)
	if err := handle.Validate(); err != nil {
		log.Debugf("Invalid event Data: %s", err)
		utils.PublishJSON(ch, loggingQueue, metric)
		return
	}
	if err := handle.Handle(ch, convertQueue); err != nil {
		log.Errorf("Failed to queue %s: %s", event.Info.MediaType, err)
		utils.PublishJSON(ch, loggingQueue, metric)
	}
}

func reply(client *whatsmeow.Client, event *events.Message, text string) {
	message := &waProto.Message{Conversation: proto.String(text)}
	client.SendMessage(event.Info.Chat, "", message)
}
