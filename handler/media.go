package handler

import (
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/deven96/stickermeta/utils"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/types/events"
)

const whatsappErrorResponse = "Your %s size %dKiB is beyond the conversion size %dKiB"

type mediaMessage interface {
	whatsmeow.DownloadableMessage
	GetMimetype() string
	GetFileLength() uint64
}

// Media : downloads an image or video and queues it for conversion
type Media struct {
	Client        *whatsmeow.Client
	Event         *events.Message
	Request       utils.StickerMetadata
	RawPath       string
	ConvertedPath string
	MediaType     string
	message       mediaMessage
}

func (handler *Media) SetUp(client *whatsmeow.Client, event *events.Message, request Caption) {
	handler.Client = client
	handler.Event = event
	handler.MediaType = event.Info.MediaType
	handler.Request = utils.StickerMetadata{Emojis: request.Emojis}
	if image := event.Message.GetImageMessage(); image != nil {
		handler.message = image
	} else if video := event.Message.GetVideoMessage(); video != nil {
		handler.message = video
	}

	os.MkdirAll(filepath.Join(".", fmt.Sprintf("%ss/raw", handler.MediaType)), os.ModePerm)
	os.MkdirAll(filepath.Join(".", fmt.Sprintf("%ss/converted", handler.MediaType)), os.ModePerm)
}

func sizeLimit(mediaType string) int {
	// we dealing with just images and videos so we good
	if mediaType == "image" {
		return ImageFileSizeLimit
	}
	return VideoFileSizeLimit
}

func (handler *Media) Validate() error {
	if handler == nil || handler.message == nil {
		return errors.New("no media in message")
	}
	size := int(handler.message.GetFileLength())
	if limit := sizeLimit(handler.MediaType); size > limit {
		reply(handler.Client, handler.Event, fmt.Sprintf(whatsappErrorResponse, handler.MediaType, size/1024, limit/1024))
		return fmt.Errorf("%s too large", handler.MediaType)
	}
	return nil
}

func (handler *Media) Handle(ch *amqp.Channel, pushTo *amqp.Queue) error {
	data, err := handler.Client.Download(handler.message)
	if err != nil {
		return fmt.Errorf("download %s: %w", handler.MediaType, err)
	}
	ext := ".bin"
	if exts, _ := mime.ExtensionsByType(handler.message.GetMimetype()); len(exts) > 0 {
		ext = exts[0]
	}
	event := handler.Event
	handler.RawPath = fmt.Sprintf("%ss/raw/%s%s", handler.MediaType, event.Info.ID, ext)
	handler.ConvertedPath = fmt.Sprintf("%ss/converted/%s%s", handler.MediaType, event.Info.ID, WebPFormat)
	if err := os.WriteFile(handler.RawPath, data, 0600); err != nil {
		return fmt.Errorf("save %s: %w", handler.MediaType, err)
	}

	convertTask := utils.ConvertTask{
		MediaPath:     handler.RawPath,
		ConvertedPath: handler.ConvertedPath,
		DataLen:       len(data),
		MediaType:     handler.MediaType,
		Chat:          event.Info.Chat.String(),
		IsGroup:       event.Info.IsGroup,
		MessageSender: event.Info.Sender.User,
		TimeOfRequest: event.Info.Timestamp.String(),
		Metadata:      handler.Request,
	}
	return utils.PublishJSON(ch, pushTo, convertTask)
}
