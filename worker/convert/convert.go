package convert

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/deven96/stickermeta/metadata"
	"github.com/deven96/stickermeta/utils"

	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"
)

// PackRegistry hands out the sticker pack id for a sender
type PackRegistry interface {
	PackID(ctx context.Context, sender string) (string, error)
}

type ConvertConsumer struct {
	PushTo     *amqp.Queue
	MetricsTo  *amqp.Queue
	Transcoder Transcoder
	Packs      PackRegistry
	// Defaults is the metadata every sticker starts from
	Defaults metadata.Metadata
}

func (consumer *ConvertConsumer) Consume(ch *amqp.Channel, delivery *amqp.Delivery) {
	var task utils.ConvertTask
	if err := json.Unmarshal(delivery.Body, &task); err != nil {
		log.Errorf("Error unmarshaling delivered body %s", err)
		nack(delivery, false)
		return
	}

	// perform task
	log.Infof("performing task %#v", task)
	if err := consumer.Process(context.Background(), task); err != nil {
		log.Errorf("Failed to stickerize %s: %s", task.MediaType, err)
		if consumer.MetricsTo != nil {
			if err := utils.PublishJSON(ch, consumer.MetricsTo, utils.NewMetric(task)); err != nil {
				log.Errorf("Error publishing failure metric %s", err)
			}
		}
		nack(delivery, false)
		return
	}
	if err := utils.PublishBytesToQueue(ch, consumer.PushTo, delivery.Body); err != nil {
		log.Errorf("Error publishing converted task %s", err)
		nack(delivery, true)
		return
	}
	if err := delivery.Ack(false); err != nil {
		log.Errorf("Error delivering Ack %s", err)
	}
}

func nack(delivery *amqp.Delivery, requeue bool) {
	if err := delivery.Nack(false, requeue); err != nil {
		log.Errorf("Error delivering Nack %s", err)
	}
}

// Process converts the task media to WebP and embeds the sticker pack metadata
func (consumer *ConvertConsumer) Process(ctx context.Context, task utils.ConvertTask) error {
	defer os.Remove(task.MediaPath)
	if err := consumer.Transcoder.Transcode(ctx, task); err != nil {
		return fmt.Errorf("convert %s to webp: %w", task.MediaType, err)
	}

	packID := ""
	if consumer.Packs != nil {
		id, err := consumer.Packs.PackID(ctx, task.MessageSender)
		if err != nil {
			// the sticker is still usable with a generated pack id
			log.Errorf("pack lookup for %s failed: %s", task.MessageSender, err)
		} else {
			packID = id
		}
	}

	record := task.Metadata.Record(consumer.Defaults, packID)
	if err := metadata.EmbedFile(task.ConvertedPath, task.ConvertedPath, record); err != nil {
		os.Remove(task.ConvertedPath)
		return err
	}
	return nil
}
