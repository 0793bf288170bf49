package push

import (
	"encoding/json"

	"github.com/deven96/stickermeta/logger/metrics"
	"github.com/deven96/stickermeta/utils"

	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"
)

// Consumer records stickerization metrics delivered on the metric queue
type Consumer struct {
	Register *metrics.Register
}

func (consumer *Consumer) Consume(delivery *amqp.Delivery) {
	var stickerMetrics utils.StickerizationMetric
	if err := json.Unmarshal(delivery.Body, &stickerMetrics); err != nil {
		log.Errorf("Error unmarshaling metric %s", err)
		if err := delivery.Reject(false); err != nil {
			log.Errorf("Error delivering Reject %s", err)
		}
		return
	}

	consumer.Register.Record(stickerMetrics)
	consumer.Register.PushToGateway()
	if err := delivery.Ack(false); err != nil {
		log.Errorf("Error acking metric %s", err)
	}
}
