package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"
)

func FailOnError(err error, msg string) {
	if err != nil {
		log.Fatalf("%s: %s", msg, err)
	}
}

// PublishBytesToQueue : Send bytes to a queue on a channel
func PublishBytesToQueue(ch *amqp.Channel, q *amqp.Queue, bytes []byte) error {
	err := ch.Publish(
		"",     // exchange
		q.Name, // routing key
		false,  // mandatory
		false,  // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "text/json",
			Body:         bytes,
		})
	if err != nil {
		log.Errorf("Failed to publish to queue %s: %s", q.Name, err)
		return fmt.Errorf("publish to %s: %w", q.Name, err)
	}
	return nil
}

// PublishJSON : marshals v and publishes it to q
func PublishJSON(ch *amqp.Channel, q *amqp.Queue, v interface{}) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode message for %s: %w", q.Name, err)
	}
	return PublishBytesToQueue(ch, q, body)
}

// ListenForCtrlC
// quit if Ctrl+C is pressed
func ListenForCtrlC(service string) {
	log.Infof("Started %s. Waiting for Ctrl+C", service)
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
}

// GetQueue : Returns an AMQP Queue
func GetQueue(ch *amqp.Channel, queueName string, durable bool) *amqp.Queue {
	q, err := ch.QueueDeclare(
		queueName,
		durable, // durable
		false,   // delete when unused
		false,   // exclusive
		false,   // no-wait
		nil,     // arguments
	)
	FailOnError(err, fmt.Sprintf("Failed to declare queue %q", queueName))
	return &q
}

// GetLogLevel maps a level name to a logrus level, falling back to info
func GetLogLevel(level string) log.Level {
	parsed, err := log.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return log.InfoLevel
	}
	return parsed
}

// Returns a LogLevel type from Environment variable
func GetLogLevelFromEnv() log.Level {
	return GetLogLevel(os.Getenv("LOG_LEVEL"))
}
