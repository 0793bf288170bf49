package main

import (
	"flag"
	"sync"

	"github.com/deven96/stickermeta/config"
	"github.com/deven96/stickermeta/store"
	"github.com/deven96/stickermeta/utils"
	"github.com/deven96/stickermeta/worker/convert"

	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "whatsticker.toml", "Path to the configuration file")
	workers := flag.Int("workers", 2, "Number of deliveries converted in parallel")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	utils.FailOnError(err, "Failed to load config")
	log.SetLevel(utils.GetLogLevel(cfg.Logging.Level))

	packs, err := store.Open(cfg.Store.Path)
	utils.FailOnError(err, "Failed to open pack store")
	defer packs.Close()

	conn, err := amqp.Dial(cfg.AMQP.URI)
	utils.FailOnError(err, "Failed to connect to RabbitMQ")
	defer conn.Close()

	ch, err := conn.Channel()
	utils.FailOnError(err, "Failed to open a channel")
	defer ch.Close()

	// don't dispatch a new message to a worker until it has processed and acknowledged the previous one.
	err = ch.Qos(cfg.AMQP.Prefetch*(*workers), 0, false)
	utils.FailOnError(err, "Failed to set QoS")

	convertQueue := utils.GetQueue(ch, cfg.AMQP.ConvertQueue, true)
	consumer := &convert.ConvertConsumer{
		PushTo:     utils.GetQueue(ch, cfg.AMQP.CompleteQueue, true),
		MetricsTo:  utils.GetQueue(ch, cfg.AMQP.MetricQueue, false),
		Transcoder: convert.ExecTranscoder{},
		Packs:      packs,
		Defaults:   cfg.StickerDefaults(),
	}

	deliveries, err := ch.Consume(
		convertQueue.Name, // queue
		"convert-consumer", // consumer
		false,              // auto-ack, so we can ack it ourself after processing
		false,              // exclusive
		false,              // no-local
		false,              // no-wait
		nil,                // args
	)
	utils.FailOnError(err, "Failed to register a consumer")

	var wg sync.WaitGroup
	for i := 0; i < *workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for d := range deliveries {
				d := d
				consumer.Consume(ch, &d)
			}
		}()
	}

	utils.ListenForCtrlC("convert worker")
	ch.Cancel("convert-consumer", false)
	wg.Wait()
}
