package main

import (
	"flag"

	"github.com/deven96/stickermeta/config"
	"github.com/deven96/stickermeta/logger/metrics"
	"github.com/deven96/stickermeta/logger/push"
	"github.com/deven96/stickermeta/utils"

	"github.com/prometheus/client_golang/prometheus"
	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "whatsticker.toml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	utils.FailOnError(err, "Failed to load config")
	log.SetLevel(utils.GetLogLevel(cfg.Logging.Level))

	conn, err := amqp.Dial(cfg.AMQP.URI)
	utils.FailOnError(err, "Failed to connect to RabbitMQ")
	defer conn.Close()

	ch, err := conn.Channel()
	utils.FailOnError(err, "Failed to open a channel")
	defer ch.Close()

	loggingQueue := utils.GetQueue(ch, cfg.AMQP.MetricQueue, false)
	register := metrics.Initialize(prometheus.NewRegistry(), metrics.NewGauges(), cfg.Metrics.PushGateway, cfg.Metrics.Job)
	consumer := &push.Consumer{Register: &register}

	deliveries, err := ch.Consume(loggingQueue.Name, "logging-consumer", false, false, false, false, nil)
	utils.FailOnError(err, "Failed to register a consumer")

	go func() {
		for d := range deliveries {
			d := d
			consumer.Consume(&d)
		}
	}()
	log.Infof("Consuming metrics from %s", loggingQueue.Name)
	utils.ListenForCtrlC("metrics logger")
}
