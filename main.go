package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/deven96/stickermeta/config"
	"github.com/deven96/stickermeta/handler"
	"github.com/deven96/stickermeta/master/task"
	"github.com/deven96/stickermeta/utils"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mdp/qrterminal/v3"
	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
)

var client *whatsmeow.Client
var ch *amqp.Channel
var sender *string
var convertQueue *amqp.Queue
var loggingQueue *amqp.Queue

func loginNewClient() {
	// No ID stored, new login
	qrChan, _ := client.GetQRChannel(context.Background())
	err := client.Connect()
	utils.FailOnError(err, "Failed to connect to WhatsApp")
	for evt := range qrChan {
		if evt.Event == "code" {
			qrterminal.GenerateHalfBlock(evt.Code, qrterminal.L, os.Stdout)
			fmt.Println("QR code:", evt.Code)
		} else {
			log.Infof("Login event: %s", evt.Event)
		}
	}
}

func eventHandler(evt interface{}) {
	switch eventInfo := evt.(type) {
	case *events.ConnectFailure, *events.ClientOutdated:
		log.Fatal("Killing due to client related issues")
	case *events.StreamReplaced:
		log.Warn("Started another stream with the same device session")
	case *events.Message:
		extended := eventInfo.Message.GetExtendedTextMessage()
		quotedMsg := extended.GetContextInfo().GetQuotedMessage()
		quotedImage := quotedMsg.GetImageMessage()
		quotedVideo := quotedMsg.GetVideoMessage()

		request := handler.ParseCaption(eventInfo.Message.GetImageMessage().GetCaption())
		if !request.IsCommand {
			request = handler.ParseCaption(eventInfo.Message.GetVideoMessage().GetCaption())
		}
		// check if quoted message with correct caption references media
		quoted := handler.ParseCaption(extended.GetText())
		quotedMatch := quoted.IsCommand && (quotedImage != nil || quotedVideo != nil)
		isPrivateMedia := (eventInfo.Message.GetImageMessage() != nil || eventInfo.Message.GetVideoMessage() != nil) && !eventInfo.Info.IsGroup
		if !(request.IsCommand || quotedMatch || isPrivateMedia) {
			return
		}
		if quotedMatch {
			// replace the actual message struct with quoted media
			request = quoted
			if quotedImage != nil {
				eventInfo.Info.MediaType = "image"
				eventInfo.Message.ImageMessage = quotedImage
			} else {
				eventInfo.Info.MediaType = "video"
				eventInfo.Message.VideoMessage = quotedVideo
			}
		}
		if *sender != "" && eventInfo.Info.Sender.User != *sender {
			return
		}
		go handler.Run(client, eventInfo, request, ch, convertQueue, loggingQueue)
	}
}

func main() {
	configPath := flag.String("config", "whatsticker.toml", "Path to the configuration file")
	sender = flag.String("sender", "", "Set to number jid that you want to restrict responses to")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	utils.FailOnError(err, "Failed to load config")
	log.SetLevel(utils.GetLogLevel(cfg.Logging.Level))

	os.MkdirAll("db", os.ModePerm)
	dbLog := waLog.Stdout("Database", "INFO", true)
	container, err := sqlstore.New("sqlite3", "file:db/examplestore.db?_foreign_keys=on", dbLog)
	utils.FailOnError(err, "Failed to open device store")

	conn, err := amqp.Dial(cfg.AMQP.URI)
	utils.FailOnError(err, "Failed to connect to RabbitMQ")
	defer conn.Close()

	ch, err = conn.Channel()
	utils.FailOnError(err, "Failed to open a channel")
	defer ch.Close()

	// RabbitMQ not to give more than one message to a worker at a time
	err = ch.Qos(cfg.AMQP.Prefetch, 0, false)
	utils.FailOnError(err, "Failed to set QoS")

	// If you want multiple sessions, remember their JIDs and use .GetDevice(jid) or .GetAllDevices() instead.
	deviceStore, err := container.GetFirstDevice()
	utils.FailOnError(err, "Failed to load device")

	client = whatsmeow.NewClient(deviceStore, waLog.Stdout("Client", "INFO", true))
	client.AddEventHandler(eventHandler)
	client.EnableAutoReconnect = true
	defer client.Disconnect()

	convertQueue = utils.GetQueue(ch, cfg.AMQP.ConvertQueue, true)
	completeQueue := utils.GetQueue(ch, cfg.AMQP.CompleteQueue, true)
	loggingQueue = utils.GetQueue(ch, cfg.AMQP.MetricQueue, false)

	complete := &task.StickerConsumer{
		Client:        client,
		PushMetricsTo: loggingQueue,
	}
	completeQueueMsgs, err := ch.Consume(
		completeQueue.Name, // queue
		"",                 // consumer
		false,              // auto-ack, so we can ack it ourself after processing
		false,              // exclusive
		false,              // no-local
		false,              // no-wait
		nil,                // args
	)
	utils.FailOnError(err, "Failed to register a consumer")

	go func() {
		for d := range completeQueueMsgs {
			d := d
			complete.Consume(ch, &d)
		}
	}()

	if client.Store.ID == nil {
		loginNewClient()
	} else {
		// Already logged in, just connect
		utils.FailOnError(client.Connect(), "Failed to connect to WhatsApp")
	}

	utils.ListenForCtrlC("whatsticker")
}
