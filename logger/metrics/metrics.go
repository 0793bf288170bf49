package metrics

import (
	"github.com/deven96/stickermeta/utils"
	"github.com/dongri/phonenumber"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	log "github.com/sirupsen/logrus"
)

type StickerizationGauges struct {
	GroupMessagesGauge   prometheus.Gauge
	PrivateMessagesGauge prometheus.Gauge
	ImageGauge           prometheus.Gauge
	VideoGauge           prometheus.Gauge
	FailedGauge          prometheus.Gauge
	MetadataGauge        *prometheus.GaugeVec
	CountryGauge         *prometheus.GaugeVec
}

type Register struct {
	Gauges   StickerizationGauges
	Registry *prometheus.Registry
	Pusher   *push.Pusher
}

func NewGauges() StickerizationGauges {
	return StickerizationGauges{
		GroupMessagesGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "Whatsticker",
			Subsystem: "RequestSource",
			Name:      "GroupMessages",
			Help:      "Stickerization Requests From Group Chats",
		}),
		PrivateMessagesGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "Whatsticker",
			Subsystem: "RequestSource",
			Name:      "PrivateMessages",
			Help:      "Stickerization Requests From Private Chats",
		}),
		ImageGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "Whatsticker",
			Subsystem: "MediaType",
			Name:      "Image",
			Help:      "Stickerization Requests with Image as Media Type",
		}),
		VideoGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "Whatsticker",
			Subsystem: "MediaType",
			Name:      "Video",
			Help:      "Stickerization Requests with Video as Media Type",
		}),
		FailedGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "Whatsticker",
			Subsystem: "Result",
			Name:      "Failed",
			Help:      "Stickerization Requests that never produced a sticker",
		}),
		MetadataGauge: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "Whatsticker",
				Subsystem: "Result",
				Name:      "PackMetadata",
				Help:      "Delivered stickers by whether they carried sticker pack metadata",
			},
			[]string{"embedded"},
		),
		CountryGauge: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "Whatsticker",
				Subsystem: "SenderCountry",
				Name:      "Country",
				Help:      "Stickerization Request Sender's Country",
			},
			[]string{"country"},
		),
	}
}

// Initialize registers gauges on registry and points a pusher at gateway
func Initialize(registry *prometheus.Registry, gauges StickerizationGauges, gateway, job string) Register {
	registry.MustRegister(
		gauges.CountryGauge,
		gauges.GroupMessagesGauge,
		gauges.PrivateMessagesGauge,
		gauges.ImageGauge,
		gauges.VideoGauge,
		gauges.FailedGauge,
		gauges.MetadataGauge,
	)
	return Register{
		Registry: registry,
		Gauges:   gauges,
		Pusher:   push.New(gateway, job).Gatherer(registry),
	}
}

// PushToGateway sends the current values to the pushgateway
func (r *Register) PushToGateway() error {
	if err := r.Pusher.Add(); err != nil {
		log.Errorf("Could not push to Pushgateway: %s", err)
		return err
	}
	return nil
}

// SenderCountry resolves the country name of a WhatsApp number, "" if unknown
func SenderCountry(number string) string {
	return phonenumber.GetISO3166ByNumber(number, true).CountryName
}

// Record updates the gauges for one finished request
func (r *Register) Record(stickerMetric utils.StickerizationMetric) {
	stickerGauges := &r.Gauges
	if stickerMetric.IsGroupMessage {
		stickerGauges.GroupMessagesGauge.Inc()
	} else {
		stickerGauges.PrivateMessagesGauge.Inc()
	}

	switch stickerMetric.MediaType {
	case "image":
		stickerGauges.ImageGauge.Inc()
	case "video", "gif":
		stickerGauges.VideoGauge.Inc()
	}

	if !stickerMetric.Validated {
		stickerGauges.FailedGauge.Inc()
	} else if stickerMetric.MetadataEmbedded {
		stickerGauges.MetadataGauge.With(prometheus.Labels{"embedded": "true"}).Inc()
	} else {
		stickerGauges.MetadataGauge.With(prometheus.Labels{"embedded": "false"}).Inc()
	}

	if country := SenderCountry(stickerMetric.MessageSender); country != "" {
		stickerGauges.CountryGauge.With(prometheus.Labels{"country": country}).Inc()
	}
}
