package utils

import "github.com/deven96/stickermeta/metadata"

// StickerMetadata is the pack information requested for a sticker. Empty
// fields fall back to the configured defaults in the worker.
type StickerMetadata struct {
	PackName  string   `json:"pack_name,omitempty"`
	Publisher string   `json:"publisher,omitempty"`
	Emojis    []string `json:"emojis,omitempty"`
}

// ConvertTask
type ConvertTask struct {
	MediaPath     string
	ConvertedPath string
	DataLen       int
	MediaType     string
	Chat          string
	IsGroup       bool
	MessageSender string
	TimeOfRequest string
	Metadata      StickerMetadata

	// transcoder knobs; zero means the transcoder default
	Quality  int
	FPS      int
	Duration int
}

// StickerizationMetric
type StickerizationMetric struct {
	InitialMediaLength int
	FinalMediaLength   int
	MediaType          string
	IsGroupMessage     bool
	MessageSender      string
	TimeOfRequest      string
	Validated          bool
	MetadataEmbedded   bool
	StickerPackID      string
}

// NewMetric : starts a metric for task, not yet validated
func NewMetric(task ConvertTask) StickerizationMetric {
	return StickerizationMetric{
		InitialMediaLength: task.DataLen,
		MediaType:          task.MediaType,
		IsGroupMessage:     task.IsGroup,
		MessageSender:      task.MessageSender,
		TimeOfRequest:      task.TimeOfRequest,
	}
}

// Record : combines the configured pack defaults with what the task asked for
func (s StickerMetadata) Record(defaults metadata.Metadata, packID string) metadata.Metadata {
	m := defaults
	m.StickerPackID = packID
	if s.PackName != "" {
		m.StickerPackName = s.PackName
	}
	if s.Publisher != "" {
		m.StickerPackPublisher = s.Publisher
	}
	if len(s.Emojis) > 0 {
		m.Emojis = append([]string(nil), s.Emojis...)
	}
	return m
}
