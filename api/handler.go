package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/deven96/stickermeta/metadata"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

const webpContentType = "image/webp"

// MetadataResponse mirrors the keys written into the sticker
type MetadataResponse struct {
	StickerPackID        string   `json:"sticker-pack-id"`
	StickerPackName      string   `json:"sticker-pack-name"`
	StickerPackPublisher string   `json:"sticker-pack-publisher"`
	Emojis               []string `json:"emojis,omitempty"`
	AndroidAppStoreLink  *string  `json:"android-app-store-link,omitempty"`
	IOSAppStoreLink      *string  `json:"ios-app-store-link,omitempty"`
	IsFirstPartySticker  *bool    `json:"is-first-party-sticker,omitempty"`
}

// ErrorResponse is returned for every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

func (s *Server) readBody(c *gin.Context) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, s.maxBody))
	if err != nil {
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: err.Error()})
		return nil, false
	}
	return body, true
}

// recordFromQuery overlays query parameters on the server defaults
func (s *Server) recordFromQuery(c *gin.Context) (metadata.Metadata, error) {
	m := s.defaults
	m.StickerPackID = c.Query("id")
	if v := c.Query("pack"); v != "" {
		m.StickerPackName = v
	}
	if v := c.Query("publisher"); v != "" {
		m.StickerPackPublisher = v
	}
	if emojis := c.QueryArray("emoji"); len(emojis) > 0 {
		m.Emojis = emojis
	}
	if v, ok := c.GetQuery("android"); ok {
		m.AndroidAppStoreLink = &v
	}
	if v, ok := c.GetQuery("ios"); ok {
		m.IOSAppStoreLink = &v
	}
	if v, ok := c.GetQuery("first_party"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return metadata.Metadata{}, errors.New("first_party must be a boolean")
		}
		m.IsFirstPartySticker = &b
	}
	return m, nil
}

func (s *Server) fail(c *gin.Context, operation string, status int, err error) {
	s.requests.WithLabelValues(operation, "error").Inc()
	log.Debugf("%s failed: %s", operation, err)
	c.JSON(status, ErrorResponse{Error: err.Error()})
}

// EmbedHandler handles POST /api/v1/metadata: the body is a WebP container,
// the query describes the pack, the response is the container with metadata.
func (s *Server) EmbedHandler(c *gin.Context) {
	record, err := s.recordFromQuery(c)
	if err != nil {
		s.fail(c, "embed", http.StatusBadRequest, err)
		return
	}
	body, ok := s.readBody(c)
	if !ok {
		return
	}
	out, err := metadata.Embed(body, record)
	switch {
	case errors.Is(err, metadata.ErrBufferTooSmall):
		s.fail(c, "embed", http.StatusBadRequest, err)
		return
	case err != nil:
		s.fail(c, "embed", http.StatusInternalServerError, err)
		return
	}
	s.requests.WithLabelValues("embed", "ok").Inc()
	c.Data(http.StatusOK, webpContentType, out)
}

// ExtractHandler handles POST /api/v1/metadata/extract
func (s *Server) ExtractHandler(c *gin.Context) {
	body, ok := s.readBody(c)
	if !ok {
		return
	}
	m, err := metadata.Extract(body)
	if err != nil {
		s.fail(c, "extract", http.StatusUnprocessableEntity, err)
		return
	}
	s.requests.WithLabelValues("extract", "ok").Inc()
	c.JSON(http.StatusOK, MetadataResponse{
		StickerPackID:        m.StickerPackID,
		StickerPackName:      m.StickerPackName,
		StickerPackPublisher: m.StickerPackPublisher,
		Emojis:               m.Emojis,
		AndroidAppStoreLink:  m.AndroidAppStoreLink,
		IOSAppStoreLink:      m.IOSAppStoreLink,
		IsFirstPartySticker:  m.IsFirstPartySticker,
	})
}

// StripHandler handles POST /api/v1/metadata/strip
func (s *Server) StripHandler(c *gin.Context) {
	body, ok := s.readBody(c)
	if !ok {
		return
	}
	out, err := metadata.Remove(body)
	if err != nil {
		s.fail(c, "strip", http.StatusBadRequest, err)
		return
	}
	s.requests.WithLabelValues("strip", "ok").Inc()
	c.Data(http.StatusOK, webpContentType, out)
}
