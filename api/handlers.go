package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/saqibullah/spam-filter-gateway/mlclient"
	"github.com/sirupsen/logrus"
)

// Client-visible error strings. Details stay in the server log.
const (
	MsgInvalidInput = "Invalid input, 'text' field is required"
	MsgUpstream     = "Error communicating with ML API"
	MsgTooLarge     = "Request entity too large"
)

// MaxBodyBytes caps predict request bodies at 100kb.
const MaxBodyBytes = 100 << 10

const mlUnavailable = "unavailable"

// Upstream is the part of the ML API client the handlers need.
type Upstream interface {
	Predict(ctx context.Context, text json.RawMessage) (*mlclient.Response, error)
	Health(ctx context.Context) (*mlclient.Response, error)
}

type Handler struct {
	ml  Upstream
	log logrus.FieldLogger
}

func NewHandler(ml Upstream, log logrus.FieldLogger) *Handler {
	return &Handler{ml: ml, log: log}
}

// Health always answers 200. mlApi carries the upstream's own reply, or
// "unavailable" when the probe fails.
func (h *Handler) Health(c *gin.Context) {
	var mlAPI any = mlUnavailable

	resp, err := h.ml.Health(c.Request.Context())
	if err != nil {
		requestLogger(c, h.log).WithError(err).Warn("ML API health check failed")
	} else if json.Valid(resp.Body) {
		mlAPI = json.RawMessage(resp.Body)
	} else {
		mlAPI = string(resp.Body)
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "OK",
		"gateway": "running",
		"mlApi":   mlAPI,
	})
}

// Predict validates the body, forwards text to the ML API and relays the
// upstream payload with status 200.
func (h *Handler) Predict(c *gin.Context) {
	log := requestLogger(c, h.log)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodyBytes)
	text, err := readText(c)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			log.WithField("limit", tooLarge.Limit).Info("rejected oversized predict request")
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": MsgTooLarge})
			return
		}
		log.WithError(err).Info("rejected predict request")
		c.JSON(http.StatusBadRequest, gin.H{"error": MsgInvalidInput})
		return
	}

	resp, err := h.ml.Predict(c.Request.Context(), text)
	if err != nil {
		entry := log.WithError(err)
		var upErr *mlclient.UpstreamError
		if errors.As(err, &upErr) && upErr.StatusCode != 0 {
			entry = entry.WithField("upstream_status", upErr.StatusCode)
		}
		entry.Error("error communicating with ML API")
		c.JSON(http.StatusInternalServerError, gin.H{"error": MsgUpstream})
		return
	}

	contentType := resp.ContentType
	if contentType == "" {
		contentType = gin.MIMEJSON + "; charset=utf-8"
	}
	c.Data(http.StatusOK, contentType, resp.Body)
}

// readText extracts the raw "text" value from a JSON or url-encoded body.
// Only presence is checked; the value is not type checked. Bodies of any
// other content type carry no fields.
func readText(c *gin.Context) (json.RawMessage, error) {
	switch c.ContentType() {
	case gin.MIMEJSON:
		var fields map[string]json.RawMessage
		if err := c.ShouldBindJSON(&fields); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return nil, err
			}
			return nil, &ValidationError{Field: "text", Reason: "body is not a JSON object", Err: err}
		}
		text, ok := fields["text"]
		if !ok {
			return nil, &ValidationError{Field: "text", Reason: "missing"}
		}
		return text, nil
	case gin.MIMEPOSTForm:
		text, ok := c.GetPostForm("text")
		if !ok {
			return nil, &ValidationError{Field: "text", Reason: "missing"}
		}
		return json.Marshal(text)
	default:
		return nil, &ValidationError{Field: "text", Reason: "unsupported content type " + strconv.Quote(c.ContentType())}
	}
}
