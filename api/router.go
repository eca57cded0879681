package api

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// NewRouter wires the gateway routes:
//
//	GET  /             health, including upstream reachability
//	POST /api/predict  forward text to the ML API
func NewRouter(h *Handler, allowedOrigins []string, log logrus.FieldLogger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger(log))
	r.Use(CORS(allowedOrigins))

	r.GET("/", h.Health)
	r.POST("/api/predict", h.Predict)

	return r
}
