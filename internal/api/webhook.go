package api

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	tgmodels "github.com/go-telegram/bot/models"

	"ratingbot/internal/service"
	apperrors "ratingbot/pkg/errors"
	"ratingbot/pkg/logger"
)

// WebhookController handles inbound Telegram webhook deliveries. The
// path segment doubles as a shared-secret credential; any other path
// is not handled.
type WebhookController struct {
	ingest    *service.IngestService
	pathToken string
	log       *logger.Logger
}

func NewWebhookController(ingest *service.IngestService, pathToken string, log *logger.Logger) *WebhookController {
	return &WebhookController{
		ingest:    ingest,
		pathToken: pathToken,
		log:       log,
	}
}

// RegisterRoutes registers the webhook route
func (c *WebhookController) RegisterRoutes(router *gin.Engine) {
	router.POST("/:token", c.Receive)
}

// Receive ingests one webhook update. Telegram expects a fast uniform
// ack: anything that parsed responds 200 "OK" whether or not it led to
// a store mutation, so the platform never retries ignored updates.
// Storage failures are the one exception and fail the request.
func (c *WebhookController) Receive(ctx *gin.Context) {
	if subtle.ConstantTimeCompare([]byte(ctx.Param("token")), []byte(c.pathToken)) != 1 {
		ctx.String(http.StatusNotFound, "not found")
		return
	}

	var update tgmodels.Update
	if err := ctx.ShouldBindJSON(&update); err != nil {
		ctx.Error(apperrors.NewBadRequestError("MALFORMED_UPDATE", "request body is not a valid update"))
		return
	}

	if err := c.ingest.HandleUpdate(ctx.Request.Context(), &update); err != nil {
		ctx.Error(apperrors.NewInternalServerError("STORAGE_ERROR", "failed to process update"))
		return
	}

	ctx.String(http.StatusOK, "OK")
}
