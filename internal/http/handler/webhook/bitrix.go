package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"basegraph.app/crmrelay/common/id"
	"basegraph.app/crmrelay/common/logger"
	"basegraph.app/crmrelay/core/config"
	"basegraph.app/crmrelay/internal/domain"
	"basegraph.app/crmrelay/internal/http/dto"
	"basegraph.app/crmrelay/internal/http/middleware"
	"basegraph.app/crmrelay/internal/service"
	"basegraph.app/crmrelay/internal/service/issue_tracker"
)

// MaxBodyBytes caps a webhook body. Bitrix24 sends field values and attachment
// links, never file contents.
const MaxBodyBytes = 1 << 20

type BitrixWebhookHandler struct {
	relay service.RelayService
}

func NewBitrixWebhookHandler(relay service.RelayService) *BitrixWebhookHandler {
	return &BitrixWebhookHandler{relay: relay}
}

func (h *BitrixWebhookHandler) HandleEvent(c *gin.Context) {
	deliveryID := id.New()
	c.Header(middleware.DeliveryIDHeader, strconv.FormatInt(deliveryID, 10))

	// The issue may already exist when the caller hangs up, so the pipeline
	// keeps running on its own timeouts.
	ctx := context.WithoutCancel(c.Request.Context())
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		DeliveryID: logger.Ptr(deliveryID),
		Component:  "crmrelay.http.webhook.bitrix",
	})

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			slog.WarnContext(ctx, "rejected oversized webhook payload", "limit", tooLarge.Limit)
			c.JSON(http.StatusRequestEntityTooLarge, dto.ErrorResponse{Error: "payload too large"})
			return
		}
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "failed to read request body"})
		return
	}

	var event domain.InboundEvent
	if err := json.Unmarshal(body, &event); err != nil || event == nil {
		slog.WarnContext(ctx, "rejected webhook payload", "body", logger.Truncate(string(body), 200))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "payload must be a JSON object"})
		return
	}

	slog.InfoContext(ctx, "received bitrix webhook", "fields", len(event.Fields()))

	result, err := h.relay.Process(ctx, service.RelayParams{
		DeliveryID: deliveryID,
		Event:      event,
	})
	if err != nil {
		status, resp := errorResponse(err)
		slog.ErrorContext(ctx, "failed to relay bitrix webhook", "error", err, "status", status)
		c.JSON(status, resp)
		return
	}

	slog.InfoContext(ctx, "bitrix webhook relayed",
		"issue_id", result.Issue.ID,
		"issue_identifier", result.Issue.Identifier,
		"attachments", len(result.Attachments),
		"attachments_failed", result.FailedAttachments(),
	)

	c.JSON(http.StatusOK, dto.NewWebhookResponse(result))
}

func errorResponse(err error) (int, dto.ErrorResponse) {
	var (
		missing      *config.MissingSettingError
		appErr       *issue_tracker.ApplicationError
		transportErr *issue_tracker.TransportError
	)

	switch {
	case errors.As(err, &missing):
		return http.StatusInternalServerError, dto.ErrorResponse{
			Error:   missing.Error(),
			Setting: missing.Name,
		}
	case errors.As(err, &appErr):
		return http.StatusBadGateway, dto.ErrorResponse{
			Error:        "linear returned errors",
			LinearErrors: appErr.Errors,
		}
	case errors.As(err, &transportErr):
		return http.StatusBadGateway, dto.ErrorResponse{
			Error:  transportErr.Error(),
			Status: transportErr.StatusCode,
			Body:   transportErr.Body,
		}
	default:
		return http.StatusBadGateway, dto.ErrorResponse{Error: err.Error()}
	}
}
