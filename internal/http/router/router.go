package router

import (
	"github.com/gin-gonic/gin"

	"basegraph.app/crmrelay/internal/http/handler"
	"basegraph.app/crmrelay/internal/http/handler/webhook"
	"basegraph.app/crmrelay/internal/service"
)

func SetupRoutes(router *gin.Engine, services *service.Services) {
	cfg := services.Config()

	healthHandler := handler.NewHealthHandler(cfg.Tracker, cfg.Storage)
	router.GET("/healthz", healthHandler.Check)

	bitrixHandler := webhook.NewBitrixWebhookHandler(services.Relay())
	schemaHandler := handler.NewSchemaHandler()
	WebhookRouter(router.Group("/webhook"), bitrixHandler, schemaHandler)

	// Older Bitrix24 automations still post here.
	router.POST("/bitrix-linear", bitrixHandler.HandleEvent)
}
