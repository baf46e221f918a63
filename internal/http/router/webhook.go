package router

import (
	"github.com/gin-gonic/gin"

	"basegraph.app/crmrelay/internal/http/handler"
	"basegraph.app/crmrelay/internal/http/handler/webhook"
)

func WebhookRouter(router *gin.RouterGroup, bitrix *webhook.BitrixWebhookHandler, schema *handler.SchemaHandler) {
	router.POST("", bitrix.HandleEvent)
	router.GET("/schema", schema.Webhook)
}
