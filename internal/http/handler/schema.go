package handler

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/invopop/jsonschema"

	"basegraph.app/crmrelay/internal/http/dto"
)

type SchemaHandler struct {
	once   sync.Once
	schema *jsonschema.Schema
}

func NewSchemaHandler() *SchemaHandler {
	return &SchemaHandler{}
}

// Webhook serves the JSON Schema of the accepted webhook envelope. Unknown
// properties are allowed since Bitrix24 sends many more fields than the relay
// reads.
func (h *SchemaHandler) Webhook(c *gin.Context) {
	h.once.Do(func() {
		reflector := jsonschema.Reflector{
			AllowAdditionalProperties: true,
			DoNotReference:            true,
		}
		h.schema = reflector.Reflect(&dto.WebhookEnvelope{})
	})
	c.JSON(http.StatusOK, h.schema)
}
