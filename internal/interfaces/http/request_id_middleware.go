package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// HeaderRequestID header de correlação aceito na entrada e sempre devolvido.
const HeaderRequestID = "X-Request-ID"

const localRequestID = "request_id"

// RequestID propaga o identificador de correlação: aproveita o que o chamador
// mandou ou gera um UUID novo, e o devolve no header da resposta.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := strings.TrimSpace(c.Get(HeaderRequestID))
		if id == "" {
			id = uuid.NewString()
		}
		c.Locals(localRequestID, id)
		c.Set(HeaderRequestID, id)
		return c.Next()
	}
}

// GetRequestID devolve o identificador de correlação da requisição.
func GetRequestID(c *fiber.Ctx) string {
	v := c.Locals(localRequestID)
	if v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}
