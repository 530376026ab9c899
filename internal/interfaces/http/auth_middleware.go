package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/tecnofiscal/nfse-nacional-api/internal/application/dto"
	"github.com/tecnofiscal/nfse-nacional-api/pkg/jwt"
)

// Chaves de Locals preenchidas pelo AuthMiddleware.
const (
	LocalUsuario   = "usuario"
	LocalDocumento = "documento"
)

// AuthMiddleware valida o Bearer Token JWT e carrega usuário e documento do
// prestador em c.Locals.
func AuthMiddleware(jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "header Authorization obrigatório"})
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "formato: Bearer <token>"})
		}
		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "token vazio"})
		}
		usuario, documento, err := jwt.Parse(jwtSecret, tokenString)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "token inválido ou expirado"})
		}
		c.Locals(LocalUsuario, usuario)
		c.Locals(LocalDocumento, documento)
		return c.Next()
	}
}

// GetUsuario devolve o usuário do contexto (após o middleware de auth).
func GetUsuario(c *fiber.Ctx) string {
	v := c.Locals(LocalUsuario)
	if v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

// GetDocumento devolve o documento do prestador vinculado ao token.
func GetDocumento(c *fiber.Ctx) string {
	v := c.Locals(LocalDocumento)
	if v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}
