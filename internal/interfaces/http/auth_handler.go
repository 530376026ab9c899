package http

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"

	"github.com/tecnofiscal/nfse-nacional-api/internal/application/dto"
	"github.com/tecnofiscal/nfse-nacional-api/pkg/config"
	"github.com/tecnofiscal/nfse-nacional-api/pkg/jwt"
)

// AuthHandler emite tokens para as credenciais estáticas da API. Não há base
// de usuários: o par usuário/senha vem da configuração.
type AuthHandler struct {
	cfg config.JWTConfig
}

// NewAuthHandler constrói o handler de auth.
func NewAuthHandler(cfg config.JWTConfig) *AuthHandler {
	return &AuthHandler{cfg: cfg}
}

// Token godoc
// @Summary      Emitir token de acesso
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  dto.TokenRequest  true  "usuario, senha e documento do prestador"
// @Success      200   {object}  dto.TokenResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Router       /api/auth/token [post]
func (h *AuthHandler) Token(c *fiber.Ctx) error {
	var in dto.TokenRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "corpo inválido"})
	}
	if in.Usuario == "" || in.Senha == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "usuario e senha são obrigatórios"})
	}
	if h.cfg.APIUser == "" || h.cfg.APISenha == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "credenciais da API não configuradas"})
	}
	usuarioOK := subtle.ConstantTimeCompare([]byte(in.Usuario), []byte(h.cfg.APIUser)) == 1
	senhaOK := subtle.ConstantTimeCompare([]byte(in.Senha), []byte(h.cfg.APISenha)) == 1
	if !usuarioOK || !senhaOK {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "credenciais inválidas"})
	}

	token, err := jwt.Generate(h.cfg.Secret, in.Usuario, in.Documento, h.cfg.Issuer, h.cfg.Expiration)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.JSON(dto.TokenResponse{Token: token, ExpiraEmMinutos: h.cfg.Expiration})
}
