package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tecnofiscal/nfse-nacional-api/internal/application/emissao"
	"github.com/tecnofiscal/nfse-nacional-api/pkg/config"
	"github.com/tecnofiscal/nfse-nacional-api/pkg/logger"
)

// RouterDeps dependências para o router.
type RouterDeps struct {
	Emissor *emissao.EmissorNFSe
	JWT     config.JWTConfig
	Log     *logger.Logger
}

// Router registra as rotas da API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api", RequestID())

	// Auth (público)
	authHandler := NewAuthHandler(deps.JWT)
	api.Post("/auth/token", authHandler.Token)

	// Rotas protegidas (exigem Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWT.Secret))
	emissaoHandler := NewEmissaoHandler(deps.Emissor, deps.Log)

	// Fluxo legado de lotes (envelope XML dentro de JSON)
	lotes := protected.Group("/lotes")
	lotes.Post("/", emissaoHandler.EnviarLote)
	lotes.Get("/:protocolo", emissaoHandler.SituacaoLote)

	protected.Get("/rps/:id/nfse", emissaoHandler.NfsePorRps)

	// Operações por chave de acesso
	notas := protected.Group("/nfse")
	notas.Get("/:chave", emissaoHandler.Consultar)
	notas.Post("/:chave/cancelamento", emissaoHandler.Cancelar)
	notas.Get("/:chave/danfse", emissaoHandler.DANFSe)
}
