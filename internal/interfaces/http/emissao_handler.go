package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/tecnofiscal/nfse-nacional-api/internal/application/dto"
	"github.com/tecnofiscal/nfse-nacional-api/internal/application/emissao"
	"github.com/tecnofiscal/nfse-nacional-api/internal/domain"
	"github.com/tecnofiscal/nfse-nacional-api/pkg/logger"
)

// EmissaoHandler expõe a emissão de NFS-e: o fluxo legado de lotes (envelope
// XML dentro de JSON, sempre HTTP 200) e as operações modernas por chave de
// acesso (erros mapeados em status HTTP).
type EmissaoHandler struct {
	emissor *emissao.EmissorNFSe
	log     *logger.Logger
}

// NewEmissaoHandler constrói o handler de emissão.
func NewEmissaoHandler(emissor *emissao.EmissorNFSe, log *logger.Logger) *EmissaoHandler {
	return &EmissaoHandler{emissor: emissor, log: log.Component("http")}
}

// EnviarLote godoc
// @Summary      Transmitir lote legado
// @Description  Transmite os RPS do lote (ou os pedidos de cancelamento, quando não há RPS) e devolve o envelope XML do barramento antigo. Falhas de negócio chegam dentro do envelope, com HTTP 200.
// @Tags         lotes
// @Accept       json
// @Produce      json
// @Param        body  body  dto.LoteRequest  true  "RPS e/ou cancelamentos"
// @Success      200   {object}  dto.EnvelopeResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /api/lotes [post]
func (h *EmissaoHandler) EnviarLote(c *fiber.Ctx) error {
	var in dto.LoteRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "corpo inválido"})
	}
	if len(in.RPS) == 0 && len(in.Cancelamentos) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "lote vazio: informe rps ou cancelamentos"})
	}

	lote := &emissao.Lote{}
	for _, r := range in.RPS {
		lote.AddRPS(r.ParaRPS())
	}
	for _, cancel := range in.Cancelamentos {
		lote.AddCancelamento(cancel.ParaCancelamento())
	}

	var envelope []byte
	if len(lote.RPS) > 0 {
		envelope = h.emissor.EnviarLote(c.Context(), lote)
	} else {
		envelope = h.emissor.CancelarLote(c.Context(), lote)
	}
	h.log.Info().
		Str("request_id", GetRequestID(c)).
		Int("rps", len(lote.RPS)).
		Int("cancelamentos", len(lote.Cancelamentos)).
		Msg("lote processado")
	return c.JSON(dto.EnvelopeResponse{Envelope: string(envelope)})
}

// SituacaoLote devolve o envelope de situação do protocolo legado.
// GET /api/lotes/:protocolo
func (h *EmissaoHandler) SituacaoLote(c *fiber.Ctx) error {
	protocolo := c.Params("protocolo")
	if protocolo == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "protocolo obrigatório"})
	}
	envelope := h.emissor.SituacaoLote(c.Context(), protocolo)
	return c.JSON(dto.EnvelopeResponse{Envelope: string(envelope)})
}

// NfsePorRps devolve o envelope legado de consulta por RPS. O identificador
// pode ser a chave de acesso ou o protocolo que a carrega.
// GET /api/rps/:id/nfse
func (h *EmissaoHandler) NfsePorRps(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "identificador obrigatório"})
	}
	envelope := h.emissor.NfsePorRps(c.Context(), emissao.ConsultaIdentificador{ChaveAcesso: id})
	return c.JSON(dto.EnvelopeResponse{Envelope: string(envelope)})
}

// Consultar godoc
// @Summary      Consultar NFS-e por chave de acesso
// @Tags         nfse
// @Produce      json
// @Param        chave  path  string  true  "chave de acesso (50 dígitos)"
// @Success      200  {object}  dto.ConsultaNFSeResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /api/nfse/{chave} [get]
func (h *EmissaoHandler) Consultar(c *fiber.Ctx) error {
	chave := c.Params("chave")
	consulta, err := h.emissor.Consultar(c.Context(), emissao.ConsultaIdentificador{ChaveAcesso: chave})
	if err != nil {
		return h.respostaDeErro(c, err)
	}
	corpo := consulta.XML
	if len(corpo) == 0 {
		corpo = consulta.Corpo
	}
	return c.JSON(dto.ConsultaNFSeResponse{ChaveAcesso: chave, XML: string(corpo)})
}

// Cancelar godoc
// @Summary      Cancelar NFS-e
// @Description  Registra o evento de cancelamento da nota apontada pela chave. Documento do prestador e justificativa são obrigatórios.
// @Tags         nfse
// @Accept       json
// @Produce      json
// @Param        chave  path  string                   true  "chave de acesso (50 dígitos)"
// @Param        body   body  dto.CancelamentoRequest  true  "documento do prestador e justificativa"
// @Success      200  {object}  dto.CancelamentoResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /api/nfse/{chave}/cancelamento [post]
func (h *EmissaoHandler) Cancelar(c *fiber.Ctx) error {
	var in dto.CancelamentoRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "corpo inválido"})
	}
	cancelamento := in.ParaCancelamento()
	cancelamento.ChaveAcesso = c.Params("chave")

	if err := h.emissor.Cancelar(c.Context(), cancelamento); err != nil {
		return h.respostaDeErro(c, err)
	}
	return c.JSON(dto.CancelamentoResponse{ChaveAcesso: cancelamento.ChaveAcesso, Status: "cancelada"})
}

// DANFSe godoc
// @Summary      Baixar a DANFSe em PDF
// @Tags         nfse
// @Produce      application/pdf
// @Param        chave  path  string  true  "chave de acesso (50 dígitos)"
// @Success      200  {file}    file
// @Failure      404  {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /api/nfse/{chave}/danfse [get]
func (h *EmissaoHandler) DANFSe(c *fiber.Ctx) error {
	chave := c.Params("chave")
	pdf, err := h.emissor.BaixarDANFSe(c.Context(), emissao.ConsultaIdentificador{ChaveAcesso: chave})
	if err != nil {
		return h.respostaDeErro(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	return c.Send(pdf)
}

// respostaDeErro mapeia os erros do domínio em status HTTP. Rejeições do
// portal nunca viram 5xx: o problema está no documento, não no serviço.
func (h *EmissaoHandler) respostaDeErro(c *fiber.Ctx, err error) error {
	var schemaErr *domain.SchemaError
	var portalErr *domain.PortalError
	var transientErr *domain.TransientError

	switch {
	case errors.As(err, &schemaErr),
		errors.Is(err, domain.ErrCamposCancelamento),
		errors.Is(err, domain.ErrIdentificadorIrresoluvel):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	case errors.Is(err, domain.ErrNFSeNaoEncontrada):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: err.Error()})
	case errors.As(err, &portalErr):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Code: "PORTAL_REJEITOU", Message: portalErr.Error()})
	case errors.Is(err, domain.ErrAutenticacao), errors.As(err, &transientErr):
		h.log.Error().Err(err).Str("request_id", GetRequestID(c)).Msg("portal inacessível")
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Code: "PORTAL_INDISPONIVEL", Message: err.Error()})
	case errors.Is(err, domain.ErrAssinatura), errors.Is(err, domain.ErrCertificado):
		h.log.Error().Err(err).Str("request_id", GetRequestID(c)).Msg("falha de assinatura")
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "ASSINATURA", Message: err.Error()})
	default:
		h.log.Error().Err(err).Str("request_id", GetRequestID(c)).Msg("erro não mapeado")
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
}
