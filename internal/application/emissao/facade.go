package emissao

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"github.com/beevik/etree"

	"github.com/tecnofiscal/nfse-nacional-api/internal/domain"
	"github.com/tecnofiscal/nfse-nacional-api/internal/domain/nfse"
	"github.com/tecnofiscal/nfse-nacional-api/internal/infrastructure/sefin"
	"github.com/tecnofiscal/nfse-nacional-api/pkg/compression"
	"github.com/tecnofiscal/nfse-nacional-api/pkg/logger"
)

// Config parâmetros de emissão que não variam por requisição.
type Config struct {
	Ambiente         string // "1" produção, "2" homologação
	VerAplic         string
	DANFSeTentativas int           // tentativas de download do PDF após o registro
	DANFSeIntervalo  time.Duration // espera entre as tentativas
}

// ResultadoEmissao o que o registro de uma DPS produziu.
type ResultadoEmissao struct {
	IDDps       string
	ChaveAcesso nfse.ChaveAcesso
	NumeroNFSe  string
	XMLNFSe     []byte
	DANFSePDF   []byte
}

// EmissorNFSe orquestra o ciclo completo de emissão contra o portal nacional:
//
//	RPS legado → DPS mapeada → XML do leiaute → assinatura → gzip+base64 → registro
//
// e traduz os vereditos para os envelopes do barramento antigo. O serviço não
// guarda estado entre chamadas; o lote pertence ao chamador.
type EmissorNFSe struct {
	builder   *sefin.XMLBuilderService
	assinador sefin.Assinador
	portal    sefin.PortalClient
	codec     *compression.Codec
	cert      tls.Certificate
	cfg       Config
	log       *logger.Logger
}

// NewEmissorNFSe constrói o emissor com todas as dependências.
func NewEmissorNFSe(
	builder *sefin.XMLBuilderService,
	assinador sefin.Assinador,
	portal sefin.PortalClient,
	cert tls.Certificate,
	cfg Config,
	log *logger.Logger,
) *EmissorNFSe {
	if cfg.Ambiente == "" {
		cfg.Ambiente = sefin.AmbienteHomologacao
	}
	if cfg.DANFSeTentativas <= 0 {
		cfg.DANFSeTentativas = 3
	}
	if cfg.DANFSeIntervalo <= 0 {
		cfg.DANFSeIntervalo = 2 * time.Second
	}
	return &EmissorNFSe{
		builder:   builder,
		assinador: assinador,
		portal:    portal,
		codec:     compression.NewCodec(),
		cert:      cert,
		cfg:       cfg,
		log:       log.Component("emissao"),
	}
}

// ── Operações com resultado tipado ─────────────────────────────────────────────

// Emitir processa um único RPS de ponta a ponta e devolve os identificadores
// obtidos do portal. O mapeamento nunca falha; erros começam na montagem do
// XML (campo obrigatório ausente) e seguem a cadeia assinatura → rede → portal.
func (e *EmissorNFSe) Emitir(ctx context.Context, rps nfse.RPS) (*ResultadoEmissao, error) {
	if d := nfse.SanitizarDocumento(rps.PrestadorDocumento); d != "" {
		if err := nfse.ValidarDocumento(d); err != nil {
			// Alerta apenas; quem rejeita documento inválido é o portal.
			e.log.Warn().Err(err).Msg("documento do prestador com dígito verificador suspeito")
		}
	}
	if campos := nfse.DescartesPreenchidos(rps); len(campos) > 0 {
		e.log.Debug().Strs("campos", campos).Msg("campos legados sem destino no leiaute nacional foram ignorados")
	}
	doc := nfse.MapearRPS(rps, time.Now())

	xmlDPS, err := e.builder.BuildDPS(doc, e.params())
	if err != nil {
		return nil, err
	}

	assinado, err := e.assinador.Sign(xmlDPS, e.cert)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrAssinatura, err)
	}
	// O portal rejeita silenciosamente documentos mutilados; conferir a
	// estrutura antes de gastar uma chamada de rede.
	if !bytes.Contains(assinado, []byte("<DPS")) || !bytes.Contains(assinado, []byte(sefin.NamespaceNFSe)) {
		return nil, fmt.Errorf("%w: documento assinado não tem a estrutura de uma DPS", domain.ErrAssinatura)
	}

	gz, err := e.codec.Encode(assinado)
	if err != nil {
		return nil, err
	}

	reg, err := e.portal.EnviarDPS(ctx, gz)
	if err != nil {
		return nil, err
	}

	resultado := &ResultadoEmissao{
		IDDps:       reg.IDDps,
		ChaveAcesso: reg.ChaveAcesso,
		XMLNFSe:     reg.XMLNFSe,
		NumeroNFSe:  numeroDaNFSe(reg.XMLNFSe),
	}
	if !resultado.ChaveAcesso.Vazia() {
		resultado.DANFSePDF = e.baixarDANFSe(ctx, resultado.ChaveAcesso)
	}
	return resultado, nil
}

// Cancelar registra o evento de cancelamento. Documento do prestador, chave de
// acesso (resolvida de qualquer identificador presente) e justificativa são
// obrigatórios em conjunto.
func (e *EmissorNFSe) Cancelar(ctx context.Context, c nfse.Cancelamento) error {
	chave, origem, err := ResolverChave(ConsultaIdentificador{
		ChaveAcesso: c.ChaveAcesso,
		Protocolo:   c.Protocolo,
		CancelaID:   c.CancelaID,
	})
	if err != nil {
		return domain.ErrCamposCancelamento
	}
	if strings.TrimSpace(c.PrestadorDocumento) == "" || strings.TrimSpace(c.Justificativa) == "" {
		return domain.ErrCamposCancelamento
	}
	e.log.Debug().Str("origem", origem).Str("chaveAcesso", chave.String()).Msg("chave resolvida para cancelamento")

	evento, err := e.builder.BuildPedidoCancelamento(c, chave, e.params())
	if err != nil {
		return err
	}
	assinado, err := e.assinador.Sign(evento, e.cert)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrAssinatura, err)
	}
	gz, err := e.codec.Encode(assinado)
	if err != nil {
		return err
	}
	if _, err := e.portal.CancelarNFSe(ctx, chave, gz); err != nil {
		return err
	}
	return nil
}

// Consultar localiza a NFS-e a partir de qualquer identificador aproveitável.
func (e *EmissorNFSe) Consultar(ctx context.Context, id ConsultaIdentificador) (*sefin.NFSeConsultada, error) {
	chave, origem, err := ResolverChave(id)
	if err != nil {
		return nil, err
	}
	e.log.Debug().Str("origem", origem).Str("chaveAcesso", chave.String()).Msg("chave resolvida para consulta")
	return e.portal.ConsultarNFSe(ctx, chave)
}

// BaixarDANFSe baixa o PDF da DANFSe de uma nota já registrada, sem as
// retentativas do pós-registro.
func (e *EmissorNFSe) BaixarDANFSe(ctx context.Context, id ConsultaIdentificador) ([]byte, error) {
	chave, _, err := ResolverChave(id)
	if err != nil {
		return nil, err
	}
	return e.portal.BaixarDANFSe(ctx, chave)
}

// ── Operações legadas (sempre devolvem envelope) ───────────────────────────────

// EnviarLote transmite o primeiro RPS do lote e devolve o envelope legado.
// Falhas nunca viram erro de transporte aqui: o barramento antigo espera
// HTTP 200 com o envelope de erro.
func (e *EmissorNFSe) EnviarLote(ctx context.Context, lote *Lote) []byte {
	if lote == nil || len(lote.RPS) == 0 {
		return EnvelopeLoteErro("lote sem RPS para transmitir")
	}

	resultado, err := e.Emitir(ctx, lote.RPS[0])
	if err != nil {
		e.log.Error().Err(err).Msg("emissão do lote falhou")
		return EnvelopeLoteErro(err.Error())
	}

	protocolo := resultado.ChaveAcesso.String()
	if protocolo == "" {
		protocolo = resultado.IDDps
	}
	if protocolo == "" {
		protocolo = "PROCESSADO"
	}
	return EnvelopeLoteProcessado(protocolo, resultado.NumeroNFSe)
}

// SituacaoLote confere se a nota apontada pelo protocolo legado existe no
// portal e devolve o envelope de situação.
func (e *EmissorNFSe) SituacaoLote(ctx context.Context, protocolo string) []byte {
	_, err := e.Consultar(ctx, ConsultaIdentificador{Protocolo: protocolo})
	if err != nil {
		return EnvelopeSituacaoLote(false, err.Error())
	}
	return EnvelopeSituacaoLote(true, "")
}

// NfsePorRps consulta a nota e devolve o envelope legado com o número.
func (e *EmissorNFSe) NfsePorRps(ctx context.Context, id ConsultaIdentificador) []byte {
	consulta, err := e.Consultar(ctx, id)
	if err != nil {
		return EnvelopeNfsePorRpsErro(err.Error())
	}
	numero := numeroDaNFSe(consulta.XML)
	if numero == "" {
		return EnvelopeNfsePorRpsErro("nfse localizada sem número identificável")
	}
	return EnvelopeNfsePorRps(numero)
}

// CancelarLote executa o primeiro cancelamento do lote e devolve o envelope.
func (e *EmissorNFSe) CancelarLote(ctx context.Context, lote *Lote) []byte {
	if lote == nil || len(lote.Cancelamentos) == 0 {
		return EnvelopeCancelamentoErro("lote sem pedidos de cancelamento")
	}
	if err := e.Cancelar(ctx, lote.Cancelamentos[0]); err != nil {
		e.log.Error().Err(err).Msg("cancelamento do lote falhou")
		return EnvelopeCancelamentoErro(err.Error())
	}
	return EnvelopeCancelamentoConfirmado()
}

// ── Internos ──────────────────────────────────────────────────────────────────

func (e *EmissorNFSe) params() sefin.BuildParams {
	return sefin.BuildParams{
		Ambiente: e.cfg.Ambiente,
		VerAplic: e.cfg.VerAplic,
		Agora:    time.Now(),
	}
}

// baixarDANFSe tenta obter o PDF logo após o registro. O portal leva alguns
// segundos para disponibilizá-lo, então insiste algumas vezes e desiste em
// silêncio: a DANFSe é acessória ao registro.
func (e *EmissorNFSe) baixarDANFSe(ctx context.Context, chave nfse.ChaveAcesso) []byte {
	for tentativa := 1; tentativa <= e.cfg.DANFSeTentativas; tentativa++ {
		pdf, err := e.portal.BaixarDANFSe(ctx, chave)
		if err == nil {
			return pdf
		}
		e.log.Debug().Err(err).Int("tentativa", tentativa).Str("chaveAcesso", chave.String()).Msg("danfse ainda indisponível")
		if tentativa == e.cfg.DANFSeTentativas {
			break
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(e.cfg.DANFSeIntervalo):
		}
	}
	return nil
}

// numeroDaNFSe procura o número da nota no XML devolvido pelo portal. O
// leiaute nacional usa nNFSe; os documentos antigos usavam Numero.
func numeroDaNFSe(xmlNota []byte) string {
	if len(xmlNota) == 0 {
		return ""
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(xmlNota); err != nil {
		return ""
	}
	for _, caminho := range []string{"//nNFSe", "//Numero"} {
		if el := doc.FindElement(caminho); el != nil {
			if v := strings.TrimSpace(el.Text()); v != "" {
				return v
			}
		}
	}
	return ""
}
