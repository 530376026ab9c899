package emissao_test

// ──────────────────────────────────────────────────────────────────────────────
// Testes do orquestrador de emissão: fluxo RPS → DPS → assinatura → portal e a
// tradução dos vereditos para os envelopes legados. O portal e o assinador são
// roteirizados por funções; o montador de XML e o codec rodam de verdade.
// ──────────────────────────────────────────────────────────────────────────────

import (
	"context"
	"crypto/tls"
	"errors"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tecnofiscal/nfse-nacional-api/internal/application/emissao"
	"github.com/tecnofiscal/nfse-nacional-api/internal/domain"
	"github.com/tecnofiscal/nfse-nacional-api/internal/domain/nfse"
	"github.com/tecnofiscal/nfse-nacional-api/internal/infrastructure/sefin"
	"github.com/tecnofiscal/nfse-nacional-api/pkg/compression"
	"github.com/tecnofiscal/nfse-nacional-api/pkg/logger"
)

const chaveRegistrada = nfse.ChaveAcesso("35503082112223330001812500000000001234567000000042")

const xmlNotaRegistrada = `<NFSe xmlns="http://www.sped.fazenda.gov.br/nfse"><infNFSe Id="NFS` +
	string(chaveRegistrada) + `"><nNFSe>777</nNFSe></infNFSe></NFSe>`

// ── dublês ────────────────────────────────────────────────────────────────────

type portalScript struct {
	enviar    func(ctx context.Context, gz string) (*sefin.RegistroDPS, error)
	consultar func(ctx context.Context, chave nfse.ChaveAcesso) (*sefin.NFSeConsultada, error)
	cancelar  func(ctx context.Context, chave nfse.ChaveAcesso, gz string) ([]byte, error)
	danfse    func(ctx context.Context, chave nfse.ChaveAcesso) ([]byte, error)
}

func (p *portalScript) EnviarDPS(ctx context.Context, gz string) (*sefin.RegistroDPS, error) {
	if p.enviar == nil {
		return nil, errors.New("chamada inesperada a EnviarDPS")
	}
	return p.enviar(ctx, gz)
}

func (p *portalScript) ConsultarNFSe(ctx context.Context, chave nfse.ChaveAcesso) (*sefin.NFSeConsultada, error) {
	if p.consultar == nil {
		return nil, errors.New("chamada inesperada a ConsultarNFSe")
	}
	return p.consultar(ctx, chave)
}

func (p *portalScript) CancelarNFSe(ctx context.Context, chave nfse.ChaveAcesso, gz string) ([]byte, error) {
	if p.cancelar == nil {
		return nil, errors.New("chamada inesperada a CancelarNFSe")
	}
	return p.cancelar(ctx, chave, gz)
}

func (p *portalScript) BaixarDANFSe(ctx context.Context, chave nfse.ChaveAcesso) ([]byte, error) {
	if p.danfse == nil {
		return nil, errors.New("chamada inesperada a BaixarDANFSe")
	}
	return p.danfse(ctx, chave)
}

// assinadorFake devolve a entrada intacta, uma saída fixa ou um erro.
type assinadorFake struct {
	saida []byte
	err   error
}

func (a *assinadorFake) Sign(xmlBytes []byte, _ tls.Certificate) ([]byte, error) {
	if a.err != nil {
		return nil, a.err
	}
	if a.saida != nil {
		return a.saida, nil
	}
	return xmlBytes, nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

func novoEmissor(t *testing.T, portal sefin.PortalClient, assinador sefin.Assinador) *emissao.EmissorNFSe {
	t.Helper()
	log := logger.New(logger.Config{Env: "production", Level: "error"})
	return emissao.NewEmissorNFSe(
		sefin.NewXMLBuilderService(),
		assinador,
		portal,
		tls.Certificate{},
		emissao.Config{
			Ambiente:         sefin.AmbienteHomologacao,
			DANFSeTentativas: 2,
			DANFSeIntervalo:  time.Millisecond,
		},
		log,
	)
}

func rpsValido() nfse.RPS {
	return nfse.RPS{
		Numero:             "42",
		Serie:              "1",
		DataEmissao:        "2025-03-15T10:30:00",
		PrestadorDocumento: "11.222.333/0001-81",
		CodigoMunicipio:    "3550308",
		CodigoServico:      "010501",
		Discriminacao:      "CONSULTORIA EM TECNOLOGIA",
		TotalServicos:      "1500.00",
	}
}

// decodificar desfaz o gzip+base64 que o emissor aplica antes do envio.
func decodificar(t *testing.T, gz string) string {
	t.Helper()
	bruto, err := compression.NewCodec().Decode(gz)
	require.NoError(t, err)
	return string(bruto)
}

// texto localiza um elemento no envelope legado e devolve o conteúdo.
func texto(t *testing.T, envelope []byte, caminho string) string {
	t.Helper()
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(envelope))
	el := doc.FindElement(caminho)
	require.NotNilf(t, el, "elemento %s ausente no envelope: %s", caminho, envelope)
	return el.Text()
}

func elementoAusente(t *testing.T, envelope []byte, caminho string) {
	t.Helper()
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(envelope))
	assert.Nilf(t, doc.FindElement(caminho), "elemento %s não deveria aparecer: %s", caminho, envelope)
}

// ── emissão tipada ────────────────────────────────────────────────────────────

func TestEmitir_FluxoCompleto(t *testing.T) {
	pdf := []byte("%PDF-1.7 conteudo")
	danfseChamadas := 0
	portal := &portalScript{
		enviar: func(_ context.Context, gz string) (*sefin.RegistroDPS, error) {
			transmitido := decodificar(t, gz)
			assert.Contains(t, transmitido, "<DPS", "o portal deve receber a DPS montada")
			assert.Contains(t, transmitido, sefin.NamespaceNFSe)
			return &sefin.RegistroDPS{
				IDDps:       "DPS355030821122233300018100001000000000000042",
				ChaveAcesso: chaveRegistrada,
				XMLNFSe:     []byte(xmlNotaRegistrada),
			}, nil
		},
		danfse: func(_ context.Context, chave nfse.ChaveAcesso) ([]byte, error) {
			danfseChamadas++
			assert.Equal(t, chaveRegistrada, chave)
			if danfseChamadas == 1 {
				return nil, errors.New("ainda processando")
			}
			return pdf, nil
		},
	}

	emissor := novoEmissor(t, portal, &assinadorFake{})
	resultado, err := emissor.Emitir(context.Background(), rpsValido())

	require.NoError(t, err)
	assert.Equal(t, chaveRegistrada, resultado.ChaveAcesso)
	assert.Equal(t, "777", resultado.NumeroNFSe, "número extraído do nNFSe da nota")
	assert.Equal(t, pdf, resultado.DANFSePDF, "a segunda tentativa de DANFSe deve vingar")
	assert.Equal(t, 2, danfseChamadas)
}

func TestEmitir_AssinaturaFalha(t *testing.T) {
	emissor := novoEmissor(t, &portalScript{}, &assinadorFake{err: errors.New("token indisponível")})

	_, err := emissor.Emitir(context.Background(), rpsValido())

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAssinatura)
	assert.Contains(t, err.Error(), "token indisponível")
}

func TestEmitir_AssinadorDevolveDocumentoMutilado(t *testing.T) {
	emissor := novoEmissor(t, &portalScript{}, &assinadorFake{saida: []byte("<lixo/>")})

	_, err := emissor.Emitir(context.Background(), rpsValido())

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAssinatura)
}

func TestEmitir_RPSIncompletoNaoChegaAoPortal(t *testing.T) {
	rps := rpsValido()
	rps.PrestadorDocumento = ""

	emissor := novoEmissor(t, &portalScript{}, &assinadorFake{})
	_, err := emissor.Emitir(context.Background(), rps)

	var schemaErr *domain.SchemaError
	require.ErrorAs(t, err, &schemaErr)
}

func TestEmitir_DANFSeIndisponivelNaoDerrubaAEmissao(t *testing.T) {
	danfseChamadas := 0
	portal := &portalScript{
		enviar: func(_ context.Context, _ string) (*sefin.RegistroDPS, error) {
			return &sefin.RegistroDPS{ChaveAcesso: chaveRegistrada, XMLNFSe: []byte(xmlNotaRegistrada)}, nil
		},
		danfse: func(_ context.Context, _ nfse.ChaveAcesso) ([]byte, error) {
			danfseChamadas++
			return nil, errors.New("503 em manutenção")
		},
	}

	emissor := novoEmissor(t, portal, &assinadorFake{})
	resultado, err := emissor.Emitir(context.Background(), rpsValido())

	require.NoError(t, err)
	assert.Empty(t, resultado.DANFSePDF)
	assert.Equal(t, 2, danfseChamadas, "esgota as tentativas configuradas e desiste")
}

// ── envelopes legados ─────────────────────────────────────────────────────────

func TestEnviarLote_EnvelopeProcessado(t *testing.T) {
	portal := &portalScript{
		enviar: func(_ context.Context, _ string) (*sefin.RegistroDPS, error) {
			return &sefin.RegistroDPS{ChaveAcesso: chaveRegistrada, XMLNFSe: []byte(xmlNotaRegistrada)}, nil
		},
		danfse: func(_ context.Context, _ nfse.ChaveAcesso) ([]byte, error) {
			return []byte("%PDF"), nil
		},
	}
	lote := &emissao.Lote{}
	lote.AddRPS(rpsValido())

	envelope := novoEmissor(t, portal, &assinadorFake{}).EnviarLote(context.Background(), lote)

	assert.Equal(t, chaveRegistrada.String(), texto(t, envelope, "//EnviarLoteRpsResposta/Protocolo"),
		"a chave de acesso assume o papel do protocolo legado")
	assert.Equal(t, "777", texto(t, envelope, "//EnviarLoteRpsResposta/NumeroNFSe"))
}

func TestEnviarLote_SemRPS(t *testing.T) {
	envelope := novoEmissor(t, &portalScript{}, &assinadorFake{}).EnviarLote(context.Background(), &emissao.Lote{})

	assert.Equal(t, "ERRO", texto(t, envelope, "//Protocolo"))
	assert.Contains(t, texto(t, envelope, "//MensagemRetorno/Mensagem"), "lote sem RPS")
}

func TestEnviarLote_RejeicaoDoPortalViraEnvelopeDeErro(t *testing.T) {
	portal := &portalScript{
		enviar: func(_ context.Context, _ string) (*sefin.RegistroDPS, error) {
			return nil, &domain.PortalError{Status: 200, Mensagem: "E0100: DPS duplicada"}
		},
	}
	lote := &emissao.Lote{}
	lote.AddRPS(rpsValido())

	envelope := novoEmissor(t, portal, &assinadorFake{}).EnviarLote(context.Background(), lote)

	assert.Equal(t, "ERRO", texto(t, envelope, "//Protocolo"))
	assert.Equal(t, "ERRO", texto(t, envelope, "//MensagemRetorno/Codigo"))
	assert.Contains(t, texto(t, envelope, "//MensagemRetorno/Mensagem"), "DPS duplicada")
}

func TestEnviarLote_SemChaveUsaIDDpsComoProtocolo(t *testing.T) {
	portal := &portalScript{
		enviar: func(_ context.Context, _ string) (*sefin.RegistroDPS, error) {
			return &sefin.RegistroDPS{IDDps: "DPS0001"}, nil
		},
	}
	lote := &emissao.Lote{}
	lote.AddRPS(rpsValido())

	envelope := novoEmissor(t, portal, &assinadorFake{}).EnviarLote(context.Background(), lote)

	assert.Equal(t, "DPS0001", texto(t, envelope, "//Protocolo"))
	elementoAusente(t, envelope, "//NumeroNFSe")
}

func TestSituacaoLote_NotaEncontrada(t *testing.T) {
	portal := &portalScript{
		consultar: func(_ context.Context, chave nfse.ChaveAcesso) (*sefin.NFSeConsultada, error) {
			assert.Equal(t, chaveRegistrada, chave)
			return &sefin.NFSeConsultada{XML: []byte(xmlNotaRegistrada)}, nil
		},
	}

	envelope := novoEmissor(t, portal, &assinadorFake{}).SituacaoLote(context.Background(), chaveRegistrada.String())

	assert.Equal(t, "4", texto(t, envelope, "//Situacao"))
	elementoAusente(t, envelope, "//MensagemRetorno")
}

func TestSituacaoLote_NotaInexistente(t *testing.T) {
	portal := &portalScript{
		consultar: func(_ context.Context, _ nfse.ChaveAcesso) (*sefin.NFSeConsultada, error) {
			return nil, domain.ErrNFSeNaoEncontrada
		},
	}

	envelope := novoEmissor(t, portal, &assinadorFake{}).SituacaoLote(context.Background(), chaveRegistrada.String())

	assert.Equal(t, "3", texto(t, envelope, "//Situacao"))
	assert.Contains(t, texto(t, envelope, "//MensagemRetorno/Mensagem"), "não encontrada")
}

func TestNfsePorRps_DevolveNumero(t *testing.T) {
	portal := &portalScript{
		consultar: func(_ context.Context, _ nfse.ChaveAcesso) (*sefin.NFSeConsultada, error) {
			return &sefin.NFSeConsultada{XML: []byte(xmlNotaRegistrada)}, nil
		},
	}

	envelope := novoEmissor(t, portal, &assinadorFake{}).
		NfsePorRps(context.Background(), emissao.ConsultaIdentificador{ChaveAcesso: chaveRegistrada.String()})

	assert.Equal(t, "777", texto(t, envelope, "//CompNfse/Nfse/InfNfse/Numero"))
}

func TestNfsePorRps_SemIdentificador(t *testing.T) {
	envelope := novoEmissor(t, &portalScript{}, &assinadorFake{}).
		NfsePorRps(context.Background(), emissao.ConsultaIdentificador{})

	assert.Equal(t, "ERRO", texto(t, envelope, "//MensagemRetorno/Codigo"))
}

// ── cancelamento ──────────────────────────────────────────────────────────────

func cancelamentoValido() nfse.Cancelamento {
	return nfse.Cancelamento{
		PrestadorDocumento: "11.222.333/0001-81",
		Protocolo:          chaveRegistrada.String(),
		Justificativa:      "Erro na emissão",
	}
}

func TestCancelar_FluxoCompleto(t *testing.T) {
	portal := &portalScript{
		cancelar: func(_ context.Context, chave nfse.ChaveAcesso, gz string) ([]byte, error) {
			assert.Equal(t, chaveRegistrada, chave, "a chave resolvida do protocolo segue na URL")
			transmitido := decodificar(t, gz)
			assert.Contains(t, transmitido, "<pedRegEvento")
			assert.Contains(t, transmitido, "<chNFSe>"+chaveRegistrada.String()+"</chNFSe>")
			return []byte(`{"tipoEvento":"101101"}`), nil
		},
	}

	err := novoEmissor(t, portal, &assinadorFake{}).Cancelar(context.Background(), cancelamentoValido())

	require.NoError(t, err)
}

func TestCancelar_TresCamposExatosNoPedido(t *testing.T) {
	var pedido string
	portal := &portalScript{
		cancelar: func(_ context.Context, chave nfse.ChaveAcesso, gz string) ([]byte, error) {
			assert.Equal(t, nfse.ChaveAcesso("ABC123"), chave)
			pedido = decodificar(t, gz)
			return []byte(`{}`), nil
		},
	}

	err := novoEmissor(t, portal, &assinadorFake{}).Cancelar(context.Background(), nfse.Cancelamento{
		PrestadorDocumento: "12.345.678/0001-99",
		ChaveAcesso:        "ABC123",
		Justificativa:      "erro de digitação",
	})

	require.NoError(t, err)
	assert.Contains(t, pedido, "<CNPJAutor>12345678000199</CNPJAutor>",
		"o documento segue sanitizado no pedido")
	assert.Contains(t, pedido, "<chNFSe>ABC123</chNFSe>")
	assert.Contains(t, pedido, "<xMotivo>erro de digitação</xMotivo>")
}

func TestCancelar_CamposObrigatorios(t *testing.T) {
	casos := []struct {
		nome    string
		mutacao func(*nfse.Cancelamento)
	}{
		{"sem identificador da nota", func(c *nfse.Cancelamento) { c.Protocolo = "" }},
		{"sem documento do prestador", func(c *nfse.Cancelamento) { c.PrestadorDocumento = "  " }},
		{"sem justificativa", func(c *nfse.Cancelamento) { c.Justificativa = "" }},
	}
	for _, caso := range casos {
		t.Run(caso.nome, func(t *testing.T) {
			c := cancelamentoValido()
			caso.mutacao(&c)

			err := novoEmissor(t, &portalScript{}, &assinadorFake{}).Cancelar(context.Background(), c)

			assert.ErrorIs(t, err, domain.ErrCamposCancelamento)
		})
	}
}

func TestCancelarLote_Confirmado(t *testing.T) {
	portal := &portalScript{
		cancelar: func(_ context.Context, _ nfse.ChaveAcesso, _ string) ([]byte, error) {
			return []byte(`{}`), nil
		},
	}
	lote := &emissao.Lote{}
	lote.AddCancelamento(cancelamentoValido())

	envelope := novoEmissor(t, portal, &assinadorFake{}).CancelarLote(context.Background(), lote)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(envelope))
	assert.NotNil(t, doc.FindElement("//Cancelamento/Confirmacao"))
	elementoAusente(t, envelope, "//MensagemRetorno")
}

func TestCancelarLote_Vazio(t *testing.T) {
	envelope := novoEmissor(t, &portalScript{}, &assinadorFake{}).CancelarLote(context.Background(), &emissao.Lote{})

	assert.Equal(t, "ERRO", texto(t, envelope, "//MensagemRetorno/Codigo"))
	assert.Contains(t, texto(t, envelope, "//MensagemRetorno/Mensagem"), "sem pedidos de cancelamento")
}
