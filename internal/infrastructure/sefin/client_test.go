package sefin_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tecnofiscal/nfse-nacional-api/internal/domain"
	"github.com/tecnofiscal/nfse-nacional-api/internal/domain/nfse"
	"github.com/tecnofiscal/nfse-nacional-api/internal/infrastructure/sefin"
	"github.com/tecnofiscal/nfse-nacional-api/pkg/compression"
	"github.com/tecnofiscal/nfse-nacional-api/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// O cliente é exercitado contra um httptest.Server que simula os vereditos do
// portal: sucesso, lista de erros com HTTP 200, 4xx definitivo, 5xx com
// recuperação e credenciais recusadas.
// ──────────────────────────────────────────────────────────────────────────────

func novoCliente(t *testing.T, baseURL, danfseURL string) *sefin.Client {
	t.Helper()
	log := logger.New(logger.Config{Env: "production", Level: "error"})
	return sefin.NewClient(sefin.ClientConfig{
		BaseURL:    baseURL,
		DanfseURL:  danfseURL,
		Timeout:    5 * time.Second,
		Tentativas: 3,
	}, log)
}

func TestEnviarDPS_Sucesso(t *testing.T) {
	codec := compression.NewCodec()
	nfseXML := `<NFSe xmlns="http://www.sped.fazenda.gov.br/nfse"><infNFSe Id="NFS123"><nNFSe>77</nNFSe></infNFSe></NFSe>`
	nfseGzip, err := codec.Encode([]byte(nfseXML))
	require.NoError(t, err)

	var corpoRecebido []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		corpoRecebido, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{
			"idDps":          "DPS355030821122233300018100001000000000000042",
			"chaveAcesso":    testChaveAcesso,
			"nfseXmlGZipB64": nfseGzip,
		})
	}))
	defer srv.Close()

	cli := novoCliente(t, srv.URL, srv.URL)
	reg, err := cli.EnviarDPS(context.Background(), "H4sIAAAAfake")
	require.NoError(t, err)

	assert.Equal(t, "DPS355030821122233300018100001000000000000042", reg.IDDps)
	assert.Equal(t, nfse.ChaveAcesso(testChaveAcesso), reg.ChaveAcesso)
	assert.Equal(t, nfseXML, string(reg.XMLNFSe), "o XML da NFS-e deve voltar descompactado")
	assert.Contains(t, string(corpoRecebido), `"dpsXmlGZipB64":"H4sIAAAAfake"`,
		"o payload de envio usa exatamente a chave dpsXmlGZipB64")
}

func TestEnviarDPS_ChaveIDComCaixaAlternativa(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, `{"idDPS":"abc123","chaveAcesso":"`+testChaveAcesso+`"}`)
	}))
	defer srv.Close()

	cli := novoCliente(t, srv.URL, srv.URL)
	reg, err := cli.EnviarDPS(context.Background(), "payload")
	require.NoError(t, err)
	assert.Equal(t, "abc123", reg.IDDps, `o portal ora devolve "idDps", ora "idDPS"`)
}

func TestEnviarDPS_ErrosComHTTP200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, `{"erros":[{"Codigo":"E0100","Descricao":"DPS rejeitada","Complemento":"schema"}]}`)
	}))
	defer srv.Close()

	cli := novoCliente(t, srv.URL, srv.URL)
	_, err := cli.EnviarDPS(context.Background(), "payload")

	var pe *domain.PortalError
	require.ErrorAs(t, err, &pe, "lista de erros vira PortalError mesmo com HTTP 200")
	assert.Equal(t, "E0100: DPS rejeitada - schema", pe.Mensagem)
}

func TestEnviarDPS_Rejeicao400SemRetentativa(t *testing.T) {
	var chamadas atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chamadas.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"erros":[{"codigo":"E9","descricao":"payload ilegível"}]}`)
	}))
	defer srv.Close()

	cli := novoCliente(t, srv.URL, srv.URL)
	_, err := cli.EnviarDPS(context.Background(), "payload")

	var pe *domain.PortalError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, http.StatusBadRequest, pe.Status)
	assert.Equal(t, "E9: payload ilegível", pe.Mensagem)
	assert.EqualValues(t, 1, chamadas.Load(), "4xx é definitivo: nenhuma retentativa")
}

func TestEnviarDPS_CredenciaisRecusadas(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	cli := novoCliente(t, srv.URL, srv.URL)
	_, err := cli.EnviarDPS(context.Background(), "payload")
	assert.ErrorIs(t, err, domain.ErrAutenticacao)
}

func TestEnviarDPS_RecuperaApos5xx(t *testing.T) {
	var chamadas atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if chamadas.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, `{"idDps":"ok","chaveAcesso":"`+testChaveAcesso+`"}`)
	}))
	defer srv.Close()

	cli := novoCliente(t, srv.URL, srv.URL)
	reg, err := cli.EnviarDPS(context.Background(), "payload")

	require.NoError(t, err, "o cliente deve se recuperar de 5xx dentro do limite de tentativas")
	assert.Equal(t, "ok", reg.IDDps)
	assert.EqualValues(t, 3, chamadas.Load())
}

func TestEnviarDPS_5xxPersistenteViraTransientError(t *testing.T) {
	var chamadas atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chamadas.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	cli := novoCliente(t, srv.URL, srv.URL)
	_, err := cli.EnviarDPS(context.Background(), "payload")

	var te *domain.TransientError
	require.ErrorAs(t, err, &te, "5xx que não se recupera vira TransientError")
	assert.EqualValues(t, 3, chamadas.Load(), "o limite de tentativas deve ser respeitado")
}

func TestEnviarDPS_CertificadoRecusadoNaoRetenta(t *testing.T) {
	// O servidor TLS usa um certificado autoassinado que o cliente não
	// confia; o handshake falha na verificação da cadeia.
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("a requisição não deveria passar do handshake")
	}))
	defer srv.Close()

	cli := novoCliente(t, srv.URL, srv.URL)
	inicio := time.Now()
	_, err := cli.EnviarDPS(context.Background(), "payload")

	require.ErrorIs(t, err, domain.ErrCertificado,
		"recusa de certificado deve ser classificada como fatal")
	var te *domain.TransientError
	assert.False(t, errors.As(err, &te), "falha de certificado nunca vira TransientError")
	assert.Less(t, time.Since(inicio), atrasoInicialTeste,
		"falha de certificado volta antes do primeiro backoff: nenhuma retentativa")
}

// Abaixo do primeiro atraso de retentativa do cliente.
const atrasoInicialTeste = 400 * time.Millisecond

// ── Consulta ──────────────────────────────────────────────────────────────────

func TestConsultarNFSe_PayloadComXML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/"+testChaveAcesso, r.URL.Path)
		io.WriteString(w, `{"xml":"<Nfse><Numero>55</Numero></Nfse>"}`)
	}))
	defer srv.Close()

	cli := novoCliente(t, srv.URL, srv.URL)
	res, err := cli.ConsultarNFSe(context.Background(), nfse.ChaveAcesso(testChaveAcesso))
	require.NoError(t, err)
	assert.Equal(t, "<Nfse><Numero>55</Numero></Nfse>", string(res.XML))
}

func TestConsultarNFSe_PayloadGzip(t *testing.T) {
	codec := compression.NewCodec()
	gz, err := codec.Encode([]byte("<NFSe><infNFSe Id=\"NFS1\"/></NFSe>"))
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"nfseXmlGZipB64":"`+gz+`"}`)
	}))
	defer srv.Close()

	cli := novoCliente(t, srv.URL, srv.URL)
	res, err := cli.ConsultarNFSe(context.Background(), nfse.ChaveAcesso(testChaveAcesso))
	require.NoError(t, err)
	assert.Equal(t, "<NFSe><infNFSe Id=\"NFS1\"/></NFSe>", string(res.XML))
}

func TestConsultarNFSe_NaoEncontrada(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	cli := novoCliente(t, srv.URL, srv.URL)
	_, err := cli.ConsultarNFSe(context.Background(), nfse.ChaveAcesso(testChaveAcesso))
	assert.ErrorIs(t, err, domain.ErrNFSeNaoEncontrada,
		"qualquer status fora de 200 significa nota inexistente")
}

// ── Cancelamento ──────────────────────────────────────────────────────────────

func TestCancelarNFSe_Sucesso(t *testing.T) {
	var caminho string
	var corpoRecebido []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caminho = r.URL.Path
		corpoRecebido, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"chaveAcesso":"`+testChaveAcesso+`"}`)
	}))
	defer srv.Close()

	cli := novoCliente(t, srv.URL, srv.URL)
	corpo, err := cli.CancelarNFSe(context.Background(), nfse.ChaveAcesso(testChaveAcesso), "H4sIAAAAevento")
	require.NoError(t, err)

	assert.Equal(t, "/"+testChaveAcesso+"/eventos", caminho,
		"o evento é registrado no recurso /{chave}/eventos")
	assert.Contains(t, string(corpoRecebido), `"pedidoRegistroEventoXmlGZipB64":"H4sIAAAAevento"`)
	assert.NotEmpty(t, corpo)
}

func TestCancelarNFSe_ErrosDoPortal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, `{"erros":[{"Codigo":"E500","Descricao":"nota já cancelada"}]}`)
	}))
	defer srv.Close()

	cli := novoCliente(t, srv.URL, srv.URL)
	_, err := cli.CancelarNFSe(context.Background(), nfse.ChaveAcesso(testChaveAcesso), "evento")

	var pe *domain.PortalError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "E500: nota já cancelada", pe.Mensagem)
}

// ── DANFSe ────────────────────────────────────────────────────────────────────

func TestBaixarDANFSe_PDF(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/"+testChaveAcesso, r.URL.Path)
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.7 conteudo"))
	}))
	defer srv.Close()

	cli := novoCliente(t, srv.URL, srv.URL)
	pdf, err := cli.BaixarDANFSe(context.Background(), nfse.ChaveAcesso(testChaveAcesso))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7 conteudo", string(pdf))
}

func TestBaixarDANFSe_ContentTypeErrado(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, "<html>ainda processando</html>")
	}))
	defer srv.Close()

	cli := novoCliente(t, srv.URL, srv.URL)
	_, err := cli.BaixarDANFSe(context.Background(), nfse.ChaveAcesso(testChaveAcesso))

	var pe *domain.PortalError
	require.ErrorAs(t, err, &pe, "200 sem Content-Type de PDF não é sucesso")
}

func TestBaixarDANFSe_NaoDisponivel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	cli := novoCliente(t, srv.URL, srv.URL)
	_, err := cli.BaixarDANFSe(context.Background(), nfse.ChaveAcesso(testChaveAcesso))

	var pe *domain.PortalError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, http.StatusNotFound, pe.Status)
}
