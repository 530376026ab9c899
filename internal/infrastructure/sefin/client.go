package sefin

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tecnofiscal/nfse-nacional-api/internal/domain"
	"github.com/tecnofiscal/nfse-nacional-api/internal/domain/nfse"
	"github.com/tecnofiscal/nfse-nacional-api/pkg/compression"
	"github.com/tecnofiscal/nfse-nacional-api/pkg/logger"
)

const (
	atrasoInicial = 500 * time.Millisecond
	atrasoMaximo  = 8 * time.Second

	// Limite de leitura da resposta. A DANFSe em PDF é o maior payload.
	limiteResposta = 4 << 20
)

// ClientConfig parâmetros de rede do cliente do portal.
type ClientConfig struct {
	BaseURL     string
	DanfseURL   string
	Timeout     time.Duration
	Tentativas  int
	Certificado tls.Certificate
}

// Client implementa PortalClient sobre HTTPS com certificado de cliente.
// O portal nacional exige renegociação TLS, então o transporte a libera.
type Client struct {
	http       *http.Client
	codec      *compression.Codec
	baseURL    string
	danfseURL  string
	tentativas int
	log        *logger.Logger
}

func NewClient(cfg ClientConfig, log *logger.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = URLProducao
	}
	if cfg.DanfseURL == "" {
		cfg.DanfseURL = URLDanfseProducao
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Tentativas <= 0 {
		cfg.Tentativas = 3
	}

	tlsConfig := &tls.Config{
		Renegotiation: tls.RenegotiateFreelyAsClient,
		MinVersion:    tls.VersionTLS12,
	}
	if len(cfg.Certificado.Certificate) > 0 {
		tlsConfig.Certificates = []tls.Certificate{cfg.Certificado}
	}

	return &Client{
		http: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				TLSClientConfig: tlsConfig,
				Proxy:           http.ProxyFromEnvironment,
			},
		},
		codec:      compression.NewCodec(),
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		danfseURL:  strings.TrimRight(cfg.DanfseURL, "/"),
		tentativas: cfg.Tentativas,
		log:        log.Component("sefin"),
	}
}

// EnviarDPS registra a DPS no portal. Erros na lista "erros" viram
// *domain.PortalError mesmo quando o HTTP é 200/201.
func (c *Client) EnviarDPS(ctx context.Context, dpsGzipB64 string) (*RegistroDPS, error) {
	payload, err := json.Marshal(envioRequest{DpsXmlGZipB64: dpsGzipB64})
	if err != nil {
		return nil, fmt.Errorf("sefin: serializar envio: %w", err)
	}

	r, err := c.executar(ctx, http.MethodPost, c.baseURL, payload)
	if err != nil {
		return nil, err
	}
	if err := validarStatus(r); err != nil {
		return nil, err
	}

	var resp respostaPortal
	if err := json.Unmarshal(r.corpo, &resp); err != nil {
		return nil, &domain.PortalError{Status: r.status, Mensagem: "resposta fora do formato esperado", Corpo: resumo(r.corpo)}
	}
	if len(resp.Erros) > 0 {
		return nil, &domain.PortalError{Status: r.status, Mensagem: FormatarErros(resp.Erros), Corpo: resumo(r.corpo)}
	}

	reg := &RegistroDPS{
		IDDps:       resp.IDDps,
		ChaveAcesso: nfse.ChaveAcesso(resp.ChaveAcesso),
	}
	if resp.NfseXmlGZipB64 != "" {
		xmlNFSe, err := c.codec.Decode(resp.NfseXmlGZipB64)
		if err != nil {
			// A chave já foi obtida; o XML da NFS-e é acessório.
			c.log.Warn().Err(err).Str("idDps", resp.IDDps).Msg("não foi possível descompactar o XML da NFS-e")
		} else {
			reg.XMLNFSe = xmlNFSe
		}
	}
	c.log.Info().Str("idDps", reg.IDDps).Str("chaveAcesso", reg.ChaveAcesso.String()).Msg("dps registrada no portal")
	return reg, nil
}

// ConsultarNFSe busca a NFS-e pela chave de acesso. Qualquer status fora de
// 200 é tratado como inexistente, como o sistema antigo fazia.
func (c *Client) ConsultarNFSe(ctx context.Context, chave nfse.ChaveAcesso) (*NFSeConsultada, error) {
	r, err := c.executar(ctx, http.MethodGet, c.baseURL+"/"+chave.String(), nil)
	if err != nil {
		return nil, err
	}
	if r.status != http.StatusOK {
		c.log.Debug().Int("status", r.status).Str("chaveAcesso", chave.String()).Msg("nfse não localizada no portal")
		return nil, domain.ErrNFSeNaoEncontrada
	}

	resultado := &NFSeConsultada{Corpo: r.corpo}
	var resp respostaPortal
	if err := json.Unmarshal(r.corpo, &resp); err == nil {
		switch {
		case resp.NfseXmlGZipB64 != "":
			if xmlNFSe, err := c.codec.Decode(resp.NfseXmlGZipB64); err == nil {
				resultado.XML = xmlNFSe
			}
		case resp.XML != "":
			resultado.XML = []byte(resp.XML)
		}
	}
	return resultado, nil
}

// CancelarNFSe registra o evento de cancelamento e devolve o corpo da resposta.
func (c *Client) CancelarNFSe(ctx context.Context, chave nfse.ChaveAcesso, eventoGzipB64 string) ([]byte, error) {
	payload, err := json.Marshal(pedidoEventoRequest{PedidoRegistroEventoXmlGZipB64: eventoGzipB64})
	if err != nil {
		return nil, fmt.Errorf("sefin: serializar pedido de evento: %w", err)
	}

	r, err := c.executar(ctx, http.MethodPost, c.baseURL+"/"+chave.String()+"/eventos", payload)
	if err != nil {
		return nil, err
	}
	if err := validarStatus(r); err != nil {
		return nil, err
	}

	var resp respostaPortal
	if err := json.Unmarshal(r.corpo, &resp); err == nil && len(resp.Erros) > 0 {
		return nil, &domain.PortalError{Status: r.status, Mensagem: FormatarErros(resp.Erros), Corpo: resumo(r.corpo)}
	}
	c.log.Info().Str("chaveAcesso", chave.String()).Msg("evento de cancelamento registrado")
	return r.corpo, nil
}

// BaixarDANFSe baixa o PDF da DANFSe. Sucesso exige 200 com Content-Type de
// PDF; qualquer outra coisa é tratada como indisponível.
func (c *Client) BaixarDANFSe(ctx context.Context, chave nfse.ChaveAcesso) ([]byte, error) {
	r, err := c.executar(ctx, http.MethodGet, c.danfseURL+"/"+chave.String(), nil)
	if err != nil {
		return nil, err
	}
	if r.status != http.StatusOK || !strings.Contains(r.header.Get("Content-Type"), "application/pdf") {
		return nil, &domain.PortalError{Status: r.status, Mensagem: "danfse não disponível em PDF", Corpo: resumo(r.corpo)}
	}
	return r.corpo, nil
}

// ── Execução com retentativas ──────────────────────────────────────────────────

type resposta struct {
	status int
	header http.Header
	corpo  []byte
}

// executar faz a chamada com backoff exponencial para falhas de rede e 5xx.
// Rejeições 4xx voltam imediatamente: repetir produziria o mesmo veredito.
func (c *Client) executar(ctx context.Context, method, url string, body []byte) (*resposta, error) {
	espera := atrasoInicial
	var ultima error

	for tentativa := 1; tentativa <= c.tentativas; tentativa++ {
		if tentativa > 1 {
			c.log.Warn().Str("url", url).Int("tentativa", tentativa).Err(ultima).Msg("retentando chamada ao portal")
			select {
			case <-ctx.Done():
				return nil, &domain.TransientError{Causa: ctx.Err()}
			case <-time.After(espera):
			}
			espera *= 2
			if espera > atrasoMaximo {
				espera = atrasoMaximo
			}
		}

		r, err := c.tentativa(ctx, method, url, body)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, &domain.TransientError{Causa: err}
			}
			if falhaDeCertificado(err) {
				return nil, fmt.Errorf("%w: %v", domain.ErrCertificado, err)
			}
			ultima = err
		case r.status >= http.StatusInternalServerError:
			ultima = fmt.Errorf("sefin: portal respondeu HTTP %d: %s", r.status, resumo(r.corpo))
		default:
			return r, nil
		}
	}
	return nil, &domain.TransientError{Causa: ultima}
}

func (c *Client) tentativa(ctx context.Context, method, url string, body []byte) (*resposta, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("sefin: criar request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sefin: chamada ao portal falhou: %w", err)
	}
	defer resp.Body.Close()

	corpo, err := io.ReadAll(io.LimitReader(resp.Body, limiteResposta))
	if err != nil {
		return nil, fmt.Errorf("sefin: ler resposta: %w", err)
	}
	return &resposta{status: resp.StatusCode, header: resp.Header, corpo: corpo}, nil
}

// falhaDeCertificado identifica falha de TLS/x509 na conexão. Refazer o
// handshake com o mesmo certificado produz a mesma recusa, então o erro é
// fatal, nunca retentável.
func falhaDeCertificado(err error) bool {
	var verificacao *tls.CertificateVerificationError
	if errors.As(err, &verificacao) {
		return true
	}
	var desconhecida x509.UnknownAuthorityError
	if errors.As(err, &desconhecida) {
		return true
	}
	var invalido x509.CertificateInvalidError
	if errors.As(err, &invalido) {
		return true
	}
	var hostname x509.HostnameError
	return errors.As(err, &hostname)
}

// validarStatus classifica o status de registro/evento. 5xx nunca chega aqui;
// o executar o converte em TransientError.
func validarStatus(r *resposta) error {
	switch r.status {
	case http.StatusOK, http.StatusCreated:
		return nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w (HTTP %d)", domain.ErrAutenticacao, r.status)
	default:
		return &domain.PortalError{Status: r.status, Mensagem: mensagemDoCorpo(r.corpo), Corpo: resumo(r.corpo)}
	}
}

// mensagemDoCorpo aproveita a lista de erros estruturada quando ela existe.
func mensagemDoCorpo(corpo []byte) string {
	var resp respostaPortal
	if err := json.Unmarshal(corpo, &resp); err == nil && len(resp.Erros) > 0 {
		return FormatarErros(resp.Erros)
	}
	return resumo(corpo)
}

func resumo(corpo []byte) string {
	s := strings.TrimSpace(string(corpo))
	if r := []rune(s); len(r) > 300 {
		return string(r[:300]) + "..."
	}
	return s
}

var _ PortalClient = (*Client)(nil)
