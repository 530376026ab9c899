// Package sefin implementa a integração com o ambiente de dados nacional da
// NFS-e: montagem e assinatura dos XMLs do leiaute, compressão e transporte
// HTTPS com certificado de cliente.
package sefin

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tecnofiscal/nfse-nacional-api/internal/domain/nfse"
)

// ── Constantes de ambiente ─────────────────────────────────────────────────────

const (
	// URLProducao endpoint de registro, consulta e eventos da Sefin Nacional.
	URLProducao = "https://sefin.nfse.gov.br/SefinNacional/nfse"
	// URLDanfseProducao endpoint de download da DANFSe em PDF.
	URLDanfseProducao = "https://adn.nfse.gov.br/danfse"

	AmbienteProducao    = "1"
	AmbienteHomologacao = "2"
)

// ── Portas (interfaces) ────────────────────────────────────────────────────────

// RegistroDPS resultado do registro de uma DPS aceita pelo portal.
type RegistroDPS struct {
	IDDps       string
	ChaveAcesso nfse.ChaveAcesso
	XMLNFSe     []byte // NFS-e processada, quando o portal já a devolve no registro
}

// NFSeConsultada resultado da consulta de uma NFS-e por chave de acesso.
type NFSeConsultada struct {
	XML   []byte // XML da NFS-e quando o payload o traz (descompactado)
	Corpo []byte // resposta bruta, para repasse quando não há XML
}

// PortalClient porta de saída para o portal nacional. A implementação concreta
// fala HTTPS com certificado de cliente; os testes injetam um mock.
type PortalClient interface {
	// EnviarDPS registra a DPS assinada e comprimida (gzip+base64).
	// Rejeições do portal viram *domain.PortalError mesmo com HTTP 200.
	EnviarDPS(ctx context.Context, dpsGzipB64 string) (*RegistroDPS, error)
	// ConsultarNFSe busca a NFS-e pela chave de acesso.
	// Qualquer status fora de 200 vira domain.ErrNFSeNaoEncontrada.
	ConsultarNFSe(ctx context.Context, chave nfse.ChaveAcesso) (*NFSeConsultada, error)
	// CancelarNFSe registra o evento de cancelamento assinado e comprimido.
	CancelarNFSe(ctx context.Context, chave nfse.ChaveAcesso, eventoGzipB64 string) ([]byte, error)
	// BaixarDANFSe baixa o PDF da DANFSe; só considera sucesso quando o
	// Content-Type confirma application/pdf.
	BaixarDANFSe(ctx context.Context, chave nfse.ChaveAcesso) ([]byte, error)
}

// Assinador porta para a assinatura XMLDSig dos documentos do leiaute.
type Assinador interface {
	// Sign devolve o documento com o nó Signature injetado ao lado do
	// elemento assinado (infDPS ou infPedReg).
	Sign(xmlBytes []byte, cert tls.Certificate) ([]byte, error)
}

// ── Payloads JSON do portal ────────────────────────────────────────────────────

type envioRequest struct {
	DpsXmlGZipB64 string `json:"dpsXmlGZipB64"`
}

type pedidoEventoRequest struct {
	PedidoRegistroEventoXmlGZipB64 string `json:"pedidoRegistroEventoXmlGZipB64"`
}

// respostaPortal cobre as variações de corpo que o portal devolve no registro,
// na consulta e no evento. O unmarshal da stdlib casa as chaves sem diferenciar
// maiúsculas, então "idDPS"/"idDps" e "nfseXmlGzipB64"/"nfseXmlGZipB64" caem
// no mesmo campo.
type respostaPortal struct {
	IDDps          string            `json:"idDps"`
	ChaveAcesso    string            `json:"chaveAcesso"`
	Erros          []json.RawMessage `json:"erros"`
	NfseXmlGZipB64 string            `json:"nfseXmlGZipB64"`
	XML            string            `json:"xml"`
}

// erroPortal entrada da lista de erros. Codigo fica sem tipo porque o portal
// ora manda string, ora número.
type erroPortal struct {
	Codigo      any    `json:"codigo"`
	Descricao   string `json:"descricao"`
	Complemento string `json:"complemento"`
}

// FormatarErros achata a lista de erros do portal em uma única mensagem
// "Codigo: Descricao - Complemento | ...". Entradas que não são objeto entram
// como texto puro.
func FormatarErros(erros []json.RawMessage) string {
	msgs := make([]string, 0, len(erros))
	for _, raw := range erros {
		var e erroPortal
		if err := json.Unmarshal(raw, &e); err == nil {
			codigo := ""
			if e.Codigo != nil {
				codigo = strings.TrimSpace(fmt.Sprintf("%v", e.Codigo))
			}
			msg := codigo + ": " + e.Descricao
			if e.Complemento != "" {
				msg += " - " + e.Complemento
			}
			msgs = append(msgs, msg)
			continue
		}
		var texto string
		if err := json.Unmarshal(raw, &texto); err == nil {
			msgs = append(msgs, texto)
			continue
		}
		msgs = append(msgs, strings.TrimSpace(string(raw)))
	}
	return strings.Join(msgs, " | ")
}
