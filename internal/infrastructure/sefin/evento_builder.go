package sefin

import (
	"bytes"
	"encoding/xml"
	"time"

	"github.com/tecnofiscal/nfse-nacional-api/internal/domain"
	"github.com/tecnofiscal/nfse-nacional-api/internal/domain/nfse"
)

const (
	// Evento 101101: cancelamento de NFS-e homologada.
	codigoEventoCancelamento = "101101"
	descricaoCancelamento    = "Cancelamento de NFS-e homologada"
	// cMotivo 1: erro na emissão.
	motivoErroEmissao = "1"
	// Sequencial do pedido; emitimos sempre um pedido por evento.
	numeroPedido = "1"
)

// BuildPedidoCancelamento serializa o pedido de registro do evento de
// cancelamento para a chave informada. A justificativa vira o xMotivo.
func (s *XMLBuilderService) BuildPedidoCancelamento(c nfse.Cancelamento, chave nfse.ChaveAcesso, p BuildParams) ([]byte, error) {
	documento := nfse.SanitizarDocumento(c.PrestadorDocumento)
	if documento == "" {
		return nil, &domain.SchemaError{Campo: "prestador.documento"}
	}
	if chave.Vazia() {
		return nil, &domain.SchemaError{Campo: "chNFSe"}
	}
	if c.Justificativa == "" {
		return nil, &domain.SchemaError{Campo: "justificativa"}
	}
	if p.Ambiente == "" {
		p.Ambiente = "2"
	}
	if p.VerAplic == "" {
		p.VerAplic = DefaultVerAplic
	}
	if p.Agora.IsZero() {
		p.Agora = time.Now()
	}

	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)

	openElWithAttr(enc, "pedRegEvento",
		xml.Attr{Name: xml.Name{Local: "xmlns"}, Value: NamespaceNFSe},
		xml.Attr{Name: xml.Name{Local: "versao"}, Value: versaoLeiaute},
	)
	openElWithAttr(enc, "infPedReg",
		xml.Attr{Name: xml.Name{Local: "Id"}, Value: idPedidoRegistro(chave)},
	)

	// ---- Identificação do pedido
	writeEl(enc, "tpAmb", p.Ambiente)
	writeEl(enc, "verAplic", p.VerAplic)
	writeEl(enc, "dhEvento", p.Agora.Format("2006-01-02T15:04:05-07:00"))
	writeEl(enc, elementoAutor(documento), documento)
	writeEl(enc, "chNFSe", chave.String())
	writeEl(enc, "nPedRegEvento", numeroPedido)

	// ---- Evento de cancelamento
	openEl(enc, "e"+codigoEventoCancelamento)
	writeEl(enc, "xDesc", descricaoCancelamento)
	writeEl(enc, "cMotivo", motivoErroEmissao)
	writeEl(enc, "xMotivo", c.Justificativa)
	closeEl(enc, "e"+codigoEventoCancelamento)

	closeEl(enc, "infPedReg")
	closeEl(enc, "pedRegEvento")

	if err := enc.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// idPedidoRegistro compõe o Id do infPedReg: "PRE" + chave de acesso (50) +
// código do evento (6) + sequencial do pedido (3).
func idPedidoRegistro(chave nfse.ChaveAcesso) string {
	return "PRE" + chave.String() + codigoEventoCancelamento + zfill(numeroPedido, 3)
}

func elementoAutor(documento string) string {
	if len(documento) == 11 {
		return "CPFAutor"
	}
	return "CNPJAutor"
}
