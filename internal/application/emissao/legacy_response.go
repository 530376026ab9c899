package emissao

import (
	"github.com/beevik/etree"

	"github.com/tecnofiscal/nfse-nacional-api/internal/domain/nfse"
)

// Envelopes no formato do barramento antigo. Os ERPs integrados parseiam estas
// estruturas há anos, então a forma é preservada à risca: mesmo elementos,
// mesma ordem, Codigo sempre "ERRO" nas falhas e mensagem limitada a 500
// caracteres.

const (
	codigoErroLegado = "ERRO"

	situacaoProcessado     = "4"
	situacaoProcessadoErro = "3"

	limiteMensagemLegada = 500
)

// EnvelopeLoteProcessado resposta de sucesso do envio de lote. O protocolo
// carrega a chave de acesso; NumeroNFSe só aparece quando o número já é
// conhecido.
func EnvelopeLoteProcessado(protocolo, numeroNFSe string) []byte {
	return envelope("EnviarLoteRpsResposta", func(root *etree.Element) {
		root.CreateElement("Protocolo").SetText(protocolo)
		if numeroNFSe != "" {
			root.CreateElement("NumeroNFSe").SetText(numeroNFSe)
		}
	})
}

// EnvelopeLoteErro resposta de falha do envio de lote.
func EnvelopeLoteErro(mensagem string) []byte {
	return envelope("EnviarLoteRpsResposta", func(root *etree.Element) {
		root.CreateElement("Protocolo").SetText(codigoErroLegado)
		lista := root.CreateElement("ListaMensagemRetorno")
		mensagemRetorno(lista, mensagem)
	})
}

// EnvelopeSituacaoLote situação do lote: 4 processado com sucesso, 3
// processado com erro (acompanhado da mensagem).
func EnvelopeSituacaoLote(processado bool, mensagem string) []byte {
	return envelope("ConsultarSituacaoLoteRpsResposta", func(root *etree.Element) {
		situacao := situacaoProcessado
		if !processado {
			situacao = situacaoProcessadoErro
		}
		root.CreateElement("Situacao").SetText(situacao)
		lista := root.CreateElement("ListaMensagemRetorno")
		if !processado {
			mensagemRetorno(lista, mensagem)
		}
	})
}

// EnvelopeNfsePorRps resposta da consulta por RPS com o número da nota.
func EnvelopeNfsePorRps(numero string) []byte {
	return envelope("ConsultarNfseRpsResposta", func(root *etree.Element) {
		root.CreateElement("CompNfse").
			CreateElement("Nfse").
			CreateElement("InfNfse").
			CreateElement("Numero").SetText(numero)
	})
}

// EnvelopeNfsePorRpsErro falha da consulta por RPS.
func EnvelopeNfsePorRpsErro(mensagem string) []byte {
	return envelope("ConsultarNfseRpsResposta", func(root *etree.Element) {
		lista := root.CreateElement("ListaMensagemRetorno")
		mensagemRetorno(lista, mensagem)
	})
}

// EnvelopeCancelamentoConfirmado confirmação de cancelamento.
func EnvelopeCancelamentoConfirmado() []byte {
	return envelope("CancelarNfseResposta", func(root *etree.Element) {
		root.CreateElement("Cancelamento").CreateElement("Confirmacao")
		root.CreateElement("ListaMensagemRetorno")
	})
}

// EnvelopeCancelamentoErro falha de cancelamento.
func EnvelopeCancelamentoErro(mensagem string) []byte {
	if mensagem == "" {
		mensagem = "Erro ao cancelar NFSe"
	}
	return envelope("CancelarNfseResposta", func(root *etree.Element) {
		lista := root.CreateElement("ListaMensagemRetorno")
		mensagemRetorno(lista, mensagem)
	})
}

func mensagemRetorno(lista *etree.Element, mensagem string) {
	item := lista.CreateElement("MensagemRetorno")
	item.CreateElement("Codigo").SetText(codigoErroLegado)
	item.CreateElement("Mensagem").SetText(nfse.Truncar(mensagem, limiteMensagemLegada))
}

func envelope(raiz string, montar func(root *etree.Element)) []byte {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	montar(doc.CreateElement(raiz))
	raw, _ := doc.WriteToBytes()
	return raw
}
