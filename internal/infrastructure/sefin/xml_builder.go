package sefin

import (
	"bytes"
	"encoding/xml"
	"strconv"
	"time"

	"github.com/tecnofiscal/nfse-nacional-api/internal/domain"
	"github.com/tecnofiscal/nfse-nacional-api/internal/domain/nfse"
)

// NamespaceNFSe namespace único do leiaute nacional. É declarado uma vez na
// raiz e herdado por todos os filhos.
const NamespaceNFSe = "http://www.sped.fazenda.gov.br/nfse"

const (
	versaoLeiaute = "1.00"

	// tpEmit 1: emissão pelo próprio prestador.
	emissaoPeloPrestador = "1"
	// tribISSQN 1: operação tributável.
	operacaoTributavel = "1"
	// regEspTrib 0: nenhum regime especial de tributação.
	semRegimeEspecial = "0"
	// indTotTrib 0: total aproximado dos tributos não informado.
	semTotalTributos = "0"

	issNaoRetido = "1"
	issRetido    = "2"
)

// DefaultVerAplic identifica este emissor no campo verAplic quando a
// configuração não informa outro valor.
const DefaultVerAplic = "1.00"

// BuildParams parâmetros de montagem que não derivam do RPS.
type BuildParams struct {
	Ambiente string    // tpAmb: "1" produção, "2" homologação
	VerAplic string    // identificação do aplicativo emissor
	Agora    time.Time // fallback do dhEmi quando a data legada é ilegível
}

// XMLBuilderService monta os XMLs do leiaute nacional por fluxo de tokens,
// sem indentação: os bytes seguem direto para a assinatura e qualquer
// whitespace extra mudaria o digest.
type XMLBuilderService struct{}

func NewXMLBuilderService() *XMLBuilderService {
	return &XMLBuilderService{}
}

// BuildDPS serializa a DPS mapeada. Campos estruturalmente obrigatórios
// ausentes abortam antes de qualquer byte ser emitido.
func (s *XMLBuilderService) BuildDPS(doc nfse.DPS, p BuildParams) ([]byte, error) {
	if doc.Prestador.Documento == "" {
		return nil, &domain.SchemaError{Campo: "prestador.documento"}
	}
	if doc.Servico.Valor.IsZero() {
		return nil, &domain.SchemaError{Campo: "servico.valor"}
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

	openElWithAttr(enc, "DPS",
		xml.Attr{Name: xml.Name{Local: "xmlns"}, Value: NamespaceNFSe},
		xml.Attr{Name: xml.Name{Local: "versao"}, Value: versaoLeiaute},
	)
	openElWithAttr(enc, "infDPS",
		xml.Attr{Name: xml.Name{Local: "Id"}, Value: IDDPS(doc)},
	)

	// ---- Identificação
	dhEmi := nfse.ParseDataEmissao(doc.DataEmissao, p.Agora)
	writeEl(enc, "tpAmb", p.Ambiente)
	writeEl(enc, "dhEmi", dhEmi.Format("2006-01-02T15:04:05-07:00"))
	writeEl(enc, "verAplic", p.VerAplic)
	writeEl(enc, "serie", doc.Serie)
	writeEl(enc, "nDPS", strconv.Itoa(doc.Numero))
	writeEl(enc, "dCompet", doc.Competencia)
	writeEl(enc, "tpEmit", emissaoPeloPrestador)
	writeEl(enc, "cLocEmi", doc.Prestador.CodigoMunicipio)

	// ---- Prestador
	openEl(enc, "prest")
	writeEl(enc, elementoDocumento(doc.Prestador.Tipo), doc.Prestador.Documento)
	if doc.Prestador.InscricaoMunicipal != "" {
		writeEl(enc, "IM", doc.Prestador.InscricaoMunicipal)
	}
	if doc.Prestador.Email != "" {
		writeEl(enc, "email", doc.Prestador.Email)
	}
	openEl(enc, "regTrib")
	writeEl(enc, "opSimpNac", strconv.Itoa(int(doc.Prestador.Regime)))
	writeEl(enc, "regEspTrib", semRegimeEspecial)
	closeEl(enc, "regTrib")
	closeEl(enc, "prest")

	// ---- Tomador (grupo inteiro omitido quando não identificado)
	if !doc.Tomador.NaoIdentificado {
		openEl(enc, "toma")
		writeEl(enc, elementoDocumento(doc.Tomador.Tipo), doc.Tomador.Documento)
		if doc.Tomador.InscricaoMunicipal != "" {
			writeEl(enc, "IM", doc.Tomador.InscricaoMunicipal)
		}
		writeEl(enc, "xNome", doc.Tomador.Nome)
		if end := doc.Tomador.Endereco; end != nil {
			openEl(enc, "end")
			openEl(enc, "endNac")
			writeEl(enc, "cMun", end.CodigoMunicipio)
			if end.CEP != "" {
				writeEl(enc, "CEP", end.CEP)
			}
			closeEl(enc, "endNac")
			if end.Logradouro != "" {
				writeEl(enc, "xLgr", end.Logradouro)
				writeEl(enc, "nro", end.Numero)
				if end.Complemento != "" {
					writeEl(enc, "xCpl", end.Complemento)
				}
				writeEl(enc, "xBairro", end.Bairro)
			}
			closeEl(enc, "end")
		}
		closeEl(enc, "toma")
	}

	// ---- Serviço
	openEl(enc, "serv")
	openEl(enc, "locPrest")
	writeEl(enc, "cLocPrestacao", doc.Prestador.CodigoMunicipio)
	closeEl(enc, "locPrest")
	openEl(enc, "cServ")
	writeEl(enc, "cTribNac", doc.Servico.CodigoTributacao)
	writeEl(enc, "xDescServ", doc.Servico.Descricao)
	closeEl(enc, "cServ")
	closeEl(enc, "serv")

	// ---- Valores
	openEl(enc, "valores")
	openEl(enc, "vServPrest")
	writeEl(enc, "vServ", nfse.FormatarValor(doc.Servico.Valor))
	closeEl(enc, "vServPrest")
	openEl(enc, "trib")
	openEl(enc, "tribMun")
	writeEl(enc, "tribISSQN", operacaoTributavel)
	if doc.Servico.TemAliquota {
		writeEl(enc, "pAliq", nfse.FormatarPercentual(doc.Servico.Aliquota))
	}
	if doc.Servico.ISSRetido {
		writeEl(enc, "tpRetISSQN", issRetido)
	} else {
		writeEl(enc, "tpRetISSQN", issNaoRetido)
	}
	closeEl(enc, "tribMun")
	openEl(enc, "totTrib")
	writeEl(enc, "indTotTrib", semTotalTributos)
	closeEl(enc, "totTrib")
	closeEl(enc, "trib")
	closeEl(enc, "valores")

	closeEl(enc, "infDPS")
	closeEl(enc, "DPS")

	if err := enc.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// IDDPS compõe o identificador de 45 posições do infDPS: "DPS" + município (7)
// + tipo de inscrição (1: CPF, 2: CNPJ) + inscrição federal (14) + série (5) +
// número (15), tudo completado com zeros à esquerda.
func IDDPS(doc nfse.DPS) string {
	tpInsc := "1"
	if doc.Prestador.Tipo == nfse.TipoCNPJ {
		tpInsc = "2"
	}
	return "DPS" +
		zfill(doc.Prestador.CodigoMunicipio, 7) +
		tpInsc +
		zfill(doc.Prestador.Documento, 14) +
		zfill(doc.Serie, 5) +
		zfill(strconv.Itoa(doc.Numero), 15)
}

func elementoDocumento(t nfse.TipoDocumento) string {
	if t == nfse.TipoCNPJ {
		return "CNPJ"
	}
	return "CPF"
}

// ---- helpers de serialização
// O encoder retém o primeiro erro internamente; o Flush final o devolve.

func openEl(enc *xml.Encoder, local string) {
	enc.EncodeToken(xml.StartElement{Name: xml.Name{Local: local}})
}

func openElWithAttr(enc *xml.Encoder, local string, attrs ...xml.Attr) {
	enc.EncodeToken(xml.StartElement{Name: xml.Name{Local: local}, Attr: attrs})
}

func closeEl(enc *xml.Encoder, local string) {
	enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: local}})
}

func writeEl(enc *xml.Encoder, local, valor string) {
	name := xml.Name{Local: local}
	enc.EncodeToken(xml.StartElement{Name: name})
	enc.EncodeToken(xml.CharData(valor))
	enc.EncodeToken(xml.EndElement{Name: name})
}

func zfill(s string, largura int) string {
	for len(s) < largura {
		s = "0" + s
	}
	return s
}
