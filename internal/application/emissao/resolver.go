package emissao

import (
	"strings"

	"github.com/beevik/etree"

	"github.com/tecnofiscal/nfse-nacional-api/internal/domain"
	"github.com/tecnofiscal/nfse-nacional-api/internal/domain/nfse"
)

// ConsultaIdentificador reúne os identificadores que os sistemas legados podem
// apresentar ao localizar uma nota. String vazia significa ausente; nenhum
// campo é obrigatório isoladamente.
type ConsultaIdentificador struct {
	ChaveAcesso string // chave de acesso informada diretamente
	Protocolo   string // campo legado que passou a carregar a chave
	CancelaID   string // nf.cancela.id, reaproveitado nos cancelamentos antigos
	XMLNota     []byte // XML de uma NFS-e do qual a chave pode ser extraída
}

// estrategia tenta produzir uma chave a partir do identificador. Funções
// puras, avaliadas na ordem da lista; a primeira que devolver algo não vazio
// vence.
type estrategia struct {
	nome string
	fn   func(ConsultaIdentificador) nfse.ChaveAcesso
}

var estrategias = []estrategia{
	{"chave-acesso", func(id ConsultaIdentificador) nfse.ChaveAcesso {
		return nfse.ChaveAcesso(strings.TrimSpace(id.ChaveAcesso))
	}},
	{"protocolo", func(id ConsultaIdentificador) nfse.ChaveAcesso {
		return nfse.ChaveAcesso(strings.TrimSpace(id.Protocolo))
	}},
	{"cancela-id", func(id ConsultaIdentificador) nfse.ChaveAcesso {
		return nfse.ChaveAcesso(strings.TrimSpace(id.CancelaID))
	}},
	{"xml-da-nota", chaveDoXML},
}

// ResolverChave aplica as estratégias em ordem e devolve a primeira chave
// encontrada junto com o nome da estratégia vencedora. Sem nenhum
// identificador aproveitável devolve domain.ErrIdentificadorIrresoluvel.
func ResolverChave(id ConsultaIdentificador) (nfse.ChaveAcesso, string, error) {
	for _, e := range estrategias {
		if chave := e.fn(id); !chave.Vazia() {
			return chave, e.nome, nil
		}
	}
	return "", "", domain.ErrIdentificadorIrresoluvel
}

// chaveDoXML procura a chave dentro do XML de uma NFS-e: primeiro no atributo
// Id do infNFSe (que vem prefixado com "NFS"), depois nos elementos chNFSe e
// chaveAcesso. XML ilegível conta como ausência, não como erro.
func chaveDoXML(id ConsultaIdentificador) nfse.ChaveAcesso {
	if len(id.XMLNota) == 0 {
		return ""
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(id.XMLNota); err != nil {
		return ""
	}
	if el := doc.FindElement("//infNFSe"); el != nil {
		if v := strings.TrimSpace(el.SelectAttrValue("Id", "")); v != "" {
			return nfse.ChaveAcesso(strings.TrimPrefix(v, "NFS"))
		}
	}
	for _, caminho := range []string{"//chNFSe", "//chaveAcesso"} {
		if el := doc.FindElement(caminho); el != nil {
			if v := strings.TrimSpace(el.Text()); v != "" {
				return nfse.ChaveAcesso(v)
			}
		}
	}
	return ""
}
