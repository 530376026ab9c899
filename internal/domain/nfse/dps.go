package nfse

import "github.com/shopspring/decimal"

// ChaveAcesso identificador nacional de uma NFS-e (50 dígitos). Nas respostas
// legadas aparece sob o nome Protocolo, mas internamente é sempre este tipo.
type ChaveAcesso string

func (c ChaveAcesso) String() string { return string(c) }

// Vazia indica ausência de chave ("" nunca é uma chave válida).
func (c ChaveAcesso) Vazia() bool { return c == "" }

// Prestador dados do emitente já normalizados para o documento nacional.
type Prestador struct {
	Documento          string // só dígitos
	Tipo               TipoDocumento
	CodigoMunicipio    string // IBGE com 7 dígitos
	Email              string // repassado como veio; pode ser vazio
	InscricaoMunicipal string
	Regime             RegimeTributario
}

// Endereco endereço nacional do tomador. Só existe quando o código IBGE
// legado tinha pelo menos 7 dígitos; sem ele o endereço inteiro é omitido.
type Endereco struct {
	CodigoMunicipio string // IBGE com 7 dígitos
	CEP             string // exatamente 8 dígitos, senão vazio
	Logradouro      string
	Numero          string
	Complemento     string
	Bairro          string
	UF              string
}

// Tomador dados do tomador. NaoIdentificado=true significa que o grupo toma
// inteiro é omitido do XML.
type Tomador struct {
	NaoIdentificado    bool
	Documento          string
	Tipo               TipoDocumento
	Nome               string
	InscricaoMunicipal string
	Endereco           *Endereco
}

// Servico dados do serviço prestado.
type Servico struct {
	Descricao        string          // xDescServ, já normalizada
	Valor            decimal.Decimal // vServ
	CodigoTributacao string          // cTribNac com 6 dígitos
	Aliquota         decimal.Decimal // fração (0.02 = 2%)
	TemAliquota      bool            // false omite pAliq
	ISSRetido        bool
}

// DPS documento nacional mapeado, pronto para virar XML. Valor puro: o mesmo
// RPS produz sempre a mesma DPS, byte a byte, em qualquer execução.
type DPS struct {
	Numero      int    // nDPS
	Serie       string // serie
	Competencia string // dCompet, AAAA-MM-DD
	DataEmissao string // rps.data.emissao cru, usado para o dhEmi
	Prestador   Prestador
	Tomador     Tomador
	Servico     Servico
}
