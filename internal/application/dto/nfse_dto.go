package dto

import "github.com/tecnofiscal/nfse-nacional-api/internal/domain/nfse"

// TokenRequest credenciais estáticas da API para emissão de token.
type TokenRequest struct {
	Usuario   string `json:"usuario" validate:"required"`
	Senha     string `json:"senha" validate:"required"`
	Documento string `json:"documento" validate:"omitempty"` // CNPJ/CPF do prestador vinculado ao token
}

// TokenResponse token JWT emitido.
type TokenResponse struct {
	Token           string `json:"token"`
	ExpiraEmMinutos int    `json:"expira_em_minutos"`
}

// RPSRequest entrada de um RPS no lote. Os grupos espelham as chaves achatadas
// do barramento antigo ("rps.*" e "nf.*"); tudo chega como texto e o
// mapeamento decide defaults e descartes.
type RPSRequest struct {
	Numero      string `json:"numero"`
	Serie       string `json:"serie"`
	DataEmissao string `json:"data_emissao"`

	Prestador struct {
		Documento          string `json:"documento" validate:"required"`
		Email              string `json:"email"`
		InscricaoMunicipal string `json:"inscricao_municipal"`
	} `json:"prestador"`

	CodigoMunicipio          string `json:"codigo_municipio" validate:"required"`
	RegimeEspecialTributacao string `json:"regime_especial_tributacao"`
	OptanteSimples           string `json:"optante_simples"`

	Tomador struct {
		Documento          string `json:"documento"`
		RazaoSocial        string `json:"razao_social"`
		InscricaoMunicipal string `json:"inscricao_municipal"`
		InscricaoEstadual  string `json:"inscricao_estadual"`
		CodigoMunicipio    string `json:"codigo_municipio"`
		CEP                string `json:"cep"`
		Logradouro         string `json:"logradouro"`
		NumeroLogradouro   string `json:"numero_logradouro"`
		Complemento        string `json:"complemento"`
		Bairro             string `json:"bairro"`
		UF                 string `json:"uf"`
		Telefone           string `json:"telefone"`
		Email              string `json:"email"`
	} `json:"tomador"`

	Servico struct {
		Codigo        string `json:"codigo" validate:"required"`
		Discriminacao string `json:"discriminacao"`
		Total         string `json:"total" validate:"required"`
		Aliquota      string `json:"aliquota"`
		ISSRetido     string `json:"iss_retido"`
	} `json:"servico"`

	Retencoes struct {
		PIS                    string `json:"pis"`
		COFINS                 string `json:"cofins"`
		INSS                   string `json:"inss"`
		IR                     string `json:"ir"`
		CSLL                   string `json:"csll"`
		DescontoIncondicionado string `json:"desconto_incondicionado"`
		DescontoCondicionado   string `json:"desconto_condicionado"`
		BaseCalculo            string `json:"base_calculo"`
	} `json:"retencoes"`

	// Grupos aceitos por compatibilidade com o chamador legado; o leiaute
	// nacional não os recebe e o mapeamento os descarta.
	Intermediario struct {
		Documento   string `json:"documento"`
		RazaoSocial string `json:"razao_social"`
	} `json:"intermediario"`

	ConstrucaoCivil struct {
		CodigoObra string `json:"codigo_obra"`
		ART        string `json:"art"`
	} `json:"construcao_civil"`
}

// ParaRPS achata a entrada HTTP no registro plano do domínio.
func (r RPSRequest) ParaRPS() nfse.RPS {
	return nfse.RPS{
		Numero:      r.Numero,
		Serie:       r.Serie,
		DataEmissao: r.DataEmissao,

		PrestadorDocumento:          r.Prestador.Documento,
		PrestadorEmail:              r.Prestador.Email,
		PrestadorInscricaoMunicipal: r.Prestador.InscricaoMunicipal,
		CodigoMunicipio:             r.CodigoMunicipio,
		RegimeEspecialTributacao:    r.RegimeEspecialTributacao,
		OptanteSimples:              r.OptanteSimples,

		TomadorDocumento:          r.Tomador.Documento,
		TomadorRazaoSocial:        r.Tomador.RazaoSocial,
		TomadorInscricaoMunicipal: r.Tomador.InscricaoMunicipal,
		TomadorInscricaoEstadual:  r.Tomador.InscricaoEstadual,
		TomadorCodigoMunicipio:    r.Tomador.CodigoMunicipio,
		TomadorCEP:                r.Tomador.CEP,
		TomadorLogradouro:         r.Tomador.Logradouro,
		TomadorNumero:             r.Tomador.NumeroLogradouro,
		TomadorComplemento:        r.Tomador.Complemento,
		TomadorBairro:             r.Tomador.Bairro,
		TomadorUF:                 r.Tomador.UF,
		TomadorTelefone:           r.Tomador.Telefone,
		TomadorEmail:              r.Tomador.Email,

		CodigoServico: r.Servico.Codigo,
		Discriminacao: r.Servico.Discriminacao,
		TotalServicos: r.Servico.Total,
		Aliquota:      r.Servico.Aliquota,
		ISSRetido:     r.Servico.ISSRetido,

		ValorPIS:               r.Retencoes.PIS,
		ValorCOFINS:            r.Retencoes.COFINS,
		ValorINSS:              r.Retencoes.INSS,
		ValorIR:                r.Retencoes.IR,
		ValorCSLL:              r.Retencoes.CSLL,
		DescontoIncondicionado: r.Retencoes.DescontoIncondicionado,
		DescontoCondicionado:   r.Retencoes.DescontoCondicionado,
		BaseCalculo:            r.Retencoes.BaseCalculo,

		IntermediarioDocumento:   r.Intermediario.Documento,
		IntermediarioRazaoSocial: r.Intermediario.RazaoSocial,
		ConstrucaoCodigoObra:     r.ConstrucaoCivil.CodigoObra,
		ConstrucaoART:            r.ConstrucaoCivil.ART,
	}
}

// CancelamentoRequest entrada de um pedido de cancelamento.
type CancelamentoRequest struct {
	PrestadorDocumento string `json:"prestador_documento" validate:"required"`
	ChaveAcesso        string `json:"chave_acesso"`
	Protocolo          string `json:"protocolo"`
	CancelaID          string `json:"cancela_id"`
	Justificativa      string `json:"justificativa" validate:"required"`
}

// ParaCancelamento converte a entrada HTTP no registro do domínio.
func (c CancelamentoRequest) ParaCancelamento() nfse.Cancelamento {
	return nfse.Cancelamento{
		PrestadorDocumento: c.PrestadorDocumento,
		ChaveAcesso:        c.ChaveAcesso,
		Protocolo:          c.Protocolo,
		CancelaID:          c.CancelaID,
		Justificativa:      c.Justificativa,
	}
}

// LoteRequest lote legado: RPS para transmitir ou pedidos de cancelamento.
type LoteRequest struct {
	RPS           []RPSRequest          `json:"rps"`
	Cancelamentos []CancelamentoRequest `json:"cancelamentos"`
}

// EnvelopeResponse devolve o envelope XML legado dentro de JSON, byte a byte
// como a camada de emissão o produziu.
type EnvelopeResponse struct {
	Envelope string `json:"envelope"`
}

// ConsultaNFSeResponse resposta tipada da consulta por chave de acesso.
type ConsultaNFSeResponse struct {
	ChaveAcesso string `json:"chave_acesso"`
	XML         string `json:"xml,omitempty"`
}

// CancelamentoResponse confirmação tipada de cancelamento.
type CancelamentoResponse struct {
	ChaveAcesso string `json:"chave_acesso"`
	Status      string `json:"status"`
}
