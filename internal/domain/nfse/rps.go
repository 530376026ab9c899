// Package nfse contém o modelo de domínio da emissão: o registro legado
// plano (RPS), o documento nacional (DPS) e o mapeamento puro entre os dois.
package nfse

// RPS é o registro plano que o sistema legado envia (chaves "nf.*" e "rps.*"
// achatadas em campos). Todos os valores chegam como texto, sem validação
// prévia; o mapeamento decide o que vira DPS, o que ganha default e o que é
// descartado. O valor é imutável do ponto de vista do mapeamento.
type RPS struct {
	Numero      string // rps.numero
	Serie       string // rps.serie
	DataEmissao string // rps.data.emissao

	PrestadorDocumento          string // nf.prestador.documento
	PrestadorEmail              string // nf.prestador.email
	PrestadorInscricaoMunicipal string // nf.prestador.inscricao_municipal
	CodigoMunicipio             string // nf.codigo_municipio (IBGE do emitente)
	RegimeEspecialTributacao    string // nf.regime_especial_tributacao
	OptanteSimples              string // nf.optante_simples ("1" = optante)

	TomadorDocumento          string // nf.tomador.documento
	TomadorRazaoSocial        string // nf.tomador.razao_social
	TomadorInscricaoMunicipal string // nf.tomador.inscricao_municipal
	TomadorInscricaoEstadual  string // nf.tomador.inscricao_estadual (sem destino no padrão nacional)
	TomadorCodigoMunicipio    string // nf.tomador.codigo_municipio
	TomadorCEP                string // nf.tomador.cep
	TomadorLogradouro         string // nf.tomador.logradouro
	TomadorNumero             string // nf.tomador.numero_logradouro
	TomadorComplemento        string // nf.tomador.complemento
	TomadorBairro             string // nf.tomador.bairro
	TomadorUF                 string // nf.tomador.uf
	TomadorTelefone           string // nf.tomador.telefone (sem destino)
	TomadorEmail              string // nf.tomador.email (sem destino)

	CodigoServico string // nf.codigo_servico
	Discriminacao string // nf.discriminacao
	TotalServicos string // nf.total_servicos
	Aliquota      string // nf.aliquota
	ISSRetido     string // nf.iss_retido ("1" retido, "2" não retido)

	// Retenções federais e grupos que o leiaute da DPS simplificada não
	// recebe. Continuam aceitos na entrada para não quebrar o chamador.
	ValorPIS               string // nf.valor_pis (sem destino)
	ValorCOFINS            string // nf.valor_cofins (sem destino)
	ValorINSS              string // nf.valor_inss (sem destino)
	ValorIR                string // nf.valor_ir (sem destino)
	ValorCSLL              string // nf.valor_csll (sem destino)
	DescontoIncondicionado string // nf.desconto_incondicionado (sem destino)
	DescontoCondicionado   string // nf.desconto_condicionado (sem destino)
	BaseCalculo            string // nf.base_calculo (sem destino)

	IntermediarioDocumento   string // nf.intermediario.documento (sem destino)
	IntermediarioRazaoSocial string // nf.intermediario.razao_social (sem destino)

	ConstrucaoCodigoObra string // nf.construcao_civil.codigo_obra (sem destino)
	ConstrucaoART        string // nf.construcao_civil.art (sem destino)
}

// Cancelamento registro legado de pedido de cancelamento. A chave pode chegar
// por mais de um campo (ver resolução de identificadores); a justificativa é
// obrigatória.
type Cancelamento struct {
	PrestadorDocumento string // nf.prestador.documento
	ChaveAcesso        string // nf.chave_acesso ou chave_acesso
	Justificativa      string // nf.justificativa
	CancelaID          string // nf.cancela.id (campo legado reaproveitado)
	Protocolo          string // protocolo (guarda a chave após a migração)
}
