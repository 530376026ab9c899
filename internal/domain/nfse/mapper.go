package nfse

import (
	"strconv"
	"strings"
	"time"
)

// camposSemDestino tabela dos campos legados que o leiaute nacional não
// recebe. Cada entrada é uma decisão: o campo é aceito na entrada e ignorado
// no mapeamento, sem aviso ao chamador e sem rastro no documento.
var camposSemDestino = []struct {
	Nome  string
	Valor func(RPS) string
}{
	{"nf.valor_pis", func(r RPS) string { return r.ValorPIS }},
	{"nf.valor_cofins", func(r RPS) string { return r.ValorCOFINS }},
	{"nf.valor_inss", func(r RPS) string { return r.ValorINSS }},
	{"nf.valor_ir", func(r RPS) string { return r.ValorIR }},
	{"nf.valor_csll", func(r RPS) string { return r.ValorCSLL }},
	{"nf.desconto_incondicionado", func(r RPS) string { return r.DescontoIncondicionado }},
	{"nf.desconto_condicionado", func(r RPS) string { return r.DescontoCondicionado }},
	{"nf.base_calculo", func(r RPS) string { return r.BaseCalculo }},
	{"nf.intermediario.documento", func(r RPS) string { return r.IntermediarioDocumento }},
	{"nf.intermediario.razao_social", func(r RPS) string { return r.IntermediarioRazaoSocial }},
	{"nf.construcao_civil.codigo_obra", func(r RPS) string { return r.ConstrucaoCodigoObra }},
	{"nf.construcao_civil.art", func(r RPS) string { return r.ConstrucaoART }},
	{"nf.tomador.telefone", func(r RPS) string { return r.TomadorTelefone }},
	{"nf.tomador.email", func(r RPS) string { return r.TomadorEmail }},
	{"nf.tomador.inscricao_estadual", func(r RPS) string { return r.TomadorInscricaoEstadual }},
}

// CamposDescartados devolve os nomes dos campos legados sem destino no padrão
// nacional, na ordem da tabela.
func CamposDescartados() []string {
	nomes := make([]string, len(camposSemDestino))
	for i, c := range camposSemDestino {
		nomes[i] = c.Nome
	}
	return nomes
}

// DescartesPreenchidos devolve os campos sem destino que vieram preenchidos
// neste registro. Uso informativo (log em nível debug); o mapeamento não muda.
func DescartesPreenchidos(r RPS) []string {
	var out []string
	for _, c := range camposSemDestino {
		if strings.TrimSpace(c.Valor(r)) != "" {
			out = append(out, c.Nome)
		}
	}
	return out
}

// MapearRPS converte o registro legado em documento nacional. Pura e total:
// nunca falha, não consulta nada externo e o mesmo par (r, referencia) produz
// sempre a mesma DPS. referencia só entra quando a data de emissão legada é
// vazia ou ilegível.
func MapearRPS(r RPS, referencia time.Time) DPS {
	doc := DPS{
		Numero:      numeroDPS(r.Numero),
		Serie:       ouPadrao(strings.TrimSpace(r.Serie), "1"),
		Competencia: FormatarCompetencia(r.DataEmissao, referencia),
		DataEmissao: r.DataEmissao,
		Prestador:   mapearPrestador(r),
		Tomador:     mapearTomador(r),
		Servico:     mapearServico(r),
	}
	return doc
}

func mapearPrestador(r RPS) Prestador {
	doc := SanitizarDocumento(r.PrestadorDocumento)
	return Prestador{
		Documento:          doc,
		Tipo:               ClassificarDocumento(doc),
		CodigoMunicipio:    zfill(r.CodigoMunicipio, 7),
		Email:              r.PrestadorEmail,
		InscricaoMunicipal: r.PrestadorInscricaoMunicipal,
		Regime:             ClassificarRegime(r.RegimeEspecialTributacao, strings.TrimSpace(r.OptanteSimples)),
	}
}

func mapearTomador(r RPS) Tomador {
	doc := SanitizarDocumento(r.TomadorDocumento)
	if doc == "" {
		// Sem documento o tomador é não identificado e o grupo inteiro some
		return Tomador{NaoIdentificado: true}
	}

	t := Tomador{
		Documento:          doc,
		Tipo:               ClassificarDocumento(doc),
		Nome:               Truncar(RemoverAcentos(r.TomadorRazaoSocial), 115),
		InscricaoMunicipal: r.TomadorInscricaoMunicipal,
	}

	// Endereço só entra com código IBGE utilizável; sem ele o endereço
	// inteiro é omitido (o portal valida município, não aceita parcial)
	raw := strings.TrimSpace(r.TomadorCodigoMunicipio)
	if len(raw) < 7 {
		return t
	}
	digitos := SanitizarDocumento(raw)
	if len(digitos) < 7 {
		return t
	}

	end := &Endereco{CodigoMunicipio: zfill(digitos, 7)}
	if cep := SanitizarDocumento(r.TomadorCEP); len(cep) == 8 {
		end.CEP = cep
	}
	if r.TomadorLogradouro != "" {
		end.Logradouro = Truncar(RemoverAcentos(r.TomadorLogradouro), 125)
		end.Numero = ouPadrao(r.TomadorNumero, "S/N")
		if r.TomadorComplemento != "" {
			end.Complemento = Truncar(r.TomadorComplemento, 60)
		}
		end.Bairro = Truncar(RemoverAcentos(ouPadrao(r.TomadorBairro, "NAO INFORMADO")), 60)
		if r.TomadorUF != "" {
			end.UF = Truncar(r.TomadorUF, 2)
		}
	}
	t.Endereco = end
	return t
}

func mapearServico(r RPS) Servico {
	ctn, ok := CodigoTributacaoNacional(r.CodigoServico)
	if !ok {
		ctn = CodigoTributacaoPadrao
	}
	valor, _ := ParseValor(r.TotalServicos) // ausente ou ilegível fica zero
	aliquota, temAliquota := ParseAliquota(r.Aliquota)

	return Servico{
		Descricao:        NormalizarDescricao(r.Discriminacao),
		Valor:            valor,
		CodigoTributacao: ctn,
		Aliquota:         aliquota,
		TemAliquota:      temAliquota,
		ISSRetido:        strings.TrimSpace(r.ISSRetido) == "1",
	}
}

// numeroDPS aplica o default legado: ausente ou ilegível vira 1.
func numeroDPS(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return 1
	}
	return n
}

func ouPadrao(s, padrao string) string {
	if s == "" {
		return padrao
	}
	return s
}

func zfill(s string, n int) string {
	if len(s) >= n {
		return s
	}
	return strings.Repeat("0", n-len(s)) + s
}
