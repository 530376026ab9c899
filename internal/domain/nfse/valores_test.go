package nfse_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tecnofiscal/nfse-nacional-api/internal/domain/nfse"
)

// ──────────────────────────────────────────────────────────────────────────────
// Valores monetários: os sistemas legados mandam de tudo ("1.234,56",
// "1234.56", "15 %"). O parse precisa aceitar os formatos reais sem nunca
// inventar valor para entrada ilegível.
// ──────────────────────────────────────────────────────────────────────────────

func TestParseValor_FormatosReais(t *testing.T) {
	casos := []struct {
		entrada  string
		esperado string
	}{
		{"1500", "1500"},
		{"1500.50", "1500.5"},
		{"1500,50", "1500.5"},
		{"1.234.567,89", "1234567.89"},
		{"15 %", "15"},
		{" 42,00 ", "42"},
	}
	for _, c := range casos {
		d, ok := nfse.ParseValor(c.entrada)
		require.True(t, ok, "entrada %q deveria ser legível", c.entrada)
		assert.Equal(t, c.esperado, d.String(), "entrada %q", c.entrada)
	}
}

func TestParseValor_EntradaIlegivel(t *testing.T) {
	for _, entrada := range []string{"", "   ", "abc", "R$ mil"} {
		_, ok := nfse.ParseValor(entrada)
		assert.False(t, ok, "entrada %q não deveria produzir valor", entrada)
	}
}

func TestParseValor_MilharComPontoUnicoNaoParseia(t *testing.T) {
	// Contrato legado: a troca de ponto de milhar só acontece com mais de um
	// ponto. "1.234,56" vira "1.234.56" e não parseia; o chamador recebe zero.
	_, ok := nfse.ParseValor("1.234,56")
	assert.False(t, ok)
}

func TestParseValor_PontoComoMilharSemVirgula(t *testing.T) {
	// "1.234" sem vírgula é lido como decimal (1.234), igual ao legado
	d, ok := nfse.ParseValor("1.234")
	require.True(t, ok)
	assert.Equal(t, "1.234", d.String())
}

// ── alíquota ──────────────────────────────────────────────────────────────────

func TestParseAliquota_PercentualViraFracao(t *testing.T) {
	d, ok := nfse.ParseAliquota("2")
	require.True(t, ok)
	assert.True(t, d.Equal(decimal.RequireFromString("0.02")), "2 deve virar 0.02, veio %s", d)
}

func TestParseAliquota_FracaoFicaComoEsta(t *testing.T) {
	d, ok := nfse.ParseAliquota("0.02")
	require.True(t, ok)
	assert.True(t, d.Equal(decimal.RequireFromString("0.02")))
}

func TestParseAliquota_UmNaoDivide(t *testing.T) {
	// Exatamente 1 não é tratado como percentual (regra legada: só acima de 1)
	d, ok := nfse.ParseAliquota("1")
	require.True(t, ok)
	assert.True(t, d.Equal(decimal.NewFromInt(1)))
}

func TestParseAliquota_ZeroOuVazioOmite(t *testing.T) {
	for _, entrada := range []string{"", "0", "0,00", "texto"} {
		_, ok := nfse.ParseAliquota(entrada)
		assert.False(t, ok, "alíquota %q deve ser omitida", entrada)
	}
}

// ── formatação ────────────────────────────────────────────────────────────────

func TestFormatarValor_DuasCasas(t *testing.T) {
	assert.Equal(t, "1500.00", nfse.FormatarValor(decimal.NewFromInt(1500)))
	assert.Equal(t, "1234.56", nfse.FormatarValor(decimal.RequireFromString("1234.556")))
	assert.Equal(t, "0.00", nfse.FormatarValor(decimal.Zero))
}

func TestFormatarPercentual_FracaoParaPercentual(t *testing.T) {
	assert.Equal(t, "2.00", nfse.FormatarPercentual(decimal.RequireFromString("0.02")))
	assert.Equal(t, "5.50", nfse.FormatarPercentual(decimal.RequireFromString("0.055")))
}
