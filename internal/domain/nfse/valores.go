package nfse

import (
	"strings"

	"github.com/shopspring/decimal"
)

var cem = decimal.NewFromInt(100)

// ParseValor converte um valor monetário tolerando os formatos que os sistemas
// legados realmente enviam: "1234.56", "1234,56", "1.234.567,89", "15 %".
// Devolve ok=false para vazio ou ilegível; o chamador decide o default.
func ParseValor(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	s = strings.ReplaceAll(s, "%", "")
	s = strings.ReplaceAll(s, " ", "")
	// Formato brasileiro com milhar: exatamente uma vírgula e mais de um ponto
	if strings.Count(s, ",") == 1 && strings.Count(s, ".") > 1 {
		s = strings.ReplaceAll(s, ".", "")
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// ParseAliquota normaliza a alíquota para fração: valores acima de 1 são lidos
// como percentual e divididos por 100 ("2" e "0.02" significam a mesma coisa).
// Vazio ou zero devolve ok=false e a alíquota é omitida do documento.
func ParseAliquota(s string) (decimal.Decimal, bool) {
	d, ok := ParseValor(s)
	if !ok || d.IsZero() {
		return decimal.Zero, false
	}
	if d.GreaterThan(decimal.NewFromInt(1)) {
		d = d.Div(cem)
	}
	return d, true
}

// FormatarValor formata um montante com exatamente duas casas ("1500" -> "1500.00").
func FormatarValor(d decimal.Decimal) string {
	return d.Round(2).StringFixed(2)
}

// FormatarPercentual converte a fração interna para o percentual do schema
// (0.02 -> "2.00").
func FormatarPercentual(fracao decimal.Decimal) string {
	return fracao.Mul(cem).Round(2).StringFixed(2)
}
