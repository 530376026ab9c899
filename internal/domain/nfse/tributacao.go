package nfse

import (
	"regexp"
	"strings"
)

// RegimeTributario opção pelo Simples Nacional (opSimpNac do leiaute).
type RegimeTributario int

const (
	RegimeNaoOptante      RegimeTributario = 1
	RegimeMEI             RegimeTributario = 2
	RegimeSimplesNacional RegimeTributario = 3
)

// CodigoTributacaoPadrao usado quando o sistema legado não informa o código
// de serviço em nenhum formato reconhecível.
const CodigoTributacaoPadrao = "010101"

var (
	ctnPontuado = regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})(?:\.(\d{1,2}))?$`)
	naoDigitos  = regexp.MustCompile(`\D`)
)

// ClassificarRegime aplica a precedência legada: menção a MEI no regime
// especial vence a marcação de optante pelo Simples.
func ClassificarRegime(regimeEspecial, optanteSimples string) RegimeTributario {
	if strings.Contains(strings.ToLower(regimeEspecial), "mei") {
		return RegimeMEI
	}
	if optanteSimples == "1" {
		return RegimeSimplesNacional
	}
	return RegimeNaoOptante
}

// CodigoTributacaoNacional normaliza o código de serviço para os 6 dígitos do
// cTribNac. Aceita "1.05", "1.05.01", "0105", "01051" e variantes com
// descrição ("1.05 - Cessão de andaimes"). Devolve ok=false quando nada
// aproveitável sobra.
func CodigoTributacaoNacional(cod string) (string, bool) {
	s := strings.TrimSpace(cod)
	if s == "" {
		return "", false
	}
	if i := strings.Index(s, " - "); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	if m := ctnPontuado.FindStringSubmatch(s); m != nil {
		c := m[3]
		if c == "" {
			c = "01"
		} else {
			c = pad2(c)
		}
		return pad2(m[1]) + pad2(m[2]) + c, true
	}
	digitos := naoDigitos.ReplaceAllString(s, "")
	switch len(digitos) {
	case 4:
		digitos += "01"
	case 5:
		digitos = "0" + digitos
	}
	if len(digitos) != 6 {
		return "", false
	}
	return digitos, true
}

func pad2(s string) string {
	if len(s) < 2 {
		return "0" + s
	}
	return s
}
