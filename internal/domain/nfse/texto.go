package nfse

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// RemoverAcentos decompõe (NFD), descarta as marcas combinantes e recompõe.
// "São Paulo" -> "Sao Paulo". O transformador é criado por chamada porque a
// cadeia do x/text carrega buffers internos e não é segura para uso concorrente.
func RemoverAcentos(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Truncar corta a string em max runas (não bytes; o schema conta caracteres).
func Truncar(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

// NormalizarDescricao prepara a discriminação do serviço para o xDescServ:
// remove acentos, trunca em 1000 e troca quebras de linha por vírgulas.
// A ordem importa: o truncamento acontece antes da troca de CRLF.
func NormalizarDescricao(s string) string {
	d := Truncar(RemoverAcentos(s), 1000)
	d = strings.ReplaceAll(d, "\r\n", ", ")
	d = strings.ReplaceAll(d, ", ,", ",")
	return d
}
