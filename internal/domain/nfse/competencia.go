package nfse

import (
	"strings"
	"time"
)

// layouts aceitos para a data de emissão legada, na ordem de tentativa.
var layoutsCompetencia = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006",
}

// ParseDataEmissao interpreta a data de emissão legada. Frações de segundo e
// fuso são descartados antes do parse; data vazia ou ilegível cai na
// referência, preservando o comportamento do sistema antigo (que usava "agora").
func ParseDataEmissao(dataEmissao string, referencia time.Time) time.Time {
	s := dataEmissao
	if i := strings.Index(s, "."); i >= 0 {
		s = s[:i]
	}
	if i := strings.Index(s, "+"); i >= 0 {
		s = s[:i]
	}
	if i := strings.Index(s, "Z"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	if s != "" {
		for _, layout := range layoutsCompetencia {
			if dt, err := time.Parse(layout, s); err == nil {
				return dt
			}
		}
	}
	return referencia
}

// FormatarCompetencia converte a data de emissão legada para o AAAA-MM-DD do
// dCompet.
func FormatarCompetencia(dataEmissao string, referencia time.Time) string {
	return ParseDataEmissao(dataEmissao, referencia).Format("2006-01-02")
}
