package nfse

import (
	"fmt"
	"strings"
	"unicode"
)

// TipoDocumento distingue a inscrição federal do emitente ou tomador.
type TipoDocumento int

const (
	TipoCPF TipoDocumento = iota + 1
	TipoCNPJ
)

// pesos para o cálculo dos dígitos verificadores (módulo 11 da Receita Federal).
var (
	cpfPesos1  = [9]int{10, 9, 8, 7, 6, 5, 4, 3, 2}
	cpfPesos2  = [10]int{11, 10, 9, 8, 7, 6, 5, 4, 3, 2}
	cnpjPesos1 = [12]int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	cnpjPesos2 = [13]int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
)

// SanitizarDocumento remove tudo que não for dígito ("12.345.678/0001-99" -> "12345678000199").
func SanitizarDocumento(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ClassificarDocumento aplica a regra legada: 14 dígitos é CNPJ, qualquer outro
// comprimento é tratado como CPF. A validação estrutural fica em ValidarDocumento.
func ClassificarDocumento(digitos string) TipoDocumento {
	if len(digitos) == 14 {
		return TipoCNPJ
	}
	return TipoCPF
}

// ValidarDocumento confere os dígitos verificadores de um CPF (11 dígitos) ou
// CNPJ (14 dígitos) já sanitizado. Usado apenas como alerta: a emissão nunca é
// bloqueada localmente por documento inválido, o portal é quem rejeita.
func ValidarDocumento(digitos string) error {
	switch len(digitos) {
	case 11:
		return validarCPF(digitos)
	case 14:
		return validarCNPJ(digitos)
	default:
		return fmt.Errorf("nfse: documento deve ter 11 (CPF) ou 14 (CNPJ) dígitos, recebidos %d", len(digitos))
	}
}

func validarCPF(d string) error {
	if todosIguais(d) {
		return fmt.Errorf("nfse: CPF com todos os dígitos iguais é inválido")
	}
	var soma int
	for i := 0; i < 9; i++ {
		soma += int(d[i]-'0') * cpfPesos1[i]
	}
	if d[9] != digitoMod11(soma) {
		return fmt.Errorf("nfse: primeiro dígito verificador do CPF inválido: esperado %c, recebido %c", digitoMod11(soma), d[9])
	}
	soma = 0
	for i := 0; i < 10; i++ {
		soma += int(d[i]-'0') * cpfPesos2[i]
	}
	if d[10] != digitoMod11(soma) {
		return fmt.Errorf("nfse: segundo dígito verificador do CPF inválido: esperado %c, recebido %c", digitoMod11(soma), d[10])
	}
	return nil
}

func validarCNPJ(d string) error {
	if todosIguais(d) {
		return fmt.Errorf("nfse: CNPJ com todos os dígitos iguais é inválido")
	}
	var soma int
	for i := 0; i < 12; i++ {
		soma += int(d[i]-'0') * cnpjPesos1[i]
	}
	if d[12] != digitoMod11(soma) {
		return fmt.Errorf("nfse: primeiro dígito verificador do CNPJ inválido: esperado %c, recebido %c", digitoMod11(soma), d[12])
	}
	soma = 0
	for i := 0; i < 13; i++ {
		soma += int(d[i]-'0') * cnpjPesos2[i]
	}
	if d[13] != digitoMod11(soma) {
		return fmt.Errorf("nfse: segundo dígito verificador do CNPJ inválido: esperado %c, recebido %c", digitoMod11(soma), d[13])
	}
	return nil
}

// digitoMod11 regra da Receita: resto < 2 vira 0, senão 11 - resto.
func digitoMod11(soma int) byte {
	resto := soma % 11
	if resto < 2 {
		return '0'
	}
	return byte('0' + (11 - resto))
}

func todosIguais(d string) bool {
	for i := 1; i < len(d); i++ {
		if d[i] != d[0] {
			return false
		}
	}
	return true
}
