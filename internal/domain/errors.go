package domain

import (
	"errors"
	"fmt"
)

// Erros de domínio (sem dependências externas).
var (
	ErrNFSeNaoEncontrada        = errors.New("nfse não encontrada no portal")
	ErrIdentificadorIrresoluvel = errors.New("nenhum identificador utilizável para localizar a nfse")
	ErrCamposCancelamento       = errors.New("cancelamento exige documento do prestador, chave de acesso e justificativa")
	ErrCertificado              = errors.New("certificado digital inválido ou ausente")
	ErrAssinatura               = errors.New("falha ao assinar o documento")
	ErrAutenticacao             = errors.New("portal recusou as credenciais de acesso")
)

// SchemaError campo obrigatório ausente na montagem do XML. Reenviar o mesmo
// documento produz o mesmo erro, então nunca é retentável.
type SchemaError struct {
	Campo string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("campo obrigatório ausente: %s", e.Campo)
}

// PortalError rejeição do portal (4xx ou lista de erros no corpo da resposta).
// Mensagem preserva o detalhe original do portal no formato
// "Codigo: Descricao - Complemento" unido por " | "; nunca é retentável.
type PortalError struct {
	Status   int
	Mensagem string
	Corpo    string // payload bruto, para diagnóstico
}

func (e *PortalError) Error() string {
	if e.Mensagem != "" {
		return fmt.Sprintf("portal rejeitou a solicitação (HTTP %d): %s", e.Status, e.Mensagem)
	}
	return fmt.Sprintf("portal rejeitou a solicitação (HTTP %d)", e.Status)
}

// TransientError falha de rede ou 5xx. O transmissor retenta com backoff antes
// de expor este erro ao chamador.
type TransientError struct {
	Causa error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("falha transitória ao comunicar com o portal: %v", e.Causa)
}

func (e *TransientError) Unwrap() error { return e.Causa }
