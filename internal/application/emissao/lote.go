// Package emissao orquestra o ciclo de emissão da NFS-e nacional: mapeamento
// do RPS legado, montagem e assinatura da DPS, envio ao portal e tradução das
// respostas para os envelopes que os sistemas antigos já sabem ler.
package emissao

import (
	"github.com/tecnofiscal/nfse-nacional-api/internal/domain/nfse"
)

// Lote acumula RPS e pedidos de cancelamento aguardando transmissão. O valor
// pertence ao chamador: cada requisição monta o seu e o descarta ao final, e
// por isso não existe estado compartilhado entre requisições concorrentes.
type Lote struct {
	RPS           []nfse.RPS
	Cancelamentos []nfse.Cancelamento
}

// AddRPS inclui um RPS no lote.
func (l *Lote) AddRPS(r nfse.RPS) {
	l.RPS = append(l.RPS, r)
}

// AddCancelamento inclui um pedido de cancelamento no lote.
func (l *Lote) AddCancelamento(c nfse.Cancelamento) {
	l.Cancelamentos = append(l.Cancelamentos, c)
}

// Clear esvazia o lote para reutilização.
func (l *Lote) Clear() {
	l.RPS = nil
	l.Cancelamentos = nil
}

// Vazio informa se não há nada a transmitir.
func (l *Lote) Vazio() bool {
	return len(l.RPS) == 0 && len(l.Cancelamentos) == 0
}
