package main

import (
	"crypto/x509"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tecnofiscal/nfse-nacional-api/internal/infrastructure/sefin/signer"
	"github.com/tecnofiscal/nfse-nacional-api/pkg/config"
)

// Diagnóstico do certificado do emitente: carrega o arquivo apontado pela
// configuração (CERT_PATH etc.), mostra titular e validade e sai com código 1
// se o certificado está vencido ou ilegível. Útil antes de apontar a API para
// produção.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "carregar configuração:", err)
		os.Exit(1)
	}
	if cfg.Cert.Path == "" {
		fmt.Fprintln(os.Stderr, "CERT_PATH não configurado")
		os.Exit(1)
	}

	fmt.Println("arquivo:", cfg.Cert.Path)

	cert, err := carregar(cfg.Cert)
	if err != nil {
		fmt.Fprintln(os.Stderr, "abrir certificado:", err)
		os.Exit(1)
	}

	fmt.Println("titular:", cert.Subject.CommonName)
	fmt.Println("emissor:", cert.Issuer.CommonName)
	fmt.Println("válido de:", cert.NotBefore.Format("2006-01-02"))
	fmt.Println("válido até:", cert.NotAfter.Format("2006-01-02"))

	restante := time.Until(cert.NotAfter)
	if restante <= 0 {
		fmt.Fprintln(os.Stderr, "certificado VENCIDO")
		os.Exit(1)
	}
	fmt.Printf("dias restantes: %d\n", int(restante.Hours()/24))
}

func carregar(cfg config.CertConfig) (*x509.Certificate, error) {
	ext := strings.ToLower(filepath.Ext(cfg.Path))

	if ext == ".p12" || ext == ".pfx" {
		tlsCert, err := signer.LoadFromP12(cfg.Path, cfg.Password)
		if err != nil {
			return nil, err
		}
		return tlsCert.Leaf, nil
	}

	tlsCert, err := signer.LoadFromPEM(cfg.Path, cfg.KeyPath)
	if err != nil {
		return nil, err
	}
	if tlsCert.Leaf != nil {
		return tlsCert.Leaf, nil
	}
	if len(tlsCert.Certificate) == 0 {
		return nil, fmt.Errorf("arquivo sem certificado")
	}
	return x509.ParseCertificate(tlsCert.Certificate[0])
}
