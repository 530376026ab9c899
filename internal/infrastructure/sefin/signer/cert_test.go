package signer_test

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tecnofiscal/nfse-nacional-api/internal/infrastructure/sefin/signer"
)

// escreverParPEM gera um certificado autoassinado e grava certificado e chave
// em arquivos PEM dentro de um diretório temporário.
func escreverParPEM(t *testing.T) (certPath, keyPath string) {
	t.Helper()

	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(7),
		Subject:      pkix.Name{CommonName: "EMPRESA TESTE:11222333000181"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &priv.PublicKey, priv)
	require.NoError(t, err)

	dir := t.TempDir()
	certPath = filepath.Join(dir, "cert.pem")
	keyPath = filepath.Join(dir, "key.pem")

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(priv)})

	require.NoError(t, os.WriteFile(certPath, certPEM, 0o600))
	require.NoError(t, os.WriteFile(keyPath, keyPEM, 0o600))
	return certPath, keyPath
}

func TestLoadFromPEM_ParSeparado(t *testing.T) {
	certPath, keyPath := escreverParPEM(t)

	cert, err := signer.LoadFromPEM(certPath, keyPath)
	require.NoError(t, err, "par PEM válido deve carregar sem erro")
	assert.NotEmpty(t, cert.Certificate, "a cadeia do certificado não deve ficar vazia")
	assert.NotNil(t, cert.PrivateKey)
}

func TestLoadFromPEM_ArquivoCombinado(t *testing.T) {
	certPath, keyPath := escreverParPEM(t)

	certPEM, err := os.ReadFile(certPath)
	require.NoError(t, err)
	keyPEM, err := os.ReadFile(keyPath)
	require.NoError(t, err)

	combinado := filepath.Join(t.TempDir(), "combinado.pem")
	require.NoError(t, os.WriteFile(combinado, append(certPEM, keyPEM...), 0o600))

	cert, err := signer.LoadFromPEM(combinado, "")
	require.NoError(t, err, "certificado e chave no mesmo arquivo devem carregar")
	assert.NotEmpty(t, cert.Certificate)
}

func TestLoadFromPEM_CaminhoVazio(t *testing.T) {
	cert, err := signer.LoadFromPEM("", "")
	require.NoError(t, err)
	assert.Empty(t, cert.Certificate, "caminho vazio devolve certificado zero, sem erro")
}

func TestLoadFromP12_ArquivoInexistente(t *testing.T) {
	_, err := signer.LoadFromP12(filepath.Join(t.TempDir(), "nao-existe.p12"), "senha")
	assert.Error(t, err)
}

func TestLoadFromP12_ConteudoInvalido(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lixo.p12")
	require.NoError(t, os.WriteFile(path, []byte("isto não é um pkcs12"), 0o600))

	_, err := signer.LoadFromP12(path, "senha")
	assert.Error(t, err, "bytes que não são PKCS#12 devem falhar na decodificação")
}
