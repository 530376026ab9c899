// Serviço de assinatura digital XMLDSig enveloped para os documentos do
// leiaute nacional da NFS-e. Injeta <Signature> como irmão do elemento
// assinado (infDPS ou infPedReg), dentro da raiz.

package signer

import (
	"bytes"
	"crypto"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/beevik/etree"
	"github.com/ucarion/c14n"

	"github.com/tecnofiscal/nfse-nacional-api/internal/infrastructure/sefin"
)

// DigitalSignatureService implementa a assinatura enveloped e injeta o nó no XML.
type DigitalSignatureService struct{}

// NewDigitalSignatureService cria o serviço.
func NewDigitalSignatureService() *DigitalSignatureService {
	return &DigitalSignatureService{}
}

// Sign localiza o primeiro filho da raiz com atributo Id, calcula o digest
// canônico desse elemento, assina o SignedInfo com a chave RSA do certificado
// e injeta o Signature resultante ao lado do elemento assinado.
func (s *DigitalSignatureService) Sign(xmlBytes []byte, cert tls.Certificate) ([]byte, error) {
	if len(xmlBytes) == 0 {
		return nil, fmt.Errorf("assinatura: XML vazio")
	}
	priv, ok := cert.PrivateKey.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("assinatura: o certificado deve incluir chave privada RSA")
	}
	if len(cert.Certificate) == 0 {
		return nil, fmt.Errorf("assinatura: certificado sem cadeia")
	}
	x509Cert, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return nil, fmt.Errorf("assinatura: parsear certificado: %w", err)
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(xmlBytes); err != nil {
		return nil, fmt.Errorf("assinatura: parsear XML: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("assinatura: documento sem raiz")
	}
	alvo, id := elementoAssinavel(root)
	if alvo == nil {
		return nil, fmt.Errorf("assinatura: nenhum filho da raiz tem atributo Id para assinar")
	}

	// 1) Digest do elemento referenciado (C14N inclusivo). Reference URI="#Id"
	canonico, err := canonicalizarElemento(root, alvo)
	if err != nil {
		return nil, fmt.Errorf("assinatura: canonicalizar %s: %w", alvo.Tag, err)
	}
	docDigest := sha1.Sum(canonico)
	docDigestB64 := base64.StdEncoding.EncodeToString(docDigest[:])

	// 2) SignedInfo canônico assinado com RSA-SHA1
	signedInfoXML := s.buildSignedInfo(id, docDigestB64)
	canonicalSignedInfo, err := canonicalizarXML([]byte(signedInfoXML))
	if err != nil {
		canonicalSignedInfo = []byte(signedInfoXML)
	}
	signHash := sha1.Sum(canonicalSignedInfo)
	signatureValue, err := rsa.SignPKCS1v15(nil, priv, crypto.SHA1, signHash[:])
	if err != nil {
		return nil, fmt.Errorf("assinatura: assinar SignedInfo: %w", err)
	}

	// 3) Signature completo com o certificado folha em KeyInfo
	certB64 := base64.StdEncoding.EncodeToString(x509Cert.Raw)
	signatureXML := s.buildSignature(signedInfoXML, base64.StdEncoding.EncodeToString(signatureValue), certB64)

	// 4) Injetar como irmão do elemento assinado
	sigDoc := etree.NewDocument()
	if err := sigDoc.ReadFromString(signatureXML); err != nil {
		return nil, fmt.Errorf("assinatura: parsear Signature: %w", err)
	}
	if sigRoot := sigDoc.Root(); sigRoot != nil {
		root.AddChild(sigRoot)
	}

	var out bytes.Buffer
	if _, err := doc.WriteTo(&out); err != nil {
		return nil, fmt.Errorf("assinatura: serializar documento assinado: %w", err)
	}
	return out.Bytes(), nil
}

// elementoAssinavel devolve o primeiro filho direto da raiz com atributo Id
// não vazio. No leiaute nacional é sempre o infDPS ou o infPedReg.
func elementoAssinavel(root *etree.Element) (*etree.Element, string) {
	for _, child := range root.ChildElements() {
		if id := child.SelectAttrValue("Id", ""); id != "" {
			return child, id
		}
	}
	return nil, ""
}

// canonicalizarElemento serializa o elemento isolado com o namespace herdado
// da raiz declarado nele mesmo, que é a forma que o verificador enxerga ao
// resolver a Reference.
func canonicalizarElemento(root, alvo *etree.Element) ([]byte, error) {
	copia := alvo.Copy()
	if ns := root.SelectAttrValue("xmlns", ""); ns != "" && copia.SelectAttr("xmlns") == nil {
		copia.CreateAttr("xmlns", ns)
	}
	sub := etree.NewDocument()
	sub.SetRoot(copia)
	raw, err := sub.WriteToBytes()
	if err != nil {
		return nil, err
	}
	return canonicalizarXML(raw)
}

func canonicalizarXML(data []byte) ([]byte, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Entity = map[string]string{}
	return c14n.Canonicalize(dec)
}

func (s *DigitalSignatureService) buildSignedInfo(id, digestB64 string) string {
	var sb strings.Builder
	sb.WriteString(`<SignedInfo xmlns="` + NamespaceDS + `">`)
	sb.WriteString(`<CanonicalizationMethod Algorithm="` + AlgC14N + `"/>`)
	sb.WriteString(`<SignatureMethod Algorithm="` + AlgRSASHA1 + `"/>`)
	sb.WriteString(`<Reference URI="#` + id + `">`)
	sb.WriteString(`<Transforms><Transform Algorithm="` + TransformEnveloped + `"/>`)
	sb.WriteString(`<Transform Algorithm="` + AlgC14N + `"/></Transforms>`)
	sb.WriteString(`<DigestMethod Algorithm="` + AlgSHA1 + `"/>`)
	sb.WriteString(`<DigestValue>` + digestB64 + `</DigestValue>`)
	sb.WriteString(`</Reference>`)
	sb.WriteString(`</SignedInfo>`)
	return sb.String()
}

// buildSignature embute o mesmo SignedInfo usado no digest. A redeclaração do
// namespace dentro do Signature é redundante e some na forma canônica.
func (s *DigitalSignatureService) buildSignature(signedInfoXML, signatureValueB64, certB64 string) string {
	var sb strings.Builder
	sb.WriteString(`<Signature xmlns="` + NamespaceDS + `">`)
	sb.WriteString(signedInfoXML)
	sb.WriteString(`<SignatureValue>` + signatureValueB64 + `</SignatureValue>`)
	sb.WriteString(`<KeyInfo><X509Data><X509Certificate>` + certB64 + `</X509Certificate></X509Data></KeyInfo>`)
	sb.WriteString(`</Signature>`)
	return sb.String()
}

var _ sefin.Assinador = (*DigitalSignatureService)(nil)
