// Constantes da assinatura XMLDSig do leiaute nacional da NFS-e.

package signer

// Namespaces e algoritmos XMLDSig. O portal nacional valida assinaturas
// enveloped com C14N inclusivo e RSA-SHA1.
const (
	NamespaceDS = "http://www.w3.org/2000/09/xmldsig#"

	AlgC14N    = "http://www.w3.org/TR/2001/REC-xml-c14n-20010315"
	AlgRSASHA1 = "http://www.w3.org/2000/09/xmldsig#rsa-sha1"
	AlgSHA1    = "http://www.w3.org/2000/09/xmldsig#sha1"

	TransformEnveloped = "http://www.w3.org/2000/09/xmldsig#enveloped-signature"
)
