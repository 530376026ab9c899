// Package compression implementa o codec gzip+base64 usado pelo portal
// nacional para transportar XML (dpsXmlGZipB64, pedidoRegistroEventoXmlGZipB64,
// nfseXmlGZipB64).
package compression

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"fmt"
	"io"
)

// Codec comprime e codifica payloads XML para o transporte do portal.
type Codec struct {
	nivel int
}

// NewCodec cria um codec com nível de compressão padrão.
func NewCodec() *Codec {
	return &Codec{nivel: gzip.DefaultCompression}
}

// NewCodecWithLevel cria um codec com nível de compressão específico.
func NewCodecWithLevel(nivel int) *Codec {
	return &Codec{nivel: nivel}
}

// Encode comprime com gzip e codifica em base64 padrão.
func (c *Codec) Encode(data []byte) (string, error) {
	var buf bytes.Buffer

	w, err := gzip.NewWriterLevel(&buf, c.nivel)
	if err != nil {
		return "", fmt.Errorf("compression: criar gzip writer: %w", err)
	}

	if _, err := w.Write(data); err != nil {
		w.Close()
		return "", fmt.Errorf("compression: escrever dados: %w", err)
	}

	if err := w.Close(); err != nil {
		return "", fmt.Errorf("compression: fechar gzip writer: %w", err)
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Decode decodifica base64 padrão e descomprime com gzip.
func (c *Codec) Decode(s string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("compression: base64 inválido: %w", err)
	}

	r, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("compression: criar gzip reader: %w", err)
	}
	defer r.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return nil, fmt.Errorf("compression: ler dados comprimidos: %w", err)
	}

	return buf.Bytes(), nil
}
