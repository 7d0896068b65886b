package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

// ErrCrypto indica ciphertext malformado, adulterado ou selado com outra chave.
// Unseal nunca devolve bytes decodificados errados: ou o plaintext original, ou este erro.
var ErrCrypto = errors.New("vault: invalid ciphertext or wrong key")

// Vault sela e abre segredos com AES-256-GCM. Transformação pura bytes->bytes,
// sem nenhum conhecimento sobre o que o segredo significa.
type Vault struct {
	aead cipher.AEAD
}

// New cria um Vault a partir de uma chave de 32 bytes.
func New(key []byte) (*Vault, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("vault: key must be 32 bytes, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("vault: new cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("vault: new gcm: %w", err)
	}
	return &Vault{aead: aead}, nil
}

// NewFromBase64 cria um Vault a partir da chave em base64 (formato da env ENCRYPTION_KEY).
func NewFromBase64(encoded string) (*Vault, error) {
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("vault: decode key: %w", err)
	}
	return New(key)
}

// Seal cifra o plaintext e devolve nonce||ciphertext.
func (v *Vault) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, v.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("vault: nonce: %w", err)
	}
	return v.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Unseal abre nonce||ciphertext produzido por Seal.
func (v *Vault) Unseal(box []byte) ([]byte, error) {
	ns := v.aead.NonceSize()
	if len(box) < ns {
		return nil, ErrCrypto
	}
	plaintext, err := v.aead.Open(nil, box[:ns], box[ns:], nil)
	if err != nil {
		// falha na tag de autenticação: adulteração ou chave errada
		return nil, ErrCrypto
	}
	return plaintext, nil
}
