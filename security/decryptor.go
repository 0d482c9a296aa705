package security

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/goliatone/go-custody/core"
	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/crypto/hkdf"
)

// DefaultEnvelopeInfo is the HKDF info string of the credential envelope
// protocol.
const DefaultEnvelopeInfo = "turnkey_hpke"

const envelopeKeySize = 32

type Option func(*Decryptor)

func WithInfo(info string) Option {
	return func(d *Decryptor) {
		if trimmed := strings.TrimSpace(info); trimmed != "" {
			d.info = []byte(trimmed)
		}
	}
}

// Decryptor opens credential envelopes: ECDH on P-256, HKDF-SHA256 and
// AES-256-GCM with empty associated data. It holds no key material and is safe
// for concurrent use.
type Decryptor struct {
	info []byte
}

func NewDecryptor(opts ...Option) *Decryptor {
	decryptor := &Decryptor{info: []byte(DefaultEnvelopeInfo)}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(decryptor)
	}
	return decryptor
}

// DecryptEnvelope opens a hex envelope with the default decryptor.
func DecryptEnvelope(ciphertextHex string, privateKeyHex string) (map[string]any, error) {
	return NewDecryptor().Decrypt(ciphertextHex, privateKeyHex)
}

// Decrypt recovers the JSON credential bundle from a hex envelope using the
// hex P-256 private scalar.
func (d *Decryptor) Decrypt(ciphertextHex string, privateKeyHex string) (map[string]any, error) {
	plaintext, err := d.Open(ciphertextHex, privateKeyHex)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(plaintext) {
		return nil, core.NewError(core.ErrorInvalidJSON, goerrors.CategoryBadInput,
			"security: decrypted bundle is not valid utf-8")
	}
	decoder := json.NewDecoder(bytes.NewReader(plaintext))
	decoder.UseNumber()
	var bundle map[string]any
	if err := decoder.Decode(&bundle); err != nil {
		return nil, core.WrapError(err, core.ErrorInvalidJSON, goerrors.CategoryBadInput,
			"security: decrypted bundle is not a json object")
	}
	if bundle == nil {
		return nil, core.NewError(core.ErrorInvalidJSON, goerrors.CategoryBadInput,
			"security: decrypted bundle is null")
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, core.WrapError(err, core.ErrorInvalidJSON, goerrors.CategoryBadInput,
			"security: decrypted bundle has trailing data")
	}
	return bundle, nil
}

// Open returns the authenticated plaintext of a hex envelope.
func (d *Decryptor) Open(ciphertextHex string, privateKeyHex string) ([]byte, error) {
	raw, err := decodeHex(ciphertextHex, "ciphertext")
	if err != nil {
		return nil, err
	}
	scalar, err := decodeHex(privateKeyHex, "private key")
	if err != nil {
		return nil, err
	}
	envelope, err := ParseEnvelope(raw)
	if err != nil {
		return nil, err
	}
	key, err := d.deriveKey(envelope.EncappedKey, scalar)
	if err != nil {
		return nil, err
	}
	return openAEAD(key, envelope)
}

func (d *Decryptor) deriveKey(encappedKey []byte, scalar []byte) ([]byte, error) {
	private, err := ecdh.P256().NewPrivateKey(scalar)
	if err != nil {
		return nil, hpkeFailure(err, "security: invalid recipient private key")
	}
	point, err := UncompressPoint(encappedKey)
	if err != nil {
		return nil, hpkeFailure(err, "security: invalid encapsulated key")
	}
	public, err := ecdh.P256().NewPublicKey(point)
	if err != nil {
		return nil, hpkeFailure(err, "security: invalid encapsulated key")
	}
	shared, err := private.ECDH(public)
	if err != nil {
		return nil, hpkeFailure(err, "security: key agreement failed")
	}

	info := d.info
	if len(info) == 0 {
		info = []byte(DefaultEnvelopeInfo)
	}
	key := make([]byte, envelopeKeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, shared, nil, info), key); err != nil {
		return nil, hpkeFailure(err, "security: key derivation failed")
	}
	return key, nil
}

func openAEAD(key []byte, envelope Envelope) ([]byte, error) {
	nonce, tag, ciphertext, err := envelope.AEADParts()
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, aesFailure(err, "security: create cipher")
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, aesFailure(err, "security: create gcm")
	}
	// crypto/cipher expects ciphertext||tag; the wire carries the tag first.
	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, aesFailure(err, "security: decrypt payload")
	}
	return plaintext, nil
}

func decodeHex(value string, field string) ([]byte, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(value), "0x")
	decoded, err := hex.DecodeString(trimmed)
	if err != nil {
		return nil, core.WrapError(err, core.ErrorInvalidHex, goerrors.CategoryBadInput,
			"security: "+field+" is not valid hex")
	}
	return decoded, nil
}

func hpkeFailure(source error, message string) error {
	return core.WrapError(source, core.ErrorHPKEDecryptionFailed, goerrors.CategoryBadInput, message)
}

func aesFailure(source error, message string) error {
	return core.WrapError(source, core.ErrorAESDecryptFailed, goerrors.CategoryBadInput, message)
}
