package security

import (
	"encoding/binary"
	"fmt"

	"github.com/goliatone/go-custody/core"
	goerrors "github.com/goliatone/go-errors"
)

const (
	envelopeLengthPrefix = 4
	aeadNonceSize        = 12
	aeadTagSize          = 16
	aeadMinSize          = aeadNonceSize + aeadTagSize
)

// Envelope is a framed credential bundle:
//
//	len(4, big-endian) | encappedKey(len) | nonce(12) | tag(16) | ciphertext
type Envelope struct {
	EncappedKey []byte
	AEAD        []byte
}

// ParseEnvelope splits raw into the encapsulated key and the AEAD payload.
// The returned slices alias raw.
func ParseEnvelope(raw []byte) (Envelope, error) {
	if len(raw) < envelopeLengthPrefix {
		return Envelope{}, core.NewError(core.ErrorInvalidCiphertextFormat, goerrors.CategoryBadInput,
			"security: envelope is shorter than its length prefix")
	}
	declared := binary.BigEndian.Uint32(raw[:envelopeLengthPrefix])
	rest := raw[envelopeLengthPrefix:]
	if uint64(declared) > uint64(len(rest)) {
		return Envelope{}, core.NewError(core.ErrorInvalidCiphertextFormat, goerrors.CategoryBadInput,
			fmt.Sprintf("security: declared key length %d exceeds remaining %d bytes", declared, len(rest)))
	}
	return Envelope{
		EncappedKey: rest[:declared],
		AEAD:        rest[declared:],
	}, nil
}

// AEADParts splits the AEAD payload into nonce, tag and ciphertext.
func (e Envelope) AEADParts() (nonce []byte, tag []byte, ciphertext []byte, err error) {
	if len(e.AEAD) < aeadMinSize {
		return nil, nil, nil, core.NewError(core.ErrorInvalidAESFormat, goerrors.CategoryBadInput,
			fmt.Sprintf("security: aead payload must be at least %d bytes", aeadMinSize))
	}
	nonce = e.AEAD[:aeadNonceSize]
	tag = e.AEAD[aeadNonceSize:aeadMinSize]
	ciphertext = e.AEAD[aeadMinSize:]
	return nonce, tag, ciphertext, nil
}

// Bytes re-encodes the envelope framing.
func (e Envelope) Bytes() []byte {
	out := make([]byte, envelopeLengthPrefix, envelopeLengthPrefix+len(e.EncappedKey)+len(e.AEAD))
	binary.BigEndian.PutUint32(out, uint32(len(e.EncappedKey)))
	out = append(out, e.EncappedKey...)
	return append(out, e.AEAD...)
}
