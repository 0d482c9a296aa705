package security

import (
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"strings"

	"github.com/goliatone/go-custody/core"
	goerrors "github.com/goliatone/go-errors"
)

const (
	pemTypeECPrivateKey = "EC PRIVATE KEY"
	pemTypePrivateKey   = "PRIVATE KEY"
	pemTypePublicKey    = "PUBLIC KEY"

	compressedPointSize   = 33
	uncompressedPointSize = 65
	scalarSize            = 32
)

// SigningKeyPair is a P-256 ECDSA keypair in PEM form.
type SigningKeyPair struct {
	PublicKey  string `json:"publicKey"`
	PrivateKey string `json:"privateKey"`
}

// AgreementKeyPair is a P-256 key-agreement keypair in hex form. PublicKey is
// always the uncompressed point.
type AgreementKeyPair struct {
	PublicKey  string `json:"publicKey"`
	PrivateKey string `json:"privateKey"`
}

func GenerateSigningKeyPair() (SigningKeyPair, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return SigningKeyPair{}, keyGenerationError(err, "security: generate signing key")
	}
	privateDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return SigningKeyPair{}, keyGenerationError(err, "security: encode signing private key")
	}
	publicPEM, err := EncodePublicKeyPEM(&key.PublicKey)
	if err != nil {
		return SigningKeyPair{}, keyGenerationError(err, "security: encode signing public key")
	}
	return SigningKeyPair{
		PublicKey:  publicPEM,
		PrivateKey: string(pem.EncodeToMemory(&pem.Block{Type: pemTypeECPrivateKey, Bytes: privateDER})),
	}, nil
}

func GenerateAgreementKeyPair() (AgreementKeyPair, error) {
	key, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return AgreementKeyPair{}, keyGenerationError(err, "security: generate agreement key")
	}
	point, err := UncompressPoint(key.PublicKey().Bytes())
	if err != nil {
		return AgreementKeyPair{}, err
	}
	return AgreementKeyPair{
		PublicKey:  hex.EncodeToString(point),
		PrivateKey: hex.EncodeToString(key.Bytes()),
	}, nil
}

// UncompressPoint returns the 65-byte uncompressed form of a P-256 point
// given in either SEC1 encoding.
func UncompressPoint(point []byte) ([]byte, error) {
	switch len(point) {
	case uncompressedPointSize:
		if point[0] != 0x04 {
			return nil, core.NewError(core.ErrorInvalidPointFormat, goerrors.CategoryBadInput,
				"security: uncompressed point must start with 0x04")
		}
		if _, err := ecdh.P256().NewPublicKey(point); err != nil {
			return nil, core.WrapError(err, core.ErrorInvalidPointFormat, goerrors.CategoryBadInput,
				"security: point is not on P-256")
		}
		out := make([]byte, len(point))
		copy(out, point)
		return out, nil
	case compressedPointSize:
		x, y := elliptic.UnmarshalCompressed(elliptic.P256(), point)
		if x == nil || y == nil {
			return nil, core.NewError(core.ErrorPointDecompressionFailed, goerrors.CategoryBadInput,
				"security: compressed point could not be decompressed")
		}
		out := make([]byte, uncompressedPointSize)
		out[0] = 0x04
		x.FillBytes(out[1:33])
		y.FillBytes(out[33:])
		return out, nil
	default:
		return nil, core.NewError(core.ErrorInvalidPointFormat, goerrors.CategoryBadInput,
			"security: point must be 33 or 65 bytes")
	}
}

// ParseSigningPrivateKey accepts SEC1 ("EC PRIVATE KEY") and PKCS#8
// ("PRIVATE KEY") blocks holding a P-256 key.
func ParseSigningPrivateKey(privateKeyPEM string) (*ecdsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(strings.TrimSpace(privateKeyPEM)))
	if block == nil {
		return nil, invalidPrivateKey(nil, "security: private key is not valid PEM")
	}

	var key *ecdsa.PrivateKey
	switch block.Type {
	case pemTypeECPrivateKey:
		parsed, err := x509.ParseECPrivateKey(block.Bytes)
		if err != nil {
			return nil, invalidPrivateKey(err, "security: parse ec private key")
		}
		key = parsed
	case pemTypePrivateKey:
		parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, invalidPrivateKey(err, "security: parse pkcs8 private key")
		}
		ecKey, ok := parsed.(*ecdsa.PrivateKey)
		if !ok {
			return nil, invalidPrivateKey(nil, "security: pkcs8 key is not an ecdsa key")
		}
		key = ecKey
	default:
		return nil, invalidPrivateKey(nil, "security: unsupported pem block "+block.Type)
	}

	if key.Curve != elliptic.P256() {
		return nil, invalidPrivateKey(nil, "security: private key is not on P-256")
	}
	return key, nil
}

func EncodePublicKeyPEM(key *ecdsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(key)
	if err != nil {
		return "", err
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: pemTypePublicKey, Bytes: der})), nil
}

func ParsePublicKeyPEM(publicKeyPEM string) (*ecdsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(strings.TrimSpace(publicKeyPEM)))
	if block == nil || block.Type != pemTypePublicKey {
		return nil, core.NewError(core.ErrorInvalidPointFormat, goerrors.CategoryBadInput,
			"security: public key is not a PUBLIC KEY pem block")
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, core.WrapError(err, core.ErrorInvalidPointFormat, goerrors.CategoryBadInput,
			"security: parse public key")
	}
	key, ok := parsed.(*ecdsa.PublicKey)
	if !ok || key.Curve != elliptic.P256() {
		return nil, core.NewError(core.ErrorInvalidPointFormat, goerrors.CategoryBadInput,
			"security: public key is not a P-256 ecdsa key")
	}
	return key, nil
}

// ParseAgreementPrivateKey decodes a hex P-256 scalar.
func ParseAgreementPrivateKey(privateKeyHex string) (*ecdh.PrivateKey, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(privateKeyHex))
	if err != nil {
		return nil, core.WrapError(err, core.ErrorInvalidHex, goerrors.CategoryBadInput,
			"security: private key is not valid hex")
	}
	if len(raw) != scalarSize {
		return nil, invalidPrivateKey(nil, "security: agreement private key must be 32 bytes")
	}
	key, err := ecdh.P256().NewPrivateKey(raw)
	if err != nil {
		return nil, invalidPrivateKey(err, "security: agreement private key is not a valid scalar")
	}
	return key, nil
}

func invalidPrivateKey(source error, message string) error {
	return core.WrapError(source, core.ErrorInvalidPrivateKey, goerrors.CategoryBadInput, message)
}

func keyGenerationError(source error, message string) error {
	return core.WrapError(source, core.ErrorKeyGenerationFailed, goerrors.CategoryInternal, message)
}
