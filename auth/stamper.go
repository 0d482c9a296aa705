package auth

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/goliatone/go-custody/core"
	"github.com/goliatone/go-custody/security"
	goerrors "github.com/goliatone/go-errors"
)

// SchemeP256 identifies an ECDSA P-256 / SHA-256 API stamp.
const SchemeP256 = "SIGNATURE_SCHEME_TK_API_P256"

// Stamp is the signed proof attached to an API-key authenticated request.
type Stamp struct {
	PublicKey string `json:"publicKey"`
	Signature string `json:"signature"`
	Scheme    string `json:"scheme"`

	// PublicKeyPEM is the signer's key re-encoded as SubjectPublicKeyInfo PEM.
	// It is not part of the wire form.
	PublicKeyPEM string `json:"-"`
}

// Encode returns the wire form: the stamp JSON as unpadded base64url.
func (s Stamp) Encode() (string, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return "", core.WrapError(err, core.ErrorSigningFailed, goerrors.CategoryInternal,
			"auth: encode stamp")
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// SignStamp signs the exact body bytes with a P-256 private key in PEM form.
func SignStamp(body []byte, privateKeyPEM string) (Stamp, error) {
	key, err := security.ParseSigningPrivateKey(privateKeyPEM)
	if err != nil {
		return Stamp{}, err
	}

	ecdhKey, err := key.PublicKey.ECDH()
	if err != nil {
		return Stamp{}, core.WrapError(err, core.ErrorPublicKeyExtractionFailed, goerrors.CategoryInternal,
			"auth: derive public key")
	}
	publicPEM, err := security.EncodePublicKeyPEM(&key.PublicKey)
	if err != nil {
		return Stamp{}, core.WrapError(err, core.ErrorPublicKeyExtractionFailed, goerrors.CategoryInternal,
			"auth: encode public key")
	}

	digest := sha256.Sum256(body)
	signature, err := ecdsa.SignASN1(rand.Reader, key, digest[:])
	if err != nil {
		return Stamp{}, core.WrapError(err, core.ErrorSigningFailed, goerrors.CategoryInternal,
			"auth: sign request body")
	}

	return Stamp{
		PublicKey:    hex.EncodeToString(ecdhKey.Bytes()),
		Signature:    hex.EncodeToString(signature),
		Scheme:       SchemeP256,
		PublicKeyPEM: publicPEM,
	}, nil
}

// StampBody signs body and returns the encoded stamp.
func StampBody(body []byte, privateKeyPEM string) (string, error) {
	stamp, err := SignStamp(body, privateKeyPEM)
	if err != nil {
		return "", err
	}
	return stamp.Encode()
}

// DecodeStamp parses the wire form of a stamp.
func DecodeStamp(encoded string) (Stamp, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return Stamp{}, core.WrapError(err, core.ErrorInvalidStamp, goerrors.CategoryBadInput,
			"auth: stamp is not unpadded base64url")
	}
	var stamp Stamp
	if err := json.Unmarshal(raw, &stamp); err != nil {
		return Stamp{}, core.WrapError(err, core.ErrorInvalidStamp, goerrors.CategoryBadInput,
			"auth: stamp is not json")
	}
	if stamp.Scheme != SchemeP256 {
		return Stamp{}, core.NewError(core.ErrorInvalidStamp, goerrors.CategoryBadInput,
			"auth: unsupported stamp scheme "+stamp.Scheme)
	}
	return stamp, nil
}

// VerifyStamp reports whether encoded is a valid stamp over body, checked
// against the public key the stamp carries.
func VerifyStamp(encoded string, body []byte) error {
	stamp, err := DecodeStamp(encoded)
	if err != nil {
		return err
	}
	point, err := hex.DecodeString(stamp.PublicKey)
	if err != nil {
		return core.WrapError(err, core.ErrorInvalidStamp, goerrors.CategoryBadInput,
			"auth: stamp public key is not hex")
	}
	uncompressed, err := security.UncompressPoint(point)
	if err != nil {
		return err
	}
	publicKey, err := ecdsa.ParseUncompressedPublicKey(elliptic.P256(), uncompressed)
	if err != nil {
		return core.WrapError(err, core.ErrorInvalidStamp, goerrors.CategoryBadInput,
			"auth: stamp public key is not a P-256 point")
	}
	signature, err := hex.DecodeString(stamp.Signature)
	if err != nil {
		return core.WrapError(err, core.ErrorInvalidStamp, goerrors.CategoryBadInput,
			"auth: stamp signature is not hex")
	}
	digest := sha256.Sum256(body)
	if !ecdsa.VerifyASN1(publicKey, digest[:], signature) {
		return core.NewError(core.ErrorInvalidStamp, goerrors.CategoryAuth,
			"auth: stamp signature does not match body")
	}
	return nil
}

// APIKeyStamper is the default core.Stamper.
type APIKeyStamper struct{}

func NewAPIKeyStamper() *APIKeyStamper {
	return &APIKeyStamper{}
}

func (*APIKeyStamper) StampRequest(body []byte, privateKeyPEM string) (string, error) {
	return StampBody(body, privateKeyPEM)
}

var _ core.Stamper = (*APIKeyStamper)(nil)
