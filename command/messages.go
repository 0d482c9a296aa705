package command

import (
	"strings"

	"github.com/goliatone/go-custody/core"
)

const (
	TypeDispatchActivity     = "custody.command.activity.dispatch"
	TypeDecryptBundle        = "custody.command.bundle.decrypt"
	TypeGenerateAgreementKey = "custody.command.key.agreement.generate"
	TypeGenerateSigningKey   = "custody.command.key.signing.generate"
)

type DispatchActivityMessage struct {
	Request core.DispatchRequest
}

func (DispatchActivityMessage) Type() string { return TypeDispatchActivity }

func (m DispatchActivityMessage) Validate() error {
	if strings.TrimSpace(string(m.Request.ActivityType)) == "" {
		return commandValidationError("activity_type", "activity type is required")
	}
	return nil
}

type DecryptBundleMessage struct {
	CiphertextHex string
	PrivateKeyHex string
}

func (DecryptBundleMessage) Type() string { return TypeDecryptBundle }

func (m DecryptBundleMessage) Validate() error {
	if strings.TrimSpace(m.CiphertextHex) == "" {
		return commandValidationError("ciphertext", "ciphertext is required")
	}
	if strings.TrimSpace(m.PrivateKeyHex) == "" {
		return commandValidationError("private_key", "private key is required")
	}
	return nil
}

type GenerateAgreementKeyMessage struct{}

func (GenerateAgreementKeyMessage) Type() string { return TypeGenerateAgreementKey }

func (GenerateAgreementKeyMessage) Validate() error { return nil }

type GenerateSigningKeyMessage struct{}

func (GenerateSigningKeyMessage) Type() string { return TypeGenerateSigningKey }

func (GenerateSigningKeyMessage) Validate() error { return nil }
