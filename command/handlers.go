package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-custody/core"
	"github.com/goliatone/go-custody/security"
)

type Dispatcher interface {
	Dispatch(ctx context.Context, req core.DispatchRequest) (core.TransportResult, error)
}

type BundleDecryptor interface {
	Decrypt(ciphertextHex string, privateKeyHex string) (map[string]any, error)
}

type DispatchActivityCommand struct {
	service Dispatcher
}

func NewDispatchActivityCommand(service Dispatcher) *DispatchActivityCommand {
	return &DispatchActivityCommand{service: service}
}

func (c *DispatchActivityCommand) Execute(ctx context.Context, msg DispatchActivityMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: dispatch service is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	out, err := c.service.Dispatch(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type DecryptBundleCommand struct {
	decryptor BundleDecryptor
}

// NewDecryptBundleCommand uses the default envelope decryptor when decryptor
// is nil.
func NewDecryptBundleCommand(decryptor BundleDecryptor) *DecryptBundleCommand {
	if decryptor == nil {
		decryptor = security.NewDecryptor()
	}
	return &DecryptBundleCommand{decryptor: decryptor}
}

func (c *DecryptBundleCommand) Execute(ctx context.Context, msg DecryptBundleMessage) error {
	if c == nil || c.decryptor == nil {
		return commandDependencyError("command: bundle decryptor is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	bundle, err := c.decryptor.Decrypt(msg.CiphertextHex, msg.PrivateKeyHex)
	if err != nil {
		return err
	}
	storeResult(ctx, bundle)
	return nil
}

type GenerateAgreementKeyCommand struct{}

func NewGenerateAgreementKeyCommand() *GenerateAgreementKeyCommand {
	return &GenerateAgreementKeyCommand{}
}

func (*GenerateAgreementKeyCommand) Execute(ctx context.Context, _ GenerateAgreementKeyMessage) error {
	pair, err := security.GenerateAgreementKeyPair()
	if err != nil {
		return err
	}
	storeResult(ctx, pair)
	return nil
}

type GenerateSigningKeyCommand struct{}

func NewGenerateSigningKeyCommand() *GenerateSigningKeyCommand {
	return &GenerateSigningKeyCommand{}
}

func (*GenerateSigningKeyCommand) Execute(ctx context.Context, _ GenerateSigningKeyMessage) error {
	pair, err := security.GenerateSigningKeyPair()
	if err != nil {
		return err
	}
	storeResult(ctx, pair)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
