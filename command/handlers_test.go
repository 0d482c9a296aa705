package command

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"testing"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-custody/core"
	"github.com/goliatone/go-custody/security"
	goerrors "github.com/goliatone/go-errors"
)

type stubDispatcher struct {
	dispatchFn func(ctx context.Context, req core.DispatchRequest) (core.TransportResult, error)
}

func (s stubDispatcher) Dispatch(ctx context.Context, req core.DispatchRequest) (core.TransportResult, error) {
	if s.dispatchFn == nil {
		return core.TransportResult{}, nil
	}
	return s.dispatchFn(ctx, req)
}

type stubDecryptor struct {
	bundle map[string]any
	err    error
}

func (s stubDecryptor) Decrypt(string, string) (map[string]any, error) {
	return s.bundle, s.err
}

func TestDispatchActivityCommand_ExecuteDelegatesAndStoresResult(t *testing.T) {
	expected := core.TransportResult{OK: true, StatusCode: 200, Data: json.RawMessage(`{"activity":{"id":"act_1"}}`)}
	called := false

	cmd := NewDispatchActivityCommand(stubDispatcher{
		dispatchFn: func(_ context.Context, req core.DispatchRequest) (core.TransportResult, error) {
			called = true
			if req.ActivityType != core.ActivityCreateWallet || req.AuthMode != core.AuthModeAPIKey {
				t.Fatalf("unexpected request: %#v", req)
			}
			return expected, nil
		},
	})
	collector := gocmd.NewResult[core.TransportResult]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	err := cmd.Execute(ctx, DispatchActivityMessage{Request: core.DispatchRequest{
		ActivityType: core.ActivityCreateWallet,
		AuthMode:     core.AuthModeAPIKey,
	}})
	if err != nil {
		t.Fatalf("execute dispatch: %v", err)
	}
	if !called {
		t.Fatalf("expected dispatch service invocation")
	}
	result, ok := collector.Load()
	if !ok {
		t.Fatalf("expected result to be stored")
	}
	if result.ActivityID() != "act_1" {
		t.Fatalf("unexpected result: %#v", result)
	}
}

func TestDispatchActivityCommand_RemoteRejectionIsStoredNotReturned(t *testing.T) {
	rejected := core.TransportResult{StatusCode: 403, ErrorBody: `{"message":"forbidden"}`}
	cmd := NewDispatchActivityCommand(stubDispatcher{
		dispatchFn: func(context.Context, core.DispatchRequest) (core.TransportResult, error) {
			return rejected, nil
		},
	})
	collector := gocmd.NewResult[core.TransportResult]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	if err := cmd.Execute(ctx, DispatchActivityMessage{Request: core.DispatchRequest{ActivityType: core.ActivityCreateWallet}}); err != nil {
		t.Fatalf("execute dispatch: %v", err)
	}
	result, _ := collector.Load()
	if result.OK || result.StatusCode != 403 || result.ErrorBody != rejected.ErrorBody {
		t.Fatalf("expected rejection passed through, got %#v", result)
	}
}

func TestDispatchActivityCommand_PropagatesError(t *testing.T) {
	failure := core.NewError(core.ErrorSigningKeyUnavailable, goerrors.CategoryAuth, "no key")
	cmd := NewDispatchActivityCommand(stubDispatcher{
		dispatchFn: func(context.Context, core.DispatchRequest) (core.TransportResult, error) {
			return core.TransportResult{}, failure
		},
	})
	err := cmd.Execute(context.Background(), DispatchActivityMessage{Request: core.DispatchRequest{ActivityType: core.ActivityCreateWallet}})
	if !errors.Is(err, failure) {
		t.Fatalf("expected signing key error, got %v", err)
	}
}

func TestDecryptBundleCommand_StoresBundle(t *testing.T) {
	cmd := NewDecryptBundleCommand(stubDecryptor{bundle: map[string]any{"session": "s1"}})
	collector := gocmd.NewResult[map[string]any]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	if err := cmd.Execute(ctx, DecryptBundleMessage{CiphertextHex: "00", PrivateKeyHex: "00"}); err != nil {
		t.Fatalf("execute decrypt: %v", err)
	}
	bundle, ok := collector.Load()
	if !ok || bundle["session"] != "s1" {
		t.Fatalf("unexpected bundle: %#v", bundle)
	}
}

func TestDecryptBundleCommand_DefaultDecryptorReportsKind(t *testing.T) {
	pair, err := security.GenerateAgreementKeyPair()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	cmd := NewDecryptBundleCommand(nil)
	err = cmd.Execute(context.Background(), DecryptBundleMessage{CiphertextHex: "not-hex", PrivateKeyHex: pair.PrivateKey})
	if !core.IsKind(err, core.ErrorInvalidHex) {
		t.Fatalf("expected invalid hex, got %v", err)
	}
}

func TestGenerateAgreementKeyCommand_StoresPair(t *testing.T) {
	collector := gocmd.NewResult[security.AgreementKeyPair]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	if err := NewGenerateAgreementKeyCommand().Execute(ctx, GenerateAgreementKeyMessage{}); err != nil {
		t.Fatalf("execute generate: %v", err)
	}
	pair, ok := collector.Load()
	if !ok {
		t.Fatalf("expected key pair to be stored")
	}
	public, err := hex.DecodeString(pair.PublicKey)
	if err != nil || len(public) != 65 {
		t.Fatalf("expected 65-byte public key, got %q", pair.PublicKey)
	}
}

func TestGenerateSigningKeyCommand_StoresPair(t *testing.T) {
	collector := gocmd.NewResult[security.SigningKeyPair]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	if err := NewGenerateSigningKeyCommand().Execute(ctx, GenerateSigningKeyMessage{}); err != nil {
		t.Fatalf("execute generate: %v", err)
	}
	pair, ok := collector.Load()
	if !ok {
		t.Fatalf("expected key pair to be stored")
	}
	if _, err := security.ParseSigningPrivateKey(pair.PrivateKey); err != nil {
		t.Fatalf("expected parseable signing key: %v", err)
	}
}
