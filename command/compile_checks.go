package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[DispatchActivityMessage]     = (*DispatchActivityCommand)(nil)
	_ gocmd.Commander[DecryptBundleMessage]        = (*DecryptBundleCommand)(nil)
	_ gocmd.Commander[GenerateAgreementKeyMessage] = (*GenerateAgreementKeyCommand)(nil)
	_ gocmd.Commander[GenerateSigningKeyMessage]   = (*GenerateSigningKeyCommand)(nil)
)
