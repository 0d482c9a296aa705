package custody

import (
	"fmt"

	custodycommand "github.com/goliatone/go-custody/command"
	"github.com/goliatone/go-custody/core"
	custodyquery "github.com/goliatone/go-custody/query"
)

type Commands struct {
	DispatchActivity     *custodycommand.DispatchActivityCommand
	DecryptBundle        *custodycommand.DecryptBundleCommand
	GenerateAgreementKey *custodycommand.GenerateAgreementKeyCommand
	GenerateSigningKey   *custodycommand.GenerateSigningKeyCommand
}

// Queries is empty unless a dispatch log reader is available.
type Queries struct {
	ListDispatchLog  *custodyquery.ListDispatchLogQuery
	GetDispatchEntry *custodyquery.GetDispatchEntryQuery
}

type Facade struct {
	service  custodycommand.Dispatcher
	commands Commands
	queries  Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	dispatchLogReader core.DispatchLogReader
	decryptor         custodycommand.BundleDecryptor
}

func WithDispatchLogReader(reader core.DispatchLogReader) FacadeOption {
	return func(options *facadeOptions) {
		options.dispatchLogReader = reader
	}
}

func WithBundleDecryptor(decryptor custodycommand.BundleDecryptor) FacadeOption {
	return func(options *facadeOptions) {
		options.decryptor = decryptor
	}
}

func NewFacade(service custodycommand.Dispatcher, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("custody: dispatch service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	reader := cfg.dispatchLogReader
	if reader == nil {
		reader = resolveDispatchLogReader(service)
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		DispatchActivity:     custodycommand.NewDispatchActivityCommand(service),
		DecryptBundle:        custodycommand.NewDecryptBundleCommand(cfg.decryptor),
		GenerateAgreementKey: custodycommand.NewGenerateAgreementKeyCommand(),
		GenerateSigningKey:   custodycommand.NewGenerateSigningKeyCommand(),
	}
	if reader != nil {
		facade.queries.ListDispatchLog = custodyquery.NewListDispatchLogQuery(reader)
		if getter, ok := reader.(custodyquery.DispatchEntryReader); ok {
			facade.queries.GetDispatchEntry = custodyquery.NewGetDispatchEntryQuery(getter)
		}
	}
	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() custodycommand.Dispatcher {
	if f == nil {
		return nil
	}
	return f.service
}

// resolveDispatchLogReader reuses the service's dispatch log sink when it can
// also be read back.
func resolveDispatchLogReader(service custodycommand.Dispatcher) core.DispatchLogReader {
	if reader, ok := service.(core.DispatchLogReader); ok {
		return reader
	}
	provider, ok := service.(interface {
		Dependencies() core.ServiceDependencies
	})
	if !ok {
		return nil
	}
	reader, _ := provider.Dependencies().DispatchLog.(core.DispatchLogReader)
	return reader
}
