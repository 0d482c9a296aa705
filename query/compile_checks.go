package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-custody/core"
)

var (
	_ gocmd.Querier[ListDispatchLogMessage, core.DispatchLogPage] = (*ListDispatchLogQuery)(nil)
	_ gocmd.Querier[GetDispatchEntryMessage, core.DispatchEntry]  = (*GetDispatchEntryQuery)(nil)
)
