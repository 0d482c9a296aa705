package query

import (
	"strings"

	"github.com/goliatone/go-custody/core"
)

const (
	TypeListDispatchLog  = "custody.query.dispatch_log.list"
	TypeGetDispatchEntry = "custody.query.dispatch_log.get"
)

type ListDispatchLogMessage struct {
	Filter core.DispatchLogFilter
}

func (ListDispatchLogMessage) Type() string { return TypeListDispatchLog }

func (m ListDispatchLogMessage) Validate() error {
	if m.Filter.Page < 0 {
		return queryValidationError("page", "page must be >= 0")
	}
	if m.Filter.PerPage < 0 {
		return queryValidationError("per_page", "per_page must be >= 0")
	}
	switch m.Filter.Status {
	case "", core.DispatchStatusOK, core.DispatchStatusRejected, core.DispatchStatusFailed:
	default:
		return queryValidationError("status", "unknown dispatch status")
	}
	return nil
}

type GetDispatchEntryMessage struct {
	ID string
}

func (GetDispatchEntryMessage) Type() string { return TypeGetDispatchEntry }

func (m GetDispatchEntryMessage) Validate() error {
	if strings.TrimSpace(m.ID) == "" {
		return queryValidationError("id", "dispatch entry id is required")
	}
	return nil
}
