package query

import (
	"context"
	"errors"
	"net/http"

	"github.com/goliatone/go-custody/core"
	goerrors "github.com/goliatone/go-errors"
)

type DispatchEntryReader interface {
	Get(ctx context.Context, id string) (core.DispatchEntry, error)
}

type ListDispatchLogQuery struct {
	reader core.DispatchLogReader
}

func NewListDispatchLogQuery(reader core.DispatchLogReader) *ListDispatchLogQuery {
	return &ListDispatchLogQuery{reader: reader}
}

func (q *ListDispatchLogQuery) Query(ctx context.Context, msg ListDispatchLogMessage) (core.DispatchLogPage, error) {
	if q == nil || q.reader == nil {
		return core.DispatchLogPage{}, queryDependencyError("query: dispatch log reader is required")
	}
	if err := msg.Validate(); err != nil {
		return core.DispatchLogPage{}, err
	}
	return q.reader.List(ctx, msg.Filter)
}

type GetDispatchEntryQuery struct {
	reader DispatchEntryReader
}

func NewGetDispatchEntryQuery(reader DispatchEntryReader) *GetDispatchEntryQuery {
	return &GetDispatchEntryQuery{reader: reader}
}

func (q *GetDispatchEntryQuery) Query(ctx context.Context, msg GetDispatchEntryMessage) (core.DispatchEntry, error) {
	if q == nil || q.reader == nil {
		return core.DispatchEntry{}, queryDependencyError("query: dispatch entry reader is required")
	}
	if err := msg.Validate(); err != nil {
		return core.DispatchEntry{}, err
	}
	entry, err := q.reader.Get(ctx, msg.ID)
	if err != nil {
		if errors.Is(err, core.ErrDispatchEntryNotFound) {
			return core.DispatchEntry{}, goerrors.Wrap(err, goerrors.CategoryNotFound, "query: dispatch entry not found").
				WithCode(http.StatusNotFound).
				WithTextCode("DISPATCH_ENTRY_NOT_FOUND")
		}
		return core.DispatchEntry{}, err
	}
	return entry, nil
}
