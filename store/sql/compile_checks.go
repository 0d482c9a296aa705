package sqlstore

import "github.com/goliatone/go-custody/core"

var (
	_ core.DispatchLog       = (*DispatchLogStore)(nil)
	_ core.DispatchLogReader = (*DispatchLogStore)(nil)
	_ core.DispatchLogReader = (*CachedDispatchLogReader)(nil)
	_ DispatchEntryGetter    = (*DispatchLogStore)(nil)
	_ DispatchEntryGetter    = (*CachedDispatchLogReader)(nil)
)
