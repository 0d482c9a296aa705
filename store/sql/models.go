package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type dispatchEntryRecord struct {
	bun.BaseModel `bun:"table:custody_dispatch_log,alias:cdl"`

	ID             string    `bun:"id,pk"`
	ActivityType   string    `bun:"activity_type,notnull"`
	OrganizationID string    `bun:"organization_id,notnull"`
	AuthMode       string    `bun:"auth_mode,notnull"`
	Endpoint       string    `bun:"endpoint,notnull"`
	Signed         bool      `bun:"signed,notnull"`
	Status         string    `bun:"status,notnull"`
	StatusCode     int       `bun:"status_code,notnull"`
	ActivityID     string    `bun:"activity_id,notnull"`
	ErrorMessage   string    `bun:"error_message,notnull"`
	CreatedAt      time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}
