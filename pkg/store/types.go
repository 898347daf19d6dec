package store

import (
	"log/slog"

	"github.com/segmentio/ksuid"

	"github.com/ssargent/slotdb/pkg/codec"
	"github.com/ssargent/slotdb/pkg/schema"
)

// Owner identifies the holder of a record lock. Each client session has its
// own Owner; NoOwner means the record is unlocked.
type Owner = ksuid.KSUID

// NoOwner is the owner of an unlocked record.
var NoOwner = ksuid.Nil

// NewOwner returns a fresh, unique owner identity.
func NewOwner() Owner {
	return ksuid.New()
}

// TableConfig holds configuration for opening a record table
type TableConfig struct {
	Path       string             // Path to the table file
	Schema     schema.Options     // Field types and formats
	SyncWrites bool               // fsync after every record write
	Progress   codec.ProgressSink // Optional sink for the initial load
	Logger     *slog.Logger
}

// TableStats holds statistics about the table
type TableStats struct {
	Slots     int `json:"slots"`
	Live      int `json:"live"`
	Deleted   int `json:"deleted"`
	Locked    int `json:"locked"`
	FreeSlots int `json:"free_slots"`
}

// Errors
var (
	ErrRecordNotFound = &TableError{"record not found"}
	ErrStale          = &TableError{"record has changed since it was last read"}
	ErrNotLocked      = &TableError{"record is not locked by this client"}
	ErrDuplicateKey   = &TableError{"duplicate key"}
	ErrInvalidFields  = &TableError{"invalid field values"}
	ErrInvalidOwner   = &TableError{"invalid lock owner"}

	ErrCorruptFile = codec.ErrCorruptFile
	ErrWriteFailed = codec.ErrWriteFailed
)

// TableError represents a record table error
type TableError struct {
	Message string
}

func (e *TableError) Error() string {
	return e.Message
}
