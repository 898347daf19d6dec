package codec

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/tevino/abool"

	"github.com/ssargent/slotdb/pkg/record"
	"github.com/ssargent/slotdb/pkg/schema"
	"github.com/ssargent/slotdb/pkg/serial"
)

// ProgressSink receives progress of a LoadAll scan and may cancel it.
type ProgressSink interface {
	// SetTotal is called once with the number of record slots in the file.
	SetTotal(total int)
	// Progress is called after each slot with the number of slots parsed.
	Progress(done int)
	// Cancelled is polled before each slot; returning true stops the scan.
	Cancelled() bool
}

// TableFileConfig holds configuration for a TableFile.
type TableFileConfig struct {
	Schema     schema.Options // Field types and formats applied to the header
	SyncWrites bool           // fsync after every WriteRecord
	Logger     *slog.Logger
}

// LoadResult is the outcome of LoadAll.
type LoadResult struct {
	Schema    *schema.Schema
	Records   []*record.Record
	Cancelled bool // the scan stopped early at the sink's or context's request
}

// layout is what LoadAll learns from the header.
type layout struct {
	schema      *schema.Schema
	dataOffset  int64
	recordWidth int64
}

// TableFile reads and writes one table file.
type TableFile struct {
	config TableFileConfig
	logger *slog.Logger

	mutex  sync.RWMutex
	file   *os.File
	path   string
	layout atomic.Pointer[layout]
	closed *abool.AtomicBool
}

// NewTableFile creates a TableFile with no file open.
func NewTableFile(config TableFileConfig) *TableFile {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &TableFile{
		config: config,
		logger: logger,
		closed: abool.New(),
	}
}

// Open opens path for reading and writing, replacing any file opened before.
// The content is not parsed until LoadAll.
func (t *TableFile) Open(path string) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return err
	}

	if t.file != nil {
		if err := t.file.Close(); err != nil {
			t.logger.Warn("closing previous table file", "path", t.path, "error", err)
		}
	}

	t.file = file
	t.path = path
	t.layout.Store(nil)
	t.closed.UnSet()
	t.logger.Info("opened table file", "path", path)
	return nil
}

// Path returns the path of the open file.
func (t *TableFile) Path() string {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return t.path
}

// Schema returns the schema parsed by LoadAll, or nil before that.
func (t *TableFile) Schema() *schema.Schema {
	if l := t.layout.Load(); l != nil {
		return l.schema
	}
	return nil
}

// LoadAll parses the header and every record slot. Record numbers are slot
// indexes. The scan polls ctx and sink (which may be nil) before each slot;
// a cancelled scan returns the records read so far without an error.
func (t *TableFile) LoadAll(ctx context.Context, sink ProgressSink) (*LoadResult, error) {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	if t.file == nil {
		return nil, ErrNotOpen
	}

	stat, err := t.file.Stat()
	if err != nil {
		return nil, err
	}
	size := stat.Size()

	h, err := readHeader(bufio.NewReader(io.NewSectionReader(t.file, 0, size)))
	if err != nil {
		return nil, err
	}

	s, err := schema.Build(h.columns, t.config.Schema)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptFile, err)
	}
	width := recordWidth(s)

	if h.dataOffset > size {
		return nil, corrupt("data offset %d is past the end of the %d byte file", h.dataOffset, size)
	}
	dataLen := size - h.dataOffset
	if dataLen%width != 0 {
		return nil, corrupt("premature end of file in record %d", dataLen/width)
	}
	slots := int(dataLen / width)

	t.layout.Store(&layout{schema: s, dataOffset: h.dataOffset, recordWidth: width})

	if sink != nil {
		sink.SetTotal(slots)
	}

	result := &LoadResult{
		Schema:  s,
		Records: make([]*record.Record, 0, slots),
	}

	r := bufio.NewReader(io.NewSectionReader(t.file, h.dataOffset, dataLen))
	buf := make([]byte, width)
	for n := 0; n < slots; n++ {
		if ctx.Err() != nil || (sink != nil && sink.Cancelled()) {
			result.Cancelled = true
			t.logger.Warn("table load cancelled", "path", t.path, "loaded", n, "total", slots)
			break
		}

		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, shortRead(fmt.Sprintf("record %d", n), err)
		}
		rec, err := decodeRecord(s, n, serial.Next(), buf)
		if err != nil {
			return nil, err
		}
		result.Records = append(result.Records, rec)

		if sink != nil {
			sink.Progress(n + 1)
		}
	}

	t.logger.Info("loaded table file",
		"path", t.path,
		"fields", s.NumFields(),
		"records", len(result.Records),
		"cancelled", result.Cancelled)
	return result, nil
}

// WriteRecord writes r to its slot. LoadAll must have been called first.
// After ShutDown the write is dropped and nil is returned.
func (t *TableFile) WriteRecord(r *record.Record) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.closed.IsSet() {
		return nil
	}
	if t.file == nil {
		return ErrNotOpen
	}
	l := t.layout.Load()
	if l == nil {
		return ErrNotLoaded
	}
	if r.Number() < 0 {
		return fmt.Errorf("invalid record number %d", r.Number())
	}

	buf, err := encodeRecord(l.schema, r)
	if err != nil {
		return err
	}

	offset := l.dataOffset + int64(r.Number())*l.recordWidth
	if _, err := t.file.WriteAt(buf, offset); err != nil {
		return fmt.Errorf("%w: record %d: %v", ErrWriteFailed, r.Number(), err)
	}
	if t.config.SyncWrites {
		if err := t.file.Sync(); err != nil {
			return fmt.Errorf("%w: sync record %d: %v", ErrWriteFailed, r.Number(), err)
		}
	}
	return nil
}

// ShutDown closes the file. Later writes are ignored.
func (t *TableFile) ShutDown() error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if !t.closed.SetToIf(false, true) {
		return nil
	}
	if t.file == nil {
		return nil
	}

	err := t.file.Close()
	t.file = nil
	t.logger.Info("table file shut down", "path", t.path)
	return err
}

// IsShutDown reports whether ShutDown has been called.
func (t *TableFile) IsShutDown() bool {
	return t.closed.IsSet()
}

// Create writes a new table file holding only the header for columns. An
// existing file is replaced only when overwrite is set.
func Create(path string, columns []schema.Column, overwrite bool) error {
	head, err := encodeHeader(columns)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return err
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_EXCL
	if overwrite {
		flags = os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	}
	file, err := os.OpenFile(path, flags, 0600)
	if err != nil {
		return err
	}

	if _, err := file.Write(head); err != nil {
		file.Close()
		return err
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
