package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/slotdb/pkg/codec"
	"github.com/ssargent/slotdb/pkg/schema"
	"github.com/ssargent/slotdb/pkg/serial"
)

func testConfig(path string) TableConfig {
	return TableConfig{
		Path: path,
		Schema: schema.Options{
			Formats: schema.DefaultFormats(),
			Fields: []schema.FieldOptions{
				{Name: "rate", Type: schema.TypeInteger, Searchable: true, Displayable: true, Modifiable: true},
			},
		},
	}
}

func openTestTable(t *testing.T) (*RecordTable, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "table.db")
	require.NoError(t, codec.Create(path, []schema.Column{{Name: "name", Width: 8}, {Name: "rate", Width: 6}}, false))

	table, err := Open(context.Background(), testConfig(path))
	require.NoError(t, err)
	t.Cleanup(func() { table.ShutDown() })
	return table, path
}

func fields(name string, rate int64) []schema.Value {
	return []schema.Value{schema.Text(name), schema.Integer(rate)}
}

func TestRecordTable_CreateAndGet(t *testing.T) {
	table, _ := openTestTable(t)

	for i, name := range []string{"Paris", "Rome", "Oslo"} {
		r, err := table.CreateRecord(fields(name, int64(i)))
		require.NoError(t, err)
		assert.Equal(t, i, r.Number())
	}

	r, ok := table.GetRecord(1)
	require.True(t, ok)
	assert.Equal(t, schema.Text("Rome"), r.Field(0))

	_, ok = table.GetRecord(3)
	assert.False(t, ok)

	assert.Len(t, table.Records(), 3)
	assert.Equal(t, TableStats{Slots: 3, Live: 3}, table.Stats())
}

func TestRecordTable_CreateRejectsBadFields(t *testing.T) {
	table, _ := openTestTable(t)

	_, err := table.CreateRecord([]schema.Value{schema.Text("Paris"), schema.Text("100")})
	assert.ErrorIs(t, err, schema.ErrInvalidValue)
}

func TestRecordTable_SlotReuse(t *testing.T) {
	table, _ := openTestTable(t)
	for i := 0; i < 5; i++ {
		_, err := table.CreateRecord(fields("r", int64(i)))
		require.NoError(t, err)
	}

	old, _ := table.GetRecord(3)
	deleted, err := old.Merge(nil, serial.Next(), true)
	require.NoError(t, err)
	require.NoError(t, table.AddModifiedRecord(deleted))
	table.AddToDeleteList(3)

	assert.Equal(t, 1, table.Stats().FreeSlots)

	created, err := table.CreateRecord(fields("new", 9))
	require.NoError(t, err)
	assert.Equal(t, 3, created.Number())
	assert.True(t, created.Stamp().After(deleted.Stamp()))

	next, err := table.CreateRecord(fields("fresh", 10))
	require.NoError(t, err)
	assert.Equal(t, 5, next.Number(), "fresh numbers continue after the highest slot")
}

func TestRecordTable_PersistsAcrossReopen(t *testing.T) {
	table, path := openTestTable(t)

	_, err := table.CreateRecord(fields("Paris", 100))
	require.NoError(t, err)
	r, err := table.CreateRecord(fields("Rome", 200))
	require.NoError(t, err)

	deleted, err := r.Merge(nil, serial.Next(), true)
	require.NoError(t, err)
	require.NoError(t, table.AddModifiedRecord(deleted))
	require.NoError(t, table.ShutDown())

	reopened, err := Open(context.Background(), testConfig(path))
	require.NoError(t, err)
	defer reopened.ShutDown()

	assert.Equal(t, TableStats{Slots: 2, Live: 1, Deleted: 1, FreeSlots: 1}, reopened.Stats())

	paris, ok := reopened.GetRecord(0)
	require.True(t, ok)
	assert.Equal(t, fields("Paris", 100), paris.Fields())

	created, err := reopened.CreateRecord(fields("Nice", 1))
	require.NoError(t, err)
	assert.Equal(t, 1, created.Number(), "deleted slot found on load is reused")
}

func TestRecordTable_Locks(t *testing.T) {
	table, _ := openTestTable(t)
	_, err := table.CreateRecord(fields("Paris", 100))
	require.NoError(t, err)

	alice, bob := NewOwner(), NewOwner()

	require.NoError(t, table.Lock(0, alice))
	owner, err := table.LockOwner(0)
	require.NoError(t, err)
	assert.Equal(t, alice, owner)
	assert.Equal(t, 1, table.Stats().Locked)

	require.NoError(t, table.Unlock(0, bob))
	owner, _ = table.LockOwner(0)
	assert.Equal(t, alice, owner, "unlock by a non-owner is ignored")

	require.NoError(t, table.Unlock(0, alice))
	owner, _ = table.LockOwner(0)
	assert.Equal(t, NoOwner, owner)

	assert.ErrorIs(t, table.Lock(7, alice), ErrRecordNotFound)
	assert.ErrorIs(t, table.Unlock(7, alice), ErrRecordNotFound)
	_, err = table.LockOwner(7)
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestRecordTable_AddModifiedRecordUnknownSlot(t *testing.T) {
	table, _ := openTestTable(t)

	r, err := table.CreateRecord(fields("Paris", 100))
	require.NoError(t, err)

	other, err := r.Merge(nil, serial.Next(), false)
	require.NoError(t, err)
	require.NoError(t, table.AddModifiedRecord(other))

	table2, _ := openTestTable(t)
	assert.ErrorIs(t, table2.AddModifiedRecord(other), ErrRecordNotFound)
}

func TestRecordTable_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.db")
	require.NoError(t, codec.Create(path, []schema.Column{{Name: "name", Width: 8}}, false))

	_, err := Open(context.Background(), TableConfig{Path: path, Schema: schema.Options{
		Fields: []schema.FieldOptions{{Name: "name", Type: schema.FieldType(99)}},
	}})
	assert.ErrorIs(t, err, ErrCorruptFile)

	_, err = Open(context.Background(), TableConfig{Path: filepath.Join(t.TempDir(), "missing.db")})
	assert.Error(t, err)
}
