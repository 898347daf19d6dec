package coordinator

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/slotdb/pkg/codec"
	"github.com/ssargent/slotdb/pkg/schema"
	"github.com/ssargent/slotdb/pkg/serial"
	"github.com/ssargent/slotdb/pkg/store"
)

func setupCoordinator(t *testing.T) (*Coordinator, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hotels.db")
	columns := []schema.Column{
		{Name: "name", Width: 16},
		{Name: "city", Width: 16},
		{Name: "rate", Width: 8},
	}
	require.NoError(t, codec.Create(path, columns, false))

	table, err := store.Open(context.Background(), store.TableConfig{
		Path: path,
		Schema: schema.Options{
			Formats: schema.DefaultFormats(),
			Fields: []schema.FieldOptions{
				{Name: "rate", Type: schema.TypeCurrency, Displayable: true, Modifiable: true},
			},
		},
	})
	require.NoError(t, err)

	c := New(table, nil)
	t.Cleanup(func() { c.ShutDown() })
	return c, path
}

func str(s string) *string { return &s }

func hotel(name, city string, cents int64) []schema.Value {
	return []schema.Value{schema.Text(name), schema.Text(city), schema.Currency(cents)}
}

func mustCreate(t *testing.T, c *Coordinator, values []schema.Value) int {
	t.Helper()
	r, err := c.CreateRecord(values)
	require.NoError(t, err)
	return r.Number()
}

func TestCoordinator_Find(t *testing.T) {
	c, _ := setupCoordinator(t)

	mustCreate(t, c, hotel("Fred's Inn", "Paris", 10000))
	mustCreate(t, c, hotel("Frederick", "Rome", 20000))
	mustCreate(t, c, hotel("Alfred", "Fredonia", 30000))
	gone := mustCreate(t, c, hotel("Fred Deleted", "Oslo", 5000))

	owner := store.NewOwner()
	r, err := c.GetRecord(gone)
	require.NoError(t, err)
	_, err = c.Lock(gone, owner, r.Stamp())
	require.NoError(t, err)
	_, err = c.DeleteRecord(gone, owner, r.Stamp())
	require.NoError(t, err)

	testCases := []struct {
		name     string
		criteria []*string
		want     []int
	}{
		{"prefix ignores case", []*string{str("fred"), nil, nil}, []int{0, 1}},
		{"upper case criterion", []*string{str("FRED"), nil, nil}, []int{0, 1}},
		{"all nil matches every live record", []*string{nil, nil, nil}, []int{0, 1, 2}},
		{"empty string matches everything", []*string{str(""), nil, nil}, []int{0, 1, 2}},
		{"every criterion must match", []*string{str("fred"), str("rome"), nil}, []int{1}},
		{"formatted value is searched", []*string{nil, nil, str("$300")}, []int{2}},
		{"prefix not substring", []*string{str("red"), nil, nil}, nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := c.Find(tc.criteria)
			require.NoError(t, err)
			if tc.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tc.want, got)
		})
	}

	_, err = c.Find([]*string{str("fred")})
	assert.ErrorIs(t, err, store.ErrInvalidFields)
}

func TestCoordinator_LockModifyUnlock(t *testing.T) {
	c, path := setupCoordinator(t)
	n := mustCreate(t, c, hotel("Paris", "Paris", 10000))
	r, err := c.GetRecord(n)
	require.NoError(t, err)

	owner := store.NewOwner()
	stamp, err := c.Lock(n, owner, r.Stamp())
	require.NoError(t, err)
	assert.Equal(t, r.Stamp(), stamp)

	locked, err := c.IsLocked(n)
	require.NoError(t, err)
	assert.True(t, locked)

	prev := stamp
	for _, name := range []string{"Pariss", "Parisss", "Le Paris"} {
		next, err := c.ModifyRecord(n, owner, prev, []schema.Value{schema.Text(name), nil, nil})
		require.NoError(t, err)
		assert.True(t, next.After(prev), "stamps must increase")
		prev = next
	}

	got, err := c.GetRecord(n)
	require.NoError(t, err)
	assert.Equal(t, hotel("Le Paris", "Paris", 10000), got.Fields())

	require.NoError(t, c.Unlock(n, owner, prev))
	locked, err = c.IsLocked(n)
	require.NoError(t, err)
	assert.False(t, locked)

	// The change reached the file.
	table, err := store.Open(context.Background(), store.TableConfig{
		Path: path,
		Schema: schema.Options{Formats: schema.DefaultFormats(), Fields: []schema.FieldOptions{
			{Name: "rate", Type: schema.TypeCurrency},
		}},
	})
	require.NoError(t, err)
	defer table.ShutDown()
	disk, ok := table.GetRecord(n)
	require.True(t, ok)
	assert.Equal(t, schema.Text("Le Paris"), disk.Field(0))
}

func TestCoordinator_OwnershipChecks(t *testing.T) {
	c, _ := setupCoordinator(t)
	n := mustCreate(t, c, hotel("Paris", "Paris", 10000))
	r, _ := c.GetRecord(n)

	alice, bob := store.NewOwner(), store.NewOwner()

	_, err := c.ModifyRecord(n, alice, r.Stamp(), hotel("x", "y", 1))
	assert.ErrorIs(t, err, store.ErrNotLocked)
	assert.ErrorIs(t, c.Unlock(n, alice, r.Stamp()), store.ErrNotLocked)
	_, err = c.DeleteRecord(n, alice, r.Stamp())
	assert.ErrorIs(t, err, store.ErrNotLocked)

	_, err = c.Lock(n, alice, r.Stamp())
	require.NoError(t, err)

	_, err = c.ModifyRecord(n, bob, r.Stamp(), hotel("x", "y", 1))
	assert.ErrorIs(t, err, store.ErrNotLocked)
	assert.ErrorIs(t, c.Unlock(n, bob, r.Stamp()), store.ErrNotLocked)

	_, err = c.Lock(n, store.NoOwner, r.Stamp())
	assert.ErrorIs(t, err, store.ErrInvalidOwner)

	got, _ := c.GetRecord(n)
	assert.Equal(t, r, got, "rejected requests must not change the record")
	require.NoError(t, c.Unlock(n, alice, r.Stamp()))
}

func TestCoordinator_StaleDetection(t *testing.T) {
	c, _ := setupCoordinator(t)
	n := mustCreate(t, c, hotel("Paris", "Paris", 10000))
	r, _ := c.GetRecord(n)
	s0 := r.Stamp()

	alice, bob := store.NewOwner(), store.NewOwner()

	// Bob changes the record.
	_, err := c.Lock(n, bob, s0)
	require.NoError(t, err)
	s1, err := c.ModifyRecord(n, bob, s0, []schema.Value{nil, schema.Text("Lyon"), nil})
	require.NoError(t, err)
	require.True(t, s1.After(s0))

	// Bob's own old stamp is now stale for further changes.
	_, err = c.ModifyRecord(n, bob, s0, []schema.Value{nil, schema.Text("Nice"), nil})
	assert.ErrorIs(t, err, store.ErrStale)
	assert.ErrorIs(t, c.Unlock(n, bob, s0), store.ErrStale)
	require.NoError(t, c.Unlock(n, bob, s1))

	// Alice still holds s0.
	_, err = c.Lock(n, alice, s0)
	assert.ErrorIs(t, err, store.ErrStale)
	locked, _ := c.IsLocked(n)
	assert.False(t, locked)

	// After re-reading she can lock and delete.
	_, err = c.Lock(n, alice, s1)
	require.NoError(t, err)
	_, err = c.DeleteRecord(n, alice, s0)
	assert.ErrorIs(t, err, store.ErrStale)
	_, err = c.DeleteRecord(n, alice, s1)
	require.NoError(t, err)
}

func TestCoordinator_NotFound(t *testing.T) {
	c, _ := setupCoordinator(t)
	owner := store.NewOwner()

	_, err := c.GetRecord(0)
	assert.ErrorIs(t, err, store.ErrRecordNotFound)
	_, err = c.Lock(0, owner, serial.Number{})
	assert.ErrorIs(t, err, store.ErrRecordNotFound)
	_, err = c.IsLocked(0)
	assert.ErrorIs(t, err, store.ErrRecordNotFound)
	assert.ErrorIs(t, c.Unlock(0, owner, serial.Number{}), store.ErrRecordNotFound)
}

func TestCoordinator_DeleteAndReuse(t *testing.T) {
	c, _ := setupCoordinator(t)
	for i := 0; i < 5; i++ {
		mustCreate(t, c, hotel("h", "c", int64(i)))
	}

	r, _ := c.GetRecord(3)
	owner := store.NewOwner()
	_, err := c.Lock(3, owner, r.Stamp())
	require.NoError(t, err)
	deletedStamp, err := c.DeleteRecord(3, owner, r.Stamp())
	require.NoError(t, err)

	_, err = c.GetRecord(3)
	assert.ErrorIs(t, err, store.ErrRecordNotFound)
	holder, err := c.LockOwner(3)
	require.NoError(t, err)
	assert.Equal(t, store.NoOwner, holder, "delete releases the lock")

	created, err := c.CreateRecord(hotel("new", "c", 1))
	require.NoError(t, err)
	assert.Equal(t, 3, created.Number())
	assert.True(t, created.Stamp().After(deletedStamp))
}

func TestCoordinator_LockBlocksAndRevalidates(t *testing.T) {
	c, _ := setupCoordinator(t)
	n := mustCreate(t, c, hotel("Paris", "Paris", 10000))
	r, _ := c.GetRecord(n)
	s0 := r.Stamp()

	alice, bob := store.NewOwner(), store.NewOwner()
	_, err := c.Lock(n, alice, s0)
	require.NoError(t, err)

	result := make(chan error, 1)
	go func() {
		_, err := c.Lock(n, bob, s0)
		result <- err
	}()

	select {
	case err := <-result:
		t.Fatalf("bob's lock returned while alice held it: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	s1, err := c.ModifyRecord(n, alice, s0, []schema.Value{schema.Text("Changed"), nil, nil})
	require.NoError(t, err)
	require.NoError(t, c.Unlock(n, alice, s1))

	select {
	case err := <-result:
		assert.ErrorIs(t, err, store.ErrStale, "bob waited with a stamp that went stale")
	case <-time.After(time.Second):
		t.Fatal("bob's lock never returned")
	}

	holder, err := c.LockOwner(n)
	require.NoError(t, err)
	assert.Equal(t, store.NoOwner, holder, "a rejected waiter releases the lock")
}

func TestCoordinator_WaiterSeesDeletion(t *testing.T) {
	c, _ := setupCoordinator(t)
	n := mustCreate(t, c, hotel("Paris", "Paris", 10000))
	r, _ := c.GetRecord(n)

	alice, bob := store.NewOwner(), store.NewOwner()
	_, err := c.Lock(n, alice, r.Stamp())
	require.NoError(t, err)

	result := make(chan error, 1)
	go func() {
		_, err := c.Lock(n, bob, r.Stamp())
		result <- err
	}()
	time.Sleep(20 * time.Millisecond)

	_, err = c.DeleteRecord(n, alice, r.Stamp())
	require.NoError(t, err)

	select {
	case err := <-result:
		assert.ErrorIs(t, err, store.ErrRecordNotFound)
	case <-time.After(time.Second):
		t.Fatal("bob's lock never returned")
	}
}

func TestCoordinator_RelockBySameOwner(t *testing.T) {
	c, _ := setupCoordinator(t)
	n := mustCreate(t, c, hotel("Paris", "Paris", 10000))
	r, _ := c.GetRecord(n)
	owner := store.NewOwner()

	_, err := c.Lock(n, owner, r.Stamp())
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := c.Lock(n, owner, r.Stamp())
		assert.NoError(t, err)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("relocking by the holder deadlocked")
	}
	require.NoError(t, c.Unlock(n, owner, r.Stamp()))
}

func TestCoordinator_Validation(t *testing.T) {
	c, _ := setupCoordinator(t)
	n := mustCreate(t, c, hotel("Paris", "Paris", 10000))
	r, _ := c.GetRecord(n)
	owner := store.NewOwner()
	_, err := c.Lock(n, owner, r.Stamp())
	require.NoError(t, err)

	_, err = c.ModifyRecord(n, owner, r.Stamp(), []schema.Value{schema.Text("x")})
	assert.ErrorIs(t, err, store.ErrInvalidFields)

	_, err = c.ModifyRecord(n, owner, r.Stamp(), []schema.Value{nil, nil, schema.Text("$1.00")})
	assert.ErrorIs(t, err, store.ErrInvalidFields)

	_, err = c.CreateRecord([]schema.Value{schema.Integer(1), nil, nil})
	assert.ErrorIs(t, err, store.ErrInvalidFields)

	got, _ := c.GetRecord(n)
	assert.Equal(t, r, got)
}

func TestCoordinator_RejectsValuesWiderThanColumn(t *testing.T) {
	c, path := setupCoordinator(t)

	// $100000.00 needs 10 bytes; the rate column has 8.
	_, err := c.CreateRecord(hotel("Paris", "Paris", 10000000))
	assert.ErrorIs(t, err, store.ErrInvalidFields)
	assert.ErrorContains(t, err, `"rate"`)

	n := mustCreate(t, c, hotel("Paris", "Paris", 999999))
	r, err := c.GetRecord(n)
	require.NoError(t, err)
	owner := store.NewOwner()
	_, err = c.Lock(n, owner, r.Stamp())
	require.NoError(t, err)
	_, err = c.ModifyRecord(n, owner, r.Stamp(), []schema.Value{nil, nil, schema.Currency(10000000)})
	assert.ErrorIs(t, err, store.ErrInvalidFields)

	// Strings are still cut to the column width.
	_, err = c.ModifyRecord(n, owner, r.Stamp(), []schema.Value{schema.Text("The Grand Hotel de Paris"), nil, nil})
	require.NoError(t, err)
	require.NoError(t, c.ShutDown())

	table, err := store.Open(context.Background(), store.TableConfig{
		Path: path,
		Schema: schema.Options{Formats: schema.DefaultFormats(), Fields: []schema.FieldOptions{
			{Name: "rate", Type: schema.TypeCurrency},
		}},
	})
	require.NoError(t, err, "the table must still load")
	defer table.ShutDown()
	disk, ok := table.GetRecord(n)
	require.True(t, ok)
	assert.Equal(t, hotel("The Grand Hotel", "Paris", 999999), disk.Fields())
}

func TestCoordinator_CreateFillsZeroValues(t *testing.T) {
	c, _ := setupCoordinator(t)

	r, err := c.CreateRecord([]schema.Value{schema.Text("Paris"), nil, nil})
	require.NoError(t, err)
	assert.Equal(t, hotel("Paris", "", 0), r.Fields())
}

func TestCoordinator_ParseAndFormat(t *testing.T) {
	c, _ := setupCoordinator(t)

	values, err := c.ParseFields([]*string{str("Paris"), nil, str("$150.00")})
	require.NoError(t, err)
	assert.Equal(t, []schema.Value{schema.Text("Paris"), nil, schema.Currency(15000)}, values)

	_, err = c.ParseFields([]*string{str("Paris"), nil, str("cheap")})
	assert.ErrorIs(t, err, store.ErrInvalidFields)

	_, err = c.ParseFields([]*string{str("Paris")})
	assert.ErrorIs(t, err, store.ErrInvalidFields)

	texts, err := c.FormatFields(hotel("Paris", "Paris", 15050))
	require.NoError(t, err)
	assert.Equal(t, []string{"Paris", "Paris", "$150.50"}, texts)

	_, err = c.FormatFields([]schema.Value{schema.Text("Paris"), nil, nil})
	assert.ErrorIs(t, err, store.ErrInvalidFields)

	assert.Len(t, c.FieldParsers(), 3)
	assert.Equal(t, schema.TypeCurrency, c.FieldParsers()[2].Type())
}

func TestCoordinator_WritesAfterShutDownAreDropped(t *testing.T) {
	c, path := setupCoordinator(t)
	n := mustCreate(t, c, hotel("Paris", "Paris", 10000))
	r, _ := c.GetRecord(n)
	owner := store.NewOwner()
	_, err := c.Lock(n, owner, r.Stamp())
	require.NoError(t, err)

	require.NoError(t, c.ShutDown())
	_, err = c.ModifyRecord(n, owner, r.Stamp(), []schema.Value{schema.Text("Late"), nil, nil})
	assert.NoError(t, err)

	table, err := store.Open(context.Background(), store.TableConfig{
		Path: path,
		Schema: schema.Options{Formats: schema.DefaultFormats(), Fields: []schema.FieldOptions{
			{Name: "rate", Type: schema.TypeCurrency},
		}},
	})
	require.NoError(t, err)
	defer table.ShutDown()
	disk, _ := table.GetRecord(n)
	assert.Equal(t, schema.Text("Paris"), disk.Field(0))
}
