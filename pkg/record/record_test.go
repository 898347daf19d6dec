package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/slotdb/pkg/schema"
	"github.com/ssargent/slotdb/pkg/serial"
)

func testSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.Build(
		[]schema.Column{{Name: "name", Width: 8}, {Name: "rate", Width: 6}},
		schema.Options{
			Formats: schema.DefaultFormats(),
			Fields:  []schema.FieldOptions{{Name: "rate", Type: schema.TypeInteger, Modifiable: true}},
		},
	)
	require.NoError(t, err)
	return s
}

func TestRecord_Immutable(t *testing.T) {
	fields := []schema.Value{schema.Text("Paris"), schema.Integer(100)}
	r := New(3, serial.Next(), false, fields)

	fields[0] = schema.Text("Rome")
	assert.Equal(t, schema.Text("Paris"), r.Field(0))

	out := r.Fields()
	out[1] = schema.Integer(1)
	assert.Equal(t, schema.Integer(100), r.Field(1))

	assert.Equal(t, 3, r.Number())
	assert.Equal(t, 2, r.NumFields())
	assert.False(t, r.Deleted())
}

func TestRecord_Merge(t *testing.T) {
	first := serial.Next()
	r := New(0, first, false, []schema.Value{schema.Text("Paris"), schema.Integer(100)})

	next := serial.Next()
	merged, err := r.Merge([]schema.Value{schema.Text("Pariss"), nil}, next, false)
	require.NoError(t, err)

	assert.Equal(t, schema.Text("Pariss"), merged.Field(0))
	assert.Equal(t, schema.Integer(100), merged.Field(1))
	assert.Equal(t, next, merged.Stamp())
	assert.Equal(t, schema.Text("Paris"), r.Field(0), "original snapshot must not change")

	deleted, err := r.Merge(nil, serial.Next(), true)
	require.NoError(t, err)
	assert.True(t, deleted.Deleted())
	assert.Equal(t, r.Fields(), deleted.Fields())

	_, err = r.Merge([]schema.Value{nil}, serial.Next(), false)
	assert.Error(t, err)
}

func TestRecord_Conforms(t *testing.T) {
	s := testSchema(t)

	good := New(0, serial.Next(), false, []schema.Value{schema.Text("Paris"), schema.Integer(100)})
	require.NoError(t, good.Conforms(s))

	wrongType := New(0, serial.Next(), false, []schema.Value{schema.Text("Paris"), schema.Text("100")})
	assert.Error(t, wrongType.Conforms(s))

	short := New(0, serial.Next(), false, []schema.Value{schema.Text("Paris")})
	assert.Error(t, short.Conforms(s))

	missing := New(0, serial.Next(), false, []schema.Value{schema.Text("Paris"), nil})
	assert.Error(t, missing.Conforms(s))
}
