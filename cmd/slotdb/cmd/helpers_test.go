package cmd

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/slotdb/pkg/schema"
)

func testSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.Build([]schema.Column{
		{Name: "name", Width: 16},
		{Name: "rate", Width: 8},
		{Name: "owner", Width: 8},
	}, schema.Options{
		Formats: schema.DefaultFormats(),
		Fields: []schema.FieldOptions{
			{Name: "rate", Type: schema.TypeCurrency, Searchable: true, Displayable: true, Modifiable: true},
			{Name: "owner", Type: schema.TypeString, Modifiable: true},
		},
	})
	require.NoError(t, err)
	return s
}

func TestParseAssignments(t *testing.T) {
	s := testSchema(t)

	tests := []struct {
		name     string
		args     []string
		expected []string // "<nil>" marks an unset field
		wantErr  bool
	}{
		{"none", nil, []string{"<nil>", "<nil>", "<nil>"}, false},
		{"some fields", []string{"rate=$10", "name=Inn"}, []string{"Inn", "$10", "<nil>"}, false},
		{"empty value", []string{"owner="}, []string{"<nil>", "<nil>", ""}, false},
		{"value with equals", []string{"name=a=b"}, []string{"a=b", "<nil>", "<nil>"}, false},
		{"missing equals", []string{"name"}, nil, true},
		{"unknown field", []string{"stars=5"}, nil, true},
		{"duplicate field", []string{"name=a", "name=b"}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			texts, err := parseAssignments(s, tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Len(t, texts, len(tt.expected))
			for i, want := range tt.expected {
				if want == "<nil>" {
					assert.Nil(t, texts[i], "field %d", i)
				} else {
					require.NotNil(t, texts[i], "field %d", i)
					assert.Equal(t, want, *texts[i])
				}
			}
		})
	}
}

func TestParseRecordNumber(t *testing.T) {
	n, err := parseRecordNumber("12")
	assert.NoError(t, err)
	assert.Equal(t, 12, n)

	for _, arg := range []string{"-1", "x", ""} {
		_, err := parseRecordNumber(arg)
		assert.Error(t, err, arg)
	}
}

func TestPrintRecord_SkipsHiddenFields(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printRecord(&buf, testSchema(t), 4, []string{"Inn", "$10.00", "secret"}))

	out := buf.String()
	assert.Contains(t, out, "record  4")
	assert.Contains(t, out, "name    Inn")
	assert.Contains(t, out, "rate    $10.00")
	assert.NotContains(t, out, "secret")
}

func TestLoadProgress(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx, cancel := context.WithCancel(context.Background())

	p := newLoadProgress(ctx, logger)
	p.SetTotal(25)
	for done := 1; done <= 25; done++ {
		p.Progress(done)
	}
	// Every second slot plus the last one
	assert.Equal(t, 1+12+1, strings.Count(buf.String(), "msg="))
	assert.False(t, p.Cancelled())

	cancel()
	assert.True(t, p.Cancelled())

	empty := newLoadProgress(context.Background(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	empty.SetTotal(0)
	assert.False(t, empty.Cancelled())
}
