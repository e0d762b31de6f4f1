package cache

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/neurlang/fwlearn/feature"
)

func TestRoundTrip(t *testing.T) {
	var records = []feature.Record{
		{6, uint32(feature.One), 6, 6},
		{8, 0, 6, 8, 0xfea, 0xfeb},
		{},
	}
	var buf bytes.Buffer
	w, err := NewWriter(&buf, 2)
	require.NoError(t, err)
	for _, r := range records {
		require.NoError(t, w.Write(r))
	}
	require.NoError(t, w.Close())

	r, err := NewReader(&buf, 2)
	require.NoError(t, err)
	for _, want := range records {
		got, err := r.Next()
		require.NoError(t, err)
		assert.Equal(t, len(want), len(got))
		for i := range want {
			assert.Equal(t, want[i], got[i])
		}
	}
	_, err = r.Next()
	assert.Equal(t, io.EOF, err)
}

func TestRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var records = rapid.SliceOf(rapid.SliceOf(rapid.Uint32())).Draw(t, "records")
		var buf bytes.Buffer
		w, err := NewWriter(&buf, 3)
		if err != nil {
			t.Fatal(err)
		}
		for _, r := range records {
			if err := w.Write(r); err != nil {
				t.Fatal(err)
			}
		}
		if err := w.Close(); err != nil {
			t.Fatal(err)
		}
		r, err := NewReader(&buf, 3)
		if err != nil {
			t.Fatal(err)
		}
		for i, want := range records {
			got, err := r.Next()
			if err != nil {
				t.Fatalf("record %d: %v", i, err)
			}
			if len(got) != len(want) {
				t.Fatalf("record %d: length %d, want %d", i, len(got), len(want))
			}
			for j := range want {
				if got[j] != want[j] {
					t.Fatalf("record %d word %d: %d, want %d", i, j, got[j], want[j])
				}
			}
		}
		if _, err := r.Next(); err != io.EOF {
			t.Fatalf("expected EOF, got %v", err)
		}
	})
}

func TestNamespaceMismatch(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, 2)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	_, err = NewReader(&buf, 3)
	require.ErrorIs(t, err, ErrNamespaces)
}

func TestNotACache(t *testing.T) {
	_, err := NewReader(bytes.NewReader([]byte("1 |A a b\n")), 2)
	require.Error(t, err)
}

func TestTruncated(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, 1)
	require.NoError(t, err)
	require.NoError(t, w.Write(feature.Record{4, 0, 4, 4}))
	// length prefix promising more words than follow
	require.NoError(t, w.bw.WriteByte(9))
	require.NoError(t, w.bw.WriteByte(0))
	require.NoError(t, w.bw.WriteByte(0))
	require.NoError(t, w.bw.WriteByte(0))
	require.NoError(t, w.Close())

	r, err := NewReader(&buf, 1)
	require.NoError(t, err)
	_, err = r.Next()
	require.NoError(t, err)
	_, err = r.Next()
	require.ErrorIs(t, err, ErrCorrupt)
}
