package history_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dekarrin/mathexpr/cmd/mathserver/history"
)

func TestOpen_EmptyPathIsNoOp(t *testing.T) {
	s, err := history.Open("")
	require.NoError(t, err)
	defer s.Close()

	e, err := s.Record(context.Background(), history.Entry{Operation: "evaluate", Expression: "1+1"})
	require.NoError(t, err)
	assert.NotEqual(t, [16]byte{}, e.ID)

	entries, err := s.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRecordAndRecent_RoundTrip(t *testing.T) {
	s, err := history.Open(t.TempDir() + "/history.db")
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Record(context.Background(), history.Entry{
		Operation:  "evaluate",
		Expression: "1+1",
		Result:     "2",
		Backend:    "bytecode",
	})
	require.NoError(t, err)

	_, err = s.Record(context.Background(), history.Entry{
		Operation:  "derive",
		Expression: "x^2",
		Result:     "2*x",
		Backend:    "bytecode",
	})
	require.NoError(t, err)

	entries, err := s.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "derive", entries[0].Operation)
	assert.Equal(t, "evaluate", entries[1].Operation)
}

func TestRecent_RespectsLimit(t *testing.T) {
	s, err := history.Open(t.TempDir() + "/history.db")
	require.NoError(t, err)
	defer s.Close()

	for i := 0; i < 5; i++ {
		_, err := s.Record(context.Background(), history.Entry{Operation: "evaluate", Expression: "1"})
		require.NoError(t, err)
	}

	entries, err := s.Recent(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
