package seqindex

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIndexLookupAbsent(t *testing.T) {
	idx := New()
	_, ok := idx.Lookup(Key{Topic: "t", Producer: "p"})
	require.False(t, ok)
}

func TestIndexInsertThenLookup(t *testing.T) {
	idx := New()
	key := Key{Topic: "t", Producer: "p"}
	idx.Insert(key, 5)
	v, ok := idx.Lookup(key)
	require.True(t, ok)
	require.Equal(t, uint64(5), v)
	require.Equal(t, 1, idx.Len())
}

func TestIndexInsertTwicePanics(t *testing.T) {
	idx := New()
	key := Key{Topic: "t", Producer: "p"}
	idx.Insert(key, 5)
	require.Panics(t, func() { idx.Insert(key, 6) })
}

func TestIndexUpdateAbsentPanics(t *testing.T) {
	idx := New()
	require.Panics(t, func() { idx.Update(Key{Topic: "t", Producer: "p"}, 1) })
}

func TestIndexUpdateMonotonic(t *testing.T) {
	idx := New()
	key := Key{Topic: "t", Producer: "p"}
	idx.Insert(key, 5)
	idx.Update(key, 7)
	v, _ := idx.Lookup(key)
	require.Equal(t, uint64(7), v)
	require.Panics(t, func() { idx.Update(key, 6) })
}

func TestParseResetPolicy(t *testing.T) {
	require.Equal(t, ResetEarliest, ParseResetPolicy("earliest"))
	require.Equal(t, ResetLatest, ParseResetPolicy("latest"))
	require.Equal(t, ResetLatest, ParseResetPolicy(""))
	require.Equal(t, "earliest", ResetEarliest.String())
	require.Equal(t, "latest", ResetLatest.String())
}
