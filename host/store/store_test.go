package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scancount/host/scanner"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "scans.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testScan(taken time.Time) *scanner.Scan {
	return &scanner.Scan{
		Taken:    taken,
		Columns:  4,
		Duration: 1.5,
		Channels: [][]uint16{
			{1, 2, 3, 4},
			{0, 0, 65535, 9},
		},
		Clipped: 0x2,
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	s := openTestStore(t)

	taken := time.Unix(1700000000, 12345)
	require.NoError(t, s.Put(testScan(taken)))

	got, err := s.Get(taken)
	require.NoError(t, err)
	assert.True(t, got.Taken.Equal(taken))
	assert.Equal(t, 4, got.Columns)
	assert.Equal(t, [][]uint16{{1, 2, 3, 4}, {0, 0, 65535, 9}}, got.Channels)
	assert.EqualValues(t, 0x2, got.Clipped)
}

func TestGetMissing(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Get(time.Unix(42, 0))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListChronological(t *testing.T) {
	s := openTestStore(t)

	t2 := time.Unix(2000, 0)
	t1 := time.Unix(1000, 0)
	t3 := time.Unix(3000, 0)
	for _, taken := range []time.Time{t2, t1, t3} {
		require.NoError(t, s.Put(testScan(taken)))
	}

	times, err := s.List()
	require.NoError(t, err)
	require.Len(t, times, 3)
	assert.True(t, times[0].Equal(t1))
	assert.True(t, times[1].Equal(t2))
	assert.True(t, times[2].Equal(t3))
}

func TestLatest(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Latest()
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put(testScan(time.Unix(1000, 0))))
	require.NoError(t, s.Put(testScan(time.Unix(5000, 0))))

	got, err := s.Latest()
	require.NoError(t, err)
	assert.True(t, got.Taken.Equal(time.Unix(5000, 0)))
}
