package alert

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultwatch/vaultwatch/internal/domain"
)

func TestLogAppendAndSnapshot(t *testing.T) {
	l := NewLog()
	l.Append(domain.Alert{ID: "a"}, domain.Alert{ID: "b"})
	l.Append(domain.Alert{ID: "c"})

	snap := l.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "a", snap[0].ID)
	assert.Equal(t, "c", snap[2].ID)
	assert.Equal(t, 3, l.Len())
}

func TestLogAppendEmptyIsNoop(t *testing.T) {
	l := NewLog()
	l.Append()
	assert.Zero(t, l.Len())
}

func TestLogSnapshotIsACopy(t *testing.T) {
	l := NewLog()
	l.Append(domain.Alert{ID: "a"})

	snap := l.Snapshot()
	snap[0].ID = "mutated"

	assert.Equal(t, "a", l.Snapshot()[0].ID)
}

func TestLogCompactsOldestHalf(t *testing.T) {
	l := NewLog()
	for i := 0; i < 1001; i++ {
		l.Append(domain.Alert{ID: strconv.Itoa(i)})
	}

	require.Equal(t, 501, l.Len())
	snap := l.Snapshot()
	assert.Equal(t, "500", snap[0].ID)
	assert.Equal(t, "1000", snap[len(snap)-1].ID)
}
