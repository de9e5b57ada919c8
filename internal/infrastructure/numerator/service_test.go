package numerator

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	corenumerator "retailcore/internal/core/numerator"
)

// Mock objects
type mockRow struct {
	val int64
	err error
}

func (m *mockRow) Scan(dest ...any) error {
	if m.err != nil {
		return m.err
	}
	if len(dest) > 0 {
		if ptr, ok := dest[0].(*int64); ok {
			*ptr = m.val
		}
	}
	return nil
}

type mockQuerier struct {
	mu           sync.Mutex
	currentValue int64 // Simulates DB sequence value
}

func (m *mockQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Strict strategy passes (prefix string, year int) - increment by 1.
	// Cached strategy passes (key string, increment int64).
	var increment int64 = 1
	if len(args) == 2 {
		if val, ok := args[1].(int64); ok {
			increment = val
		}
	}

	m.currentValue += increment

	return &mockRow{val: m.currentValue}
}

func TestGetNextNumber_Strict(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q)
	ctx := context.Background()
	cfg := corenumerator.DefaultConfig("TEST")
	year := time.Now().Format("2006")

	num, err := svc.GetNextNumber(ctx, cfg, nil, time.Now())
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("TEST-%s-00001", year), num)

	num, err = svc.GetNextNumber(ctx, cfg, nil, time.Now())
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("TEST-%s-00002", year), num)
}

func TestGetNextNumber_Cached(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q)
	ctx := context.Background()
	cfg := corenumerator.DefaultConfig("ADJ")
	year := time.Now().Format("2006")

	opts := &corenumerator.Options{
		Strategy:  corenumerator.StrategyCached,
		RangeSize: 10,
	}

	// First call allocates range 1..10 from DB.
	num, err := svc.GetNextNumber(ctx, cfg, opts, time.Now())
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("ADJ-%s-00001", year), num)
	assert.EqualValues(t, 10, q.currentValue)

	// Second call served from memory, DB untouched.
	num, err = svc.GetNextNumber(ctx, cfg, opts, time.Now())
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("ADJ-%s-00002", year), num)
	assert.EqualValues(t, 10, q.currentValue)

	// Exhaust the range; next call should allocate 11..20.
	for i := 0; i < 8; i++ {
		_, err = svc.GetNextNumber(ctx, cfg, opts, time.Now())
		require.NoError(t, err)
	}

	num, err = svc.GetNextNumber(ctx, cfg, opts, time.Now())
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("ADJ-%s-00011", year), num)
	assert.EqualValues(t, 20, q.currentValue)
}

func TestParseNumber(t *testing.T) {
	assert.EqualValues(t, 42, ParseNumber("ADJ-2026-00042"))
	assert.EqualValues(t, 7, ParseNumber("CNT-00007"))
	assert.EqualValues(t, -1, ParseNumber("garbage"))
}
