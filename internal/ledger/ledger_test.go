package ledger

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	return New(fs)
}

func setClock(l *Ledger, at time.Time) {
	l.now = func() time.Time { return at }
}

func TestBalanceFirstTouchIsNotAGrant(t *testing.T) {
	l := newTestLedger(t)

	balance, err := l.Balance("u1")
	require.NoError(t, err)
	assert.Equal(t, InitialCredit, balance)

	// Repeated reads on the same day do not change the balance.
	balance, err = l.Balance("u1")
	require.NoError(t, err)
	assert.Equal(t, InitialCredit, balance)
}

func TestBalanceGrantsOncePerCalendarDay(t *testing.T) {
	l := newTestLedger(t)
	day1 := time.Date(2025, 3, 10, 23, 50, 0, 0, time.UTC)
	setClock(l, day1)

	_, err := l.Balance("u1")
	require.NoError(t, err)

	// Ten minutes later but a new calendar day: exactly one grant.
	setClock(l, day1.Add(20*time.Minute))
	balance, err := l.Balance("u1")
	require.NoError(t, err)
	assert.Equal(t, InitialCredit+DailyGrant, balance)

	// Further reads that day stay flat.
	setClock(l, day1.Add(2*time.Hour))
	balance, err = l.Balance("u1")
	require.NoError(t, err)
	assert.Equal(t, InitialCredit+DailyGrant, balance)
}

func TestBalanceMultiDayGapGrantsOnce(t *testing.T) {
	l := newTestLedger(t)
	start := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	setClock(l, start)

	_, err := l.Balance("u1")
	require.NoError(t, err)

	setClock(l, start.AddDate(0, 0, 7))
	balance, err := l.Balance("u1")
	require.NoError(t, err)
	assert.Equal(t, InitialCredit+DailyGrant, balance, "a week-long gap still grants a single flat amount")
}

func TestTryDebit(t *testing.T) {
	l := newTestLedger(t)

	ok, err := l.TryDebit("u1", 2)
	require.NoError(t, err)
	assert.True(t, ok)

	balance, err := l.Balance("u1")
	require.NoError(t, err)
	assert.Equal(t, InitialCredit-2, balance)

	ok, err = l.TryDebit("u1", InitialCredit)
	require.NoError(t, err)
	assert.False(t, ok)

	balance, err = l.Balance("u1")
	require.NoError(t, err)
	assert.Equal(t, InitialCredit-2, balance, "failed debit must leave the balance unchanged")
}

func TestTransferAllOrNothing(t *testing.T) {
	l := newTestLedger(t)
	require.NoError(t, l.Credit("a", 7))

	require.NoError(t, l.Transfer("a", "b", 5))

	balanceA, err := l.Balance("a")
	require.NoError(t, err)
	balanceB, err := l.Balance("b")
	require.NoError(t, err)
	assert.Equal(t, InitialCredit+7-5, balanceA)
	assert.Equal(t, InitialCredit+5, balanceB)

	err = l.Transfer("a", "b", 1000)
	require.ErrorIs(t, err, ErrInsufficientBalance)

	after, err := l.Balance("a")
	require.NoError(t, err)
	assert.Equal(t, balanceA, after, "failed transfer must not move anything")
}

func TestConcurrentDebitsNeverOverspend(t *testing.T) {
	l := newTestLedger(t)
	const funds = 5
	const attempts = 20

	require.NoError(t, l.Credit("u1", funds-InitialCredit))
	// Pin LastDaily so no grant sneaks in mid-test.
	_, err := l.Balance("u1")
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make(chan bool, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := l.TryDebit("u1", 1)
			if err != nil {
				t.Error(err)
				return
			}
			results <- ok
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for ok := range results {
		if ok {
			succeeded++
		}
	}
	assert.Equal(t, funds, succeeded)

	balance, err := l.Balance("u1")
	require.NoError(t, err)
	assert.Equal(t, 0, balance)
}

func TestSetEnabled(t *testing.T) {
	l := newTestLedger(t)

	assert.True(t, l.Enabled(), "credit system defaults to enabled")
	require.ErrorIs(t, l.SetEnabled(true), ErrUnchanged)

	require.NoError(t, l.SetEnabled(false))
	assert.False(t, l.Enabled())
	require.ErrorIs(t, l.SetEnabled(false), ErrUnchanged)

	require.NoError(t, l.SetEnabled(true))
	assert.True(t, l.Enabled())
}

func TestCorruptStoreStartsFresh(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tokens.json"), []byte("{not json"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "settings.json"), []byte("garbage"), 0o644))

	fs, err := NewFileStore(dir)
	require.NoError(t, err)
	l := New(fs)

	balance, err := l.Balance("u1")
	require.NoError(t, err)
	assert.Equal(t, InitialCredit, balance)
	assert.True(t, l.Enabled())
}

func TestBalanceSurvivesReload(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(dir)
	require.NoError(t, err)
	l := New(fs)
	require.NoError(t, l.Credit("u1", 10))

	fs2, err := NewFileStore(dir)
	require.NoError(t, err)
	l2 := New(fs2)
	balance, err := l2.Balance("u1")
	require.NoError(t, err)
	assert.Equal(t, InitialCredit+10, balance)
}
