// Package ledger implements the per-account credit economy: lazy daily
// grants, debits, administrative credits, gift transfers, and the global
// enable switch. All mutations persist synchronously before returning.
package ledger

import (
	"errors"
	"sync"
	"time"
)

const (
	InitialCredit = 3
	DailyGrant    = 2
	CostPerJob    = 1
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrUnchanged           = errors.New("already in requested state")
)

// Record is the persisted per-account state. LastDaily is nil until the
// account's first balance read.
type Record struct {
	Tokens    int        `json:"tokens"`
	LastDaily *time.Time `json:"last_daily"`
}

// Settings is the persisted process-wide configuration.
type Settings struct {
	TokenSystemEnabled bool `json:"token_system_enabled"`
}

// Store persists accounts and settings as whole documents. Implementations
// must substitute empty defaults when the underlying data is unreadable.
type Store interface {
	LoadAccounts() (map[string]Record, error)
	SaveAccounts(map[string]Record) error
	LoadSettings() (Settings, error)
	SaveSettings(Settings) error
}

type Ledger struct {
	mu    sync.Mutex
	store Store
	now   func() time.Time
}

func New(store Store) *Ledger {
	return &Ledger{store: store, now: time.Now}
}

// Balance returns the account's current balance, creating the account on
// first touch and applying the daily grant when a calendar day has passed
// since the last one. The grant is flat: a multi-day gap still grants once.
func (l *Ledger) Balance(id string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	accounts, err := l.store.LoadAccounts()
	if err != nil {
		return 0, err
	}
	rec, changed := l.refresh(accounts, id)
	if changed {
		if err := l.store.SaveAccounts(accounts); err != nil {
			return 0, err
		}
	}
	return rec.Tokens, nil
}

// TryDebit subtracts amount iff the balance (after grant refresh) covers it.
// The read-check-write span holds the ledger lock, so two concurrent debits
// can never both succeed against a balance that covers only one.
func (l *Ledger) TryDebit(id string, amount int) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	accounts, err := l.store.LoadAccounts()
	if err != nil {
		return false, err
	}
	rec, changed := l.refresh(accounts, id)
	ok := rec.Tokens >= amount
	if ok {
		rec.Tokens -= amount
		accounts[id] = rec
		changed = true
	}
	if changed {
		if err := l.store.SaveAccounts(accounts); err != nil {
			return false, err
		}
	}
	return ok, nil
}

// Credit adds amount to the account, creating it first if absent.
func (l *Ledger) Credit(id string, amount int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.creditLocked(id, amount)
}

func (l *Ledger) creditLocked(id string, amount int) error {
	accounts, err := l.store.LoadAccounts()
	if err != nil {
		return err
	}
	rec, ok := accounts[id]
	if !ok {
		rec = Record{Tokens: InitialCredit}
	}
	rec.Tokens += amount
	accounts[id] = rec
	return l.store.SaveAccounts(accounts)
}

// Transfer moves amount from one account to another as a single debit and a
// single credit under one lock hold. On ErrInsufficientBalance nothing has
// changed; there is no partially transferred state to observe.
func (l *Ledger) Transfer(fromID, toID string, amount int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	accounts, err := l.store.LoadAccounts()
	if err != nil {
		return err
	}
	from, _ := l.refresh(accounts, fromID)
	if from.Tokens < amount {
		return ErrInsufficientBalance
	}
	from.Tokens -= amount
	accounts[fromID] = from

	to, ok := accounts[toID]
	if !ok {
		to = Record{Tokens: InitialCredit}
	}
	to.Tokens += amount
	accounts[toID] = to

	return l.store.SaveAccounts(accounts)
}

// Snapshot returns a copy of all persisted accounts without applying grants.
func (l *Ledger) Snapshot() (map[string]Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	accounts, err := l.store.LoadAccounts()
	if err != nil {
		return nil, err
	}
	out := make(map[string]Record, len(accounts))
	for id, rec := range accounts {
		out[id] = rec
	}
	return out, nil
}

// Enabled reports whether the credit system currently gates jobs.
func (l *Ledger) Enabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	settings, err := l.store.LoadSettings()
	if err != nil {
		return true
	}
	return settings.TokenSystemEnabled
}

// SetEnabled flips the global switch and persists immediately. Setting the
// current value returns ErrUnchanged and writes nothing.
func (l *Ledger) SetEnabled(enabled bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	settings, err := l.store.LoadSettings()
	if err != nil {
		return err
	}
	if settings.TokenSystemEnabled == enabled {
		return ErrUnchanged
	}
	settings.TokenSystemEnabled = enabled
	return l.store.SaveSettings(settings)
}

// refresh applies create-on-first-touch and daily-grant semantics to the
// account in place. The first touch only stamps LastDaily; it is not a grant.
func (l *Ledger) refresh(accounts map[string]Record, id string) (Record, bool) {
	rec, ok := accounts[id]
	changed := !ok
	if !ok {
		rec = Record{Tokens: InitialCredit}
	}

	now := l.now()
	switch {
	case rec.LastDaily == nil:
		stamp := now
		rec.LastDaily = &stamp
		changed = true
	case earlierDay(*rec.LastDaily, now):
		rec.Tokens += DailyGrant
		stamp := now
		rec.LastDaily = &stamp
		changed = true
	}

	accounts[id] = rec
	return rec, changed
}

// earlierDay reports whether a falls on a strictly earlier calendar day than
// b. Calendar days, not a rolling 24h window: 23:59 to 00:01 counts.
func earlierDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	if ay != by {
		return ay < by
	}
	if am != bm {
		return am < bm
	}
	return ad < bd
}
