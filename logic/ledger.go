package logic

import (
	"errors"
	"math"
	"sync"
	"time"

	"github.com/Pulau-Komodo/chatbot/dao"
)

// ErrInsufficientCredit means the user's balance was not positive at check
// time. User-visible; the request is declined without side effects.
var ErrInsufficientCredit = errors.New("insufficient credit")

const millisecondsPerDay = 1000 * 60 * 60 * 24

// Ledger is the admission-control credit state machine. Each user's entire
// state is one timestamp, time_to_full: the moment the balance would reach
// the cap with no further spending. Balance regenerates continuously at the
// daily rate and is always derived, never stored.
//
// All mutating operations for one user are serialized through a per-user
// lock; operations on different users never contend. Balance reads are
// lock-free snapshots.
type Ledger struct {
	allowanceDAO *dao.AllowanceDAO
	daily        int64 // nanodollars regenerated per day
	accrualDays  float64

	mu    sync.Mutex
	locks map[uint64]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func NewLedger(allowanceDAO *dao.AllowanceDAO, daily int64, accrualDays float64) *Ledger {
	return &Ledger{
		allowanceDAO: allowanceDAO,
		daily:        daily,
		accrualDays:  accrualDays,
		locks:        make(map[uint64]*userLock),
	}
}

// Cap is the maximum bankable balance in nanodollars.
func (l *Ledger) Cap() int64 {
	return int64(float64(l.daily) * l.accrualDays)
}

// lockUser takes the per-user lock, creating it on first use. The returned
// release function drops the lock and garbage-collects the map entry once
// nobody is waiting on it.
func (l *Ledger) lockUser(user uint64) func() {
	l.mu.Lock()
	lock := l.locks[user]
	if lock == nil {
		lock = &userLock{}
		l.locks[user] = lock
	}
	lock.refs++
	l.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		l.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(l.locks, user)
		}
		l.mu.Unlock()
	}
}

// balanceAt derives the balance from a stored time_to_full. A nil or past
// timestamp means the balance sits at the cap.
func (l *Ledger) balanceAt(timeToFull *time.Time, at time.Time) int64 {
	if timeToFull == nil || !timeToFull.After(at) {
		return l.Cap()
	}
	daysLeft := float64(timeToFull.Sub(at).Milliseconds()) / millisecondsPerDay
	missing := daysLeft * float64(l.daily)
	return l.Cap() - int64(missing)
}

// advance moves time_to_full forward by cost's worth of regeneration time.
// The base is clamped up to now first, so a fresh or over-full user is
// debited from the cap, never from credit that was never banked. A negative
// cost moves the timestamp earlier (a refund), clamped at now so the
// balance can never exceed the cap.
func (l *Ledger) advance(timeToFull *time.Time, cost int64, at time.Time) time.Time {
	base := at
	if timeToFull != nil && timeToFull.After(at) {
		base = *timeToFull
	}
	addedMilliseconds := cost * millisecondsPerDay / l.daily
	result := base.Add(time.Duration(addedMilliseconds) * time.Millisecond)
	if result.Before(at) {
		result = at
	}
	return result
}

// ReadBalance returns the user's current balance in nanodollars without
// taking any lock. Pure; used for status display and pre-checks.
func (l *Ledger) ReadBalance(user uint64, at time.Time) (int64, error) {
	timeToFull, err := l.allowanceDAO.GetTimeToFull(user)
	if err != nil {
		return 0, err
	}
	return l.balanceAt(timeToFull, at), nil
}

// CheckAndReserve admits the request if the user's balance is positive and
// debits the cost, returning the resulting balance. The debit itself may
// push the balance negative, which blocks further requests until
// regeneration catches up. On rejection nothing is mutated.
func (l *Ledger) CheckAndReserve(user uint64, cost int64, at time.Time) (int64, error) {
	release := l.lockUser(user)
	defer release()

	timeToFull, err := l.allowanceDAO.GetTimeToFull(user)
	if err != nil {
		return 0, err
	}
	balance := l.balanceAt(timeToFull, at)
	if balance <= 0 {
		return balance, ErrInsufficientCredit
	}
	newTime := l.advance(timeToFull, cost, at)
	if err := l.allowanceDAO.SetTimeToFull(user, newTime); err != nil {
		return 0, err
	}
	return l.balanceAt(&newTime, at), nil
}

// Debit applies an unconditional balance adjustment: the corrective second
// debit of two-phase billing, or a refund when cost is negative. It is
// serialized against other debits for the same user but performs no
// balance check.
func (l *Ledger) Debit(user uint64, cost int64, at time.Time) (int64, error) {
	release := l.lockUser(user)
	defer release()

	timeToFull, err := l.allowanceDAO.GetTimeToFull(user)
	if err != nil {
		return 0, err
	}
	newTime := l.advance(timeToFull, cost, at)
	if err := l.allowanceDAO.SetTimeToFull(user, newTime); err != nil {
		return 0, err
	}
	return l.balanceAt(&newTime, at), nil
}

// NanodollarsToMillidollars converts for user-facing display, rounded to
// two decimal places.
func NanodollarsToMillidollars(nanodollars int64) float64 {
	millidollars := float64(nanodollars) / 1e6
	return math.Round(millidollars*100) / 100
}
