package logic

import (
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Pulau-Komodo/chatbot/dao"
	"github.com/Pulau-Komodo/chatbot/models"
)

// testDaily makes one nanodollar regenerate per millisecond, so the
// integer millisecond arithmetic in the ledger is exact in tests.
const testDaily = millisecondsPerDay

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Allowance{},
		&models.Conversation{},
		&models.SpendingRecord{},
		&models.UserSettings{},
	))
	return db
}

func newTestLedger(t *testing.T, accrualDays float64) *Ledger {
	t.Helper()
	return NewLedger(dao.NewAllowanceDAO(openTestDB(t)), testDaily, accrualDays)
}

func TestFreshUserHasFullBalance(t *testing.T) {
	ledger := newTestLedger(t, 2)
	balance, err := ledger.ReadBalance(1, time.Now())
	require.NoError(t, err)
	assert.Equal(t, ledger.Cap(), balance)
}

func TestBalanceNeverExceedsCap(t *testing.T) {
	ledger := newTestLedger(t, 2)
	at := time.Now()

	// A long-idle user's time_to_full sits far in the past; the balance
	// must clamp at the cap, and a debit must come off the cap rather
	// than off phantom credit.
	require.NoError(t, ledger.allowanceDAO.SetTimeToFull(1, at.Add(-48*time.Hour)))
	balance, err := ledger.ReadBalance(1, at)
	require.NoError(t, err)
	assert.Equal(t, ledger.Cap(), balance)

	balance, err = ledger.CheckAndReserve(1, 1000, at)
	require.NoError(t, err)
	assert.Equal(t, ledger.Cap()-1000, balance)
}

func TestDebitsAccumulateWithoutElapsedTime(t *testing.T) {
	ledger := newTestLedger(t, 2)
	at := time.Now()

	var balance int64
	var err error
	for i := 0; i < 5; i++ {
		balance, err = ledger.CheckAndReserve(1, 1000, at)
		require.NoError(t, err)
		assert.LessOrEqual(t, balance, ledger.Cap())
	}
	assert.Equal(t, ledger.Cap()-5000, balance)
}

func TestRegenerationReachesCapAfterAccrualDays(t *testing.T) {
	ledger := newTestLedger(t, 2)
	at := time.Now()

	// Drain to exactly zero.
	balance, err := ledger.CheckAndReserve(1, ledger.Cap(), at)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)

	// Partway through regeneration the balance is proportional.
	balance, err = ledger.ReadBalance(1, at.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, ledger.Cap()/2, balance)

	// After accrual_days of idling the balance is exactly the cap again.
	balance, err = ledger.ReadBalance(1, at.Add(48*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, ledger.Cap(), balance)

	// And it stays there.
	balance, err = ledger.ReadBalance(1, at.Add(96*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, ledger.Cap(), balance)
}

func TestRejectionLeavesStateUntouched(t *testing.T) {
	ledger := newTestLedger(t, 2)
	at := time.Now()

	// One debit may push the balance negative.
	balance, err := ledger.CheckAndReserve(1, ledger.Cap()+5000, at)
	require.NoError(t, err)
	assert.Equal(t, int64(-5000), balance)

	// Now every further request is rejected, without mutating anything.
	_, err = ledger.CheckAndReserve(1, 1, at)
	assert.ErrorIs(t, err, ErrInsufficientCredit)

	balance, err = ledger.ReadBalance(1, at)
	require.NoError(t, err)
	assert.Equal(t, int64(-5000), balance)
}

func TestZeroBalanceIsRejected(t *testing.T) {
	ledger := newTestLedger(t, 2)
	at := time.Now()

	_, err := ledger.CheckAndReserve(1, ledger.Cap(), at)
	require.NoError(t, err)

	_, err = ledger.CheckAndReserve(1, 1, at)
	assert.ErrorIs(t, err, ErrInsufficientCredit)
}

func TestSerializedAdmission(t *testing.T) {
	ledger := newTestLedger(t, 2)
	at := time.Now()
	cost := ledger.Cap() // each request costs the full balance

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = ledger.CheckAndReserve(1, cost, at)
		}(i)
	}
	wg.Wait()

	accepted := 0
	rejected := 0
	for _, err := range results {
		switch {
		case err == nil:
			accepted++
		case assert.ErrorIs(t, err, ErrInsufficientCredit):
			rejected++
		}
	}
	assert.Equal(t, 1, accepted)
	assert.Equal(t, 1, rejected)
}

func TestIndependentUsersDoNotInterfere(t *testing.T) {
	ledger := newTestLedger(t, 2)
	at := time.Now()

	_, err := ledger.CheckAndReserve(1, ledger.Cap()+1000, at)
	require.NoError(t, err)

	balance, err := ledger.CheckAndReserve(2, 1000, at)
	require.NoError(t, err)
	assert.Equal(t, ledger.Cap()-1000, balance)
}

func TestRefundRestoresBalance(t *testing.T) {
	ledger := newTestLedger(t, 2)
	at := time.Now()

	_, err := ledger.CheckAndReserve(1, 3000, at)
	require.NoError(t, err)
	before, err := ledger.ReadBalance(1, at)
	require.NoError(t, err)

	// Reserve then refund in full, as the gate does on upstream failure.
	_, err = ledger.CheckAndReserve(1, 70000, at)
	require.NoError(t, err)
	_, err = ledger.Debit(1, -70000, at)
	require.NoError(t, err)

	after, err := ledger.ReadBalance(1, at)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestRefundNeverExceedsCap(t *testing.T) {
	ledger := newTestLedger(t, 2)
	at := time.Now()

	// Refunding more than was ever debited clamps at the cap.
	balance, err := ledger.Debit(1, -100000, at)
	require.NoError(t, err)
	assert.Equal(t, ledger.Cap(), balance)
}

func TestCorrectiveDebitBillsActualCost(t *testing.T) {
	ledger := newTestLedger(t, 2)
	at := time.Now()

	// Pre-flight estimate 100, actual cost 130: the net across both
	// phases must be exactly 130, never 100 or 230.
	_, err := ledger.CheckAndReserve(1, 100, at)
	require.NoError(t, err)
	balance, err := ledger.Debit(1, 30, at)
	require.NoError(t, err)
	assert.Equal(t, ledger.Cap()-130, balance)
}

func TestCorrectiveDebitMayRefund(t *testing.T) {
	ledger := newTestLedger(t, 2)
	at := time.Now()

	// Actual cost below the estimate refunds the difference.
	_, err := ledger.CheckAndReserve(1, 100, at)
	require.NoError(t, err)
	balance, err := ledger.Debit(1, -40, at)
	require.NoError(t, err)
	assert.Equal(t, ledger.Cap()-60, balance)
}

func TestNanodollarsToMillidollars(t *testing.T) {
	assert.Equal(t, 2.5, NanodollarsToMillidollars(2_500_000))
	assert.Equal(t, 0.0, NanodollarsToMillidollars(0))
	assert.Equal(t, -1.25, NanodollarsToMillidollars(-1_250_000))
	// Rounded to two decimals.
	assert.Equal(t, 1.23, NanodollarsToMillidollars(1_234_567))
}
