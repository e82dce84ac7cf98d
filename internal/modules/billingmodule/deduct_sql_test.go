package billingmodule

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func mockedRepo(t *testing.T) (*AccountRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db, DriverName: "postgres"}), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewAccountRepository(gormDB, hclog.NewNullLogger()), mock
}

// The deduction must be a single guarded UPDATE: the balance check and the
// subtraction happen in one statement, so concurrent requests cannot both
// pass a read-then-write check.
func TestDeductIssuesGuardedUpdate(t *testing.T) {
	repo, mock := mockedRepo(t)

	mock.ExpectExec(`UPDATE "user_credits" SET "remaining_credits"=remaining_credits - \$1 WHERE user_id = \$2 AND remaining_credits >= \$3`).
		WithArgs(3.5, "u1", 3.5).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Deduct(repo.db, "u1", 3.5))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeductZeroRowsMeansInsufficient(t *testing.T) {
	repo, mock := mockedRepo(t)

	mock.ExpectExec(`UPDATE "user_credits"`).
		WithArgs(99.0, "u1", 99.0).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Deduct(repo.db, "u1", 99)
	assert.ErrorIs(t, err, ErrInsufficientCredits)
	assert.NoError(t, mock.ExpectationsWereMet())
}
