package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/nopfarsi/sizpay-gateway/internal/application"
	"github.com/nopfarsi/sizpay-gateway/internal/domain"
	"github.com/nopfarsi/sizpay-gateway/internal/infrastructure/persistence/postgres"
	"github.com/nopfarsi/sizpay-gateway/internal/infrastructure/persistence/testhelpers"
)

type OrderRepositoryTestSuite struct {
	suite.Suite
	testDB *testhelpers.TestDatabase
	repo   *postgres.OrderRepository
}

func TestOrderRepositorySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container-backed integration tests in short mode")
	}
	suite.Run(t, new(OrderRepositoryTestSuite))
}

func (suite *OrderRepositoryTestSuite) SetupSuite() {
	suite.testDB = testhelpers.SetupTestDatabase(suite.T())
	suite.repo = postgres.NewOrderRepository(suite.testDB.DB)
}

func (suite *OrderRepositoryTestSuite) TearDownSuite() {
	suite.testDB.Cleanup(suite.T())
}

func (suite *OrderRepositoryTestSuite) SetupTest() {
	suite.testDB.CleanTables(suite.T())
}

func (suite *OrderRepositoryTestSuite) createPending(amount int64) *domain.Order {
	order := &domain.Order{Amount: amount}
	require.NoError(suite.T(), suite.repo.CreateOrder(context.Background(), order))
	return order
}

func (suite *OrderRepositoryTestSuite) Test_CreateAndGet() {
	ctx := context.Background()
	t := suite.T()

	order := suite.createPending(50000)
	require.NotZero(t, order.ID)

	got, err := suite.repo.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(50000), got.Amount)
	assert.Equal(t, domain.StatePending, got.State)
	assert.Empty(t, got.AuthorizationToken)
	assert.Nil(t, got.PaidAt)
}

func (suite *OrderRepositoryTestSuite) Test_GetOrder_NotFound() {
	_, err := suite.repo.GetOrder(context.Background(), 424242)
	require.Error(suite.T(), err)
	assert.True(suite.T(), domain.IsErrorCode(err, domain.ErrCodeOrderNotFound))
}

func (suite *OrderRepositoryTestSuite) Test_AttachToken() {
	ctx := context.Background()
	t := suite.T()

	order := suite.createPending(1000)
	require.NoError(t, suite.repo.AttachToken(ctx, order.ID, "T1"))

	got, err := suite.repo.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "T1", got.AuthorizationToken)
	assert.Equal(t, domain.StatePending, got.State)
}

func (suite *OrderRepositoryTestSuite) Test_FinalizeOrder_Paid() {
	ctx := context.Background()
	t := suite.T()

	order := suite.createPending(1000)
	require.NoError(t, suite.repo.AttachToken(ctx, order.ID, "T1"))
	require.NoError(t, suite.repo.FinalizeOrder(ctx, order.ID, domain.StatePaid))

	got, err := suite.repo.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatePaid, got.State)
	assert.Empty(t, got.AuthorizationToken, "finalize must clear the token")
	assert.NotNil(t, got.PaidAt)
}

func (suite *OrderRepositoryTestSuite) Test_FinalizeOrder_SecondFinalizeLosesRace() {
	ctx := context.Background()
	t := suite.T()

	order := suite.createPending(1000)
	require.NoError(t, suite.repo.FinalizeOrder(ctx, order.ID, domain.StatePaid))

	err := suite.repo.FinalizeOrder(ctx, order.ID, domain.StateFailed)
	require.Error(t, err)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeInvalidTransition))

	got, err := suite.repo.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatePaid, got.State)
}

func (suite *OrderRepositoryTestSuite) Test_AttachToken_RefusedOnTerminalOrder() {
	ctx := context.Background()
	t := suite.T()

	order := suite.createPending(1000)
	require.NoError(t, suite.repo.FinalizeOrder(ctx, order.ID, domain.StateFailed))

	err := suite.repo.AttachToken(ctx, order.ID, "T2")
	require.Error(t, err)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeInvalidTransition))
}

func (suite *OrderRepositoryTestSuite) Test_ClearToken() {
	ctx := context.Background()
	t := suite.T()

	order := suite.createPending(1000)
	require.NoError(t, suite.repo.AttachToken(ctx, order.ID, "T1"))
	require.NoError(t, suite.repo.ClearToken(ctx, order.ID))

	got, err := suite.repo.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Empty(t, got.AuthorizationToken)
	assert.Equal(t, domain.StatePending, got.State)
}

func (suite *OrderRepositoryTestSuite) Test_Notes_AppendAndList() {
	ctx := context.Background()
	t := suite.T()

	order := suite.createPending(1000)
	require.NoError(t, suite.repo.AppendNote(ctx, domain.NewOrderNote(order.ID, "TR1 TN1")))
	require.NoError(t, suite.repo.AppendNote(ctx, domain.NewOrderNote(order.ID, "second attempt")))

	notes, err := suite.repo.ListNotes(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "TR1 TN1", notes[0].Note)
	assert.Equal(t, "second attempt", notes[1].Note)
}

func (suite *OrderRepositoryTestSuite) Test_FindStalePending() {
	ctx := context.Background()
	t := suite.T()

	stale := suite.createPending(1000)
	require.NoError(t, suite.repo.AttachToken(ctx, stale.ID, "T-OLD"))

	// Age the row below the cutoff.
	_, err := suite.testDB.DB.Pool.Exec(ctx,
		"UPDATE orders SET updated_at = now() - interval '2 hours' WHERE id = $1", stale.ID)
	require.NoError(t, err)

	fresh := suite.createPending(2000)
	require.NoError(t, suite.repo.AttachToken(ctx, fresh.ID, "T-NEW"))

	untokened := suite.createPending(3000)
	_ = untokened

	orders, err := suite.repo.FindStalePending(ctx, time.Hour, 10)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, stale.ID, orders[0].ID)
}

func (suite *OrderRepositoryTestSuite) Test_WithTx_RollsBackOnError() {
	ctx := context.Background()
	t := suite.T()

	order := suite.createPending(1000)

	err := suite.repo.WithTx(ctx, func(tx application.OrderStore) error {
		if err := tx.AttachToken(ctx, order.ID, "T1"); err != nil {
			return err
		}
		return domain.NewTokenMismatchError()
	})
	require.Error(t, err)

	got, err := suite.repo.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Empty(t, got.AuthorizationToken, "rolled-back token must not persist")
}

func (suite *OrderRepositoryTestSuite) Test_WithTx_RowLockSerializesFinalizers() {
	ctx := context.Background()
	t := suite.T()

	order := suite.createPending(1000)
	require.NoError(t, suite.repo.AttachToken(ctx, order.ID, "T1"))

	locked := make(chan struct{})
	secondDone := make(chan error, 1)

	go func() {
		secondDone <- suite.repo.WithTx(ctx, func(tx application.OrderStore) error {
			<-locked
			// Blocks until the first transaction commits.
			got, err := tx.GetOrderForUpdate(ctx, order.ID)
			if err != nil {
				return err
			}
			if got.IsTerminal() || got.AuthorizationToken == "" {
				return domain.NewReplayedCallbackError()
			}
			return tx.FinalizeOrder(ctx, got.ID, domain.StatePaid)
		})
	}()

	err := suite.repo.WithTx(ctx, func(tx application.OrderStore) error {
		if _, err := tx.GetOrderForUpdate(ctx, order.ID); err != nil {
			return err
		}
		close(locked)
		// Give the competing transaction time to queue on the row lock.
		time.Sleep(200 * time.Millisecond)
		return tx.FinalizeOrder(ctx, order.ID, domain.StatePaid)
	})

	require.NoError(t, err)

	err = <-secondDone
	require.Error(t, err, "second callback must observe the terminal state")
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeReplayedCallback))

	got, err := suite.repo.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatePaid, got.State)
}
