package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cashflow/internal/core"
)

func TestCashbookLifecycle(t *testing.T) {
	repo, _ := newAuthRepo(t, "owner-1")
	ctx := context.Background()

	household, err := repo.CreateCashbook(ctx, "Household", "monthly budget")
	require.NoError(t, err)
	assert.NotEmpty(t, household.ID)
	assert.Equal(t, "owner-1", household.OwnerID)
	assert.Equal(t, core.DefaultCurrencyCode, household.CurrencyCode)
	assert.True(t, household.Active)

	travel, err := repo.CreateCashbook(ctx, "Travel", "")
	require.NoError(t, err)

	books, err := repo.ListCashbooks(ctx)
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, household.ID, books[0].ID, "creation order preserved")
	assert.Equal(t, travel.ID, books[1].ID)

	renamed, err := repo.RenameCashbook(ctx, travel.ID, "Travel 2026")
	require.NoError(t, err)
	assert.Equal(t, "Travel 2026", renamed.Name)
	assert.GreaterOrEqual(t, renamed.LastModified, travel.LastModified)

	require.NoError(t, repo.DeleteCashbook(ctx, household.ID))
	books, err = repo.ListCashbooks(ctx)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, travel.ID, books[0].ID)
}

func TestCreateCashbookRejectsBlankName(t *testing.T) {
	repo, _ := newAuthRepo(t, "owner-1")

	_, err := repo.CreateCashbook(context.Background(), "   ", "")
	assert.ErrorIs(t, err, core.ErrEmptyCashbookName)
}

func TestRenameCashbookUnknownID(t *testing.T) {
	repo, _ := newAuthRepo(t, "owner-1")

	_, err := repo.RenameCashbook(context.Background(), "missing", "New Name")
	assert.ErrorIs(t, err, ErrUnknownCashbook)
}

func TestDeleteCashbookRemovesTransactions(t *testing.T) {
	repo, _ := newAuthRepo(t, "owner-1")
	ctx := context.Background()

	book, err := repo.CreateCashbook(ctx, "Household", "")
	require.NoError(t, err)
	_, err = repo.AddTransaction(ctx, book.ID, draft(100))
	require.NoError(t, err)

	require.NoError(t, repo.DeleteCashbook(ctx, book.ID))

	txs, err := repo.ListTransactions(ctx, book.ID)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestDuplicateCashbookCopiesMetadataOnly(t *testing.T) {
	repo, _ := newAuthRepo(t, "owner-1")
	ctx := context.Background()

	source, err := repo.CreateCashbook(ctx, "Household", "monthly budget")
	require.NoError(t, err)
	source.CurrencyCode = "EUR"
	source.Favorite = true
	require.NoError(t, repo.putCashbook(ctx, source))
	_, err = repo.AddTransaction(ctx, source.ID, draft(100))
	require.NoError(t, err)

	dup, err := repo.DuplicateCashbook(ctx, source.ID, "")
	require.NoError(t, err)
	assert.NotEqual(t, source.ID, dup.ID)
	assert.Equal(t, "Household (copy)", dup.Name)
	assert.Equal(t, "monthly budget", dup.Description)
	assert.Equal(t, "EUR", dup.CurrencyCode, "currency travels with the copy")
	assert.True(t, dup.Favorite, "favorite flag travels with the copy")
	assert.Zero(t, dup.TransactionCount)

	txs, err := repo.ListTransactions(ctx, dup.ID)
	require.NoError(t, err)
	assert.Empty(t, txs, "transactions stay with the source book")
}

func TestCashbookOperationsRequireAuthentication(t *testing.T) {
	repo, _ := newGuestRepo(t)
	ctx := context.Background()

	_, err := repo.ListCashbooks(ctx)
	assert.ErrorIs(t, err, ErrAuthRequired)
	_, err = repo.CreateCashbook(ctx, "Household", "")
	assert.ErrorIs(t, err, ErrAuthRequired)
	assert.ErrorIs(t, repo.DeleteCashbook(ctx, "x"), ErrAuthRequired)
}
