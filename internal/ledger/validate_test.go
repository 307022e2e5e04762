package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kapital-dev/kapital/internal/model"
)

func validTx() model.Transaction {
	return model.Transaction{
		Title:    "Groceries",
		Amount:   dec("12.34"),
		Category: model.CategoryFood,
		Date:     fixedNow,
	}
}

func TestValidateTransaction_OK(t *testing.T) {
	require.NoError(t, ValidateTransaction(validTx(), fixedNow))

	tx := validTx()
	tx.IsIncome = true
	tx.Category = model.CategoryBizum
	require.NoError(t, ValidateTransaction(tx, fixedNow))
}

func TestValidateTransaction_CollectsAll(t *testing.T) {
	tx := model.Transaction{Title: "", Amount: dec("0"), Category: "NOPE"}
	err := ValidateTransaction(tx, fixedNow)
	require.Error(t, err)

	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Len(t, verrs, 4)
	for _, f := range []string{"title", "amount", "category", "date"} {
		assert.True(t, verrs.Has(f), "missing %s", f)
	}
	assert.Contains(t, err.Error(), "validation failed")
	assert.Contains(t, err.Error(), "title: must not be blank")
}

func TestValidateTransaction_FutureDayInLocalZone(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	now := time.Date(2025, 6, 15, 23, 0, 0, 0, loc)

	tx := validTx()
	// 22:30 UTC on the 15th is 00:30 on the 16th in now's zone.
	tx.Date = time.Date(2025, 6, 15, 22, 30, 0, 0, time.UTC)
	assert.ErrorIs(t, ValidateTransaction(tx, now), ErrValidation)

	tx.Date = time.Date(2025, 6, 15, 21, 0, 0, 0, time.UTC)
	assert.NoError(t, ValidateTransaction(tx, now))
}

func TestAfterDay(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		d    time.Time
		want bool
	}{
		{time.Date(2025, 6, 15, 23, 59, 0, 0, time.UTC), false},
		{time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC), true},
		{time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), true},
		{time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), true},
		{time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, afterDay(tt.d, now), "afterDay(%s)", tt.d)
	}
}

func TestValidateAccountName(t *testing.T) {
	assert.NoError(t, ValidateAccountName("Savings"))
	assert.ErrorIs(t, ValidateAccountName(""), ErrValidation)
	assert.ErrorIs(t, ValidateAccountName(" \t"), ErrValidation)
}
