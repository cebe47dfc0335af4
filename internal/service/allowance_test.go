package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pocketbank/internal/model"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 9, 0, 0, 0, time.UTC)
}

func TestNextDueDate(t *testing.T) {
	cases := []struct {
		name string
		from time.Time
		freq model.Frequency
		want time.Time
	}{
		{"daily", date(2024, time.March, 15), model.FrequencyDaily, date(2024, time.March, 16)},
		{"weekly", date(2024, time.March, 15), model.FrequencyWeekly, date(2024, time.March, 22)},
		{"weekly across month", date(2024, time.March, 28), model.FrequencyWeekly, date(2024, time.April, 4)},
		{"monthly", date(2024, time.March, 15), model.FrequencyMonthly, date(2024, time.April, 15)},
		{"monthly jan 31 leap year", date(2024, time.January, 31), model.FrequencyMonthly, date(2024, time.February, 29)},
		{"monthly jan 31 common year", date(2023, time.January, 31), model.FrequencyMonthly, date(2023, time.February, 28)},
		{"monthly oct 31", date(2024, time.October, 31), model.FrequencyMonthly, date(2024, time.November, 30)},
		{"monthly dec wraps year", date(2024, time.December, 15), model.FrequencyMonthly, date(2025, time.January, 15)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NextDueDate(tc.from, tc.freq)
			assert.True(t, got.Equal(tc.want), "got %s want %s", got, tc.want)
			assert.True(t, got.After(tc.from), "due date must move strictly forward")
		})
	}
}

func TestCreateAllowance(t *testing.T) {
	f := newFixture()
	start := date(2024, time.March, 1)

	a, err := f.allowanceSvc.Create(context.Background(), f.parent, CreateAllowanceInput{
		ChildID:   f.childID,
		Amount:    amt("10.00"),
		Frequency: model.FrequencyWeekly,
		StartDate: start,
	})
	require.NoError(t, err)
	assert.True(t, a.IsActive)
	assert.True(t, a.NextDueDate.Equal(start.AddDate(0, 0, 7)), "first payout one period after start")
}

func TestCreateAllowance_ChildForbidden(t *testing.T) {
	f := newFixture()
	_, err := f.allowanceSvc.Create(context.Background(), f.child, CreateAllowanceInput{
		ChildID:   f.childID,
		Amount:    amt("10.00"),
		Frequency: model.FrequencyWeekly,
		StartDate: f.now,
	})
	assert.ErrorIs(t, err, model.ErrForbidden)
}

func TestCreateAllowance_Validation(t *testing.T) {
	f := newFixture()

	_, err := f.allowanceSvc.Create(context.Background(), f.parent, CreateAllowanceInput{
		ChildID:   f.childID,
		Amount:    amt("10.00"),
		Frequency: "FORTNIGHTLY",
		StartDate: f.now,
	})
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = f.allowanceSvc.Create(context.Background(), f.parent, CreateAllowanceInput{
		ChildID:   f.childID,
		Amount:    amt("-1.00"),
		Frequency: model.FrequencyWeekly,
		StartDate: f.now,
	})
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestUpdateAllowance_FrequencyChangeMovesDueForward(t *testing.T) {
	f := newFixture()
	a, err := f.allowanceSvc.Create(context.Background(), f.parent, CreateAllowanceInput{
		ChildID:   f.childID,
		Amount:    amt("10.00"),
		Frequency: model.FrequencyWeekly,
		StartDate: date(2024, time.March, 1),
	})
	require.NoError(t, err)
	before := a.NextDueDate

	monthly := model.FrequencyMonthly
	updated, err := f.allowanceSvc.Update(context.Background(), f.parent, a.ID, UpdateAllowanceInput{
		Frequency: &monthly,
	})
	require.NoError(t, err)
	assert.Equal(t, model.FrequencyMonthly, updated.Frequency)
	assert.True(t, updated.NextDueDate.After(before))
}

func TestProcessDue_PaysOutAndAdvances(t *testing.T) {
	f := newFixture()
	account := f.openAccount("0.00")

	a, err := f.allowanceSvc.Create(context.Background(), f.parent, CreateAllowanceInput{
		ChildID:     f.childID,
		Amount:      amt("10.00"),
		Frequency:   model.FrequencyWeekly,
		StartDate:   date(2024, time.March, 1),
		Description: "Weekly pocket money",
	})
	require.NoError(t, err)

	runAt := a.NextDueDate.Add(time.Hour)
	require.NoError(t, f.allowanceSvc.ProcessDue(context.Background(), runAt))

	balance, _ := f.accounts.Balance(context.Background(), account.ID)
	assert.True(t, balance.Equal(amt("10.00")))

	after, err := f.allowances.Get(context.Background(), a.ID)
	require.NoError(t, err)
	assert.True(t, after.NextDueDate.Equal(a.NextDueDate.AddDate(0, 0, 7)))

	txns, err := f.txns.List(context.Background(), TransactionFilter{AccountIDs: []uuid.UUID{account.ID}})
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, model.TypeAllowance, txns[0].Type)
	assert.Equal(t, model.StatusCompleted, txns[0].Status)
	assert.Equal(t, a.ID.String(), txns[0].Metadata["allowance_id"])
	assert.Equal(t, "Weekly pocket money", txns[0].Description)
}

func TestProcessDue_SkipsNotYetDue(t *testing.T) {
	f := newFixture()
	account := f.openAccount("0.00")

	a, err := f.allowanceSvc.Create(context.Background(), f.parent, CreateAllowanceInput{
		ChildID:   f.childID,
		Amount:    amt("10.00"),
		Frequency: model.FrequencyWeekly,
		StartDate: date(2024, time.March, 1),
	})
	require.NoError(t, err)

	require.NoError(t, f.allowanceSvc.ProcessDue(context.Background(), a.NextDueDate.Add(-time.Hour)))

	balance, _ := f.accounts.Balance(context.Background(), account.ID)
	assert.True(t, balance.IsZero())
}

func TestProcessDue_SkipsExpiredAndInactive(t *testing.T) {
	f := newFixture()
	account := f.openAccount("0.00")

	end := date(2024, time.March, 5)
	expired, err := f.allowanceSvc.Create(context.Background(), f.parent, CreateAllowanceInput{
		ChildID:   f.childID,
		Amount:    amt("10.00"),
		Frequency: model.FrequencyWeekly,
		StartDate: date(2024, time.March, 1),
		EndDate:   &end,
	})
	require.NoError(t, err)

	paused, err := f.allowanceSvc.Create(context.Background(), f.parent, CreateAllowanceInput{
		ChildID:   f.childID,
		Amount:    amt("10.00"),
		Frequency: model.FrequencyWeekly,
		StartDate: date(2024, time.March, 1),
	})
	require.NoError(t, err)
	inactive := false
	_, err = f.allowanceSvc.Update(context.Background(), f.parent, paused.ID, UpdateAllowanceInput{IsActive: &inactive})
	require.NoError(t, err)

	require.NoError(t, f.allowanceSvc.ProcessDue(context.Background(), expired.NextDueDate.Add(time.Hour)))

	balance, _ := f.accounts.Balance(context.Background(), account.ID)
	assert.True(t, balance.IsZero())
}

func TestProcessDue_NoActiveAccountSkipsWithoutAdvancing(t *testing.T) {
	f := newFixture()

	a, err := f.allowanceSvc.Create(context.Background(), f.parent, CreateAllowanceInput{
		ChildID:   f.childID,
		Amount:    amt("10.00"),
		Frequency: model.FrequencyWeekly,
		StartDate: date(2024, time.March, 1),
	})
	require.NoError(t, err)

	require.NoError(t, f.allowanceSvc.ProcessDue(context.Background(), a.NextDueDate.Add(time.Hour)))

	after, err := f.allowances.Get(context.Background(), a.ID)
	require.NoError(t, err)
	assert.True(t, after.NextDueDate.Equal(a.NextDueDate), "due date must hold until an account exists")
}

func TestProcessDue_BatchContinuesPastBrokenEntries(t *testing.T) {
	f := newFixture()
	account := f.openAccount("0.00")

	orphanChild := uuid.New()
	orphanParent := Access{UserID: f.parentID, Role: model.RoleParent, ChildIDs: []uuid.UUID{orphanChild}}
	_, err := f.allowanceSvc.Create(context.Background(), orphanParent, CreateAllowanceInput{
		ChildID:   orphanChild,
		Amount:    amt("5.00"),
		Frequency: model.FrequencyWeekly,
		StartDate: date(2024, time.March, 1),
	})
	require.NoError(t, err)

	healthy, err := f.allowanceSvc.Create(context.Background(), f.parent, CreateAllowanceInput{
		ChildID:   f.childID,
		Amount:    amt("10.00"),
		Frequency: model.FrequencyWeekly,
		StartDate: date(2024, time.March, 1),
	})
	require.NoError(t, err)

	require.NoError(t, f.allowanceSvc.ProcessDue(context.Background(), healthy.NextDueDate.Add(time.Hour)))

	balance, _ := f.accounts.Balance(context.Background(), account.ID)
	assert.True(t, balance.Equal(amt("10.00")), "a broken entry must not starve the rest of the batch")
}

func TestDeleteAllowance_ParentOnly(t *testing.T) {
	f := newFixture()
	a, err := f.allowanceSvc.Create(context.Background(), f.parent, CreateAllowanceInput{
		ChildID:   f.childID,
		Amount:    amt("10.00"),
		Frequency: model.FrequencyDaily,
		StartDate: f.now,
	})
	require.NoError(t, err)

	err = f.allowanceSvc.Delete(context.Background(), f.child, a.ID)
	assert.ErrorIs(t, err, model.ErrForbidden)

	require.NoError(t, f.allowanceSvc.Delete(context.Background(), f.parent, a.ID))
	_, err = f.allowances.Get(context.Background(), a.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
}
