package worker

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pocketbank/internal/model"
)

func marshal(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestTranslateTransactionEvents(t *testing.T) {
	txnID := uuid.New()
	userID := uuid.New()
	at := time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)
	ev := model.TransactionEvent{
		TransactionID: txnID,
		UserID:        userID,
		Type:          model.TypePurchase,
		Amount:        decimal.RequireFromString("12.50"),
		CreatedAt:     at,
	}

	cases := []struct {
		topic string
		kind  model.NotificationKind
		title string
		body  string
	}{
		{model.TopicTransactionCreated, model.KindTransactionCreated,
			"New Transaction", "You have a new purchase transaction of $12.5"},
		{model.TopicTransactionApproved, model.KindTransactionApproved,
			"Transaction Approved", "Your transaction of $12.5 has been approved"},
	}
	for _, tc := range cases {
		t.Run(tc.topic, func(t *testing.T) {
			n, err := translate(tc.topic, marshal(t, ev))
			require.NoError(t, err)
			assert.Equal(t, userID, n.UserID)
			assert.Equal(t, tc.kind, n.Kind)
			assert.Equal(t, tc.title, n.Title)
			assert.Equal(t, tc.body, n.Body)
			assert.Equal(t, txnID.String(), n.Metadata["transaction_id"])
			assert.False(t, n.IsRead)
			assert.True(t, n.CreatedAt.Equal(at))
		})
	}
}

func TestTranslateDeclinedIncludesReason(t *testing.T) {
	ev := model.TransactionEvent{
		TransactionID: uuid.New(),
		UserID:        uuid.New(),
		Type:          model.TypePurchase,
		Amount:        decimal.RequireFromString("30"),
		Reason:        "too expensive",
	}
	n, err := translate(model.TopicTransactionDeclined, marshal(t, ev))
	require.NoError(t, err)
	assert.Equal(t, model.KindTransactionDeclined, n.Kind)
	assert.Equal(t, "Your transaction of $30 has been declined: too expensive", n.Body)

	ev.Reason = ""
	n, err = translate(model.TopicTransactionDeclined, marshal(t, ev))
	require.NoError(t, err)
	assert.Equal(t, "Your transaction of $30 has been declined", n.Body)
}

func TestTranslateGoalReached(t *testing.T) {
	goalID := uuid.New()
	userID := uuid.New()
	ev := model.GoalEvent{GoalID: goalID, UserID: userID, Name: "New bike"}

	n, err := translate(model.TopicGoalReached, marshal(t, ev))
	require.NoError(t, err)
	assert.Equal(t, model.KindGoalReached, n.Kind)
	assert.Equal(t, "Savings Goal Reached!", n.Title)
	assert.Equal(t, "Congratulations! You've reached your savings goal: New bike", n.Body)
	assert.Equal(t, goalID.String(), n.Metadata["goal_id"])
	assert.False(t, n.CreatedAt.IsZero(), "zero event time falls back to now")
}

func TestTranslateRejectsGarbage(t *testing.T) {
	_, err := translate(model.TopicTransactionCreated, []byte("{"))
	assert.Error(t, err)

	_, err = translate("transactions.unknown", []byte("{}"))
	assert.Error(t, err)
}
