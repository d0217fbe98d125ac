package main

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSessions struct {
	accounts map[string]string
	err      error
}

func (f *fakeSessions) VerifySession(token string) (string, bool, error) {
	if f.err != nil {
		return "", false, f.err
	}
	accountID, ok := f.accounts[token]
	return accountID, ok, nil
}

type fakeLedger struct {
	records []CompletionRecord
	saveErr error
	findErr error
}

func (f *fakeLedger) SaveCompletion(rec CompletionRecord) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeLedger) FindCompletionsByAccount(accountID string) ([]CompletionRecord, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	var out []CompletionRecord
	for _, rec := range f.records {
		if rec.AccountID == accountID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeLedger) DeleteCompletionByID(id string) error {
	for i, rec := range f.records {
		if rec.ID == id {
			f.records = append(f.records[:i], f.records[i+1:]...)
			return nil
		}
	}
	return nil
}

type fakeRewards struct {
	balance int64
	credits []int64
	err     error
}

func (f *fakeRewards) CreditReward(accountID string, taskName string, amount int64) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.balance += amount
	f.credits = append(f.credits, amount)
	return f.balance, nil
}

func newTestCompletionEngine(t *testing.T, sessions *fakeSessions, ledger *fakeLedger, rewards *fakeRewards) *CompletionEngine {
	t.Helper()
	engine, err := NewCompletionEngine(sessions, ledger, rewards)
	require.NoError(t, err)
	return engine
}

func TestNewCompletionEngine_NilDeps(t *testing.T) {
	sessions := &fakeSessions{}
	ledger := &fakeLedger{}
	rewards := &fakeRewards{}

	_, err := NewCompletionEngine(nil, ledger, rewards)
	assert.Error(t, err)
	_, err = NewCompletionEngine(sessions, nil, rewards)
	assert.Error(t, err)
	_, err = NewCompletionEngine(sessions, ledger, nil)
	assert.Error(t, err)
}

func TestCompleteTask_RecordsAndCredits(t *testing.T) {
	sessions := &fakeSessions{accounts: map[string]string{"tok": "u1"}}
	ledger := &fakeLedger{}
	rewards := &fakeRewards{}
	engine := newTestCompletionEngine(t, sessions, ledger, rewards)

	now := time.Date(2026, 8, 24, 15, 4, 5, 0, time.UTC)
	engine.now = func() time.Time { return now }

	rec, balance, err := engine.CompleteTask("tok", "attend lecture", "img.jpg", 100)
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, "u1", rec.AccountID)
	assert.Equal(t, "attend lecture", rec.TaskName)
	assert.Equal(t, "img.jpg", rec.ImageURL)
	assert.Equal(t, "2026-08-24", rec.DayKey)
	assert.Equal(t, now, rec.CompletedAt)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, int64(100), balance)
	assert.Equal(t, []int64{100}, rewards.credits)
	require.Len(t, ledger.records, 1)
}

func TestCompleteTask_SameDayDuplicateRejected(t *testing.T) {
	sessions := &fakeSessions{accounts: map[string]string{"tok": "u1"}}
	ledger := &fakeLedger{}
	rewards := &fakeRewards{}
	engine := newTestCompletionEngine(t, sessions, ledger, rewards)
	engine.now = func() time.Time {
		return time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)
	}

	_, _, err := engine.CompleteTask("tok", "attend lecture", "img.jpg", 100)
	require.NoError(t, err)

	_, _, err = engine.CompleteTask("tok", "attend lecture", "img2.jpg", 100)
	assert.ErrorIs(t, err, ErrDuplicateCompletion)

	assert.Len(t, ledger.records, 1)
	assert.Equal(t, []int64{100}, rewards.credits)
}

func TestCompleteTask_DifferentTaskSameDayAllowed(t *testing.T) {
	sessions := &fakeSessions{accounts: map[string]string{"tok": "u1"}}
	ledger := &fakeLedger{}
	engine := newTestCompletionEngine(t, sessions, ledger, &fakeRewards{})
	engine.now = func() time.Time {
		return time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)
	}

	_, _, err := engine.CompleteTask("tok", "run 2km", "a.jpg", 10)
	require.NoError(t, err)
	_, _, err = engine.CompleteTask("tok", "read 20 pages", "b.jpg", 5)
	require.NoError(t, err)
	assert.Len(t, ledger.records, 2)
}

func TestCompleteTask_NextDayAllowed(t *testing.T) {
	sessions := &fakeSessions{accounts: map[string]string{"tok": "u1"}}
	ledger := &fakeLedger{}
	engine := newTestCompletionEngine(t, sessions, ledger, &fakeRewards{})

	day1 := time.Date(2026, 8, 24, 23, 59, 0, 0, time.UTC)
	engine.now = func() time.Time { return day1 }
	_, _, err := engine.CompleteTask("tok", "run 2km", "a.jpg", 10)
	require.NoError(t, err)

	day2 := day1.Add(2 * time.Minute)
	engine.now = func() time.Time { return day2 }
	_, _, err = engine.CompleteTask("tok", "run 2km", "b.jpg", 10)
	require.NoError(t, err)
	assert.Len(t, ledger.records, 2)
}

func TestCompleteTask_InvalidSession(t *testing.T) {
	sessions := &fakeSessions{accounts: map[string]string{"tok": "u1"}}
	ledger := &fakeLedger{}
	rewards := &fakeRewards{}
	engine := newTestCompletionEngine(t, sessions, ledger, rewards)

	_, _, err := engine.CompleteTask("bad-token", "run 2km", "a.jpg", 10)
	assert.ErrorIs(t, err, ErrInvalidSession)
	assert.Empty(t, ledger.records)
	assert.Empty(t, rewards.credits)
}

func TestCompleteTask_StoreErrorsWrapped(t *testing.T) {
	storeErr := errors.New("connection reset")
	sessions := &fakeSessions{accounts: map[string]string{"tok": "u1"}}
	engine := newTestCompletionEngine(t, sessions, &fakeLedger{findErr: storeErr}, &fakeRewards{})

	_, _, err := engine.CompleteTask("tok", "run 2km", "a.jpg", 10)
	assert.ErrorIs(t, err, storeErr)
}

func TestCompleteTask_OtherAccountDoesNotBlock(t *testing.T) {
	sessions := &fakeSessions{accounts: map[string]string{"tok1": "u1", "tok2": "u2"}}
	ledger := &fakeLedger{}
	engine := newTestCompletionEngine(t, sessions, ledger, &fakeRewards{})
	engine.now = func() time.Time {
		return time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)
	}

	_, _, err := engine.CompleteTask("tok1", "run 2km", "a.jpg", 10)
	require.NoError(t, err)
	_, _, err = engine.CompleteTask("tok2", "run 2km", "b.jpg", 10)
	require.NoError(t, err)
	assert.Len(t, ledger.records, 2)
}

func TestPurgeCompletions(t *testing.T) {
	sessions := &fakeSessions{accounts: map[string]string{"tok": "u1"}}
	ledger := &fakeLedger{records: []CompletionRecord{
		{ID: "a", AccountID: "u1", TaskName: "run 2km"},
		{ID: "b", AccountID: "u1", TaskName: "read 20 pages"},
		{ID: "c", AccountID: "u2", TaskName: "run 2km"},
	}}
	engine := newTestCompletionEngine(t, sessions, ledger, &fakeRewards{})

	count, err := engine.PurgeCompletions("u1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	remaining, err := ledger.FindCompletionsByAccount("u1")
	require.NoError(t, err)
	assert.Empty(t, remaining)

	kept, err := ledger.FindCompletionsByAccount("u2")
	require.NoError(t, err)
	assert.Len(t, kept, 1)
}

func TestPurgeCompletions_EmptyAccount(t *testing.T) {
	sessions := &fakeSessions{accounts: map[string]string{}}
	engine := newTestCompletionEngine(t, sessions, &fakeLedger{}, &fakeRewards{})

	count, err := engine.PurgeCompletions("nobody")
	require.NoError(t, err)
	assert.Zero(t, count)
}
