package main

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidSession      = errors.New("session does not resolve to an account")
	ErrDuplicateCompletion = errors.New("task already completed today")
)

// CompletionRecord is one ledger entry: account X finished task Y on day Z,
// with a proof image. Records are append-only; they only disappear when the
// account is purged.
type CompletionRecord struct {
	ID          string    `json:"id"`
	AccountID   string    `json:"accountId"`
	TaskName    string    `json:"taskName"`
	ImageURL    string    `json:"imageUrl"`
	DayKey      string    `json:"dayKey"`
	CompletedAt time.Time `json:"completedAt"`
}

type SessionVerifier interface {
	VerifySession(token string) (accountID string, ok bool, err error)
}

type CompletionLedger interface {
	SaveCompletion(rec CompletionRecord) error
	FindCompletionsByAccount(accountID string) ([]CompletionRecord, error)
	DeleteCompletionByID(id string) error
}

type RewardCreditor interface {
	CreditReward(accountID string, taskName string, amount int64) (int64, error)
}

type CompletionEngine struct {
	sessions SessionVerifier
	ledger   CompletionLedger
	rewards  RewardCreditor
	now      func() time.Time
}

func NewCompletionEngine(sessions SessionVerifier, ledger CompletionLedger, rewards RewardCreditor) (*CompletionEngine, error) {
	if sessions == nil {
		return nil, errors.New("completion engine: nil session verifier")
	}
	if ledger == nil {
		return nil, errors.New("completion engine: nil completion ledger")
	}
	if rewards == nil {
		return nil, errors.New("completion engine: nil reward creditor")
	}
	return &CompletionEngine{
		sessions: sessions,
		ledger:   ledger,
		rewards:  rewards,
		now:      time.Now,
	}, nil
}

// CompleteTask records that the session's account finished taskName today
// and credits the reward. A task can be completed at most once per account
// per day key; yesterday's completion never blocks today's.
func (e *CompletionEngine) CompleteTask(token string, taskName string, imageURL string, reward int64) (*CompletionRecord, int64, error) {
	accountID, ok, err := e.sessions.VerifySession(token)
	if err != nil {
		return nil, 0, fmt.Errorf("verify session: %w", err)
	}
	if !ok {
		return nil, 0, ErrInvalidSession
	}

	now := e.now()
	today := dayKey(now)

	records, err := e.ledger.FindCompletionsByAccount(accountID)
	if err != nil {
		return nil, 0, fmt.Errorf("load completions: %w", err)
	}
	// Read-then-write: two racing submissions for the same task can both
	// pass this scan, and the ledger carries no uniqueness constraint to
	// stop the second insert.
	for _, rec := range records {
		if rec.DayKey == today && rec.TaskName == taskName {
			return nil, 0, ErrDuplicateCompletion
		}
	}

	rec := CompletionRecord{
		ID:          uuid.NewString(),
		AccountID:   accountID,
		TaskName:    taskName,
		ImageURL:    imageURL,
		DayKey:      today,
		CompletedAt: now,
	}
	if err := e.ledger.SaveCompletion(rec); err != nil {
		return nil, 0, fmt.Errorf("save completion: %w", err)
	}

	balance, err := e.rewards.CreditReward(accountID, taskName, reward)
	if err != nil {
		return nil, 0, fmt.Errorf("credit reward: %w", err)
	}

	return &rec, balance, nil
}

// PurgeCompletions deletes every ledger entry for the account, one by id,
// and reports how many went. Used when an account is deleted.
func (e *CompletionEngine) PurgeCompletions(accountID string) (int, error) {
	records, err := e.ledger.FindCompletionsByAccount(accountID)
	if err != nil {
		return 0, fmt.Errorf("load completions: %w", err)
	}

	deleted := 0
	for _, rec := range records {
		if err := e.ledger.DeleteCompletionByID(rec.ID); err != nil {
			return deleted, fmt.Errorf("delete completion %s: %w", rec.ID, err)
		}
		deleted++
	}
	return deleted, nil
}

/* ======================
   SQL ledger
   ====================== */

type completionStore struct {
	db *sql.DB
}

func (s *completionStore) SaveCompletion(rec CompletionRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO completions (
			id,
			account_id,
			task_name,
			image_url,
			day_key,
			completed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, rec.ID, rec.AccountID, rec.TaskName, rec.ImageURL, rec.DayKey, rec.CompletedAt)
	return err
}

func (s *completionStore) FindCompletionsByAccount(accountID string) ([]CompletionRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, account_id, task_name, image_url, day_key, completed_at
		FROM completions
		WHERE account_id = $1
		ORDER BY completed_at DESC
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []CompletionRecord
	for rows.Next() {
		var rec CompletionRecord
		if err := rows.Scan(&rec.ID, &rec.AccountID, &rec.TaskName, &rec.ImageURL, &rec.DayKey, &rec.CompletedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *completionStore) DeleteCompletionByID(id string) error {
	_, err := s.db.Exec(`
		DELETE FROM completions
		WHERE id = $1
	`, id)
	return err
}
