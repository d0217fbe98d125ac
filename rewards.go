package main

import (
	"context"
	"database/sql"
	"errors"
)

var errInsufficientFunds = errors.New("insufficient funds")

const (
	CoinSourceTaskReward = "task_reward"
	CoinSourceDailyBonus = "daily_bonus"
	CoinSourceShopSpend  = "shop_purchase"
)

// creditCoins adds amount to the account balance and appends a coin_log row,
// all inside one transaction. Amounts of zero or less only read the balance.
func creditCoins(db *sql.DB, accountID string, amount int64, sourceType string, detail string) (int64, error) {
	if amount <= 0 {
		return loadBalance(db, accountID)
	}

	tx, err := db.BeginTx(context.Background(), nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var balanceBefore int64
	if err := tx.QueryRow(`
		SELECT balance
		FROM accounts
		WHERE account_id = $1
		FOR UPDATE
	`, accountID).Scan(&balanceBefore); err != nil {
		return 0, err
	}

	balanceAfter := balanceBefore + amount
	if _, err := tx.Exec(`
		UPDATE accounts
		SET balance = balance + $2
		WHERE account_id = $1
	`, accountID, amount); err != nil {
		return 0, err
	}

	if err := logCoinChangeTx(tx, accountID, sourceType, detail, amount, balanceBefore, balanceAfter); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return balanceAfter, nil
}

func loadBalance(db *sql.DB, accountID string) (int64, error) {
	var balance int64
	err := db.QueryRow(`
		SELECT balance
		FROM accounts
		WHERE account_id = $1
	`, accountID).Scan(&balance)
	return balance, err
}

func logCoinChangeTx(tx *sql.Tx, accountID string, sourceType string, detail string, amount int64, balanceBefore int64, balanceAfter int64) error {
	_, err := tx.Exec(`
		INSERT INTO coin_log (
			account_id,
			source_type,
			detail,
			amount,
			balance_before,
			balance_after,
			created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`, accountID, sourceType, detail, amount, balanceBefore, balanceAfter)
	return err
}

// rewardStore is the balance collaborator handed to the completion engine.
type rewardStore struct {
	db *sql.DB
}

func (s *rewardStore) CreditReward(accountID string, taskName string, amount int64) (int64, error) {
	return creditCoins(s.db, accountID, amount, CoinSourceTaskReward, taskName)
}
