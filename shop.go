package main

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

var errUnknownItem = errors.New("unknown shop item")

type ShopItem struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Cost        int64  `json:"cost"`
	Description string `json:"description"`
}

type ShopItemSeed struct {
	Name        string `yaml:"name"`
	Cost        int64  `yaml:"cost"`
	Description string `yaml:"description"`
}

func seedShopItems(db *sql.DB, items []ShopItemSeed) error {
	for _, item := range items {
		_, err := db.Exec(`
			INSERT INTO shop_items (id, name, cost, description, created_at)
			VALUES ($1, $2, $3, $4, NOW())
			ON CONFLICT (name)
			DO UPDATE SET cost = EXCLUDED.cost, description = EXCLUDED.description
		`, uuid.NewString(), item.Name, item.Cost, item.Description)
		if err != nil {
			return err
		}
	}
	return nil
}

func listShopItems(db *sql.DB) ([]ShopItem, error) {
	rows, err := db.Query(`
		SELECT id, name, cost, description
		FROM shop_items
		ORDER BY cost, name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ShopItem
	for rows.Next() {
		var item ShopItem
		if err := rows.Scan(&item.ID, &item.Name, &item.Cost, &item.Description); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// buyShopItem debits the item's cost and records the purchase in one
// transaction, so the balance never moves without a matching purchase row.
func buyShopItem(db *sql.DB, accountID string, itemName string) (*ShopItem, int64, error) {
	tx, err := db.BeginTx(context.Background(), nil)
	if err != nil {
		return nil, 0, err
	}
	defer tx.Rollback()

	var item ShopItem
	if err := tx.QueryRow(`
		SELECT id, name, cost, description
		FROM shop_items
		WHERE name = $1
	`, itemName).Scan(&item.ID, &item.Name, &item.Cost, &item.Description); err != nil {
		if err == sql.ErrNoRows {
			return nil, 0, errUnknownItem
		}
		return nil, 0, err
	}

	var balanceBefore int64
	if err := tx.QueryRow(`
		SELECT balance
		FROM accounts
		WHERE account_id = $1
		FOR UPDATE
	`, accountID).Scan(&balanceBefore); err != nil {
		return nil, 0, err
	}

	if balanceBefore < item.Cost {
		return nil, balanceBefore, errInsufficientFunds
	}

	balanceAfter := balanceBefore - item.Cost
	if _, err := tx.Exec(`
		UPDATE accounts
		SET balance = balance - $2
		WHERE account_id = $1
	`, accountID, item.Cost); err != nil {
		return nil, 0, err
	}

	if err := logCoinChangeTx(tx, accountID, CoinSourceShopSpend, item.Name, -item.Cost, balanceBefore, balanceAfter); err != nil {
		return nil, 0, err
	}

	if _, err := tx.Exec(`
		INSERT INTO purchases (id, account_id, item_id, price_paid, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`, uuid.NewString(), accountID, item.ID, item.Cost); err != nil {
		return nil, 0, err
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, err
	}
	return &item, balanceAfter, nil
}
