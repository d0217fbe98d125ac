package main

import (
	"database/sql"
)

// ActiveTask is one entry of the day's task pool. Every entry written by
// a single rotation carries the same UpdatedOn day key, so reading it off
// any row tells you when the pool was last rotated.
type ActiveTask struct {
	Name      string `json:"name"`
	Reward    int64  `json:"reward"`
	UpdatedOn string `json:"updatedOn"`
}

type activeTaskStore struct {
	db *sql.DB
}

func (s *activeTaskStore) FindAllActive() ([]ActiveTask, error) {
	rows, err := s.db.Query(`
		SELECT name, reward, updated_on
		FROM active_tasks
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var active []ActiveTask
	for rows.Next() {
		var t ActiveTask
		if err := rows.Scan(&t.Name, &t.Reward, &t.UpdatedOn); err != nil {
			return nil, err
		}
		active = append(active, t)
	}
	return active, rows.Err()
}

func (s *activeTaskStore) DeleteAllActive() error {
	_, err := s.db.Exec(`DELETE FROM active_tasks`)
	return err
}

func (s *activeTaskStore) SaveActive(task ActiveTask) error {
	_, err := s.db.Exec(`
		INSERT INTO active_tasks (name, reward, updated_on)
		VALUES ($1, $2, $3)
	`, task.Name, task.Reward, task.UpdatedOn)
	return err
}
