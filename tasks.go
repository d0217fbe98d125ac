package main

import (
	"database/sql"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Task is a catalog entry. The catalog is loaded from the seed file at
// startup and is read-only afterwards; rotation picks from it.
type Task struct {
	Name   string `yaml:"name" json:"name"`
	Reward int64  `yaml:"reward" json:"reward"`
}

type SeedFile struct {
	Tasks     []Task         `yaml:"tasks"`
	ShopItems []ShopItemSeed `yaml:"shop_items"`
}

func loadSeedFile(path string) (*SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return parseSeedFile(data)
}

func parseSeedFile(data []byte) (*SeedFile, error) {
	var seed SeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}

	seen := map[string]bool{}
	for _, task := range seed.Tasks {
		if task.Name == "" {
			return nil, fmt.Errorf("seed file: task with empty name")
		}
		if task.Reward < 0 {
			return nil, fmt.Errorf("seed file: task %q has negative reward", task.Name)
		}
		if seen[task.Name] {
			return nil, fmt.Errorf("seed file: duplicate task %q", task.Name)
		}
		seen[task.Name] = true
	}

	for _, item := range seed.ShopItems {
		if item.Name == "" {
			return nil, fmt.Errorf("seed file: shop item with empty name")
		}
		if item.Cost < 0 {
			return nil, fmt.Errorf("seed file: shop item %q has negative cost", item.Name)
		}
	}

	return &seed, nil
}

func seedTasks(db *sql.DB, tasks []Task) error {
	for _, task := range tasks {
		_, err := db.Exec(`
			INSERT INTO tasks (name, reward, created_at)
			VALUES ($1, $2, NOW())
			ON CONFLICT (name)
			DO UPDATE SET reward = EXCLUDED.reward
		`, task.Name, task.Reward)
		if err != nil {
			return fmt.Errorf("seed task %q: %w", task.Name, err)
		}
	}
	return nil
}

type taskCatalog struct {
	db *sql.DB
}

func (c *taskCatalog) FindAllTasks() ([]Task, error) {
	rows, err := c.db.Query(`
		SELECT name, reward
		FROM tasks
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.Name, &t.Reward); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}
