package main

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"
)

// activeSetSize is how many tasks are in play on any given day.
const activeSetSize = 3

type ActiveTaskStore interface {
	FindAllActive() ([]ActiveTask, error)
	DeleteAllActive() error
	SaveActive(task ActiveTask) error
}

type TaskSource interface {
	FindAllTasks() ([]Task, error)
}

type RotationEngine struct {
	sessions SessionVerifier
	active   ActiveTaskStore
	catalog  TaskSource
	ledger   CompletionLedger
	now      func() time.Time
	rng      *rand.Rand
}

func NewRotationEngine(sessions SessionVerifier, active ActiveTaskStore, catalog TaskSource, ledger CompletionLedger) (*RotationEngine, error) {
	if sessions == nil {
		return nil, errors.New("rotation engine: nil session verifier")
	}
	if active == nil {
		return nil, errors.New("rotation engine: nil active task store")
	}
	if catalog == nil {
		return nil, errors.New("rotation engine: nil task source")
	}
	if ledger == nil {
		return nil, errors.New("rotation engine: nil completion ledger")
	}
	return &RotationEngine{
		sessions: sessions,
		active:   active,
		catalog:  catalog,
		ledger:   ledger,
		now:      time.Now,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// GetActiveTasks returns the task pool the account should see right now.
// A stale or empty pool is rotated first; a current pool is narrowed to
// the tasks the account has not completed today. The narrowing is a view
// only and is never written back.
func (e *RotationEngine) GetActiveTasks(token string) ([]ActiveTask, error) {
	accountID, ok, err := e.sessions.VerifySession(token)
	if err != nil {
		return nil, fmt.Errorf("verify session: %w", err)
	}
	if !ok {
		return nil, ErrInvalidSession
	}

	active, err := e.active.FindAllActive()
	if err != nil {
		return nil, fmt.Errorf("load active tasks: %w", err)
	}

	today := dayKey(e.now())
	if len(active) == 0 || active[0].UpdatedOn != today {
		return e.rotate(today)
	}
	return e.filterCompleted(accountID, today, active)
}

// rotate replaces the whole pool with activeSetSize distinct tasks drawn
// from the catalog. The delete and the inserts are separate statements;
// two rotations racing across a day boundary can interleave and leave
// extra rows behind.
func (e *RotationEngine) rotate(today string) ([]ActiveTask, error) {
	tasks, err := e.catalog.FindAllTasks()
	if err != nil {
		return nil, fmt.Errorf("load task catalog: %w", err)
	}
	if len(tasks) < activeSetSize {
		return nil, fmt.Errorf("task catalog has %d tasks, need at least %d to rotate", len(tasks), activeSetSize)
	}

	if err := e.active.DeleteAllActive(); err != nil {
		return nil, fmt.Errorf("clear active tasks: %w", err)
	}

	picked := e.rng.Perm(len(tasks))[:activeSetSize]
	fresh := make([]ActiveTask, 0, activeSetSize)
	for _, idx := range picked {
		task := ActiveTask{
			Name:      tasks[idx].Name,
			Reward:    tasks[idx].Reward,
			UpdatedOn: today,
		}
		if err := e.active.SaveActive(task); err != nil {
			return nil, fmt.Errorf("save active task %q: %w", task.Name, err)
		}
		fresh = append(fresh, task)
	}

	names := make([]string, 0, len(fresh))
	for _, t := range fresh {
		names = append(names, t.Name)
	}
	log.Println("Rotation: new active set for", today, names)
	rotationsTotal.Inc()

	return fresh, nil
}

// filterCompleted drops the first active entry matching each task name the
// account completed today. Duplicate pool entries survive unless completed
// again, matching the one-removal-per-name rule.
func (e *RotationEngine) filterCompleted(accountID string, today string, active []ActiveTask) ([]ActiveTask, error) {
	records, err := e.ledger.FindCompletionsByAccount(accountID)
	if err != nil {
		return nil, fmt.Errorf("load completions: %w", err)
	}

	remaining := make([]ActiveTask, len(active))
	copy(remaining, active)

	for _, rec := range records {
		if rec.DayKey != today {
			continue
		}
		for i, t := range remaining {
			if t.Name == rec.TaskName {
				remaining = append(remaining[:i], remaining[i+1:]...)
				break
			}
		}
	}
	return remaining, nil
}
