package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	completionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quests_completions_total",
		Help: "Task completions recorded.",
	})
	duplicateCompletionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quests_duplicate_completions_total",
		Help: "Completions rejected because the task was already done today.",
	})
	rotationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quests_rotations_total",
		Help: "Active task set rotations performed.",
	})
	loginsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quests_logins_total",
		Help: "Successful logins.",
	})
	signupsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quests_signups_total",
		Help: "Accounts created.",
	})
	bonusClaimsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quests_bonus_claims_total",
		Help: "Daily bonuses claimed.",
	})
	shopPurchasesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quests_shop_purchases_total",
		Help: "Shop items bought.",
	})
)
