package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

/* ======================
   Request / Response Types
   ====================== */

type SignupRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AuthResponse struct {
	OK                bool   `json:"ok"`
	Error             string `json:"error,omitempty"`
	Username          string `json:"username,omitempty"`
	Token             string `json:"token,omitempty"`
	RetryAfterSeconds int    `json:"retryAfterSeconds,omitempty"`
}

type SimpleResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type ActiveTasksResponse struct {
	OK    bool         `json:"ok"`
	Error string       `json:"error,omitempty"`
	Tasks []ActiveTask `json:"tasks"`
}

type CompleteTaskRequest struct {
	TaskName string `json:"taskName"`
	ImageURL string `json:"imageUrl"`
	Reward   int64  `json:"reward"`
}

type CompleteTaskResponse struct {
	OK      bool              `json:"ok"`
	Error   string            `json:"error,omitempty"`
	Record  *CompletionRecord `json:"record,omitempty"`
	Balance int64             `json:"balance,omitempty"`
}

type CompletionsResponse struct {
	OK      bool               `json:"ok"`
	Error   string             `json:"error,omitempty"`
	Records []CompletionRecord `json:"records"`
}

type ProfileResponse struct {
	OK             bool   `json:"ok"`
	Error          string `json:"error,omitempty"`
	Username       string `json:"username,omitempty"`
	Balance        int64  `json:"balance"`
	Role           string `json:"role,omitempty"`
	BonusAvailable bool   `json:"bonusAvailable"`
}

type BonusClaimResponse struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
	Amount  int64  `json:"amount,omitempty"`
	Balance int64  `json:"balance,omitempty"`
}

type ShopListResponse struct {
	OK    bool       `json:"ok"`
	Error string     `json:"error,omitempty"`
	Items []ShopItem `json:"items"`
}

type ShopBuyRequest struct {
	ItemName string `json:"itemName"`
}

type ShopBuyResponse struct {
	OK      bool      `json:"ok"`
	Error   string    `json:"error,omitempty"`
	Item    *ShopItem `json:"item,omitempty"`
	Balance int64     `json:"balance,omitempty"`
}

type PurgeResponse struct {
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
	Purged int    `json:"purged"`
}

type AdminAccountRequest struct {
	AccountID string `json:"accountId"`
}

type AdminSettingsResponse struct {
	OK               bool   `json:"ok"`
	Error            string `json:"error,omitempty"`
	DailyBonusAmount int64  `json:"dailyBonusAmount"`
	SignupsEnabled   bool   `json:"signupsEnabled"`
}

/* ======================
   main()
   ====================== */

func main() {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "local"
	}
	log.Println("App environment:", env)

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatal("failed to open database:", err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		log.Fatal("failed to ping database:", err)
	}
	log.Println("Connected to PostgreSQL")

	if featureFlags.AuditLog {
		auditPath := os.Getenv("AUDIT_LOG_FILE")
		if auditPath == "" {
			auditPath = "audit.log"
		}
		auditLog = NewAuditLogger(auditPath)
	}

	ctx := context.Background()
	lockConn, acquired, err := acquireStartupLock(ctx, db)
	if err != nil {
		log.Fatal("Failed to acquire startup lock:", err)
	}
	if acquired {
		startupLockConn = lockConn
		log.Println("Startup lock acquired; running leader-only initialization")

		if err := ensureSchema(db); err != nil {
			log.Fatal("Failed to ensure schema:", err)
		}
		if err := ensureAdminAccount(ctx, db); err != nil {
			log.Fatal("Admin bootstrap failed:", err)
		}

		seedPath := os.Getenv("TASKS_FILE")
		if seedPath == "" {
			seedPath = "tasks.yaml"
		}
		seed, err := loadSeedFile(seedPath)
		if err != nil {
			log.Fatal("Failed to load seed file:", err)
		}
		if err := seedTasks(db, seed.Tasks); err != nil {
			log.Fatal("Failed to seed tasks:", err)
		}
		if err := seedShopItems(db, seed.ShopItems); err != nil {
			log.Fatal("Failed to seed shop items:", err)
		}
		log.Println("Seeded", len(seed.Tasks), "tasks and", len(seed.ShopItems), "shop items")
	} else {
		log.Println("Startup lock held by another instance; skipping leader-only initialization")
	}

	if err := LoadRuntimeSettings(db); err != nil {
		log.Println("Failed to load runtime settings:", err)
	}

	sessions := &sessionStore{db: db}
	ledger := &completionStore{db: db}
	completion, err := NewCompletionEngine(sessions, ledger, &rewardStore{db: db})
	if err != nil {
		log.Fatal("Failed to build completion engine:", err)
	}
	rotation, err := NewRotationEngine(sessions, &activeTaskStore{db: db}, &taskCatalog{db: db}, ledger)
	if err != nil {
		log.Fatal("Failed to build rotation engine:", err)
	}

	if acquired {
		startSessionSweeper(db)
	}

	mux := http.NewServeMux()
	registerRoutes(mux, db, completion, rotation, ledger)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	addr := "0.0.0.0:" + port
	log.Println("Listening on", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal("server failed:", err)
	}
}

/* ======================
   Routes
   ====================== */

func registerRoutes(mux *http.ServeMux, db *sql.DB, completion *CompletionEngine, rotation *RotationEngine, ledger CompletionLedger) {
	mux.HandleFunc("/healthz", healthHandler(db))
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/api/signup", signupHandler(db))
	mux.HandleFunc("/api/login", loginHandler(db))
	mux.HandleFunc("/api/logout", logoutHandler(db))

	mux.HandleFunc("/api/active-tasks", activeTasksHandler(rotation))
	mux.HandleFunc("/api/complete-task", completeTaskHandler(db, completion))
	mux.HandleFunc("/api/completions", completionsHandler(db, ledger))
	mux.HandleFunc("/api/profile", profileHandler(db))
	mux.HandleFunc("/api/bonus/claim", bonusClaimHandler(db))

	mux.HandleFunc("/api/shop", shopListHandler(db))
	mux.HandleFunc("/api/shop/buy", shopBuyHandler(db))

	mux.HandleFunc("/api/account", deleteAccountHandler(db, completion))

	mux.HandleFunc("/api/admin/purge-completions", adminPurgeCompletionsHandler(db, completion))
	mux.HandleFunc("/api/admin/account", adminDeleteAccountHandler(db, completion))
	mux.HandleFunc("/api/admin/settings", adminSettingsHandler(db))
}
