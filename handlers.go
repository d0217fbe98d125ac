package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"
)

func healthHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("db unreachable"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}
}

func signupHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var req SignupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(SimpleResponse{OK: false, Error: "INVALID_REQUEST"})
			return
		}

		if !GetRuntimeSettings().SignupsEnabled {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(SimpleResponse{OK: false, Error: "SIGNUPS_DISABLED"})
			return
		}

		ip := getClientIP(r)
		limit, window := authRateLimitConfig("signup")
		allowed, retryAfter, err := checkAuthRateLimit(db, ip, "signup", limit, window)
		if err != nil {
			log.Println("Auth: signup rate limit check failed:", err)
		} else if !allowed {
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(AuthResponse{OK: false, Error: "RATE_LIMITED", RetryAfterSeconds: retryAfter})
			return
		}

		account, err := createAccount(db, req.Username, req.Password)
		if err != nil {
			code := "INTERNAL_ERROR"
			status := http.StatusInternalServerError
			switch {
			case err.Error() == "INVALID_USERNAME" || err.Error() == "INVALID_PASSWORD":
				code = err.Error()
				status = http.StatusBadRequest
			case isUniqueViolation(err):
				code = "USERNAME_TAKEN"
				status = http.StatusBadRequest
			default:
				log.Println("Auth: signup failed:", err)
			}
			w.WriteHeader(status)
			json.NewEncoder(w).Encode(SimpleResponse{OK: false, Error: code})
			return
		}

		signupsTotal.Inc()
		auditLog.Record("signup", account.AccountID, map[string]interface{}{
			"username": account.Username,
			"ip":       ip,
		})

		token, expiresAt, err := createSession(db, account.AccountID)
		if err != nil {
			log.Println("Auth: session create failed:", err)
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(SimpleResponse{OK: false, Error: "INTERNAL_ERROR"})
			return
		}
		writeSessionCookie(w, token, expiresAt)

		json.NewEncoder(w).Encode(AuthResponse{
			OK:       true,
			Username: account.Username,
			Token:    token,
		})
	}
}

func loginHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(SimpleResponse{OK: false, Error: "INVALID_REQUEST"})
			return
		}

		ip := getClientIP(r)
		limit, window := authRateLimitConfig("login")
		allowed, retryAfter, err := checkAuthRateLimit(db, ip, "login", limit, window)
		if err != nil {
			log.Println("Auth: login rate limit check failed:", err)
		} else if !allowed {
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(AuthResponse{OK: false, Error: "RATE_LIMITED", RetryAfterSeconds: retryAfter})
			return
		}

		account, err := authenticate(db, req.Username, req.Password)
		if err != nil {
			auditLog.Record("login_failed", "", map[string]interface{}{
				"username": req.Username,
				"ip":       ip,
			})
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(SimpleResponse{OK: false, Error: "INVALID_CREDENTIALS"})
			return
		}

		token, expiresAt, err := createSession(db, account.AccountID)
		if err != nil {
			log.Println("Auth: session create failed:", err)
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(SimpleResponse{OK: false, Error: "INTERNAL_ERROR"})
			return
		}
		writeSessionCookie(w, token, expiresAt)

		loginsTotal.Inc()
		auditLog.Record("login", account.AccountID, map[string]interface{}{
			"username": account.Username,
			"ip":       ip,
		})

		json.NewEncoder(w).Encode(AuthResponse{
			OK:       true,
			Username: account.Username,
			Token:    token,
		})
	}
}

func logoutHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		account, token, err := getSessionAccount(db, r)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(SimpleResponse{OK: false, Error: "INVALID_SESSION"})
			return
		}

		clearSession(db, token)
		clearSessionCookie(w)
		auditLog.Record("logout", account.AccountID, nil)
		json.NewEncoder(w).Encode(SimpleResponse{OK: true})
	}
}

func activeTasksHandler(rotation *RotationEngine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		tasks, err := rotation.GetActiveTasks(sessionTokenFromRequest(r))
		if err != nil {
			if errors.Is(err, ErrInvalidSession) {
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(ActiveTasksResponse{OK: false, Error: "INVALID_SESSION"})
				return
			}
			log.Println("Rotation: get active tasks failed:", err)
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(ActiveTasksResponse{OK: false, Error: "INTERNAL_ERROR"})
			return
		}

		json.NewEncoder(w).Encode(ActiveTasksResponse{OK: true, Tasks: tasks})
	}
}

func completeTaskHandler(db *sql.DB, completion *CompletionEngine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var req CompleteTaskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(CompleteTaskResponse{OK: false, Error: "INVALID_REQUEST"})
			return
		}
		if !validTaskName(req.TaskName) || !validImageURL(req.ImageURL) || req.Reward < 0 {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(CompleteTaskResponse{OK: false, Error: "INVALID_REQUEST"})
			return
		}

		record, balance, err := completion.CompleteTask(sessionTokenFromRequest(r), req.TaskName, req.ImageURL, req.Reward)
		if err != nil {
			switch {
			case errors.Is(err, ErrInvalidSession):
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(CompleteTaskResponse{OK: false, Error: "INVALID_SESSION"})
			case errors.Is(err, ErrDuplicateCompletion):
				duplicateCompletionsTotal.Inc()
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(CompleteTaskResponse{OK: false, Error: "ALREADY_COMPLETED"})
			default:
				log.Println("Completion: complete task failed:", err)
				w.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(w).Encode(CompleteTaskResponse{OK: false, Error: "INTERNAL_ERROR"})
			}
			return
		}

		completionsTotal.Inc()
		recordEvent(db, record.AccountID, "task_completed", map[string]interface{}{
			"taskName": record.TaskName,
			"reward":   req.Reward,
			"dayKey":   record.DayKey,
		})
		auditLog.Record("task_completed", record.AccountID, map[string]interface{}{
			"taskName": record.TaskName,
			"reward":   req.Reward,
		})

		json.NewEncoder(w).Encode(CompleteTaskResponse{
			OK:      true,
			Record:  record,
			Balance: balance,
		})
	}
}

func completionsHandler(db *sql.DB, ledger CompletionLedger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		account, _, err := getSessionAccount(db, r)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(CompletionsResponse{OK: false, Error: "INVALID_SESSION"})
			return
		}

		records, err := ledger.FindCompletionsByAccount(account.AccountID)
		if err != nil {
			log.Println("Completion: history load failed:", err)
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(CompletionsResponse{OK: false, Error: "INTERNAL_ERROR"})
			return
		}

		json.NewEncoder(w).Encode(CompletionsResponse{OK: true, Records: records})
	}
}

func profileHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		account, _, err := getSessionAccount(db, r)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(ProfileResponse{OK: false, Error: "INVALID_SESSION"})
			return
		}

		bonusOpen, err := CanClaimBonus(db, account.AccountID, time.Now())
		if err != nil {
			log.Println("Bonus: status check failed:", err)
			bonusOpen = false
		}

		json.NewEncoder(w).Encode(ProfileResponse{
			OK:             true,
			Username:       account.Username,
			Balance:        account.Balance,
			Role:           account.Role,
			BonusAvailable: bonusOpen,
		})
	}
}

func bonusClaimHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		account, _, err := getSessionAccount(db, r)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(BonusClaimResponse{OK: false, Error: "INVALID_SESSION"})
			return
		}

		now := time.Now()
		canClaim, err := CanClaimBonus(db, account.AccountID, now)
		if err != nil {
			log.Println("Bonus: claim check failed:", err)
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(BonusClaimResponse{OK: false, Error: "INTERNAL_ERROR"})
			return
		}
		if !canClaim {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(BonusClaimResponse{OK: false, Error: "ALREADY_CLAIMED"})
			return
		}

		amount := dailyBonusAmount()
		balance, err := creditCoins(db, account.AccountID, amount, CoinSourceDailyBonus, dayKey(now))
		if err != nil {
			log.Println("Bonus: credit failed:", err)
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(BonusClaimResponse{OK: false, Error: "INTERNAL_ERROR"})
			return
		}
		if err := RecordBonusClaim(db, account.AccountID, now); err != nil {
			log.Println("Bonus: claim record failed:", err)
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(BonusClaimResponse{OK: false, Error: "INTERNAL_ERROR"})
			return
		}

		bonusClaimsTotal.Inc()
		recordEvent(db, account.AccountID, "bonus_claimed", map[string]interface{}{
			"amount": amount,
			"dayKey": dayKey(now),
		})

		json.NewEncoder(w).Encode(BonusClaimResponse{
			OK:      true,
			Amount:  amount,
			Balance: balance,
		})
	}
}

func shopListHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		if _, _, err := getSessionAccount(db, r); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(ShopListResponse{OK: false, Error: "INVALID_SESSION"})
			return
		}

		items, err := listShopItems(db)
		if err != nil {
			log.Println("Shop: list failed:", err)
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(ShopListResponse{OK: false, Error: "INTERNAL_ERROR"})
			return
		}

		json.NewEncoder(w).Encode(ShopListResponse{OK: true, Items: items})
	}
}

func shopBuyHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		account, _, err := getSessionAccount(db, r)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(ShopBuyResponse{OK: false, Error: "INVALID_SESSION"})
			return
		}

		var req ShopBuyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ItemName == "" {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(ShopBuyResponse{OK: false, Error: "INVALID_REQUEST"})
			return
		}

		item, balance, err := buyShopItem(db, account.AccountID, req.ItemName)
		if err != nil {
			switch {
			case errors.Is(err, errUnknownItem):
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(ShopBuyResponse{OK: false, Error: "UNKNOWN_ITEM"})
			case errors.Is(err, errInsufficientFunds):
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(ShopBuyResponse{OK: false, Error: "INSUFFICIENT_FUNDS", Balance: balance})
			default:
				log.Println("Shop: buy failed:", err)
				w.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(w).Encode(ShopBuyResponse{OK: false, Error: "INTERNAL_ERROR"})
			}
			return
		}

		shopPurchasesTotal.Inc()
		recordEvent(db, account.AccountID, "shop_purchase", map[string]interface{}{
			"item": item.Name,
			"cost": item.Cost,
		})

		json.NewEncoder(w).Encode(ShopBuyResponse{
			OK:      true,
			Item:    item,
			Balance: balance,
		})
	}
}

// deleteAccountHandler is self-service removal: sessions go, completions
// are purged through the engine, then the account row itself.
func deleteAccountHandler(db *sql.DB, completion *CompletionEngine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		account, _, err := getSessionAccount(db, r)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(PurgeResponse{OK: false, Error: "INVALID_SESSION"})
			return
		}

		purged, err := deleteAccount(db, completion, account.AccountID)
		if err != nil {
			log.Println("Auth: account delete failed:", err)
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(PurgeResponse{OK: false, Error: "INTERNAL_ERROR"})
			return
		}

		clearSessionCookie(w)
		auditLog.Record("account_deleted", account.AccountID, map[string]interface{}{
			"username":          account.Username,
			"completionsPurged": purged,
		})

		json.NewEncoder(w).Encode(PurgeResponse{OK: true, Purged: purged})
	}
}

func deleteAccount(db *sql.DB, completion *CompletionEngine, accountID string) (int, error) {
	clearAccountSessions(db, accountID)

	purged, err := completion.PurgeCompletions(accountID)
	if err != nil {
		return purged, err
	}

	if _, err := db.Exec(`
		DELETE FROM bonus_claims
		WHERE account_id = $1
	`, accountID); err != nil {
		return purged, err
	}

	_, err = db.Exec(`
		DELETE FROM accounts
		WHERE account_id = $1
	`, accountID)
	return purged, err
}
