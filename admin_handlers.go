package main

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
)

// requireAdmin gates the admin surface twice: the session must belong to an
// admin-role account, and the X-Admin-Key header must verify against that
// account's stored key hash. An account with no key set cannot use the
// surface at all.
func requireAdmin(db *sql.DB, w http.ResponseWriter, r *http.Request) (*Account, bool) {
	account, _, err := getSessionAccount(db, r)
	if err != nil || account == nil {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(SimpleResponse{OK: false, Error: "UNAUTHORIZED"})
		return nil, false
	}
	if account.Role != "admin" || account.AdminKeyHash == "" {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(SimpleResponse{OK: false, Error: "UNAUTHORIZED"})
		return nil, false
	}
	provided := r.Header.Get("X-Admin-Key")
	if provided == "" || !verifyAdminKey(account.AdminKeyHash, provided) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(SimpleResponse{OK: false, Error: "UNAUTHORIZED"})
		return nil, false
	}
	return account, true
}

func adminPurgeCompletionsHandler(db *sql.DB, completion *CompletionEngine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		admin, ok := requireAdmin(db, w, r)
		if !ok {
			return
		}

		var req AdminAccountRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AccountID == "" {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(PurgeResponse{OK: false, Error: "INVALID_REQUEST"})
			return
		}

		purged, err := completion.PurgeCompletions(req.AccountID)
		if err != nil {
			log.Println("Admin: purge failed:", err)
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(PurgeResponse{OK: false, Error: "INTERNAL_ERROR"})
			return
		}

		auditLog.Record("admin_purge_completions", admin.AccountID, map[string]interface{}{
			"targetAccountId": req.AccountID,
			"purged":          purged,
		})
		json.NewEncoder(w).Encode(PurgeResponse{OK: true, Purged: purged})
	}
}

func adminDeleteAccountHandler(db *sql.DB, completion *CompletionEngine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		admin, ok := requireAdmin(db, w, r)
		if !ok {
			return
		}

		var req AdminAccountRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AccountID == "" {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(PurgeResponse{OK: false, Error: "INVALID_REQUEST"})
			return
		}

		var exists bool
		if err := db.QueryRow(`
			SELECT TRUE
			FROM accounts
			WHERE account_id = $1
		`, req.AccountID).Scan(&exists); err != nil {
			if err == sql.ErrNoRows {
				w.WriteHeader(http.StatusNotFound)
				json.NewEncoder(w).Encode(PurgeResponse{OK: false, Error: "NOT_FOUND"})
				return
			}
			log.Println("Admin: account lookup failed:", err)
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(PurgeResponse{OK: false, Error: "INTERNAL_ERROR"})
			return
		}

		purged, err := deleteAccount(db, completion, req.AccountID)
		if err != nil {
			log.Println("Admin: account delete failed:", err)
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(PurgeResponse{OK: false, Error: "INTERNAL_ERROR"})
			return
		}

		auditLog.Record("admin_delete_account", admin.AccountID, map[string]interface{}{
			"targetAccountId":   req.AccountID,
			"completionsPurged": purged,
		})
		json.NewEncoder(w).Encode(PurgeResponse{OK: true, Purged: purged})
	}
}

func adminSettingsHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		admin, ok := requireAdmin(db, w, r)
		if !ok {
			return
		}

		var updates map[string]string
		if err := json.NewDecoder(r.Body).Decode(&updates); err != nil || len(updates) == 0 {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(SimpleResponse{OK: false, Error: "INVALID_REQUEST"})
			return
		}

		settings, err := UpdateRuntimeSettings(db, updates)
		if err != nil {
			log.Println("Admin: settings update failed:", err)
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(SimpleResponse{OK: false, Error: "INTERNAL_ERROR"})
			return
		}

		auditLog.Record("admin_settings_update", admin.AccountID, map[string]interface{}{
			"updates": updates,
		})
		json.NewEncoder(w).Encode(AdminSettingsResponse{
			OK:               true,
			DailyBonusAmount: settings.DailyBonusAmount,
			SignupsEnabled:   settings.SignupsEnabled,
		})
	}
}
