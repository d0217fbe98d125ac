package main

import (
	"encoding/json"
	"log"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// AuditLogger writes one JSON line per security-relevant action (signups,
// logins, purges, admin calls) to a rotating file.
type AuditLogger struct {
	logger *log.Logger
}

// auditLog stays nil when ENABLE_AUDIT_LOG is off; Record tolerates that.
var auditLog *AuditLogger

func NewAuditLogger(logPath string) *AuditLogger {
	writer := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    50, // MB
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	}
	return &AuditLogger{
		logger: log.New(writer, "", 0),
	}
}

// Record is a no-op on a nil logger, so callers don't need to care whether
// auditing is switched on.
func (a *AuditLogger) Record(action string, accountID string, fields map[string]interface{}) {
	if a == nil {
		return
	}

	record := map[string]interface{}{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"action":    action,
	}
	if accountID != "" {
		record["account_id"] = accountID
	}
	for k, v := range fields {
		record[k] = v
	}

	data, _ := json.Marshal(record)
	a.logger.Println(string(data))
}
