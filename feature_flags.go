package main

import "os"

type FeatureFlags struct {
	Telemetry bool
	AuditLog  bool
}

var featureFlags = loadFeatureFlags()

func loadFeatureFlags() FeatureFlags {
	return FeatureFlags{
		Telemetry: envFlag("ENABLE_TELEMETRY", true),
		AuditLog:  envFlag("ENABLE_AUDIT_LOG", true),
	}
}

func envFlag(name string, fallback bool) bool {
	val := os.Getenv(name)
	if val == "" {
		return fallback
	}
	return val == "true" || val == "1" || val == "yes"
}
