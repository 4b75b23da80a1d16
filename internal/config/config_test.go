package config

import (
	"reflect"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"SERVER_PORT", "SWEEP_INTERVAL_SECONDS", "DEFAULT_PASSING_PERCENTAGE",
		"PARTIAL_CREDIT_MULTI", "ALLOWED_ORIGINS", "RATE_LIMIT_PER_MINUTE",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q, want 8080", cfg.ServerPort)
	}
	if cfg.SweepInterval != 15*time.Second {
		t.Errorf("SweepInterval = %v, want 15s", cfg.SweepInterval)
	}
	if cfg.DefaultPassingPercentage != 40 {
		t.Errorf("DefaultPassingPercentage = %v, want 40", cfg.DefaultPassingPercentage)
	}
	if cfg.PartialCreditMulti {
		t.Error("PartialCreditMulti enabled by default")
	}
	if cfg.AllowedOrigins != nil {
		t.Errorf("AllowedOrigins = %v, want nil", cfg.AllowedOrigins)
	}
	if cfg.RateLimitPerMinute != 120 {
		t.Errorf("RateLimitPerMinute = %d, want 120", cfg.RateLimitPerMinute)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SWEEP_INTERVAL_SECONDS", "5")
	t.Setenv("CATALOG_CACHE_TTL_SECONDS", "60")
	t.Setenv("DEFAULT_PASSING_PERCENTAGE", "62.5")
	t.Setenv("PARTIAL_CREDIT_MULTI", "true")
	t.Setenv("ALLOWED_ORIGINS", " https://ujian.sekolah.id , ,https://admin.sekolah.id")
	t.Setenv("JWT_EXPIRY_HOURS", "2")

	cfg := Load()
	if cfg.SweepInterval != 5*time.Second || cfg.CatalogCacheTTL != time.Minute {
		t.Errorf("durations = %v / %v", cfg.SweepInterval, cfg.CatalogCacheTTL)
	}
	if cfg.DefaultPassingPercentage != 62.5 || !cfg.PartialCreditMulti {
		t.Errorf("scoring = %v / %v", cfg.DefaultPassingPercentage, cfg.PartialCreditMulti)
	}
	if want := []string{"https://ujian.sekolah.id", "https://admin.sekolah.id"}; !reflect.DeepEqual(cfg.AllowedOrigins, want) {
		t.Errorf("AllowedOrigins = %v, want %v", cfg.AllowedOrigins, want)
	}
	if cfg.JWTExpiry != 2*time.Hour {
		t.Errorf("JWTExpiry = %v, want 2h", cfg.JWTExpiry)
	}
}

func TestLoadInvalidNumbersFallBack(t *testing.T) {
	t.Setenv("SWEEP_BATCH_SIZE", "many")
	t.Setenv("DEFAULT_PASSING_PERCENTAGE", "half")
	t.Setenv("PARTIAL_CREDIT_MULTI", "maybe")

	cfg := Load()
	if cfg.SweepBatchSize != 100 || cfg.DefaultPassingPercentage != 40 || cfg.PartialCreditMulti {
		t.Errorf("fallbacks not applied: %d / %v / %v", cfg.SweepBatchSize, cfg.DefaultPassingPercentage, cfg.PartialCreditMulti)
	}
}

func TestKeys(t *testing.T) {
	if got := CacheKey.ExamMonitorChannel("e1"); got != "exam:e1:monitor" {
		t.Errorf("ExamMonitorChannel = %q", got)
	}
	if got := CacheKey.StudentEligibilityKey("e1", 9); got != "student:9:exam:e1:eligible" {
		t.Errorf("StudentEligibilityKey = %q", got)
	}
	if WorkerKey.AutoSubmitLock == "" {
		t.Error("AutoSubmitLock is empty")
	}
}
