// Package config loads runtime tunables for the device core from the
// environment, with a .env fallback file discovered by walking up from the
// working directory to the module root. Everything here has a sane default
// so production callers need not set anything; integration tests shrink the
// timeouts and cache knobs to keep the suite fast.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Core holds the tunables the device worker and response cache read at
// construction time.
type Core struct {
	// CommandTimeout is the default per-Command ceiling.
	CommandTimeout time.Duration
	// FirmwareTimeout is the ceiling applied to UpdateFirmware Commands.
	FirmwareTimeout time.Duration
	// InboxCapacity is the bounded channel size per worker.
	InboxCapacity int
	// CacheTTL is how long a cache entry stays fresh.
	CacheTTL time.Duration
	// CacheCapacity is the max entries retained per device.
	CacheCapacity int
	// TransportOpenRetryDelay is the sleep between open retries.
	TransportOpenRetryDelay time.Duration
}

var (
	loaded     *Core
	loadedOnce bool
)

func defaults() Core {
	return Core{
		CommandTimeout:          30 * time.Second,
		FirmwareTimeout:         120 * time.Second,
		InboxCapacity:           100,
		CacheTTL:                30 * time.Second,
		CacheCapacity:           256,
		TransportOpenRetryDelay: 2 * time.Second,
	}
}

// Load reads the Core config, memoizing the result for the process lifetime.
func Load() Core {
	if loadedOnce {
		return *loaded
	}
	cfg := defaults()

	root := findModuleRoot()
	if data, err := os.ReadFile(filepath.Join(root, ".env")); err == nil {
		parseEnvFile(string(data), &cfg)
	}
	applyEnv(&cfg)

	loaded = &cfg
	loadedOnce = true
	return cfg
}

// Reset clears the memoized config; test-only, so successive tests can load
// different environment overrides.
func Reset() {
	loaded = nil
	loadedOnce = false
}

func applyEnv(cfg *Core) {
	if v := os.Getenv("KKCORE_COMMAND_TIMEOUT_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.CommandTimeout = time.Duration(ms) * time.Millisecond
		}
	}
	if v := os.Getenv("KKCORE_FIRMWARE_TIMEOUT_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.FirmwareTimeout = time.Duration(ms) * time.Millisecond
		}
	}
	if v := os.Getenv("KKCORE_INBOX_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.InboxCapacity = n
		}
	}
	if v := os.Getenv("KKCORE_CACHE_TTL_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.CacheTTL = time.Duration(ms) * time.Millisecond
		}
	}
	if v := os.Getenv("KKCORE_CACHE_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.CacheCapacity = n
		}
	}
}

func parseEnvFile(content string, cfg *Core) {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		switch key {
		case "KKCORE_COMMAND_TIMEOUT_MS":
			if ms, err := strconv.Atoi(value); err == nil {
				cfg.CommandTimeout = time.Duration(ms) * time.Millisecond
			}
		case "KKCORE_FIRMWARE_TIMEOUT_MS":
			if ms, err := strconv.Atoi(value); err == nil {
				cfg.FirmwareTimeout = time.Duration(ms) * time.Millisecond
			}
		case "KKCORE_INBOX_CAPACITY":
			if n, err := strconv.Atoi(value); err == nil {
				cfg.InboxCapacity = n
			}
		case "KKCORE_CACHE_TTL_MS":
			if ms, err := strconv.Atoi(value); err == nil {
				cfg.CacheTTL = time.Duration(ms) * time.Millisecond
			}
		case "KKCORE_CACHE_CAPACITY":
			if n, err := strconv.Atoi(value); err == nil {
				cfg.CacheCapacity = n
			}
		}
	}
}

func findModuleRoot() string {
	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}
	for {
		if _, err := os.Stat(filepath.Join(cwd, "go.mod")); err == nil {
			return cwd
		}
		parent := filepath.Dir(cwd)
		if parent == cwd {
			return cwd
		}
		cwd = parent
	}
}
