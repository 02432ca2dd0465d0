// Package main is the entry point for the Python runner server.
//
// main stays minimal: read configuration from the environment, build the
// logger, hand everything to internal/server. All actual logic lives in the
// imported packages.
package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/sakif/pyrunner/internal/server"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	// PORT defaults to 8080.
	port := 8080
	if portStr := os.Getenv("PORT"); portStr != "" {
		var err error
		port, err = strconv.Atoi(portStr)
		if err != nil {
			logger.Error("invalid PORT value", slog.String("value", portStr))
			os.Exit(1)
		}
	}

	// DB_PATH holds the execution history. Set it to "" explicitly to
	// disable history recording.
	dbPath := "data/pyrunner.db"
	if envDB, ok := os.LookupEnv("DB_PATH"); ok {
		dbPath = envDB
	}
	if dbPath != "" {
		dbDir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			logger.Error("failed to create database directory",
				slog.String("dir", dbDir),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	// JWT_SECRET enables bearer auth on the execution endpoints. Unset
	// means the API is open — fine behind a trusted gateway, not on the
	// public internet.
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Warn("JWT_SECRET not set — authentication is disabled")
	}

	// INHERIT_ENV=1 reverts to passing the server's full environment to
	// child processes. This hands every secret in the environment to
	// whatever code clients submit; the default allowlist is safer.
	inheritEnv := os.Getenv("INHERIT_ENV") == "1"
	if inheritEnv {
		logger.Warn("INHERIT_ENV=1 — untrusted code will see the server's full environment")
	}

	cfg := server.Config{
		Port:       port,
		DBPath:     dbPath,
		JWTSecret:  jwtSecret,
		PythonBin:  os.Getenv("PYTHON_BIN"),
		InheritEnv: inheritEnv,
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start() blocks until the server is shut down (Ctrl+C or SIGTERM).
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
