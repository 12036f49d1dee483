package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/workshop/backend/internal/domain/shared"
	"github.com/workshop/backend/internal/infrastructure/auth"
	"github.com/workshop/backend/internal/infrastructure/config"
	"github.com/workshop/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// token issues an operator access token signed with the configured secret.
// Identities live outside this service, so this is how operators get a
// bearer token for local and staging environments.
func main() {
	var (
		operatorID string
		name       string
		role       string
	)
	flag.StringVar(&operatorID, "id", "", "Operator UUID (default: random)")
	flag.StringVar(&name, "name", "", "Operator display name")
	flag.StringVar(&role, "role", "frontdesk", "Operator role (admin, frontdesk, mechanic)")
	flag.Parse()

	log, err := logger.New(config.LogConfig{Level: "info", Format: "console", Output: "stderr"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	op := shared.Operator{ID: uuid.New(), Name: name}
	if operatorID != "" {
		if op.ID, err = uuid.Parse(operatorID); err != nil {
			log.Fatal("Invalid operator id", zap.String("id", operatorID), zap.Error(err))
		}
	}
	if op.Role, err = shared.ParseRole(role); err != nil {
		log.Fatal("Invalid role", zap.String("role", role), zap.Error(err))
	}

	jwtService := auth.NewJWTService(cfg.JWT)
	token, err := jwtService.Issue(op)
	if err != nil {
		log.Fatal("Failed to issue token", zap.Error(err))
	}
	log.Info("Token issued",
		zap.String("operator_id", op.ID.String()),
		zap.String("role", op.Role.String()),
		zap.Duration("valid_for", jwtService.Expiration()),
	)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(token); err != nil {
		log.Fatal("Failed to write token", zap.Error(err))
	}
}
