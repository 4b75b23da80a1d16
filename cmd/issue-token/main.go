// Command issue-token mints a JWT signed with the service secret. Login lives
// in the main exam backend; this is for local testing and load runs.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/stemsi/exstem-session/internal/config"
	"github.com/stemsi/exstem-session/internal/logger"
	"github.com/stemsi/exstem-session/internal/service"
)

func main() {
	var (
		role        string
		id          int
		classID     int
		permissions string
	)
	flag.StringVar(&role, "role", "student", "Token type: student or admin")
	flag.IntVar(&id, "id", 0, "Student or admin ID")
	flag.IntVar(&classID, "class", 0, "Class ID (student tokens)")
	flag.StringVar(&permissions, "permissions",
		service.PermissionResultsRead+","+service.PermissionAttemptsManage,
		"Comma-separated permission codes (admin tokens)")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, "pretty")

	if id <= 0 {
		log.Fatal().Msg("-id is required")
	}

	authService := service.NewAuthService(cfg)

	var (
		token string
		err   error
	)
	switch service.TokenType(role) {
	case service.TokenTypeStudent:
		token, err = authService.GenerateStudentToken(id, classID)
	case service.TokenTypeAdmin:
		token, err = authService.GenerateAdminToken(id, splitPermissions(permissions))
	default:
		log.Fatal().Str("role", role).Msg("Unknown role")
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to issue token")
	}

	fmt.Fprintln(os.Stdout, token)
}

func splitPermissions(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
