package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"quizbank-backend/config"
	"quizbank-backend/middleware"
)

func main() {
	subject := flag.String("subject", "test-editor", "editor id recorded as created_by")
	role := flag.String("role", "editor", "role claim: editor or admin")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if cfg.AuthJWTSecret == "" {
		log.Fatal("AUTH_JWT_SECRET not set, the API accepts unauthenticated requests")
	}

	token, err := middleware.IssueEditorToken(cfg.AuthJWTSecret, *subject, *role, *ttl)
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}

	fmt.Printf("✅ Test editor token created successfully!\n")
	fmt.Printf("   Subject: %s\n", *subject)
	fmt.Printf("   Role: %s\n", *role)
	fmt.Printf("   Expires: %s\n", time.Now().Add(*ttl).Format(time.RFC3339))
	fmt.Printf("\n%s\n", token)
}
