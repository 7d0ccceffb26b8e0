// Package config provides application configuration management from environment variables.
//
// # Configuration Structure
//
// Server settings:
//
//	SOLVENOTE_PORT="8080"
//	SOLVENOTE_HEALTH_PORT="9090"
//	SOLVENOTE_CORS_ORIGINS="*"
//
// Credit store:
//
//	SOLVENOTE_DATABASE_URL="postgres://localhost/solvenote?sslmode=disable"
//	SOLVENOTE_CREDITS_DEFAULT_ALLOWANCE="3"
//	SOLVENOTE_CREDITS_RESET_TIMEZONE="UTC"
//	SOLVENOTE_CREDITS_STORE_TIMEOUT="5s"
//
// Authentication:
//
//	SOLVENOTE_AUTH_MODE="jwt"            # jwt (shared HS256 secret) or oidc
//	SOLVENOTE_AUTH_JWT_SECRET="..."
//	SOLVENOTE_AUTH_OIDC_ISSUER="https://issuer.example"
//	SOLVENOTE_AUTH_OIDC_CLIENT_ID="solvenote"
//
// Payments:
//
//	SOLVENOTE_STRIPE_WEBHOOK_SECRET="whsec_..."  # empty disables signature checks
//
// Optional services:
//
//	SOLVENOTE_REDIS_ENABLED="true"
//	SOLVENOTE_REDIS_URL="redis://localhost:6379/0"
//	OPENAI_API_KEY="sk-..."                  # empty uses template suggestions
//
// # Usage
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// A .env file in the working directory is loaded by the server binary before LoadConfig runs.
package config
