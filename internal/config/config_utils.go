package config

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// applyFallbacks applies environment variable fallbacks
func (c *Config) applyFallbacks() {
	// GEMINI_API_KEY is the name most Gemini tooling reads.
	if c.AI.APIKey == "" {
		c.AI.APIKey = os.Getenv("GEMINI_API_KEY")
	}

	if c.Database.URL == "" {
		c.Database.URL = os.Getenv("DATABASE_URL")
	}

	c.Server.APIKeys = splitEnvList(c.Server.APIKeys, "FORMPILOT_SERVER_APIKEYS")
	c.Server.CORS.AllowedOrigins = splitEnvList(c.Server.CORS.AllowedOrigins, "FORMPILOT_SERVER_CORS_ALLOWEDORIGINS")

	if c.Server.TLS.MinVersion == "" && c.Server.TLS.Mode != "disabled" {
		c.Server.TLS.MinVersion = "1.2"
	}

	if c.Mail.From == "" {
		c.Mail.From = c.Mail.Username
	}

	if c.Observability.ServiceInstance == "" {
		c.Observability.ServiceInstance = generateServiceInstanceID(c.Observability.ServiceName)
	}

	if c.App.LogLevel == "debug" && !c.Observability.ConsoleOutput {
		c.Observability.ConsoleOutput = true
	}
}

// splitEnvList trims current, falling back to the comma-separated list in
// envVar when current is empty.
func splitEnvList(current []string, envVar string) []string {
	if len(current) == 0 {
		current = strings.Split(os.Getenv(envVar), ",")
	}
	out := make([]string, 0, len(current))
	for _, p := range current {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func generateServiceInstanceID(serviceName string) string {
	if hostname, err := os.Hostname(); err == nil {
		return fmt.Sprintf("%s-%s", serviceName, hostname)
	}
	return fmt.Sprintf("%s-1", serviceName)
}

// logConfigurationSources logs a summary of configuration sources being used
func (c *Config) logConfigurationSources(configFileUsed string) {
	log.Println("[CONFIG] === Configuration Sources Summary ===")

	if configFileUsed != "" {
		log.Printf("[CONFIG] Config file: %s", configFileUsed)
	} else {
		log.Println("[CONFIG] Config file: None (using defaults)")
	}

	envVars := []string{
		"FORMPILOT_AI_APIKEY",
		"FORMPILOT_AI_MODEL",
		"FORMPILOT_SERVER_PORT",
		"FORMPILOT_SERVER_HOST",
		"FORMPILOT_APP_LOGLEVEL",
		"FORMPILOT_QUESTIONS_REQUESTPROFILE",
		"FORMPILOT_DATABASE_URL",
		"FORMPILOT_AUTH_JWTSECRET",
		"FORMPILOT_VAULT_ENABLED",
		"GEMINI_API_KEY",
		"DATABASE_URL",
	}

	log.Println("[CONFIG] Environment variables:")
	hasEnvVars := false
	for _, envVar := range envVars {
		if value := os.Getenv(envVar); value != "" {
			if isSensitiveEnv(envVar) {
				log.Printf("[CONFIG]   %s=***MASKED***", envVar)
			} else {
				log.Printf("[CONFIG]   %s=%s", envVar, value)
			}
			hasEnvVars = true
		}
	}
	if !hasEnvVars {
		log.Println("[CONFIG]   None set")
	}

	log.Println("[CONFIG] === Key Configuration Values ===")
	log.Printf("[CONFIG] AI Provider: %s", c.AI.Provider)
	log.Printf("[CONFIG] AI Model: %s", c.AI.Model)
	if c.AI.APIKey != "" {
		log.Println("[CONFIG] AI API Key: ***CONFIGURED***")
	} else {
		log.Println("[CONFIG] AI API Key: ***NOT SET***")
	}
	log.Printf("[CONFIG] Server: %s:%s (TLS %s)", c.Server.Host, c.Server.Port, c.Server.TLS.Mode)
	log.Printf("[CONFIG] Request Profile: %s", c.Questions.RequestProfile)
	log.Printf("[CONFIG] Answer Policy: %s", c.Questions.AnswerPolicy)
	log.Printf("[CONFIG] Database Configured: %t", c.Database.URL != "")
	log.Printf("[CONFIG] Mail Configured: %t", c.Mail.Host != "")
	log.Printf("[CONFIG] Storage Bucket: %s", c.Storage.Bucket)
	log.Printf("[CONFIG] Log Level: %s", c.App.LogLevel)
	log.Printf("[CONFIG] Vault Enabled: %t", c.Vault.Enabled)
	log.Printf("[CONFIG] Observability Enabled: %t", c.Observability.Enabled)
	log.Println("[CONFIG] =====================================")
}

func isSensitiveEnv(name string) bool {
	lower := strings.ToLower(name)
	for _, marker := range []string{"key", "secret", "url", "password"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
