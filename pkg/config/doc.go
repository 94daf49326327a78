// Package config provides configuration management for askproxy.
//
// Configuration is loaded once at startup from an optional YAML file, .env
// files, and environment variables. The resulting Config is read-only for the
// life of the process and is passed to components explicitly.
//
// # Configuration Loading
//
//	cfg, err := config.Load("askproxy.yaml")
//
// An empty path skips the YAML step entirely, which is the common deployment
// where everything comes from the environment.
//
// # Environment Variables
//
// The upstream deployment is identified by the variables the Azure OpenAI
// SDKs already use:
//
//   - AZURE_OPENAI_ENDPOINT overrides upstream.endpoint
//   - AZURE_OPENAI_API_KEY overrides upstream.api_key
//   - AZURE_OPENAI_DEPLOYMENT_NAME overrides upstream.deployment
//
// Everything else follows ASKPROXY_SECTION_FIELD, for example
// ASKPROXY_SERVER_LISTEN_ADDRESS or ASKPROXY_LEDGER_BACKEND.
//
// # Configuration Precedence
//
// Later sources override earlier ones:
//
//  1. .env files (never override variables already set)
//  2. Values from the YAML file (${VAR} references are expanded)
//  3. Default values for anything still unset
//  4. Environment variable overrides
//  5. Validation (fails fast if invalid)
//
// # Validation
//
// All problems are collected into a single ValidationError:
//
//	configuration validation failed with 2 errors:
//	  - upstream.api_key: api key is required (set AZURE_OPENAI_API_KEY)
//	  - ledger.backend: unsupported backend "mysql" (valid: memory, postgres, sqlite, sqlite3)
//
// # Example Configuration
//
//	server:
//	  listen_address: "0.0.0.0:8000"
//
//	upstream:
//	  endpoint: "${AZURE_OPENAI_ENDPOINT}"
//	  api_key: "${AZURE_OPENAI_API_KEY}"
//	  deployment: "gpt-4o-mini"
//
//	pricing:
//	  prompt_per_1k: 0.0015
//	  completion_per_1k: 0.002
//
//	ledger:
//	  enabled: true
//	  backend: "sqlite"
//	  sqlite:
//	    path: "data/usage.db"
//
//	telemetry:
//	  logging:
//	    level: "info"
//	    format: "json"
package config
