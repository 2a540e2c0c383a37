// Package config loads the Melocuore client configuration.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/melocuore/config.toml (default)
//  3. If the config file doesn't exist, fall back to hardcoded defaults
//  4. If the file exists but fields are missing/empty, use defaults
//  5. MELOCUORE_API_URL from the environment, or else from ./.env, replaces
//     api_url
//
// # Default Values
//
//   - Config file: ~/.config/melocuore/config.toml
//   - API URL: http://localhost:8000
//   - Request timeout: 10s
//   - Outbound rate: 5 requests per second (0 disables the limiter)
//   - Session file: ~/.local/share/melocuore/session.toml
//   - Log file: ~/.local/share/melocuore/melocuore.log
//   - Log level: info
//   - Recognition: 5 retries, 3s apart, default upload and status endpoints
//
// # TOML Format
//
//	api_url = "https://melocuore.example.com"
//	request_timeout = "10s"
//	requests_per_second = 5.0
//	session_path = "~/.local/share/melocuore/session.toml"
//	log_path = "~/.local/share/melocuore/melocuore.log"
//	log_level = "info"
//
//	[recognition]
//	retry_ceiling = 5
//	retry_delay = "3s"
//	preview_endpoint = "/api/upload/"
//	poll_endpoint = "/api/recognition-status/{id}/"
//
// Every field is optional. Tilde expansion is performed for paths. Durations
// use Go syntax ("3s", "1m30s").
//
// # Error Handling
//
// Load returns errors for:
//   - Path expansion failures (e.g., cannot determine home directory)
//   - File read errors (except os.ErrNotExist, which triggers defaults)
//   - TOML parsing errors and out-of-range values
//
// A missing or unreadable .env file is ignored.
//
// # Usage Example
//
//	cfg, err := config.Load("")
//	if err != nil {
//		log.Fatalf("failed to load config: %v", err)
//	}
//	client, err := api.NewClient(cfg.ClientOptions(logger))
package config
