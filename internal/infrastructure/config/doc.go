// Package config handles loading and validating potentiostat service configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with POTENTIOSTAT_* environment variables
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - The JWT secret, seed password and broker credentials should be set via
//     environment variables rather than committed in the config file
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.API.Port)
package config
