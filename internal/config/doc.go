// Package config defines the statekeep configuration.
//
//   - types.go: Config struct definition
//   - default.go: default values
//   - load.go: loading through internal/infra/confloader
//   - verify.go: validation
//   - sanitize.go: masking secrets for logs
//   - build.go: turning sections into component configs
package config
