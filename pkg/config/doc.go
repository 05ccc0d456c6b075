// Package config loads typed configuration structs from environment variables.
//
// It wraps github.com/joho/godotenv and github.com/caarlos0/env/v11:
//
//   - the default `.env` file in the working directory is loaded once, if present;
//     LoadEnv loads additional files explicitly;
//   - Load parses the environment into any struct annotated with `env` tags;
//   - each configuration type is parsed once per prefix and cached for the
//     lifetime of the process (ResetCache clears it in tests).
//
// # Usage
//
//	var (
//	    srvCfg  httpserver.Config
//	    sessCfg session.Config
//	)
//	config.MustLoad(&srvCfg)
//	config.MustLoad(&sessCfg)
//
// WithPrefix scopes a struct to a prefix so that two instances of the same
// type can be configured independently:
//
//	var admin httpserver.Config
//	config.MustLoad(&admin, config.WithPrefix("ADMIN_")) // ADMIN_HTTP_ADDR, ...
//
// # Error Handling
//
//   - ErrParsingConfig: env vars could not be parsed into the struct.
//   - ErrLoadingEnvFile: an explicit .env file could not be read.
//   - ErrNilPointer: nil pointer passed to Load/MustLoad.
package config
