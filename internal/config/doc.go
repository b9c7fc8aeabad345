// Package config provides configuration parsing for the stan command.
//
// The configuration is read from stan.toml or stan.json. It selects the
// backend field values are read from and written to, and sets up logging
// and metrics.
//
// # Configuration File Structure
//
//	backend = "sqlite"
//
//	[file]
//	dir = ".stan"
//	format = "yaml"
//
//	[sqlite]
//	path = "state.db"
//
//	[s3]
//	bucket = "my-bucket"
//	prefix = "state/"
//	region = "eu-west-1"
//
//	[log]
//	level = "debug"
//	format = "json"
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Backend:", cfg.Backend)
package config
