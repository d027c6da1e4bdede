// Package confloader loads statekeep configuration with koanf.
//
// Sources are layered, later ones overriding earlier ones:
//
//  1. Values already present in the target struct (defaults)
//  2. A YAML file
//  3. Environment variables with the STATEKEEP_ prefix
//  4. Explicit overrides (command-line flags) passed as a map
//
// Environment variables separate sections with a double underscore so that
// keys may contain single underscores:
//
//	STATEKEEP_CHECKPOINT__FULL_EVERY=5  ->  checkpoint.full_every
//
// A Watcher reports writes to the configuration file so that reloadable
// settings (the log level) can follow it.
package confloader
