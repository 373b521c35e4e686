// Package config loads persona CLI configuration and builds the logger.
//
// Configuration is layered, higher layers overriding lower:
//
//  1. Built-in defaults
//  2. A YAML file (--config)
//  3. PERSONA_ environment variables (PERSONA_LOG_LEVEL sets log.level)
//
// Usage:
//
//	cfg, err := config.Load(path)
//	if err != nil {
//	    return err
//	}
//	logger := config.NewLogger(os.Stderr, cfg.Log)
//	d, err := dispatcher.New(def, src, cfg.DispatcherConfig(logger))
package config
