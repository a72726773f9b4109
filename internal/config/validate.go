package config

import (
	"errors"
	"fmt"
	"regexp"
)

var memoryPattern = regexp.MustCompile(`^[0-9]+[kKmMgG]?$`)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateNER(); err != nil {
		return err
	}
	if err := c.validateCorpus(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateNER() error {
	if !memoryPattern.MatchString(c.NER.Memory) {
		return fmt.Errorf("ner.memory %q must look like 2048m or 4g", c.NER.Memory)
	}
	if c.NER.TimeoutSeconds < 0 {
		return errors.New("ner.timeout_seconds must be zero (no timeout) or positive")
	}
	return nil
}

func (c *Config) validateCorpus() error {
	switch c.Corpus.Compression {
	case CompressionXZ, CompressionNone:
		return nil
	default:
		return fmt.Errorf("corpus.compression must be %q or %q, got %q", CompressionXZ, CompressionNone, c.Corpus.Compression)
	}
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "auto", "console", "json":
	default:
		return fmt.Errorf("logging.format must be auto, console, or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
