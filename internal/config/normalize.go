package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeNER(); err != nil {
		return err
	}
	c.normalizeCorpus()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.ScratchDir) == "" {
		c.Paths.ScratchDir = defaultScratchDir()
	}
	if c.Paths.ScratchDir, err = expandPath(c.Paths.ScratchDir); err != nil {
		return fmt.Errorf("paths.scratch_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeNER() error {
	if strings.TrimSpace(c.NER.RunnerDir) == "" {
		if value, ok := os.LookupEnv(runnerDirEnv); ok {
			c.NER.RunnerDir = value
		}
	}
	if dir := strings.TrimSpace(c.NER.RunnerDir); dir != "" {
		expanded, err := expandPath(dir)
		if err != nil {
			return fmt.Errorf("ner.runner_dir: %w", err)
		}
		c.NER.RunnerDir = expanded
	}
	c.NER.JarName = strings.TrimSpace(c.NER.JarName)
	if c.NER.JarName == "" {
		c.NER.JarName = defaultJarName
	}
	c.NER.JavaBinary = strings.TrimSpace(c.NER.JavaBinary)
	if c.NER.JavaBinary == "" {
		c.NER.JavaBinary = defaultJavaBinary
	}
	c.NER.Memory = strings.TrimPrefix(strings.TrimSpace(c.NER.Memory), "-Xmx")
	if c.NER.Memory == "" {
		c.NER.Memory = defaultMemory
	}
	if c.NER.FailureMarker == "" {
		c.NER.FailureMarker = defaultFailureMarker
	}
	return nil
}

func (c *Config) normalizeCorpus() {
	c.Corpus.Compression = strings.ToLower(strings.TrimSpace(c.Corpus.Compression))
	if c.Corpus.Compression == "" {
		c.Corpus.Compression = defaultCompression
	}
	c.Corpus.Annotator = strings.TrimSpace(c.Corpus.Annotator)
	if c.Corpus.Annotator == "" {
		c.Corpus.Annotator = defaultAnnotator
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
