package config

import (
	"os"
	"path/filepath"
)

const (
	defaultConfigPath    = "~/.config/nerassemble/config.toml"
	defaultStateDir      = "~/.local/share/nerassemble"
	defaultLogDir        = "~/.local/share/nerassemble/logs"
	defaultJarName       = "runNER.jar"
	defaultJavaBinary    = "java"
	defaultMemory        = "2048m"
	defaultFailureMarker = "Exception"
	defaultCompression   = CompressionXZ
	defaultAnnotator     = "nerassemble"
	defaultLogFormat     = "auto"
	defaultLogLevel      = "info"

	// CompressionXZ writes chunk files through an xz stream.
	CompressionXZ = "xz"
	// CompressionNone writes chunk files uncompressed.
	CompressionNone = "none"

	runnerDirEnv = "NERASSEMBLE_RUNNER_DIR"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ScratchDir: defaultScratchDir(),
			StateDir:   defaultStateDir,
			LogDir:     defaultLogDir,
		},
		NER: NER{
			JarName:       defaultJarName,
			JavaBinary:    defaultJavaBinary,
			Memory:        defaultMemory,
			FailureMarker: defaultFailureMarker,
		},
		Corpus: Corpus{
			Compression: defaultCompression,
			Annotator:   defaultAnnotator,
		},
		Workflow: Workflow{
			SkipExisting:  true,
			VerifyPublish: true,
		},
		Ledger: Ledger{
			Enabled: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

func defaultScratchDir() string {
	return filepath.Join(os.TempDir(), "nerassemble")
}
