/*
Package logging builds the process logger: zap with a console or JSON encoder,
writing to any mix of stdout, stderr and size-rotated files.
*/
package logging

/*
rxhosts — fast tool in Go for publishing the hostnames routed by Traefik
Copyright (C) 2025  Pepijn van der Stap <rxtls@vanderstap.info>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// RotationConfig controls rotation of file outputs.
type RotationConfig struct {
	MaxSize    int  `yaml:"maxSize"`    // megabytes
	MaxBackups int  `yaml:"maxBackups"` // files kept
	MaxAge     int  `yaml:"maxAge"`     // days
	Compress   bool `yaml:"compress"`
}

// Config describes the logger. Output entries are "stdout", "stderr" or a file path.
type Config struct {
	Level    string         `yaml:"level"`
	Format   string         `yaml:"format"`
	Output   []string       `yaml:"output"`
	Rotation RotationConfig `yaml:"rotation"`
}

// DefaultConfig logs info and above to stderr in console format, leaving stdout
// free for command output.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: "console",
		Output: []string{"stderr"},
		Rotation: RotationConfig{
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     28,
		},
	}
}

// Validate checks the level and format names.
func (c Config) Validate() error {
	if _, err := parseLevel(c.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Format) {
	case "", "console", "json":
	default:
		return fmt.Errorf("unknown log format %q (want console or json)", c.Format)
	}
	return nil
}

// New builds a logger from cfg.
func New(cfg Config) (*zap.Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	var encoder zapcore.Encoder
	if strings.EqualFold(cfg.Format, "json") {
		encoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	outputs := cfg.Output
	if len(outputs) == 0 {
		outputs = []string{"stderr"}
	}
	writers := make([]zapcore.WriteSyncer, 0, len(outputs))
	for _, out := range outputs {
		switch out {
		case "stdout":
			writers = append(writers, zapcore.AddSync(os.Stdout))
		case "stderr":
			writers = append(writers, zapcore.AddSync(os.Stderr))
		default:
			writers = append(writers, zapcore.AddSync(&lumberjack.Logger{
				Filename:   out,
				MaxSize:    cfg.Rotation.MaxSize,
				MaxBackups: cfg.Rotation.MaxBackups,
				MaxAge:     cfg.Rotation.MaxAge,
				Compress:   cfg.Rotation.Compress,
			}))
		}
	}

	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(writers...), level)
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

// Init builds a logger and installs it as the zap global returned by L.
func Init(cfg Config) (*zap.Logger, error) {
	logger, err := New(cfg)
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}

// L returns the process logger. It is a no-op logger until Init is called.
func L() *zap.Logger { return zap.L() }

func parseLevel(s string) (zapcore.Level, error) {
	level := zapcore.InfoLevel
	if s == "" {
		return level, nil
	}
	if err := level.UnmarshalText([]byte(strings.ToLower(s))); err != nil {
		return level, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}
