package utils

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
	"gopkg.in/yaml.v2"
)

const (
	defaultBuildInfoFile = "build-info.yaml"
	buildInfoPrefix      = "build."
	modulePath           = "github.com/case-framework/recruitment-backend"
)

type BuildInfoMode int

const (
	BuildInfoNever BuildInfoMode = iota
	BuildInfoOnce
	BuildInfoAlways
)

type LoggerConfig struct {
	LogToFile        bool   `json:"log_to_file" yaml:"log_to_file"`
	Filename         string `json:"filename" yaml:"filename"`
	MaxSize          int    `json:"max_size" yaml:"max_size"`
	MaxAge           int    `json:"max_age" yaml:"max_age"`
	MaxBackups       int    `json:"max_backups" yaml:"max_backups"`
	LogLevel         string `json:"log_level" yaml:"log_level" env:"LOG_LEVEL"`
	Format           string `json:"format" yaml:"format" env:"LOG_FORMAT"` // json (default) or text
	IncludeSrc       bool   `json:"include_src" yaml:"include_src"`
	CompressOldLogs  bool   `json:"compress_old_logs" yaml:"compress_old_logs"`
	IncludeBuildInfo string `json:"include_build_info" yaml:"include_build_info"` // never, always, once
	BuildInfoFile    string `json:"build_info_file" yaml:"build_info_file" env:"BUILD_INFO_FILE"`
}

// InitLogger sets the default slog logger of a service or job. Every record carries the service
// name. With LogToFile the output is also written to a rotating file.
func InitLogger(service string, cfg LoggerConfig) {
	var w io.Writer = os.Stdout
	if cfg.LogToFile && cfg.Filename != "" {
		w = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.Filename,
			MaxSize:    cfg.MaxSize, // megabytes
			MaxAge:     cfg.MaxAge,  // days
			Compress:   cfg.CompressOldLogs,
			MaxBackups: cfg.MaxBackups,
		})
	}

	logger, err := newLogger(w, service, cfg)
	slog.SetDefault(logger)
	if err != nil {
		slog.Warn("build info not available", slog.String("error", err.Error()))
	}
}

// newLogger builds the logger. A missing or broken build info file is reported, not fatal.
func newLogger(w io.Writer, service string, cfg LoggerConfig) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{
		Level:     logLevelFromString(cfg.LogLevel),
		AddSource: cfg.IncludeSrc,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.SourceKey {
				source, _ := a.Value.Any().(*slog.Source)
				if source != nil {
					source.File = filepath.Base(source.File)
					source.Function = strings.TrimPrefix(source.Function, modulePath)
				}
			}
			return a
		},
	}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	logger := slog.New(handler)
	if service != "" {
		logger = logger.With(slog.String("service", service))
	}

	mode := getBuildInfoMode(cfg.IncludeBuildInfo)
	if mode == BuildInfoNever {
		return logger, nil
	}

	filename := cfg.BuildInfoFile
	if filename == "" {
		filename = defaultBuildInfoFile
	}
	attrs, err := loadBuildInfoAsSlogAttrs(filename, buildInfoPrefix)
	if err != nil {
		return logger, err
	}

	switch mode {
	case BuildInfoAlways:
		for _, attr := range attrs {
			logger = logger.With(attr)
		}
	case BuildInfoOnce:
		args := make([]any, len(attrs))
		for i, attr := range attrs {
			args[i] = attr
		}
		logger.Info("Build info", args...)
	}
	return logger, nil
}

func logLevelFromString(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getBuildInfoMode(includeBuildInfo string) BuildInfoMode {
	switch includeBuildInfo {
	case "never":
		return BuildInfoNever
	case "always":
		return BuildInfoAlways
	case "once":
		return BuildInfoOnce
	default:
		return BuildInfoNever
	}
}

// loadBuildInfoAsSlogAttrs reads a flat YAML map, e.g. written by the release pipeline, and returns
// its entries sorted by key.
func loadBuildInfoAsSlogAttrs(filename, prefix string) ([]slog.Attr, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading build info: %w", err)
	}

	buildInfo := make(map[string]string)
	if err := yaml.Unmarshal(data, &buildInfo); err != nil {
		return nil, fmt.Errorf("parsing build info: %w", err)
	}

	keys := make([]string, 0, len(buildInfo))
	for k := range buildInfo {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]slog.Attr, 0, len(keys))
	for _, k := range keys {
		attrs = append(attrs, slog.String(prefix+k, buildInfo[k]))
	}
	return attrs, nil
}
