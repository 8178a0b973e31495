package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogOptions описывает параметры логгера ETL
type LogOptions struct {
	Level      string
	Encoding   string
	FilePath   string
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
	Verbose    bool
}

// DefaultLogOptions возвращает параметры по умолчанию: файл с ротацией и консоль
func DefaultLogOptions() LogOptions {
	return LogOptions{
		Level:      "info",
		Encoding:   "json",
		FilePath:   filepath.Join("logs", "etl.log"),
		MaxSize:    20,
		MaxBackups: 5,
		MaxAge:     15,
		Compress:   true,
	}
}

// ETLLogger представляет логгер для ETL-процесса
type ETLLogger struct {
	base    *zap.Logger
	sugar   *zap.SugaredLogger
	verbose bool
}

// NewETLLogger создает новый экземпляр логгера для ETL
func NewETLLogger(opts LogOptions) (*ETLLogger, error) {
	lvl := zapcore.InfoLevel
	if opts.Level != "" {
		if err := lvl.Set(opts.Level); err != nil {
			return nil, fmt.Errorf("неверный уровень логирования %q: %w", opts.Level, err)
		}
	}
	if opts.Verbose && lvl > zapcore.DebugLevel {
		lvl = zapcore.DebugLevel
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.TimeEncoderOfLayout(time.RFC3339Nano)
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeDuration = zapcore.StringDurationEncoder

	cores := []zapcore.Core{}

	// Файл с ротацией
	if opts.FilePath != "" {
		if dir := filepath.Dir(opts.FilePath); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("не удалось создать каталог логов: %w", err)
			}
		}
		rotator := &lumberjack.Logger{
			Filename:   opts.FilePath,
			MaxSize:    opts.MaxSize,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAge,
			Compress:   opts.Compress,
		}
		var fileEncoder zapcore.Encoder
		if opts.Encoding == "console" {
			fileEncoder = zapcore.NewConsoleEncoder(encoderCfg)
		} else {
			fileEncoder = zapcore.NewJSONEncoder(encoderCfg)
		}
		cores = append(cores, zapcore.NewCore(fileEncoder, zapcore.AddSync(rotator), lvl))
	}

	// Также выводим в стандартный вывод
	consoleCfg := encoderCfg
	consoleCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.AddSync(os.Stdout), lvl))

	base := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1), zap.AddStacktrace(zapcore.ErrorLevel))
	return &ETLLogger{base: base, sugar: base.Sugar(), verbose: opts.Verbose}, nil
}

// NewNopLogger создает логгер, который ничего не пишет (для тестов)
func NewNopLogger() *ETLLogger {
	base := zap.NewNop()
	return &ETLLogger{base: base, sugar: base.Sugar()}
}

// Zap возвращает базовый zap.Logger для структурированных полей
func (l *ETLLogger) Zap() *zap.Logger {
	return l.base
}

// With возвращает логгер с дополнительными полями (например, run_id)
func (l *ETLLogger) With(fields ...zap.Field) *ETLLogger {
	base := l.base.With(fields...)
	return &ETLLogger{base: base, sugar: base.Sugar(), verbose: l.verbose}
}

// Info логирует информационное сообщение
func (l *ETLLogger) Info(format string, v ...interface{}) {
	l.sugar.Infof(format, v...)
}

// Warn логирует предупреждение
func (l *ETLLogger) Warn(format string, v ...interface{}) {
	l.sugar.Warnf(format, v...)
}

// Error логирует сообщение об ошибке
func (l *ETLLogger) Error(format string, v ...interface{}) {
	l.sugar.Errorf(format, v...)
}

// Debug логирует отладочное сообщение (только если включен verbose режим или уровень debug)
func (l *ETLLogger) Debug(format string, v ...interface{}) {
	l.sugar.Debugf(format, v...)
}

// Sync сбрасывает буферы, вызывается перед выходом
func (l *ETLLogger) Sync() {
	_ = l.base.Sync()
}

// LogBuildStart логирует начало сборки
func (l *ETLLogger) LogBuildStart(runID, mode, inputDir, outputDir string) {
	l.base.Info("Начало сборки звезды",
		zap.String("run_id", runID),
		zap.String("mode", mode),
		zap.String("input_dir", inputDir),
		zap.String("output_dir", outputDir),
	)
}

// LogBuildComplete логирует завершение сборки
func (l *ETLLogger) LogBuildComplete(runID string, startTime time.Time, rowsWritten map[string]int) {
	fields := []zap.Field{
		zap.String("run_id", runID),
		zap.Duration("duration", time.Since(startTime)),
	}
	for table, n := range rowsWritten {
		fields = append(fields, zap.Int(table, n))
	}
	l.base.Info("Сборка звезды завершена", fields...)
}

// LogExtractComplete логирует завершение фазы извлечения данных
func (l *ETLLogger) LogExtractComplete(activities, jobs, workspaces, enriched int, duration time.Duration) {
	l.base.Info("Фаза Extract завершена",
		zap.Int("activities", activities),
		zap.Int("jobs", jobs),
		zap.Int("workspaces", workspaces),
		zap.Int("enriched", enriched),
		zap.Duration("duration", duration),
	)
}
