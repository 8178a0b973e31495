package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/LilVoxy/fabric_activity_etl/ETL/utils"
)

// ETLConfig содержит конфигурацию для сборки звезды
type ETLConfig struct {
	// Входной каталог со страницами экстрактора и выходной каталог звезды
	InputDir  string `json:"input_dir"`
	OutputDir string `json:"output_dir"`

	// Полная перестройка вместо инкрементальной загрузки
	FullRefresh bool `json:"full_refresh"`

	// Окно сопоставления активности и задания
	MergeTolerance time.Duration `json:"merge_tolerance"`

	// Форматы дат, которые пробуются по порядку
	TimestampFormats []string `json:"timestamp_formats"`

	// Диапазон календаря для dim_date (YYYY-MM-DD)
	CalendarStart string `json:"calendar_start"`
	CalendarEnd   string `json:"calendar_end"`

	// YAML-файл с таблицами соответствий категорий
	MappingsFile string `json:"mappings_file"`

	// Интервал запуска по расписанию
	RunInterval time.Duration `json:"run_interval"`

	// Журнал сборок
	RunLog DatabaseConfig `json:"run_log"`

	// Публикация результата в объектное хранилище
	Publish PublishConfig `json:"publish"`

	// Файл для textfile-коллектора node_exporter
	MetricsTextfile string `json:"metrics_textfile"`

	// Адрес административного HTTP-сервера
	AdminAddr string `json:"admin_addr"`

	// Логирование
	Log utils.LogOptions `json:"log"`

	// Включение/отключение подробного логирования
	EnableDetailedLogging bool `json:"enable_detailed_logging"`
}

// PublishConfig содержит настройки S3/MinIO
type PublishConfig struct {
	Endpoint  string `json:"endpoint"`
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
	Bucket    string `json:"bucket"`
	Prefix    string `json:"prefix"`
	Region    string `json:"region"`
	UseSSL    bool   `json:"use_ssl"`
}

// Enabled возвращает true, если публикация настроена
func (p PublishConfig) Enabled() bool {
	return p.Endpoint != "" && p.Bucket != ""
}

// DefaultTimestampFormats - форматы дат, которые встречаются в выгрузках API
var DefaultTimestampFormats = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"01/02/2006 15:04:05",
	"2006-01-02",
}

// Значения конфигурации по умолчанию
var (
	DefaultRunLogConfig = DatabaseConfig{
		Driver: "sqlite",
		Path:   "data/etl_run_log.db",
		Host:   "localhost",
		Port:   3306,
		DBName: "fabric_analytics",
	}

	DefaultETLConfig = ETLConfig{
		InputDir:              "data/raw",
		OutputDir:             "data/star",
		MergeTolerance:        5 * time.Minute,
		TimestampFormats:      DefaultTimestampFormats,
		CalendarStart:         "2020-01-01",
		CalendarEnd:           "2030-12-31",
		RunInterval:           24 * time.Hour,
		RunLog:                DefaultRunLogConfig,
		AdminAddr:             ":8090",
		Log:                   utils.DefaultLogOptions(),
		EnableDetailedLogging: false,
	}
)

// GetConfig возвращает конфигурацию ETL: значения по умолчанию, затем .env и переменные окружения
func GetConfig() ETLConfig {
	LoadEnvFiles()

	config := DefaultETLConfig
	config.TimestampFormats = append([]string(nil), DefaultTimestampFormats...)
	applyEnv(&config)
	config.Log.Verbose = config.EnableDetailedLogging
	return config
}

// CalendarRange возвращает границы календаря dim_date
func (c ETLConfig) CalendarRange() (time.Time, time.Time, error) {
	start, err := time.Parse("2006-01-02", c.CalendarStart)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("неверное начало календаря %q: %w", c.CalendarStart, err)
	}
	end, err := time.Parse("2006-01-02", c.CalendarEnd)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("неверный конец календаря %q: %w", c.CalendarEnd, err)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("конец календаря %s раньше начала %s", c.CalendarEnd, c.CalendarStart)
	}
	return start, end, nil
}

func applyEnv(c *ETLConfig) {
	c.InputDir = getEnv("ETL_INPUT_DIR", c.InputDir)
	c.OutputDir = getEnv("ETL_OUTPUT_DIR", c.OutputDir)
	c.FullRefresh = getEnvBool("ETL_FULL_REFRESH", c.FullRefresh)
	c.MergeTolerance = getEnvDuration("ETL_MERGE_TOLERANCE", c.MergeTolerance)
	if formats := getEnv("ETL_TIMESTAMP_FORMATS", ""); formats != "" {
		c.TimestampFormats = strings.Split(formats, "|")
	}
	c.CalendarStart = getEnv("ETL_CALENDAR_START", c.CalendarStart)
	c.CalendarEnd = getEnv("ETL_CALENDAR_END", c.CalendarEnd)
	c.MappingsFile = getEnv("ETL_MAPPINGS_FILE", c.MappingsFile)
	c.RunInterval = getEnvDuration("ETL_RUN_INTERVAL", c.RunInterval)

	c.RunLog.Driver = getEnv("ETL_RUNLOG_DRIVER", c.RunLog.Driver)
	c.RunLog.Path = getEnv("ETL_RUNLOG_PATH", c.RunLog.Path)
	c.RunLog.Host = getEnv("ETL_RUNLOG_HOST", c.RunLog.Host)
	c.RunLog.Port = getEnvInt("ETL_RUNLOG_PORT", c.RunLog.Port)
	c.RunLog.User = getEnv("ETL_RUNLOG_USER", c.RunLog.User)
	c.RunLog.Password = getEnv("ETL_RUNLOG_PASSWORD", c.RunLog.Password)
	c.RunLog.DBName = getEnv("ETL_RUNLOG_DBNAME", c.RunLog.DBName)

	c.Publish.Endpoint = getEnv("ETL_PUBLISH_ENDPOINT", c.Publish.Endpoint)
	c.Publish.AccessKey = getEnv("ETL_PUBLISH_ACCESS_KEY", c.Publish.AccessKey)
	c.Publish.SecretKey = getEnv("ETL_PUBLISH_SECRET_KEY", c.Publish.SecretKey)
	c.Publish.Bucket = getEnv("ETL_PUBLISH_BUCKET", c.Publish.Bucket)
	c.Publish.Prefix = getEnv("ETL_PUBLISH_PREFIX", c.Publish.Prefix)
	c.Publish.Region = getEnv("ETL_PUBLISH_REGION", c.Publish.Region)
	c.Publish.UseSSL = getEnvBool("ETL_PUBLISH_USE_SSL", c.Publish.UseSSL)

	c.MetricsTextfile = getEnv("ETL_METRICS_TEXTFILE", c.MetricsTextfile)
	c.AdminAddr = getEnv("ETL_ADMIN_ADDR", c.AdminAddr)

	c.Log.Level = strings.ToLower(getEnv("LOG_LEVEL", c.Log.Level))
	c.Log.Encoding = strings.ToLower(getEnv("LOG_ENCODING", c.Log.Encoding))
	c.Log.FilePath = getEnv("LOG_FILE", c.Log.FilePath)
	c.Log.MaxSize = getEnvInt("LOG_MAX_SIZE", c.Log.MaxSize)
	c.Log.MaxBackups = getEnvInt("LOG_MAX_BACKUPS", c.Log.MaxBackups)
	c.Log.MaxAge = getEnvInt("LOG_MAX_AGE", c.Log.MaxAge)
	c.Log.Compress = getEnvBool("LOG_COMPRESS", c.Log.Compress)
	c.EnableDetailedLogging = getEnvBool("ETL_DETAILED_LOGGING", c.EnableDetailedLogging)
}

func getEnv(key, defaultVal string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		if i, err := strconv.Atoi(val); err == nil && i > 0 {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		if d, err := time.ParseDuration(val); err == nil && d > 0 {
			return d
		}
	}
	return defaultVal
}
