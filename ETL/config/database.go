package config

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

// DatabaseConfig содержит настройки подключения к базе журнала сборок
type DatabaseConfig struct {
	// mysql, sqlite или пустая строка (журнал отключен)
	Driver   string `json:"driver"`
	Path     string `json:"path"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
}

// Enabled возвращает true, если журнал сборок настроен
func (c DatabaseConfig) Enabled() bool {
	return c.Driver != "" && c.Driver != "none"
}

// DSN формирует строку подключения для выбранного драйвера
func (c DatabaseConfig) DSN() (string, error) {
	switch c.Driver {
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
			c.User, c.Password, c.Host, c.Port, c.DBName), nil
	case "sqlite":
		if c.Path == "" {
			return "", fmt.Errorf("не задан путь к файлу sqlite")
		}
		return c.Path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", nil
	default:
		return "", fmt.Errorf("неподдерживаемый драйвер журнала сборок: %q", c.Driver)
	}
}

// ConnectRunLogDB устанавливает подключение к базе журнала сборок
func ConnectRunLogDB(c DatabaseConfig) (*sql.DB, error) {
	dsn, err := c.DSN()
	if err != nil {
		return nil, err
	}

	if c.Driver == "sqlite" {
		if dir := filepath.Dir(c.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("ошибка создания каталога журнала сборок: %w", err)
			}
		}
	}

	db, err := sql.Open(c.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к базе журнала сборок: %w", err)
	}

	// Настройка параметров подключения
	if c.Driver == "sqlite" {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось установить соединение с базой журнала сборок: %w", err)
	}

	log.Printf("Успешное подключение к базе журнала сборок (%s)", c.Driver)
	return db, nil
}

// CloseDatabase закрывает подключение к базе журнала сборок
func CloseDatabase(db *sql.DB) {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		log.Printf("Ошибка при закрытии соединения с базой журнала сборок: %v", err)
		return
	}
	log.Println("Соединение с базой журнала сборок закрыто")
}
