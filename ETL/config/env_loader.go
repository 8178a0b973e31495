package config

import (
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/joho/godotenv"
)

var (
	envOnce     sync.Once
	envOnceLock sync.Mutex
	skipEnvLoad bool
)

// LoadEnvFiles загружает .env.local и .env ровно один раз.
// .env.local имеет приоритет; уже выставленные переменные окружения не перезаписываются.
func LoadEnvFiles() {
	envOnceLock.Lock()
	skip := skipEnvLoad
	envOnceLock.Unlock()
	if skip || os.Getenv("ETL_SKIP_ENV_LOAD") == "1" {
		return
	}

	envOnce.Do(func() {
		for _, name := range []string{".env.local", ".env"} {
			if path, ok := findEnvFile(name); ok {
				if err := godotenv.Load(path); err == nil {
					log.Printf("[config] загружен файл окружения: %s", path)
				}
			}
		}
	})
}

// SetEnvFileLoadingForTest включает или выключает чтение .env файлов. Только для тестов.
func SetEnvFileLoadingForTest(enabled bool) {
	envOnceLock.Lock()
	defer envOnceLock.Unlock()

	skipEnvLoad = !enabled
	envOnce = sync.Once{}
}

func findEnvFile(name string) (string, bool) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", false
	}

	dir := cwd
	for {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false
}
