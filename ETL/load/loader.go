package load

import (
	"github.com/LilVoxy/fabric_activity_etl/ETL/models"
)

// Loader интерфейс для чтения и записи состояния звезды
type Loader interface {
	// LoadState читает сохранённую звезду и манифест.
	// Если состояния нет, возвращает models.ErrStateNotFound.
	LoadState() (*models.StarSchema, *Manifest, error)

	// Save записывает все таблицы звезды и манифест.
	// Манифест записывается последним: прерванная запись не оставляет
	// состояния, которое выглядело бы завершённым.
	Save(star *models.StarSchema, manifest *Manifest) error
}
