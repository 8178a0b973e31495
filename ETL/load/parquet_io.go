package load

import (
	"fmt"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"
)

// parallelism - число горутин, которые parquet-go использует для кодирования колонок
const parallelism = 4

// writeParquet записывает строки в parquet-файл со сжатием Snappy
func writeParquet[T any](path string, rows []T) (err error) {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("не удалось создать файл %s: %w", path, err)
	}
	defer func() {
		if closeErr := fw.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("не удалось закрыть файл %s: %w", path, closeErr)
		}
	}()

	pw, err := writer.NewParquetWriter(fw, new(T), parallelism)
	if err != nil {
		return fmt.Errorf("не удалось создать parquet writer для %s: %w", path, err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for i := range rows {
		if err := pw.Write(rows[i]); err != nil {
			return fmt.Errorf("ошибка записи строки %d в %s: %w", i, path, err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("ошибка завершения записи %s: %w", path, err)
	}
	return nil
}

// readParquet читает все строки parquet-файла
func readParquet[T any](path string) ([]T, error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть файл %s: %w", path, err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(T), parallelism)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать схему %s: %w", path, err)
	}
	defer pr.ReadStop()

	n := int(pr.GetNumRows())
	rows := make([]T, n)
	if n == 0 {
		return rows, nil
	}
	if err := pr.Read(&rows); err != nil {
		return nil, fmt.Errorf("ошибка чтения строк %s: %w", path, err)
	}
	return rows, nil
}
