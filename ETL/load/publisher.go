package load

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/LilVoxy/fabric_activity_etl/ETL/config"
	"github.com/LilVoxy/fabric_activity_etl/ETL/models"
	"github.com/LilVoxy/fabric_activity_etl/ETL/utils"
)

// ObjectStore - минимальный набор операций объектного хранилища
type ObjectStore interface {
	EnsureBucket(ctx context.Context, bucket string) error
	UploadFile(ctx context.Context, bucket, key, path, contentType string) error
}

// S3ObjectStore реализует ObjectStore через minio-go
type S3ObjectStore struct {
	client *minio.Client
	region string
}

// NewS3ObjectStore создает клиент S3/MinIO по настройкам публикации
func NewS3ObjectStore(cfg config.PublishConfig) (*S3ObjectStore, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("не задан адрес объектного хранилища")
	}

	endpoint := cfg.Endpoint
	useSSL := cfg.UseSSL
	if u, err := url.Parse(cfg.Endpoint); err == nil && u.Host != "" {
		endpoint = u.Host
		if u.Scheme == "https" {
			useSSL = true
		}
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка создания клиента minio: %w", err)
	}
	return &S3ObjectStore{client: client, region: cfg.Region}, nil
}

// EnsureBucket создает бакет, если его нет
func (s *S3ObjectStore) EnsureBucket(ctx context.Context, bucket string) error {
	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("ошибка проверки бакета %s: %w", bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
		return fmt.Errorf("ошибка создания бакета %s: %w", bucket, err)
	}
	return nil
}

// UploadFile загружает локальный файл в объект bucket/key
func (s *S3ObjectStore) UploadFile(ctx context.Context, bucket, key, path, contentType string) error {
	_, err := s.client.FPutObject(ctx, bucket, key, path, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("ошибка загрузки %s: %w", key, err)
	}
	return nil
}

// Publisher копирует результат сборки в объектное хранилище
type Publisher struct {
	store  ObjectStore
	bucket string
	prefix string
	logger *utils.ETLLogger
}

// NewPublisher создает Publisher поверх S3/MinIO
func NewPublisher(cfg config.PublishConfig, logger *utils.ETLLogger) (*Publisher, error) {
	store, err := NewS3ObjectStore(cfg)
	if err != nil {
		return nil, err
	}
	return NewPublisherWithStore(store, cfg.Bucket, cfg.Prefix, logger), nil
}

// NewPublisherWithStore создает Publisher поверх произвольного ObjectStore
func NewPublisherWithStore(store ObjectStore, bucket, prefix string, logger *utils.ETLLogger) *Publisher {
	return &Publisher{
		store:  store,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		logger: logger,
	}
}

// ObjectKey возвращает ключ объекта для файла сборки runID
func (p *Publisher) ObjectKey(runID, name string) string {
	return path.Join(p.prefix, runID, name)
}

// Publish загружает таблицы звезды и манифест. Манифест загружается последним,
// чтобы потребители не увидели неполную сборку.
func (p *Publisher) Publish(ctx context.Context, dir, runID string) (int, error) {
	if err := p.store.EnsureBucket(ctx, p.bucket); err != nil {
		return 0, err
	}

	uploaded := 0
	for _, table := range models.AllTables {
		name := TableFile(table)
		if err := p.store.UploadFile(ctx, p.bucket, p.ObjectKey(runID, name), filepath.Join(dir, name), "application/vnd.apache.parquet"); err != nil {
			return uploaded, err
		}
		uploaded++
	}
	if err := p.store.UploadFile(ctx, p.bucket, p.ObjectKey(runID, ManifestFile), filepath.Join(dir, ManifestFile), "application/json"); err != nil {
		return uploaded, err
	}
	uploaded++

	p.logger.Info("Сборка %s опубликована в %s/%s (%d объектов)", runID, p.bucket, p.ObjectKey(runID, ""), uploaded)
	return uploaded, nil
}
