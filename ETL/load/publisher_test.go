package load

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/LilVoxy/fabric_activity_etl/ETL/config"
	"github.com/LilVoxy/fabric_activity_etl/ETL/models"
	"github.com/LilVoxy/fabric_activity_etl/ETL/utils"
)

type upload struct {
	bucket, key, path, contentType string
}

type fakeObjectStore struct {
	buckets []string
	uploads []upload
	failKey string
}

func (f *fakeObjectStore) EnsureBucket(ctx context.Context, bucket string) error {
	f.buckets = append(f.buckets, bucket)
	return nil
}

func (f *fakeObjectStore) UploadFile(ctx context.Context, bucket, key, path, contentType string) error {
	if key == f.failKey {
		return errors.New("connection reset")
	}
	f.uploads = append(f.uploads, upload{bucket, key, path, contentType})
	return nil
}

func TestPublishUploadsManifestLast(t *testing.T) {
	store := &fakeObjectStore{}
	p := NewPublisherWithStore(store, "analytics", "/fabric/star/", utils.NewNopLogger())

	n, err := p.Publish(context.Background(), "/data/star", "run-1")
	if err != nil {
		t.Fatal(err)
	}
	if n != len(models.AllTables)+1 || len(store.uploads) != n {
		t.Fatalf("загружено %d объектов", n)
	}
	if len(store.buckets) != 1 || store.buckets[0] != "analytics" {
		t.Errorf("buckets = %v", store.buckets)
	}

	first := store.uploads[0]
	if first.key != "fabric/star/run-1/dim_date.parquet" || first.path != filepath.Join("/data/star", "dim_date.parquet") {
		t.Errorf("первый объект = %+v", first)
	}
	last := store.uploads[len(store.uploads)-1]
	if last.key != "fabric/star/run-1/"+ManifestFile || last.contentType != "application/json" {
		t.Errorf("последний объект = %+v", last)
	}
}

func TestPublishStopsOnError(t *testing.T) {
	store := &fakeObjectStore{failKey: "run-1/" + TableFile(models.TableDimItem)}
	p := NewPublisherWithStore(store, "analytics", "", utils.NewNopLogger())

	n, err := p.Publish(context.Background(), t.TempDir(), "run-1")
	if err == nil {
		t.Fatal("ожидалась ошибка")
	}
	if n != 3 {
		t.Errorf("загружено %d, ожидалось 3", n)
	}
	for _, u := range store.uploads {
		if u.key == "run-1/"+ManifestFile {
			t.Errorf("манифест не должен загружаться после ошибки")
		}
	}
}

func TestNewS3ObjectStoreRequiresEndpoint(t *testing.T) {
	if _, err := NewS3ObjectStore(config.PublishConfig{Bucket: "b"}); err == nil {
		t.Fatal("ожидалась ошибка без адреса")
	}
	if _, err := NewS3ObjectStore(config.PublishConfig{Endpoint: "https://minio.local:9000", Bucket: "b", AccessKey: "k", SecretKey: "s"}); err != nil {
		t.Fatalf("NewS3ObjectStore: %v", err)
	}
}
