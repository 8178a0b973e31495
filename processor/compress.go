package processor

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/snappy"
)

// CompressedExt - расширение страниц, сжатых потоковым форматом snappy
const CompressedExt = ".sz"

// Заголовок потока snappy (stream identifier chunk)
var streamMagic = []byte("\xff\x06\x00\x00sNaPpY")

// IsCompressed возвращает true для имен файлов со сжатием snappy
func IsCompressed(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), CompressedExt)
}

// TrimCompressedExt убирает расширение .sz из имени файла
func TrimCompressedExt(name string) string {
	if IsCompressed(name) {
		return name[:len(name)-len(CompressedExt)]
	}
	return name
}

type readCloser struct {
	io.Reader
	closer io.Closer
}

func (r readCloser) Close() error { return r.closer.Close() }

// OpenPage открывает страницу экстрактора. Сжатые страницы распознаются
// по расширению или по заголовку потока snappy.
func OpenPage(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия страницы %s: %w", path, err)
	}

	br := bufio.NewReader(f)
	head, _ := br.Peek(len(streamMagic))
	if IsCompressed(path) || bytes.Equal(head, streamMagic) {
		return readCloser{Reader: snappy.NewReader(br), closer: f}, nil
	}
	return readCloser{Reader: br, closer: f}, nil
}

type pageWriter struct {
	*snappy.Writer
	file *os.File
}

func (w pageWriter) Close() error {
	if err := w.Writer.Close(); err != nil {
		w.file.Close()
		return fmt.Errorf("ошибка сжатия страницы: %w", err)
	}
	return w.file.Close()
}

// CreatePage создает страницу, сжатую потоковым форматом snappy
func CreatePage(path string) (io.WriteCloser, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ошибка создания каталога %s: %w", filepath.Dir(path), err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания страницы %s: %w", path, err)
	}
	return pageWriter{Writer: snappy.NewBufferedWriter(f), file: f}, nil
}

// CompressMessage сжимает блок данных (используется для сообщений WebSocket)
func CompressMessage(data []byte) []byte {
	return snappy.Encode(nil, data)
}

// DecompressMessage распаковывает блок, сжатый CompressMessage
func DecompressMessage(data []byte) ([]byte, error) {
	decompressed, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, err
	}
	return decompressed, nil
}
