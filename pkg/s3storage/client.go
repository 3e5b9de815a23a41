// "Тупой" клиент хранилища креативов. Разбор имён файлов — в pkg/classifier.

package s3storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/patrickmn/go-cache"

	"github.com/ilkoid/creative-sorter/pkg/config"
)

// Storage определяет операции хранилища, нужные прогону.
// Используется для мокания в тестах и внедрения зависимостей.
type Storage interface {
	ListFiles(ctx context.Context, prefix string) ([]StoredObject, error)
	DownloadToFile(ctx context.Context, key string, localPath string) error
	UploadFile(ctx context.Context, localPath string, key string) error
	EnsureFolder(ctx context.Context, prefix string) error
}

type Client struct {
	api     *minio.Client
	bucket  string
	folders *cache.Cache // префиксы, для которых маркер папки уже есть
}

// Проверка что Client реализует Storage
var _ Storage = (*Client)(nil)

// folderCacheTTL — сколько помним о существующей папке.
// Прогон короткий, но в режиме расписания кэш живёт между прогонами.
const folderCacheTTL = 30 * time.Minute

// StoredObject - сырой объект из S3
type StoredObject struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Filename возвращает имя файла без пути.
func (o StoredObject) Filename() string {
	return path.Base(o.Key)
}

// New создает клиент, используя наш конфиг
func New(cfg config.S3Config) (*Client, error) {
	minioClient, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, err
	}

	return &Client{
		api:     minioClient,
		bucket:  cfg.Bucket,
		folders: cache.New(folderCacheTTL, 2*folderCacheTTL),
	}, nil
}

// ListFiles возвращает все файлы по префиксу, без маркеров папок.
func (c *Client) ListFiles(ctx context.Context, prefix string) ([]StoredObject, error) {
	// Нормализация префикса (добавляем слеш, если это "папка")
	if !strings.HasSuffix(prefix, "/") && prefix != "" {
		prefix += "/"
	}

	var objects []StoredObject

	opts := minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}

	for obj := range c.api.ListObjects(ctx, c.bucket, opts) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		if strings.HasSuffix(obj.Key, "/") {
			continue
		}
		objects = append(objects, StoredObject{
			Key:          obj.Key,
			Size:         obj.Size,
			LastModified: obj.LastModified,
		})
	}

	return objects, nil
}

// DownloadFile скачивает объект целиком в память
func (c *Client) DownloadFile(ctx context.Context, key string) ([]byte, error) {
	obj, err := c.api.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, obj); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// DownloadToFile скачивает объект и сохраняет в файл по указанному пути.
// Недостающие директории создаются.
func (c *Client) DownloadToFile(ctx context.Context, key string, localPath string) error {
	obj, err := c.api.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to get object %s: %w", key, err)
	}
	defer obj.Close()

	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return fmt.Errorf("failed to create dir for %s: %w", localPath, err)
	}

	f, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", localPath, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, obj); err != nil {
		return fmt.Errorf("failed to write file %s: %w", localPath, err)
	}

	return nil
}

// UploadFile загружает локальный файл под ключом key.
func (c *Client) UploadFile(ctx context.Context, localPath string, key string) error {
	contentType := mime.TypeByExtension(filepath.Ext(localPath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := c.api.FPutObject(ctx, c.bucket, key, localPath, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s to %s: %w", localPath, key, err)
	}
	return nil
}

// EnsureFolder находит или создаёт маркер папки (пустой объект "prefix/").
//
// В S3 папок нет, но маркеры делают иерархию видимой в консолях хранилища.
func (c *Client) EnsureFolder(ctx context.Context, prefix string) error {
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	if _, found := c.folders.Get(prefix); found {
		return nil
	}

	_, err := c.api.StatObject(ctx, c.bucket, prefix, minio.StatObjectOptions{})
	if err == nil {
		c.folders.Set(prefix, struct{}{}, cache.DefaultExpiration)
		return nil
	}
	if minio.ToErrorResponse(err).Code != "NoSuchKey" {
		return fmt.Errorf("failed to stat folder %s: %w", prefix, err)
	}

	_, err = c.api.PutObject(ctx, c.bucket, prefix, bytes.NewReader(nil), 0, minio.PutObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to create folder %s: %w", prefix, err)
	}

	c.folders.Set(prefix, struct{}{}, cache.DefaultExpiration)
	return nil
}
