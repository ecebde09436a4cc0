// Пакет objectstore — blob-хранилище превью и файлов модов
// в S3-совместимом объектном хранилище (AWS S3, MinIO, R2).
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/SHIV-31-60/Sf2-modded-store/internal/backend"
)

// ErrBucketNotFound — bucket отсутствует.
var ErrBucketNotFound = errors.New("bucket не найден")

// Options — параметры подключения к хранилищу.
type Options struct {
	// Endpoint — адрес S3 API (пусто — AWS по региону)
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	// PublicURL — базовый адрес, по которому объекты доступны на чтение
	PublicURL string
	// UsePathStyle — адресация bucket в пути (MinIO, R2)
	UsePathStyle bool
}

// s3API — используемое подмножество клиента S3.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// Store — реализация backend.BlobStore поверх S3.
type Store struct {
	client    s3API
	bucket    string
	publicURL string
	logger    *slog.Logger
}

// New создаёт хранилище со статическими учётными данными.
func New(opts Options, logger *slog.Logger) (*Store, error) {
	if opts.Bucket == "" {
		return nil, errors.New("не задан bucket")
	}
	if opts.PublicURL == "" {
		return nil, errors.New("не задан публичный URL объектов")
	}

	cfg := aws.Config{
		Credentials: credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		Region:      opts.Region,
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.UsePathStyle
		// Тело читается один раз, без предварительного подсчёта checksum и SHA-256
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.APIOptions = append(o.APIOptions, v4.SwapComputePayloadSHA256ForUnsignedPayloadMiddleware)
	})

	return newStore(client, opts.Bucket, opts.PublicURL, logger), nil
}

func newStore(client s3API, bucket, publicURL string, logger *slog.Logger) *Store {
	return &Store{
		client:    client,
		bucket:    bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
		logger:    logger.With(slog.String("component", "object_store")),
	}
}

// Upload загружает объект и возвращает его публичный URL.
// onProgress вызывается по мере чтения тела запроса клиентом S3.
func (s *Store) Upload(ctx context.Context, key string, data []byte, contentType string, onProgress backend.ProgressFunc) (string, error) {
	start := time.Now()
	body := newProgressReader(bytes.NewReader(data), int64(len(data)), onProgress)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("ошибка загрузки объекта %s: %w", key, err)
	}
	body.complete()

	s.logger.Debug("Объект загружен",
		slog.String("key", key),
		slog.Int("size", len(data)),
		slog.Duration("duration", time.Since(start)),
	)
	return s.ObjectURL(key), nil
}

// ObjectURL возвращает публичный URL объекта. Сегменты ключа экранируются.
func (s *Store) ObjectURL(key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return s.publicURL + "/" + strings.Join(segments, "/")
}

// Name возвращает имя зависимости для ответа /health/ready.
func (s *Store) Name() string {
	return "object_storage"
}

// CheckReady проверяет доступность bucket через HeadBucket.
func (s *Store) CheckReady(ctx context.Context) (status string, message string) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := s.Ping(ctx); err != nil {
		return "fail", fmt.Sprintf("объектное хранилище недоступно: %v", err)
	}
	return "ok", "bucket доступен"
}

// Ping проверяет, что bucket существует и доступен.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		var nf *s3types.NotFound
		if errors.As(err, &nf) {
			return fmt.Errorf("%w: %s", ErrBucketNotFound, s.bucket)
		}
		return err
	}
	return nil
}
