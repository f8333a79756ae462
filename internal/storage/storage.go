// Package storage keeps uploaded attachments on local disk and hands out
// short-lived signed URLs for writing and reading them. Download URLs are
// never stored on messages — they are re-signed at read time, with redis
// absorbing the repeated signing on hot message pages.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"huddle/internal/apperr"
	"huddle/internal/models"
	"huddle/internal/repository"
)

const (
	scopeUpload   = "upload"
	scopeDownload = "download"
)

type Service struct {
	dir    string
	secret string
	ttl    time.Duration
	files  repository.FileRepository
	rdb    *redis.Client
	logger *zap.Logger
}

// NewService prepares the upload directory. rdb may be nil; the service
// then signs every download URL fresh.
func NewService(dir, secret string, ttl time.Duration, files repository.FileRepository, rdb *redis.Client, logger *zap.Logger) (*Service, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Service{
		dir:    dir,
		secret: secret,
		ttl:    ttl,
		files:  files,
		rdb:    rdb,
		logger: logger,
	}, nil
}

type fileClaims struct {
	FileID uuid.UUID `json:"file_id"`
	Scope  string    `json:"scope"`
	jwt.RegisteredClaims
}

func (s *Service) sign(fileID uuid.UUID, scope string) (string, error) {
	now := time.Now()
	claims := fileClaims{
		FileID: fileID,
		Scope:  scope,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "huddle-storage",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.secret))
	if err != nil {
		return "", fmt.Errorf("sign file token: %w", err)
	}
	return signed, nil
}

func (s *Service) verify(tokenString string, fileID uuid.UUID, scope string) error {
	token, err := jwt.ParseWithClaims(tokenString, &fileClaims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(s.secret), nil
		},
	)
	if err != nil {
		return apperr.ErrUnauthorized
	}
	claims, ok := token.Claims.(*fileClaims)
	if !ok || !token.Valid || claims.FileID != fileID || claims.Scope != scope {
		return apperr.ErrUnauthorized
	}
	return nil
}

// GenerateUploadURL mints a fresh file id and a write-once URL for it.
// Nothing is recorded until the client actually uploads.
func (s *Service) GenerateUploadURL() (uuid.UUID, string, error) {
	fileID := uuid.New()
	token, err := s.sign(fileID, scopeUpload)
	if err != nil {
		return uuid.Nil, "", err
	}
	return fileID, fmt.Sprintf("/v1/files/%s?token=%s", fileID, token), nil
}

// Save validates the upload token, streams the body to disk, and records
// the metadata row. A repeated upload to the same id is rejected: the URL
// is write-once.
func (s *Service) Save(ctx context.Context, fileID uuid.UUID, token, name, contentType string, body io.Reader) (*models.File, error) {
	if err := s.verify(token, fileID, scopeUpload); err != nil {
		return nil, err
	}

	existing, err := s.files.GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.ErrUnauthorized
	}

	path := filepath.Join(s.dir, fileID.String())
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}
	size, err := io.Copy(f, body)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("write file: %w", err)
	}

	file := &models.File{
		ID:          fileID,
		Name:        name,
		ContentType: contentType,
		Size:        size,
	}
	if err := s.files.Create(ctx, file); err != nil {
		os.Remove(path)
		return nil, err
	}

	s.logger.Info("file stored",
		zap.String("file_id", fileID.String()),
		zap.Int64("size", size),
	)
	return file, nil
}

// ResolveURL returns a signed download URL for a stored file. The cached
// entry expires ahead of the token so a cached URL is always still valid
// when handed out.
func (s *Service) ResolveURL(ctx context.Context, fileID uuid.UUID) (string, error) {
	cacheKey := "fileurl:" + fileID.String()
	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, cacheKey).Result(); err == nil {
			return cached, nil
		}
	}

	file, err := s.files.GetByID(ctx, fileID)
	if err != nil {
		return "", err
	}
	if file == nil {
		return "", apperr.ErrFileNotFound
	}

	token, err := s.sign(fileID, scopeDownload)
	if err != nil {
		return "", err
	}
	url := fmt.Sprintf("/v1/files/%s?token=%s", fileID, token)

	if s.rdb != nil {
		cacheTTL := s.ttl - time.Minute
		if cacheTTL < time.Second {
			cacheTTL = time.Second
		}
		if err := s.rdb.Set(ctx, cacheKey, url, cacheTTL).Err(); err != nil {
			s.logger.Warn("cache signed url", zap.Error(err))
		}
	}
	return url, nil
}

// Open validates a download token and returns the metadata plus a reader
// over the stored bytes. The caller closes the reader.
func (s *Service) Open(ctx context.Context, fileID uuid.UUID, token string) (*models.File, io.ReadCloser, error) {
	if err := s.verify(token, fileID, scopeDownload); err != nil {
		return nil, nil, err
	}

	file, err := s.files.GetByID(ctx, fileID)
	if err != nil {
		return nil, nil, err
	}
	if file == nil {
		return nil, nil, apperr.ErrFileNotFound
	}

	f, err := os.Open(filepath.Join(s.dir, fileID.String()))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, apperr.ErrFileNotFound
		}
		return nil, nil, fmt.Errorf("open file: %w", err)
	}
	return file, f, nil
}
