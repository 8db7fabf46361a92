package services

import (
	"context"
	"errors"
	"fmt"
	"folio/internal/apperr"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

// Upload 待保存的上传文件
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Ext 返回小写扩展名（含点）
func (u *Upload) Ext() string {
	return strings.ToLower(filepath.Ext(u.Filename))
}

// Storage 对象存储。Save 返回的 ref 存入数据库，URL 把 ref 转为可访问地址
type Storage interface {
	Save(ctx context.Context, dir string, u *Upload) (string, error)
	Delete(ctx context.Context, ref string) error
	URL(ref string) string
}

// objectKey 生成 dir/<uuid><ext>，不使用用户提供的文件名
func objectKey(dir string, u *Upload) string {
	return path.Join(dir, uuid.NewString()+u.Ext())
}

// LocalStorage 保存到本地磁盘，由 /media 路由提供访问
type LocalStorage struct {
	Root    string
	BaseURL string
}

func NewLocalStorage(root, baseURL string) *LocalStorage {
	return &LocalStorage{Root: root, BaseURL: strings.TrimSuffix(baseURL, "/")}
}

func (s *LocalStorage) Save(ctx context.Context, dir string, u *Upload) (string, error) {
	key := objectKey(dir, u)
	full := filepath.Join(s.Root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", apperr.Wrap(err, apperr.CodeUnavailable, "could not store the uploaded file")
	}
	f, err := os.Create(full)
	if err != nil {
		return "", apperr.Wrap(err, apperr.CodeUnavailable, "could not store the uploaded file")
	}
	if _, err := io.Copy(f, u.Body); err != nil {
		_ = f.Close()
		_ = os.Remove(full)
		return "", apperr.Wrap(err, apperr.CodeUnavailable, "could not store the uploaded file")
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(full)
		return "", apperr.Wrap(err, apperr.CodeUnavailable, "could not store the uploaded file")
	}
	return key, nil
}

func (s *LocalStorage) Delete(ctx context.Context, ref string) error {
	if ref == "" || isRemote(ref) {
		return nil
	}
	full := filepath.Join(s.Root, filepath.FromSlash(path.Clean("/"+ref)))
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *LocalStorage) URL(ref string) string {
	if ref == "" || isRemote(ref) {
		return ref
	}
	return s.BaseURL + "/" + strings.TrimPrefix(ref, "/")
}

// GCSStorage 保存到 Google Cloud Storage，对象需公开可读
type GCSStorage struct {
	client *storage.Client
	bucket string
}

// NewGCSStorage credsPath 为空时使用 ADC
func NewGCSStorage(ctx context.Context, bucket, credsPath string) (*GCSStorage, error) {
	var (
		client *storage.Client
		err    error
	)
	if credsPath == "" {
		client, err = storage.NewClient(ctx)
	} else {
		client, err = storage.NewClient(ctx, option.WithCredentialsFile(credsPath))
	}
	if err != nil {
		return nil, fmt.Errorf("gcs client: %w", err)
	}
	return &GCSStorage{client: client, bucket: bucket}, nil
}

func (s *GCSStorage) Save(ctx context.Context, dir string, u *Upload) (string, error) {
	key := objectKey(dir, u)
	wc := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	wc.ContentType = u.ContentType
	wc.ChunkSize = 0 // 小文件不分块
	if _, err := io.Copy(wc, u.Body); err != nil {
		_ = wc.Close()
		return "", apperr.Wrap(err, apperr.CodeUnavailable, "could not store the uploaded file")
	}
	if err := wc.Close(); err != nil {
		return "", apperr.Wrap(err, apperr.CodeUnavailable, "could not store the uploaded file")
	}
	return key, nil
}

func (s *GCSStorage) Delete(ctx context.Context, ref string) error {
	if ref == "" || isRemote(ref) {
		return nil
	}
	err := s.client.Bucket(s.bucket).Object(ref).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	return err
}

func (s *GCSStorage) URL(ref string) string {
	if ref == "" || isRemote(ref) {
		return ref
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, ref)
}

func (s *GCSStorage) Close() error { return s.client.Close() }

// discard 尽力删除存储文件，失败只记录日志
func discard(ctx context.Context, st Storage, log logrus.FieldLogger, ref string) {
	if ref == "" {
		return
	}
	if err := st.Delete(ctx, ref); err != nil {
		log.WithError(err).WithField("ref", ref).Warn("remove stored file failed")
	}
}

func isRemote(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}
