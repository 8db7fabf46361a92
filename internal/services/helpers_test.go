package services

import (
	"context"
	"errors"
	"fmt"
	"folio/internal/apperr"
	"folio/internal/db"
	"folio/internal/models"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	gdb, err := db.OpenMemory(name)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return gdb
}

func quietLog() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func mkUser(t *testing.T, gdb *gorm.DB, name string, super bool) models.User {
	t.Helper()
	u := models.User{Username: name, Password: "x", IsSuperuser: super}
	require.NoError(t, gdb.Create(&u).Error)
	return u
}

func mkProject(t *testing.T, gdb *gorm.DB, title string, techs ...string) models.Project {
	t.Helper()
	p := models.Project{
		Title:       title,
		Slug:        strings.ToLower(strings.ReplaceAll(title, " ", "-")),
		Description: "about " + title,
		Content:     "content of " + title,
	}
	for _, name := range techs {
		var tech models.Technology
		require.NoError(t, gdb.Where(models.Technology{Name: name}).FirstOrCreate(&tech).Error)
		p.Technologies = append(p.Technologies, tech)
	}
	require.NoError(t, gdb.Create(&p).Error)
	return p
}

func requireCode(t *testing.T, err error, code apperr.Code) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, apperr.CodeOf(err), "error: %v", err)
}

func pngUpload(name string) *Upload {
	return &Upload{Filename: name, ContentType: "image/png", Size: 3, Body: strings.NewReader("png")}
}

// memStorage 内存存储，fail 为 true 时保存失败
type memStorage struct {
	mu      sync.Mutex
	objects map[string]string
	n       int
	fail    bool
}

func newMemStorage() *memStorage { return &memStorage{objects: map[string]string{}} }

func (m *memStorage) Save(ctx context.Context, dir string, u *Upload) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return "", apperr.Wrap(errors.New("bucket offline"), apperr.CodeUnavailable, "could not store the uploaded file")
	}
	b, err := io.ReadAll(u.Body)
	if err != nil {
		return "", err
	}
	m.n++
	ref := fmt.Sprintf("%s/%d%s", dir, m.n, u.Ext())
	m.objects[ref] = string(b)
	return ref, nil
}

func (m *memStorage) Delete(ctx context.Context, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, ref)
	return nil
}

func (m *memStorage) URL(ref string) string { return "/media/" + ref }

func (m *memStorage) has(ref string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[ref]
	return ok
}

func stringsReader(s string) io.Reader { return strings.NewReader(s) }
