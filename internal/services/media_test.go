package services

import (
	"context"
	"folio/internal/apperr"
	"folio/internal/models"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageCoverIsExclusive(t *testing.T) {
	gdb := newTestDB(t)
	st := newMemStorage()
	svc := NewMediaService(gdb, st, quietLog())
	admin := mkUser(t, gdb, "admin", true)
	actor := ActorFor(&admin)
	p := mkProject(t, gdb, "Gallery")
	ctx := context.Background()

	a, err := svc.AddImage(ctx, actor, p.Slug, ImageInput{Title: "a", Order: 2, IsCover: true}, pngUpload("a.png"))
	require.NoError(t, err)
	b, err := svc.AddImage(ctx, actor, p.Slug, ImageInput{Title: "b", Order: 1, IsCover: true}, pngUpload("b.png"))
	require.NoError(t, err)

	_, images, err := svc.ListImages(ctx, p.Slug)
	require.NoError(t, err)
	require.Len(t, images, 2)
	assert.Equal(t, b.ID, images[0].ID) // order 1 在前
	assert.True(t, images[0].IsCover)
	assert.False(t, images[1].IsCover)

	_, err = svc.UpdateImage(ctx, actor, p.Slug, a.ID, ImageInput{Title: "a2", Order: 0, IsCover: true}, nil)
	require.NoError(t, err)

	var covers []models.ProjectImage
	require.NoError(t, gdb.Where("project_id = ? AND is_cover = ?", p.ID, true).Find(&covers).Error)
	require.Len(t, covers, 1)
	assert.Equal(t, a.ID, covers[0].ID)
	assert.Equal(t, "a2", covers[0].Title)
}

func TestMediaGuards(t *testing.T) {
	gdb := newTestDB(t)
	st := newMemStorage()
	svc := NewMediaService(gdb, st, quietLog())
	admin := mkUser(t, gdb, "admin", true)
	u := mkUser(t, gdb, "visitor", false)
	actor := ActorFor(&admin)
	p := mkProject(t, gdb, "Mine")
	q := mkProject(t, gdb, "Other")
	ctx := context.Background()

	_, err := svc.AddImage(ctx, ActorFor(&u), p.Slug, ImageInput{}, pngUpload("a.png"))
	requireCode(t, err, apperr.CodeForbidden)

	_, err = svc.AddImage(ctx, actor, p.Slug, ImageInput{}, &Upload{Filename: "a.txt", ContentType: "text/plain", Body: stringsReader("x")})
	requireCode(t, err, apperr.CodeInvalid)

	_, err = svc.AddImage(ctx, actor, p.Slug, ImageInput{}, &Upload{Filename: "big.png", ContentType: "image/png", Size: MaxImageSize + 1, Body: stringsReader("x")})
	requireCode(t, err, apperr.CodeInvalid)

	_, err = svc.AddImage(ctx, actor, p.Slug, ImageInput{Order: -1}, pngUpload("a.png"))
	requireCode(t, err, apperr.CodeInvalid)

	img, err := svc.AddImage(ctx, actor, q.Slug, ImageInput{}, pngUpload("q.png"))
	require.NoError(t, err)

	// 图片属于另一个项目
	_, _, err = svc.GetImage(ctx, p.Slug, img.ID)
	requireCode(t, err, apperr.CodeNotFound)
	requireCode(t, svc.DeleteImage(ctx, actor, p.Slug, img.ID), apperr.CodeNotFound)

	require.NoError(t, svc.DeleteImage(ctx, actor, q.Slug, img.ID))
	assert.False(t, st.has(img.Image))

	st.fail = true
	_, err = svc.AddFile(ctx, actor, p.Slug, FileInput{Name: "notes"}, &Upload{Filename: "notes.md", Body: stringsReader("#")})
	requireCode(t, err, apperr.CodeUnavailable)
	var n int64
	gdb.Model(&models.ProjectFile{}).Count(&n)
	assert.Zero(t, n)
}
