package services

import (
	"context"
	"folio/internal/apperr"
	"folio/internal/models"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentCreate(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewCommentService(gdb)
	u := mkUser(t, gdb, "reader", false)
	p := mkProject(t, gdb, "Commented")
	ctx := context.Background()

	_, err := svc.Create(ctx, Anonymous(), p.ID, "hello")
	requireCode(t, err, apperr.CodeUnauthorized)

	_, err = svc.Create(ctx, ActorFor(&u), p.ID, "   ")
	requireCode(t, err, apperr.CodeInvalid)

	_, err = svc.Create(ctx, ActorFor(&u), p.ID, strings.Repeat("x", 5001))
	requireCode(t, err, apperr.CodeInvalid)

	_, err = svc.Create(ctx, ActorFor(&u), p.ID+50, "lost")
	requireCode(t, err, apperr.CodeNotFound)

	var n int64
	gdb.Model(&models.Comment{}).Count(&n)
	assert.Zero(t, n)

	c, err := svc.Create(ctx, ActorFor(&u), p.ID, "  great work \n")
	require.NoError(t, err)
	assert.Equal(t, "great work", c.Content)
	assert.True(t, c.IsApproved)
}

func TestCommentModeration(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewCommentService(gdb)
	admin := mkUser(t, gdb, "admin", true)
	u := mkUser(t, gdb, "reader", false)
	p := mkProject(t, gdb, "Moderated")
	ctx := context.Background()

	first, err := svc.Create(ctx, ActorFor(&u), p.ID, "first")
	require.NoError(t, err)
	second, err := svc.Create(ctx, ActorFor(&u), p.ID, "second")
	require.NoError(t, err)

	list, err := svc.ListApproved(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, "reader", list[0].User.Username)

	_, err = svc.SetApproved(ctx, ActorFor(&u), first.ID, false)
	requireCode(t, err, apperr.CodeForbidden)

	_, err = svc.SetApproved(ctx, ActorFor(&admin), first.ID, false)
	require.NoError(t, err)

	list, err = svc.ListApproved(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, second.ID, list[0].ID)
}

func TestCommentDelete(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewCommentService(gdb)
	admin := mkUser(t, gdb, "admin", true)
	author := mkUser(t, gdb, "author", false)
	other := mkUser(t, gdb, "other", false)
	p := mkProject(t, gdb, "Thread")
	ctx := context.Background()

	c1, err := svc.Create(ctx, ActorFor(&author), p.ID, "mine")
	require.NoError(t, err)
	c2, err := svc.Create(ctx, ActorFor(&author), p.ID, "also mine")
	require.NoError(t, err)

	_, err = svc.Delete(ctx, ActorFor(&other), c1.ID)
	requireCode(t, err, apperr.CodeForbidden)

	deleted, err := svc.Delete(ctx, ActorFor(&author), c1.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Slug, deleted.Project.Slug)

	_, err = svc.Delete(ctx, ActorFor(&admin), c2.ID)
	require.NoError(t, err)

	_, err = svc.Delete(ctx, ActorFor(&admin), c2.ID)
	requireCode(t, err, apperr.CodeNotFound)
}
