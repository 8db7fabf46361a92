package services

import (
	"context"
	"folio/internal/apperr"
	"folio/internal/models"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileUpsertKeepsOneRow(t *testing.T) {
	gdb := newTestDB(t)
	st := newMemStorage()
	svc := NewProfileService(gdb, st, quietLog())
	admin := mkUser(t, gdb, "owner", true)
	actor := ActorFor(&admin)
	ctx := context.Background()

	p, err := svc.Upsert(ctx, actor, ProfileInput{Bio: "Data analyst", BirthDate: "1990-04-02"}, pngUpload("me.png"))
	require.NoError(t, err)
	assert.Equal(t, "Data analyst", p.Bio)
	require.NotNil(t, p.BirthDate)
	assert.Equal(t, time.April, p.BirthDate.Month())
	firstImage := p.ProfileImage
	assert.True(t, st.has(firstImage))

	p, err = svc.Upsert(ctx, actor, ProfileInput{Bio: "BI developer", GithubURL: "https://github.com/owner"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "BI developer", p.Bio)
	assert.Equal(t, firstImage, p.ProfileImage)
	assert.Nil(t, p.BirthDate)

	p, err = svc.Upsert(ctx, actor, ProfileInput{Bio: "BI developer"}, pngUpload("new.png"))
	require.NoError(t, err)
	assert.NotEqual(t, firstImage, p.ProfileImage)
	assert.False(t, st.has(firstImage))

	var n int64
	gdb.Model(&models.Profile{}).Where("user_id = ?", admin.ID).Count(&n)
	assert.Equal(t, int64(1), n)
}

func TestProfileUpsertGuards(t *testing.T) {
	gdb := newTestDB(t)
	st := newMemStorage()
	svc := NewProfileService(gdb, st, quietLog())
	admin := mkUser(t, gdb, "owner", true)
	u := mkUser(t, gdb, "visitor", false)
	ctx := context.Background()

	_, err := svc.Upsert(ctx, ActorFor(&u), ProfileInput{Bio: "hi"}, nil)
	requireCode(t, err, apperr.CodeForbidden)

	_, err = svc.Upsert(ctx, ActorFor(&admin), ProfileInput{Website: "not a url"}, nil)
	requireCode(t, err, apperr.CodeInvalid)

	_, err = svc.Upsert(ctx, ActorFor(&admin), ProfileInput{Bio: "saved"}, nil)
	require.NoError(t, err)

	// 存储失败不影响已保存的字段
	st.fail = true
	_, err = svc.Upsert(ctx, ActorFor(&admin), ProfileInput{Bio: "changed"}, pngUpload("me.png"))
	requireCode(t, err, apperr.CodeUnavailable)

	p, err := svc.EnsureProfile(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, "saved", p.Bio)

	_, err = svc.Upsert(ctx, ActorFor(&admin), ProfileInput{}, &Upload{Filename: "x.exe", ContentType: "application/octet-stream"})
	requireCode(t, err, apperr.CodeInvalid)
}

func TestOwner(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewProfileService(gdb, newMemStorage(), quietLog())
	ctx := context.Background()

	_, err := svc.Owner(ctx)
	requireCode(t, err, apperr.CodeNotFound)

	owner := mkUser(t, gdb, "owner", true)
	mkUser(t, gdb, "second-admin", true)
	timeline := NewTimelineService(gdb, newMemStorage(), quietLog())
	_, err = timeline.CreateExperience(ctx, ActorFor(&owner), ExperienceInput{
		Title: "Analyst", Company: "Acme", StartDate: "2019-01-01", EndDate: "2020-01-01", Description: "reports",
	})
	require.NoError(t, err)
	_, err = timeline.CreateExperience(ctx, ActorFor(&owner), ExperienceInput{
		Title: "Lead", Company: "Acme", StartDate: "2021-01-01", Current: true, Description: "team",
	})
	require.NoError(t, err)

	v, err := svc.Owner(ctx)
	require.NoError(t, err)
	assert.Equal(t, owner.ID, v.User.ID)
	require.Len(t, v.Experiences, 2)
	assert.Equal(t, "Lead", v.Experiences[0].Title)
}
