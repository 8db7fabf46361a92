package services

import (
	"context"
	"fmt"
	"folio/internal/apperr"
	"folio/internal/models"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestToggleTransitions(t *testing.T) {
	like, dislike := models.VoteLike, models.VoteDislike
	cases := []struct {
		name      string
		prior     *models.VoteType
		requested models.VoteType
		want      *models.VoteType
		likes     int64
		dislikes  int64
	}{
		{"none to like", nil, like, &like, 1, 0},
		{"none to dislike", nil, dislike, &dislike, 0, 1},
		{"like retracted", &like, like, nil, 0, 0},
		{"like switched", &like, dislike, &dislike, 0, 1},
		{"dislike retracted", &dislike, dislike, nil, 0, 0},
		{"dislike switched", &dislike, like, &like, 1, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gdb := newTestDB(t)
			svc := NewVoteService(gdb)
			u := mkUser(t, gdb, "voter", false)
			p := mkProject(t, gdb, "Vote Target")
			actor := ActorFor(&u)
			ctx := context.Background()

			if tc.prior != nil {
				_, err := svc.Toggle(ctx, actor, p.ID, *tc.prior)
				require.NoError(t, err)
			}

			res, err := svc.Toggle(ctx, actor, p.ID, tc.requested)
			require.NoError(t, err)
			assert.Equal(t, tc.want, res.UserVote)
			assert.Equal(t, tc.likes, res.Likes)
			assert.Equal(t, tc.dislikes, res.Dislikes)

			got, err := svc.UserVote(ctx, actor, p.ID)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)

			var rows int64
			gdb.Model(&models.Vote{}).Where("project_id = ?", p.ID).Count(&rows)
			assert.LessOrEqual(t, rows, int64(1))
		})
	}
}

func TestCountsMatchDistinctVoters(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewVoteService(gdb)
	p := mkProject(t, gdb, "Popular")
	ctx := context.Background()

	// 每个用户按顺序执行若干次切换
	sequences := [][]models.VoteType{
		{models.VoteLike},
		{models.VoteLike, models.VoteDislike},
		{models.VoteDislike, models.VoteDislike},
		{models.VoteLike, models.VoteLike, models.VoteLike},
		{models.VoteDislike},
		{models.VoteLike, models.VoteDislike, models.VoteLike},
	}
	for i, seq := range sequences {
		u := mkUser(t, gdb, fmt.Sprintf("user%d", i), false)
		for _, vt := range seq {
			_, err := svc.Toggle(ctx, ActorFor(&u), p.ID, vt)
			require.NoError(t, err)
		}
	}

	likes, dislikes, err := svc.Counts(ctx, p.ID)
	require.NoError(t, err)

	var voters int64
	require.NoError(t, gdb.Model(&models.Vote{}).Where("project_id = ?", p.ID).
		Distinct("user_id").Count(&voters).Error)
	assert.Equal(t, voters, likes+dislikes)
	assert.Equal(t, int64(3), likes)
	assert.Equal(t, int64(2), dislikes)
}

func TestToggleRejectsBeforeMutation(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewVoteService(gdb)
	u := mkUser(t, gdb, "someone", false)
	p := mkProject(t, gdb, "Guarded")
	ctx := context.Background()

	_, err := svc.Toggle(ctx, Anonymous(), p.ID, models.VoteLike)
	requireCode(t, err, apperr.CodeUnauthorized)

	_, err = svc.Toggle(ctx, ActorFor(&u), p.ID, models.VoteType("love"))
	requireCode(t, err, apperr.CodeInvalid)

	_, err = svc.Toggle(ctx, ActorFor(&u), p.ID+100, models.VoteLike)
	requireCode(t, err, apperr.CodeNotFound)

	var rows int64
	gdb.Model(&models.Vote{}).Count(&rows)
	assert.Zero(t, rows)

	v, err := svc.UserVote(ctx, Anonymous(), p.ID)
	require.NoError(t, err)
	assert.Nil(t, v)
}

// 另一个请求在查询和插入之间抢先写入同一 (project, user) 的投票
func TestToggleConcurrentFirstVoteIsConflict(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewVoteService(gdb)
	u := mkUser(t, gdb, "racer", false)
	p := mkProject(t, gdb, "Race Target")
	actor := ActorFor(&u)
	ctx := context.Background()

	raced := false
	require.NoError(t, gdb.Callback().Create().Before("gorm:create").Register("test:race_vote", func(tx *gorm.DB) {
		if raced || tx.Statement.Schema == nil || tx.Statement.Schema.Table != "votes" {
			return
		}
		raced = true
		_, err := tx.Statement.ConnPool.ExecContext(tx.Statement.Context,
			"INSERT INTO votes (project_id, user_id, vote_type, created_at) VALUES (?, ?, ?, ?)",
			p.ID, u.ID, string(models.VoteDislike), time.Now())
		require.NoError(t, err)
	}))

	_, err := svc.Toggle(ctx, actor, p.ID, models.VoteLike)
	require.Error(t, err)
	assert.True(t, raced)
	assert.True(t, apperr.IsCode(err, apperr.CodeConflict), err.Error())

	var rows int64
	require.NoError(t, gdb.Model(&models.Vote{}).Where("project_id = ?", p.ID).Count(&rows).Error)
	assert.Zero(t, rows)

	// 重试时正常创建
	res, err := svc.Toggle(ctx, actor, p.ID, models.VoteLike)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Likes)
	require.NotNil(t, res.UserVote)
	assert.Equal(t, models.VoteLike, *res.UserVote)
}
