package services

import (
	"context"
	"errors"
	"folio/internal/apperr"
	"folio/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VoteResult 投票后的计数和当前用户的投票状态，UserVote 为 nil 表示未投票
type VoteResult struct {
	Likes    int64            `json:"likes"`
	Dislikes int64            `json:"dislikes"`
	UserVote *models.VoteType `json:"user_vote"`
}

type VoteService struct {
	db *gorm.DB
}

func NewVoteService(db *gorm.DB) *VoteService {
	return &VoteService{db: db}
}

// Toggle 三态切换：
//   - 未投票：按请求类型创建
//   - 同类型：撤销
//   - 反类型：改为请求类型
//
// 整个读改写在一个事务内完成，postgres 下锁定项目行使同一项目的切换串行执行。
func (s *VoteService) Toggle(ctx context.Context, actor Actor, projectID uint, voteType models.VoteType) (*VoteResult, error) {
	if err := actor.requireAuth(); err != nil {
		return nil, err
	}
	if !voteType.Valid() {
		return nil, apperr.New(apperr.CodeInvalid, "invalid vote type").WithField("vote_type", "Select like or dislike.")
	}

	var result *VoteResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx
		if tx.Dialector.Name() == "postgres" {
			q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var p models.Project
		if err := q.Select("id").First(&p, projectID).Error; err != nil {
			return err
		}

		var current *models.VoteType
		var existing models.Vote
		err := tx.Where("project_id = ? AND user_id = ?", p.ID, actor.UserID).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			v := models.Vote{ProjectID: p.ID, UserID: actor.UserID, VoteType: voteType}
			if err := tx.Omit("Project", "User").Create(&v).Error; err != nil {
				return err
			}
			current = &voteType
		case err != nil:
			return err
		case existing.VoteType == voteType:
			if err := tx.Delete(&existing).Error; err != nil {
				return err
			}
		default:
			if err := tx.Model(&existing).Update("vote_type", voteType).Error; err != nil {
				return err
			}
			current = &voteType
		}

		likes, dislikes, err := counts(tx, p.ID)
		if err != nil {
			return err
		}
		result = &VoteResult{Likes: likes, Dislikes: dislikes, UserVote: current}
		return nil
	})
	if err != nil {
		if apperr.IsUniqueViolation(err) {
			return nil, apperr.Wrap(err, apperr.CodeConflict, "your vote is already being recorded, please retry")
		}
		return nil, apperr.FromDB(err, "project")
	}
	return result, nil
}

func counts(db *gorm.DB, projectID uint) (likes, dislikes int64, err error) {
	type row struct {
		VoteType models.VoteType
		N        int64
	}
	var rows []row
	err = db.Model(&models.Vote{}).
		Select("vote_type, COUNT(*) AS n").
		Where("project_id = ?", projectID).
		Group("vote_type").
		Scan(&rows).Error
	for _, r := range rows {
		switch r.VoteType {
		case models.VoteLike:
			likes = r.N
		case models.VoteDislike:
			dislikes = r.N
		}
	}
	return likes, dislikes, err
}

// Counts 项目的点赞和点踩数
func (s *VoteService) Counts(ctx context.Context, projectID uint) (likes, dislikes int64, err error) {
	likes, dislikes, err = counts(s.db.WithContext(ctx), projectID)
	if err != nil {
		return 0, 0, apperr.FromDB(err, "vote")
	}
	return likes, dislikes, nil
}

// UserVote 操作者在该项目上的投票，未登录或未投票时为 nil
func (s *VoteService) UserVote(ctx context.Context, actor Actor, projectID uint) (*models.VoteType, error) {
	if !actor.Authenticated {
		return nil, nil
	}
	var v models.Vote
	err := s.db.WithContext(ctx).Where("project_id = ? AND user_id = ?", projectID, actor.UserID).First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.FromDB(err, "vote")
	}
	t := v.VoteType
	return &t, nil
}
