package services

import (
	"context"
	"errors"
	"folio/internal/apperr"
	"folio/internal/models"
	"folio/internal/validation"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// RegisterInput 注册表单
type RegisterInput struct {
	Username  string `form:"username" validate:"required,max=150,username"`
	Password  string `form:"password1" validate:"required,pwd"`
	Password2 string `form:"password2" validate:"required,eqfield=Password"`
}

type AccountService struct {
	db *gorm.DB
}

func NewAccountService(db *gorm.DB) *AccountService {
	return &AccountService{db: db}
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Register 创建用户和空的个人资料，两者在同一事务中
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	hashed, err := HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal, "could not hash password")
	}

	user := models.User{Username: in.Username, Password: hashed}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		return tx.Create(&models.Profile{UserID: user.ID}).Error
	})
	if err != nil {
		if apperr.IsUniqueViolation(err) {
			return nil, apperr.Wrap(err, apperr.CodeConflict, "A user with that username already exists.").
				WithField("username", "A user with that username already exists.")
		}
		return nil, apperr.FromDB(err, "user")
	}
	return &user, nil
}

// Authenticate 校验用户名和密码
func (s *AccountService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.FromDB(err, "user")
	}
	if err != nil || !CheckPasswordHash(password, user.Password) {
		return nil, apperr.New(apperr.CodeUnauthorized, "Please enter a correct username and password.")
	}
	return &user, nil
}

// Get 按 ID 读取用户
func (s *AccountService) Get(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, apperr.FromDB(err, "user")
	}
	return &user, nil
}

// EnsureSuperuser 创建超级用户，已存在时提升权限并重置密码
func (s *AccountService) EnsureSuperuser(ctx context.Context, username, password string) (*models.User, bool, error) {
	username = strings.TrimSpace(username)
	if username == "" || len(password) < 8 {
		return nil, false, apperr.New(apperr.CodeInvalid, "superuser needs a username and a password of at least 8 characters")
	}
	hashed, err := HashPassword(password)
	if err != nil {
		return nil, false, apperr.Wrap(err, apperr.CodeInternal, "could not hash password")
	}

	var (
		user    models.User
		created bool
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("username = ?", username).First(&user).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			user = models.User{Username: username, Password: hashed, IsSuperuser: true}
			if err := tx.Create(&user).Error; err != nil {
				return err
			}
			created = true
		case err != nil:
			return err
		default:
			if err := tx.Model(&user).Updates(map[string]any{"password": hashed, "is_superuser": true}).Error; err != nil {
				return err
			}
			user.IsSuperuser = true
		}
		return ensureProfile(tx, user.ID)
	})
	if err != nil {
		return nil, false, apperr.FromDB(err, "user")
	}
	return &user, created, nil
}
