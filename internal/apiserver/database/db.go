package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/openagora/agora/internal/common/config"
	"github.com/openagora/agora/internal/common/errorx"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// DBStore implements Store on gorm.
type DBStore struct {
	logger *zap.Logger
	db     *gorm.DB
}

var _ Store = (*DBStore)(nil)

// NewDBStore opens the configured database and migrates the schema.
func NewDBStore(logger *zap.Logger, cfg *config.DatabaseConfig) (*DBStore, error) {
	logger = logger.Named("store.db")

	var dialector gorm.Dialector
	switch cfg.Type {
	case "postgres":
		dialector = postgres.Open(cfg.GetDSN())
	case "mysql":
		dialector = mysql.Open(cfg.GetDSN())
	case "sqlite":
		dialector = sqlite.Open(cfg.GetDSN())
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&User{}, &Message{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &DBStore{
		logger: logger,
		db:     db,
	}, nil
}

// Close closes the database connection
func (s *DBStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *DBStore) CreateUser(ctx context.Context, user *User) error {
	return s.db.WithContext(ctx).Create(user).Error
}

func (s *DBStore) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	var user User
	err := s.db.WithContext(ctx).
		Where("username = ?", username).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errorx.NotFound("user not found")
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *DBStore) CreateMessage(ctx context.Context, message *Message) error {
	return s.db.WithContext(ctx).Create(message).Error
}

func (s *DBStore) GetMessage(ctx context.Context, id uint64) (*Message, error) {
	var message Message
	err := s.db.WithContext(ctx).First(&message, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errorx.NotFound("message not found")
	}
	if err != nil {
		return nil, err
	}
	return &message, nil
}

func (s *DBStore) GetMessagesByContext(ctx context.Context, contextType string, contextID *int64, limit, offset int) ([]*Message, error) {
	q := s.db.WithContext(ctx).
		Where("context_type = ?", contextType)
	if contextID != nil {
		q = q.Where("context_id = ?", *contextID)
	} else {
		q = q.Where("context_id IS NULL")
	}

	var messages []*Message
	err := q.Order("id desc").
		Limit(limit).
		Offset(offset).
		Find(&messages).Error
	return messages, err
}

func (s *DBStore) DeleteMessage(ctx context.Context, id uint64) error {
	res := s.db.WithContext(ctx).Delete(&Message{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errorx.NotFound("message not found")
	}
	return nil
}
