// internal/repository/deck_repository.go
package repository

import (
	"context"
	"errors"
	"fmt"

	"quizcards/internal/middleware"
	"quizcards/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DeckSearch はデッキ一覧・検索の条件です。
// OwnerID はマイデッキ・ローカル検索用、ExcludeOwnerID はグローバル検索で
// 自分のデッキを除外する場合に設定します。
type DeckSearch struct {
	OwnerID        *uuid.UUID
	ExcludeOwnerID *uuid.UUID
	Query          string
	Limit          int
	Offset         int
}

type DeckRepository interface {
	Create(ctx context.Context, tx *gorm.DB, deck *model.Deck) error
	// FindByID は所有者を問わずデッキを取得します (公開デッキの学習用)
	FindByID(ctx context.Context, db *gorm.DB, deckID uuid.UUID, withCards bool) (*model.Deck, error)
	// FindByIDForOwner は所有者スコープ付きで取得します (編集・削除用)
	FindByIDForOwner(ctx context.Context, db *gorm.DB, ownerID, deckID uuid.UUID) (*model.Deck, error)
	Update(ctx context.Context, tx *gorm.DB, deckID uuid.UUID, updates map[string]interface{}) error
	Delete(ctx context.Context, tx *gorm.DB, ownerID, deckID uuid.UUID) error
	Search(ctx context.Context, db *gorm.DB, q DeckSearch) ([]*model.Deck, int64, error)
}

type gormDeckRepository struct{}

func NewGormDeckRepository() DeckRepository {
	return &gormDeckRepository{}
}

func (r *gormDeckRepository) Create(ctx context.Context, tx *gorm.DB, deck *model.Deck) error {
	logger := middleware.GetLogger(ctx)
	result := tx.WithContext(ctx).Create(deck)
	if result.Error != nil {
		logger.Error("Error creating deck in DB",
			"error", result.Error,
			"deck_id", deck.DeckID.String(),
			"name", deck.Name,
		)
		return fmt.Errorf("gormDeckRepository.Create: %w", result.Error)
	}
	return nil
}

func (r *gormDeckRepository) FindByID(ctx context.Context, db *gorm.DB, deckID uuid.UUID, withCards bool) (*model.Deck, error) {
	logger := middleware.GetLogger(ctx)
	query := db.WithContext(ctx)
	if withCards {
		// カードはサーバ採番IDの昇順 = 作成順で返す
		query = query.Preload("Cards", func(db *gorm.DB) *gorm.DB {
			return db.Order("cards.card_id ASC")
		})
	}

	var deck model.Deck
	result := query.Where("deck_id = ?", deckID).First(&deck)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		logger.Error("Error finding deck by ID in DB",
			"error", result.Error,
			"deck_id", deckID.String(),
		)
		return nil, fmt.Errorf("gormDeckRepository.FindByID: %w", result.Error)
	}
	return &deck, nil
}

func (r *gormDeckRepository) FindByIDForOwner(ctx context.Context, db *gorm.DB, ownerID, deckID uuid.UUID) (*model.Deck, error) {
	logger := middleware.GetLogger(ctx)
	var deck model.Deck
	result := db.WithContext(ctx).Where("owner_id = ? AND deck_id = ?", ownerID, deckID).First(&deck)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		logger.Error("Error finding deck for owner in DB",
			"error", result.Error,
			"owner_id", ownerID.String(),
			"deck_id", deckID.String(),
		)
		return nil, fmt.Errorf("gormDeckRepository.FindByIDForOwner: %w", result.Error)
	}
	return &deck, nil
}

func (r *gormDeckRepository) Update(ctx context.Context, tx *gorm.DB, deckID uuid.UUID, updates map[string]interface{}) error {
	logger := middleware.GetLogger(ctx)
	if len(updates) == 0 {
		return nil
	}
	result := tx.WithContext(ctx).Model(&model.Deck{}).Where("deck_id = ?", deckID).Updates(updates)
	if result.Error != nil {
		logger.Error("Error updating deck in DB",
			"error", result.Error,
			"deck_id", deckID.String(),
		)
		return fmt.Errorf("gormDeckRepository.Update: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *gormDeckRepository) Delete(ctx context.Context, tx *gorm.DB, ownerID, deckID uuid.UUID) error {
	logger := middleware.GetLogger(ctx)
	result := tx.WithContext(ctx).Where("owner_id = ? AND deck_id = ?", ownerID, deckID).Delete(&model.Deck{})
	if result.Error != nil {
		logger.Error("Error deleting deck in DB",
			"error", result.Error,
			"owner_id", ownerID.String(),
			"deck_id", deckID.String(),
		)
		return fmt.Errorf("gormDeckRepository.Delete: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return model.ErrNotFound
	}
	// カードは外部キーの CASCADE で消える。SQLiteなど制約が効かない環境向けに明示削除。
	if err := tx.WithContext(ctx).Where("deck_id = ?", deckID).Delete(&model.Card{}).Error; err != nil {
		logger.Error("Error deleting cards of deck in DB",
			"error", err,
			"deck_id", deckID.String(),
		)
		return fmt.Errorf("gormDeckRepository.Delete: %w", err)
	}
	return nil
}

func (r *gormDeckRepository) Search(ctx context.Context, db *gorm.DB, q DeckSearch) ([]*model.Deck, int64, error) {
	logger := middleware.GetLogger(ctx)
	query := db.WithContext(ctx).Model(&model.Deck{})

	if q.OwnerID != nil {
		query = query.Where("owner_id = ?", *q.OwnerID)
	}
	if q.ExcludeOwnerID != nil {
		query = query.Where("owner_id IS NULL OR owner_id != ?", *q.ExcludeOwnerID)
	}
	if q.Query != "" {
		pattern := "%" + q.Query + "%"
		query = query.Where("LOWER(name) LIKE LOWER(?) OR LOWER(description) LIKE LOWER(?)", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		logger.Error("Error counting decks in DB", "error", err)
		return nil, 0, fmt.Errorf("gormDeckRepository.Search: %w", err)
	}

	var decks []*model.Deck
	result := query.Order("last_modified DESC").Limit(q.Limit).Offset(q.Offset).Find(&decks)
	if result.Error != nil {
		logger.Error("Error searching decks in DB", "error", result.Error)
		return nil, 0, fmt.Errorf("gormDeckRepository.Search: %w", result.Error)
	}
	return decks, total, nil
}
