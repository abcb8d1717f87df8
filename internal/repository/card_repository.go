// internal/repository/card_repository.go
package repository

import (
	"context"
	"fmt"

	"quizcards/internal/middleware"
	"quizcards/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CardRepository のルックアップはすべて deck_id でスコープします。
// カードIDだけで全デッキを横断検索すると、古いセッションから再送された
// IDが他デッキのカードを書き換えてしまうため。
type CardRepository interface {
	Create(ctx context.Context, tx *gorm.DB, card *model.Card) error
	FindByDeck(ctx context.Context, db *gorm.DB, deckID uuid.UUID) ([]*model.Card, error)
	Update(ctx context.Context, tx *gorm.DB, deckID uuid.UUID, cardID uint, updates map[string]interface{}) error
	Delete(ctx context.Context, tx *gorm.DB, deckID uuid.UUID, cardID uint) error
	// ListImageNames は全カードが参照している画像の保存名を返します (クリーナー用)
	ListImageNames(ctx context.Context, db *gorm.DB) ([]string, error)
}

type gormCardRepository struct{}

func NewGormCardRepository() CardRepository {
	return &gormCardRepository{}
}

func (r *gormCardRepository) Create(ctx context.Context, tx *gorm.DB, card *model.Card) error {
	logger := middleware.GetLogger(ctx)
	result := tx.WithContext(ctx).Create(card)
	if result.Error != nil {
		logger.Error("Error creating card in DB",
			"error", result.Error,
			"deck_id", card.DeckID.String(),
			"term", card.Term,
		)
		return fmt.Errorf("gormCardRepository.Create: %w", result.Error)
	}
	return nil
}

func (r *gormCardRepository) FindByDeck(ctx context.Context, db *gorm.DB, deckID uuid.UUID) ([]*model.Card, error) {
	logger := middleware.GetLogger(ctx)
	var cards []*model.Card
	result := db.WithContext(ctx).Where("deck_id = ?", deckID).Order("card_id ASC").Find(&cards)
	if result.Error != nil {
		logger.Error("Error finding cards by deck in DB",
			"error", result.Error,
			"deck_id", deckID.String(),
		)
		return nil, fmt.Errorf("gormCardRepository.FindByDeck: %w", result.Error)
	}
	return cards, nil
}

func (r *gormCardRepository) Update(ctx context.Context, tx *gorm.DB, deckID uuid.UUID, cardID uint, updates map[string]interface{}) error {
	logger := middleware.GetLogger(ctx)
	if len(updates) == 0 {
		return nil
	}
	result := tx.WithContext(ctx).Model(&model.Card{}).Where("deck_id = ? AND card_id = ?", deckID, cardID).Updates(updates)
	if result.Error != nil {
		logger.Error("Error updating card in DB",
			"error", result.Error,
			"deck_id", deckID.String(),
			"card_id", cardID,
		)
		return fmt.Errorf("gormCardRepository.Update: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *gormCardRepository) Delete(ctx context.Context, tx *gorm.DB, deckID uuid.UUID, cardID uint) error {
	logger := middleware.GetLogger(ctx)
	result := tx.WithContext(ctx).Where("deck_id = ? AND card_id = ?", deckID, cardID).Delete(&model.Card{})
	if result.Error != nil {
		logger.Error("Error deleting card in DB",
			"error", result.Error,
			"deck_id", deckID.String(),
			"card_id", cardID,
		)
		return fmt.Errorf("gormCardRepository.Delete: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *gormCardRepository) ListImageNames(ctx context.Context, db *gorm.DB) ([]string, error) {
	logger := middleware.GetLogger(ctx)
	var names []string

	var termNames []string
	if err := db.WithContext(ctx).Model(&model.Card{}).Where("term_image <> ''").Pluck("term_image", &termNames).Error; err != nil {
		logger.Error("Error listing term image names in DB", "error", err)
		return nil, fmt.Errorf("gormCardRepository.ListImageNames: %w", err)
	}
	names = append(names, termNames...)

	var definitionNames []string
	if err := db.WithContext(ctx).Model(&model.Card{}).Where("definition_image <> ''").Pluck("definition_image", &definitionNames).Error; err != nil {
		logger.Error("Error listing definition image names in DB", "error", err)
		return nil, fmt.Errorf("gormCardRepository.ListImageNames: %w", err)
	}
	names = append(names, definitionNames...)

	return names, nil
}
