// internal/service/deck_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"quizcards/internal/config"
	"quizcards/internal/middleware"
	"quizcards/internal/model"
	"quizcards/internal/repository"
	"quizcards/internal/storage"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DeckService interface {
	CreateDeck(ctx context.Context, ownerID uuid.UUID, payload *model.DeckPayload, uploads *model.DeckUploads) (*model.Deck, error)
	UpdateDeck(ctx context.Context, ownerID, deckID uuid.UUID, payload *model.DeckPayload, uploads *model.DeckUploads) (*model.Deck, error)
	GetDeck(ctx context.Context, deckID uuid.UUID) (*model.Deck, error)
	ListDecks(ctx context.Context, ownerID uuid.UUID, query string, page int) (*model.DeckPage, error)
	SearchDecks(ctx context.Context, ownerID *uuid.UUID, query string, page int) (*model.DeckPage, error)
	DeleteDeck(ctx context.Context, ownerID, deckID uuid.UUID) error
}

type deckService struct {
	db       *gorm.DB // トランザクション用にDB接続を持つ
	deckRepo repository.DeckRepository
	cardRepo repository.CardRepository
	store    storage.FileStore
	cfg      *config.Config
}

func NewDeckService(db *gorm.DB, deckRepo repository.DeckRepository, cardRepo repository.CardRepository, store storage.FileStore, cfg *config.Config) DeckService {
	return &deckService{
		db:       db,
		deckRepo: deckRepo,
		cardRepo: cardRepo,
		store:    store,
		cfg:      cfg,
	}
}

// CreateDeck は新規デッキを作成します。識別子を採番し、ペイロードの全カードを
// 送信順に挿入します。1トランザクションで、途中で失敗したら何も残りません。
func (s *deckService) CreateDeck(ctx context.Context, ownerID uuid.UUID, payload *model.DeckPayload, uploads *model.DeckUploads) (*model.Deck, error) {
	logger := middleware.GetLogger(ctx).With("owner_id", ownerID)

	if payload == nil || payload.Name == "" {
		return nil, model.ErrInvalidInput
	}

	var created *model.Deck

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		deck := &model.Deck{
			DeckID:       uuid.New(),
			OwnerID:      &ownerID,
			Name:         payload.Name,
			Description:  payload.Description,
			DateCreated:  now,
			LastModified: now,
		}
		if err := s.deckRepo.Create(ctx, tx, deck); err != nil {
			logger.Error("Error creating deck in transaction", "error", err)
			return model.ErrInternalServer
		}

		binders := newDeckBinders(s.store, uploads)
		if err := s.createCards(ctx, tx, deck, payload.Cards, binders); err != nil {
			return err
		}
		// アップロードが余っていたら件数不一致としてロールバック
		if err := binders.drained(); err != nil {
			return err
		}

		created = deck
		return nil // コミット
	})
	if err != nil {
		return nil, mapDeckError(err)
	}

	logger.Info("Deck created", "deck_id", created.DeckID, "cards", len(payload.Cards))
	return s.GetDeck(ctx, created.DeckID)
}

// UpdateDeck はデッキのメタデータとカード集合をペイロードに同期させます。
// デッキは所有者スコープで引き、全体を1トランザクションで処理します。
func (s *deckService) UpdateDeck(ctx context.Context, ownerID, deckID uuid.UUID, payload *model.DeckPayload, uploads *model.DeckUploads) (*model.Deck, error) {
	logger := middleware.GetLogger(ctx).With("owner_id", ownerID, "deck_id", deckID)

	if payload == nil || payload.Name == "" {
		return nil, model.ErrInvalidInput
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		deck, err := s.deckRepo.FindByIDForOwner(ctx, tx, ownerID, deckID)
		if err != nil {
			return err // model.ErrNotFound or wrapped DB error
		}

		// メタデータの差分更新。変更があったときだけ last_modified を進める。
		updates := collectDiffs(
			fieldDiff{Column: "name", Old: deck.Name, New: payload.Name},
			fieldDiff{Column: "description", Old: deck.Description, New: payload.Description},
		)
		if len(updates) > 0 {
			updates["last_modified"] = time.Now()
			if err := s.deckRepo.Update(ctx, tx, deck.DeckID, updates); err != nil {
				logger.Error("Error updating deck metadata in transaction", "error", err)
				return model.ErrInternalServer
			}
		}

		binders := newDeckBinders(s.store, uploads)
		if err := s.reconcileCards(ctx, tx, deck, payload, binders); err != nil {
			return err
		}
		return binders.drained()
	})
	if err != nil {
		return nil, mapDeckError(err)
	}

	logger.Info("Deck updated")
	return s.GetDeck(ctx, deckID)
}

// reconcileCards は永続化済みのカード集合をペイロードに突き合わせます。
//  1. 既存カードごとにペイロードからIDの一致する項目を探す。
//     あれば差分更新 (テキストと画像)、なければクライアントで削除されたので削除。
//  2. IDを持つのにこのデッキのどのカードとも一致しなかった項目はエラー
//     (古いセッションのIDで他デッキを書き換える事故を防ぐ)。
//  3. IDのない項目は新規カードとして送信順に挿入する。
func (s *deckService) reconcileCards(ctx context.Context, tx *gorm.DB, deck *model.Deck, payload *model.DeckPayload, binders *deckBinders) error {
	logger := middleware.GetLogger(ctx).With("deck_id", deck.DeckID)

	cards, err := s.cardRepo.FindByDeck(ctx, tx, deck.DeckID)
	if err != nil {
		return model.ErrInternalServer
	}

	matched := make(map[uint]bool, len(cards))
	for _, card := range cards {
		pc := findPayloadCard(payload.Cards, card.CardID)
		if pc == nil {
			// ペイロードに存在しない = クライアントで削除された
			if err := s.cardRepo.Delete(ctx, tx, deck.DeckID, card.CardID); err != nil {
				logger.Error("Error deleting card in transaction", "error", err, "card_id", card.CardID)
				return model.ErrInternalServer
			}
			continue
		}
		matched[card.CardID] = true

		updates := collectDiffs(
			fieldDiff{Column: "term", Old: card.Term, New: pc.Term},
			fieldDiff{Column: "definition", Old: card.Definition, New: pc.Definition},
		)
		if err := s.diffImages(ctx, card, pc, binders, updates); err != nil {
			return err
		}
		// 画像参照だけが変わった場合も書き込む。何も変わらなければ書かない。
		if len(updates) > 0 {
			if err := s.cardRepo.Update(ctx, tx, deck.DeckID, card.CardID, updates); err != nil {
				logger.Error("Error updating card in transaction", "error", err, "card_id", card.CardID)
				return model.ErrInternalServer
			}
		}
	}

	// 新規カードの抽出。IDがあるのに一致しなかった項目は受け付けない。
	newCards := make([]model.CardPayload, 0)
	for _, pc := range payload.Cards {
		if pc.ID == nil {
			newCards = append(newCards, pc)
			continue
		}
		if !matched[*pc.ID] {
			logger.Warn("Payload card does not belong to deck", "card_id", *pc.ID)
			return model.NewAppError(
				"CARD_NOT_IN_DECK",
				fmt.Sprintf("カード %d はこのデッキに存在しません。", *pc.ID),
				"card_id",
				model.ErrNotFound,
			)
		}
	}
	return s.createCards(ctx, tx, deck, newCards, binders)
}

// createCards はカードを送信順に挿入します。画像フィールドが空でない
// カードは、そのスロットのアップロード列から次のファイルを消費します。
// 新規デッキと更新時の追加カードで共通の作成経路です。
func (s *deckService) createCards(ctx context.Context, tx *gorm.DB, deck *model.Deck, cards []model.CardPayload, binders *deckBinders) error {
	logger := middleware.GetLogger(ctx).With("deck_id", deck.DeckID)

	for _, pc := range cards {
		card := &model.Card{
			DeckID:     deck.DeckID,
			Term:       pc.Term,
			Definition: pc.Definition,
		}
		if pc.TermImage != "" {
			name, err := binders.term.take(ctx)
			if err != nil {
				return err
			}
			card.TermImage = name
		}
		if pc.DefinitionImage != "" {
			name, err := binders.definition.take(ctx)
			if err != nil {
				return err
			}
			card.DefinitionImage = name
		}
		if err := s.cardRepo.Create(ctx, tx, card); err != nil {
			logger.Error("Error creating card in transaction", "error", err)
			return model.ErrInternalServer
		}
	}
	return nil
}

// diffImages は保存済みの画像のベース名と、クライアントが把握している
// ファイル名を比較します。一致すれば画像は変わっていないので何も消費
// しません。異なればクライアント側で差し替えられているので、空でなければ
// アップロード列から次のファイルを (新しい保存名で) 取り込み、空なら
// 画像を外します。
func (s *deckService) diffImages(ctx context.Context, card *model.Card, pc *model.CardPayload, binders *deckBinders, updates map[string]interface{}) error {
	if card.TermImage != pc.TermImage {
		if pc.TermImage != "" {
			name, err := binders.term.take(ctx)
			if err != nil {
				return err
			}
			updates["term_image"] = name
		} else {
			updates["term_image"] = ""
		}
	}
	if card.DefinitionImage != pc.DefinitionImage {
		if pc.DefinitionImage != "" {
			name, err := binders.definition.take(ctx)
			if err != nil {
				return err
			}
			updates["definition_image"] = name
		} else {
			updates["definition_image"] = ""
		}
	}
	return nil
}

func (s *deckService) GetDeck(ctx context.Context, deckID uuid.UUID) (*model.Deck, error) {
	deck, err := s.deckRepo.FindByID(ctx, s.db, deckID, true)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, err
		}
		return nil, model.ErrInternalServer
	}
	return deck, nil
}

// ListDecks は自分のデッキ一覧 (ローカル検索込み) を返します
func (s *deckService) ListDecks(ctx context.Context, ownerID uuid.UUID, query string, page int) (*model.DeckPage, error) {
	return s.pageDecks(ctx, repository.DeckSearch{
		OwnerID: &ownerID,
		Query:   query,
	}, page, s.cfg.App.DeckPageSize)
}

// SearchDecks は他のユーザーの公開デッキを横断検索します。
// 未ログインなら全デッキが対象です。
func (s *deckService) SearchDecks(ctx context.Context, ownerID *uuid.UUID, query string, page int) (*model.DeckPage, error) {
	return s.pageDecks(ctx, repository.DeckSearch{
		ExcludeOwnerID: ownerID,
		Query:          query,
	}, page, s.cfg.App.SearchPageSize)
}

// pageDecks はリクエストごとにLIMIT/OFFSETを組み立てます。ページャの
// 使い回しはしない (リクエスト間で状態を共有しない)。
func (s *deckService) pageDecks(ctx context.Context, search repository.DeckSearch, page, pageSize int) (*model.DeckPage, error) {
	logger := middleware.GetLogger(ctx)

	if page < 1 {
		page = 1
	}
	search.Limit = pageSize
	search.Offset = (page - 1) * pageSize

	decks, total, err := s.deckRepo.Search(ctx, s.db, search)
	if err != nil {
		logger.Error("Error searching decks", "error", err)
		return nil, model.ErrInternalServer
	}
	if decks == nil {
		decks = []*model.Deck{}
	}
	return &model.DeckPage{
		Decks:    decks,
		Page:     page,
		PageSize: pageSize,
		Total:    total,
	}, nil
}

func (s *deckService) DeleteDeck(ctx context.Context, ownerID, deckID uuid.UUID) error {
	logger := middleware.GetLogger(ctx).With("owner_id", ownerID, "deck_id", deckID)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.deckRepo.Delete(ctx, tx, ownerID, deckID)
	})
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return err
		}
		logger.Error("Error deleting deck", "error", err)
		return model.ErrInternalServer
	}

	logger.Info("Deck deleted")
	return nil
}

// findPayloadCard はペイロードからIDの一致する項目を探します。
// 比較対象はこのデッキから読み出したカードのIDのみ。
func findPayloadCard(cards []model.CardPayload, cardID uint) *model.CardPayload {
	for i := range cards {
		if cards[i].ID != nil && *cards[i].ID == cardID {
			return &cards[i]
		}
	}
	return nil
}

// mapDeckError はトランザクション内から返ったエラーを呼び出し側に返す形に整えます
func mapDeckError(err error) error {
	var appErr *model.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, model.ErrNotFound) || errors.Is(err, model.ErrInvalidInput) || errors.Is(err, model.ErrConflict) {
		return err
	}
	if errors.Is(err, model.ErrInternalServer) {
		return err
	}
	return model.ErrInternalServer
}
