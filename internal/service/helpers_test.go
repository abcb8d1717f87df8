// internal/service/helpers_test.go
package service

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"

	"quizcards/internal/config"
	"quizcards/internal/model"
	"quizcards/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// --- テストヘルパー関数 (パッケージ内で共有) ---

// setupTestDB はテストごとに独立したインメモリSQLiteを用意します
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "failed to connect database for testing")

	err = db.AutoMigrate(&model.User{}, &model.Deck{}, &model.Card{})
	require.NoError(t, err, "failed to migrate database for testing")
	return db
}

// fakeFileStore はファイルストアのインメモリ実装です。
// 保存された順序と中身を記録し、テストで検証できるようにします。
type fakeFileStore struct {
	mu    sync.Mutex
	files map[string][]byte
	saves []string // Save が呼ばれた順の保存名
}

func newFakeFileStore() *fakeFileStore {
	return &fakeFileStore{files: make(map[string][]byte)}
}

func (s *fakeFileStore) Save(ctx context.Context, name string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[name] = data
	s.saves = append(s.saves, name)
	return nil
}

func (s *fakeFileStore) Remove(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[name]; !ok {
		return fmt.Errorf("fakeFileStore.Remove: file %q not found", name)
	}
	delete(s.files, name)
	return nil
}

func (s *fakeFileStore) List(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.files))
	for name := range s.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *fakeFileStore) content(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[name]
	return string(data), ok
}

// newTestDeckService は実リポジトリ + インメモリDB + フェイクストアで
// DeckService を組み立てます
func newTestDeckService(t *testing.T) (DeckService, *gorm.DB, *fakeFileStore) {
	t.Helper()
	db := setupTestDB(t)
	store := newFakeFileStore()
	cfg := &config.Config{}
	cfg.App.DeckPageSize = config.DefaultDeckPageSize
	cfg.App.SearchPageSize = config.DefaultSearchPageSize

	svc := NewDeckService(db, repository.NewGormDeckRepository(), repository.NewGormCardRepository(), store, cfg)
	return svc, db, store
}

func upload(name, content string) *model.UploadFile {
	return &model.UploadFile{Name: name, Content: strings.NewReader(content)}
}

func countCards(t *testing.T, db *gorm.DB, deckID uuid.UUID) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&model.Card{}).Where("deck_id = ?", deckID).Count(&n).Error)
	return n
}

func countDecks(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&model.Deck{}).Count(&n).Error)
	return n
}

// payloadFrom は保存済みデッキから「何も変更しない」更新ペイロードを作ります
func payloadFrom(deck *model.Deck) *model.DeckPayload {
	payload := &model.DeckPayload{
		Name:        deck.Name,
		Description: deck.Description,
	}
	for i := range deck.Cards {
		card := deck.Cards[i]
		id := card.CardID
		payload.Cards = append(payload.Cards, model.CardPayload{
			ID:              &id,
			Term:            card.Term,
			TermImage:       card.TermImage,
			Definition:      card.Definition,
			DefinitionImage: card.DefinitionImage,
		})
	}
	return payload
}
