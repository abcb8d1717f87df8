// internal/handlers/main_test.go
package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"quizcards/internal/config"
	"quizcards/internal/handlers"
	"quizcards/internal/middleware"
	"quizcards/internal/model"
	"quizcards/internal/repository"
	"quizcards/internal/service"
	"quizcards/internal/storage"
)

// testAPI は1テスト分のルーターと依存をまとめたものです。
// 本番の main.go と同じ配線を、開発用認証ミドルウェアで組み立てます。
type testAPI struct {
	router *chi.Mux
	db     *gorm.DB
	store  storage.FileStore
}

func setupTestAPI(t *testing.T) *testAPI {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.Deck{}, &model.Card{}))

	testLogger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := storage.NewDiskStore(t.TempDir(), testLogger)
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.App.DeckPageSize = config.DefaultDeckPageSize
	cfg.App.SearchPageSize = config.DefaultSearchPageSize

	userRepo := repository.NewGormUserRepository()
	deckRepo := repository.NewGormDeckRepository()
	cardRepo := repository.NewGormCardRepository()

	userService := service.NewUserService(db, userRepo)
	deckService := service.NewDeckService(db, deckRepo, cardRepo, store, cfg)
	studyService := service.NewStudyService(db, deckRepo, cardRepo)

	userHandler := handlers.NewUserHandler(userService, testLogger)
	deckHandler := handlers.NewDeckHandler(deckService, testLogger)
	studyHandler := handlers.NewStudyHandler(studyService, testLogger)

	router := chi.NewRouter()
	router.Route("/api/v1", func(r chi.Router) {
		r.Post("/users", userHandler.RegisterUser)
		r.Get("/decks/search", deckHandler.SearchDecks)
		r.Get("/decks/{deck_id}", deckHandler.GetDeck)
		r.Get("/decks/{deck_id}/questions", studyHandler.GetQuestions)

		r.Group(func(r chi.Router) {
			r.Use(middleware.DevUserContextMiddleware)
			r.Route("/decks", func(r chi.Router) {
				r.Post("/", deckHandler.PostDeck)
				r.Get("/", deckHandler.GetDecks)
				r.Put("/{deck_id}", deckHandler.PutDeck)
				r.Delete("/{deck_id}", deckHandler.DeleteDeck)
			})
		})
	})

	return &testAPI{router: router, db: db, store: store}
}

func (api *testAPI) execute(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	api.router.ServeHTTP(rr, req)
	return rr
}

// deckFile はマルチパートフォームに載せる画像ファイルの指定です
type deckFile struct {
	field    string // "term-image" か "definition-image"
	name     string
	contents string
}

// newDeckRequest はエディタが送信する形式のマルチパートリクエストを組み立てます
func newDeckRequest(t *testing.T, method, url string, payload *model.DeckPayload, files []deckFile, userID *uuid.UUID) *http.Request {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	deckJSON, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, writer.WriteField("deck", string(deckJSON)))

	for _, f := range files {
		part, err := writer.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = part.Write([]byte(f.contents))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(method, url, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if userID != nil {
		req.Header.Set("X-User-ID", userID.String())
	}
	return req
}

func decodeDeck(t *testing.T, rr *httptest.ResponseRecorder) *model.Deck {
	t.Helper()
	var deck model.Deck
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &deck), "body: %s", rr.Body.String())
	return &deck
}

func decodeAPIError(t *testing.T, rr *httptest.ResponseRecorder) model.ErrorDetail {
	t.Helper()
	var resp model.APIErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp), "body: %s", rr.Body.String())
	return resp.Error
}
