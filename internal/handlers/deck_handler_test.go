// internal/handlers/deck_handler_test.go
package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"quizcards/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeckAPI_CreateAndGet(t *testing.T) {
	api := setupTestAPI(t)
	userID := uuid.New()

	payload := &model.DeckPayload{
		Name:        "English Basics",
		Description: "daily words",
		Cards: []model.CardPayload{
			{Term: "apple", TermImage: "apple.png", Definition: "りんご"},
			{Term: "book", Definition: "本"},
		},
	}
	files := []deckFile{
		{field: "term-image", name: "apple.png", contents: "apple-bytes"},
	}

	rr := api.execute(newDeckRequest(t, http.MethodPost, "/api/v1/decks/", payload, files, &userID))
	require.Equal(t, http.StatusCreated, rr.Code, "body: %s", rr.Body.String())

	created := decodeDeck(t, rr)
	assert.NotEqual(t, uuid.Nil, created.DeckID)
	assert.Equal(t, "English Basics", created.Name)
	require.Len(t, created.Cards, 2)
	assert.True(t, strings.HasPrefix(created.Cards[0].TermImage, "apple_"))
	assert.Empty(t, created.Cards[1].TermImage)

	// 画像がファイルストアに保存されている
	names, err := api.store.List(context.Background())
	require.NoError(t, err)
	assert.Contains(t, names, created.Cards[0].TermImage)

	// デッキの取得は認証なしでもできる (公開デッキの学習用)
	getReq := httptest.NewRequest(http.MethodGet, "/api/v1/decks/"+created.DeckID.String(), nil)
	getRR := api.execute(getReq)
	require.Equal(t, http.StatusOK, getRR.Code)
	fetched := decodeDeck(t, getRR)
	assert.Equal(t, created.DeckID, fetched.DeckID)
	assert.Len(t, fetched.Cards, 2)
}

func TestDeckAPI_Update(t *testing.T) {
	api := setupTestAPI(t)
	userID := uuid.New()

	rr := api.execute(newDeckRequest(t, http.MethodPost, "/api/v1/decks/", &model.DeckPayload{
		Name:  "Animals",
		Cards: []model.CardPayload{{Term: "cat", Definition: "猫"}},
	}, nil, &userID))
	require.Equal(t, http.StatusCreated, rr.Code)
	deck := decodeDeck(t, rr)

	// 既存カードを維持しつつ名前変更とカード追加
	cardID := deck.Cards[0].CardID
	update := &model.DeckPayload{
		Name: "Animals v2",
		Cards: []model.CardPayload{
			{ID: &cardID, Term: "cat", Definition: "猫"},
			{Term: "dog", TermImage: "dog.png", Definition: "犬"},
		},
	}
	files := []deckFile{
		{field: "term-image", name: "dog.png", contents: "dog-bytes"},
	}

	rr = api.execute(newDeckRequest(t, http.MethodPut, "/api/v1/decks/"+deck.DeckID.String(), update, files, &userID))
	require.Equal(t, http.StatusOK, rr.Code, "body: %s", rr.Body.String())

	updated := decodeDeck(t, rr)
	assert.Equal(t, "Animals v2", updated.Name)
	require.Len(t, updated.Cards, 2)
	assert.Equal(t, cardID, updated.Cards[0].CardID)
	assert.True(t, strings.HasPrefix(updated.Cards[1].TermImage, "dog_"))
}

func TestDeckAPI_Delete(t *testing.T) {
	api := setupTestAPI(t)
	userID := uuid.New()

	rr := api.execute(newDeckRequest(t, http.MethodPost, "/api/v1/decks/", &model.DeckPayload{
		Name:  "Doomed",
		Cards: []model.CardPayload{{Term: "cat", Definition: "猫"}},
	}, nil, &userID))
	require.Equal(t, http.StatusCreated, rr.Code)
	deck := decodeDeck(t, rr)

	delReq := httptest.NewRequest(http.MethodDelete, "/api/v1/decks/"+deck.DeckID.String(), nil)
	delReq.Header.Set("X-User-ID", userID.String())
	rr = api.execute(delReq)
	require.Equal(t, http.StatusNoContent, rr.Code)

	getRR := api.execute(httptest.NewRequest(http.MethodGet, "/api/v1/decks/"+deck.DeckID.String(), nil))
	require.Equal(t, http.StatusNotFound, getRR.Code)
	assert.Equal(t, "NOT_FOUND", decodeAPIError(t, getRR).Code)
}

func TestDeckAPI_ErrorResponses(t *testing.T) {
	api := setupTestAPI(t)
	userID := uuid.New()

	t.Run("画像ファイルの件数不一致は400", func(t *testing.T) {
		payload := &model.DeckPayload{
			Name: "Broken",
			Cards: []model.CardPayload{
				{Term: "cat", TermImage: "cat.png", Definition: "猫"},
			},
		}
		// ファイルを1つも添付しない
		rr := api.execute(newDeckRequest(t, http.MethodPost, "/api/v1/decks/", payload, nil, &userID))
		require.Equal(t, http.StatusBadRequest, rr.Code, "body: %s", rr.Body.String())
		assert.Equal(t, "UPLOAD_COUNT_MISMATCH", decodeAPIError(t, rr).Code)
	})

	t.Run("名前なしはバリデーションエラー", func(t *testing.T) {
		payload := &model.DeckPayload{
			Cards: []model.CardPayload{{Term: "cat", Definition: "猫"}},
		}
		rr := api.execute(newDeckRequest(t, http.MethodPost, "/api/v1/decks/", payload, nil, &userID))
		require.Equal(t, http.StatusBadRequest, rr.Code)

		detail := decodeAPIError(t, rr)
		assert.Equal(t, "VALIDATION_ERROR", detail.Code)
		assert.Equal(t, "name", detail.Field)
	})

	t.Run("カードなしはバリデーションエラー", func(t *testing.T) {
		payload := &model.DeckPayload{Name: "Empty"}
		rr := api.execute(newDeckRequest(t, http.MethodPost, "/api/v1/decks/", payload, nil, &userID))
		require.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "VALIDATION_ERROR", decodeAPIError(t, rr).Code)
	})

	t.Run("認証ヘッダーなしは拒否される", func(t *testing.T) {
		payload := &model.DeckPayload{
			Name:  "NoAuth",
			Cards: []model.CardPayload{{Term: "cat", Definition: "猫"}},
		}
		rr := api.execute(newDeckRequest(t, http.MethodPost, "/api/v1/decks/", payload, nil, nil))
		require.Equal(t, http.StatusForbidden, rr.Code)
		assert.Equal(t, "UNAUTHORIZED", decodeAPIError(t, rr).Code)
	})

	t.Run("不正なデッキIDは400", func(t *testing.T) {
		rr := api.execute(httptest.NewRequest(http.MethodGet, "/api/v1/decks/not-a-uuid", nil))
		require.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "INVALID_URL_PARAM", decodeAPIError(t, rr).Code)
	})
}

func TestDeckAPI_ListAndSearch(t *testing.T) {
	api := setupTestAPI(t)
	userA := uuid.New()
	userB := uuid.New()

	for _, tc := range []struct {
		owner uuid.UUID
		name  string
	}{
		{userA, "History"},
		{userA, "Chemistry"},
		{userB, "Biology"},
	} {
		rr := api.execute(newDeckRequest(t, http.MethodPost, "/api/v1/decks/", &model.DeckPayload{
			Name:  tc.name,
			Cards: []model.CardPayload{{Term: "t", Definition: "d"}},
		}, nil, &tc.owner))
		require.Equal(t, http.StatusCreated, rr.Code)
	}

	t.Run("自分のデッキ一覧", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/decks/", nil)
		req.Header.Set("X-User-ID", userA.String())
		rr := api.execute(req)
		require.Equal(t, http.StatusOK, rr.Code)

		var page model.DeckPage
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &page))
		assert.Len(t, page.Decks, 2)
		assert.EqualValues(t, 2, page.Total)
	})

	t.Run("ローカル検索", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/decks/?q=chem", nil)
		req.Header.Set("X-User-ID", userA.String())
		rr := api.execute(req)
		require.Equal(t, http.StatusOK, rr.Code)

		var page model.DeckPage
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &page))
		require.Len(t, page.Decks, 1)
		assert.Equal(t, "Chemistry", page.Decks[0].Name)
	})

	t.Run("グローバル検索は認証なしで全デッキが対象", func(t *testing.T) {
		rr := api.execute(httptest.NewRequest(http.MethodGet, "/api/v1/decks/search", nil))
		require.Equal(t, http.StatusOK, rr.Code)

		var page model.DeckPage
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &page))
		assert.EqualValues(t, 3, page.Total)
	})
}

func TestStudyAPI_GetQuestions(t *testing.T) {
	api := setupTestAPI(t)
	userID := uuid.New()

	rr := api.execute(newDeckRequest(t, http.MethodPost, "/api/v1/decks/", &model.DeckPayload{
		Name: "Study",
		Cards: []model.CardPayload{
			{Term: "a", Definition: "1"},
			{Term: "b", Definition: "2"},
			{Term: "c", Definition: "3"},
		},
	}, nil, &userID))
	require.Equal(t, http.StatusCreated, rr.Code)
	deck := decodeDeck(t, rr)

	t.Run("学習問題の生成は認証なしでもできる", func(t *testing.T) {
		rr := api.execute(httptest.NewRequest(http.MethodGet, "/api/v1/decks/"+deck.DeckID.String()+"/questions", nil))
		require.Equal(t, http.StatusOK, rr.Code, "body: %s", rr.Body.String())

		var questions []*model.Question
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &questions))
		assert.Len(t, questions, 3)
		for _, q := range questions {
			assert.Len(t, q.Answers, 3)
		}
	})

	t.Run("answer_with が不正なら400", func(t *testing.T) {
		rr := api.execute(httptest.NewRequest(http.MethodGet, "/api/v1/decks/"+deck.DeckID.String()+"/questions?answer_with=both", nil))
		require.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("存在しないデッキは404", func(t *testing.T) {
		rr := api.execute(httptest.NewRequest(http.MethodGet, "/api/v1/decks/"+uuid.NewString()+"/questions", nil))
		require.Equal(t, http.StatusNotFound, rr.Code)
	})
}
