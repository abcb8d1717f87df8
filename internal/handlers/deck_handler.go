// internal/handlers/deck_handler.go
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"quizcards/internal/middleware"
	"quizcards/internal/model"
	"quizcards/internal/service"
	"quizcards/internal/webutil"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// エディタのフォームはファイル込みなので大きめに取る
const maxUploadMemory = 32 << 20 // 32MB

type DeckHandler struct {
	service service.DeckService
	logger  *slog.Logger
}

func NewDeckHandler(s service.DeckService, logger *slog.Logger) *DeckHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DeckHandler{
		service: s,
		logger:  logger,
	}
}

// PostDeck は新しいデッキを作成するためのハンドラ。
// multipart/form-data で、deck フィールドにJSONペイロード、
// term-image / definition-image に画像ファイルの列を受け取ります。
func (h *DeckHandler) PostDeck(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "PostDeck"))

	ownerID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		logger.Warn("Unauthorized access attempt", slog.String("error", err.Error()))
		appErr := model.NewAppError("UNAUTHORIZED", "認証情報が見つかりません。", "", model.ErrForbidden)
		webutil.HandleError(w, logger, appErr)
		return
	}
	logger = logger.With(slog.String("owner_id", ownerID.String()))

	payload, uploads, err := parseDeckForm(r)
	if err != nil {
		logger.Warn("Failed to parse deck form", slog.String("error", err.Error()))
		webutil.HandleError(w, logger, err)
		return
	}
	if ok := h.validatePayload(w, logger, payload); !ok {
		return
	}

	deck, err := h.service.CreateDeck(r.Context(), ownerID, payload, uploads)
	if err != nil {
		logger.Error("Error creating deck in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Deck created successfully", slog.String("deck_id", deck.DeckID.String()))
	webutil.RespondWithJSON(w, http.StatusCreated, deck, logger)
}

// PutDeck は既存デッキをペイロードに同期させるためのハンドラ
func (h *DeckHandler) PutDeck(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "PutDeck"))

	ownerID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		logger.Warn("Unauthorized access attempt", slog.String("error", err.Error()))
		appErr := model.NewAppError("UNAUTHORIZED", "認証情報が見つかりません。", "", model.ErrForbidden)
		webutil.HandleError(w, logger, appErr)
		return
	}
	logger = logger.With(slog.String("owner_id", ownerID.String()))

	deckID, ok := h.deckIDParam(w, logger, r)
	if !ok {
		return
	}
	logger = logger.With(slog.String("deck_id", deckID.String()))

	payload, uploads, err := parseDeckForm(r)
	if err != nil {
		logger.Warn("Failed to parse deck form", slog.String("error", err.Error()))
		webutil.HandleError(w, logger, err)
		return
	}
	if ok := h.validatePayload(w, logger, payload); !ok {
		return
	}

	deck, err := h.service.UpdateDeck(r.Context(), ownerID, deckID, payload, uploads)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			logger.Info("Deck not found in service", slog.Any("error", err))
		} else {
			logger.Error("Error updating deck in service", slog.Any("error", err))
		}
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Deck updated successfully")
	webutil.RespondWithJSON(w, http.StatusOK, deck, logger)
}

// GetDecks は自分のデッキ一覧 (ローカル検索・ページング付き) を返すハンドラ
func (h *DeckHandler) GetDecks(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "GetDecks"))

	ownerID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		logger.Warn("Unauthorized access attempt", slog.String("error", err.Error()))
		appErr := model.NewAppError("UNAUTHORIZED", "認証情報が見つかりません。", "", model.ErrForbidden)
		webutil.HandleError(w, logger, appErr)
		return
	}

	query := r.URL.Query().Get("q")
	page := webutil.PageParam(r)

	result, err := h.service.ListDecks(r.Context(), ownerID, query, page)
	if err != nil {
		logger.Error("Error listing decks in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Decks listed successfully", slog.Int("count", len(result.Decks)))
	webutil.RespondWithJSON(w, http.StatusOK, result, logger)
}

// SearchDecks は他のユーザーのデッキを横断検索するハンドラ
func (h *DeckHandler) SearchDecks(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "SearchDecks"))

	// 検索は未ログインでも可能。認証済みなら自分のデッキを除外する。
	var ownerID *uuid.UUID
	if id, err := middleware.GetUserIDFromContext(r.Context()); err == nil {
		ownerID = &id
	}

	query := r.URL.Query().Get("q")
	page := webutil.PageParam(r)

	result, err := h.service.SearchDecks(r.Context(), ownerID, query, page)
	if err != nil {
		logger.Error("Error searching decks in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Decks searched successfully", slog.Int("count", len(result.Decks)))
	webutil.RespondWithJSON(w, http.StatusOK, result, logger)
}

// GetDeck はデッキとカード一覧を返すハンドラ (フラッシュカード学習用)
func (h *DeckHandler) GetDeck(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "GetDeck"))

	deckID, ok := h.deckIDParam(w, logger, r)
	if !ok {
		return
	}
	logger = logger.With(slog.String("deck_id", deckID.String()))

	deck, err := h.service.GetDeck(r.Context(), deckID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			logger.Info("Deck not found in service", slog.Any("error", err))
		} else {
			logger.Error("Error getting deck from service", slog.Any("error", err))
		}
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Deck retrieved successfully")
	webutil.RespondWithJSON(w, http.StatusOK, deck, logger)
}

// DeleteDeck はデッキを削除するハンドラ。カードも一緒に消えます。
func (h *DeckHandler) DeleteDeck(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "DeleteDeck"))

	ownerID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		logger.Warn("Unauthorized access attempt", slog.String("error", err.Error()))
		appErr := model.NewAppError("UNAUTHORIZED", "認証情報が見つかりません。", "", model.ErrForbidden)
		webutil.HandleError(w, logger, appErr)
		return
	}

	deckID, ok := h.deckIDParam(w, logger, r)
	if !ok {
		return
	}
	logger = logger.With(slog.String("deck_id", deckID.String()))

	if err := h.service.DeleteDeck(r.Context(), ownerID, deckID); err != nil {
		logger.Error("Error deleting deck in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Deck deleted successfully")
	w.WriteHeader(http.StatusNoContent)
}

func (h *DeckHandler) deckIDParam(w http.ResponseWriter, logger *slog.Logger, r *http.Request) (uuid.UUID, bool) {
	deckIDStr := chi.URLParam(r, "deck_id")
	deckID, err := uuid.Parse(deckIDStr)
	if err != nil {
		logger.Warn("Invalid deck ID format in URL", slog.String("deck_id_str", deckIDStr), slog.String("error", err.Error()))
		appErr := model.NewAppError("INVALID_URL_PARAM", "deck_idの形式が正しくありません。", "deck_id", model.ErrInvalidInput)
		webutil.HandleError(w, logger, appErr)
		return uuid.Nil, false
	}
	return deckID, true
}

func (h *DeckHandler) validatePayload(w http.ResponseWriter, logger *slog.Logger, payload *model.DeckPayload) bool {
	if err := webutil.Validator.Struct(payload); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			logger.Warn("Validation failed", slog.Any("errors", validationErrors.Error()))

			// 最初のエラーを代表としてクライアントに返す
			firstErr := validationErrors[0]
			appErr := model.NewAppError(
				"VALIDATION_ERROR",
				firstErr.Translate(webutil.Trans),
				firstErr.Field(),
				model.ErrInvalidInput,
			)
			webutil.HandleError(w, logger, appErr)
		} else {
			logger.Error("Unexpected error during validation", slog.Any("error", err))
			webutil.HandleError(w, logger, err)
		}
		return false
	}
	return true
}

// parseDeckForm はエディタのマルチパートフォームを読み取ります。
// deck フィールドのJSONと、term-image / definition-image の
// ファイル列を送信順のまま取り出します。
func parseDeckForm(r *http.Request) (*model.DeckPayload, *model.DeckUploads, error) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		return nil, nil, model.NewAppError("INVALID_REQUEST_BODY", "マルチパートフォームの解析に失敗しました。", "", model.ErrInvalidInput)
	}

	var payload model.DeckPayload
	if err := webutil.DecodeJSONString(r.FormValue("deck"), &payload); err != nil {
		return nil, nil, model.NewAppError("INVALID_REQUEST_BODY", "deckフィールドの形式が正しくありません。", "deck", model.ErrInvalidInput)
	}

	uploads := &model.DeckUploads{}
	if r.MultipartForm != nil {
		for _, fh := range r.MultipartForm.File["term-image"] {
			f, err := fh.Open()
			if err != nil {
				return nil, nil, model.NewAppError("INVALID_REQUEST_BODY", "アップロードファイルを読み取れませんでした。", "term-image", model.ErrInvalidInput)
			}
			uploads.TermImages = append(uploads.TermImages, &model.UploadFile{Name: fh.Filename, Content: f})
		}
		for _, fh := range r.MultipartForm.File["definition-image"] {
			f, err := fh.Open()
			if err != nil {
				return nil, nil, model.NewAppError("INVALID_REQUEST_BODY", "アップロードファイルを読み取れませんでした。", "definition-image", model.ErrInvalidInput)
			}
			uploads.DefinitionImages = append(uploads.DefinitionImages, &model.UploadFile{Name: fh.Filename, Content: f})
		}
	}
	return &payload, uploads, nil
}
