// internal/handlers/study_handler.go
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"quizcards/internal/model"
	"quizcards/internal/service"
	"quizcards/internal/webutil"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type StudyHandler struct {
	service service.StudyService
	logger  *slog.Logger
}

func NewStudyHandler(s service.StudyService, logger *slog.Logger) *StudyHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StudyHandler{
		service: s,
		logger:  logger,
	}
}

// GetQuestions は学習モード用の4択問題を返すハンドラ。
// answer_with クエリパラメータで選択肢に使う面を指定します。
func (h *StudyHandler) GetQuestions(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "GetQuestions"))

	deckIDStr := chi.URLParam(r, "deck_id")
	deckID, err := uuid.Parse(deckIDStr)
	if err != nil {
		logger.Warn("Invalid deck ID format in URL", slog.String("deck_id_str", deckIDStr), slog.String("error", err.Error()))
		appErr := model.NewAppError("INVALID_URL_PARAM", "deck_idの形式が正しくありません。", "deck_id", model.ErrInvalidInput)
		webutil.HandleError(w, logger, appErr)
		return
	}
	logger = logger.With(slog.String("deck_id", deckID.String()))

	answerWith := r.URL.Query().Get("answer_with")
	if answerWith == "" {
		answerWith = model.FaceDefinition
	}

	questions, err := h.service.GenerateQuestions(r.Context(), deckID, answerWith)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			logger.Info("Deck not found in service", slog.Any("error", err))
		} else {
			logger.Error("Error generating questions in service", slog.Any("error", err))
		}
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Questions generated successfully", slog.Int("count", len(questions)))
	webutil.RespondWithJSON(w, http.StatusOK, questions, logger)
}
