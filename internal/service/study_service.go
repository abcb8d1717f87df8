// internal/service/study_service.go
package service

import (
	"context"
	"errors"
	"math/rand"

	"quizcards/internal/middleware"
	"quizcards/internal/model"
	"quizcards/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 学習モードの選択肢の最大数 (正解1 + 誤答3)
const maxQuestionChoices = 4

type StudyService interface {
	// GenerateQuestions はデッキの全カードから4択問題を生成します。
	// answerWith は選択肢に使う面 ("term" か "definition") です。
	GenerateQuestions(ctx context.Context, deckID uuid.UUID, answerWith string) ([]*model.Question, error)
}

type studyService struct {
	db       *gorm.DB
	deckRepo repository.DeckRepository
	cardRepo repository.CardRepository
}

func NewStudyService(db *gorm.DB, deckRepo repository.DeckRepository, cardRepo repository.CardRepository) StudyService {
	return &studyService{
		db:       db,
		deckRepo: deckRepo,
		cardRepo: cardRepo,
	}
}

func (s *studyService) GenerateQuestions(ctx context.Context, deckID uuid.UUID, answerWith string) ([]*model.Question, error) {
	logger := middleware.GetLogger(ctx).With("deck_id", deckID)

	if answerWith != model.FaceTerm && answerWith != model.FaceDefinition {
		return nil, model.NewAppError("INVALID_URL_PARAM", "answer_withはtermかdefinitionを指定してください。", "answer_with", model.ErrInvalidInput)
	}

	// デッキの存在確認 (学習は所有者以外にも公開)
	if _, err := s.deckRepo.FindByID(ctx, s.db, deckID, false); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, err
		}
		return nil, model.ErrInternalServer
	}

	cards, err := s.cardRepo.FindByDeck(ctx, s.db, deckID)
	if err != nil {
		logger.Error("Error loading cards for questions", "error", err)
		return nil, model.ErrInternalServer
	}

	numChoices := min(len(cards), maxQuestionChoices)
	questionFace := model.FaceDefinition
	if answerWith == model.FaceDefinition {
		questionFace = model.FaceTerm
	}

	questions := make([]*model.Question, 0, len(cards))
	for i, card := range cards {
		answers := make([]model.QuestionAnswer, 0, numChoices)
		answers = append(answers, model.QuestionAnswer{
			QuestionFace: cardFace(card, answerWith),
			Correct:      true,
		})

		// 誤答は他のカードから重複なしで選ぶ
		for _, wrong := range sampleOthers(cards, i, numChoices-1) {
			answers = append(answers, model.QuestionAnswer{
				QuestionFace: cardFace(wrong, answerWith),
				Correct:      false,
			})
		}
		rand.Shuffle(len(answers), func(a, b int) {
			answers[a], answers[b] = answers[b], answers[a]
		})

		questions = append(questions, &model.Question{
			Question: cardFace(card, questionFace),
			Answers:  answers,
		})
	}

	rand.Shuffle(len(questions), func(a, b int) {
		questions[a], questions[b] = questions[b], questions[a]
	})

	logger.Info("Questions generated", "count", len(questions))
	return questions, nil
}

// cardFace はカードの指定面をテキストと画像のベース名で返します
func cardFace(card *model.Card, face string) model.QuestionFace {
	if face == model.FaceTerm {
		return model.QuestionFace{Text: card.Term, Image: card.TermImage}
	}
	return model.QuestionFace{Text: card.Definition, Image: card.DefinitionImage}
}

// sampleOthers は exclude 番目以外のカードからランダムに n 枚選びます
func sampleOthers(cards []*model.Card, exclude, n int) []*model.Card {
	others := make([]*model.Card, 0, len(cards)-1)
	for i, c := range cards {
		if i != exclude {
			others = append(others, c)
		}
	}
	rand.Shuffle(len(others), func(a, b int) {
		others[a], others[b] = others[b], others[a]
	})
	if n > len(others) {
		n = len(others)
	}
	return others[:n]
}
