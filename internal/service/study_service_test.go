// internal/service/study_service_test.go
package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"quizcards/internal/model"
	"quizcards/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedStudyDeck(t *testing.T, db *gorm.DB, numCards int) (*model.Deck, map[string]string) {
	t.Helper()
	now := time.Now()
	ownerID := uuid.New()
	deck := &model.Deck{
		DeckID:       uuid.New(),
		OwnerID:      &ownerID,
		Name:         "Study Deck",
		DateCreated:  now,
		LastModified: now,
	}
	require.NoError(t, db.Create(deck).Error)

	// term -> definition の対応表 (正解チェック用)
	answers := make(map[string]string, numCards)
	for i := 0; i < numCards; i++ {
		term := fmt.Sprintf("term-%d", i)
		definition := fmt.Sprintf("definition-%d", i)
		answers[term] = definition
		require.NoError(t, db.Create(&model.Card{
			DeckID:     deck.DeckID,
			Term:       term,
			Definition: definition,
		}).Error)
	}
	return deck, answers
}

func newTestStudyService(t *testing.T) (StudyService, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	svc := NewStudyService(db, repository.NewGormDeckRepository(), repository.NewGormCardRepository())
	return svc, db
}

func Test_studyService_GenerateQuestions(t *testing.T) {
	ctx := context.Background()

	t.Run("正常系: 全カードから4択問題が生成される", func(t *testing.T) {
		svc, db := newTestStudyService(t)
		deck, answers := seedStudyDeck(t, db, 6)

		questions, err := svc.GenerateQuestions(ctx, deck.DeckID, model.FaceDefinition)
		require.NoError(t, err)
		require.Len(t, questions, 6)

		seen := make(map[string]bool)
		for _, q := range questions {
			// 問題文は term 面、選択肢は definition 面
			wantAnswer, ok := answers[q.Question.Text]
			require.True(t, ok, "question text %q is not a term", q.Question.Text)
			seen[q.Question.Text] = true

			require.Len(t, q.Answers, 4)
			correct := 0
			for _, a := range q.Answers {
				if a.Correct {
					correct++
					assert.Equal(t, wantAnswer, a.Text)
				}
			}
			assert.Equal(t, 1, correct, "exactly one correct answer expected")
		}
		// 各カードが1回ずつ出題される
		assert.Len(t, seen, 6)
	})

	t.Run("正常系: answer_with=term では面が入れ替わる", func(t *testing.T) {
		svc, db := newTestStudyService(t)
		deck, answers := seedStudyDeck(t, db, 4)

		questions, err := svc.GenerateQuestions(ctx, deck.DeckID, model.FaceTerm)
		require.NoError(t, err)
		require.Len(t, questions, 4)

		// 問題文は definition 面になる
		definitions := make(map[string]string, len(answers))
		for term, definition := range answers {
			definitions[definition] = term
		}
		for _, q := range questions {
			wantAnswer, ok := definitions[q.Question.Text]
			require.True(t, ok, "question text %q is not a definition", q.Question.Text)
			for _, a := range q.Answers {
				if a.Correct {
					assert.Equal(t, wantAnswer, a.Text)
				}
			}
		}
	})

	t.Run("正常系: カードが4枚未満なら選択肢も減る", func(t *testing.T) {
		svc, db := newTestStudyService(t)
		deck, _ := seedStudyDeck(t, db, 2)

		questions, err := svc.GenerateQuestions(ctx, deck.DeckID, model.FaceDefinition)
		require.NoError(t, err)
		require.Len(t, questions, 2)
		for _, q := range questions {
			assert.Len(t, q.Answers, 2)
		}
	})

	t.Run("正常系: カードのないデッキは空の問題リスト", func(t *testing.T) {
		svc, db := newTestStudyService(t)
		deck, _ := seedStudyDeck(t, db, 0)

		questions, err := svc.GenerateQuestions(ctx, deck.DeckID, model.FaceDefinition)
		require.NoError(t, err)
		assert.Empty(t, questions)
	})

	t.Run("異常系: answer_with が不正", func(t *testing.T) {
		svc, db := newTestStudyService(t)
		deck, _ := seedStudyDeck(t, db, 2)

		_, err := svc.GenerateQuestions(ctx, deck.DeckID, "both")
		assert.ErrorIs(t, err, model.ErrInvalidInput)
	})

	t.Run("異常系: デッキが存在しない", func(t *testing.T) {
		svc, _ := newTestStudyService(t)

		_, err := svc.GenerateQuestions(ctx, uuid.New(), model.FaceDefinition)
		assert.ErrorIs(t, err, model.ErrNotFound)
	})
}
