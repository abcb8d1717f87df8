// internal/cleaner/cleaner.go
package cleaner

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"quizcards/internal/repository"
	"quizcards/internal/storage"

	"gorm.io/gorm"
)

// Sweeper はどのカードからも参照されなくなった画像ファイルを回収します。
// 編集のロールバックで孤児になったファイルもここで拾われます。
type Sweeper struct {
	db       *gorm.DB
	cardRepo repository.CardRepository
	store    storage.FileStore
	interval time.Duration
	logger   *slog.Logger
	running  atomic.Bool
}

func NewSweeper(db *gorm.DB, cardRepo repository.CardRepository, store storage.FileStore, interval time.Duration, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		db:       db,
		cardRepo: cardRepo,
		store:    store,
		interval: interval,
		logger:   logger,
	}
}

// Run は一定間隔で Sweep を繰り返します。コンテキストの終了で停止します。
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("File cleanup sweeper started", "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("File cleanup sweeper stopped")
			return
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				s.logger.Error("File cleanup sweep failed", "error", err)
			}
		}
	}
}

// Sweep は1回の掃除を実行します。すでに実行中なら何もしません
// (同じ掃除を二重に走らせない)。
// 編集トランザクションとは排他しない。コミット直前に保存されたファイルは
// まだどのカードからも参照されておらず孤児に見えるため、掃除の間隔は
// 編集1回より十分長く設定すること。
func (s *Sweeper) Sweep(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Debug("Sweep already in progress, skipping")
		return nil
	}
	defer s.running.Store(false)

	referenced, err := s.cardRepo.ListImageNames(ctx, s.db)
	if err != nil {
		return err
	}
	refSet := make(map[string]bool, len(referenced))
	for _, name := range referenced {
		refSet[name] = true
	}

	files, err := s.store.List(ctx)
	if err != nil {
		return err
	}

	removed := 0
	for _, name := range files {
		if refSet[name] {
			continue
		}
		if err := s.store.Remove(ctx, name); err != nil {
			// 1ファイルの失敗で掃除全体は止めない
			s.logger.Warn("Failed to remove orphaned file", "name", name, "error", err)
			continue
		}
		removed++
	}

	s.logger.Info("File cleanup sweep completed", "files", len(files), "removed", removed)
	return nil
}
