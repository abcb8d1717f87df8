// internal/service/binder.go
package service

import (
	"context"
	"fmt"

	"quizcards/internal/model"
	"quizcards/internal/storage"
)

// uploadBinder は1つの画像スロット (term / definition) のアップロード列を
// 走査するカーソルです。クライアントはカードの送信順と同じ相対順で
// ファイルを送ってくる前提なので、「新しい画像あり」のカードに出会う
// たびに先頭から1つずつ消費すれば正しいカードに割り当たります。
type uploadBinder struct {
	slot  string
	store storage.FileStore
	files []*model.UploadFile
	pos   int
}

func newUploadBinder(store storage.FileStore, slot string, files []*model.UploadFile) *uploadBinder {
	return &uploadBinder{
		slot:  slot,
		store: store,
		files: files,
	}
}

// take は次のファイルを消費し、衝突しない保存名を付けてファイルストアに
// 書き込み、その保存名を返します。リストが尽きていたら件数不一致として
// エラーを返します (誤ったカードへの割り当てを防ぐため推測はしない)。
func (b *uploadBinder) take(ctx context.Context) (string, error) {
	if b.pos >= len(b.files) {
		return "", model.NewAppError(
			"UPLOAD_COUNT_MISMATCH",
			fmt.Sprintf("%s の画像ファイル数がカードの指定より少ないです。", b.slot),
			b.slot,
			model.ErrUploadMismatch,
		)
	}
	file := b.files[b.pos]
	b.pos++

	name, err := storage.UniqueName(file.Name)
	if err != nil {
		return "", model.NewAppError("INTERNAL_SERVER_ERROR", "保存名の生成に失敗しました。", b.slot, model.ErrInternalServer)
	}
	// カードの行を書き込む前にファイル保存を完了させる。失敗したら
	// トランザクションごと中断する (宙ぶらりんな参照を作らない)。
	if err := b.store.Save(ctx, name, file.Content); err != nil {
		return "", model.NewAppError("INTERNAL_SERVER_ERROR", "画像の保存に失敗しました。", b.slot, model.ErrInternalServer)
	}
	return name, nil
}

// drained は全ファイルが消費されたことを確認します。余りがあれば
// クライアント側の指定と件数が合っていないので失敗させます。
func (b *uploadBinder) drained() error {
	if b.pos != len(b.files) {
		return model.NewAppError(
			"UPLOAD_COUNT_MISMATCH",
			fmt.Sprintf("%s の画像ファイル数がカードの指定より多いです。", b.slot),
			b.slot,
			model.ErrUploadMismatch,
		)
	}
	return nil
}

// deckBinders は term / definition 両スロットのバインダをまとめたものです
type deckBinders struct {
	term       *uploadBinder
	definition *uploadBinder
}

func newDeckBinders(store storage.FileStore, uploads *model.DeckUploads) *deckBinders {
	if uploads == nil {
		uploads = &model.DeckUploads{}
	}
	return &deckBinders{
		term:       newUploadBinder(store, "term-image", uploads.TermImages),
		definition: newUploadBinder(store, "definition-image", uploads.DefinitionImages),
	}
}

func (b *deckBinders) drained() error {
	if err := b.term.drained(); err != nil {
		return err
	}
	return b.definition.drained()
}
