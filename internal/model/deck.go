// internal/model/deck.go
package model

import (
	"io"
	"time"

	"github.com/google/uuid"
)

// Deck はカードの集まりを表します。DeckID はクライアントに公開する識別子で、
// 作成時に採番したら変更されません。
type Deck struct {
	DeckID       uuid.UUID  `gorm:"type:uuid;primaryKey" json:"deck_id"`
	OwnerID      *uuid.UUID `gorm:"type:uuid;index" json:"owner_id,omitempty"` // 所有者削除時は NULL
	Name         string     `gorm:"not null" json:"name"`
	Description  string     `gorm:"not null;default:''" json:"description"`
	DateCreated  time.Time  `gorm:"not null" json:"date_created"`
	LastModified time.Time  `gorm:"not null" json:"last_modified"`

	// デッキ削除でカードも削除される
	Cards []Card `gorm:"foreignKey:DeckID;references:DeckID;constraint:OnDelete:CASCADE" json:"cards,omitempty"`
}

func (Deck) TableName() string {
	return "decks"
}

// Card は用語と定義のペアを表します。CardID はサーバ採番の数値IDで、
// 更新ペイロードとの突き合わせに使います。
type Card struct {
	CardID uint      `gorm:"primaryKey" json:"card_id"`
	DeckID uuid.UUID `gorm:"type:uuid;not null;index" json:"-"`
	Term   string    `gorm:"not null" json:"term"`
	// 画像はファイルストア上の保存名 (ベース名のみ) を保持する。空文字は画像なし。
	TermImage       string `gorm:"not null;default:''" json:"term_image"`
	Definition      string `gorm:"not null" json:"definition"`
	DefinitionImage string `gorm:"not null;default:''" json:"definition_image"`
}

func (Card) TableName() string {
	return "cards"
}

// DeckPayload はエディタから送信されるデッキ編集リクエストDTO
type DeckPayload struct {
	Name        string        `json:"name" validate:"required,max=512"`
	Description string        `json:"description" validate:"max=512"`
	Cards       []CardPayload `json:"cards" validate:"required,min=1,dive"`
}

// CardPayload は1枚のカードの編集内容を表します。
// ID が nil なら新規カード、設定されていれば既存カードの更新対象です。
// TermImage / DefinitionImage にはクライアントが把握している現在のベース
// ファイル名が入ります。新規カードでは空文字以外が「新しい画像あり」の
// フラグを兼ね、画像データ自体は並列のアップロードリストで届きます。
type CardPayload struct {
	ID              *uint  `json:"card_id,omitempty"`
	Term            string `json:"term" validate:"required,max=512"`
	TermImage       string `json:"term_image" validate:"max=512"`
	Definition      string `json:"definition" validate:"required,max=512"`
	DefinitionImage string `json:"definition_image" validate:"max=512"`
}

// UploadFile はマルチパートで届いた生のアップロードファイルです。
type UploadFile struct {
	Name    string // クライアント側の元ファイル名
	Content io.Reader
}

// DeckUploads は term / definition 各スロットのアップロード列です。
// カードとの対応付けはインデックスではなく送信順で決まります。
type DeckUploads struct {
	TermImages       []*UploadFile
	DefinitionImages []*UploadFile
}

// DeckPage はデッキ一覧・検索のページングレスポンスDTO
type DeckPage struct {
	Decks    []*Deck `json:"decks"`
	Page     int     `json:"page"`
	PageSize int     `json:"page_size"`
	Total    int64   `json:"total"`
}
