// internal/model/study.go
package model

// QuestionFace はカードの片面 (テキストと画像のベース名) を表します
type QuestionFace struct {
	Text  string `json:"text"`
	Image string `json:"image,omitempty"`
}

// QuestionAnswer は学習モードの選択肢
type QuestionAnswer struct {
	QuestionFace
	Correct bool `json:"correct"`
}

// Question は学習モードの1問。Answers はシャッフル済みで、
// 正解1つと他のカードから選んだ誤答が最大3つ含まれます。
type Question struct {
	Question QuestionFace     `json:"question"`
	Answers  []QuestionAnswer `json:"answers"`
}

// 学習モードでどちらの面を選択肢に使うか
const (
	FaceTerm       = "term"
	FaceDefinition = "definition"
)
