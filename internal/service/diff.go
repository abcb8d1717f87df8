// internal/service/diff.go
package service

// fieldDiff は1カラム分の比較対象です。エンティティごとに対象カラムを
// 明示的に列挙して使います。リフレクションでの総当たり比較はしない
// (カラム名の変更をコンパイル時に検出できるようにするため)。
type fieldDiff struct {
	Column string
	Old    string
	New    string
}

// collectDiffs は値が変わったカラムだけを GORM の Updates 用マップに積みます。
// 変更がなければ空のマップを返し、呼び出し側は書き込みをスキップします。
func collectDiffs(diffs ...fieldDiff) map[string]interface{} {
	updates := make(map[string]interface{})
	for _, d := range diffs {
		if d.Old != d.New {
			updates[d.Column] = d.New
		}
	}
	return updates
}
