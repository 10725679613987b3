package levelmap

import "fmt"

// FromRows 由文本布局构造关卡，每行一个字符串：
//
//	W 墙，B 砖，G 或 . 空地，1..9 空地上的玩家出生点
//
// 出生点命名为 "player<数字>"，尺寸不限
func FromRows(key string, rows []string) (*Level, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, invalidf(key, "empty layout")
	}
	w, h := len(rows[0]), len(rows)
	lvl := &Level{Key: key, Width: w, Height: h, Cells: make([]Cell, 0, w*h)}
	for y, row := range rows {
		if len(row) != w {
			return nil, invalidf(key, "row %d has %d columns, want %d", y, len(row), w)
		}
		for x, ch := range row {
			c := Cell{Kind: Ground, Region: 1}
			switch {
			case ch == 'W':
				c.Kind = Wall
			case ch == 'B':
				c.Kind = Brick
			case ch == 'G' || ch == '.':
			case ch >= '1' && ch <= '9':
				lvl.Spawns = append(lvl.Spawns, Spawn{Name: fmt.Sprintf("player%c", ch), X: x, Y: y})
			default:
				return nil, invalidf(key, "unknown tile %q at (%d,%d)", ch, x, y)
			}
			lvl.Cells = append(lvl.Cells, c)
		}
	}
	if err := finishSpawns(lvl); err != nil {
		return nil, err
	}
	return lvl, nil
}
