package protocol

// State 每 Tick 的快照。砖块与道具列表从开局累计，
// 迟到或丢帧的客户端也能重建棋盘。Players 以 "1"/"2" 为键
type State struct {
	Type             string                 `json:"type"`
	Tick             int                    `json:"tick"`
	Players          map[string]PlayerState `json:"players"`
	Bombs            []BombState            `json:"bombs"`
	Fires            []FireState            `json:"fires"`
	DestroyedBricks  []DestroyedBrick       `json:"destroyedBricks"`
	RevealedBonuses  []RevealedBonus        `json:"revealedBonuses"`
	CollectedBonuses []CollectedBonus       `json:"collectedBonuses"`
	ExplodedBonuses  []ExplodedBonus        `json:"explodedBonuses"`
}

type PlayerState struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Dir       string  `json:"dir"`
	Alive     bool    `json:"alive"`
	BombPower int     `json:"bombPower"`
	BombsMax  int     `json:"bombsMax"`
}

type BombState struct {
	ID       int  `json:"id"`
	TileX    int  `json:"tileX"`
	TileY    int  `json:"tileY"`
	Timer    int  `json:"timer"`
	OwnerID  int  `json:"ownerId"`
	Exploded bool `json:"exploded"`
}

type FireState struct {
	TileX    int    `json:"tileX"`
	TileY    int    `json:"tileY"`
	FireType string `json:"fireType"`
	FireDir  string `json:"fireDir"`
}

type DestroyedBrick struct {
	TileX     int `json:"tileX"`
	TileY     int `json:"tileY"`
	TileSetID int `json:"tileSetId"`
}

type RevealedBonus struct {
	TileX int    `json:"tileX"`
	TileY int    `json:"tileY"`
	Type  string `json:"type"`
}

type CollectedBonus struct {
	TileX    int `json:"tileX"`
	TileY    int `json:"tileY"`
	PlayerID int `json:"playerId"`
}

type ExplodedBonus struct {
	TileX int `json:"tileX"`
	TileY int `json:"tileY"`
}
