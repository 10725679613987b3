package levelmap

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"math"
	"sort"
	"strings"

	"go.uber.org/multierr"
)

// gidMask 去掉原始图块编号上的 Tiled 翻转/旋转标记
const gidMask = 0x1FFFFFFF

const (
	groundLayerName  = "ground"
	objectsLayerName = "objects"
	spawnObjectType  = "player"
)

// Options 限定 Parse 接受的地图，尺寸为 0 表示不限
type Options struct {
	Width  int
	Height int
}

// DefaultOptions 固定竞技场尺寸
func DefaultOptions() Options {
	return Options{Width: DefaultWidth, Height: DefaultHeight}
}

type tiledMap struct {
	Width      int            `json:"width"`
	Height     int            `json:"height"`
	TileWidth  int            `json:"tilewidth"`
	TileHeight int            `json:"tileheight"`
	Tilesets   []tiledTileset `json:"tilesets"`
	Layers     []tiledLayer   `json:"layers"`
}

type tiledTileset struct {
	FirstGID  uint32      `json:"firstgid"`
	TileCount uint32      `json:"tilecount"`
	Tiles     []tiledTile `json:"tiles"`
}

type tiledTile struct {
	ID         uint32          `json:"id"`
	Properties []tiledProperty `json:"properties"`
}

type tiledProperty struct {
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value"`
}

type tiledLayer struct {
	Name        string          `json:"name"`
	Type        string          `json:"type"`
	Encoding    string          `json:"encoding"`
	Compression string          `json:"compression"`
	Data        json.RawMessage `json:"data"`
	Objects     []tiledObject   `json:"objects"`
}

type tiledObject struct {
	Name string  `json:"name"`
	Type string  `json:"type"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// tileProps 图块集中单个图块解码后的属性
type tileProps struct {
	Name         string
	Collides     bool
	Destructible bool
	Region       int
}

func (p tileProps) cell() Cell {
	c := Cell{Kind: Ground, Region: p.Region}
	switch {
	case p.Name == "wall":
		c.Kind = Wall
	case p.Name == "bricks" || p.Name == "brick" || p.Destructible:
		c.Kind = Brick
	case p.Collides:
		c.Kind = Wall
	}
	if c.Region == 0 {
		c.Region = 1
	}
	return c
}

// Parse 解析 Tiled JSON 地图，发现的所有问题都汇总在
// 返回的错误中，该错误包装 ErrInvalidLevel
func Parse(key string, data []byte, opts Options) (*Level, error) {
	var tm tiledMap
	if err := json.Unmarshal(data, &tm); err != nil {
		return nil, invalidf(key, "decode: %v", err)
	}

	var errs error
	if tm.Width <= 0 || tm.Height <= 0 {
		return nil, invalidf(key, "bad dimensions %dx%d", tm.Width, tm.Height)
	}
	if opts.Width > 0 && tm.Width != opts.Width {
		errs = multierr.Append(errs, invalidf(key, "width %d, want %d", tm.Width, opts.Width))
	}
	if opts.Height > 0 && tm.Height != opts.Height {
		errs = multierr.Append(errs, invalidf(key, "height %d, want %d", tm.Height, opts.Height))
	}
	tileW := tm.TileWidth
	if tileW <= 0 {
		tileW = TileSize
	}
	tileH := tm.TileHeight
	if tileH <= 0 {
		tileH = TileSize
	}

	props, ranges, err := propertyTable(key, tm.Tilesets)
	errs = multierr.Append(errs, err)

	var ground, objects *tiledLayer
	for i := range tm.Layers {
		switch tm.Layers[i].Name {
		case groundLayerName:
			ground = &tm.Layers[i]
		case objectsLayerName:
			objects = &tm.Layers[i]
		}
	}
	if ground == nil {
		return nil, multierr.Append(errs, invalidf(key, "missing %q layer", groundLayerName))
	}

	gids, err := layerData(key, ground)
	if err != nil {
		return nil, multierr.Append(errs, err)
	}
	if len(gids) != tm.Width*tm.Height {
		return nil, multierr.Append(errs, invalidf(key, "layer has %d tiles, want %d", len(gids), tm.Width*tm.Height))
	}

	lvl := &Level{Key: key, Width: tm.Width, Height: tm.Height, Cells: make([]Cell, len(gids))}
	for i, raw := range gids {
		gid := raw & gidMask
		if gid == 0 {
			lvl.Cells[i] = Cell{Kind: Ground, Region: 1}
			continue
		}
		if p, ok := props[gid]; ok {
			lvl.Cells[i] = p.cell()
			continue
		}
		if !ranges.contains(gid) {
			errs = multierr.Append(errs, invalidf(key, "tile id %d at (%d,%d) not in any tileset", gid, i%tm.Width, i/tm.Width))
			continue
		}
		lvl.Cells[i] = Cell{Kind: Ground, Region: 1}
	}

	if objects != nil {
		for _, o := range objects.Objects {
			if o.Type != spawnObjectType {
				continue
			}
			lvl.Spawns = append(lvl.Spawns, Spawn{
				Name: o.Name,
				X:    int(math.Round(o.X / float64(tileW))),
				Y:    int(math.Round(o.Y / float64(tileH))),
			})
		}
	}
	errs = multierr.Append(errs, finishSpawns(lvl))

	if errs != nil {
		return nil, errs
	}
	return lvl, nil
}

// finishSpawns 按名称排序出生点，并检查能否站人
func finishSpawns(lvl *Level) error {
	sort.SliceStable(lvl.Spawns, func(i, j int) bool { return lvl.Spawns[i].Name < lvl.Spawns[j].Name })
	var errs error
	if len(lvl.Spawns) < 2 {
		errs = multierr.Append(errs, invalidf(lvl.Key, "need 2 player spawns, found %d", len(lvl.Spawns)))
	}
	for _, s := range lvl.Spawns {
		c, ok := lvl.Cell(s.X, s.Y)
		if !ok {
			errs = multierr.Append(errs, invalidf(lvl.Key, "spawn %q at (%d,%d) outside grid", s.Name, s.X, s.Y))
			continue
		}
		if c.Kind.BlocksMovement() {
			errs = multierr.Append(errs, invalidf(lvl.Key, "spawn %q at (%d,%d) on %s", s.Name, s.X, s.Y, c.Kind))
		}
	}
	return errs
}

type gidRange struct{ first, end uint32 }

type gidRanges []gidRange

func (rs gidRanges) contains(gid uint32) bool {
	for _, r := range rs {
		if gid >= r.first && gid < r.end {
			return true
		}
	}
	return false
}

func propertyTable(key string, sets []tiledTileset) (map[uint32]tileProps, gidRanges, error) {
	if len(sets) == 0 {
		return nil, nil, invalidf(key, "no tilesets")
	}
	props := make(map[uint32]tileProps)
	ranges := make(gidRanges, 0, len(sets))
	var errs error
	for _, ts := range sets {
		if ts.FirstGID == 0 {
			errs = multierr.Append(errs, invalidf(key, "tileset with firstgid 0"))
			continue
		}
		end := ts.FirstGID + ts.TileCount
		for _, t := range ts.Tiles {
			var p tileProps
			for _, prop := range t.Properties {
				var err error
				switch prop.Name {
				case "name":
					err = json.Unmarshal(prop.Value, &p.Name)
				case "collides":
					err = json.Unmarshal(prop.Value, &p.Collides)
				case "destructible":
					err = json.Unmarshal(prop.Value, &p.Destructible)
				case "tile_set_id":
					err = json.Unmarshal(prop.Value, &p.Region)
				}
				if err != nil {
					errs = multierr.Append(errs, invalidf(key, "tile %d property %q: %v", t.ID, prop.Name, err))
				}
			}
			gid := ts.FirstGID + t.ID
			props[gid] = p
			if gid+1 > end {
				end = gid + 1
			}
		}
		ranges = append(ranges, gidRange{first: ts.FirstGID, end: end})
	}
	return props, ranges, errs
}

// layerData 解码图层数据，支持 base64 小端 uint32
// 与普通 JSON 数组两种格式
func layerData(key string, l *tiledLayer) ([]uint32, error) {
	if l.Compression != "" {
		return nil, invalidf(key, "compressed layer data (%s) not supported", l.Compression)
	}
	raw := bytes.TrimSpace(l.Data)
	if len(raw) == 0 {
		return nil, invalidf(key, "layer %q has no data", l.Name)
	}
	if raw[0] == '[' {
		var ids []uint32
		if err := json.Unmarshal(raw, &ids); err != nil {
			return nil, invalidf(key, "layer %q: %v", l.Name, err)
		}
		return ids, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, invalidf(key, "layer %q: %v", l.Name, err)
	}
	buf, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, invalidf(key, "layer %q base64: %v", l.Name, err)
	}
	if len(buf)%4 != 0 {
		return nil, invalidf(key, "layer %q: %d bytes is not a whole number of tile ids", l.Name, len(buf))
	}
	ids := make([]uint32, len(buf)/4)
	for i := range ids {
		ids[i] = binary.LittleEndian.Uint32(buf[i*4:])
	}
	return ids, nil
}
