package levelmap

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"sync"

	"go.uber.org/multierr"
)

const indexFile = "levels.json"

// Entry 一个可玩关卡及其地图文件
type Entry struct {
	Name   string `json:"name"`
	MapKey string `json:"mapKey"`
}

// Catalog 按下标取已解析关卡。解析结果缓存共享，
// 调用方只能只读使用
type Catalog struct {
	fsys    fs.FS
	opts    Options
	entries []Entry

	mu    sync.Mutex
	cache map[int]*Level
}

// NewCatalog 从 fsys 读取 levels.json，地图文件位于 maps/<mapKey>.json
func NewCatalog(fsys fs.FS, opts Options) (*Catalog, error) {
	b, err := fs.ReadFile(fsys, indexFile)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", indexFile, err)
	}
	var idx struct {
		Levels []Entry `json:"levels"`
	}
	if err := json.Unmarshal(b, &idx); err != nil {
		return nil, fmt.Errorf("decode %s: %w", indexFile, err)
	}
	if len(idx.Levels) == 0 {
		return nil, fmt.Errorf("%s lists no levels", indexFile)
	}
	return &Catalog{
		fsys:    fsys,
		opts:    opts,
		entries: idx.Levels,
		cache:   make(map[int]*Level),
	}, nil
}

func (c *Catalog) Len() int { return len(c.entries) }

// Entries 按下标顺序返回关卡列表副本
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Level 加载（仅一次）并返回 index 处的关卡
func (c *Catalog) Level(index int) (*Level, error) {
	if index < 0 || index >= len(c.entries) {
		return nil, fmt.Errorf("%w: index %d", ErrUnknownLevel, index)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if lvl, ok := c.cache[index]; ok {
		return lvl, nil
	}
	key := c.entries[index].MapKey
	b, err := fs.ReadFile(c.fsys, path.Join("maps", key+".json"))
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidLevel, key, err)
	}
	lvl, err := Parse(key, b, c.opts)
	if err != nil {
		return nil, err
	}
	c.cache[index] = lvl
	return lvl, nil
}

// Validate 加载全部关卡，一次报告所有失败
func (c *Catalog) Validate() error {
	var errs error
	for i := range c.entries {
		if _, err := c.Level(i); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("level %d: %w", i, err))
		}
	}
	return errs
}
