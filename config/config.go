// Package config 依次从可选的 .env 文件、环境变量、
// 命令行参数解析进程配置，后者优先
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "BOMBARENA_"

type Config struct {
	Addr      string
	LogFile   string
	MapsDir   string // 为空使用内嵌关卡
	StaticDir string

	TickRate    int
	SettleDelay time.Duration
	RoundDelay  time.Duration
	RoomLinger  time.Duration
	Seed        int64 // 0 表示每个房间按时钟取种子
}

func Default() Config {
	return Config{
		Addr:        ":3000",
		LogFile:     "app.log",
		StaticDir:   "dist",
		TickRate:    20,
		SettleDelay: 500 * time.Millisecond,
		RoundDelay:  4000 * time.Millisecond,
		RoomLinger:  30 * time.Second,
	}
}

// Load 先读取 envFile（不存在不算错误），再读 BOMBARENA_* 环境变量，
// 最后是 args
func Load(envFile string, args []string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	cfg := Default()
	if err := cfg.fromEnv(os.Getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.fromFlags(args); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) fromEnv(getenv func(string) string) error {
	str := func(name string, dst *string) {
		if v := getenv(envPrefix + name); v != "" {
			*dst = v
		}
	}
	str("ADDR", &c.Addr)
	str("LOG_FILE", &c.LogFile)
	str("MAPS_DIR", &c.MapsDir)
	str("STATIC_DIR", &c.StaticDir)

	if v := getenv(envPrefix + "TICK_RATE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sTICK_RATE: %w", envPrefix, err)
		}
		c.TickRate = n
	}
	if v := getenv(envPrefix + "SEED"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%sSEED: %w", envPrefix, err)
		}
		c.Seed = n
	}
	for name, dst := range map[string]*time.Duration{
		"SETTLE_DELAY": &c.SettleDelay,
		"ROUND_DELAY":  &c.RoundDelay,
		"ROOM_LINGER":  &c.RoomLinger,
	} {
		v := getenv(envPrefix + name)
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, name, err)
		}
		*dst = d
	}
	return nil
}

func (c *Config) fromFlags(args []string) error {
	fs := flag.NewFlagSet("bombarena", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&c.Addr, "addr", c.Addr, "server listen address, e.g. :3000")
	fs.StringVar(&c.LogFile, "log", c.LogFile, "log file path")
	fs.StringVar(&c.MapsDir, "maps", c.MapsDir, "directory holding levels.json and maps/; embedded levels when empty")
	fs.StringVar(&c.StaticDir, "static", c.StaticDir, "client bundle directory")
	fs.IntVar(&c.TickRate, "tick-rate", c.TickRate, "simulation ticks per second")
	fs.DurationVar(&c.SettleDelay, "settle-delay", c.SettleDelay, "grace period before a round is scored")
	fs.DurationVar(&c.RoundDelay, "round-delay", c.RoundDelay, "pause between rounds")
	fs.DurationVar(&c.RoomLinger, "room-linger", c.RoomLinger, "how long a finished room stays listed")
	fs.Int64Var(&c.Seed, "seed", c.Seed, "bonus placement seed, 0 for random")
	return fs.Parse(args)
}

func (c Config) Validate() error {
	if c.TickRate <= 0 {
		return fmt.Errorf("tick rate must be positive, got %d", c.TickRate)
	}
	if c.SettleDelay < 0 || c.RoundDelay < 0 || c.RoomLinger < 0 {
		return errors.New("delays must not be negative")
	}
	if c.Addr == "" {
		return errors.New("listen address is empty")
	}
	return nil
}
