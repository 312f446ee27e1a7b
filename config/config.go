package config

import (
	"log"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type HTTPServer struct {
	Addr         string        `yaml:"addr" env:"MANGALIB_ADDR" env-default:":8080"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"MANGALIB_READ_TIMEOUT" env-default:"15s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"MANGALIB_WRITE_TIMEOUT" env-default:"60s"`
}

type Storage struct {
	// Backend is "memory" or "sqlite". Memory keeps nothing across restarts.
	Backend    string `yaml:"backend" env:"MANGALIB_STORE" env-default:"memory"`
	SQLitePath string `yaml:"sqlite_path" env:"MANGALIB_SQLITE_PATH" env-default:"data/mangalib.db"`
}

type Config struct {
	LogLevel string     `yaml:"log_level" env:"LOG_LEVEL" env-default:"INFO"`
	HTTP     HTTPServer `yaml:"http"`
	Storage  Storage    `yaml:"storage"`

	// SourceTimeout bounds every outbound fetch to an upstream source.
	SourceTimeout time.Duration `yaml:"source_timeout" env:"MANGALIB_SOURCE_TIMEOUT" env-default:"10s"`
}

// MustLoad reads config from the given yaml file, or from the environment
// only when the path is empty.
func MustLoad(configPath string) Config {
	var cfg Config

	if configPath == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			log.Fatalf("cannot read config from env: %s", err)
		}
		return cfg
	}

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config %q: %s", configPath, err)
	}

	return cfg
}
