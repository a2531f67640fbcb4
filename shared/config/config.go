package config

import (
	"os"
	"path"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Public  Public
	Private Private
}

type Public struct {
	DefaultLang          string   `yaml:"default_lang" validate:"required"`
	PoolPaymentMethod    string   `yaml:"pool_payment_method" validate:"required"`
	ActiveInvestStatuses []int    `yaml:"active_invest_statuses" validate:"required,min=1"` // invest statuses counted as real money
	HttpPort             int      `yaml:"http_port" validate:"required"`
	CorsOrigins          []string `yaml:"cors_origins"`
	Https                bool     `yaml:"https"` // enables HSTS
	LogLevel             string   `yaml:"log_level"`
	LogJSON              bool     `yaml:"log_json"`
}

type Pg struct {
	Host     string `yaml:"host" env:"HOST" validate:"required"`
	Port     int    `yaml:"port" env:"PORT" validate:"required"`
	User     string `yaml:"user" env:"USER" validate:"required"`
	Password string `yaml:"password" env:"PASSWORD"`
	Dbname   string `yaml:"dbname" env:"DBNAME" validate:"required"`
}

type Private struct {
	Pg     Pg     `yaml:"pg" envPrefix:"PG_"`
	JwtKey string `yaml:"jwt_key" env:"JWT_KEY" validate:"required"`
}

// EnvPrefix prefixes every environment override, e.g. GOTEO_PG_PASSWORD.
const EnvPrefix = "GOTEO_"

func (s *Config) JwtKey() string {
	return s.Private.JwtKey
}

func mustLoadPath(configPath string, output interface{}) {
	// check if file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}
	configFile, err := os.ReadFile(configPath)

	if err != nil {
		panic("can't read config file")
	}

	err = yaml.Unmarshal(configFile, output)
	if err != nil {
		panic("can't unmarshal config file")
	}
}

func MustLoad(configFolder string) *Config {
	var public Public
	mustLoadPath(path.Join(configFolder, "public.yaml"), &public)

	var private Private
	mustLoadPath(path.Join(configFolder, "private.yaml"), &private)
	if err := env.ParseWithOptions(&private, env.Options{Prefix: EnvPrefix}); err != nil {
		panic("can't read environment overrides: " + err.Error())
	}

	cfg := &Config{public, private}
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(cfg); err != nil {
		panic("invalid config: " + err.Error())
	}
	return cfg
}
