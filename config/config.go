package config

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"matchbook/domain/matching"
	"matchbook/domain/types"
)

var configFlag = flag.String("config", "", "path to config file")

type Log struct {
	Level       string `yaml:"level" env:"LOG_LEVEL" env-default:"info" validate:"oneof=debug info warn error"`
	Development bool   `yaml:"development" env:"LOG_DEVELOPMENT"`
}

type Admin struct {
	Addr string `yaml:"address" env:"ADMIN_ADDR" env-default:":9090" validate:"required"`
}

type Outbox struct {
	Dir          string        `yaml:"dir" env:"OUTBOX_DIR" env-default:"./data/outbox" validate:"required"`
	ScanInterval time.Duration `yaml:"scan_interval" env:"OUTBOX_SCAN_INTERVAL" env-default:"250ms" validate:"gt=0"`
}

type Kafka struct {
	Enabled  bool     `yaml:"enabled" env:"KAFKA_ENABLED"`
	Driver   string   `yaml:"driver" env:"KAFKA_DRIVER" env-default:"kafka-go" validate:"oneof=kafka-go sarama"`
	Brokers  []string `yaml:"brokers" env:"KAFKA_BROKERS" env-separator:"," validate:"required_if=Enabled true"`
	Topic    string   `yaml:"topic" env:"KAFKA_TOPIC" env-default:"matchbook.events" validate:"required_if=Enabled true"`
	ClientID string   `yaml:"client_id" env:"KAFKA_CLIENT_ID" env-default:"matchbook"`
}

type Engine struct {
	SelfMatch      string        `yaml:"self_match" env:"ENGINE_SELF_MATCH" env-default:"MATCH" validate:"oneof=MATCH"`
	ExpiryInterval time.Duration `yaml:"expiry_interval" env:"ENGINE_EXPIRY_INTERVAL" env-default:"1s"`
	QueueSize      int           `yaml:"queue_size" env:"ENGINE_QUEUE_SIZE" env-default:"1024" validate:"gt=0"`
}

type Instrument struct {
	Symbol   string `yaml:"symbol" validate:"required"`
	StepSize string `yaml:"step_size" validate:"required,numeric"`
}

type Fee struct {
	ID    int16  `yaml:"id"`
	Maker string `yaml:"maker" validate:"required,numeric"`
	Taker string `yaml:"taker" validate:"required,numeric"`
}

type Config struct {
	Env         string       `yaml:"env" env:"ENV" env-default:"production" validate:"oneof=development production test"`
	Log         Log          `yaml:"log"`
	Admin       Admin        `yaml:"admin"`
	Outbox      Outbox       `yaml:"outbox"`
	Kafka       Kafka        `yaml:"kafka"`
	Engine      Engine       `yaml:"engine"`
	Instruments []Instrument `yaml:"instruments" validate:"required,min=1,unique=Symbol,dive"`
	Fees        []Fee        `yaml:"fees" validate:"unique=ID,dive"`
}

// Step parses the instrument's step size; it must be positive.
func (i Instrument) Step() (types.Quantity, error) {
	d, err := decimal.NewFromString(i.StepSize)
	if err != nil {
		return types.Quantity{}, errors.Wrapf(err, "instrument %s: step_size", i.Symbol)
	}
	if !d.IsPositive() {
		return types.Quantity{}, errors.Newf("instrument %s: step_size must be positive", i.Symbol)
	}
	return types.NewQuantity(d), nil
}

// Rates parses the maker and taker rates.
func (f Fee) Rates() (maker, taker decimal.Decimal, err error) {
	if maker, err = decimal.NewFromString(f.Maker); err != nil {
		return maker, taker, errors.Wrapf(err, "fee %d: maker", f.ID)
	}
	if taker, err = decimal.NewFromString(f.Taker); err != nil {
		return maker, taker, errors.Wrapf(err, "fee %d: taker", f.ID)
	}
	return maker, taker, nil
}

func (c *Config) SelfMatchAction() matching.SelfMatchAction {
	a, _ := matching.ParseSelfMatchAction(c.Engine.SelfMatch)
	return a
}

// Load reads path, applies env overrides and validates the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(err, "invalid config")
	}
	if _, ok := matching.ParseSelfMatchAction(c.Engine.SelfMatch); !ok {
		return errors.Newf("invalid config: self_match %q", c.Engine.SelfMatch)
	}
	for _, in := range c.Instruments {
		if _, err := in.Step(); err != nil {
			return errors.Wrap(err, "invalid config")
		}
	}
	for _, f := range c.Fees {
		if _, _, err := f.Rates(); err != nil {
			return errors.Wrap(err, "invalid config")
		}
	}
	return nil
}

func MustLoad() *Config {
	// a missing .env is fine; the environment may be set elsewhere
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		if !flag.Parsed() {
			flag.Parse()
		}
		configPath = *configFlag
	}
	if configPath == "" {
		log.Fatal("Config path is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("Config file does not exist: %s", configPath)
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("Unable to load config: %s", err.Error())
	}
	return cfg
}
