package config

import (
	"flag"
	"fmt"
	"io/ioutil"
	"os"
	"time"

	"gopkg.in/yaml.v2"
	"moff.io/wallet-modal/pkg/errors"
	"moff.io/wallet-modal/pkg/log"
)

const (
	DefaultSyncRateMs    = 1000
	DefaultTickTimeoutMs = 10000
	DefaultWidth         = "90vw"
	DefaultMaxWidth      = "480px"
	DefaultListen        = "127.0.0.1:8470"
	DefaultChoiceKey     = "ETHERS_MODAL_CACHED_PROVIDER"
	DefaultKafkaTopic    = "wallet-modal-events"
)

// DBCredential struct
type DBCredential struct {
	Address  string `yaml:"address"`
	Port     string `yaml:"port"`
	Database string `yaml:"database"`
}

// GetRedisAddress prints redis credential info.
func (c *DBCredential) GetRedisAddress() string {
	return fmt.Sprintf("%v:%v", c.Address, c.Port)
}

// Configuration struct
type Configuration struct {
	LogLevel         string       `yaml:"log_level"`
	SyncRateMs       int          `yaml:"sync_rate_ms"`
	TickTimeoutMs    int          `yaml:"tick_timeout_ms"`
	CacheProvider    bool         `yaml:"cache_provider"`
	Width            string       `yaml:"width"`
	MaxWidth         string       `yaml:"max_width"`
	Chooser          string       `yaml:"chooser"`
	HTTP             HTTP         `yaml:"http"`
	ChoiceStore      ChoiceStore  `yaml:"choice_store"`
	RedisCredential  DBCredential `yaml:"redis"`
	SentryDSN        string       `yaml:"sentry_dsn"`
	LarkAlarmWebhook string       `yaml:"lark_alarm_webhook"`
	KafkaServer      string       `yaml:"kafka_server"`
	KafkaTopic       string       `yaml:"kafka_topic"`
	AwsS3            aws          `yaml:"aws"`
	MoralisAPIKey    string       `yaml:"moralis_api_key"`
	Providers        []Provider   `yaml:"providers"`
}

type HTTP struct {
	Listen string `yaml:"listen"`
}

// ChoiceStore selects where the last used connector id is kept.
type ChoiceStore struct {
	// Kind is memory, file or redis.
	Kind string `yaml:"kind"`
	Path string `yaml:"path"`
	Key  string `yaml:"key"`
}

// Provider declares one connector. Options are handed to the connector
// verbatim.
type Provider struct {
	ID      string                 `yaml:"id"`
	Kind    string                 `yaml:"kind"`
	Display Display                `yaml:"display"`
	Options map[string]interface{} `yaml:"options"`
}

type Display struct {
	Logo        string `yaml:"logo"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// aws conf
type aws struct {
	Bucket awsBucket `yaml:"bucket"`
}

type awsBucket struct {
	Name   string `yaml:"name"`
	Region string `yaml:"region"`
}

func (c *Configuration) BucketName() string {
	return c.AwsS3.Bucket.Name
}

func (c *Configuration) BucketRegion() string {
	return c.AwsS3.Bucket.Region
}

func (c *Configuration) SyncRate() time.Duration {
	return time.Duration(c.SyncRateMs) * time.Millisecond
}

func (c *Configuration) TickTimeout() time.Duration {
	return time.Duration(c.TickTimeoutMs) * time.Millisecond
}

func (c *Configuration) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.SyncRateMs <= 0 {
		c.SyncRateMs = DefaultSyncRateMs
	}
	if c.TickTimeoutMs <= 0 {
		c.TickTimeoutMs = DefaultTickTimeoutMs
	}
	if c.Width == "" {
		c.Width = DefaultWidth
	}
	if c.MaxWidth == "" {
		c.MaxWidth = DefaultMaxWidth
	}
	if c.Chooser == "" {
		c.Chooser = "terminal"
	}
	if c.HTTP.Listen == "" {
		c.HTTP.Listen = DefaultListen
	}
	if c.ChoiceStore.Kind == "" {
		c.ChoiceStore.Kind = "memory"
	}
	if c.ChoiceStore.Key == "" {
		c.ChoiceStore.Key = DefaultChoiceKey
	}
	if c.KafkaTopic == "" {
		c.KafkaTopic = DefaultKafkaTopic
	}
}

// Parse decodes a yaml document and applies defaults.
func Parse(dat []byte) (*Configuration, error) {
	t := Configuration{}
	if err := yaml.Unmarshal(dat, &t); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	t.applyDefaults()
	return &t, nil
}

// Load reads the yaml file at path.
func Load(path string) (*Configuration, error) {
	log.Info("Starting to load configuration file ...")
	dat, err := ioutil.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Errorf("file %s does not exist", path)
		}
		return nil, errors.Wrap(err, "read config")
	}
	return Parse(dat)
}

var Global *Configuration

// Read reads configuration information from yml.
func Read() {
	configFilePath := flag.String("config-path", "config.yml", "The path to the configuration file")
	flag.Parse()
	log.Infof("Loading configuration file from %s", *configFilePath)
	globalConfig, err := Load(*configFilePath)
	if err != nil {
		log.Fatal(err)
	}
	Global = globalConfig
}
