package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App struct {
		Env      string
		Timezone string
	} `mapstructure:"app"`

	Telegram struct {
		Token       string
		AdminChatID int64 `mapstructure:"admin_chat_id"`
	} `mapstructure:"telegram"`

	HTTP struct {
		Addr string
	} `mapstructure:"http"`

	Postgres struct {
		DSN string
	} `mapstructure:"postgres"`

	Metrics struct {
		Enabled bool
	} `mapstructure:"metrics"`

	Payment struct {
		CardNumber  string `mapstructure:"card_number"`
		CardName    string `mapstructure:"card_name"`
		DeadlineMin int    `mapstructure:"deadline_min"`
	} `mapstructure:"payment"`

	Support struct {
		Username string
	} `mapstructure:"support"`

	Xray struct {
		ConfigPath  string `mapstructure:"config_path"`
		ServiceName string `mapstructure:"service_name"`
		Bin         string `mapstructure:"bin"`
		APIAddr     string `mapstructure:"api_addr"`
		Domain      string `mapstructure:"domain"`
		Port        int    `mapstructure:"port"`
		WSPath      string `mapstructure:"ws_path"`
		Security    string `mapstructure:"security"` // none | tls | reality
		InboundTag  string `mapstructure:"inbound_tag"`
	} `mapstructure:"xray"`

	Enforce struct {
		ExpireInterval time.Duration `mapstructure:"expire_interval"`
		QuotaInterval  time.Duration `mapstructure:"quota_interval"`
		CallTimeout    time.Duration `mapstructure:"call_timeout"`
	} `mapstructure:"enforce"`

	Trial struct {
		QuotaMB int `mapstructure:"quota_mb"`
		Hours   int `mapstructure:"hours"`
		Devices int `mapstructure:"devices"`
	} `mapstructure:"trial"`
}

func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()

	// Дефолты совпадают со стандартной установкой Xray.
	v.SetDefault("xray.config_path", "/usr/local/etc/xray/config.json")
	v.SetDefault("xray.service_name", "xray")
	v.SetDefault("xray.bin", "/usr/local/bin/xray")
	v.SetDefault("xray.api_addr", "127.0.0.1:10085")
	v.SetDefault("xray.ws_path", "/ws8081")
	v.SetDefault("xray.port", 8081)
	v.SetDefault("xray.security", "none")
	v.SetDefault("xray.inbound_tag", "vless-ws")
	v.SetDefault("enforce.expire_interval", "3m")
	v.SetDefault("enforce.quota_interval", "2m")
	v.SetDefault("enforce.call_timeout", "15s")
	v.SetDefault("payment.deadline_min", 60)
	v.SetDefault("trial.quota_mb", 300)
	v.SetDefault("trial.hours", 24)
	v.SetDefault("trial.devices", 1)

	var c Config
	if err := v.ReadInConfig(); err != nil {
		return c, err
	}
	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	return c, nil
}
