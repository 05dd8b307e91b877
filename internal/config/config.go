package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

type Config struct {
	App struct {
		Env      string
		Timezone string
	} `mapstructure:"app"`

	Telegram struct {
		Token       string
		AdminChatID int64  `mapstructure:"admin_chat_id"`
		Mode        string // polling | webhook
		WebhookPath string `mapstructure:"webhook_path"`
		PollTimeout int    `mapstructure:"poll_timeout"`
		Workers     int64
	} `mapstructure:"telegram"`

	HTTP struct {
		Addr      string
		PublicURL string `mapstructure:"public_url"`
	} `mapstructure:"http"`

	Postgres struct {
		DSN string
	} `mapstructure:"postgres"`

	Metrics struct {
		Enabled bool
	} `mapstructure:"metrics"`

	Odoo struct {
		URL      string
		DB       string
		Username string
		Password string
	} `mapstructure:"odoo"`

	Gemini struct {
		APIKey string `mapstructure:"api_key"`
		Model  string
	} `mapstructure:"gemini"`

	WebApp struct {
		Secret string
		TTL    time.Duration
	} `mapstructure:"webapp"`

	Delivery struct {
		// ForwardOnly запрещает откат статуса доставки назад
		ForwardOnly bool `mapstructure:"forward_only"`
	} `mapstructure:"delivery"`

	Outbound struct {
		Timeout time.Duration
	} `mapstructure:"outbound"`

	Export struct {
		// PDFFont путь к TTF с кириллицей
		PDFFont string `mapstructure:"pdf_font"`
	} `mapstructure:"export"`
}

const (
	ModePolling = "polling"
	ModeWebhook = "webhook"
)

func Load(path string) (Config, error) {
	// .env необязателен: в проде переменные приходят из окружения
	_ = gotenv.Load()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	var c Config
	if err := v.ReadInConfig(); err != nil {
		return c, err
	}
	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "prod")
	v.SetDefault("app.timezone", "Asia/Tashkent")
	v.SetDefault("telegram.mode", ModePolling)
	v.SetDefault("telegram.webhook_path", "/telegram/webhook")
	v.SetDefault("telegram.poll_timeout", 30)
	v.SetDefault("telegram.workers", 8)
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("gemini.model", "gemini-flash-latest")
	v.SetDefault("webapp.ttl", 30*time.Minute)
	v.SetDefault("outbound.timeout", 30*time.Second)

	// без дефолтов AutomaticEnv не видит вложенные ключи при Unmarshal
	for _, k := range []string{
		"telegram.token", "telegram.admin_chat_id", "postgres.dsn",
		"odoo.url", "odoo.db", "odoo.username", "odoo.password",
		"gemini.api_key", "webapp.secret", "delivery.forward_only",
		"http.public_url", "export.pdf_font",
	} {
		_ = v.BindEnv(k)
	}
}

func (c Config) Validate() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("telegram.token is empty")
	}
	if c.Postgres.DSN == "" {
		return fmt.Errorf("postgres.dsn is empty")
	}
	switch c.Telegram.Mode {
	case ModePolling, ModeWebhook:
	default:
		return fmt.Errorf("telegram.mode: unknown mode %q", c.Telegram.Mode)
	}
	if c.Telegram.Workers <= 0 {
		return fmt.Errorf("telegram.workers must be > 0")
	}
	return nil
}

// Location таймзона проекта, «сегодня» считается в ней
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
