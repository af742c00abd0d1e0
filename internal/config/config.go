package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Mailbox struct {
	TokenFile         string `yaml:"token_file"`
	PollIntervalSecs  int    `yaml:"poll_interval_seconds"`
	MaxResults        int64  `yaml:"max_results"`
	ProjectID         string `yaml:"project_id"`
	TopicName         string `yaml:"topic_name"`
	SubscriptionName  string `yaml:"subscription_name"`
	ServiceAccount    string `yaml:"service_account_file"`
	WatchRenewMinutes int    `yaml:"watch_renew_minutes"`
	QueueDepth        int    `yaml:"queue_depth"`
}

type Forwarder struct {
	WebhookURL  string `yaml:"webhook_url"`
	TimeoutSecs int    `yaml:"timeout_seconds"`
}

type Broker struct {
	APIKey             string `yaml:"api_key"`
	APISecret          string `yaml:"api_secret"`
	BaseURL            string `yaml:"base_url"`
	TimeoutSecs        int    `yaml:"timeout_seconds"`
	RateLimitPerMinute int    `yaml:"rate_limit_per_minute"`
	OrderQty           int    `yaml:"order_qty"`
}

type Telegram struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
}

type DB struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int32  `yaml:"max_conns"`
}

type Server struct {
	ListenAddr string `yaml:"listen_addr"`
}

type Dashboard struct {
	ListenAddr      string `yaml:"listen_addr"`
	AccountURL      string `yaml:"account_url"`
	RefreshSecs     int    `yaml:"refresh_seconds"`
	DefaultStrategy string `yaml:"default_strategy"`
}

type Root struct {
	Mailbox   Mailbox   `yaml:"mailbox"`
	Forwarder Forwarder `yaml:"forwarder"`
	Broker    Broker    `yaml:"broker"`
	Telegram  Telegram  `yaml:"telegram"`
	DB        DB        `yaml:"db"`
	Server    Server    `yaml:"server"`
	Dashboard Dashboard `yaml:"dashboard"`
}

func Load(path string) (Root, error) {
	var c Root
	b, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, err
	}
	applyDefaults(&c)
	applyEnv(&c)
	return c, nil
}

func applyDefaults(c *Root) {
	if c.Mailbox.TokenFile == "" {
		c.Mailbox.TokenFile = "token.json"
	}
	if c.Mailbox.PollIntervalSecs == 0 {
		c.Mailbox.PollIntervalSecs = 30
	}
	if c.Mailbox.MaxResults == 0 {
		c.Mailbox.MaxResults = 5
	}
	if c.Mailbox.WatchRenewMinutes == 0 {
		c.Mailbox.WatchRenewMinutes = 50
	}
	if c.Mailbox.QueueDepth == 0 {
		c.Mailbox.QueueDepth = 64
	}
	if c.Forwarder.TimeoutSecs == 0 {
		c.Forwarder.TimeoutSecs = 10
	}
	if c.Broker.BaseURL == "" {
		c.Broker.BaseURL = "https://paper-api.alpaca.markets"
	}
	if c.Broker.TimeoutSecs == 0 {
		c.Broker.TimeoutSecs = 10
	}
	if c.Broker.RateLimitPerMinute == 0 {
		c.Broker.RateLimitPerMinute = 200
	}
	if c.Broker.OrderQty == 0 {
		c.Broker.OrderQty = 1
	}
	if c.DB.Port == 0 {
		c.DB.Port = 5432
	}
	if c.DB.SSLMode == "" {
		c.DB.SSLMode = "prefer"
	}
	if c.DB.MaxConns == 0 {
		c.DB.MaxConns = 4
	}
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = ":5000"
	}
	if c.Dashboard.ListenAddr == "" {
		c.Dashboard.ListenAddr = ":8080"
	}
	if c.Dashboard.AccountURL == "" {
		c.Dashboard.AccountURL = "http://localhost:5000/account"
	}
	if c.Dashboard.RefreshSecs == 0 {
		c.Dashboard.RefreshSecs = 10
	}
}

// applyEnv lets deployment environments override anything secret without
// putting credentials in the config file.
func applyEnv(c *Root) {
	if v := os.Getenv("BOT_WEBHOOK_URL"); v != "" {
		c.Forwarder.WebhookURL = v
	}
	if v := os.Getenv("PROJECT_ID"); v != "" {
		c.Mailbox.ProjectID = v
	}
	if v := os.Getenv("SERVICE_ACCOUNT_FILE"); v != "" {
		c.Mailbox.ServiceAccount = v
	}
	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		c.Broker.APIKey = v
	}
	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		c.Broker.APISecret = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		c.DB.Password = v
	}
}
