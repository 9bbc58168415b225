package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"CaseCollector/internal/domain"
	"CaseCollector/internal/filter"
	"CaseCollector/internal/keywords"
)

const (
	defaultTimezone       = "UTC"
	configPathEnv         = "CASE_COLLECTOR_CONFIG"
	databaseDSNEnv        = "DATABASE_DSN"
	naverClientIDEnv      = "NAVER_CLIENT_ID"
	naverClientSecretEnv  = "NAVER_CLIENT_SECRET"
	chatGPTAPIKeyEnv      = "CHATGPT_API_KEY"
	chatGPTModelEnv       = "CHATGPT_MODEL"
	telegramTokenEnv      = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv     = "TELEGRAM_CHAT_ID"
	logLevelEnv           = "LOG_LEVEL"
	ProviderNaver         = "naver"
	ProviderHTML          = "html"
	StrategyRules         = "rules"
	StrategyDelegated     = "delegated"
	defaultApprovalCutoff = 80
)

// ErrInvalidConfig marks configuration that must not start a run.
var ErrInvalidConfig = errors.New("invalid config")

// DefaultTerms are the search terms used when no collection tier lists its own.
var DefaultTerms = []string{"팀플", "팀프로젝트", "조별과제", "무임승차", "프리라이더", "조장", "조원", "역할분담", "협업", "팀워크"}

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Database      DatabaseConfig     `yaml:"database"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Search        SearchConfig       `yaml:"search"`
	Classifier    ClassifierConfig   `yaml:"classifier"`
	ChatGPT       ChatGPTConfig      `yaml:"chatgpt"`
	Notifications NotificationConfig `yaml:"notifications"`
	Taxonomy      domain.Taxonomy    `yaml:"taxonomy"`
	Filter        filter.Rules       `yaml:"filter"`
	Collection    []CollectionTier   `yaml:"collection" validate:"required,min=1,dive"`
	Keywords      keywords.Options   `yaml:"keywords"`
	Approval      ApprovalConfig     `yaml:"approval"`
	RunLock       RunLockConfig      `yaml:"runLock"`
}

// LoggingConfig selects the log level.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
}

// DatabaseConfig names the store. postgres:// DSNs use Postgres, anything else is a SQLite path.
type DatabaseConfig struct {
	DSN string `yaml:"dsn" validate:"required"`
}

// SchedulerConfig defines when collection runs.
type SchedulerConfig struct {
	CronExpression string         `yaml:"cronExpression" validate:"required"`
	Timezone       string         `yaml:"timezone"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// SearchConfig groups search call parameters and provider settings.
type SearchConfig struct {
	// Providers maps a source type to the provider serving it.
	Providers map[string]string `yaml:"providers" validate:"required,dive,keys,oneof=blog news,endkeys,oneof=naver html"`
	Count     int               `yaml:"count" validate:"min=1,max=100"`
	Start     int               `yaml:"start" validate:"min=1,max=1000"`
	Sort      string            `yaml:"sort" validate:"oneof=date sim"`
	Delay     time.Duration     `yaml:"delay" validate:"min=0"`
	Naver     NaverConfig       `yaml:"naver"`
	HTML      HTMLConfig        `yaml:"html"`
}

// NaverConfig wires the Naver open search API.
type NaverConfig struct {
	Endpoint     string        `yaml:"endpoint" validate:"required,url"`
	ClientID     string        `yaml:"clientId"`
	ClientSecret string        `yaml:"clientSecret"`
	Timeout      time.Duration `yaml:"timeout" validate:"min=0"`
}

// HTMLConfig describes a results page scraped with CSS selectors.
// URLTemplate may reference {query}, {type}, {count}, {start} and {sort}.
type HTMLConfig struct {
	URLTemplate     string        `yaml:"urlTemplate"`
	ItemSelector    string        `yaml:"itemSelector"`
	TitleSelector   string        `yaml:"titleSelector"`
	LinkSelector    string        `yaml:"linkSelector"`
	SnippetSelector string        `yaml:"snippetSelector"`
	DateSelector    string        `yaml:"dateSelector"`
	DateLayout      string        `yaml:"dateLayout"`
	Timeout         time.Duration `yaml:"timeout" validate:"min=0"`
}

// ClassifierConfig selects the classification strategy.
type ClassifierConfig struct {
	Strategy  string `yaml:"strategy" validate:"oneof=rules delegated"`
	RulesPath string `yaml:"rulesPath"`
}

// ChatGPTConfig defines how to contact the ChatGPT API.
type ChatGPTConfig struct {
	Endpoint     string        `yaml:"endpoint" validate:"required,url"`
	Model        string        `yaml:"model"`
	APIKey       string        `yaml:"apiKey"`
	SystemPrompt string        `yaml:"systemPrompt"`
	Timeout      time.Duration `yaml:"timeout" validate:"min=0"`
	Breaker      BreakerConfig `yaml:"breaker"`
}

// BreakerConfig tunes the circuit breaker guarding the oracle.
type BreakerConfig struct {
	MaxFailures uint32        `yaml:"maxFailures" validate:"min=1"`
	OpenTimeout time.Duration `yaml:"openTimeout" validate:"min=0"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
	Endpoint string `yaml:"endpoint" validate:"omitempty,url"`
}

// Enabled reports whether both credentials are present.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// CollectionTier is one ordered slice of a run: which source to query, with which terms, up to which quota.
type CollectionTier struct {
	Name       string            `yaml:"name" validate:"required"`
	SourceType domain.SourceType `yaml:"sourceType" validate:"oneof=blog news"`
	Terms      []string          `yaml:"terms" validate:"required,min=1,dive,required"`
	Quota      int               `yaml:"quota" validate:"min=1"`
}

// ApprovalConfig sets the confidence cut-off for auto-approval.
type ApprovalConfig struct {
	Threshold int `yaml:"threshold" validate:"min=0,max=100"`
}

// RunLockConfig points at the lock file guarding single runs.
type RunLockConfig struct {
	Path string `yaml:"path" validate:"required"`
}

// Load reads the file named by CASE_COLLECTOR_CONFIG (if set) and applies environment overrides.
func Load() (Config, error) {
	return LoadFile(os.Getenv(configPathEnv))
}

// LoadFile decodes path over the defaults and applies environment overrides.
// An empty path yields the defaults.
func LoadFile(path string) (Config, error) {
	cfg := defaultConfig()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		// fields absent from the file keep their defaults
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()
	cfg.Filter.Excluded = cfg.Taxonomy.ExcludedTerms

	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(naverClientIDEnv); v != "" {
		c.Search.Naver.ClientID = v
	}

	if v := os.Getenv(naverClientSecretEnv); v != "" {
		c.Search.Naver.ClientSecret = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	if v := os.Getenv(chatGPTAPIKeyEnv); v != "" {
		c.ChatGPT.APIKey = v
	}

	if v := os.Getenv(chatGPTModelEnv); v != "" {
		c.ChatGPT.Model = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

// Validate checks struct constraints and the credentials required by the selected providers.
func (c Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())

	var problems []string
	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		for _, fe := range verrs {
			problems = append(problems, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
		}
	}

	for _, tier := range c.Collection {
		provider, ok := c.Search.Providers[string(tier.SourceType)]
		if !ok {
			problems = append(problems, fmt.Sprintf("collection %q: no search provider for source %q", tier.Name, tier.SourceType))
			continue
		}
		switch provider {
		case ProviderNaver:
			if c.Search.Naver.ClientID == "" || c.Search.Naver.ClientSecret == "" {
				problems = append(problems, "search.naver: clientId and clientSecret are required")
			}
		case ProviderHTML:
			if c.Search.HTML.URLTemplate == "" || c.Search.HTML.ItemSelector == "" || c.Search.HTML.LinkSelector == "" {
				problems = append(problems, "search.html: urlTemplate, itemSelector and linkSelector are required")
			}
		}
	}

	if c.Classifier.Strategy == StrategyDelegated && (c.ChatGPT.APIKey == "" || c.ChatGPT.Model == "") {
		problems = append(problems, "chatgpt: apiKey and model are required by the delegated classifier")
	}

	if _, err := filter.New(c.Filter); err != nil {
		problems = append(problems, "filter: "+err.Error())
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(dedupe(problems), "; "))
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := values[:0]
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging:   LoggingConfig{Level: "info"},
		Database:  DatabaseConfig{DSN: "sqlite://casecollector.db"},
		Scheduler: SchedulerConfig{CronExpression: "0 */6 * * *", Timezone: defaultTimezone, location: tz},
		Search: SearchConfig{
			Providers: map[string]string{
				string(domain.SourceBlog): ProviderNaver,
				string(domain.SourceNews): ProviderNaver,
			},
			Count: 100,
			Start: 1,
			Sort:  "date",
			Delay: 100 * time.Millisecond,
			Naver: NaverConfig{
				Endpoint: "https://openapi.naver.com/v1/search",
				Timeout:  10 * time.Second,
			},
			HTML: HTMLConfig{Timeout: 20 * time.Second},
		},
		Classifier: ClassifierConfig{Strategy: StrategyRules},
		ChatGPT: ChatGPTConfig{
			Endpoint: "https://api.openai.com/v1/chat/completions",
			Model:    "gpt-4o-mini",
			Timeout:  30 * time.Second,
			Breaker:  BreakerConfig{MaxFailures: 5, OpenTimeout: time.Minute},
		},
		Notifications: NotificationConfig{
			Telegram: TelegramConfig{Endpoint: "https://api.telegram.org"},
		},
		Taxonomy: domain.Taxonomy{
			PrimaryTerms:   append([]string(nil), DefaultTerms...),
			SecondaryTerms: []string{"공모전", "해커톤", "프로젝트"},
			ExcludedTerms:  []string{"광고", "협찬"},
		},
		Filter: filter.Rules{
			Tiers: []filter.TierRule{
				{
					Tier:   1,
					Reason: "team project experience",
					Require: [][]string{
						{"공모전", "팀플", "팀프로젝트", "조별과제", "해커톤"},
						{"후기", "경험", "갈등", "무임승차", "프리라이더"},
					},
				},
				{
					Tier:    2,
					Reason:  "team project mention",
					Require: [][]string{{"팀플", "팀프로젝트", "조별과제", "공모전", "해커톤"}},
				},
				{
					Tier:    3,
					Reason:  "collaboration topic",
					Require: [][]string{{"협업", "팀워크", "역할분담", "조장", "조원", "무임승차", "프리라이더"}},
				},
			},
			Gate: filter.GateRule{
				ActionKeywords: []string{"출시", "선정", "수상", "개최", "발표", "협약"},
				Stopwords:      []string{"기자", "오늘", "지난", "올해", "이번", "관계자"},
				MinRepeat:      3,
				TokenMin:       2,
				TokenMax:       4,
				Tier:           1,
			},
		},
		Collection: []CollectionTier{
			{Name: "blog", SourceType: domain.SourceBlog, Terms: append([]string(nil), DefaultTerms...), Quota: 100},
			{Name: "news", SourceType: domain.SourceNews, Terms: append([]string(nil), DefaultTerms...), Quota: 50},
		},
		Keywords: keywords.Options{MinCount: 10, Limit: 5},
		Approval: ApprovalConfig{Threshold: defaultApprovalCutoff},
		RunLock:  RunLockConfig{Path: "casecollector.lock"},
	}
}
