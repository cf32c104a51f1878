package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"openc/log"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

type config struct {
	// MySQL configs for the incident journal.
	User     string
	Password string
	Hostname string
	Port     string
	Database string

	// Label sets log output prefix.
	Label string

	// Endpoint pools of the three remote services.
	AssetRegistryURLs []string `mapstructure:"asset_registry_url"`
	MarketplaceURLs   []string `mapstructure:"marketplace_url"`
	TokenLedgerURLs   []string `mapstructure:"token_ledger_url"`

	// MarketplaceAccount overrides the account id the marketplace
	// registry reports for itself. Normally left empty.
	MarketplaceAccount string `mapstructure:"marketplace_account"`

	// UserSeed is the hex encoded ed25519 seed of the current user.
	UserSeed string `mapstructure:"user_seed"`

	// Workers sets the number of goroutines used for view projection.
	// Recommend value: 3.
	Workers int

	// StepRetry bounds in-line retries of a partial-effect workflow step.
	StepRetry int `mapstructure:"step_retry"`

	// ReconcileIntervalSecs sets how often open incidents are replayed.
	ReconcileIntervalSecs int `mapstructure:"reconcile_interval_secs"`

	// AliyunMail is an optional config which will be used in mail alert package.
	AliyunMail AliyunMailConfig `mapstructure:"aliyun_mail"`
}

// AliyunMailConfig is the struct for aliyun mail configs.
type AliyunMailConfig struct {
	AccountName     string
	Region          string
	AccessKeyID     string
	AccessKeySecret string
	Receiver        []string
}

var cfg config

// Load creates a single.
func Load(display bool) {
	viper.SetConfigName("config")
	viper.AddConfigPath("./config")
	// Incase test cases require loading configs.
	viper.AddConfigPath("../config")

	if err := load(display); err != nil {
		panic(err)
	}

	if err := check(); err != nil {
		panic(err)
	}

	update()

	log.UpdatePrefix(GetLabel())

	viper.WatchConfig()
	viper.OnConfigChange(onConfigChange)
}

func load(display bool) error {
	err := viper.ReadInConfig()
	if err != nil {
		return err
	}

	err = viper.Unmarshal(&cfg)
	if err != nil {
		return err
	}

	if display {
		configContent, _ := json.MarshalIndent(cfg, "", "    ")
		log.Println(string(configContent))
	}

	return nil
}

func update() {
	for _, urls := range [][]string{
		cfg.AssetRegistryURLs,
		cfg.MarketplaceURLs,
		cfg.TokenLedgerURLs,
	} {
		for i := 0; i < len(urls); i++ {
			if !strings.HasPrefix(urls[i], "http") {
				urls[i] = "http://" + urls[i]
			}
		}
	}

	if cfg.StepRetry == 0 {
		cfg.StepRetry = 3
	}

	if cfg.ReconcileIntervalSecs == 0 {
		cfg.ReconcileIntervalSecs = 60
	}
}

// GetDbConnStr returns mysql connection string.
func GetDbConnStr() string {
	str := fmt.Sprintf(
		"%s:%s@tcp(%s:%s)/%s",
		cfg.User,
		cfg.Password,
		cfg.Hostname,
		cfg.Port,
		cfg.Database,
	)

	params := []string{
		"charset=utf8",
		"parseTime=True",
		"loc=Local",
		"maxAllowedPacket=52428800",
		"multiStatements=True",
	}

	if len(params) > 0 {
		str = fmt.Sprintf("%s?%s", str, strings.Join(params, "&"))
	}

	return str
}

// GetLabel returns custome label as console output prefix.
func GetLabel() string {
	return cfg.Label
}

// GetAssetRegistryURLs returns asset registry endpoints from config.
func GetAssetRegistryURLs() []string {
	return cfg.AssetRegistryURLs
}

// GetMarketplaceURLs returns marketplace registry endpoints from config.
func GetMarketplaceURLs() []string {
	return cfg.MarketplaceURLs
}

// GetTokenLedgerURLs returns token ledger endpoints from config.
func GetTokenLedgerURLs() []string {
	return cfg.TokenLedgerURLs
}

// GetMarketplaceAccount returns the configured marketplace account override.
func GetMarketplaceAccount() string {
	return cfg.MarketplaceAccount
}

// GetUserSeed returns the hex seed of the current user identity.
func GetUserSeed() string {
	return cfg.UserSeed
}

// GetGoroutines returns the number of working goroutines.
func GetGoroutines() int {
	return cfg.Workers
}

// GetStepRetry returns the retry bound for partial-effect workflow steps.
func GetStepRetry() int {
	return cfg.StepRetry
}

// GetReconcileIntervalSecs returns the incident replay interval.
func GetReconcileIntervalSecs() int {
	return cfg.ReconcileIntervalSecs
}

// LoadAliyunMailConfig performs a basic check on aliyun mail config.
func LoadAliyunMailConfig() error {
	if err := checkAliyunMail(); err != nil {
		return err
	}

	return nil
}

// GetAliyunMailConfig returns aliyun mail configs.
func GetAliyunMailConfig() AliyunMailConfig {
	return cfg.AliyunMail
}

func check() error {
	if err := checkWorker(); err != nil {
		return err
	}

	if err := checkServices(); err != nil {
		return err
	}

	if err := checkUser(); err != nil {
		return err
	}

	return nil
}

func checkWorker() error {
	if cfg.Workers < 1 {
		return errors.New("value of 'workers' must greater than or equal to 1")
	}
	return nil
}

func checkServices() error {
	services := map[string][]string{
		"asset_registry_url": cfg.AssetRegistryURLs,
		"marketplace_url":    cfg.MarketplaceURLs,
		"token_ledger_url":   cfg.TokenLedgerURLs,
	}

	for name, urls := range services {
		if len(urls) < 1 {
			return fmt.Errorf("at least 1 server url must be set for '%s'", name)
		}

		for _, u := range urls {
			if err := checkServerURL(u); err != nil {
				return fmt.Errorf("invalid url in '%s': %s", name, err)
			}
		}
	}

	return nil
}

func checkServerURL(server string) error {
	if strings.HasPrefix(server, "http") {
		u, err := url.Parse(server)
		if err != nil {
			return err
		}
		server = u.Host
	}

	_, _, err := net.SplitHostPort(server)
	return err
}

func checkUser() error {
	if cfg.UserSeed == "" {
		return errors.New("'user_seed' must be set")
	}
	return nil
}

func checkAliyunMail() error {
	m := cfg.AliyunMail

	if m.AccountName == "" {
		return errors.New("aliyun mail account name cannot be empty")
	}

	if m.Region == "" {
		return errors.New("aliyun mail region cannot be empty")
	}

	if m.AccessKeyID == "" {
		return errors.New("aliyun mail accessKeyID cannot be empty")
	}

	if m.AccessKeySecret == "" {
		return errors.New("aliyun mail accessKeySecret cannot be empty")
	}

	if len(m.Receiver) == 0 {
		return errors.New("aliyun mail receiver cannot be empty")
	}

	return nil
}

func onConfigChange(e fsnotify.Event) {
	log.Printf("Config file change detected: %s", e.Name)

	const stdErr = "Failed to read new configuration, current configuration stay unchanged"

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("%s: %s", stdErr, err)
		return
	}

	if err := load(true); err != nil {
		log.Printf("%s: %s", stdErr, err)
		return
	}

	if err := check(); err != nil {
		log.Printf("%s: %s", stdErr, err)
		return
	}

	update()

	log.UpdatePrefix(GetLabel())
}
