// Package catalog holds the static plan definitions and the runtime
// configuration of the provisioning daemon. Plans are pure data: lookup is
// the only behavior.
package catalog

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/cirrohost/provisiond/internal/domain"
)

// plans is the versioned set of purchasable plans. Edits here ship with a
// deploy; already-built intents keep the values they snapshotted.
var plans = []domain.Plan{
	{
		Code: "web-basic", Name: "Web Basic", Kind: domain.KindHosting,
		CPUCores: 1, MemoryMB: 1024, DiskGB: 10, Mailboxes: 5,
		StackFlags: []string{"php", "mysql"},
		BackupTier: domain.BackupDaily, EmailTier: domain.EmailStandard,
	},
	{
		Code: "web-pro", Name: "Web Pro", Kind: domain.KindHosting,
		CPUCores: 2, MemoryMB: 4096, DiskGB: 50, Mailboxes: 25,
		StackFlags: []string{"php", "mysql", "ssh", "cron"},
		BackupTier: domain.BackupDaily, EmailTier: domain.EmailPlus,
	},
	{
		Code: "pod-s", Name: "Cloud Pod S", Kind: domain.KindPod,
		CPUCores: 2, MemoryMB: 2048, DiskGB: 40,
		StackFlags: []string{"ssh"},
		BackupTier: domain.BackupDaily, EmailTier: domain.EmailNone,
	},
	{
		Code: "pod-l", Name: "Cloud Pod L", Kind: domain.KindPod,
		CPUCores: 8, MemoryMB: 16384, DiskGB: 320,
		StackFlags: []string{"ssh"},
		BackupTier: domain.BackupHourly, EmailTier: domain.EmailNone,
	},
	{
		Code: "web-legacy", Name: "Web Legacy", Kind: domain.KindHosting,
		CPUCores: 1, MemoryMB: 512, DiskGB: 5, Mailboxes: 1,
		StackFlags: []string{"php"},
		BackupTier: domain.BackupNone, EmailTier: domain.EmailStandard,
		Disabled: true,
	},
}

// Lookup returns the plan for the given code. Disabled plans are still
// returned; callers decide whether disabled is acceptable.
func Lookup(code string) (domain.Plan, error) {
	for _, p := range plans {
		if p.Code == code {
			return p, nil
		}
	}
	return domain.Plan{}, &domain.UnknownPlanError{Code: code}
}

// Codes returns all plan codes, enabled or not.
func Codes() []string {
	out := make([]string, 0, len(plans))
	for _, p := range plans {
		out = append(out, p.Code)
	}
	return out
}

// Config holds every runtime knob of the daemon.
type Config struct {
	Port         string `mapstructure:"PORT"`
	DatabasePath string `mapstructure:"DB_PATH"`

	Workers          int `mapstructure:"WORKERS"`
	PollIntervalMS   int `mapstructure:"POLL_INTERVAL_MS"`
	HandlerTimeoutMS int `mapstructure:"HANDLER_TIMEOUT_MS"`

	DNSAPIURL        string `mapstructure:"DNS_API_URL"`
	HostingAPIURL    string `mapstructure:"HOSTING_API_URL"`
	MailAPIURL       string `mapstructure:"MAIL_API_URL"`
	HypervisorAPIURL string `mapstructure:"HYPERVISOR_API_URL"`

	DNSHost        string `mapstructure:"DNS_HOST"`
	MailHost       string `mapstructure:"MAIL_HOST"`
	HypervisorHost string `mapstructure:"HYPERVISOR_HOST"`
	SharedIP       string `mapstructure:"SHARED_IP"`
	Nameservers    string `mapstructure:"NAMESERVERS"`
	InternalSuffix string `mapstructure:"INTERNAL_SUFFIX"`
}

// LoadConfig reads configuration from PROVISIOND_-prefixed environment
// variables with an optional .env fallback file.
func LoadConfig() (*Config, error) {
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DB_PATH", "provisiond.db")
	viper.SetDefault("WORKERS", 3)
	viper.SetDefault("POLL_INTERVAL_MS", 5000)
	viper.SetDefault("HANDLER_TIMEOUT_MS", 60000)
	viper.SetDefault("DNS_API_URL", "http://ns1.internal:8053")
	viper.SetDefault("HOSTING_API_URL", "http://panel.internal:8088")
	viper.SetDefault("MAIL_API_URL", "http://mail.internal:8025")
	viper.SetDefault("HYPERVISOR_API_URL", "http://hv1.internal:8006")
	viper.SetDefault("DNS_HOST", "ns1.cirrohost.net")
	viper.SetDefault("MAIL_HOST", "mail.cirrohost.net")
	viper.SetDefault("HYPERVISOR_HOST", "hv1.cirrohost.net")
	viper.SetDefault("SHARED_IP", "203.0.113.10")
	viper.SetDefault("NAMESERVERS", "ns1.cirrohost.net,ns2.cirrohost.net")
	viper.SetDefault("INTERNAL_SUFFIX", "srv.cirrohost.net")

	viper.SetEnvPrefix("PROVISIOND")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetConfigFile(".env")
	// Ignore err if .env doesn't exist.
	_ = viper.ReadInConfig()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// Infra projects the addressing facts out of the runtime config. Intents
// snapshot this value at build time.
func (c *Config) Infra() domain.InfraConfig {
	return domain.InfraConfig{
		DNSHost:        c.DNSHost,
		MailHost:       c.MailHost,
		HypervisorHost: c.HypervisorHost,
		SharedIP:       c.SharedIP,
		Nameservers:    strings.Split(c.Nameservers, ","),
		InternalSuffix: c.InternalSuffix,
	}
}
