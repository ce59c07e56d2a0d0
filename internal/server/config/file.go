package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/customuser/internal/flagx"
	"github.com/dmitrijs2005/customuser/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk form of Config. Durations accept strings such
// as "15m" or integer nanoseconds.
type FileConfig struct {
	EndpointAddrHTTP            string         `json:"endpoint_addr_http" yaml:"endpoint_addr_http"`
	DatabaseDSN                 string         `json:"database_dsn" yaml:"database_dsn"`
	AccountModel                string         `json:"account_model" yaml:"account_model"`
	SecretKey                   string         `json:"secret_key" yaml:"secret_key"`
	AccessTokenValidityDuration timex.Duration `json:"access_token_validity_duration" yaml:"access_token_validity_duration"`
	PasswordHasher              string         `json:"password_hasher" yaml:"password_hasher"`
	PasswordIterations          int            `json:"password_iterations" yaml:"password_iterations"`
	LogLevel                    string         `json:"log_level" yaml:"log_level"`
	LogFormat                   string         `json:"log_format" yaml:"log_format"`

	SMTPHostname   string `json:"smtp_hostname" yaml:"smtp_hostname"`
	SMTPPort       int    `json:"smtp_port" yaml:"smtp_port"`
	SMTPUsername   string `json:"smtp_username" yaml:"smtp_username"`
	SMTPPassword   string `json:"smtp_password" yaml:"smtp_password"`
	SMTPAuthType   string `json:"smtp_auth_type" yaml:"smtp_auth_type"`
	SMTPEncryption string `json:"smtp_encryption" yaml:"smtp_encryption"`
	SMTPNoTLSCheck bool   `json:"smtp_no_tls_check" yaml:"smtp_no_tls_check"`
	SendgridAPIKey string `json:"sendgrid_api_key" yaml:"sendgrid_api_key"`
	EmailFrom      string `json:"email_from" yaml:"email_from"`
	EmailFromName  string `json:"email_from_name" yaml:"email_from_name"`
}

func toFile(c *Config) FileConfig {
	return FileConfig{
		EndpointAddrHTTP:            c.EndpointAddrHTTP,
		DatabaseDSN:                 c.DatabaseDSN,
		AccountModel:                c.AccountModel,
		SecretKey:                   c.SecretKey,
		AccessTokenValidityDuration: timex.Duration{Duration: c.AccessTokenValidityDuration},
		PasswordHasher:              c.PasswordHasher,
		PasswordIterations:          c.PasswordIterations,
		LogLevel:                    c.LogLevel,
		LogFormat:                   c.LogFormat,
		SMTPHostname:                c.SMTPHostname,
		SMTPPort:                    c.SMTPPort,
		SMTPUsername:                c.SMTPUsername,
		SMTPPassword:                c.SMTPPassword,
		SMTPAuthType:                c.SMTPAuthType,
		SMTPEncryption:              c.SMTPEncryption,
		SMTPNoTLSCheck:              c.SMTPNoTLSCheck,
		SendgridAPIKey:              c.SendgridAPIKey,
		EmailFrom:                   c.EmailFrom,
		EmailFromName:               c.EmailFromName,
	}
}

func (f FileConfig) apply(c *Config) {
	c.EndpointAddrHTTP = f.EndpointAddrHTTP
	c.DatabaseDSN = f.DatabaseDSN
	c.AccountModel = f.AccountModel
	c.SecretKey = f.SecretKey
	c.AccessTokenValidityDuration = f.AccessTokenValidityDuration.Duration
	c.PasswordHasher = f.PasswordHasher
	c.PasswordIterations = f.PasswordIterations
	c.LogLevel = f.LogLevel
	c.LogFormat = f.LogFormat
	c.SMTPHostname = f.SMTPHostname
	c.SMTPPort = f.SMTPPort
	c.SMTPUsername = f.SMTPUsername
	c.SMTPPassword = f.SMTPPassword
	c.SMTPAuthType = f.SMTPAuthType
	c.SMTPEncryption = f.SMTPEncryption
	c.SMTPNoTLSCheck = f.SMTPNoTLSCheck
	c.SendgridAPIKey = f.SendgridAPIKey
	c.EmailFrom = f.EmailFrom
	c.EmailFromName = f.EmailFromName
}

// parseFile overlays values from the file named by -c or -config. Keys
// missing from the file keep their current values. Files ending in .yaml or
// .yml are decoded as YAML, anything else as JSON. An unreadable or invalid
// file panics.
func parseFile(config *Config) {
	path := flagx.ConfigFileFlag()

	// nothing to load
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	fc := toFile(config)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	default:
		err = json.Unmarshal(data, &fc)
	}
	if err != nil {
		panic(err)
	}

	fc.apply(config)
}
