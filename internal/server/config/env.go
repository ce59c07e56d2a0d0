package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/dmitrijs2005/customuser/internal/flagx"
	"github.com/joho/godotenv"
)

// dotenvFile is loaded into the process environment when present. Variables
// already set win over the file.
var dotenvFile = ".env"

// parseEnv overlays values from environment variables.
//
//	BIND_ADDRESS, DATABASE_DSN, ACCOUNT_MODEL, SECRET_KEY,
//	ACCESS_TOKEN_TTL (minutes), PASSWORD_HASHER, PASSWORD_ITERATIONS,
//	LOG_LEVEL, LOG_FORMAT, SMTP_HOSTNAME, SMTP_PORT, SMTP_USERNAME,
//	SMTP_PASSWORD, SMTP_AUTH_TYPE, SMTP_ENCRYPTION, SMTP_NO_TLS_CHECK,
//	SENDGRID_API_KEY, EMAIL_FROM_ADDRESS, EMAIL_FROM_NAME
func parseEnv(config *Config) {
	if err := godotenv.Load(dotenvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}

	config.EndpointAddrHTTP = flagx.LookupEnvOrString("BIND_ADDRESS", config.EndpointAddrHTTP)
	config.DatabaseDSN = flagx.LookupEnvOrString("DATABASE_DSN", config.DatabaseDSN)
	config.AccountModel = flagx.LookupEnvOrString("ACCOUNT_MODEL", config.AccountModel)
	config.SecretKey = flagx.LookupEnvOrString("SECRET_KEY", config.SecretKey)
	if _, ok := os.LookupEnv("ACCESS_TOKEN_TTL"); ok {
		ttl := flagx.LookupEnvOrInt("ACCESS_TOKEN_TTL", int(config.AccessTokenValidityDuration.Minutes()))
		config.AccessTokenValidityDuration = time.Duration(ttl) * time.Minute
	}
	config.PasswordHasher = flagx.LookupEnvOrString("PASSWORD_HASHER", config.PasswordHasher)
	config.PasswordIterations = flagx.LookupEnvOrInt("PASSWORD_ITERATIONS", config.PasswordIterations)
	config.LogLevel = flagx.LookupEnvOrString("LOG_LEVEL", config.LogLevel)
	config.LogFormat = flagx.LookupEnvOrString("LOG_FORMAT", config.LogFormat)

	config.SMTPHostname = flagx.LookupEnvOrString("SMTP_HOSTNAME", config.SMTPHostname)
	config.SMTPPort = flagx.LookupEnvOrInt("SMTP_PORT", config.SMTPPort)
	config.SMTPUsername = flagx.LookupEnvOrString("SMTP_USERNAME", config.SMTPUsername)
	config.SMTPPassword = flagx.LookupEnvOrString("SMTP_PASSWORD", config.SMTPPassword)
	config.SMTPAuthType = flagx.LookupEnvOrString("SMTP_AUTH_TYPE", config.SMTPAuthType)
	config.SMTPEncryption = flagx.LookupEnvOrString("SMTP_ENCRYPTION", config.SMTPEncryption)
	config.SMTPNoTLSCheck = flagx.LookupEnvOrBool("SMTP_NO_TLS_CHECK", config.SMTPNoTLSCheck)
	config.SendgridAPIKey = flagx.LookupEnvOrString("SENDGRID_API_KEY", config.SendgridAPIKey)
	config.EmailFrom = flagx.LookupEnvOrString("EMAIL_FROM_ADDRESS", config.EmailFrom)
	config.EmailFromName = flagx.LookupEnvOrString("EMAIL_FROM_NAME", config.EmailFromName)
}
