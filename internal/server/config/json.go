package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/accountkeeper/internal/flagx"
	"github.com/dmitrijs2005/accountkeeper/internal/timex"
)

// JsonConfig is the on-disk shape of the server configuration. Durations use
// timex.Duration so both "15m" and integer nanoseconds are accepted. Pointer
// fields distinguish "absent" from an explicit zero.
type JsonConfig struct {
	EndpointAddrGRPC             string         `json:"endpoint_addr_grpc"`
	MetricsAddr                  *string        `json:"metrics_addr"`
	DatabaseDSN                  string         `json:"database_dsn"`
	SecretKey                    string         `json:"secret_key"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	PasswordExpiry               timex.Duration `json:"password_expiry"`
	PasswordHashAlgorithm        string         `json:"password_hash_algorithm"`
	BootstrapUsername            string         `json:"bootstrap_username"`
	BootstrapAdminPassword       string         `json:"bootstrap_admin_password"`
	UsernameMinLength            *int           `json:"username_min_length"`
	UsernameMaxLength            *int           `json:"username_max_length"`
	PasswordMinLength            *int           `json:"password_min_length"`
	PasswordMaxLength            *int           `json:"password_max_length"`
	PasswordMinUpper             *int           `json:"password_min_upper"`
	PasswordMinLower             *int           `json:"password_min_lower"`
	PasswordMinDigits            *int           `json:"password_min_digits"`
	PasswordMinSpecial           *int           `json:"password_min_special"`
	S3RootUser                   string         `json:"s3_root_user"`
	S3RootPassword               string         `json:"s3_root_password"`
	S3Bucket                     string         `json:"s3_bucket"`
	S3Region                     string         `json:"s3_region"`
	S3BaseEndpoint               string         `json:"s3_base_endpoint"`
	LogLevel                     string         `json:"log_level"`
}

// parseJson overlays values from the JSON file named by -c/-config onto
// config. Keys missing from the file leave the current value untouched.
// An unreadable file or invalid JSON panics: the server must not start on a
// half-read configuration.
func parseJson(config *Config, args []string) {
	path := flagx.ConfigFile(args)
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	if c.MetricsAddr != nil {
		config.MetricsAddr = *c.MetricsAddr
	}
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	if c.AccessTokenValidityDuration.Duration > 0 {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.RefreshTokenValidityDuration.Duration > 0 {
		config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	}
	if c.PasswordExpiry.Duration > 0 {
		config.PasswordExpiry = c.PasswordExpiry.Duration
	}
	setString(&config.PasswordHashAlgorithm, c.PasswordHashAlgorithm)
	setString(&config.BootstrapUsername, c.BootstrapUsername)
	setString(&config.BootstrapAdminPassword, c.BootstrapAdminPassword)

	setInt(&config.Policy.UsernameMinLength, c.UsernameMinLength)
	setInt(&config.Policy.UsernameMaxLength, c.UsernameMaxLength)
	setInt(&config.Policy.PasswordMinLength, c.PasswordMinLength)
	setInt(&config.Policy.PasswordMaxLength, c.PasswordMaxLength)
	setInt(&config.Policy.MinUpper, c.PasswordMinUpper)
	setInt(&config.Policy.MinLower, c.PasswordMinLower)
	setInt(&config.Policy.MinDigits, c.PasswordMinDigits)
	setInt(&config.Policy.MinSpecial, c.PasswordMinSpecial)

	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.LogLevel, c.LogLevel)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}
