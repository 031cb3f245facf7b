package config

// Environment variables read by parseEnv. Secrets are usually supplied this
// way, often from a .env file.
const (
	EnvDatabaseDSN            = "ACCOUNTKEEPER_DATABASE_DSN"
	EnvSecretKey              = "ACCOUNTKEEPER_SECRET_KEY"
	EnvBootstrapAdminPassword = "ACCOUNTKEEPER_BOOTSTRAP_ADMIN_PASSWORD"
	EnvS3RootUser             = "ACCOUNTKEEPER_S3_ROOT_USER"
	EnvS3RootPassword         = "ACCOUNTKEEPER_S3_ROOT_PASSWORD"
	EnvS3Bucket               = "ACCOUNTKEEPER_S3_BUCKET"
	EnvLogLevel               = "ACCOUNTKEEPER_LOG_LEVEL"
)

// parseEnv overlays non-empty environment variables onto cfg.
func parseEnv(cfg *Config, lookup func(string) (string, bool)) {
	if lookup == nil {
		return
	}

	for name, dst := range map[string]*string{
		EnvDatabaseDSN:            &cfg.DatabaseDSN,
		EnvSecretKey:              &cfg.SecretKey,
		EnvBootstrapAdminPassword: &cfg.BootstrapAdminPassword,
		EnvS3RootUser:             &cfg.S3RootUser,
		EnvS3RootPassword:         &cfg.S3RootPassword,
		EnvS3Bucket:               &cfg.S3Bucket,
		EnvLogLevel:               &cfg.LogLevel,
	} {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}
}
