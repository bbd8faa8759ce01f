package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/civicreport/internal/flagx"
	"github.com/dmitrijs2005/civicreport/internal/timex"
)

// JsonConfig is the on-disk shape of the server configuration. Durations
// accept "15m" strings or integer nanoseconds. Absent keys keep the value
// from the previous layer.
type JsonConfig struct {
	EndpointAddrGRPC             *string         `json:"endpoint_addr_grpc"`
	EndpointAddrHTTP             *string         `json:"endpoint_addr_http"`
	DatabaseDSN                  *string         `json:"database_dsn"`
	SecretKey                    *string         `json:"secret_key"`
	AccessTokenValidityDuration  *timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration *timex.Duration `json:"refresh_token_validity_duration"`
	S3RootUser                   *string         `json:"s3_root_user"`
	S3RootPassword               *string         `json:"s3_root_password"`
	S3Bucket                     *string         `json:"s3_bucket"`
	S3Region                     *string         `json:"s3_region"`
	S3BaseEndpoint               *string         `json:"s3_base_endpoint"`
	PhotoURLValidityDuration     *timex.Duration `json:"photo_url_validity_duration"`
	AdminUsername                *string         `json:"admin_username"`
	AdminPassword                *string         `json:"admin_password"`
	AdminName                    *string         `json:"admin_name"`
	CleanupSchedule              *string         `json:"cleanup_schedule"`
	Debug                        *bool           `json:"debug"`
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setDuration(dst *time.Duration, src *timex.Duration) {
	if src != nil {
		*dst = time.Duration(src.Duration)
	}
}

// parseJson overlays cfg with the file named by -c/-config or
// $CIVIC_CONFIG. It panics on read or decode errors.
func parseJson(cfg *Config, args []string) {
	path := flagx.ConfigPath(args)
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	var c JsonConfig
	if err := json.Unmarshal(data, &c); err != nil {
		panic(err)
	}

	setString(&cfg.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&cfg.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&cfg.DatabaseDSN, c.DatabaseDSN)
	setString(&cfg.SecretKey, c.SecretKey)
	setDuration(&cfg.AccessTokenValidityDuration, c.AccessTokenValidityDuration)
	setDuration(&cfg.RefreshTokenValidityDuration, c.RefreshTokenValidityDuration)
	setString(&cfg.S3RootUser, c.S3RootUser)
	setString(&cfg.S3RootPassword, c.S3RootPassword)
	setString(&cfg.S3Bucket, c.S3Bucket)
	setString(&cfg.S3Region, c.S3Region)
	setString(&cfg.S3BaseEndpoint, c.S3BaseEndpoint)
	setDuration(&cfg.PhotoURLValidityDuration, c.PhotoURLValidityDuration)
	setString(&cfg.AdminUsername, c.AdminUsername)
	setString(&cfg.AdminPassword, c.AdminPassword)
	setString(&cfg.AdminName, c.AdminName)
	setString(&cfg.CleanupSchedule, c.CleanupSchedule)
	if c.Debug != nil {
		cfg.Debug = *c.Debug
	}
}
