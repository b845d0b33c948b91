package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const defaultEnvFile = ".env"

type Config struct {
	ApiURL     string `envconfig:"S3_API_URL"`
	AccessKey  string `envconfig:"S3_ACCESS_KEY"`
	SecretKey  string `envconfig:"S3_SECRET_KEY"`
	BucketName string `envconfig:"S3_BUCKET_NAME"`
	Region     string `envconfig:"S3_REGION" default:"us-east-2"`

	SSHHost          string        `envconfig:"SSH_HOST"`
	SSHUser          string        `envconfig:"SSH_USER"`
	SSHPort          int           `envconfig:"SSH_PORT" default:"22"`
	SSHKeyPath       string        `envconfig:"SSH_KEY_PATH"`
	SSHKeyPassphrase string        `envconfig:"SSH_KEY_PASSPHRASE"`
	SSHPassword      string        `envconfig:"SSH_PASSWORD"`
	SSHKnownHosts    string        `envconfig:"SSH_KNOWN_HOSTS"`
	SSHTimeout       time.Duration `envconfig:"SSH_TIMEOUT" default:"30s"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads envFile (".env" when empty) into the process environment and
// then decodes the environment into a Config. Variables already set in the
// environment win over the file.
func Load(envFile string) (*Config, error) {
	explicit := envFile != ""
	if !explicit {
		envFile = defaultEnvFile
	}
	if err := godotenv.Load(envFile); err != nil {
		if explicit {
			log.Warnf("%s not loaded (%v), using environment variables only", envFile, err)
		} else {
			log.Debugf("%s not loaded (%v), using environment variables only", envFile, err)
		}
	}

	config := &Config{}
	if err := envconfig.Process("", config); err != nil {
		return nil, errors.Wrap(err, "failed to process environment")
	}
	return config, nil
}

// HasStaticCredentials reports whether an explicit S3 key pair was supplied.
func (c *Config) HasStaticCredentials() bool {
	return c.AccessKey != "" && c.SecretKey != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// EnvFileFromArgs finds an --env-file value before cobra has parsed flags,
// since the config must exist before the command tree runs.
func EnvFileFromArgs(args []string) string {
	for i, arg := range args {
		if arg == "--env-file" && i+1 < len(args) {
			return args[i+1]
		}
		if value, ok := strings.CutPrefix(arg, "--env-file="); ok && value != "" {
			return value
		}
	}
	return getEnv("REMOTEOPS_ENV_FILE", "")
}
