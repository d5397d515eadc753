package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	MailTransportLog      = "log"
	MailTransportPostmark = "postmark"
	MailTransportS3       = "s3"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr                  string
		CORSOrigin            string
		RequestTimeoutSeconds int
	}
	Log struct {
		Level string
	}
	Database struct {
		Path string
	}
	Auth struct {
		JWTSecret          string
		TokenTTLMinutes    int
		BcryptCost         int
		LoginAttempts      int
		LoginWindowSeconds int
	}
	Mail struct {
		Transport            string
		From                 string
		ReplyTo              string
		PostmarkServerToken  string
		PostmarkAccountToken string
		Workers              int
		QueueSize            int
		TimeoutSeconds       int
	}
	Storage struct {
		Bucket    string
		KeyPrefix string
		Region    string
		Endpoint  string
	}
	AWS struct {
		Profile string
	}
	NATS struct {
		URL           string
		SubjectPrefix string
	}
	Redis struct {
		Addr     string
		Password string
		DB       int
	}
	Realtime struct {
		SendBuffer          int
		WriteTimeoutSeconds int
	}
}

// Load reads configuration from environment variables and optional config files.
func Load() (Config, error) {
	loadDotEnv()

	v := viper.New()
	v.SetEnvPrefix("EVENTHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", "0.0.0.0:5000")
	v.SetDefault("server.corsorigin", "*")
	v.SetDefault("server.requesttimeoutseconds", 15)
	v.SetDefault("log.level", "info")
	v.SetDefault("database.path", "data/eventhub.db")
	v.SetDefault("auth.jwtsecret", "")
	v.SetDefault("auth.tokenttlminutes", 7*24*60)
	v.SetDefault("auth.bcryptcost", 10)
	v.SetDefault("auth.loginattempts", 10)
	v.SetDefault("auth.loginwindowseconds", 300)
	v.SetDefault("mail.transport", MailTransportLog)
	v.SetDefault("mail.from", "")
	v.SetDefault("mail.replyto", "")
	v.SetDefault("mail.postmarkservertoken", "")
	v.SetDefault("mail.postmarkaccounttoken", "")
	v.SetDefault("mail.workers", 4)
	v.SetDefault("mail.queuesize", 256)
	v.SetDefault("mail.timeoutseconds", 10)
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.keyprefix", "mail-archive")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("aws.profile", "")
	v.SetDefault("nats.url", "")
	v.SetDefault("nats.subjectprefix", "eventhub")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("realtime.sendbuffer", 64)
	v.SetDefault("realtime.writetimeoutseconds", 10)

	v.SetConfigName("config")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional file

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Mail.Transport = strings.ToLower(strings.TrimSpace(cfg.Mail.Transport))

	return cfg, nil
}

// Validate reports settings the server cannot start with.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		errs = append(errs, errors.New("auth jwt secret is required"))
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log level: %w", err))
	}

	switch c.Mail.Transport {
	case MailTransportLog:
	case MailTransportPostmark:
		if c.Mail.PostmarkServerToken == "" {
			errs = append(errs, errors.New("mail postmark server token is required for the postmark transport"))
		}
		if c.Mail.From == "" {
			errs = append(errs, errors.New("mail from address is required for the postmark transport"))
		}
	case MailTransportS3:
		if c.Storage.Bucket == "" {
			errs = append(errs, errors.New("storage bucket is required for the s3 mail transport"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown mail transport %q", c.Mail.Transport))
	}
	return errors.Join(errs...)
}

func (c Config) TokenTTL() time.Duration {
	return time.Duration(c.Auth.TokenTTLMinutes) * time.Minute
}

func (c Config) LoginWindow() time.Duration {
	return time.Duration(c.Auth.LoginWindowSeconds) * time.Second
}

func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}

func (c Config) MailTimeout() time.Duration {
	return time.Duration(c.Mail.TimeoutSeconds) * time.Second
}

func (c Config) WriteTimeout() time.Duration {
	return time.Duration(c.Realtime.WriteTimeoutSeconds) * time.Second
}

func loadDotEnv() {
	file, err := os.Open(".env")
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		partsIndex := strings.Index(line, "=")
		if partsIndex <= 0 {
			continue
		}

		key := strings.TrimSpace(line[:partsIndex])
		value := strings.TrimSpace(line[partsIndex+1:])
		value = strings.Trim(value, `"'`)
		if key == "" {
			continue
		}

		if _, exists := os.LookupEnv(key); !exists {
			_ = os.Setenv(key, value)
		}
	}
}
