package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	BackendNone     = "none"
	BackendMinio    = "minio"
	BackendGCS      = "gcs"
	BackendRabbitMQ = "rabbitmq"
	BackendPubSub   = "pubsub"
)

type Config struct {
	Env        string
	ServerPort int
	Log        LogConfig
	Database   DatabaseConfig
	Auth       AuthConfig
	Documents  DocumentsConfig
	Storage    StorageConfig
	MQ         MQConfig
	Metrics    MetricsConfig
}

type LogConfig struct {
	Level string
}

type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	UseSSL   bool

	// Path is the database file used by the sqlite driver.
	Path string
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// DocumentsConfig holds lifecycle policy knobs.
type DocumentsConfig struct {
	// UpdateRequiredRole restricts PATCH to a role. Empty allows any authenticated user.
	UpdateRequiredRole string
	// SendRequiredRole restricts send to a role. Empty allows any authenticated user.
	SendRequiredRole string
	// CyrillicOnly limits subject, sender and receiver to Cyrillic letters and spaces.
	CyrillicOnly bool
}

type StorageConfig struct {
	Backend string
	Minio   MinioConfig
	GCS     GCSConfig
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type GCSConfig struct {
	Bucket          string
	ProjectID       string
	CredentialsFile string
}

type MQConfig struct {
	Backend  string
	Channel  string
	RabbitMQ RabbitMQConfig
	PubSub   PubSubConfig
}

type RabbitMQConfig struct {
	URL             string
	QueueDurable    bool
	QueueAutoDelete bool
	PrefetchCount   int
}

type PubSubConfig struct {
	ProjectID          string
	CredentialsFile    string
	SubscriptionSuffix string
}

type MetricsConfig struct {
	Enabled bool
}

func LoadConfig() Config {
	if os.Getenv("ENV") == "dev" {
		godotenv.Load()
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	return Config{
		Env:        v.GetString("ENV"),
		ServerPort: v.GetInt("SERVER_PORT"),
		Log: LogConfig{
			Level: v.GetString("LOG_LEVEL"),
		},
		Database: DatabaseConfig{
			Driver:   strings.ToLower(v.GetString("DB_DRIVER")),
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetInt("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			UseSSL:   v.GetBool("DB_USE_SSL"),
			Path:     v.GetString("DB_PATH"),
		},
		Auth: AuthConfig{
			JWTSecret: strings.TrimSpace(v.GetString("JWT_SECRET")),
			TokenTTL:  v.GetDuration("TOKEN_TTL"),
		},
		Documents: DocumentsConfig{
			UpdateRequiredRole: strings.TrimSpace(v.GetString("UPDATE_REQUIRED_ROLE")),
			SendRequiredRole:   strings.TrimSpace(v.GetString("SEND_REQUIRED_ROLE")),
			CyrillicOnly:       v.GetBool("CYRILLIC_ONLY"),
		},
		Storage: StorageConfig{
			Backend: strings.ToLower(v.GetString("STORAGE_BACKEND")),
			Minio: MinioConfig{
				Endpoint:  v.GetString("MINIO_ENDPOINT"),
				AccessKey: v.GetString("MINIO_ACCESS_KEY"),
				SecretKey: v.GetString("MINIO_SECRET_KEY"),
				Bucket:    v.GetString("MINIO_BUCKET"),
				UseSSL:    v.GetBool("MINIO_USE_SSL"),
			},
			GCS: GCSConfig{
				Bucket:          v.GetString("GCS_BUCKET"),
				ProjectID:       v.GetString("GCS_PROJECT_ID"),
				CredentialsFile: v.GetString("GCS_CREDENTIALS_FILE"),
			},
		},
		MQ: MQConfig{
			Backend: strings.ToLower(v.GetString("MQ_BACKEND")),
			Channel: v.GetString("MQ_CHANNEL"),
			RabbitMQ: RabbitMQConfig{
				URL:             v.GetString("RABBITMQ_URL"),
				QueueDurable:    v.GetBool("RABBITMQ_QUEUE_DURABLE"),
				QueueAutoDelete: v.GetBool("RABBITMQ_QUEUE_AUTO_DELETE"),
				PrefetchCount:   v.GetInt("RABBITMQ_PREFETCH_COUNT"),
			},
			PubSub: PubSubConfig{
				ProjectID:          v.GetString("PUBSUB_PROJECT_ID"),
				CredentialsFile:    v.GetString("PUBSUB_CREDENTIALS_FILE"),
				SubscriptionSuffix: v.GetString("PUBSUB_SUBSCRIPTION_SUFFIX"),
			},
		},
		Metrics: MetricsConfig{
			Enabled: v.GetBool("METRICS_ENABLED"),
		},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("DB_DRIVER", DriverPostgres)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "docflow")
	v.SetDefault("DB_PASSWORD", "password")
	v.SetDefault("DB_NAME", "docflow_db")
	v.SetDefault("DB_USE_SSL", false)
	v.SetDefault("DB_PATH", "docs.db")

	v.SetDefault("TOKEN_TTL", time.Hour)
	v.SetDefault("CYRILLIC_ONLY", false)

	v.SetDefault("STORAGE_BACKEND", BackendNone)
	v.SetDefault("MQ_BACKEND", BackendNone)
	v.SetDefault("MQ_CHANNEL", "documents.sent")
	v.SetDefault("RABBITMQ_QUEUE_DURABLE", true)
	v.SetDefault("RABBITMQ_PREFETCH_COUNT", 10)
	v.SetDefault("PUBSUB_SUBSCRIPTION_SUFFIX", "-sub")

	v.SetDefault("METRICS_ENABLED", true)
}
