package config

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

// Artifact store backends.
const (
	StoreFilesystem = "filesystem"
	StorePostgres   = "postgres"
	StoreConfigMap  = "configmap"
)

type Config struct {
	Server     ServerConfig
	Logger     LoggerConfig
	Artifacts  ArtifactConfig
	Database   DatabaseConfig
	Kubernetes KubernetesConfig
	Model      ModelConfig
	Metrics    MetricsConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
}

type LoggerConfig struct {
	Level  string
	Format string
}

type ArtifactConfig struct {
	Store       string
	Dir         string
	SLAName     string
	FailureName string
	AnomalyName string
	LoadTimeout time.Duration
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	Table           string
}

// DSN builds a postgres connection URL.
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     d.Name,
		RawQuery: url.Values{"sslmode": []string{d.SSLMode}}.Encode(),
	}
	return u.String()
}

type KubernetesConfig struct {
	InCluster      bool
	KubeConfigPath string
	Namespace      string
	ConfigMap      string
}

type ModelConfig struct {
	// DecisionThreshold is the strict cutoff for a positive classifier
	// prediction.
	DecisionThreshold float64
}

type MetricsConfig struct {
	Enabled bool
}

func Load() (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8000)
	v.SetDefault("SERVER_SHUTDOWN_TIMEOUT", "10s")
	v.SetDefault("LOGGER_LEVEL", "info")
	v.SetDefault("LOGGER_FORMAT", "json")
	v.SetDefault("ARTIFACT_STORE", StoreFilesystem)
	v.SetDefault("ARTIFACT_DIR", "./ml_models")
	v.SetDefault("ARTIFACT_SLA_NAME", "sla_model")
	v.SetDefault("ARTIFACT_FAILURE_NAME", "failure_model")
	v.SetDefault("ARTIFACT_ANOMALY_NAME", "anomaly_model")
	v.SetDefault("ARTIFACT_LOAD_TIMEOUT", "30s")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "password")
	v.SetDefault("DB_NAME", "finsight2")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 4)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "30m")
	v.SetDefault("DB_TABLE", "model_artifact")
	v.SetDefault("K8S_IN_CLUSTER", false)
	v.SetDefault("K8S_KUBECONFIG", "")
	v.SetDefault("K8S_NAMESPACE", "model-serving")
	v.SetDefault("K8S_CONFIGMAP", "ml-models")
	v.SetDefault("MODEL_DECISION_THRESHOLD", 0.5)
	v.SetDefault("METRICS_ENABLED", true)

	// Env
	v.AutomaticEnv()

	shutdown, err := parseDuration(v, "SERVER_SHUTDOWN_TIMEOUT")
	if err != nil {
		return nil, err
	}
	loadTimeout, err := parseDuration(v, "ARTIFACT_LOAD_TIMEOUT")
	if err != nil {
		return nil, err
	}
	connLifetime, err := parseDuration(v, "DB_CONN_MAX_LIFETIME")
	if err != nil {
		return nil, err
	}
	serverPort, err := parseInt(v, "SERVER_PORT")
	if err != nil {
		return nil, err
	}
	dbPort, err := parseInt(v, "DB_PORT")
	if err != nil {
		return nil, err
	}
	maxOpenConns, err := parseInt(v, "DB_MAX_OPEN_CONNS")
	if err != nil {
		return nil, err
	}
	threshold, err := parseFloat(v, "MODEL_DECISION_THRESHOLD")
	if err != nil {
		return nil, err
	}
	inCluster, err := parseBool(v, "K8S_IN_CLUSTER")
	if err != nil {
		return nil, err
	}
	metricsEnabled, err := parseBool(v, "METRICS_ENABLED")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:            v.GetString("SERVER_HOST"),
			Port:            serverPort,
			ShutdownTimeout: shutdown,
		},
		Logger: LoggerConfig{
			Level:  v.GetString("LOGGER_LEVEL"),
			Format: v.GetString("LOGGER_FORMAT"),
		},
		Artifacts: ArtifactConfig{
			Store:       v.GetString("ARTIFACT_STORE"),
			Dir:         v.GetString("ARTIFACT_DIR"),
			SLAName:     v.GetString("ARTIFACT_SLA_NAME"),
			FailureName: v.GetString("ARTIFACT_FAILURE_NAME"),
			AnomalyName: v.GetString("ARTIFACT_ANOMALY_NAME"),
			LoadTimeout: loadTimeout,
		},
		Database: DatabaseConfig{
			Host:            v.GetString("DB_HOST"),
			Port:            dbPort,
			User:            v.GetString("DB_USER"),
			Password:        v.GetString("DB_PASSWORD"),
			Name:            v.GetString("DB_NAME"),
			SSLMode:         v.GetString("DB_SSLMODE"),
			MaxOpenConns:    maxOpenConns,
			ConnMaxLifetime: connLifetime,
			Table:           v.GetString("DB_TABLE"),
		},
		Kubernetes: KubernetesConfig{
			InCluster:      inCluster,
			KubeConfigPath: v.GetString("K8S_KUBECONFIG"),
			Namespace:      v.GetString("K8S_NAMESPACE"),
			ConfigMap:      v.GetString("K8S_CONFIGMAP"),
		},
		Model: ModelConfig{
			DecisionThreshold: threshold,
		},
		Metrics: MetricsConfig{
			Enabled: metricsEnabled,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	switch c.Artifacts.Store {
	case StoreFilesystem, StorePostgres, StoreConfigMap:
	default:
		return fmt.Errorf("ARTIFACT_STORE must be one of %s, %s, %s; got %q",
			StoreFilesystem, StorePostgres, StoreConfigMap, c.Artifacts.Store)
	}
	// Written so that NaN fails.
	if !(c.Model.DecisionThreshold >= 0 && c.Model.DecisionThreshold <= 1) {
		return fmt.Errorf("MODEL_DECISION_THRESHOLD must be between 0 and 1, got %v", c.Model.DecisionThreshold)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be a valid port, got %d", c.Server.Port)
	}
	if c.Database.MaxOpenConns < 1 {
		return fmt.Errorf("DB_MAX_OPEN_CONNS must be at least 1, got %d", c.Database.MaxOpenConns)
	}
	if c.Artifacts.SLAName == "" || c.Artifacts.FailureName == "" || c.Artifacts.AnomalyName == "" {
		return fmt.Errorf("artifact names must not be empty")
	}
	return nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	d, err := time.ParseDuration(v.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func parseInt(v *viper.Viper, key string) (int, error) {
	n, err := strconv.Atoi(v.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func parseFloat(v *viper.Viper, key string) (float64, error) {
	f, err := strconv.ParseFloat(v.GetString(key), 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func parseBool(v *viper.Viper, key string) (bool, error) {
	b, err := strconv.ParseBool(v.GetString(key))
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}
