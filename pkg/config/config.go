package config

import (
	"os"
	"sync"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"
	"sigs.k8s.io/yaml"
)

type Config struct {
	Host       string `json:"host"`       // The domain name of the server.
	ServerAddr string `json:"serverAddr"` // The address the server endpoint binds to.

	Auth struct {
		AccessTokenSecret  string `json:"accessTokenSecret"`
		RefreshTokenSecret string `json:"refreshTokenSecret"`
		// Optional LDAP bind authentication. When disabled, only password login
		// against the local user table is available.
		LDAP struct {
			Enable   bool   `json:"enable"`
			Address  string `json:"address"`
			SearchDN string `json:"searchDN"`
			UserName string `json:"userName"`
			Password string `json:"password"`
		} `json:"ldap"`
	} `json:"auth"`

	Postgres struct {
		Host     string `json:"host"`
		Port     string `json:"port"`
		DBName   string `json:"dbname"`
		User     string `json:"user"`
		Password string `json:"password"`
		SSLMode  string `json:"sslmode"`
		TimeZone string `json:"TimeZone"`
	} `json:"postgres"`

	SMTP struct {
		Host     string `json:"host"`
		Port     int    `json:"port"`
		User     string `json:"user"`
		Password string `json:"password"`
		From     string `json:"from"`
	} `json:"smtp"`

	// External AI classification service for email triage.
	Classifier struct {
		URL            string `json:"url"`
		APIKey         string `json:"apiKey"`
		TimeoutSeconds int    `json:"timeoutSeconds"`
	} `json:"classifier"`

	Outbox struct {
		DrainSpec string `json:"drainSpec"` // cron spec for the outbox drain worker
		SweepSpec string `json:"sweepSpec"` // cron spec for the invitation expiry sweep
	} `json:"outbox"`
}

var (
	once   sync.Once
	config *Config
)

func GetConfig() *Config {
	once.Do(func() {
		config = initConfig()
	})
	return config
}

func IsDebugMode() bool {
	return gin.Mode() == gin.DebugMode
}

// initConfig reads the configuration file. In debug mode it reads the local
// debug-config.yaml; otherwise it reads the config.yaml mounted from ConfigMap.
func initConfig() *Config {
	config := &Config{}
	var configPath string
	if IsDebugMode() {
		if os.Getenv("TEAMSPACE_DEBUG_CONFIG_PATH") != "" {
			configPath = os.Getenv("TEAMSPACE_DEBUG_CONFIG_PATH")
		} else {
			configPath = "./etc/debug-config.yaml"
		}
	} else {
		configPath = "/etc/config/config.yaml"
	}

	configFile, err := os.ReadFile(configPath)
	if err != nil {
		klog.Fatalf("Read config file failed, detail: %v", err)
	}
	if err := yaml.Unmarshal(configFile, config); err != nil {
		klog.Fatalf("Unmarshal config file failed, detail: %v", err)
	}

	if config.Outbox.DrainSpec == "" {
		config.Outbox.DrainSpec = "@every 15s"
	}
	if config.Outbox.SweepSpec == "" {
		config.Outbox.SweepSpec = "@every 10m"
	}
	return config
}
