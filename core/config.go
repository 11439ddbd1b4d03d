package core

import (
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		AppName         string
		Build           string
		Env             string // DEV (local; default), TEST, QA, PROD
		Debug           bool
		TestMode        bool
		FrontendBaseURL string

		Server   ServerConfig
		Auth     AuthConfig
		Database DatabaseConfig
		Cache    CacheConfig
		Catalog  CatalogConfig
		Maps     MapsConfig
		Campus   CampusConfig
		Email    EmailConfig
		Rollbar  RollbarConfig
	}

	ServerConfig struct {
		Host            string
		Addr            string
		DebugAddr       string
		ShutdownTimeout time.Duration
	}

	AuthConfig struct {
		JWTSecret string
		Audience  string
		Issuer    string
	}

	DatabaseConfig struct {
		Engine        string // postgres | memory
		Host          string
		Port          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		Name          string
		DisableTLS    bool
	}

	CacheConfig struct {
		Driver          string // memory | redis
		RedisAddr       string
		RedisPassword   string
		RedisDB         int
		JanitorInterval time.Duration
	}

	CatalogConfig struct {
		BaseURL     string
		MinInterval time.Duration
		Timeout     time.Duration
		RostersTTL  time.Duration
		SubjectsTTL time.Duration
		SearchTTL   time.Duration
	}

	MapsConfig struct {
		APIKey        string
		BaseURL       string
		GeocodeSuffix string
		Timeout       time.Duration
		GeocodeTTL    time.Duration
		DirectionsTTL time.Duration
	}

	CampusConfig struct {
		BuildingsFile string
		WatchFile     bool
		MaxGapToCheck time.Duration
		WalkingSpeed  float64 // meters per second
		Timezone      string
	}

	EmailConfig struct {
		DefaultFrom    string
		SendgridAPIKey string
	}

	RollbarConfig struct {
		Token string
	}
)

func (dbc DatabaseConfig) Address() string {
	return net.JoinHostPort(dbc.Host, dbc.Port)
}

func (c *Config) DefaultFromEmail() string {
	return c.Email.DefaultFrom
}

func setDefaults(v *viper.Viper) {
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "Course Mapper")
	v.SetDefault("build", "develop")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.debugAddr", ":4000")
	v.SetDefault("server.shutdownTimeout", 10*time.Second)

	v.SetDefault("auth.jwtSecret", "q7b!zx_0p#ml4c$e9rd@ukv2h&w8ny^t")
	v.SetDefault("auth.audience", "authenticated")
	v.SetDefault("auth.issuer", "")

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "coursemapper")
	v.SetDefault("database.password", "coursemapper")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.name", "coursemapper")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("cache.driver", "memory")
	v.SetDefault("cache.redisAddr", "localhost:6379")
	v.SetDefault("cache.redisPassword", "")
	v.SetDefault("cache.redisDB", 0)
	v.SetDefault("cache.janitorInterval", time.Minute)

	v.SetDefault("catalog.baseURL", "https://classes.cornell.edu/api/2.0")
	v.SetDefault("catalog.minInterval", time.Second)
	v.SetDefault("catalog.timeout", 15*time.Second)
	v.SetDefault("catalog.rostersTTL", 24*time.Hour)
	v.SetDefault("catalog.subjectsTTL", 24*time.Hour)
	v.SetDefault("catalog.searchTTL", time.Hour)

	v.SetDefault("maps.apiKey", "")
	v.SetDefault("maps.baseURL", "https://maps.googleapis.com/maps/api")
	v.SetDefault("maps.geocodeSuffix", ", Cornell University, Ithaca, NY")
	v.SetDefault("maps.timeout", 10*time.Second)
	v.SetDefault("maps.geocodeTTL", 30*24*time.Hour)
	v.SetDefault("maps.directionsTTL", 7*24*time.Hour)

	v.SetDefault("campus.buildingsFile", "")
	v.SetDefault("campus.watchFile", false)
	v.SetDefault("campus.maxGapToCheck", time.Hour)
	v.SetDefault("campus.walkingSpeed", 1.4)
	v.SetDefault("campus.timezone", "America/New_York")

	v.SetDefault("email.defaultFrom", "noreply@localhost")
	v.SetDefault("email.sendgridApiKey", "")

	v.SetDefault("rollbar.token", "")
}

// NewConfig loads the app configuration from defaults, the optional `config/.env.<env>` file
// and the environment (prefixed with the env name, eg. PROD_DATABASE_HOST).
func NewConfig() *Config {
	v := viper.New()
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return fromViper(v, env)
}

func fromViper(v *viper.Viper, env string) *Config {
	return &Config{
		AppName:         v.GetString("appName"),
		Build:           v.GetString("build"),
		Env:             env,
		Debug:           v.GetBool("debug"),
		TestMode:        v.GetBool("testMode"),
		FrontendBaseURL: v.GetString("frontendBaseURL"),
		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			Addr:            v.GetString("server.addr"),
			DebugAddr:       v.GetString("server.debugAddr"),
			ShutdownTimeout: v.GetDuration("server.shutdownTimeout"),
		},
		Auth: AuthConfig{
			JWTSecret: v.GetString("auth.jwtSecret"),
			Audience:  v.GetString("auth.audience"),
			Issuer:    v.GetString("auth.issuer"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			Name:          v.GetString("database.name"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		Cache: CacheConfig{
			Driver:          v.GetString("cache.driver"),
			RedisAddr:       v.GetString("cache.redisAddr"),
			RedisPassword:   v.GetString("cache.redisPassword"),
			RedisDB:         v.GetInt("cache.redisDB"),
			JanitorInterval: v.GetDuration("cache.janitorInterval"),
		},
		Catalog: CatalogConfig{
			BaseURL:     v.GetString("catalog.baseURL"),
			MinInterval: v.GetDuration("catalog.minInterval"),
			Timeout:     v.GetDuration("catalog.timeout"),
			RostersTTL:  v.GetDuration("catalog.rostersTTL"),
			SubjectsTTL: v.GetDuration("catalog.subjectsTTL"),
			SearchTTL:   v.GetDuration("catalog.searchTTL"),
		},
		Maps: MapsConfig{
			APIKey:        v.GetString("maps.apiKey"),
			BaseURL:       v.GetString("maps.baseURL"),
			GeocodeSuffix: v.GetString("maps.geocodeSuffix"),
			Timeout:       v.GetDuration("maps.timeout"),
			GeocodeTTL:    v.GetDuration("maps.geocodeTTL"),
			DirectionsTTL: v.GetDuration("maps.directionsTTL"),
		},
		Campus: CampusConfig{
			BuildingsFile: v.GetString("campus.buildingsFile"),
			WatchFile:     v.GetBool("campus.watchFile"),
			MaxGapToCheck: v.GetDuration("campus.maxGapToCheck"),
			WalkingSpeed:  v.GetFloat64("campus.walkingSpeed"),
			Timezone:      v.GetString("campus.timezone"),
		},
		Email: EmailConfig{
			DefaultFrom:    v.GetString("email.defaultFrom"),
			SendgridAPIKey: v.GetString("email.sendgridApiKey"),
		},
		Rollbar: RollbarConfig{
			Token: v.GetString("rollbar.token"),
		},
	}
}

// NewTestConfig returns the defaults in TEST mode, without reading the environment.
func NewTestConfig() *Config {
	v := viper.New()
	setDefaults(v)
	v.Set("debug", false)
	v.Set("testMode", true)
	v.Set("database.engine", "memory")
	v.Set("catalog.minInterval", time.Duration(0))
	return fromViper(v, "TEST")
}

func (c *Config) String() string {
	return fmt.Sprintf("%s (%s) build=%s debug=%t", c.AppName, c.Env, c.Build, c.Debug)
}
