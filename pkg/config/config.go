package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config agrupa la configuración del servicio de reservas (lectura vía Viper desde env y opcionalmente archivo).
type Config struct {
	App         AppConfig
	DB          DBConfig
	Redis       RedisConfig
	JWT         JWTConfig
	HTTP        HTTPConfig
	Storage     StorageConfig
	Reservation ReservationConfig
	Reaper      ReaperConfig
	Checkout    CheckoutConfig
	Kafka       KafkaConfig
	Tracing     TracingConfig
}

// AppConfig configuración general de la aplicación.
type AppConfig struct {
	Env      string // development, staging, production
	Name     string
	LogLevel string
}

// DBConfig configuración de PostgreSQL (almacén de StockRecord y precios).
// Si DatabaseURL no está vacío, se usa como connection string completo.
type DBConfig struct {
	DatabaseURL string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	MaxConns    int
}

// ConnectionString devuelve el DSN a usar: DATABASE_URL si está definido, si no el construido con DSN().
func (c DBConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.DSN()
}

// DSN devuelve el connection string para PostgreSQL con URL encoding para caracteres especiales.
func (c DBConfig) DSN() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s", c.SSLMode),
	}
	return u.String()
}

// RedisConfig almacén de reservas con TTL.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// JWTConfig configuración de JWT.
type JWTConfig struct {
	Secret     string
	Expiration int // minutos
	Issuer     string
}

// HTTPConfig configuración del servidor HTTP.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr devuelve la dirección de escucha (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// StorageConfig selección de backends: "postgres" | "memory" para stock, "redis" | "memory" para reservas.
type StorageConfig struct {
	Stock        string
	Reservations string
}

// ReservationConfig vigencia de reservas y política de reintentos optimistas.
type ReservationConfig struct {
	DefaultTTL        time.Duration
	RetainTerminal    time.Duration
	PendingGrace      time.Duration
	SettleTimeout     time.Duration
	MaxRetries        int
	InitialBackoff    time.Duration
	BackoffMultiplier float64
}

// ReaperConfig barrido periódico de reservas vencidas.
type ReaperConfig struct {
	Enabled   bool
	Interval  time.Duration
	BatchSize int
}

// CheckoutConfig tasas de impuesto por categoría, formato "standard=0.19,reduced=0.05".
type CheckoutConfig struct {
	TaxRates string
}

// KafkaConfig eventos del ciclo de vida. Sin brokers no se publica nada.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// TracingConfig exportador Jaeger. Endpoint vacío = sin exportador.
type TracingConfig struct {
	JaegerEndpoint string
}

// Load lee la configuración desde variables de entorno (y opcionalmente desde archivo).
// Las env vars tienen prioridad. Nombres esperados: APP_ENV, DB_HOST, REDIS_ADDR, RESERVATION_TTL, etc.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // ignoramos error si no existe

	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		App: AppConfig{
			Env:      getString(v, "APP_ENV", "development"),
			Name:     getString(v, "APP_NAME", "stock-reservations"),
			LogLevel: getString(v, "LOG_LEVEL", "info"),
		},
		DB: DBConfig{
			DatabaseURL: getString(v, "DATABASE_URL", ""),
			Host:        getString(v, "DB_HOST", "localhost"),
			Port:        getInt(v, "DB_PORT", 5432),
			User:        getString(v, "DB_USER", "postgres"),
			Password:    getString(v, "DB_PASSWORD", ""),
			DBName:      getString(v, "DB_NAME", "stock_reservations"),
			SSLMode:     getString(v, "DB_SSLMODE", "disable"),
			MaxConns:    getInt(v, "DB_MAX_CONNS", 25),
		},
		Redis: RedisConfig{
			Addr:      getString(v, "REDIS_ADDR", "localhost:6379"),
			Password:  getString(v, "REDIS_PASSWORD", ""),
			DB:        getInt(v, "REDIS_DB", 0),
			KeyPrefix: getString(v, "REDIS_KEY_PREFIX", "stockres"),
		},
		JWT: JWTConfig{
			Secret:     getString(v, "JWT_SECRET", ""),
			Expiration: getInt(v, "JWT_EXPIRATION_MINUTES", 60),
			Issuer:     getString(v, "JWT_ISSUER", "stock-reservations"),
		},
		HTTP: HTTPConfig{
			Host: getString(v, "HTTP_HOST", "0.0.0.0"),
			Port: getInt(v, "HTTP_PORT", 8080),
		},
		Storage: StorageConfig{
			Stock:        strings.ToLower(getString(v, "STOCK_BACKEND", "postgres")),
			Reservations: strings.ToLower(getString(v, "RESERVATION_BACKEND", "redis")),
		},
		Reservation: ReservationConfig{
			DefaultTTL:        getDuration(v, "RESERVATION_TTL", 15*time.Minute),
			RetainTerminal:    getDuration(v, "RESERVATION_RETAIN", 24*time.Hour),
			PendingGrace:      getDuration(v, "RESERVATION_PENDING_GRACE", time.Hour),
			SettleTimeout:     getDuration(v, "RESERVATION_SETTLE_TIMEOUT", 30*time.Second),
			MaxRetries:        getInt(v, "STOCK_MAX_RETRIES", 3),
			InitialBackoff:    getDuration(v, "STOCK_INITIAL_BACKOFF", 100*time.Millisecond),
			BackoffMultiplier: getFloat(v, "STOCK_BACKOFF_MULTIPLIER", 2),
		},
		Reaper: ReaperConfig{
			Enabled:   getBool(v, "REAPER_ENABLED", true),
			Interval:  getDuration(v, "REAPER_INTERVAL", 30*time.Second),
			BatchSize: getInt(v, "REAPER_BATCH_SIZE", 100),
		},
		Checkout: CheckoutConfig{
			TaxRates: getString(v, "CHECKOUT_TAX_RATES", "standard=0.19,reduced=0.05,exempt=0"),
		},
		Kafka: KafkaConfig{
			Brokers: getList(v, "KAFKA_BROKERS"),
			Topic:   getString(v, "KAFKA_TOPIC", "reservation-events"),
		},
		Tracing: TracingConfig{
			JaegerEndpoint: getString(v, "JAEGER_ENDPOINT", ""),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Stock {
	case "postgres", "memory":
	default:
		return fmt.Errorf("config: STOCK_BACKEND inválido %q (postgres|memory)", c.Storage.Stock)
	}
	switch c.Storage.Reservations {
	case "redis", "memory":
	default:
		return fmt.Errorf("config: RESERVATION_BACKEND inválido %q (redis|memory)", c.Storage.Reservations)
	}
	if c.Reservation.DefaultTTL <= 0 {
		return fmt.Errorf("config: RESERVATION_TTL debe ser positivo")
	}
	if c.Reservation.MaxRetries < 1 {
		return fmt.Errorf("config: STOCK_MAX_RETRIES debe ser >= 1")
	}
	return nil
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		switch v.Get(key).(type) {
		case int:
			return v.GetInt(key)
		case string:
			n, err := strconv.Atoi(v.GetString(key))
			if err != nil {
				return def
			}
			return n
		default:
			return v.GetInt(key)
		}
	}
	return def
}

func getFloat(v *viper.Viper, key string, def float64) float64 {
	if v.IsSet(key) {
		f, err := strconv.ParseFloat(v.GetString(key), 64)
		if err != nil {
			return def
		}
		return f
	}
	return def
}

func getBool(v *viper.Viper, key string, def bool) bool {
	if v.IsSet(key) {
		b, err := strconv.ParseBool(v.GetString(key))
		if err != nil {
			return def
		}
		return b
	}
	return def
}

// getDuration acepta "15m", "30s" o un número entero de segundos.
func getDuration(v *viper.Viper, key string, def time.Duration) time.Duration {
	if !v.IsSet(key) {
		return def
	}
	raw := strings.TrimSpace(v.GetString(key))
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	return def
}

func getList(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v.GetString(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
