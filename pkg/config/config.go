package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config agrupa la configuración de la aplicación (lectura vía Viper desde env
// y opcionalmente archivo).
type Config struct {
	App       AppConfig
	DB        DBConfig
	JWT       JWTConfig
	HTTP      HTTPConfig
	VeriFactu VeriFactuConfig
}

// AppConfig configuración general de la aplicación.
type AppConfig struct {
	Env      string // development, staging, production
	Name     string
	LogLevel string
}

// VeriFactuConfig configuración del suministro de registros a la AEAT.
type VeriFactuConfig struct {
	Env           string // dev (no envía, simula) | test (sede de pruebas) | prod
	IssuerName    string // NombreRazon del obligado de emisión
	IssuerTaxID   string // NIF del obligado de emisión
	QRBaseURL     string // URL base del QR de cotejo; vacío usa la del entorno
	SubmitTimeout time.Duration
	RetryInterval time.Duration
	RetryBatch    int
	// Bloque SistemaInformatico que se declara en cada registro.
	SystemName     string
	SystemID       string
	SystemVersion  string
	InstallNumber  string
	ProducerName   string            // NombreRazon del productor del software
	ProducerTaxID  string            // NIF del productor
	SurchargeRates map[string]string // tipo de IVA -> recargo de equivalencia; vacío usa la tabla por defecto
}

// DBConfig configuración de PostgreSQL.
// Si DatabaseURL no está vacío, se usa como connection string completo.
type DBConfig struct {
	DatabaseURL string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
}

// ConnectionString devuelve el DSN a usar: DATABASE_URL si está definido, si
// no el construido con DSN().
func (c DBConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.DSN()
}

// DSN construye el connection string con URL encoding para caracteres
// especiales en la contraseña.
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

// Load lee la configuración desde variables de entorno (y opcionalmente desde
// archivo .env / config.env). Las env vars tienen prioridad.
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
			Name:     getString(v, "APP_NAME", "factu365"),
			LogLevel: getString(v, "LOG_LEVEL", "info"),
		},
		DB: DBConfig{
			DatabaseURL: getString(v, "DATABASE_URL", ""),
			Host:        getString(v, "DB_HOST", "localhost"),
			Port:        getInt(v, "DB_PORT", 5432),
			User:        getString(v, "DB_USER", "postgres"),
			Password:    getString(v, "DB_PASSWORD", ""),
			DBName:      getString(v, "DB_NAME", "factu365"),
			SSLMode:     getString(v, "DB_SSLMODE", "disable"),
		},
		JWT: JWTConfig{
			Secret:     getString(v, "JWT_SECRET", ""),
			Expiration: getInt(v, "JWT_EXPIRATION_MINUTES", 60),
			Issuer:     getString(v, "JWT_ISSUER", "factu365"),
		},
		HTTP: HTTPConfig{
			Host: getString(v, "HTTP_HOST", "0.0.0.0"),
			Port: getInt(v, "HTTP_PORT", 8080),
		},
		VeriFactu: VeriFactuConfig{
			Env:            getString(v, "VERIFACTU_ENV", "dev"),
			IssuerName:     getString(v, "VERIFACTU_ISSUER_NAME", ""),
			IssuerTaxID:    getString(v, "VERIFACTU_ISSUER_NIF", ""),
			QRBaseURL:      getString(v, "VERIFACTU_QR_BASE_URL", ""),
			SubmitTimeout:  time.Duration(getInt(v, "VERIFACTU_SUBMIT_TIMEOUT_SECONDS", 30)) * time.Second,
			RetryInterval:  time.Duration(getInt(v, "VERIFACTU_RETRY_INTERVAL_SECONDS", 60)) * time.Second,
			RetryBatch:     getInt(v, "VERIFACTU_RETRY_BATCH", 20),
			SystemName:     getString(v, "VERIFACTU_SYSTEM_NAME", "Factu365"),
			SystemID:       getString(v, "VERIFACTU_SYSTEM_ID", "F3"),
			SystemVersion:  getString(v, "VERIFACTU_SYSTEM_VERSION", "1.0"),
			InstallNumber:  getString(v, "VERIFACTU_INSTALL_NUMBER", "1"),
			ProducerName:   getString(v, "VERIFACTU_PRODUCER_NAME", ""),
			ProducerTaxID:  getString(v, "VERIFACTU_PRODUCER_NIF", ""),
			SurchargeRates: v.GetStringMapString("VERIFACTU_SURCHARGE_RATES"),
		},
	}

	if cfg.VeriFactu.Env != "dev" && cfg.VeriFactu.IssuerTaxID == "" {
		return nil, fmt.Errorf("config: VERIFACTU_ISSUER_NIF es obligatorio fuera de dev")
	}

	return cfg, nil
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
			n, _ := strconv.Atoi(v.GetString(key))
			return n
		default:
			return v.GetInt(key)
		}
	}
	return def
}
