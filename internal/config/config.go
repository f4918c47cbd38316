package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env                 string
	Port                string
	SessionSecret       string
	DatabaseURL         string
	RedisURL            string
	FrontendURLEndsWith string
	DevPassword         string
	AllowCrossSiteDev   bool

	// M-Pesa Daraja (STK push)
	MpesaConsumerKey    string
	MpesaConsumerSecret string
	MpesaShortcode      string
	MpesaPasskey        string
	MpesaBaseURL        string // default https://sandbox.safaricom.co.ke
	MpesaCallbackURL    string

	// Paystack (redirect flow)
	PaystackSecretKey   string
	PaystackBaseURL     string // default https://api.paystack.co
	PaystackCallbackURL string

	// Delivery pricing collaborators
	NominatimBaseURL string // default https://nominatim.openstreetmap.org
	OSRMBaseURL      string // default http://router.project-osrm.org
	GeocodeRegion    string // local search bias appended to addresses, default "Nyeri"

	// PAYMENT_TEST_MODE short-circuits provider confirmation.
	// Never honored when APP_ENV=production.
	PaymentTestMode bool
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	port := viper.GetString("PORT")
	if port == "" {
		port = "8080"
	}
	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	dbURL := viper.GetString("DATABASE_URL_DEV")
	if env == "production" {
		dbURL = viper.GetString("DATABASE_URL_PROD")
	} else if env == "test" {
		dbURL = viper.GetString("DATABASE_URL_TEST")
	}
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL_DEV")
	}

	return &Config{
		Env:                 env,
		Port:                port,
		SessionSecret:       viper.GetString("SESSION_SECRET"),
		DatabaseURL:         dbURL,
		RedisURL:            viper.GetString("REDIS_URL"),
		FrontendURLEndsWith: viper.GetString("FRONTEND_URL_ENDS_WITH"),
		DevPassword:         viper.GetString("DEV_PASSWORD"),
		AllowCrossSiteDev:   strings.EqualFold(viper.GetString("ALLOW_CROSS_SITE_DEV"), "true"),

		MpesaConsumerKey:    viper.GetString("MPESA_CONSUMER_KEY"),
		MpesaConsumerSecret: viper.GetString("MPESA_CONSUMER_SECRET"),
		MpesaShortcode:      viper.GetString("MPESA_SHORTCODE"),
		MpesaPasskey:        viper.GetString("MPESA_PASSKEY"),
		MpesaBaseURL:        withDefault(viper.GetString("MPESA_BASE_URL"), "https://sandbox.safaricom.co.ke"),
		MpesaCallbackURL:    viper.GetString("MPESA_CALLBACK_URL"),

		PaystackSecretKey:   viper.GetString("PAYSTACK_SECRET_KEY"),
		PaystackBaseURL:     withDefault(viper.GetString("PAYSTACK_BASE_URL"), "https://api.paystack.co"),
		PaystackCallbackURL: viper.GetString("PAYSTACK_CALLBACK_URL"),

		NominatimBaseURL: withDefault(viper.GetString("NOMINATIM_BASE_URL"), "https://nominatim.openstreetmap.org"),
		OSRMBaseURL:      withDefault(viper.GetString("OSRM_BASE_URL"), "http://router.project-osrm.org"),
		GeocodeRegion:    withDefault(viper.GetString("GEOCODE_REGION"), "Nyeri"),

		PaymentTestMode: env != "production" && strings.EqualFold(viper.GetString("PAYMENT_TEST_MODE"), "true"),
	}, nil
}

func withDefault(s, def string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	return s
}
