package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var (
	Port     string
	Debug    bool
	Store    string
	MongoURI string
	DBName   string

	JWTSecret     string
	JWTTTL        time.Duration
	ResetTokenTTL time.Duration
	CookieName    string

	OTPTTL          time.Duration
	OTPMaxAttempts  int
	OTPCooldown     time.Duration
	OTPWindow       time.Duration
	OTPMaxPerWindow int
	RedisAddr       string
	RedisPassword   string

	NotifyMode       string
	SendgridAPIKey   string
	EmailFromName    string
	EmailFromAddress string
	MSG91AuthKey     string
	MSG91TemplateID  string
	MSG91BaseURL     string

	AWSRegion     string
	AWSBucketName string

	LogLevel    string
	LogDev      bool
	CORSOrigins []string
)

// LoadConfig loads environment variables from .env file and applies defaults.
func LoadConfig() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using default values or system environment variables")
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	apply(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("DEBUG", false)
	v.SetDefault("STORE", "mongo")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017/")
	v.SetDefault("DB_NAME", "temple")

	v.SetDefault("JWT_TTL", 24*time.Hour)
	v.SetDefault("RESET_TOKEN_TTL", 15*time.Minute)
	v.SetDefault("COOKIE_NAME", "token")

	v.SetDefault("OTP_TTL", 10*time.Minute)
	v.SetDefault("OTP_MAX_ATTEMPTS", 5)
	v.SetDefault("OTP_COOLDOWN", 30*time.Second)
	v.SetDefault("OTP_WINDOW", 15*time.Minute)
	v.SetDefault("OTP_MAX_PER_WINDOW", 5)

	v.SetDefault("NOTIFY_MODE", "console")
	v.SetDefault("EMAIL_FROM_NAME", "Temple Connect")
	v.SetDefault("EMAIL_FROM_ADDRESS", "no-reply@templeconnect.org")
	v.SetDefault("MSG91_BASE_URL", "https://control.msg91.com")

	v.SetDefault("AWS_REGION", "ap-south-1")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ORIGINS", "")
}

func apply(v *viper.Viper) {
	Port = v.GetString("PORT")
	Debug = v.GetBool("DEBUG")
	Store = strings.ToLower(v.GetString("STORE"))
	MongoURI = v.GetString("MONGO_URI")
	DBName = v.GetString("DB_NAME")

	JWTSecret = v.GetString("JWT_SECRET")
	JWTTTL = v.GetDuration("JWT_TTL")
	ResetTokenTTL = v.GetDuration("RESET_TOKEN_TTL")
	CookieName = v.GetString("COOKIE_NAME")

	OTPTTL = v.GetDuration("OTP_TTL")
	OTPMaxAttempts = v.GetInt("OTP_MAX_ATTEMPTS")
	OTPCooldown = v.GetDuration("OTP_COOLDOWN")
	OTPWindow = v.GetDuration("OTP_WINDOW")
	OTPMaxPerWindow = v.GetInt("OTP_MAX_PER_WINDOW")
	RedisAddr = v.GetString("REDIS_ADDR")
	RedisPassword = v.GetString("REDIS_PASSWORD")

	NotifyMode = strings.ToLower(v.GetString("NOTIFY_MODE"))
	SendgridAPIKey = v.GetString("SENDGRID_API_KEY")
	EmailFromName = v.GetString("EMAIL_FROM_NAME")
	EmailFromAddress = v.GetString("EMAIL_FROM_ADDRESS")
	MSG91AuthKey = v.GetString("MSG91_AUTH_KEY")
	MSG91TemplateID = v.GetString("MSG91_TEMPLATE_ID")
	MSG91BaseURL = v.GetString("MSG91_BASE_URL")

	AWSRegion = v.GetString("AWS_REGION")
	AWSBucketName = v.GetString("AWS_BUCKET_NAME")

	LogLevel = v.GetString("LOG_LEVEL")
	LogDev = v.GetString("LOG_DEV") == "1"
	CORSOrigins = splitList(v.GetString("CORS_ORIGINS"))
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
