package config

import (
	"fmt"
	"time"

	"github.com/anonto42/picshare/backend/internal/retry"
	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Backend drivers
const (
	DriverFirestore = "firestore"
	DriverMongo     = "mongo"
	DriverMemory    = "memory"
	DriverFirebase  = "firebase"
	DriverLocal     = "local"
)

// nolint:lll
type Config struct {
	Host     string `long:"http.host" env:"HTTP_HOST" default:"0.0.0.0" description:"IP to listen on"`
	Port     int    `long:"http.port" env:"PORT" default:"8080" description:"port to listen on"`
	Env      string `long:"env" env:"ENV" default:"development" description:"deployment environment"`
	LogLevel string `long:"log.level" env:"LOG_LEVEL" default:"info" description:"log level" choice:"debug" choice:"info" choice:"warning" choice:"error"`

	StoreDriver string `long:"store.driver" env:"STORE_DRIVER" default:"firestore" description:"document store" choice:"firestore" choice:"mongo" choice:"memory"`
	AuthDriver  string `long:"auth.driver" env:"AUTH_DRIVER" default:"firebase" description:"authentication backend" choice:"firebase" choice:"local"`
	BlobDriver  string `long:"blob.driver" env:"BLOB_DRIVER" default:"firebase" description:"image storage" choice:"firebase" choice:"local"`

	FirebaseCredentialsPath string `long:"firebase.credentials" env:"FIREBASE_CREDENTIALS_PATH" default:"./firebase_credentials.json" description:"service account key file"`
	FirebaseAPIKey          string `long:"firebase.api_key" env:"FIREBASE_API_KEY" description:"web API key used for password sign-in"`
	FirebaseBucket          string `long:"firebase.bucket" env:"FIREBASE_STORAGE_BUCKET" description:"storage bucket, e.g. <project>.appspot.com"`

	MongoURI      string `long:"mongo.uri" env:"MONGO_URI" default:"mongodb://localhost:27017" description:"mongo connection string"`
	MongoDatabase string `long:"mongo.database" env:"MONGO_DATABASE" default:"picshare" description:"mongo database name"`

	PostgresURL string        `long:"postgres" env:"POSTGRES_URL" default:"host=localhost port=5432 user=postgres password=root dbname=picshare sslmode=disable" description:"postgres dsn of the local credential store"`
	JWTSecret   string        `long:"jwt.secret" env:"JWT_SECRET" description:"HMAC secret for locally issued session tokens"`
	JWTTTL      time.Duration `long:"jwt.ttl" env:"JWT_TTL" default:"72h" description:"lifetime of locally issued session tokens"`

	LocalStoragePath string `long:"local_storage.path" env:"LOCAL_STORAGE_PATH" default:"./uploads" description:"directory of locally stored images"`
	LocalStorageURL  string `long:"local_storage.url" env:"LOCAL_STORAGE_URL" default:"http://localhost:8080/uploads" description:"public URL prefix of locally stored images"`

	RequestTimeout time.Duration `long:"request.timeout" env:"REQUEST_TIMEOUT" default:"10s" description:"timeout of a single backend request, 0 means the SDK default"`
	RetryAttempts  int           `long:"request.attempts" env:"REQUEST_ATTEMPTS" default:"1" description:"attempts for idempotent backend reads"`
	RetryBackoff   time.Duration `long:"request.backoff" env:"REQUEST_BACKOFF" default:"500ms" description:"backoff between attempts, multiplied by the attempt number"`

	DisableUsernameGuard bool          `long:"username_guard.disable" env:"DISABLE_USERNAME_GUARD" description:"rely on the username pre-check only"`
	FeedWindow           time.Duration `long:"feed.window" env:"FEED_WINDOW" default:"24h" description:"age limit of posts in the general feed"`
}

// Load reads a .env file if present and parses flags and environment.
// A help request is returned as a *flags.Error of type flags.ErrHelp.
func Load(args []string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("no .env file found, assuming environment variables are set")
	}

	var cfg Config
	parser := flags.NewParser(&cfg, flags.Default)
	parser.ShortDescription = "picshare"
	parser.LongDescription = "picshare social backend"
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.AuthDriver == DriverLocal && c.JWTSecret == "" {
		return fmt.Errorf("jwt secret is required by the local auth driver")
	}
	if c.AuthDriver == DriverFirebase && c.FirebaseAPIKey == "" {
		return fmt.Errorf("firebase api key is required by the firebase auth driver")
	}
	if c.BlobDriver == DriverFirebase && c.FirebaseBucket == "" {
		return fmt.Errorf("firebase bucket is required by the firebase blob driver")
	}
	return nil
}

// NeedsFirebase reports whether any driver uses the firebase app
func (c *Config) NeedsFirebase() bool {
	return c.StoreDriver == DriverFirestore || c.AuthDriver == DriverFirebase || c.BlobDriver == DriverFirebase
}

// Addr is the HTTP listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RetryPolicy is the timeout and retry policy of backend requests
func (c *Config) RetryPolicy() retry.Policy {
	return retry.Policy{
		Timeout:     c.RequestTimeout,
		MaxAttempts: c.RetryAttempts,
		Backoff:     c.RetryBackoff,
	}
}
