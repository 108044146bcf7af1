package config

type App struct {
	Port            string `env:"APP_PORT" default:"8080"`
	DatabaseURL     string `env:"DATABASE_URL,required"`
	JWTSecret       string `env:"JWT_SECRET,required"`
	StripeSecretKey string `env:"STRIPE_SECRET_KEY"`
	Env             string `env:"APP_ENV" default:"dev"`

	// Authorization thresholds, in currency units.
	AdjustLimit    string `env:"ADJUST_LIMIT" default:"1000"`
	BulkGrantLimit string `env:"BULK_GRANT_LIMIT" default:"100"`

	// Fan-out width for bulk grants.
	BulkWorkers int `env:"BULK_WORKERS" default:"8"`
}
