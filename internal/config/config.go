package config // package config loads application configuration from environment variables

import (
    "log"     // log is used to report configuration errors and halt execution
    "os"      // os provides access to environment variables
    "strconv" // strconv converts strings to other types
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for durations
// and costs.  Token lifetimes are policy constants of the deployment, not
// of the code, so they are all sourced from the environment.
type Config struct {
    Env            string // application environment (e.g. "dev", "prod")
    Port           string // HTTP port to listen on
    DBDriver       string // database driver ("mysql" in production, "sqlite" for local runs)
    DBUser         string // database username
    DBPass         string // database password (optional)
    DBHost         string // database host address
    DBPort         string // database port number
    DBName         string // database name (or file path when the driver is sqlite)
    JWTSecret      string // secret used to sign JWTs
    AccessTTLMin   int    // user access token time-to-live in minutes
    RefreshTTLDays int    // user refresh token time-to-live in days
    DeviceTTLDays  int    // display device token time-to-live in days
    BcryptCost     int    // bcrypt cost for password hashing
    MediaDir       string // directory where uploaded media files are written
    RabbitURL      string // AMQP broker URL for domain events (optional)
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
    return Config{
        Env:            must("APP_ENV"),                       // environment (dev/test/prod)
        Port:           must("APP_PORT"),                      // port to bind the HTTP server
        DBDriver:       getenv("DB_DRIVER", "mysql"),          // driver name; defaults to mysql
        DBUser:         os.Getenv("DB_USER"),                  // database user (unused for sqlite)
        DBPass:         os.Getenv("DB_PASS"),                  // database password (empty allowed)
        DBHost:         os.Getenv("DB_HOST"),                  // database host
        DBPort:         os.Getenv("DB_PORT"),                  // database port
        DBName:         must("DB_NAME"),                       // database name or sqlite file
        JWTSecret:      must("JWT_SECRET"),                    // secret used for signing JWTs
        AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),       // TTL for access tokens in minutes
        RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),     // TTL for refresh tokens in days
        DeviceTTLDays:  mustInt("DEVICE_TOKEN_TTL_DAYS"),      // TTL for device tokens in days
        BcryptCost:     mustInt("BCRYPT_COST"),                // bcrypt cost factor
        MediaDir:       getenv("MEDIA_DIR", "uploaded_media"), // upload destination directory
        RabbitURL:      os.Getenv("RABBITMQ_URL"),             // AMQP URL; empty disables events
    }
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
    s := must(key)
    n, err := strconv.Atoi(s)
    if err != nil {
        log.Fatalf("invalid int for %s: %q", key, s)
    }
    return n
}
