package dispatch

import "time"

// Config holds the dispatcher settings.
type Config struct {
	MaxConcurrent   int           `env:"DISPATCH_MAX_CONCURRENT" envDefault:"8"`
	QueueSize       int           `env:"DISPATCH_QUEUE_SIZE" envDefault:"1024"`
	TaskTimeout     time.Duration `env:"DISPATCH_TASK_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"DISPATCH_SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// DefaultConfig returns the defaults used when a field is zero.
func DefaultConfig() Config {
	return Config{
		MaxConcurrent:   8,
		QueueSize:       1024,
		TaskTimeout:     30 * time.Second,
		ShutdownTimeout: 30 * time.Second,
	}
}
