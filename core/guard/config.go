package guard

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrymomot/sessionguard/core/dispatch"
	"github.com/dmitrymomot/sessionguard/pkg/classifier"
)

// Config holds the pipeline settings.
type Config struct {
	BlockDuration         time.Duration `env:"GUARD_BLOCK_DURATION" envDefault:"60s"`
	GroupToSessions       bool          `env:"GUARD_GROUP_TO_SESSIONS" envDefault:"true"`
	SessionGap            time.Duration `env:"GUARD_SESSION_GAP" envDefault:"15s"`
	MaxRequestsPerSession int           `env:"GUARD_MAX_REQUESTS_PER_SESSION" envDefault:"180"`
	Lookback              time.Duration `env:"GUARD_LOOKBACK" envDefault:"10m"`
	CustomIPHeader        string        `env:"GUARD_CUSTOM_IP_HEADER"`
	LockWait              time.Duration `env:"GUARD_LOCK_WAIT" envDefault:"2s"`
	LockTTL               time.Duration `env:"GUARD_LOCK_TTL" envDefault:"10s"`
	NATSSubject           string        `env:"GUARD_NATS_SUBJECT" envDefault:"sessionguard.session.closed"`

	Classifier ClassifierConfig `envPrefix:"GUARD_"`
	Dispatch   dispatch.Config
}

// ClassifierConfig enables the session-closed notification to the classifier.
type ClassifierConfig struct {
	Enabled bool `env:"CLASSIFIER_ENABLED" envDefault:"false"`
	classifier.HTTPConfig
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		BlockDuration:         60 * time.Second,
		GroupToSessions:       true,
		SessionGap:            15 * time.Second,
		MaxRequestsPerSession: 180,
		Lookback:              10 * time.Minute,
		LockWait:              2 * time.Second,
		LockTTL:               10 * time.Second,
		NATSSubject:           classifier.DefaultSubject,
		Classifier: ClassifierConfig{
			HTTPConfig: classifier.HTTPConfig{
				Host:          "localhost",
				Port:          4000,
				Path:          classifier.DefaultPath,
				Timeout:       classifier.DefaultTimeout,
				RetryInterval: time.Second,
			},
		},
		Dispatch: dispatch.DefaultConfig(),
	}
}

// Validate reports every invalid setting joined with ErrInvalidConfig.
func (c Config) Validate() error {
	var errs []error

	if c.BlockDuration <= 0 {
		errs = append(errs, fmt.Errorf("block duration must be positive, got %s", c.BlockDuration))
	}
	if c.SessionGap <= 0 {
		errs = append(errs, fmt.Errorf("session gap must be positive, got %s", c.SessionGap))
	}
	if c.MaxRequestsPerSession <= 0 {
		errs = append(errs, fmt.Errorf("max requests per session must be positive, got %d", c.MaxRequestsPerSession))
	}
	if c.Lookback <= 0 {
		errs = append(errs, fmt.Errorf("lookback must be positive, got %s", c.Lookback))
	}
	if c.LockWait <= 0 {
		errs = append(errs, fmt.Errorf("lock wait must be positive, got %s", c.LockWait))
	}
	if c.LockTTL <= 0 {
		errs = append(errs, fmt.Errorf("lock ttl must be positive, got %s", c.LockTTL))
	} else if c.LockTTL <= c.LockWait {
		errs = append(errs, fmt.Errorf("lock ttl %s must exceed lock wait %s", c.LockTTL, c.LockWait))
	}

	if c.Classifier.Enabled {
		if !c.GroupToSessions {
			errs = append(errs, ErrClassifierNeedsSessions)
		}
		if c.Classifier.Host == "" {
			errs = append(errs, errors.New("classifier host is required"))
		}
		if c.Classifier.Port <= 0 || c.Classifier.Port > 65535 {
			errs = append(errs, fmt.Errorf("classifier port out of range: %d", c.Classifier.Port))
		}
		if c.Classifier.Retries < 0 {
			errs = append(errs, fmt.Errorf("classifier retries must not be negative, got %d", c.Classifier.Retries))
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errors.Join(append([]error{ErrInvalidConfig}, errs...)...)
}
