package zkelection

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	DefaultServiceAddress          = "0.0.0.0:2181"
	DefaultSessionTimeout          = 3 * time.Second
	DefaultElectionNamespace       = "/election"
	DefaultCandidatePrefix         = "c_"
	DefaultMaxEvaluationRetries    = 5
	DefaultMaxRegistrationAttempts = 3
)

// Config configures an ElectionParticipant.
type Config struct {
	ServiceAddress    []string
	SessionTimeout    time.Duration
	ElectionNamespace string
	// CandidatePrefix is prepended to the sequence suffix of every candidate
	// node. Children of the namespace without it are ignored.
	CandidatePrefix      string
	CandidateDataPayload []byte
	// ParticipantID identifies this process in logs and metrics.
	ParticipantID string
	// MonitorPath, when set, is a data node whose content and children are
	// logged whenever they change.
	MonitorPath string

	MaxEvaluationRetries int
	// MaxRegistrationAttempts bounds how many candidate nodes are created
	// while recovering from a missing registration.
	MaxRegistrationAttempts int
}

func DefaultConfig() Config {
	return Config{
		ServiceAddress:          []string{DefaultServiceAddress},
		SessionTimeout:          DefaultSessionTimeout,
		ElectionNamespace:       DefaultElectionNamespace,
		CandidatePrefix:         DefaultCandidatePrefix,
		ParticipantID:           uuid.NewString(),
		MaxEvaluationRetries:    DefaultMaxEvaluationRetries,
		MaxRegistrationAttempts: DefaultMaxRegistrationAttempts,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if len(c.ServiceAddress) == 0 {
		c.ServiceAddress = d.ServiceAddress
	}
	if c.SessionTimeout == 0 {
		c.SessionTimeout = d.SessionTimeout
	}
	if c.ElectionNamespace == "" {
		c.ElectionNamespace = d.ElectionNamespace
	}
	if c.CandidatePrefix == "" {
		c.CandidatePrefix = d.CandidatePrefix
	}
	if c.ParticipantID == "" {
		c.ParticipantID = d.ParticipantID
	}
	if c.MaxEvaluationRetries == 0 {
		c.MaxEvaluationRetries = d.MaxEvaluationRetries
	}
	if c.MaxRegistrationAttempts == 0 {
		c.MaxRegistrationAttempts = d.MaxRegistrationAttempts
	}
	return c
}

func (c Config) Validate() error {
	if len(c.ServiceAddress) == 0 {
		return errors.New("service address is empty")
	}
	for _, addr := range c.ServiceAddress {
		if strings.TrimSpace(addr) == "" {
			return errors.New("service address contains an empty entry")
		}
	}
	if c.SessionTimeout <= 0 {
		return errors.Errorf("session timeout must be positive, got %v", c.SessionTimeout)
	}
	if err := validatePath(c.ElectionNamespace); err != nil {
		return errors.Wrap(err, "election namespace")
	}
	if strings.Contains(c.CandidatePrefix, "/") {
		return errors.Errorf("candidate prefix %q must not contain /", c.CandidatePrefix)
	}
	if c.MonitorPath != "" {
		if err := validatePath(c.MonitorPath); err != nil {
			return errors.Wrap(err, "monitor path")
		}
	}
	if c.MaxEvaluationRetries <= 0 {
		return errors.Errorf("max evaluation retries must be positive, got %d", c.MaxEvaluationRetries)
	}
	if c.MaxRegistrationAttempts <= 0 {
		return errors.Errorf("max registration attempts must be positive, got %d", c.MaxRegistrationAttempts)
	}
	return nil
}

func validatePath(path string) error {
	switch {
	case !strings.HasPrefix(path, "/"):
		return errors.Wrapf(ErrBadPath, "%q is not absolute", path)
	case len(path) > 1 && strings.HasSuffix(path, "/"):
		return errors.Wrapf(ErrBadPath, "%q has a trailing slash", path)
	case path == "/":
		return errors.Wrapf(ErrBadPath, "%q is the root", path)
	case strings.Contains(path, "//"):
		return errors.Wrapf(ErrBadPath, "%q has an empty segment", path)
	}
	return nil
}

// LoadConfigFromEnv builds a Config from environment variables, falling back
// to DefaultConfig for anything unset or malformed.
func LoadConfigFromEnv() Config {
	d := DefaultConfig()
	cfg := Config{
		ServiceAddress:          splitList(getEnv("ZK_SERVERS", strings.Join(d.ServiceAddress, ","))),
		SessionTimeout:          getEnvAsDuration("ZK_SESSION_TIMEOUT", d.SessionTimeout),
		ElectionNamespace:       getEnv("ELECTION_NAMESPACE", d.ElectionNamespace),
		CandidatePrefix:         getEnv("CANDIDATE_PREFIX", d.CandidatePrefix),
		ParticipantID:           getEnv("PARTICIPANT_ID", d.ParticipantID),
		MonitorPath:             getEnv("MONITOR_PATH", ""),
		MaxEvaluationRetries:    getEnvAsInt("ELECTION_MAX_RETRIES", d.MaxEvaluationRetries),
		MaxRegistrationAttempts: getEnvAsInt("ELECTION_MAX_REGISTRATIONS", d.MaxRegistrationAttempts),
	}
	if data, ok := os.LookupEnv("CANDIDATE_DATA"); ok {
		cfg.CandidateDataPayload = []byte(data)
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return fallback
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
