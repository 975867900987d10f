package domain

import (
	"fmt"
	"time"
)

// EngineConfig is the explicit, immutable configuration of the scoring
// engine. It is passed in at construction time so alternate weight and
// threshold schemes can be exercised in tests without touching the
// aggregation logic.
type EngineConfig struct {
	// Weights per signal; must sum to exactly 1.0.
	Weights map[Signal]float64 `json:"weights"`

	// BypassTypes are routed straight to a LEGITIMATE verdict without
	// computing any signal.
	BypassTypes []TxType `json:"bypassTypes"`

	// BypassProbability is the fixed fraud probability reported for
	// type-gated transactions.
	BypassProbability float64 `json:"bypassProbability"`

	// Decision bands over the total score. A score of exactly
	// SuspiciousThreshold is LEGITIMATE; exactly FraudThreshold is
	// SUSPICIOUS.
	SuspiciousThreshold float64 `json:"suspiciousThreshold"`
	FraudThreshold      float64 `json:"fraudThreshold"`

	// Probabilities per band. The LEGITIMATE band interpolates linearly
	// from LegitimateProbabilityFloor at score <= 0 to
	// LegitimateProbabilityCeil at score == SuspiciousThreshold.
	LegitimateProbabilityFloor float64 `json:"legitimateProbabilityFloor"`
	LegitimateProbabilityCeil  float64 `json:"legitimateProbabilityCeil"`
	SuspiciousProbability      float64 `json:"suspiciousProbability"`
	FraudProbability           float64 `json:"fraudProbability"`
}

// DefaultEngineConfig returns the production scoring configuration:
// the two behavioral signals dominate at 40% each, destination and
// amount context nudge at 10% each.
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		Weights: map[Signal]float64{
			SignalAccountBehavior: 0.40,
			SignalBalanceAnomaly:  0.40,
			SignalDestinationType: 0.10,
			SignalAmountContext:   0.10,
		},
		BypassTypes:                []TxType{TypePayment, TypeCashIn, TypeDebit},
		BypassProbability:          0.05,
		SuspiciousThreshold:        1.0,
		FraudThreshold:             2.0,
		LegitimateProbabilityFloor: 0.05,
		LegitimateProbabilityCeil:  0.20,
		SuspiciousProbability:      0.50,
		FraudProbability:           0.75,
	}
}

// Weight returns the configured weight for a signal.
func (c *EngineConfig) Weight(s Signal) float64 {
	return c.Weights[s]
}

// Validate checks the structural invariants of the configuration.
func (c *EngineConfig) Validate() error {
	if len(c.Weights) != len(SignalOrder) {
		return fmt.Errorf("engine config: expected %d signal weights, got %d", len(SignalOrder), len(c.Weights))
	}
	var sum float64
	for _, s := range SignalOrder {
		w, ok := c.Weights[s]
		if !ok {
			return fmt.Errorf("engine config: missing weight for signal %s", s)
		}
		if w < 0 {
			return fmt.Errorf("engine config: negative weight %.2f for signal %s", w, s)
		}
		sum += w
	}
	if sum != 1.0 {
		return fmt.Errorf("engine config: weights sum to %v, want 1.0", sum)
	}

	if c.SuspiciousThreshold >= c.FraudThreshold {
		return fmt.Errorf("engine config: suspicious threshold %.2f must be below fraud threshold %.2f",
			c.SuspiciousThreshold, c.FraudThreshold)
	}

	// Structural form of the no-single-signal-flag guarantee: both minor
	// signals at a conventional maximum raw score of 1.0 must stay inside
	// the LEGITIMATE band.
	minor := c.Weights[SignalDestinationType] + c.Weights[SignalAmountContext]
	if minor > c.SuspiciousThreshold {
		return fmt.Errorf("engine config: minor signal weights %.2f exceed suspicious threshold %.2f",
			minor, c.SuspiciousThreshold)
	}

	if c.BypassProbability < c.LegitimateProbabilityFloor || c.BypassProbability > c.LegitimateProbabilityCeil {
		return fmt.Errorf("engine config: bypass probability %.2f outside legitimate band [%.2f, %.2f]",
			c.BypassProbability, c.LegitimateProbabilityFloor, c.LegitimateProbabilityCeil)
	}
	if c.LegitimateProbabilityFloor > c.LegitimateProbabilityCeil {
		return fmt.Errorf("engine config: legitimate probability floor %.2f above ceiling %.2f",
			c.LegitimateProbabilityFloor, c.LegitimateProbabilityCeil)
	}

	for _, p := range []float64{c.SuspiciousProbability, c.FraudProbability} {
		if p < 0 || p > 1 {
			return fmt.Errorf("engine config: probability %.2f outside [0,1]", p)
		}
	}

	return nil
}

// Bypasses reports whether the given type is short-circuited by the gate.
func (c *EngineConfig) Bypasses(t TxType) bool {
	for _, b := range c.BypassTypes {
		if b == t {
			return true
		}
	}
	return false
}

// Config holds the complete Kestrel configuration.
type Config struct {
	Server ServerConfig `json:"server"`

	// Tier determines infrastructure choices
	Tier Tier `json:"tier"`

	Engine *EngineConfig `json:"engine"`

	// Signal provider knobs
	Signals SignalsConfig `json:"signals"`

	// Component configurations
	Repository RepositoryConfig `json:"repository"`
	Cache      CacheConfig      `json:"cache"`
	EventBus   EventBusConfig   `json:"eventBus"`

	// Observability
	Logging LoggingConfig `json:"logging"`
	Tracing TracingConfig `json:"tracing"`
}

// SignalsConfig configures the signal providers.
type SignalsConfig struct {
	// HistoryDepth is how many recent origin transactions the account
	// behavior signal inspects.
	HistoryDepth int `json:"historyDepth"`

	// MerchantExpr is the CEL predicate identifying merchant
	// destinations.
	MerchantExpr string `json:"merchantExpr"`

	// LargeAmountExpr is the CEL predicate identifying exceptionally
	// large amounts.
	LargeAmountExpr string `json:"largeAmountExpr"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	ReadTimeout  int    `json:"readTimeout"`  // seconds
	WriteTimeout int    `json:"writeTimeout"` // seconds
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool   `json:"enabled"`
	ServiceName string `json:"serviceName"`
	Endpoint    string `json:"endpoint"`
}

// Tier represents the deployment tier.
type Tier string

const (
	// TierCommunity runs on SQLite + in-process cache + channels
	TierCommunity Tier = "community"

	// TierPro runs on PostgreSQL + Redis + NATS
	TierPro Tier = "pro"
)

// Default CEL predicates for the two context signals. PaySim marks
// merchant accounts with an M prefix; 300k is the large-amount cutoff
// observed in the dataset.
const (
	DefaultMerchantExpr    = `dest_id.startsWith("M")`
	DefaultLargeAmountExpr = `amount > 300000.0`
)

// DefaultConfig returns a default configuration for the Community tier.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Tier:   TierCommunity,
		Engine: DefaultEngineConfig(),
		Signals: SignalsConfig{
			HistoryDepth:    10,
			MerchantExpr:    DefaultMerchantExpr,
			LargeAmountExpr: DefaultLargeAmountExpr,
		},
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./kestrel.db",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 10000,
			LocalTTL:     5 * time.Minute,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "kestrel",
		},
	}
}

// ProConfig returns a configuration for the Pro tier.
func ProConfig() *Config {
	cfg := DefaultConfig()
	cfg.Tier = TierPro
	cfg.Repository = RepositoryConfig{
		Driver:       "postgres",
		PostgresHost: "localhost",
		PostgresPort: 5432,
		PostgresDB:   "kestrel",
	}
	cfg.Cache = CacheConfig{
		Type:           "redis",
		RedisAddr:      "localhost:6379",
		EnableTwoPhase: true,
		LocalMaxSize:   1000,
	}
	cfg.EventBus = EventBusConfig{
		Type:              "nats",
		NATSUrl:           "nats://localhost:4222",
		NATSMaxReconnects: 10,
		NATSReconnectWait: 5,
	}
	cfg.Tracing.Enabled = true
	return cfg
}
