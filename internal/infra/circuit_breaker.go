package infra

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// CircuitBreaker guards the retail API. After FailureThreshold consecutive
// failures it opens and fails fast; once OpenTimeout elapses a trial call is let
// through (half-open) and SuccessThreshold successful trials close it again.

type CBState int

const (
	CBClosed CBState = iota
	CBOpen
	CBHalfOpen
)

func (s CBState) String() string {
	switch s {
	case CBClosed:
		return "closed"
	case CBOpen:
		return "open"
	case CBHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned by Execute without calling fn while open.
var ErrCircuitOpen = errors.New("servicio de ventas no disponible temporalmente")

type CircuitBreakerConfig struct {
	Name             string
	FailureThreshold int
	SuccessThreshold int
	OpenTimeout      time.Duration
}

func DefaultCBConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             "retail",
		FailureThreshold: 5,
		SuccessThreshold: 2,
		OpenTimeout:      30 * time.Second,
	}
}

type CircuitBreaker struct {
	mu        sync.Mutex
	cfg       CircuitBreakerConfig
	state     CBState
	fallos    int
	exitos    int
	abiertoEn time.Time
	now       func() time.Time
}

func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	def := DefaultCBConfig()
	if cfg.Name == "" {
		cfg.Name = def.Name
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = def.SuccessThreshold
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = def.OpenTimeout
	}
	return &CircuitBreaker{cfg: cfg, state: CBClosed, now: time.Now}
}

// State returns the current state, moving open → half-open when the open
// timeout has elapsed.
func (cb *CircuitBreaker) State() CBState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.revisar()
	return cb.state
}

func (cb *CircuitBreaker) revisar() {
	if cb.state == CBOpen && cb.now().Sub(cb.abiertoEn) >= cb.cfg.OpenTimeout {
		cb.pasarA(CBHalfOpen)
	}
}

// Execute runs fn unless the circuit is open. Any error returned by fn
// counts as a failure, so callers must return nil for outcomes that say
// nothing about the upstream's health (e.g. a 404).
func (cb *CircuitBreaker) Execute(fn func() error) error {
	cb.mu.Lock()
	cb.revisar()
	if cb.state == CBOpen {
		cb.mu.Unlock()
		return ErrCircuitOpen
	}
	cb.mu.Unlock()

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err != nil {
		cb.onFailure()
		return err
	}
	cb.onSuccess()
	return nil
}

// must hold mu
func (cb *CircuitBreaker) onFailure() {
	cb.fallos++
	switch cb.state {
	case CBClosed:
		if cb.fallos >= cb.cfg.FailureThreshold {
			cb.pasarA(CBOpen)
		}
	case CBHalfOpen:
		cb.pasarA(CBOpen)
	}
}

// must hold mu
func (cb *CircuitBreaker) onSuccess() {
	switch cb.state {
	case CBClosed:
		cb.fallos = 0
	case CBHalfOpen:
		cb.exitos++
		if cb.exitos >= cb.cfg.SuccessThreshold {
			cb.pasarA(CBClosed)
		}
	}
}

// must hold mu
func (cb *CircuitBreaker) pasarA(s CBState) {
	if cb.state == s {
		return
	}
	log.Warn().
		Str("circuito", cb.cfg.Name).
		Str("desde", cb.state.String()).
		Str("hacia", s.String()).
		Int("fallos", cb.fallos).
		Msg("circuit breaker: cambio de estado")
	cb.state = s
	cb.fallos = 0
	cb.exitos = 0
	if s == CBOpen {
		cb.abiertoEn = cb.now()
	}
	RetailCircuito.Set(float64(s))
}
