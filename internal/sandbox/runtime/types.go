package runtime

import (
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/prenav"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/sandbox/access"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/sandbox/analyzer"
)

// Config defines executor limits
type Config struct {
	Timeout          time.Duration // Wall-clock limit per execution
	MaxPageCalls     int           // Page proxy call budget
	AllowedMethods   []string      // Page method allow-list; empty selects the default
	MaxCallStackSize int           // goja call stack ceiling
	PreNavWait       time.Duration // Ceiling for preNav.wait
	MaxConcurrent    int           // Execution slots
}

// DefaultConfig returns the standard limits
func DefaultConfig() Config {
	return Config{
		Timeout:          60 * time.Second,
		MaxPageCalls:     1000,
		MaxCallStackSize: 1024,
		PreNavWait:       10 * time.Second,
		MaxConcurrent:    16,
	}
}

// Deps are the collaborators of an Executor. All are optional.
type Deps struct {
	Scanner analyzer.Scanner
	Access  *access.Checker
	PreNav  prenav.Store
	Logger  *zap.Logger
	Metrics *monitoring.Metrics
	Tracer  *tracing.Tracer
}

// Outcome is the result of a successful execution
type Outcome struct {
	ExecutionID     string        `json:"executionId"`
	Success         bool          `json:"success"`
	Result          interface{}   `json:"result"`
	ExecutionTime   time.Duration `json:"executionTime"`
	PageMethodCalls int           `json:"pageMethodCalls"`
	Strategy        string        `json:"strategy"`
	Console         []LogEntry    `json:"console,omitempty"`
}

// LogEntry is one captured console line
type LogEntry struct {
	Level   string    `json:"level"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// maxConsoleEntries bounds what one execution can buffer through console
const maxConsoleEntries = 500
