package adapter

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

var configValidate = validator.New()

// Config controls the wazero runtime an Adapter loads the guest under.
type Config struct {
	// MemoryLimitPages bounds the guest's linear memory, in 64KB pages.
	// Exceeding it surfaces as a guest_crash signal (§6: "memory ceiling").
	MemoryLimitPages uint32 `validate:"required,min=1,max=65536"`

	// FuelBudget bounds how long a single guest call may run. wazero has no
	// instruction-level fuel counter; the budget is enforced by cancelling
	// the call's context when it elapses (WithCloseOnContextDone), which is
	// the closest equivalent the runtime provides and is what every guest
	// call in this package is timed against.
	FuelBudget time.Duration `validate:"required,gt=0"`
}

// DefaultConfig matches the isolation posture §6 requires: a bounded memory
// ceiling and a generous but finite per-call budget.
func DefaultConfig() Config {
	return Config{
		MemoryLimitPages: 256, // 16MB
		FuelBudget:       2 * time.Second,
	}
}

// Validate rejects a Config before it's handed to Load, so a malformed
// binding descriptor (zero fuel, an out-of-range memory ceiling) fails
// before any wasm module is even compiled.
func (c Config) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		return fmt.Errorf("invalid adapter config: %w", err)
	}
	return nil
}
