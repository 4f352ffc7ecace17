package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ajhcs/beacon/pkg/compiler"
	"github.com/ajhcs/beacon/pkg/findings"
	"github.com/ajhcs/beacon/pkg/store"
	"github.com/ajhcs/beacon/pkg/telemetry"
)

// newComponentLogger builds a telemetry logger for one command, honoring
// the root --verbose flag rather than always defaulting to info level.
func newComponentLogger(component string) (*telemetry.Logger, error) {
	cfg := telemetry.DevelopmentConfig()
	if !verbose {
		cfg.Logging.Level = "info"
	}
	logger, err := telemetry.NewLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("constructing logger: %w", err)
	}
	return logger.NewComponentLogger(component), nil
}

// openStore opens (and migrates) the campaign memory database named by
// the root --store flag.
func openStore(ctx context.Context) (*store.SQLiteStore, error) {
	s, err := store.NewSQLiteStore(store.Config{Path: storePath})
	if err != nil {
		return nil, fmt.Errorf("opening store %s: %w", storePath, err)
	}
	if err := s.Init(ctx); err != nil {
		return nil, fmt.Errorf("initializing store: %w", err)
	}
	if err := s.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrating store: %w", err)
	}
	return s, nil
}

// loadAndCompile reads a spec document from path and runs it through the
// full validate-decode-lower pipeline.
func loadAndCompile(path string) (*compiler.Compiled, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading spec %s: %w", path, err)
	}
	schema, err := compiler.NewSchemaValidator()
	if err != nil {
		return nil, fmt.Errorf("constructing schema validator: %w", err)
	}
	compiled, err := compiler.Compile(raw, schema)
	if err != nil {
		return nil, err
	}
	return compiled, nil
}

// marshalCapsule serializes a replay capsule for storage. The store
// package never unmarshals a CapsuleRecord's bytes itself, so this is the
// one place capsule.Capsule's shape touches encoding/json directly.
func marshalCapsule(capsule findings.Capsule) ([]byte, error) {
	return json.Marshal(capsule)
}

// printResult writes v as pretty JSON when --json is set, otherwise via
// fmt.Printf with the given plain-text format and args.
func printResult(v interface{}, plainFormat string, plainArgs ...interface{}) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	fmt.Printf(plainFormat, plainArgs...)
	return nil
}
