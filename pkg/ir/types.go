package ir

import "encoding/json"

// Spec is the fully decoded specification document: all ten sections a
// Beacon spec file declares.
type Spec struct {
	Entities     map[string]Entity        `json:"entities"`
	Refinements  map[string]Refinement    `json:"refinements"`
	Functions    map[string]FunctionDef   `json:"functions"`
	Protocols    map[string]Protocol      `json:"protocols"`
	Effects      map[string]Effect        `json:"effects"`
	Properties   map[string]Property      `json:"properties"`
	Generators   map[string]Generator     `json:"generators"`
	Exploration  ExplorationConfig        `json:"exploration"`
	Inputs       InputSpace               `json:"inputs"`
	Bindings     Bindings                 `json:"bindings"`
}

// ── Section 1: Entities ──────────────────────────────────────────────────

// Entity declares one entity type and its field schema.
type Entity struct {
	Fields map[string]FieldDef `json:"fields"`
}

// FieldDef is one field of an entity type.
type FieldDef struct {
	FieldType
}

// FieldKind distinguishes the five field type shapes a field can declare.
type FieldKind string

const (
	FieldString FieldKind = "string"
	FieldBool   FieldKind = "bool"
	FieldInt    FieldKind = "int"
	FieldEnum   FieldKind = "enum"
	FieldRef    FieldKind = "ref"
)

// FieldType is the tagged union of field type declarations.
type FieldType struct {
	Type FieldKind `json:"type"`

	// String
	Format *string `json:"format,omitempty"`

	// Bool
	Default *bool `json:"default,omitempty"`

	// Int
	Min *int64 `json:"min,omitempty"`
	Max *int64 `json:"max,omitempty"`

	// Enum
	Values []string `json:"values,omitempty"`

	// Ref
	Entity string `json:"entity,omitempty"`
}

// UnmarshalJSON decodes a FieldDef from its flattened tagged-object form.
func (f *FieldDef) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &f.FieldType)
}

// MarshalJSON re-flattens a FieldDef into its tagged-object form.
func (f FieldDef) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.FieldType)
}

// ── Section 2: Refinement types & functions ──────────────────────────────

// Refinement narrows an entity type with a named predicate.
type Refinement struct {
	Base      string    `json:"base"`
	Params    []ParamDef `json:"params,omitempty"`
	Predicate Expr      `json:"predicate"`
}

// ParamDef is one named, typed parameter.
type ParamDef struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// FnClassification distinguishes derived functions (pure, no side
// observation) from observer functions (read external guest-visible state).
type FnClassification string

const (
	FnDerived  FnClassification = "derived"
	FnObserver FnClassification = "observer"
)

// FunctionDef declares a derived or observer function.
type FunctionDef struct {
	Classification FnClassification `json:"classification"`
	Params         []ParamDef       `json:"params"`
	Body           *Expr            `json:"body,omitempty"`
	Binding        *string          `json:"binding,omitempty"`
	Returns        string           `json:"returns"`
}

// ── Section 3: Protocols ──────────────────────────────────────────────────

// Protocol is a named entry point into the NDA graph lowering.
type Protocol struct {
	Root ProtocolNode `json:"root"`
}

// ProtocolNodeKind tags the five node shapes a protocol tree can contain.
type ProtocolNodeKind string

const (
	NodeSeq    ProtocolNodeKind = "seq"
	NodeAlt    ProtocolNodeKind = "alt"
	NodeRepeat ProtocolNodeKind = "repeat"
	NodeCall   ProtocolNodeKind = "call"
	NodeRef    ProtocolNodeKind = "ref"
)

// ProtocolNode is the tagged union of protocol tree nodes.
type ProtocolNode struct {
	Type ProtocolNodeKind `json:"type"`

	// Seq
	Children []ProtocolNode `json:"children,omitempty"`

	// Alt
	Branches []AltBranch `json:"branches,omitempty"`

	// Repeat
	Min  uint32        `json:"min,omitempty"`
	Max  uint32        `json:"max,omitempty"`
	Body *ProtocolNode `json:"body,omitempty"`

	// Call
	Action string `json:"action,omitempty"`

	// Ref
	ProtocolRef string `json:"protocol,omitempty"`
}

// AltBranch is one weighted, optionally guarded alternative.
type AltBranch struct {
	ID     string       `json:"id"`
	Weight uint32       `json:"weight"`
	Guard  *Expr        `json:"guard,omitempty"`
	Body   ProtocolNode `json:"body"`
}

// ── Section 4: Effects ────────────────────────────────────────────────────

// Effect describes the state mutation an action performs once bound.
type Effect struct {
	Creates *CreateEffect `json:"creates,omitempty"`
	Sets    []EffectSet   `json:"sets,omitempty"`
}

// CreateEffect allocates a new entity of the given type and binds it to a
// frame name for the duration of the effect.
type CreateEffect struct {
	Entity string `json:"entity"`
	Assign string `json:"assign"`
}

// EffectSet assigns a value to one field of one bound entity.
type EffectSet struct {
	// Target is [varName, fieldName].
	Target []string        `json:"target"`
	Value  json.RawMessage `json:"value"`
}

// ── Section 5: Properties ─────────────────────────────────────────────────

// PropertyType distinguishes state invariants from temporal rules.
type PropertyType string

const (
	PropertyInvariant PropertyType = "invariant"
	PropertyTemporal  PropertyType = "temporal"
)

// Property is one invariant or temporal rule a campaign checks after every
// applied action.
type Property struct {
	Type        PropertyType    `json:"type"`
	Predicate   *Expr           `json:"predicate,omitempty"`
	Rule        json.RawMessage `json:"rule,omitempty"`
	Description *string         `json:"description,omitempty"`
}

// TemporalRule is the decoded shape of Property.Rule for Type == temporal.
type TemporalRule struct {
	Kind   string `json:"kind"` // "before" | "after" | "never"
	Action string `json:"action"`
	Of     string `json:"of,omitempty"`
	Scope  Scope  `json:"scope,omitempty"`
}

// Scope resolves which bound entity a temporal rule's "same" clause refers
// to. Either Same is "entity" (first entity-typed binding argument) or it
// names a specific parameter.
type Scope struct {
	Same    string `json:"-"`
	Param   string `json:"-"`
	IsEmpty bool   `json:"-"`
}

// UnmarshalJSON decodes a scope from either the bare string "entity" or the
// object form {"param": "<name>"}.
func (s *Scope) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		s.Same = str
		return nil
	}
	var obj struct {
		Param string `json:"param"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	s.Param = obj.Param
	return nil
}

// ── Section 6: Generators ─────────────────────────────────────────────────

// Generator is a scripted sequence of actions used to seed exploration or
// to reproduce a scenario deterministically.
type Generator struct {
	Description   *string          `json:"description,omitempty"`
	Sequence      []GeneratorStep  `json:"sequence"`
	Postcondition *Expr            `json:"postcondition,omitempty"`
}

// GeneratorStep is one step of a generator sequence.
type GeneratorStep struct {
	Action string          `json:"action"`
	With   json.RawMessage `json:"with,omitempty"`
}

// ── Section 7: Exploration configuration ──────────────────────────────────

// ExplorationConfig configures the traversal engine and coordinator for a
// campaign run against this spec.
type ExplorationConfig struct {
	Weights                WeightConfig       `json:"weights" validate:"required"`
	DirectivesAllowed      []DirectiveConfig  `json:"directives_allowed" validate:"dive"`
	AdaptationSignals      []AdaptationSignal `json:"adaptation_signals" validate:"dive"`
	Strategy               StrategyConfig     `json:"strategy" validate:"required"`
	EpochSize              uint32             `json:"epoch_size" validate:"required,min=1"`
	CoverageFloorThreshold float64            `json:"coverage_floor_threshold" validate:"gte=0,lte=1"`
	Concurrency            ConcurrencyConfig  `json:"concurrency"`
}

// WeightConfig configures the state-conditioned weight table.
type WeightConfig struct {
	Scope   string `json:"scope" validate:"required"`
	Initial string `json:"initial" validate:"required"`
	Decay   string `json:"decay" validate:"required"`
}

// DirectiveConfig declares one kind of adaptation directive the coordinator
// may issue for this spec.
type DirectiveConfig struct {
	Type        string  `json:"type" validate:"required"`
	Description *string `json:"description,omitempty"`
}

// AdaptationSignal declares one kind of signal traversal workers may raise.
type AdaptationSignal struct {
	Signal      string  `json:"signal" validate:"required"`
	Description *string `json:"description,omitempty"`
}

// StrategyConfig names the traversal engine's initial and fallback
// exploration strategies.
type StrategyConfig struct {
	Initial  string `json:"initial" validate:"required"`
	Fallback string `json:"fallback"`
}

// ConcurrencyConfig bounds the traversal engine's worker pool.
type ConcurrencyConfig struct {
	Mode    string `json:"mode" validate:"omitempty,oneof=parallel deterministic"`
	Threads uint32 `json:"threads"`
}

// ── Section 8: Input space ─────────────────────────────────────────────────

// InputSpace declares the domains an action's parameters are drawn from,
// cross-parameter constraints, and coverage targets.
type InputSpace struct {
	Domains     map[string]Domain  `json:"domains"`
	Constraints []InputConstraint  `json:"constraints"`
	Coverage    CoverageConfig     `json:"coverage"`
}

// DomainKind tags the three domain shapes.
type DomainKind string

const (
	DomainEnum DomainKind = "enum"
	DomainBool DomainKind = "bool"
	DomainInt  DomainKind = "int"
)

// Domain is the tagged union of input domain declarations.
type Domain struct {
	Type   DomainKind `json:"type"`
	Values []string   `json:"values,omitempty"`
	Min    int64      `json:"min,omitempty"`
	Max    int64      `json:"max,omitempty"`
}

// InputConstraint is a named cross-parameter rule over the domains.
type InputConstraint struct {
	Name string `json:"name"`
	Rule Expr   `json:"rule"`
}

// CoverageConfig configures the coverage-directed vector generator.
type CoverageConfig struct {
	Targets      []CoverageTarget `json:"targets"`
	Seed         uint64           `json:"seed"`
	Reproducible bool             `json:"reproducible"`
}

// CoverageTargetKind tags the three coverage strategies.
type CoverageTargetKind string

const (
	CoverageAllPairs       CoverageTargetKind = "all_pairs"
	CoverageEachTransition CoverageTargetKind = "each_transition"
	CoverageBoundary       CoverageTargetKind = "boundary"
)

// CoverageTarget is the tagged union of coverage target declarations.
type CoverageTarget struct {
	Type    CoverageTargetKind `json:"type"`
	Over    []string           `json:"over,omitempty"`
	Machine string             `json:"machine,omitempty"`
	Domain  string             `json:"domain,omitempty"`
	Values  []json.RawMessage  `json:"values,omitempty"`
}

// ── Section 9: Bindings ────────────────────────────────────────────────────

// Bindings describes how abstract actions map onto the guest module's
// exported functions.
type Bindings struct {
	Runtime    string                    `json:"runtime"`
	Entry      string                    `json:"entry"`
	Actions    map[string]ActionBinding  `json:"actions"`
	EventHooks EventHooks                `json:"event_hooks"`
}

// ActionBinding binds one abstract action to a guest-exported function.
type ActionBinding struct {
	Function   string          `json:"function"`
	Args       []string        `json:"args"`
	Returns    json.RawMessage `json:"returns"`
	Mutates    bool            `json:"mutates"`
	Idempotent bool            `json:"idempotent"`
	Reads      []string        `json:"reads"`
	Writes     []string        `json:"writes"`
}

// EventHooks describes how guest-observable events are captured during a
// call.
type EventHooks struct {
	Mode    string   `json:"mode"`
	Observe []string `json:"observe"`
	Capture []string `json:"capture"`
}
