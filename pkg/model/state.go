package model

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/benbjohnson/immutable"

	"github.com/ajhcs/beacon/pkg/typecheck"
)

// InstanceID identifies one entity instance. It embeds its entity type so a
// bare instance id is enough to route a field lookup to the right
// per-type table, without a second side index.
type InstanceID string

func newInstanceID(entityType string, seq uint64) InstanceID {
	return InstanceID(entityType + "#" + strconv.FormatUint(seq, 10))
}

// EntityType returns the entity type this instance id was allocated under.
func (id InstanceID) EntityType() string {
	s := string(id)
	if i := strings.IndexByte(s, '#'); i >= 0 {
		return s[:i]
	}
	return s
}

func (id InstanceID) String() string { return string(id) }

// fieldEnv is the persistent field table of one entity instance.
type fieldEnv = *immutable.Map[string, typecheck.Value]

// entityTable is the persistent instance table of one entity type.
type entityTable = *immutable.Map[string, fieldEnv]

// State is the model's abstract state: a mapping from entity type name to
// a mapping from instance id to field environment (§3 "Model state"). It is
// a persistent value — every mutating operation returns a new State that
// shares unchanged structure with its parent, so copy-on-write is at the
// granularity of the entity-type map a mutation actually touches (§3,
// §9 "Effects resolving variable names").
type State struct {
	entities *immutable.Map[string, entityTable]
	nextSeq  uint64
}

// New returns the empty initial state of a campaign.
func New() State {
	return State{entities: immutable.NewMap[string, entityTable](nil)}
}

// Create allocates a fresh instance of entityType and returns the state
// with it inserted (empty field table) plus its freshly minted id.
// Instances are created only by effects and are never destroyed within a
// run (§3).
func (s State) Create(entityType string) (State, InstanceID) {
	seq := s.nextSeq
	id := newInstanceID(entityType, seq)

	table, ok := s.entities.Get(entityType)
	if !ok {
		table = immutable.NewMap[string, fieldEnv](nil)
	}
	table = table.Set(string(id), immutable.NewMap[string, typecheck.Value](nil))

	return State{
		entities: s.entities.Set(entityType, table),
		nextSeq:  seq + 1,
	}, id
}

// Set assigns value to one field of an existing instance, returning the
// updated state. Only the affected entity type's instance table and the
// affected instance's field map are cloned (persistent-map Set is
// logarithmic, not a full-state copy).
func (s State) Set(id InstanceID, field string, value typecheck.Value) (State, error) {
	entityType := id.EntityType()
	table, ok := s.entities.Get(entityType)
	if !ok {
		return s, fmt.Errorf("model: unknown entity type %q for instance %q", entityType, id)
	}
	fields, ok := table.Get(string(id))
	if !ok {
		return s, fmt.Errorf("model: unknown instance %q", id)
	}
	fields = fields.Set(field, value)
	table = table.Set(string(id), fields)
	return State{entities: s.entities.Set(entityType, table), nextSeq: s.nextSeq}, nil
}

// Field looks up the current value of one field of one instance,
// implementing typecheck.FieldResolver.
func (s State) Field(instance, field string) (typecheck.Value, bool) {
	id := InstanceID(instance)
	table, ok := s.entities.Get(id.EntityType())
	if !ok {
		return typecheck.Value{}, false
	}
	fields, ok := table.Get(instance)
	if !ok {
		return typecheck.Value{}, false
	}
	return fields.Get(field)
}

// Instances lists every live instance id of entityType, implementing
// typecheck.DomainEnumerator. Order follows the persistent hash map's
// iteration and is not sorted by allocation sequence; callers that need a
// deterministic order sort by instance id string, which is already what
// abstract-state hashing does independently.
func (s State) Instances(entityType string) []string {
	table, ok := s.entities.Get(entityType)
	if !ok {
		return nil
	}
	out := make([]string, 0, table.Len())
	it := table.Iterator()
	for !it.Done() {
		k, _, _ := it.Next()
		out = append(out, k)
	}
	return out
}

// EntityTypes lists every entity type with at least one instance, for
// canonicalization (hash.go) and temporal scope resolution.
func (s State) EntityTypes() []string {
	out := make([]string, 0, s.entities.Len())
	it := s.entities.Iterator()
	for !it.Done() {
		k, _, _ := it.Next()
		out = append(out, k)
	}
	return out
}

// Fields lists every field name currently set on instance, for
// canonicalization.
func (s State) Fields(instance string) []string {
	id := InstanceID(instance)
	table, ok := s.entities.Get(id.EntityType())
	if !ok {
		return nil
	}
	fields, ok := table.Get(instance)
	if !ok {
		return nil
	}
	out := make([]string, 0, fields.Len())
	it := fields.Iterator()
	for !it.Done() {
		k, _, _ := it.Next()
		out = append(out, k)
	}
	return out
}
