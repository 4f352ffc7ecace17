package adapter

import (
	"strconv"
	"strings"

	"github.com/ajhcs/beacon/pkg/ir"
	"github.com/ajhcs/beacon/pkg/typecheck"
)

// instanceOrdinal extracts the numeric ordinal out of a model instance id
// ("Document#3" -> 3), the guest-addressable form of an entity reference.
// The guest never sees the entity type tag or the model's internal opaque
// id string, only the ordinal it was allocated under.
func instanceOrdinal(id string) (int64, error) {
	i := strings.IndexByte(id, '#')
	if i < 0 {
		return 0, errMalformedInstance(id)
	}
	n, err := strconv.ParseInt(id[i+1:], 10, 64)
	if err != nil {
		return 0, errMalformedInstance(id)
	}
	return n, nil
}

// encodeValue lowers a model scalar into the single-integer wire value the
// guest's exported functions exchange. Strings have no guest-side
// representation in this ABI; the compiler's binding validation rejects any
// action argument typed as a free string before a campaign can run.
func encodeValue(v typecheck.Value) (int64, error) {
	switch v.Kind {
	case typecheck.ValueBool:
		if v.B {
			return 1, nil
		}
		return 0, nil
	case typecheck.ValueInt:
		return v.I, nil
	default:
		return 0, errUnsupportedValueKind(v.Kind)
	}
}

// ResolveArgs orders binding.Args into the guest call vector Call expects:
// a name bound in frame (an entity reference, lowered to its ordinal) takes
// priority over a same-named entry in vector (a solver-produced scalar).
func ResolveArgs(binding ir.ActionBinding, frame map[string]string, vector map[string]typecheck.Value) ([]int64, error) {
	args := make([]int64, len(binding.Args))
	for i, name := range binding.Args {
		if id, ok := frame[name]; ok {
			ord, err := instanceOrdinal(id)
			if err != nil {
				return nil, err
			}
			args[i] = ord
			continue
		}
		if v, ok := vector[name]; ok {
			enc, err := encodeValue(v)
			if err != nil {
				return nil, err
			}
			args[i] = enc
			continue
		}
		return nil, errUnboundArg(name)
	}
	return args, nil
}
