package model

import (
	"encoding/json"

	"github.com/ajhcs/beacon/pkg/ir"
)

// ApplyEffect applies effect to the kernel's current state with actor
// bound to the acting entity. The frame available to the effect's "sets"
// entries is exactly {"actor": actor} plus, if the effect has a "creates"
// clause, the newly allocated instance under its assign name — the
// reserved frame §9 "Effects resolving variable names" describes. Nothing
// checks that the assign name differs from "actor"; if it is "actor", the
// new instance replaces the acting entity in the frame.
func (k *Kernel) ApplyEffect(effect *ir.Effect, actor InstanceID) error {
	frame := map[string]string{"actor": string(actor)}

	if effect.Creates != nil {
		id := k.Create(effect.Creates.Entity)
		frame[effect.Creates.Assign] = string(id)
	}

	for _, set := range effect.Sets {
		if len(set.Target) != 2 {
			return errUnsupported("effect target must be [var, field]")
		}
		varName, fieldName := set.Target[0], set.Target[1]

		instance, ok := frame[varName]
		if !ok {
			return errUnresolvedFrameName(varName)
		}

		var valueExpr ir.Expr
		if err := json.Unmarshal(set.Value, &valueExpr); err != nil {
			return err
		}

		value, err := k.Eval(&valueExpr, frame)
		if err != nil {
			return err
		}

		if err := k.Set(InstanceID(instance), fieldName, value); err != nil {
			return err
		}
	}

	return nil
}
