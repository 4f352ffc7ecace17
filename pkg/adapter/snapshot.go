package adapter

import (
	"github.com/google/uuid"

	"github.com/ajhcs/beacon/pkg/model"
)

// snapshotMemory captures the guest's exported linear memory, if it has
// one, and binds it to a fresh identifier. A guest that exports no memory
// is assumed stateless between calls and snapshots to an empty capture.
func (a *Adapter) snapshotMemory() string {
	id := uuid.NewString()
	var mem []byte
	if m := a.module.Memory(); m != nil {
		if b, ok := m.Read(0, m.Size()); ok {
			mem = append([]byte(nil), b...)
		}
	}
	a.snapshots[id] = guestSnapshot{memory: mem}
	return id
}

// restoreMemory writes a previously captured memory image back into the
// guest's exported memory.
func (a *Adapter) restoreMemory(id string) error {
	snap, ok := a.snapshots[id]
	if !ok {
		return errUnknownSnapshot(id)
	}
	if snap.memory == nil {
		return nil
	}
	m := a.module.Memory()
	if m == nil {
		return errUnknownSnapshot(id)
	}
	if !m.Write(0, snap.memory) {
		return errUnknownSnapshot(id)
	}
	return nil
}

// PairedSnapshot binds a model.Kernel snapshot id to a guest memory
// snapshot id taken at the same instant. §4.4: "it exposes paired
// snapshot() and restore(id) that atomically snapshot both model and
// guest — neither is snapshot-observable without the other."
type PairedSnapshot struct {
	ModelSnapshotID string
	GuestSnapshotID string
}

// Snapshot captures both kernel's current state and the guest's current
// memory image as one paired point the traversal engine can fork from.
func (a *Adapter) Snapshot(kernel *model.Kernel) PairedSnapshot {
	return PairedSnapshot{
		ModelSnapshotID: kernel.Snapshot(),
		GuestSnapshotID: a.snapshotMemory(),
	}
}

// Restore rewinds kernel and the guest's memory to a previously taken
// PairedSnapshot. Restoring only one half would let the model and the guest
// disagree about which step they are at, which is exactly the discrepancy
// class of finding this harness exists to catch — so both sides move
// together or neither does.
func (a *Adapter) Restore(kernel *model.Kernel, snap PairedSnapshot) error {
	if err := kernel.Rollback(snap.ModelSnapshotID); err != nil {
		return err
	}
	return a.restoreMemory(snap.GuestSnapshotID)
}
