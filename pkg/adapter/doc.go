// Package adapter is the verification adapter (C4): it loads a guest WASM
// module under wazero, binds abstract action names to the guest's exported
// functions, and translates calls into the guest's own value/trap/fuel-budget
// vocabulary. It also exposes paired model/guest snapshot and restore so the
// traversal engine can fork exploration without re-running the guest from
// scratch, and implements model.ObserverCaller so a model.Kernel can route
// observer-function calls through a live guest.
package adapter
