// Package wasmguest adapts a WASM guest runtime, instantiated with wazero,
// to the bridge's object interfaces. The guest exports a small reflection
// ABI over its object graph; this package wraps each handle in a
// kind-specific Go type so the conversion layers can probe capabilities
// with plain type assertions.
//
// # The reflection ABI
//
// Every guest value is an opaque 64-bit handle into a table the guest owns.
// Handle 0 is never a value: fallible exports return it to signal a raise,
// and the exception then waits behind bridge-last-error. The probing
// surface is bridge-kind and bridge-class-name; scalars are extracted with
// bridge-bool-value, bridge-int-value, bridge-float-value and
// bridge-string-value; containers are walked with bridge-len, bridge-index,
// bridge-keys and bridge-fetch and built with bridge-append and
// bridge-store; bridge-call dispatches a method by name.
//
// Strings cross the boundary in two ways. Guest to host, exports return a
// packed u64 (pointer in the high half, length in the low half) naming
// guest-owned bytes that stay valid only until the next call, so the
// adapter copies immediately; an all-ones length marks a raise. Host to
// guest, the adapter allocates through the guest's exported allocator
// (cabi_realloc, with legacy fallbacks), writes the bytes, and frees the
// buffer after the call that consumed it.
//
// # Attaching
//
//	mod, _ := runtime.InstantiateModule(ctx, compiled, config)
//	guest, err := wasmguest.Attach(ctx, mod)
//	if err != nil {
//		return err
//	}
//	var cfg Config
//	err = transcoder.Unmarshal(root, &cfg)
//
// Attach validates the export surface up front and caches the guest's nil
// and boolean singletons. The Guest implements scriptbridge.Runtime, so
// transcoder.Marshal can materialize values directly inside the instance.
//
// # Handle lifetime
//
// Wrappers are meant to live for one conversion. Reset drops every
// transient handle guest-side; only the cached singletons survive it. A
// trapped call leaves the instance in an unknown state, so the Guest goes
// sticky-faulted and every later operation reports the trap.
//
// A Guest is not safe for concurrent use.
package wasmguest
