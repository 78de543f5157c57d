// Package action defines the values that flow through a store.
//
// An Action is an immutable event value carrying an explicit discriminant
// (its Type) and an optional payload. Consumers match on the concrete Go
// type or on Type(); nothing in the store enumerates the variants.
//
// Two variants are reserved:
//
//   - Empty: "nothing to emit". The action bus drops it before delivery,
//     so effects can signal "no follow-up" without a real action.
//   - Failed: the designated failure variant produced when an effect
//     handler returns an error or panics.
//
// Registry maps types to YAML payload decoders so scenario files and the
// CLI can build actions by name.
package action
