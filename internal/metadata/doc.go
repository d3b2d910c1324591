// Package metadata provides the JSON-like value model used for notebook and
// cell metadata on the wire.
//
// Editor-side metadata arrives as arbitrary Go values (map[string]any trees,
// typed slices, pointers). Before anything is transmitted it is deep-copied
// into the sealed Value representation by FromAny. The copy carries a
// "currently visiting" set so that a map or slice that contains itself fails
// fast with ErrCyclicValue instead of recursing forever, and values that have
// no JSON representation (regular expressions, channels, funcs) fail with
// ErrNotTransmittable.
//
// This package imports nothing internal. protocol, engine and journal all
// build on it.
//
// Key properties:
//   - Equal is order-independent for object keys and treats NaN as equal to NaN
//   - MarshalCanonical produces RFC 8785 style output (UTF-16 key order,
//     NFC-normalised strings, no HTML escaping) for journaling and golden traces
//   - Fingerprint hashes canonical bytes with domain separation
package metadata
