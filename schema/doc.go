// Package schema defines the nodes exchanged by chat clients: the identity
// payload a wallet signs, the signed credential stored in the
// content-addressed store, and the message published on a topic.
//
// Encodings are plain encoding/json of the types below. Struct field order
// is fixed, so json.Marshal of a ChatID is its canonical signing form.
package schema
