// Package model defines stable boundary types for UI shells.
//
// Protocol identity (credential bytes and CIDs) is unaffected by any
// projection. These structs are the only types intended for direct JSON
// serialization by consumers.
package model
