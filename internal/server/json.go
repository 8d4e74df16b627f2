package server

import "encoding/json"

// encodeJSON is the single marshalling seam for segment serialization,
// so a format change touches one place.
func encodeJSON(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}
