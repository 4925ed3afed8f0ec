package config

import "log"

// MustNonEmpty aborts startup when a required setting is missing. Failing
// here beats limping along and failing on the first request.
func MustNonEmpty(v, name string) {
	if v == "" {
		log.Fatalf("%s is required", name)
	}
}

func MustNonEmptyBytes(v []byte, name string) {
	if len(v) == 0 {
		log.Fatalf("%s is required", name)
	}
}
