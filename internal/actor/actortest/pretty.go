package actortest

import (
	"encoding/json"
	"fmt"
)

// Pretty renders a value for test failure messages, preferring indented JSON
// and falling back to %+v for values JSON cannot encode.
func Pretty(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%+v", v)
	}
	return string(b)
}
