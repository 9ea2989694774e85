package config

import (
	"os"
	"regexp"
)

var placeholder = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::([^}]*))?\}`)

// ExpandEnvironment replaces ${VAR} and ${VAR:default} placeholders in raw
// configuration text. Unset variables without a default expand to "".
func ExpandEnvironment(input []byte) []byte {
	return placeholder.ReplaceAllFunc(input, func(m []byte) []byte {
		sub := placeholder.FindSubmatch(m)
		if v, ok := os.LookupEnv(string(sub[1])); ok {
			return []byte(v)
		}
		return sub[2]
	})
}
