package util

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
)

//go:embed version.txt
var embeddedVersion string

func GetVersion() string {
	return strings.TrimSpace(embeddedVersion)
}

func GetNameAndVersion() string {
	return fmt.Sprintf("%s / %s", Name, GetVersion())
}

func UserAgent() string {
	return fmt.Sprintf("%s/%s", Name, GetVersion())
}

func DateTimeFormat() string {
	return "2006-01-02 15:04:05 MST"
}

// PrettyPrint renders v as indented JSON. Secrets must be masked by the caller.
func PrettyPrint(i interface{}) string {
	s, _ := json.MarshalIndent(i, "", " ")
	return string(s)
}

// Mask hides all but the last four characters of a secret.
func Mask(secret string) string {
	if len(secret) <= 4 {
		return strings.Repeat("*", len(secret))
	}
	return strings.Repeat("*", len(secret)-4) + secret[len(secret)-4:]
}

// Redacted returns a copy of the config safe to print.
func (c *AppConfig) Redacted() AppConfig {
	r := *c
	r.Conf.ApiKey = Mask(r.Conf.ApiKey)
	r.Conf.Store.AccessToken = Mask(r.Conf.Store.AccessToken)
	return r
}
