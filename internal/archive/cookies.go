package archive

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseCookies decodes a browser-exported JSON cookie list from
// configuration. An empty input is the valid "no credentialed render" state;
// malformed JSON is an error so the operator learns the credentials are not
// in effect.
func ParseCookies(raw string) ([]Cookie, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var cookies []Cookie
	if err := json.Unmarshal([]byte(raw), &cookies); err != nil {
		return nil, fmt.Errorf("parse cookie json: %w", err)
	}
	out := cookies[:0]
	for _, ck := range cookies {
		if ck.Name == "" {
			continue
		}
		if ck.Path == "" {
			ck.Path = "/"
		}
		out = append(out, ck)
	}
	return out, nil
}
