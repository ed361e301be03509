package cachestore

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

// Tracking parameters stripped during URL normalization so that semantically
// identical requests collide on the same fingerprint.
var trackingParams = map[string]struct{}{
	"gclid":      {},
	"fbclid":     {},
	"msclkid":    {},
	"igshid":     {},
	"mc_cid":     {},
	"mc_eid":     {},
	"ref":        {},
	"ref_src":    {},
	"spm":        {},
	"_hsenc":     {},
	"_hsmi":      {},
	"mkt_tok":    {},
	"yclid":      {},
	"wbraid":     {},
	"gbraid":     {},
	"oly_enc_id": {},
}

// Fingerprint computes a deterministic cache key over normalized request
// fields. Requests differing only in tracking parameters or URL casing of the
// host collide; requests differing in instruction or provider never do.
func Fingerprint(rawURL, instruction, provider string) string {
	h := sha256.New()
	h.Write([]byte(NormalizeURL(rawURL)))
	h.Write([]byte{0})
	h.Write([]byte(strings.TrimSpace(instruction)))
	h.Write([]byte{0})
	h.Write([]byte(strings.TrimSpace(strings.ToLower(provider))))
	return hex.EncodeToString(h.Sum(nil))
}

// NormalizeURL canonicalizes a URL for fingerprinting: lowercases scheme and
// host, drops the fragment, strips tracking parameters, sorts the remaining
// query parameters, and trims a trailing slash from the path.
func NormalizeURL(rawURL string) string {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return strings.TrimSpace(rawURL)
	}

	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)
	parsed.Fragment = ""

	if parsed.RawQuery != "" {
		values, err := url.ParseQuery(parsed.RawQuery)
		if err == nil {
			keys := make([]string, 0, len(values))
			for key := range values {
				if isTrackingParam(key) {
					continue
				}
				keys = append(keys, key)
			}
			sort.Strings(keys)

			var rebuilt url.Values = make(url.Values, len(keys))
			for _, key := range keys {
				rebuilt[key] = values[key]
			}
			parsed.RawQuery = rebuilt.Encode()
		}
	}

	if len(parsed.Path) > 1 {
		parsed.Path = strings.TrimSuffix(parsed.Path, "/")
	}

	return parsed.String()
}

func isTrackingParam(key string) bool {
	key = strings.ToLower(key)
	if strings.HasPrefix(key, "utm_") {
		return true
	}
	_, tracked := trackingParams[key]
	return tracked
}
