package payfast

import (
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

// encodeValue URL-encodes a field value the way the gateway expects:
// legacy PHP urlencode semantics, spaces as '+' rather than '%20'. This
// exact encoding is load-bearing; the gateway recomputes the digest over
// the same string on its side.
func encodeValue(v string) string {
	return strings.ReplaceAll(url.QueryEscape(v), "%20", "+")
}

// Sign computes the gateway signature over data. The signature field and
// empty-valued fields are excluded, remaining keys are sorted ascending,
// values are URL-encoded, pairs joined with '&'. A non-empty passphrase
// is appended as a final pair before hashing. The digest is MD5 hex,
// lowercase — fixed by the gateway protocol, not a choice of this
// system.
func Sign(data map[string]string, passphrase string) string {
	keys := make([]string, 0, len(data))
	for k, v := range data {
		if k == "signature" || v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+encodeValue(data[k]))
	}
	paramString := strings.Join(pairs, "&")

	if passphrase != "" {
		paramString += "&passphrase=" + encodeValue(passphrase)
	}

	sum := md5.Sum([]byte(paramString))
	return hex.EncodeToString(sum[:])
}
