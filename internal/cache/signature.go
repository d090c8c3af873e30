package cache

import (
	"crypto/md5"
	"encoding/hex"
	"regexp"
	"strings"
)

// Volatile page fragments that change without the content changing. Each
// is removed before hashing so rotating ads, timestamps and per-visit
// tokens do not defeat the signature.
var (
	reComments   = regexp.MustCompile(`(?s)<!--.*?-->`)
	reScript     = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	reStyle      = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	reClockTime  = regexp.MustCompile(`\b\d{1,2}:\d{2}(:\d{2})?\s*(am|pm)?\b`)
	reISODate    = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}([ T]\d{2}:\d{2}(:\d{2})?)?\b`)
	reSessionTok = regexp.MustCompile(`(?i)(sessionid|session_id|phpsessid|csrf_token|csrftoken|token|nonce|_ga)=[\w.-]+`)
	reHexID      = regexp.MustCompile(`\b[0-9a-fA-F]{16,}\b`)
	reWhitespace = regexp.MustCompile(`\s+`)
)

// Normalize strips the volatile parts of a page sample so the signature
// only moves when the substantive content does.
func Normalize(sample []byte) string {
	s := strings.ToLower(string(sample))
	s = reComments.ReplaceAllString(s, "")
	s = reScript.ReplaceAllString(s, "")
	s = reStyle.ReplaceAllString(s, "")
	s = reClockTime.ReplaceAllString(s, "")
	s = reISODate.ReplaceAllString(s, "")
	s = reSessionTok.ReplaceAllString(s, "")
	s = reHexID.ReplaceAllString(s, "")
	s = reWhitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Signature returns the MD5 hex digest of the normalized sample. MD5 is
// fine here: the hash only fingerprints content for change detection.
func Signature(sample []byte) string {
	sum := md5.Sum([]byte(Normalize(sample)))
	return hex.EncodeToString(sum[:])
}
