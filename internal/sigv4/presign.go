// Package sigv4 implements the subset of AWS Signature Version 4 needed to
// mint query-parameter presigned URLs (PUT/GET/HEAD/DELETE, unsigned payload)
// against S3-compatible endpoints.
//
// The payload is never signed: integrity relies on the expiring query
// signature plus TLS transport. That trust boundary is deliberate — uploads
// and downloads go straight between the client and the object store, so the
// server never sees the bytes it would have to hash.
package sigv4

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	algorithm       = "AWS4-HMAC-SHA256"
	unsignedPayload = "UNSIGNED-PAYLOAD"
	serviceName     = "s3"
	requestSuffix   = "aws4_request"
	timeFormat      = "20060102T150405Z"
	shortTimeFormat = "20060102"
)

// Bucket carries everything the signer needs to address one shard.
type Bucket struct {
	Name      string
	Endpoint  string // e.g. "https://s3.example.com"
	Region    string
	AccessKey string
	SecretKey string
}

// Presign builds a presigned URL for one request against the bucket.
//
// objectKey is a slash-separated path; each segment is percent-encoded
// independently. extraHeaders (optional) are added to the signed-headers
// list and must then be sent verbatim by the caller of the URL; the host
// header is always signed. The result is deterministic for a fixed now.
func Presign(method string, b Bucket, objectKey string, ttl time.Duration, extraHeaders map[string]string, now time.Time) (string, error) {
	endpoint, err := url.Parse(b.Endpoint)
	if err != nil {
		return "", fmt.Errorf("malformed endpoint %q: %w", b.Endpoint, err)
	}
	if endpoint.Scheme == "" || endpoint.Host == "" {
		return "", fmt.Errorf("malformed endpoint %q: missing scheme or host", b.Endpoint)
	}

	utc := now.UTC()
	amzDate := utc.Format(timeFormat)
	dateStamp := utc.Format(shortTimeFormat)

	credentialScope := strings.Join([]string{dateStamp, b.Region, serviceName, requestSuffix}, "/")

	canonicalHeaders, signedHeaders := canonicalizeHeaders(endpoint.Host, extraHeaders)

	query := map[string]string{
		"X-Amz-Algorithm":     algorithm,
		"X-Amz-Credential":    b.AccessKey + "/" + credentialScope,
		"X-Amz-Date":          amzDate,
		"X-Amz-Expires":       strconv.FormatInt(int64(ttl.Seconds()), 10),
		"X-Amz-SignedHeaders": signedHeaders,
	}
	canonicalQuery := canonicalizeQuery(query)

	canonicalURI := "/" + escapePath(b.Name) + "/" + escapePath(objectKey)

	canonicalRequest := strings.Join([]string{
		method,
		canonicalURI,
		canonicalQuery,
		canonicalHeaders,
		signedHeaders,
		unsignedPayload,
	}, "\n")

	hashed := sha256.Sum256([]byte(canonicalRequest))
	stringToSign := strings.Join([]string{
		algorithm,
		amzDate,
		credentialScope,
		hex.EncodeToString(hashed[:]),
	}, "\n")

	signingKey := deriveSigningKey(b.SecretKey, dateStamp, b.Region)
	signature := hex.EncodeToString(hmacSHA256(signingKey, stringToSign))

	return fmt.Sprintf("%s://%s%s?%s&X-Amz-Signature=%s",
		endpoint.Scheme, endpoint.Host, canonicalURI, canonicalQuery, signature), nil
}

// canonicalizeHeaders lower-cases keys, trims and collapses internal
// whitespace in values, sorts by key, and returns the canonical block
// ("key:value\n" per line) plus the semicolon-joined signed-headers list.
func canonicalizeHeaders(host string, extra map[string]string) (string, string) {
	headers := map[string]string{"host": host}
	for k, v := range extra {
		headers[strings.ToLower(strings.TrimSpace(k))] = collapseSpaces(v)
	}

	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var block strings.Builder
	for _, k := range keys {
		block.WriteString(k)
		block.WriteByte(':')
		block.WriteString(headers[k])
		block.WriteByte('\n')
	}
	return block.String(), strings.Join(keys, ";")
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// canonicalizeQuery sorts keys lexicographically and percent-encodes both
// keys and values before joining with '&'.
func canonicalizeQuery(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, escape(k)+"="+escape(params[k]))
	}
	return strings.Join(pairs, "&")
}

// escapePath percent-encodes every path segment independently, leaving the
// separating slashes intact.
func escapePath(p string) string {
	segments := strings.Split(p, "/")
	for i, s := range segments {
		segments[i] = escape(s)
	}
	return strings.Join(segments, "/")
}

// escape implements the strict RFC 3986 encoding SigV4 requires: only
// unreserved characters survive. Notably !'()* are encoded, which
// url.QueryEscape would leave alone — a signature computed over the lax
// encoding does not match what the object store verifies.
func escape(s string) string {
	var out strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c >= '0' && c <= '9' ||
			c == '-' || c == '_' || c == '.' || c == '~' {
			out.WriteByte(c)
			continue
		}
		out.WriteString(fmt.Sprintf("%%%02X", c))
	}
	return out.String()
}

// deriveSigningKey performs the layered HMAC chain:
// HMAC(HMAC(HMAC(HMAC("AWS4"+secret, date), region), "s3"), "aws4_request").
func deriveSigningKey(secret, dateStamp, region string) []byte {
	kDate := hmacSHA256([]byte("AWS4"+secret), dateStamp)
	kRegion := hmacSHA256(kDate, region)
	kService := hmacSHA256(kRegion, serviceName)
	return hmacSHA256(kService, requestSuffix)
}

func hmacSHA256(key []byte, data string) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(data))
	return mac.Sum(nil)
}
