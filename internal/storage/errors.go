// internal/storage/errors.go
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/smithy-go"
)

// Kind is the classified outcome of a failed upload. The HTTP handler
// switches on it to choose a response status.
type Kind int

const (
	KindOther Kind = iota
	KindBadRequest
	KindNotFound
	KindForbidden
)

// String is also used as the metrics label.
func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	default:
		return "other"
	}
}

// Error is returned by every failed upload.
type Error struct {
	Kind   Kind
	Op     string
	Bucket string
	Key    string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("storage: %s s3://%s/%s (%s): %v", e.Op, e.Bucket, e.Key, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of err, KindOther when err carries no *Error.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindOther
}

// S3 error codes grouped by kind. Codes outside these sets fall through to
// the HTTP status of the response.
var (
	badRequestCodes = map[string]struct{}{
		"BadDigest":            {},
		"EntityTooLarge":       {},
		"IncompleteBody":       {},
		"InvalidArgument":      {},
		"InvalidBucketName":    {},
		"InvalidDigest":        {},
		"InvalidRequest":       {},
		"InvalidStorageClass":  {},
		"KeyTooLongError":      {},
		"MalformedXML":         {},
		"MetadataTooLarge":     {},
		"MissingContentLength": {},
	}
	notFoundCodes = map[string]struct{}{
		"NoSuchBucket": {},
		"NoSuchKey":    {},
		"NotFound":     {},
	}
	forbiddenCodes = map[string]struct{}{
		"AccessDenied":          {},
		"AccountProblem":        {},
		"AllAccessDisabled":     {},
		"Forbidden":             {},
		"InvalidAccessKeyId":    {},
		"InvalidSecurity":       {},
		"SignatureDoesNotMatch": {},
		"ExpiredToken":          {},
		"InvalidToken":          {},
	}
)

// httpStatusError is satisfied by the SDK's transport response errors.
type httpStatusError interface {
	HTTPStatusCode() int
}

// Classify maps an error from the S3 client to a Kind by looking at the
// typed error values in its chain: the service error code first, then the
// HTTP status of the response. Timeouts and cancellations are KindOther.
func Classify(err error) Kind {
	if err == nil {
		return KindOther
	}

	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindOther
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		if _, ok := badRequestCodes[code]; ok {
			return KindBadRequest
		}
		if _, ok := notFoundCodes[code]; ok {
			return KindNotFound
		}
		if _, ok := forbiddenCodes[code]; ok {
			return KindForbidden
		}
	}

	var statusErr httpStatusError
	if errors.As(err, &statusErr) {
		switch statusErr.HTTPStatusCode() {
		case http.StatusBadRequest:
			return KindBadRequest
		case http.StatusNotFound:
			return KindNotFound
		case http.StatusForbidden, http.StatusUnauthorized:
			return KindForbidden
		}
	}

	return KindOther
}
