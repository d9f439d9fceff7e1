// Package errs defines the failure taxonomy shared by the resolution engine.
//
// Every error produced while resolving a link is one of the types below (or
// wraps one), so callers that walk several candidate servers can decide with
// errors.Is / errors.As whether to move on to the next candidate.
package errs

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrNoExtractorFound is returned when no strategy claims a link's host.
	ErrNoExtractorFound = errors.New("no extractor found")

	// ErrUnsupported is returned when a strategy lacks an optional capability.
	ErrUnsupported = errors.New("operation not supported by extractor")

	// ErrNoPlayableSource is returned after every candidate server failed.
	ErrNoPlayableSource = errors.New("no playable source")
)

// ExtractionError reports that a strategy ran but could not find a usable source.
type ExtractionError struct {
	Extractor string
	Step      string
	Err       error
}

func (e *ExtractionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s failed", e.Extractor, e.Step)
	}
	return fmt.Sprintf("%s: %s: %v", e.Extractor, e.Step, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Extraction is a shorthand constructor for ExtractionError.
func Extraction(extractor, step string, err error) error {
	return &ExtractionError{Extractor: extractor, Step: step, Err: err}
}

// UnpackError reports a packed script whose structure could not be parsed.
type UnpackError struct {
	Reason string
}

func (e *UnpackError) Error() string {
	return "unpack: " + e.Reason
}

// DecryptionError reports a cipher, padding or authentication fault.
type DecryptionError struct {
	Op  string
	Err error
}

func (e *DecryptionError) Error() string {
	return fmt.Sprintf("decrypt %s: %v", e.Op, e.Err)
}

func (e *DecryptionError) Unwrap() error { return e.Err }

// NetworkError reports a timeout, DNS failure or non-recoverable HTTP status.
type NetworkError struct {
	Op     string
	URL    string
	Status int
	Err    error
}

func (e *NetworkError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.URL != "" {
		b.WriteString(" ")
		b.WriteString(e.URL)
	}
	if e.Status != 0 {
		fmt.Fprintf(&b, ": status %d %s", e.Status, http.StatusText(e.Status))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *NetworkError) Unwrap() error { return e.Err }

// TLSValidationError reports a certificate or chain validation failure.
type TLSValidationError struct {
	Host string
	Err  error
}

func (e *TLSValidationError) Error() string {
	return fmt.Sprintf("tls validation for %s: %v", e.Host, e.Err)
}

func (e *TLSValidationError) Unwrap() error { return e.Err }

// IsTLSValidation reports whether err was caused by certificate verification,
// as opposed to a generic network failure.
func IsTLSValidation(err error) bool {
	if err == nil {
		return false
	}

	var (
		tlsErr      *TLSValidationError
		unknownAuth x509.UnknownAuthorityError
		hostname    x509.HostnameError
		invalid     x509.CertificateInvalidError
		verify      *tls.CertificateVerificationError
	)

	switch {
	case errors.As(err, &tlsErr),
		errors.As(err, &unknownAuth),
		errors.As(err, &hostname),
		errors.As(err, &invalid),
		errors.As(err, &verify):
		return true
	}

	// utls surfaces verification failures as plain strings on some paths.
	msg := err.Error()
	return strings.Contains(msg, "x509: ") || strings.Contains(msg, "certificate is not valid")
}

// Recoverable reports whether a caller iterating candidate servers should
// try the next candidate instead of aborting.
func Recoverable(err error) bool {
	if err == nil {
		return false
	}

	var (
		extraction *ExtractionError
		unpack     *UnpackError
		decrypt    *DecryptionError
		network    *NetworkError
		tlsErr     *TLSValidationError
	)

	return errors.Is(err, ErrNoExtractorFound) ||
		errors.Is(err, ErrUnsupported) ||
		errors.As(err, &extraction) ||
		errors.As(err, &unpack) ||
		errors.As(err, &decrypt) ||
		errors.As(err, &network) ||
		errors.As(err, &tlsErr)
}
