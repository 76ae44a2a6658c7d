// Package ibderrors defines the error taxonomy shared across the core:
// IoError, ParseError, ChecksumError, VendorError, CryptoError and
// ArgumentError. Every sentinel is wrapped with cockroachdb/errors so
// callers can errors.Is/errors.As across package boundaries, and so
// write-path failures carry a stack trace into the audit log.
package ibderrors

import (
	"github.com/cockroachdb/errors"
)

// Sentinel kinds. Use errors.Is(err, ibderrors.ErrParse) etc. to classify
// an error returned from any core package.
var (
	ErrIO        = errors.New("ibdtool: io error")
	ErrParse     = errors.New("ibdtool: parse error")
	ErrChecksum  = errors.New("ibdtool: checksum error")
	ErrVendor    = errors.New("ibdtool: vendor error")
	ErrCrypto    = errors.New("ibdtool: crypto error")
	ErrArgument  = errors.New("ibdtool: argument error")
)

// IO returns a new IoError with a formatted message: an underlying
// read/write/seek failure or unexpected EOF.
func IO(format string, args ...interface{}) error {
	return errors.WithMessagef(ErrIO, format, args...)
}

// IOWrap wraps an existing error as an IoError.
func IOWrap(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return errors.WithMessagef(errors.WithSecondaryError(ErrIO, err), format, args...)
}

// Parse returns a new ParseError with a formatted message: a structural
// decoding failure.
func Parse(format string, args ...interface{}) error {
	return errors.WithMessagef(ErrParse, format, args...)
}

// ParseWrap wraps an existing error as a ParseError.
func ParseWrap(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return errors.WithMessagef(errors.WithSecondaryError(ErrParse, err), format, args...)
}

// Checksum returns a new ChecksumError: every permitted algorithm
// rejected a page. Reported, not fatal, unless the caller requires
// validity.
func Checksum(format string, args ...interface{}) error {
	return errors.WithMessagef(ErrChecksum, format, args...)
}

// Vendor returns a new VendorError: a vendor-forbidden operation (SDI
// extraction on MariaDB, MLOG decode on a MariaDB redo log, and so on).
func Vendor(format string, args ...interface{}) error {
	return errors.WithMessagef(ErrVendor, format, args...)
}

// Crypto returns a new CryptoError: missing keyring, master key not
// found, or key-unwrap failure.
func Crypto(format string, args ...interface{}) error {
	return errors.WithMessagef(ErrCrypto, format, args...)
}

// CryptoWrap wraps an existing error as a CryptoError.
func CryptoWrap(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return errors.WithMessagef(errors.WithSecondaryError(ErrCrypto, err), format, args...)
}

// Argument returns a new ArgumentError: caller-supplied constraints
// violated.
func Argument(format string, args ...interface{}) error {
	return errors.WithMessagef(ErrArgument, format, args...)
}

// Is reports whether err is (or wraps) one of the sentinel kinds. Thin
// convenience wrapper so call sites don't need to import
// cockroachdb/errors directly just to classify an error.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
