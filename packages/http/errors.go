package http

import (
	"fmt"
	"strings"
)

// ErrorKind is the category of a failed transfer. It implements error so
// callers can branch with errors.Is(err, http.KindConnectionRefused).
type ErrorKind int

const (
	KindTransfer ErrorKind = iota
	KindIllegalURLCharacter
	KindCouldNotResolveHost
	KindConnectionRefused
	KindConnectionTimeout
	KindOperationTimeout
	KindBindAddressFailed
	KindEmptyReplyFromServer
	KindReceiveFailure
	KindSSL
)

var kindNames = map[ErrorKind]string{
	KindTransfer:             "transfer failed",
	KindIllegalURLCharacter:  "illegal URL character",
	KindCouldNotResolveHost:  "could not resolve host",
	KindConnectionRefused:    "connection refused",
	KindConnectionTimeout:    "connection timeout",
	KindOperationTimeout:     "operation timeout",
	KindBindAddressFailed:    "bind address failed",
	KindEmptyReplyFromServer: "empty reply from server",
	KindReceiveFailure:       "receive failure",
	KindSSL:                  "ssl error",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

func (k ErrorKind) Error() string {
	return k.String()
}

// connectTimeoutPrefix separates the connect phase from the rest of code 28
const connectTimeoutPrefix = "Connection timed out after"

// Transport codes, see https://curl.se/libcurl/c/libcurl-errors.html
const (
	CodeOK                   = 0
	CodeUnsupportedProtocol  = 1
	CodeURLMalformat         = 3
	CodeCouldNotResolveProxy = 5
	CodeCouldNotResolveHost  = 6
	CodeCouldNotConnect      = 7
	CodePartialFile          = 18
	CodeOperationTimedOut    = 28
	CodeSSLConnectError      = 35
	CodeInterfaceFailed      = 45
	CodeTooManyRedirects     = 47
	CodeGotNothing           = 52
	CodeRecvError            = 56
	CodePeerFailedVerify     = 60
	CodeBadContentEncoding   = 61
)

var sslCodes = map[int]struct{}{
	35: {}, 53: {}, 54: {}, 58: {}, 59: {}, 60: {}, 64: {}, 66: {},
	77: {}, 80: {}, 82: {}, 83: {}, 90: {}, 91: {}, 96: {}, 98: {},
}

// Classify maps a transport code and its message to an error kind. Unknown
// codes fall back to KindTransfer.
func Classify(code int, message string) ErrorKind {
	switch code {
	case 3:
		return KindIllegalURLCharacter
	case 6:
		return KindCouldNotResolveHost
	case 7:
		return KindConnectionRefused
	case 28:
		if strings.HasPrefix(message, connectTimeoutPrefix) {
			return KindConnectionTimeout
		}
		return KindOperationTimeout
	case 38, 45:
		return KindBindAddressFailed
	case 52:
		return KindEmptyReplyFromServer
	case 56:
		return KindReceiveFailure
	}
	if _, ok := sslCodes[code]; ok {
		return KindSSL
	}
	return KindTransfer
}

// TransferError is returned by Fetch when the transport fails. LastURL and
// LastIP are best effort and stay empty when no host was reached.
type TransferError struct {
	Kind    ErrorKind
	Message string
	Code    int
	LastURL string
	LastIP  string
}

func NewTransferError(code int, message string) *TransferError {
	return &TransferError{
		Kind:    Classify(code, message),
		Message: message,
		Code:    code,
	}
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("%s (code %d): %s", e.Kind, e.Code, e.Message)
}

func (e *TransferError) Unwrap() error {
	return e.Kind
}

// Attach returns a copy of err annotated with the last known URL and IP
func Attach(err *TransferError, lastURL, lastIP string) *TransferError {
	annotated := *err
	annotated.LastURL = lastURL
	annotated.LastIP = lastIP
	return &annotated
}
