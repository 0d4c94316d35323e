package http

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		codes   []int
		message string
		want    ErrorKind
	}{
		{[]int{3}, "URL using bad/illegal format", KindIllegalURLCharacter},
		{[]int{6}, "Could not resolve host: nowhere", KindCouldNotResolveHost},
		{[]int{7}, "Failed to connect", KindConnectionRefused},
		{[]int{28}, "Connection timed out after 1001 milliseconds", KindConnectionTimeout},
		{[]int{28}, "Operation timed out after 2000 milliseconds with 0 bytes received", KindOperationTimeout},
		{[]int{28}, "Resolving timed out after 5000 milliseconds", KindOperationTimeout},
		{[]int{28}, "connection timed out after 10 milliseconds", KindOperationTimeout},
		{[]int{38, 45}, "Couldn't bind", KindBindAddressFailed},
		{[]int{52}, "Empty reply from server", KindEmptyReplyFromServer},
		{[]int{56}, "Recv failure", KindReceiveFailure},
		{[]int{35, 53, 54, 58, 59, 60, 64, 66, 77, 80, 82, 83, 90, 91, 96, 98}, "SSL problem", KindSSL},
		{[]int{0, 1, 5, 18, 47, 55, 61, 999, -1}, "something else", KindTransfer},
	}

	for _, tt := range tests {
		for _, code := range tt.codes {
			t.Run(fmt.Sprintf("%d %s", code, tt.message), func(t *testing.T) {
				assert.Equal(t, tt.want, Classify(code, tt.message))
			})
		}
	}
}

func TestNewTransferError(t *testing.T) {
	err := NewTransferError(60, "SSL certificate problem: self signed certificate")

	assert.Equal(t, KindSSL, err.Kind)
	assert.Equal(t, 60, err.Code)
	assert.Empty(t, err.LastURL)
	assert.Empty(t, err.LastIP)
	assert.Contains(t, err.Error(), "ssl error")
	assert.Contains(t, err.Error(), "code 60")
	assert.Contains(t, err.Error(), "self signed certificate")
}

func TestAttach(t *testing.T) {
	base := NewTransferError(7, "Failed to connect")

	annotated := Attach(base, "http://a.test/", "10.0.0.1")

	assert.Equal(t, "http://a.test/", annotated.LastURL)
	assert.Equal(t, "10.0.0.1", annotated.LastIP)
	assert.Equal(t, base.Kind, annotated.Kind)
	assert.Equal(t, base.Message, annotated.Message)
	assert.Empty(t, base.LastURL, "original must stay untouched")
}

func TestTransferError_KindMatching(t *testing.T) {
	var err error = Attach(NewTransferError(6, "Could not resolve host: x"), "http://x/", "")
	wrapped := fmt.Errorf("fetching page: %w", err)

	assert.True(t, errors.Is(wrapped, KindCouldNotResolveHost))
	assert.False(t, errors.Is(wrapped, KindConnectionRefused))

	var terr *TransferError
	require.True(t, errors.As(wrapped, &terr))
	assert.Equal(t, "http://x/", terr.LastURL)
}

func TestErrorKind_String(t *testing.T) {
	assert.Equal(t, "connection timeout", KindConnectionTimeout.String())
	assert.Equal(t, "transfer failed", KindTransfer.Error())
	assert.Equal(t, "ErrorKind(42)", ErrorKind(42).String())
}

func TestFailureDetails(t *testing.T) {
	code, msg := failureDetails(fmt.Errorf("wrapped: %w", &TransportError{Code: 52, Message: "Empty reply from server"}))
	assert.Equal(t, 52, code)
	assert.Equal(t, "Empty reply from server", msg)

	code, msg = failureDetails(errors.New("boom"))
	assert.Equal(t, CodeOK, code)
	assert.Equal(t, "boom", msg)
}
