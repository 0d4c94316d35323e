package http

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"os"
	"syscall"
	"time"
)

// translate maps a net/http failure onto the transport code space
func (h *netHandle) translate(err error, start time.Time) error {
	elapsed := time.Since(start).Milliseconds()

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return newTransportError(CodeOperationTimedOut, err, "Resolving timed out after %d milliseconds", elapsed)
		}
		if h.proxyURL != nil && dnsErr.Name == h.proxyURL.Hostname() {
			return newTransportError(CodeCouldNotResolveProxy, err, "Could not resolve proxy: %s", dnsErr.Name)
		}
		return newTransportError(CodeCouldNotResolveHost, err, "Could not resolve host: %s", dnsErr.Name)
	}

	if isTimeout(err) {
		if !h.isConnected() {
			return newTransportError(CodeOperationTimedOut, err, "Connection timed out after %d milliseconds", elapsed)
		}
		return newTransportError(CodeOperationTimedOut, err, "Operation timed out after %d milliseconds with %d bytes received",
			elapsed, h.Info().BytesReceived)
	}

	var sysErr *os.SyscallError
	if errors.As(err, &sysErr) && sysErr.Syscall == "bind" {
		return newTransportError(CodeInterfaceFailed, err, "Couldn't bind to '%s'", h.opts.Interface)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && (opErr.Op == "dial" || opErr.Op == "proxyconnect") {
		info := h.Info()
		return newTransportError(CodeCouldNotConnect, err, "Failed to connect to %s port %d after %d ms: %v",
			info.PrimaryIP, info.PrimaryPort, elapsed, opErr.Err)
	}

	var hostErr x509.HostnameError
	if errors.As(err, &hostErr) {
		return newTransportError(CodePeerFailedVerify, err, "SSL: no alternative certificate subject name matches target host name '%s'", hostErr.Host)
	}

	var verifyErr *tls.CertificateVerificationError
	var authorityErr x509.UnknownAuthorityError
	var invalidErr x509.CertificateInvalidError
	if errors.As(err, &verifyErr) || errors.As(err, &authorityErr) || errors.As(err, &invalidErr) {
		return newTransportError(CodePeerFailedVerify, err, "SSL certificate problem: %v", err)
	}

	var recordErr tls.RecordHeaderError
	var alertErr tls.AlertError
	if errors.As(err, &recordErr) || errors.As(err, &alertErr) {
		return newTransportError(CodeSSLConnectError, err, "SSL connect error: %v", err)
	}

	if errors.Is(err, syscall.ECONNRESET) {
		return newTransportError(CodeRecvError, err, "Recv failure: Connection reset by peer")
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return newTransportError(CodeGotNothing, err, "Empty reply from server")
	}

	return err
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
