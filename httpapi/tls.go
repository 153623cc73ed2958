package httpapi

import (
	"crypto/tls"
	"net/http"

	"github.com/kabukky/httpscerts"
)

// EnsureSelfSignedCert makes sure a cert/key pair exists at certPath/keyPath,
// generating a self-signed one for host if not, matching the
// httpscerts.Check-then-Generate pattern the teacher repeats at every
// TLS-capable entry point (net/gateway_test.go, cmd/drand-cli/cli_test.go,
// demo/node.go). Operators who want a CA-issued certificate instead just
// point certPath/keyPath at one; a new self-signed pair is generated at
// both paths whenever either file is missing.
func EnsureSelfSignedCert(certPath, keyPath, host string) error {
	if httpscerts.Check(certPath, keyPath) == nil {
		return nil
	}
	return httpscerts.Generate(certPath, keyPath, host)
}

// tlsConfig builds the hardened TLS server configuration the teacher's
// net/listener_with_tls.go buildTLSServer uses for its gRPC/REST listeners,
// adapted here for the admin HTTP surface's single certificate.
func tlsConfig(cert tls.Certificate) *tls.Config {
	return &tls.Config{
		PreferServerCipherSuites: true,
		CurvePreferences: []tls.CurveID{
			tls.CurveP256,
			tls.X25519,
		},
		MinVersion: tls.VersionTLS12,
		CipherSuites: []uint16{
			tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
			tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
			tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
		},
		Certificates: []tls.Certificate{cert},
		NextProtos:   []string{"h2"},
	}
}

// ServeTLS serves the admin surface over HTTPS on addr using the cert/key
// pair at certPath/keyPath, with the same cipher-suite and curve hardening
// the teacher applies to its gRPC/REST TLS listeners. Call EnsureSelfSignedCert
// first if the operator has not provisioned a certificate of their own.
func (s *Server) ServeTLS(addr, certPath, keyPath string) error {
	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:      addr,
		Handler:   s.Handler(),
		TLSConfig: tlsConfig(cert),
	}
	return srv.ListenAndServeTLS("", "")
}
