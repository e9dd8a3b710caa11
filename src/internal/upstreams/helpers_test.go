package upstreams

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net"
	"testing"
	"time"

	"github.com/miekg/dns"
)

// newTestTLSConfigs returns a server config with a self-signed certificate
// for 127.0.0.1 and a client config trusting it.
func newTestTLSConfigs(t *testing.T) (*tls.Config, *tls.Config) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "dnsprotect test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1")},
		IsCA:         true,

		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("failed to create certificate: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("failed to parse certificate: %v", err)
	}

	pool := x509.NewCertPool()
	pool.AddCert(cert)

	server := &tls.Config{
		Certificates: []tls.Certificate{{Certificate: [][]byte{der}, PrivateKey: key}},
		MinVersion:   tls.VersionTLS12,
	}
	client := &tls.Config{
		RootCAs:    pool,
		ServerName: "127.0.0.1",
		MinVersion: tls.VersionTLS12,
	}
	return server, client
}

// newQuery packs an A query for name with the given transaction id.
func newQuery(t *testing.T, id uint16, name string) []byte {
	t.Helper()

	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(name), dns.TypeA)
	m.Id = id
	b, err := m.Pack()
	if err != nil {
		t.Fatalf("failed to pack query: %v", err)
	}
	return b
}

// answerFor builds a reply to the packed query with a single A record.
func answerFor(t *testing.T, query []byte, ip string) []byte {
	t.Helper()

	req := new(dns.Msg)
	if err := req.Unpack(query); err != nil {
		t.Fatalf("failed to unpack query: %v", err)
	}
	resp := new(dns.Msg)
	resp.SetReply(req)
	resp.Answer = append(resp.Answer, &dns.A{
		Hdr: dns.RR_Header{Name: req.Question[0].Name, Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: 60},
		A:   net.ParseIP(ip).To4(),
	})
	b, err := resp.Pack()
	if err != nil {
		t.Fatalf("failed to pack response: %v", err)
	}
	return b
}

func answerIP(t *testing.T, b []byte) string {
	t.Helper()

	m := new(dns.Msg)
	if err := m.Unpack(b); err != nil {
		t.Fatalf("failed to unpack response: %v", err)
	}
	if len(m.Answer) != 1 {
		t.Fatalf("expected one answer, got %d", len(m.Answer))
	}
	return m.Answer[0].(*dns.A).A.String()
}
