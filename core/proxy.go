package core

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"io"
	"log" // Standard log package for goproxy.Logger config
	"math/big"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"
	"vanisher/database"
	"vanisher/logger"
	"vanisher/models"

	"github.com/elazarl/goproxy"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
)

var (
	caCert         *x509.Certificate
	caKey          *rsa.PrivateKey
	sessionIsHTTPS = make(map[int64]bool)
	muSession      sync.Mutex
)

// matchDecision is a cached matcher verdict for one (host, path). The
// generation pins it to a rule list version; any store mutation makes
// cached entries stale.
type matchDecision struct {
	generation uint64
	matched    bool
	rule       models.Rule
}

func setGoproxyCA(loadedCa *tls.Certificate) {
	if loadedCa == nil {
		logger.Fatal("setGoproxyCA called with nil certificate")
	}
	goproxy.GoproxyCa = *loadedCa
	logger.ProxyInfo("goproxy CA configured.")
}

// GenerateAndSaveCA creates a fresh root CA for the MITM proxy and
// writes the certificate and key PEM files.
func GenerateAndSaveCA(certPath, keyPath string) error {
	localCaCert, localCaKey, err := generateCA("vanisher MITM Proxy CA")
	if err != nil {
		logger.Error("Failed to generate CA: %v", err)
		return fmt.Errorf("failed to generate CA: %w", err)
	}

	certOut, err := os.Create(certPath)
	if err != nil {
		return fmt.Errorf("failed to open %s for writing: %w", certPath, err)
	}
	defer certOut.Close()
	if err := pem.Encode(certOut, &pem.Block{Type: "CERTIFICATE", Bytes: localCaCert.Raw}); err != nil {
		return fmt.Errorf("failed to write CA certificate to %s: %w", certPath, err)
	}
	fmt.Printf("CA certificate saved to %s\n", certPath)

	keyOut, err := os.OpenFile(keyPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open %s for writing: %w", keyPath, err)
	}
	defer keyOut.Close()

	privBytes, err := x509.MarshalPKCS8PrivateKey(localCaKey)
	if err != nil {
		logger.ProxyInfo("Warning: could not marshal private key to PKCS8: %v. Trying PKCS1.", err)
		privBytes = x509.MarshalPKCS1PrivateKey(localCaKey)
		if err := pem.Encode(keyOut, &pem.Block{Type: "RSA PRIVATE KEY", Bytes: privBytes}); err != nil {
			return fmt.Errorf("failed to write CA RSA private key to %s: %w", keyPath, err)
		}
	} else {
		if err := pem.Encode(keyOut, &pem.Block{Type: "PRIVATE KEY", Bytes: privBytes}); err != nil {
			return fmt.Errorf("failed to write CA private key to %s: %w", keyPath, err)
		}
	}
	fmt.Printf("CA private key saved to %s\n", keyPath)
	return nil
}

func loadCA(certPath, keyPath string) error {
	certPEMBlock, err := os.ReadFile(certPath)
	if err != nil {
		return fmt.Errorf("failed to read CA certificate file %s: %w", certPath, err)
	}
	certDERBlock, _ := pem.Decode(certPEMBlock)
	if certDERBlock == nil || certDERBlock.Type != "CERTIFICATE" {
		return fmt.Errorf("failed to decode CA certificate PEM block from %s", certPath)
	}
	loadedCaCert, err := x509.ParseCertificate(certDERBlock.Bytes)
	if err != nil {
		return fmt.Errorf("failed to parse CA certificate from %s: %w", certPath, err)
	}
	caCert = loadedCaCert

	keyPEMBlock, err := os.ReadFile(keyPath)
	if err != nil {
		return fmt.Errorf("failed to read CA key file %s: %w", keyPath, err)
	}
	keyDERBlock, _ := pem.Decode(keyPEMBlock)
	if keyDERBlock == nil {
		return fmt.Errorf("failed to decode CA key PEM block from %s (key block is nil)", keyPath)
	}

	var parsedKey interface{}
	switch keyDERBlock.Type {
	case "PRIVATE KEY":
		parsedKey, err = x509.ParsePKCS8PrivateKey(keyDERBlock.Bytes)
	case "RSA PRIVATE KEY":
		parsedKey, err = x509.ParsePKCS1PrivateKey(keyDERBlock.Bytes)
	default:
		return fmt.Errorf("unknown CA key PEM block type '%s' from %s", keyDERBlock.Type, keyPath)
	}
	if err != nil {
		return fmt.Errorf("failed to parse CA private key from %s (type %s): %w", keyPath, keyDERBlock.Type, err)
	}

	loadedCaKey, ok := parsedKey.(*rsa.PrivateKey)
	if !ok {
		return fmt.Errorf("CA key from %s is not an RSA private key after parsing type %s", keyPath, keyDERBlock.Type)
	}
	caKey = loadedCaKey

	logger.ProxyInfo("CA certificate and key loaded successfully.")
	return nil
}

func generateCA(commonName string) (*x509.Certificate, *rsa.PrivateKey, error) {
	privKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate RSA private key: %w", err)
	}

	serialNumberLimit := new(big.Int).Lsh(big.NewInt(1), 128)
	serialNumber, err := rand.Int(rand.Reader, serialNumberLimit)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate serial number: %w", err)
	}

	template := x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			Organization: []string{"vanisher Development CA"},
			CommonName:   commonName,
		},
		NotBefore:             time.Now().Add(-1 * time.Hour),
		NotAfter:              time.Now().AddDate(10, 0, 0),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}

	derBytes, err := x509.CreateCertificate(rand.Reader, &template, &template, &privKey.PublicKey, privKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create CA certificate: %w", err)
	}

	cert, err := x509.ParseCertificate(derBytes)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse generated CA certificate: %w", err)
	}
	return cert, privKey, nil
}

// matchRequest resolves the matcher verdict for a request URL. URL-scope
// rules may carry a query string, so the query-qualified path is tried
// first, then the bare path.
func matchRequest(store *RuleStore, host string, u *url.URL) (models.Rule, bool) {
	path := u.Path
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		if r, ok := store.Match(host, path+"?"+u.RawQuery); ok {
			return r, true
		}
	}
	return store.Match(host, path)
}

func cachedMatch(store *RuleStore, cache *lru.Cache[string, matchDecision], host string, u *url.URL) (models.Rule, bool) {
	key := host + "\n" + u.Path + "?" + u.RawQuery
	gen := store.Generation()
	if d, ok := cache.Get(key); ok && d.generation == gen {
		return d.rule, d.matched
	}
	rule, matched := matchRequest(store, host, u)
	cache.Add(key, matchDecision{generation: gen, matched: matched, rule: rule})
	return rule, matched
}

func logTaggedTraffic(entry models.TaggedTraffic) {
	if database.DB == nil {
		logger.ProxyError("logTaggedTraffic: Database is not initialized.")
		return
	}
	if err := database.InsertTaggedTraffic(entry); err != nil {
		logger.ProxyError("DB log error for tagged response %s%s: %v", entry.Host, entry.Path, err)
	}
}

// StartMitmProxy runs the interception proxy. Responses whose request
// matches an ignore rule are tagged in flight; everything else passes
// through unmodified.
func StartMitmProxy(port, caCertPath, caKeyPath string, v *Vanisher, matchCacheSize int) error {
	if err := loadCA(caCertPath, caKeyPath); err != nil {
		return fmt.Errorf("could not load CA certificate/key: %w. Please run 'proxy init-ca' or check config.", err)
	}

	setGoproxyCA(&tls.Certificate{
		Certificate: [][]byte{caCert.Raw},
		PrivateKey:  caKey,
		Leaf:        caCert,
	})

	if matchCacheSize <= 0 {
		matchCacheSize = 4096
	}
	matchCache, err := lru.New[string, matchDecision](matchCacheSize)
	if err != nil {
		return fmt.Errorf("creating match decision cache: %w", err)
	}

	proxy := goproxy.NewProxyHttpServer()
	proxy.Logger = log.New(io.Discard, "", 0)

	proxy.OnRequest().HandleConnect(goproxy.FuncHttpsHandler(func(host string, ctx *goproxy.ProxyCtx) (*goproxy.ConnectAction, string) {
		muSession.Lock()
		sessionIsHTTPS[ctx.Session] = true
		muSession.Unlock()
		logger.ProxyDebug("HandleConnect for session %d, host %s", ctx.Session, host)
		return &goproxy.ConnectAction{Action: goproxy.ConnectMitm, TLSConfig: goproxy.TLSConfigFromCA(&goproxy.GoproxyCa)}, host
	}))

	proxy.OnResponse().DoFunc(
		func(resp *http.Response, ctx *goproxy.ProxyCtx) *http.Response {
			if resp == nil || ctx.Req == nil || ctx.Req.URL == nil {
				return resp
			}

			muSession.Lock()
			isHTTPS := sessionIsHTTPS[ctx.Session]
			delete(sessionIsHTTPS, ctx.Session)
			muSession.Unlock()

			host := strings.ToLower(ctx.Req.URL.Hostname())
			rule, matched := cachedMatch(v.Store(), matchCache, host, ctx.Req.URL)
			if !matched {
				logger.ProxyDebug("RESP: %s %s - no ignore rule match, passing through.", ctx.Req.Method, ctx.Req.URL.String())
				return resp
			}

			originalContentType := resp.Header.Get("Content-Type")
			TagResponse(resp)

			logTaggedTraffic(models.TaggedTraffic{
				ID:                  uuid.NewString(),
				Timestamp:           time.Now(),
				Host:                host,
				Path:                ctx.Req.URL.Path,
				MatchedRule:         rule.Record(),
				StatusCode:          resp.StatusCode,
				OriginalContentType: models.NullString(originalContentType),
				IsHTTPS:             isHTTPS,
			})

			logger.ProxyInfo("RESP: %d %s %s - TAGGED (rule %q, was %q)",
				resp.StatusCode, ctx.Req.Method, ctx.Req.URL.String(), rule.String(), originalContentType)
			return resp
		})

	fmt.Println(Banner)
	logger.ProxyInfo("Vanisher MITM proxy starting on :%s", port)
	return http.ListenAndServe(":"+port, proxy)
}
