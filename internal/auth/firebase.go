package auth

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	defaultFirebaseCertsURL = "https://www.googleapis.com/robot/v1/metadata/x509/securetoken@system.gserviceaccount.com"
	firebaseIssuerPrefix    = "https://securetoken.google.com/"
	defaultCertsMaxAge      = time.Hour
	// Tokens naming a key we don't have can refetch at most this often
	minRefreshInterval = 5 * time.Minute
)

// FirebaseConfig holds configuration for the FirebaseVerifier
// Required fields:
// - ProjectID: Firebase project the ID tokens are issued for
// Optional fields with defaults:
// - CertsURL: x509 certificate endpoint of the securetoken service account
// - HTTPClient: client used to fetch certificates (default: 10s timeout)
type FirebaseConfig struct {
	ProjectID  string
	CertsURL   string
	HTTPClient *http.Client
}

// FirebaseVerifier validates Firebase ID tokens against Google's public
// certificates. Certificates are cached for as long as the endpoint's
// Cache-Control max-age allows. Concurrent refreshes share one download,
// which runs without holding the key lock.
type FirebaseVerifier struct {
	projectID string
	issuer    string
	certsURL  string
	client    *http.Client
	logger    *zap.Logger
	fetches   singleflight.Group

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	expiresAt time.Time
	lastFetch time.Time
	now       func() time.Time
}

// Ensure FirebaseVerifier implements the Verifier interface
var _ Verifier = (*FirebaseVerifier)(nil)

type firebaseClaims struct {
	Email    string `json:"email,omitempty"`
	Firebase struct {
		SignInProvider string `json:"sign_in_provider"`
	} `json:"firebase"`
	jwt.RegisteredClaims
}

// NewFirebaseVerifier creates a verifier for the given project
func NewFirebaseVerifier(config FirebaseConfig, logger *zap.Logger) (*FirebaseVerifier, error) {
	if config.ProjectID == "" {
		return nil, fmt.Errorf("firebase project ID is required")
	}

	certsURL := config.CertsURL
	if certsURL == "" {
		certsURL = defaultFirebaseCertsURL
		logger.Info("Using default Firebase certificate URL", zap.String("certsURL", certsURL))
	}

	client := config.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &FirebaseVerifier{
		projectID: config.ProjectID,
		issuer:    firebaseIssuerPrefix + config.ProjectID,
		certsURL:  certsURL,
		client:    client,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Verify checks the token signature, audience, issuer and lifetime
func (f *FirebaseVerifier) Verify(ctx context.Context, tokenString string) (*Identity, error) {
	claims := &firebaseClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("token has no key ID")
		}
		return f.publicKey(ctx, kid)
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(f.projectID),
		jwt.WithIssuer(f.issuer),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(f.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.Subject == "" || claims.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: missing subject or expiry", ErrInvalidToken)
	}

	return &Identity{
		UserID:   claims.Subject,
		Email:    claims.Email,
		Provider: claims.Firebase.SignInProvider,
	}, nil
}

// publicKey returns the key for kid. An expired cache is always refreshed;
// an unknown kid only refreshes once minRefreshInterval has passed since
// the last download.
func (f *FirebaseVerifier) publicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	f.mu.RLock()
	key, ok := f.keys[kid]
	now := f.now()
	fresh := now.Before(f.expiresAt)
	recent := now.Sub(f.lastFetch) < minRefreshInterval
	f.mu.RUnlock()

	if ok && fresh {
		return key, nil
	}
	if fresh && recent {
		return nil, fmt.Errorf("unknown signing key %q", kid)
	}

	_, err, _ := f.fetches.Do("certs", func() (interface{}, error) {
		return nil, f.refresh(ctx)
	})
	if err != nil {
		return nil, err
	}

	f.mu.RLock()
	key, ok = f.keys[kid]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown signing key %q", kid)
	}
	return key, nil
}

func (f *FirebaseVerifier) refresh(ctx context.Context) error {
	// Another caller may have refreshed between our cache check and now
	f.mu.RLock()
	now := f.now()
	skip := now.Before(f.expiresAt) && now.Sub(f.lastFetch) < minRefreshInterval
	f.mu.RUnlock()
	if skip {
		return nil
	}

	keys, maxAge, err := f.fetchKeys(ctx)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFetch = f.now()
	if err != nil {
		return err
	}
	f.keys = keys
	f.expiresAt = f.lastFetch.Add(maxAge)

	f.logger.Info("Refreshed Firebase certificates",
		zap.Int("keys", len(keys)),
		zap.Duration("maxAge", maxAge))

	return nil
}

// fetchKeys downloads and parses the current certificate set
func (f *FirebaseVerifier) fetchKeys(ctx context.Context) (map[string]*rsa.PublicKey, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.certsURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create certificate request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch certificates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, 0, fmt.Errorf("certificate endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var certs map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&certs); err != nil {
		return nil, 0, fmt.Errorf("failed to decode certificates: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(certs))
	for kid, certPEM := range certs {
		key, err := parseRSACertificate(certPEM)
		if err != nil {
			f.logger.Warn("Skipping unreadable certificate", zap.String("kid", kid), zap.Error(err))
			continue
		}
		keys[kid] = key
	}
	if len(keys) == 0 {
		return nil, 0, fmt.Errorf("no usable certificates returned")
	}

	return keys, cacheMaxAge(resp.Header.Get("Cache-Control")), nil
}

func parseRSACertificate(certPEM string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(certPEM))
	if block == nil {
		return nil, fmt.Errorf("certificate is not PEM encoded")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}
	key, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("certificate key is not RSA")
	}
	return key, nil
}

// cacheMaxAge reads max-age from a Cache-Control header
func cacheMaxAge(header string) time.Duration {
	for _, directive := range strings.Split(header, ",") {
		value, ok := strings.CutPrefix(strings.TrimSpace(directive), "max-age=")
		if !ok {
			continue
		}
		seconds, err := strconv.Atoi(value)
		if err != nil || seconds <= 0 {
			break
		}
		return time.Duration(seconds) * time.Second
	}
	return defaultCertsMaxAge
}
