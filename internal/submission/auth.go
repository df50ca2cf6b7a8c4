package submission

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/your-org/checker/internal/fingerprint"
)

// Authenticator exchanges a student's identity for a CredentialBundle.
type Authenticator struct {
	client      *http.Client
	endpoint    string
	fingerprint fingerprint.Provider
	logger      *zap.Logger
}

// NewAuthenticator constructs an Authenticator for the given endpoint.
func NewAuthenticator(client *http.Client, endpoint string, fp fingerprint.Provider, logger *zap.Logger) *Authenticator {
	if fp == nil {
		fp = fingerprint.Hardware{}
	}
	return &Authenticator{
		client:      client,
		endpoint:    endpoint,
		fingerprint: fp,
		logger:      logger,
	}
}

// Authenticate asks the platform whether sc may be submitted. A rejection is
// returned as *AuthorizationError, distinct from transport failures.
func (a *Authenticator) Authenticate(ctx context.Context, sc Context) (*CredentialBundle, error) {
	u, err := url.Parse(a.endpoint)
	if err != nil {
		return nil, &Error{Kind: ErrTransport, Err: fmt.Errorf("parse auth endpoint: %w", err)}
	}
	mac := a.fingerprint.Fingerprint()
	q := u.Query()
	q.Set("setId", sc.TestSetID)
	q.Set("phone", sc.Phone)
	q.Set("mac", mac)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &Error{Kind: ErrTransport, Err: fmt.Errorf("build auth request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	a.logger.Debug("requesting credentials", zap.String("test_set_id", sc.TestSetID), zap.String("fingerprint", mac))

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &Error{Kind: ErrTransport, Err: a.redact(err, u.String())}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: ErrTransport, Err: fmt.Errorf("read auth response: %w", err)}
	}

	bundle, err := ParseCredentialBundle(body)
	if err != nil {
		if errors.Is(err, ErrMalformedResponse) && !isSuccess(resp.StatusCode) {
			return nil, &Error{
				Kind: ErrServer,
				Err:  fmt.Errorf("auth server responded %s", resp.Status),
			}
		}
		return nil, err
	}

	a.logger.Debug("credentials granted", zap.String("submission_id", bundle.SubmissionID), zap.String("bucket", bundle.Bucket))
	return bundle, nil
}

func (a *Authenticator) redact(err error, requestURL string) error {
	msg := strings.ReplaceAll(err.Error(), requestURL, "auth server")
	msg = strings.ReplaceAll(msg, a.endpoint, "auth server")
	return &redactedError{msg: msg, err: err}
}

func isSuccess(code int) bool {
	return code >= 200 && code <= 299
}
