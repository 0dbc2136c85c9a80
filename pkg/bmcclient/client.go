package bmcclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/openchami/redfish-relay/pkg/log"
	"github.com/openchami/redfish-relay/pkg/types"
	"github.com/rs/zerolog"
)

const subscriptionCollectionPath = "/redfish/v1/EventService/Subscriptions"

// ErrUnreachable wraps a connection-level failure (dial, TLS, timeout).
type ErrUnreachable struct {
	Host string
	Err  error
}

func (e *ErrUnreachable) Error() string {
	return fmt.Sprintf("endpoint %s unreachable: %v", e.Host, e.Err)
}
func (e *ErrUnreachable) Unwrap() error { return e.Err }

// ErrAuth wraps an authentication failure (401/403).
type ErrAuth struct {
	Host string
}

func (e *ErrAuth) Error() string { return fmt.Sprintf("endpoint %s: authentication failed", e.Host) }

// Session is an authenticated, non-shared connection to one managed
// endpoint. Callers must call Close when done.
type Session struct {
	host     string
	username string
	password string
	timeout  time.Duration
	client   *http.Client
	logger   zerolog.Logger
}

// Open establishes a session against https://host/<api-root>, verifying
// reachability and credentials by listing the subscription collection. It
// retries up to retries times on a connection-level failure before giving
// up; an authentication failure is not retried.
func Open(ctx context.Context, host, username, password string, timeout time.Duration, retries int) (*Session, error) {
	s := &Session{
		host:     host,
		username: username,
		password: password,
		timeout:  timeout,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
		logger: log.WithEndpoint(host),
	}

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			s.logger.Debug().Int("attempt", attempt).Msg("retrying session open")
		}
		_, err := s.get(ctx, subscriptionCollectionPath)
		if err == nil {
			return s, nil
		}
		var authErr *ErrAuth
		if errors.As(err, &authErr) {
			return nil, err
		}
		lastErr = err
	}
	return nil, &ErrUnreachable{Host: host, Err: lastErr}
}

// Close is best-effort: the client holds no persistent connection state
// worth reporting errors for.
func (s *Session) Close() {
	s.client.CloseIdleConnections()
}

func (s *Session) url(path string) string {
	return fmt.Sprintf("https://%s%s", s.host, path)
}

func (s *Session) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.url(path), reader)
	if err != nil {
		return nil, &ErrUnreachable{Host: s.host, Err: err}
	}
	req.SetBasicAuth(s.username, s.password)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &ErrUnreachable{Host: s.host, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ErrUnreachable{Host: s.host, Err: err}
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, &ErrAuth{Host: s.host}
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("endpoint %s: %s %s: status %d: %s", s.host, method, path, resp.StatusCode, string(data))
	}
	return data, nil
}

func (s *Session) get(ctx context.Context, path string) ([]byte, error) {
	return s.do(ctx, http.MethodGet, path, nil)
}

type subscriptionCollection struct {
	Members []struct {
		ODataID string `json:"@odata.id"`
	} `json:"Members"`
}

type subscriptionResource struct {
	ODataID                 string   `json:"@odata.id"`
	Context                 string   `json:"Context"`
	Destination             string   `json:"Destination"`
	Protocol                string   `json:"Protocol"`
	RegistryPrefixes        []string `json:"RegistryPrefixes,omitempty"`
	ExcludeRegistryPrefixes []string `json:"ExcludeRegistryPrefixes,omitempty"`
	MessageIds              []string `json:"MessageIds,omitempty"`
	ExcludeMessageIds       []string `json:"ExcludeMessageIds,omitempty"`
}

// ListSubscriptions lists the endpoint's live event subscriptions.
func (s *Session) ListSubscriptions(ctx context.Context) ([]types.LiveSubscription, error) {
	data, err := s.get(ctx, subscriptionCollectionPath)
	if err != nil {
		return nil, err
	}

	var collection subscriptionCollection
	if err := json.Unmarshal(data, &collection); err != nil {
		return nil, fmt.Errorf("endpoint %s: decoding subscription collection: %w", s.host, err)
	}

	out := make([]types.LiveSubscription, 0, len(collection.Members))
	for _, m := range collection.Members {
		memberData, err := s.get(ctx, m.ODataID)
		if err != nil {
			s.logger.Warn().Str("handle", m.ODataID).Err(err).Msg("failed to fetch subscription member, skipping")
			continue
		}
		var res subscriptionResource
		if err := json.Unmarshal(memberData, &res); err != nil {
			s.logger.Warn().Str("handle", m.ODataID).Err(err).Msg("failed to decode subscription member, skipping")
			continue
		}
		out = append(out, types.LiveSubscription{
			Subscription: types.Subscription{
				Context:                 res.Context,
				Destination:             res.Destination,
				RegistryPrefixes:        res.RegistryPrefixes,
				ExcludeRegistryPrefixes: res.ExcludeRegistryPrefixes,
				MessageIDs:              res.MessageIds,
				ExcludeMessageIDs:       res.ExcludeMessageIds,
				Protocol:                res.Protocol,
			},
			Handle: m.ODataID,
		})
	}
	return out, nil
}

// CreateSubscription creates a subscription from the desired state and
// returns the handle the endpoint assigned it.
func (s *Session) CreateSubscription(ctx context.Context, desired types.Subscription) (types.LiveSubscription, error) {
	body := subscriptionResource{
		Context:                 desired.Context,
		Destination:             desired.Destination,
		Protocol:                desired.Protocol,
		RegistryPrefixes:        desired.RegistryPrefixes,
		ExcludeRegistryPrefixes: desired.ExcludeRegistryPrefixes,
		MessageIds:              desired.MessageIDs,
		ExcludeMessageIds:       desired.ExcludeMessageIDs,
	}

	data, err := s.do(ctx, http.MethodPost, subscriptionCollectionPath, body)
	if err != nil {
		return types.LiveSubscription{}, err
	}

	var created subscriptionResource
	if err := json.Unmarshal(data, &created); err != nil {
		return types.LiveSubscription{}, fmt.Errorf("endpoint %s: decoding created subscription: %w", s.host, err)
	}

	return types.LiveSubscription{
		Subscription: desired,
		Handle:       created.ODataID,
	}, nil
}

// DeleteSubscription removes a live subscription by its handle.
func (s *Session) DeleteSubscription(ctx context.Context, handle string) error {
	_, err := s.do(ctx, http.MethodDelete, handle, nil)
	return err
}
