package voxa

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const userAgent = "voxa-sdk-go/" + Version

// APIClient talks to the platform's REST surface. The SDK only needs the
// signed-URL endpoint; everything else lives in the dashboard APIs.
type APIClient struct {
	baseURL    string
	apiKey     string
	headers    map[string]string
	httpClient *http.Client
	logger     *Logger
}

func NewAPIClient(baseURL, apiKey string) *APIClient {
	if baseURL == "" {
		baseURL = DefaultAPIBaseURL
	}
	return &APIClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     30 * time.Second,
				DisableCompression:  false,
				MaxIdleConnsPerHost: 2,
			},
		},
		logger: GetGlobalLogger().WithComponent("api"),
	}
}

// NewAPIClientFromConfig builds a client carrying the config's base URL,
// credentials and extra headers.
func NewAPIClientFromConfig(cfg *Config) *APIClient {
	client := NewAPIClient(cfg.APIBaseURL, cfg.APIKey)
	client.headers = cfg.Headers
	return client
}

// SetTimeout adjusts the underlying HTTP client timeout.
func (ac *APIClient) SetTimeout(timeout time.Duration) {
	ac.httpClient.Timeout = timeout
}

// SetLogger replaces the client's logger.
func (ac *APIClient) SetLogger(logger *Logger) {
	if logger != nil {
		ac.logger = logger.WithComponent("api")
	}
}

func (ac *APIClient) request(ctx context.Context, method, endpoint string, query url.Values) ([]byte, error) {
	requestURL := ac.baseURL + endpoint
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, nil)
	if err != nil {
		return nil, NewConfigError(err.Error())
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	if ac.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+ac.apiKey)
	}

	for k, v := range ac.headers {
		req.Header.Set(k, v)
	}

	ac.logger.Debugf("%s %s", method, endpoint)

	resp, err := ac.httpClient.Do(req)
	if err != nil {
		return nil, NewTransportError("request failed", err).AddDetail("endpoint", endpoint)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewTransportError("failed to read response body", err).AddDetail("endpoint", endpoint)
	}

	if resp.StatusCode >= 400 {
		errMsg := string(respBody)
		if errMsg == "" {
			errMsg = http.StatusText(resp.StatusCode)
		}
		return nil, NewError(errMsg, fmt.Sprintf("HTTP_%d", resp.StatusCode)).
			AddDetail("status_code", resp.StatusCode).
			AddDetail("endpoint", endpoint)
	}

	return respBody, nil
}

// SignedURLResponse is the signed-URL endpoint's payload.
type SignedURLResponse struct {
	SignedURL string `json:"signed_url"`
}

// GetSignedURL fetches a short-lived authenticated connection URL for the
// given agent.
func (ac *APIClient) GetSignedURL(ctx context.Context, agentID string) (string, error) {
	if agentID == "" {
		return "", NewCredentialsError("agent ID cannot be empty")
	}

	query := url.Values{}
	query.Set("agent_id", agentID)

	resp, err := ac.request(ctx, http.MethodGet, SignedURLPath, query)
	if err != nil {
		return "", err
	}

	var signed SignedURLResponse
	if err := json.Unmarshal(resp, &signed); err != nil {
		return "", NewDeserializeError("failed to decode signed URL response", err)
	}
	if signed.SignedURL == "" {
		return "", NewSignedURLError("signed URL response was empty", nil)
	}

	return signed.SignedURL, nil
}

// HealthCheck pings the platform's health endpoint.
func (ac *APIClient) HealthCheck(ctx context.Context) (map[string]interface{}, error) {
	resp, err := ac.request(ctx, http.MethodGet, "/v1/health", nil)
	if err != nil {
		return nil, err
	}

	var result map[string]interface{}
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, NewDeserializeError("failed to decode health response", err)
	}

	return result, nil
}
