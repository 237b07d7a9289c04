package connectors

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/channelsync/backend/internal/domain/channel"
)

// maxResponseSize caps how much of a platform response is read (1MB)
const maxResponseSize = 1 << 20

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlError struct {
	Message string `json:"message"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphqlError  `json:"errors"`
}

// postGraphQL executes one GraphQL request against endpoint and returns the
// raw data document. Non-2xx responses surface as a PlatformError carrying
// the response body; top-level GraphQL errors are joined into one error.
func postGraphQL(ctx context.Context, client *http.Client, platform channel.PlatformCode, endpoint, query string, variables map[string]any, headers map[string]string) (json.RawMessage, error) {
	payload, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("%s: failed to encode request: %w", strings.ToLower(platform.String()), err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create request: %w", strings.ToLower(platform.String()), err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: request failed: %w", strings.ToLower(platform.String()), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read response: %w", strings.ToLower(platform.String()), err)
	}
	if resp.StatusCode >= 400 {
		return nil, channel.NewPlatformError(platform, resp.StatusCode, body)
	}

	var parsed graphqlResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%s: failed to parse response: %w", strings.ToLower(platform.String()), err)
	}
	if len(parsed.Errors) > 0 {
		messages := make([]string, 0, len(parsed.Errors))
		for _, e := range parsed.Errors {
			messages = append(messages, e.Message)
		}
		return nil, fmt.Errorf("%s: %s", strings.ToLower(platform.String()), strings.Join(messages, ". "))
	}
	return parsed.Data, nil
}
