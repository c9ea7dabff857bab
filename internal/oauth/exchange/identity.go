package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/postpilothq/postpilot/internal/providers"
)

// fetchAccountID calls the provider's "who am I" endpoint and extracts the
// stable account identifier. This is the one place where response shapes are
// genuinely provider-specific.
func (a *Adapter) fetchAccountID(ctx context.Context, spec providers.Spec, accessToken string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, spec.IdentityURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")
	for k, v := range spec.ExtraHeaders {
		req.Header.Set(k, v)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return "", &Error{Provider: spec.Name, Err: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if resp.StatusCode != http.StatusOK {
		return "", &Error{Provider: spec.Name, Status: resp.StatusCode, Body: string(body)}
	}

	id, err := parseAccountID(spec.Name, body)
	if err != nil {
		return "", &Error{Provider: spec.Name, Status: resp.StatusCode, Body: string(body), Err: err}
	}
	return id, nil
}

// parseAccountID extracts the account id from each provider's identity
// response shape.
func parseAccountID(provider string, body []byte) (string, error) {
	switch provider {
	case "twitter":
		// {"data":{"id":"...","username":"..."}}
		var v struct {
			Data struct {
				ID string `json:"id"`
			} `json:"data"`
		}
		if err := json.Unmarshal(body, &v); err != nil {
			return "", err
		}
		return nonEmpty(provider, v.Data.ID)

	case "linkedin":
		// OIDC userinfo: {"sub":"..."}
		var v struct {
			Sub string `json:"sub"`
		}
		if err := json.Unmarshal(body, &v); err != nil {
			return "", err
		}
		return nonEmpty(provider, v.Sub)

	case "facebook":
		// {"id":"...","name":"..."}
		var v struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(body, &v); err != nil {
			return "", err
		}
		return nonEmpty(provider, v.ID)

	case "tiktok":
		// {"data":{"user":{"open_id":"..."}}}
		var v struct {
			Data struct {
				User struct {
					OpenID string `json:"open_id"`
				} `json:"user"`
			} `json:"data"`
		}
		if err := json.Unmarshal(body, &v); err != nil {
			return "", err
		}
		return nonEmpty(provider, v.Data.User.OpenID)

	case "youtube":
		// channels list: {"items":[{"id":"..."}]}
		var v struct {
			Items []struct {
				ID string `json:"id"`
			} `json:"items"`
		}
		if err := json.Unmarshal(body, &v); err != nil {
			return "", err
		}
		if len(v.Items) == 0 {
			return "", fmt.Errorf("youtube: empty channel list")
		}
		return nonEmpty(provider, v.Items[0].ID)

	case "pinterest":
		// {"username":"...","account_type":"..."}
		var v struct {
			Username string `json:"username"`
		}
		if err := json.Unmarshal(body, &v); err != nil {
			return "", err
		}
		return nonEmpty(provider, v.Username)

	case "reddit":
		// {"name":"...","id":"..."}
		var v struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(body, &v); err != nil {
			return "", err
		}
		return nonEmpty(provider, v.Name)

	default:
		return "", fmt.Errorf("no identity parser for provider %q", provider)
	}
}

func nonEmpty(provider, id string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("%s: empty account id in identity response", provider)
	}
	return id, nil
}
