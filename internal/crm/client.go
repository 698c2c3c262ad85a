// Package crm talks to a HubSpot-compatible contacts API: property updates
// carrying validation results, property definition bootstrap, and cursor-paged
// contact listing. All failures are wrapped in categorized *Error values.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"mailguard/internal/platform/config"
)

const defaultPageLimit = 100

// Contact is a CRM contact object.
type Contact struct {
	ID         string            `json:"id"`
	Properties map[string]string `json:"properties"`
}

// Client is a thin HTTP client for the CRM contacts and properties APIs.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// New constructs a CRM client from configuration.
func New(cfg config.CRMConfig, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		token:      cfg.AccessToken,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// UpdateContactProperties patches validation properties onto a contact.
// Keys outside the validation allowlist are filtered; if nothing survives the
// filter the update is skipped and (nil, nil) is returned.
func (c *Client) UpdateContactProperties(ctx context.Context, contactID string, props map[string]string) (*Contact, error) {
	filtered := filterValidationProperties(props)
	if len(filtered) < len(props) {
		c.logger.WarnContext(ctx, "filtered unknown properties from contact update",
			"contact_id", contactID,
			"given", len(props),
			"kept", len(filtered),
		)
	}
	if len(filtered) == 0 {
		c.logger.WarnContext(ctx, "no valid properties to update, skipping",
			"contact_id", contactID,
		)
		return nil, nil
	}

	body := map[string]any{"properties": filtered}
	var updated Contact
	err := c.do(ctx, http.MethodPatch,
		fmt.Sprintf("/crm/v3/objects/contacts/%s", url.PathEscape(contactID)),
		body, &updated)
	if err != nil {
		return nil, err
	}

	c.logger.InfoContext(ctx, "crm contact updated", "contact_id", contactID)
	return &updated, nil
}

// contactPage mirrors the CRM list response shape.
type contactPage struct {
	Results []Contact `json:"results"`
	Paging  *struct {
		Next *struct {
			After string `json:"after"`
		} `json:"next"`
	} `json:"paging"`
}

// ListContacts fetches all contacts, following pagination cursors.
// pageLimit bounds each page, not the total; zero means the default.
func (c *Client) ListContacts(ctx context.Context, pageLimit int) ([]Contact, error) {
	if pageLimit <= 0 {
		pageLimit = defaultPageLimit
	}

	properties := []string{"email", "firstname", "lastname"}
	for name := range validationProperties {
		properties = append(properties, name)
	}

	var all []Contact
	after := ""
	for {
		q := url.Values{}
		q.Set("limit", strconv.Itoa(pageLimit))
		q.Set("archived", "false")
		for _, p := range properties {
			q.Add("properties", p)
		}
		if after != "" {
			q.Set("after", after)
		}

		var page contactPage
		if err := c.do(ctx, http.MethodGet, "/crm/v3/objects/contacts?"+q.Encode(), nil, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Results...)

		if page.Paging == nil || page.Paging.Next == nil || page.Paging.Next.After == "" {
			break
		}
		after = page.Paging.Next.After
	}

	c.logger.InfoContext(ctx, "crm contacts fetched", "count", len(all))
	return all, nil
}

// EnsureValidationProperties creates the validation property definitions on
// the contacts object. A 409 means the property already exists and is skipped;
// any other failure aborts.
func (c *Client) EnsureValidationProperties(ctx context.Context) error {
	created, existing := 0, 0
	for name, def := range validationProperties {
		body := map[string]any{
			"name":        name,
			"label":       def.Label,
			"description": fmt.Sprintf("Stores the '%s' aspect of email validation.", def.Label),
			"groupName":   contactPropertyGroup,
			"type":        def.Type,
			"fieldType":   def.FieldType,
		}
		if len(def.Options) > 0 {
			body["options"] = def.Options
		}

		err := c.do(ctx, http.MethodPost, "/crm/v3/properties/contacts", body, nil)
		if err != nil {
			if CategoryOf(err) == CategoryConflict {
				existing++
				continue
			}
			return fmt.Errorf("create property %s: %w", name, err)
		}
		created++
	}

	c.logger.InfoContext(ctx, "crm validation properties ensured",
		"created", created,
		"existing", existing,
	)
	return nil
}

// do executes one request and decodes the JSON response into out (when out is
// non-nil). Non-2xx responses become categorized errors.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return NewError(CategoryUnknown, "encode request body", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return NewError(CategoryUnknown, "build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return NewError(CategoryTransport, fmt.Sprintf("%s %s", method, path), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &Error{
			Category:   categoryForStatus(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("%s %s: status %d: %s", method, path, resp.StatusCode, string(raw)),
		}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return NewError(CategoryUnknown, "decode response body", err)
		}
	}
	return nil
}
