package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/karelhala/poker-planning-hackathon-2025/internal/protocol"
)

const (
	DefaultJQL     = "order by created DESC"
	defaultSummary = "No summary"
)

var (
	ErrMissingCredentials = errors.New("missing Jira credentials")
	ErrDomainNotAllowed   = errors.New("jira domain not allowed")
)

// DefaultAllowedDomains are the domain suffixes searched when Config leaves
// AllowedDomains empty.
var DefaultAllowedDomains = []string{"atlassian.net"}

type Credentials struct {
	Domain string `json:"domain"`
	Email  string `json:"email"`
	Token  string `json:"token"`
}

func (c Credentials) Valid() bool {
	return strings.TrimSpace(c.Domain) != "" && c.Email != "" && c.Token != ""
}

type Config struct {
	Timeout time.Duration
	// AllowedDomains lists the domain suffixes credentials may point at.
	AllowedDomains []string
	Transport      http.RoundTripper
}

// Client queries the Jira REST v3 search API.
type Client struct {
	httpClient *http.Client
	allowed    []string
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	allowed := make([]string, 0, len(cfg.AllowedDomains))
	for _, d := range cfg.AllowedDomains {
		if d = strings.Trim(strings.ToLower(strings.TrimSpace(d)), "."); d != "" {
			allowed = append(allowed, d)
		}
	}
	if len(allowed) == 0 {
		allowed = DefaultAllowedDomains
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout, Transport: cfg.Transport},
		allowed:    allowed,
	}
}

// checkDomain accepts a bare host name under one of the allowed suffixes.
// Ports, paths, user info and IP literals are refused.
func (c *Client) checkDomain(domain string) (string, error) {
	host := strings.ToLower(strings.TrimSpace(domain))
	if host == "" || strings.ContainsAny(host, "/?#@:%\\ ") || net.ParseIP(host) != nil {
		return "", fmt.Errorf("%w: %q", ErrDomainNotAllowed, domain)
	}
	for _, suffix := range c.allowed {
		if host == suffix || strings.HasSuffix(host, "."+suffix) {
			return host, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrDomainNotAllowed, domain)
}

type searchResponse struct {
	Issues []struct {
		ID     string `json:"id"`
		Key    string `json:"key"`
		Fields struct {
			Summary string `json:"summary"`
		} `json:"fields"`
	} `json:"issues"`
	ErrorMessages []string `json:"errorMessages"`
}

// Search runs jql against the tracker at creds.Domain. An empty query uses
// DefaultJQL.
func (c *Client) Search(ctx context.Context, creds Credentials, jql string) ([]protocol.Ticket, error) {
	if !creds.Valid() {
		return nil, ErrMissingCredentials
	}
	if strings.TrimSpace(jql) == "" {
		jql = DefaultJQL
	}
	domain, err := c.checkDomain(creds.Domain)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("https://%s/rest/api/3/search?jql=%s", domain, url.QueryEscape(jql))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(creds.Email, creds.Token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("jira request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("jira returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	tickets := make([]protocol.Ticket, 0, len(out.Issues))
	for _, issue := range out.Issues {
		summary := issue.Fields.Summary
		if summary == "" {
			summary = defaultSummary
		}
		tickets = append(tickets, protocol.Ticket{
			ID:      issue.ID,
			Key:     issue.Key,
			Summary: summary,
			Link:    fmt.Sprintf("https://%s/browse/%s", domain, issue.Key),
		})
	}
	return tickets, nil
}

// Searcher binds a client to one set of credentials so a poker client can
// query it directly.
type Searcher struct {
	client *Client
	creds  Credentials
}

func NewSearcher(client *Client, creds Credentials) *Searcher {
	return &Searcher{client: client, creds: creds}
}

func (s *Searcher) SearchIssues(ctx context.Context, query string) ([]protocol.Ticket, error) {
	return s.client.Search(ctx, s.creds, query)
}
