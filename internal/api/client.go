// Package api is the client for the document store. It speaks the
// store's {success, data, message} envelope protocol and translates
// transport and protocol failures into the error kinds in errors.go.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"secureshare/internal/config"
	"secureshare/internal/model"
)

const requestIDHeader = "X-Request-ID"

// CredentialSource supplies the current bearer credential. An empty
// string means no session is active.
type CredentialSource interface {
	Credential() string
}

// Store defines the document store operations the client exposes.
type Store interface {
	Login(ctx context.Context, email, password string) (string, model.Profile, error)
	Register(ctx context.Context, name, email, password string) error

	ListDocuments(ctx context.Context) ([]model.Document, error)
	UploadDocument(ctx context.Context, r io.Reader, filename, contentType string) (model.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	DownloadDocument(ctx context.Context, id string, w io.Writer) (int64, error)
	ShareDocument(ctx context.Context, docID, granteeID string, level model.AccessLevel) error

	ResolveUserByEmail(ctx context.Context, email string) (model.Profile, error)
	ListUsers(ctx context.Context) ([]model.Profile, error)
	ListAuditEntries(ctx context.Context) ([]model.AuditEntry, error)

	ListFolders(ctx context.Context) ([]model.Folder, error)
	CreateFolder(ctx context.Context, name string) (model.Folder, error)
	DeleteFolder(ctx context.Context, id string) error
}

// Client is the HTTP implementation of Store. Safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	creds   CredentialSource
	metrics *Metrics
	timeout time.Duration
}

var _ Store = (*Client)(nil)

// New builds a client with the default transport chain: otelhttp
// instrumentation wrapped in JSON request logging to stderr.
func New(cfg config.APIConfig, creds CredentialSource, m *Metrics) *Client {
	transport := NewLoggingTransport(otelhttp.NewTransport(http.DefaultTransport), os.Stderr)
	return NewWithHTTPClient(cfg, creds, m, &http.Client{Transport: transport})
}

// NewWithHTTPClient builds a client over a caller-supplied http.Client.
// Used by tests to silence logging or stub the transport.
func NewWithHTTPClient(cfg config.APIConfig, creds CredentialSource, m *Metrics, hc *http.Client) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    hc,
		creds:   creds,
		metrics: m,
		timeout: cfg.RequestTimeout,
	}
}

// envelope is the store's response framing. Success is a pointer so a
// body that lacks the field entirely is distinguishable from false.
type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// remoteError is a well-formed envelope with success=false. Operations
// map it onto their own error kind.
type remoteError struct {
	status  int
	message string
}

func (e *remoteError) Error() string {
	if e.message == "" {
		return fmt.Sprintf("server refused request (status %d)", e.status)
	}
	return e.message
}

// do issues one enveloped request and returns the data payload. All the
// shared failure handling lives here: per-call deadline, bearer header,
// request id, status mapping, envelope validation, call metrics.
func (c *Client) do(ctx context.Context, op, method, path string, body io.Reader, contentType string, authed bool) (json.RawMessage, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set(requestIDHeader, uuid.NewString())
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if authed {
		cred := c.creds.Credential()
		if cred == "" {
			c.metrics.observe(op, "no_credential")
			return nil, fmt.Errorf("%s: %w", op, ErrNoCredential)
		}
		req.Header.Set("Authorization", "Bearer "+cred)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.observe(op, "network_failure")
		return nil, fmt.Errorf("%s: %w: %v", op, ErrNetworkFailure, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.observe(op, "network_failure")
		return nil, fmt.Errorf("%s: %w: %v", op, ErrNetworkFailure, err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		c.metrics.observe(op, "unauthorized")
		return nil, fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Success == nil {
		c.metrics.observe(op, "protocol_error")
		return nil, fmt.Errorf("%s: %w", op, ErrProtocolError)
	}
	if !*env.Success {
		c.metrics.observe(op, "rejected")
		return nil, &remoteError{status: resp.StatusCode, message: env.Message}
	}

	c.metrics.observe(op, "ok")
	return env.Data, nil
}

func decode[T any](op string, raw json.RawMessage, into *T) error {
	if err := json.Unmarshal(raw, into); err != nil {
		return fmt.Errorf("%s: %w", op, ErrProtocolError)
	}
	return nil
}

// Login exchanges credentials for a bearer token and profile snapshot.
func (c *Client) Login(ctx context.Context, email, password string) (string, model.Profile, error) {
	const op = "login"
	body, _ := json.Marshal(map[string]string{"email": email, "password": password})

	raw, err := c.do(ctx, op, http.MethodPost, "/api/auth/login", bytes.NewReader(body), "application/json", false)
	if err != nil {
		var re *remoteError
		if errors.As(err, &re) {
			return "", model.Profile{}, fmt.Errorf("%s: %s", op, re.message)
		}
		return "", model.Profile{}, err
	}

	var data struct {
		Token string        `json:"token"`
		User  model.Profile `json:"user"`
	}
	if err := decode(op, raw, &data); err != nil {
		return "", model.Profile{}, err
	}
	if data.Token == "" {
		return "", model.Profile{}, fmt.Errorf("%s: %w", op, ErrProtocolError)
	}
	return data.Token, data.User, nil
}

// Register creates a new account. The caller logs in separately.
func (c *Client) Register(ctx context.Context, name, email, password string) error {
	const op = "register"
	body, _ := json.Marshal(map[string]string{"name": name, "email": email, "password": password})

	_, err := c.do(ctx, op, http.MethodPost, "/api/auth/register", bytes.NewReader(body), "application/json", false)
	var re *remoteError
	if errors.As(err, &re) {
		return fmt.Errorf("%s: %s", op, re.message)
	}
	return err
}

// ListDocuments fetches the caller's visible documents, normalized to
// the canonical shape.
func (c *Client) ListDocuments(ctx context.Context) ([]model.Document, error) {
	const op = "list documents"
	raw, err := c.do(ctx, op, http.MethodGet, "/api/documents", nil, "", true)
	if err != nil {
		return nil, err
	}

	var wire []model.WireDocument
	if err := decode(op, raw, &wire); err != nil {
		return nil, err
	}
	return model.NormalizeAll(wire), nil
}

// UploadDocument sends the content as multipart form data and returns
// the canonical record the store created.
func (c *Client) UploadDocument(ctx context.Context, r io.Reader, filename, contentType string) (model.Document, error) {
	const op = "upload document"
	if r == nil {
		return model.Document{}, fmt.Errorf("%s: reader is nil", op)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	if err != nil {
		return model.Document{}, fmt.Errorf("%s: %w", op, err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return model.Document{}, fmt.Errorf("%s: %w", op, err)
	}
	if err := mw.Close(); err != nil {
		return model.Document{}, fmt.Errorf("%s: %w", op, err)
	}

	raw, err := c.do(ctx, op, http.MethodPost, "/api/documents", &buf, mw.FormDataContentType(), true)
	if err != nil {
		return model.Document{}, err
	}

	var wire model.WireDocument
	if err := decode(op, raw, &wire); err != nil {
		return model.Document{}, err
	}
	return wire.Normalize(), nil
}

// DeleteDocument removes a document by id.
func (c *Client) DeleteDocument(ctx context.Context, id string) error {
	const op = "delete document"
	_, err := c.do(ctx, op, http.MethodDelete, "/api/documents/"+url.PathEscape(id), nil, "", true)
	var re *remoteError
	if errors.As(err, &re) {
		return fmt.Errorf("%s: %s", op, re.message)
	}
	return err
}

// DownloadDocument streams a document's content into w and reports the
// number of bytes written. Downloads bypass the envelope: a 200 carries
// raw bytes.
func (c *Client) DownloadDocument(ctx context.Context, id string, w io.Writer) (int64, error) {
	const op = "download document"
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	cred := c.creds.Credential()
	if cred == "" {
		c.metrics.observe(op, "no_credential")
		return 0, fmt.Errorf("%s: %w", op, ErrNoCredential)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/documents/"+url.PathEscape(id)+"/download", nil)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set(requestIDHeader, uuid.NewString())
	req.Header.Set("Authorization", "Bearer "+cred)

	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.observe(op, "network_failure")
		return 0, fmt.Errorf("%s: %w: %v", op, ErrNetworkFailure, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		c.metrics.observe(op, "unauthorized")
		return 0, fmt.Errorf("%s: %w", op, ErrUnauthorized)
	case resp.StatusCode != http.StatusOK:
		c.metrics.observe(op, "rejected")
		return 0, fmt.Errorf("%s: unexpected status %d", op, resp.StatusCode)
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		c.metrics.observe(op, "network_failure")
		return n, fmt.Errorf("%s: %w: %v", op, ErrNetworkFailure, err)
	}
	c.metrics.observe(op, "ok")
	return n, nil
}

// ShareDocument asks the store to grant the resolved grantee access to
// the document at the given level.
func (c *Client) ShareDocument(ctx context.Context, docID, granteeID string, level model.AccessLevel) error {
	const op = "share document"
	if !level.Valid() {
		return fmt.Errorf("%s: invalid access level %q", op, level)
	}
	body, _ := json.Marshal(map[string]string{
		"granteeId":   granteeID,
		"accessLevel": string(level),
	})

	_, err := c.do(ctx, op, http.MethodPost, "/api/documents/"+url.PathEscape(docID)+"/share", bytes.NewReader(body), "application/json", true)
	var re *remoteError
	if errors.As(err, &re) {
		return fmt.Errorf("%s: %w: %s", op, ErrGrantRejected, re.message)
	}
	return err
}

// ResolveUserByEmail looks a recipient up in the directory.
func (c *Client) ResolveUserByEmail(ctx context.Context, email string) (model.Profile, error) {
	const op = "resolve user"
	raw, err := c.do(ctx, op, http.MethodGet, "/api/users/resolve?email="+url.QueryEscape(email), nil, "", true)
	if err != nil {
		var re *remoteError
		if errors.As(err, &re) {
			return model.Profile{}, fmt.Errorf("%s %q: %w", op, email, ErrRecipientNotFound)
		}
		return model.Profile{}, err
	}

	var p model.Profile
	if err := decode(op, raw, &p); err != nil {
		return model.Profile{}, err
	}
	if p.ID == "" {
		return model.Profile{}, fmt.Errorf("%s %q: %w", op, email, ErrRecipientNotFound)
	}
	return p, nil
}

// ListUsers returns all directory profiles.
func (c *Client) ListUsers(ctx context.Context) ([]model.Profile, error) {
	const op = "list users"
	raw, err := c.do(ctx, op, http.MethodGet, "/api/users", nil, "", true)
	if err != nil {
		return nil, err
	}
	var users []model.Profile
	if err := decode(op, raw, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// ListAuditEntries fetches the audit trail. The store enforces the
// admin requirement; a 403 surfaces as ErrUnauthorized.
func (c *Client) ListAuditEntries(ctx context.Context) ([]model.AuditEntry, error) {
	const op = "list audit entries"
	raw, err := c.do(ctx, op, http.MethodGet, "/api/audit-logs", nil, "", true)
	if err != nil {
		return nil, err
	}

	var wire []model.WireAuditEntry
	if err := decode(op, raw, &wire); err != nil {
		return nil, err
	}
	entries := make([]model.AuditEntry, 0, len(wire))
	for _, w := range wire {
		entries = append(entries, w.Normalize())
	}
	return entries, nil
}

// ListFolders returns the caller's folders.
func (c *Client) ListFolders(ctx context.Context) ([]model.Folder, error) {
	const op = "list folders"
	raw, err := c.do(ctx, op, http.MethodGet, "/api/folders", nil, "", true)
	if err != nil {
		return nil, err
	}

	var wire []model.WireFolder
	if err := decode(op, raw, &wire); err != nil {
		return nil, err
	}
	folders := make([]model.Folder, 0, len(wire))
	for _, w := range wire {
		folders = append(folders, w.Normalize())
	}
	return folders, nil
}

// CreateFolder creates a folder owned by the caller.
func (c *Client) CreateFolder(ctx context.Context, name string) (model.Folder, error) {
	const op = "create folder"
	body, _ := json.Marshal(map[string]string{"name": name})

	raw, err := c.do(ctx, op, http.MethodPost, "/api/folders", bytes.NewReader(body), "application/json", true)
	if err != nil {
		var re *remoteError
		if errors.As(err, &re) {
			return model.Folder{}, fmt.Errorf("%s: %s", op, re.message)
		}
		return model.Folder{}, err
	}

	var wire model.WireFolder
	if err := decode(op, raw, &wire); err != nil {
		return model.Folder{}, err
	}
	return wire.Normalize(), nil
}

// DeleteFolder removes a folder by id.
func (c *Client) DeleteFolder(ctx context.Context, id string) error {
	const op = "delete folder"
	_, err := c.do(ctx, op, http.MethodDelete, "/api/folders/"+url.PathEscape(id), nil, "", true)
	var re *remoteError
	if errors.As(err, &re) {
		return fmt.Errorf("%s: %s", op, re.message)
	}
	return err
}
