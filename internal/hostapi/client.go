package hostapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// httpRouter negotiates API versions against a host reachable over HTTP.
type httpRouter struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewHTTPRouter returns a Router that talks to the host at baseURL.
func NewHTTPRouter(baseURL, token string) Router {
	return &httpRouter{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (r *httpRouter) UseVersion(ctx context.Context, version string) (API, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/api/versions", nil)
	if err != nil {
		return nil, err
	}
	applyAuth(req, r.token)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRouterUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: host returned %d", ErrVersionUnsupported, resp.StatusCode)
	}

	var vr struct {
		Versions []string `json:"versions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVersionUnsupported, err)
	}

	for _, v := range vr.Versions {
		if v == version {
			c := &Client{
				baseURL:    r.baseURL + "/api/" + version,
				token:      r.token,
				sessionID:  uuid.NewString(),
				httpClient: r.httpClient,
			}
			c.events = newEventStream(wsURL(r.baseURL, version), r.token)
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: %q not offered by host", ErrVersionUnsupported, version)
}

func wsURL(baseURL, version string) string {
	ws := strings.Replace(baseURL, "http://", "ws://", 1)
	ws = strings.Replace(ws, "https://", "wss://", 1)
	return ws + "/api/" + version + "/ws"
}

// Client is the HTTP implementation of the negotiated v1 API.
type Client struct {
	baseURL    string
	token      string
	sessionID  string
	httpClient *http.Client
	events     *eventStream
}

// SessionID identifies this client in lock ownership.
func (c *Client) SessionID() string { return c.sessionID }

func applyAuth(req *http.Request, token string) {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	applyAuth(req, c.token)
	req.Header.Set("X-Session", c.sessionID)
	return c.httpClient.Do(req)
}

// decodeError converts a non-2xx response into an error, preferring the
// host's {"error": ...} body.
func decodeError(resp *http.Response) error {
	var er struct {
		Error  string `json:"error"`
		Holder string `json:"holder"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&er)

	if resp.StatusCode == http.StatusConflict {
		if er.Holder != "" {
			return fmt.Errorf("%w (held by %s)", ErrLocked, er.Holder)
		}
		return ErrLocked
	}
	if er.Error != "" {
		return fmt.Errorf("host returned %d: %s", resp.StatusCode, er.Error)
	}
	return fmt.Errorf("host returned %d", resp.StatusCode)
}

func escapePath(p string) string {
	segments := strings.Split(p, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

type fileInfo struct {
	Path string `json:"path"`
}

func (c *Client) fetchFileList(ctx context.Context, path string) ([]FileRecord, error) {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}

	var lr struct {
		Files []fileInfo `json:"files"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return nil, err
	}

	records := make([]FileRecord, len(lr.Files))
	for i, f := range lr.Files {
		records[i] = &fileHandle{client: c, path: f.Path}
	}
	return records, nil
}

// Files returns the full file list across all collections.
func (c *Client) Files(ctx context.Context) ([]FileRecord, error) {
	return c.fetchFileList(ctx, "/files")
}

// Collections returns the host's collection list.
func (c *Client) Collections(ctx context.Context) ([]CollectionInfo, error) {
	resp, err := c.do(ctx, http.MethodGet, "/collections", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}

	var cr struct {
		Collections []CollectionInfo `json:"collections"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, err
	}
	return cr.Collections, nil
}

// Collection returns a handle to one collection by key.
func (c *Client) Collection(key string) Collection {
	return &collectionHandle{client: c, key: key}
}

// File returns a handle to the file at path.
func (c *Client) File(path string) FileRecord {
	return &fileHandle{client: c, path: path}
}

// CurrentFile returns the file currently focused in the host editor.
func (c *Client) CurrentFile(ctx context.Context) (FileRecord, error) {
	resp, err := c.do(ctx, http.MethodGet, "/current", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}

	var f fileInfo
	if err := json.NewDecoder(resp.Body).Decode(&f); err != nil {
		return nil, err
	}
	return &fileHandle{client: c, path: f.Path}, nil
}

// Upload creates a file at path from content.
func (c *Client) Upload(ctx context.Context, path string, content io.Reader) error {
	resp, err := c.do(ctx, http.MethodPost, "/upload?path="+url.QueryEscape(path), content)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return decodeError(resp)
	}
	return nil
}

// Structure returns the host's content structure summary.
func (c *Client) Structure(ctx context.Context) (*Structure, error) {
	resp, err := c.do(ctx, http.MethodGet, "/structure", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}

	var s Structure
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

// AddListener registers an event listener; the underlying stream connects
// on first registration.
func (c *Client) AddListener(scope Scope, kind EventKind, fn func(Event)) string {
	return c.events.add(scope, kind, fn)
}

// RemoveListener deregisters a listener by id.
func (c *Client) RemoveListener(id string) {
	c.events.remove(id)
}

// Close stops the event stream and drops all listeners.
func (c *Client) Close() error {
	c.events.close()
	return nil
}

type fileHandle struct {
	client *Client
	path   string
}

func (f *fileHandle) Path() string { return f.path }

func (f *fileHandle) Get(ctx context.Context) (string, error) {
	resp, err := f.client.do(ctx, http.MethodGet, "/file/"+escapePath(f.path), nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", decodeError(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (f *fileHandle) Set(ctx context.Context, content string) error {
	resp, err := f.client.do(ctx, http.MethodPut, "/file/"+escapePath(f.path), bytes.NewReader([]byte(content)))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	return nil
}

func (f *fileHandle) ClaimLock(ctx context.Context) error {
	resp, err := f.client.do(ctx, http.MethodPost, "/lock/"+escapePath(f.path), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	return nil
}

func (f *fileHandle) ReleaseLock(ctx context.Context) error {
	resp, err := f.client.do(ctx, http.MethodDelete, "/lock/"+escapePath(f.path), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	return nil
}

func (f *fileHandle) Metadata(ctx context.Context) (Metadata, error) {
	resp, err := f.client.do(ctx, http.MethodGet, "/meta/"+escapePath(f.path), nil)
	if err != nil {
		return Metadata{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Metadata{}, decodeError(resp)
	}

	var m Metadata
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return Metadata{}, err
	}
	return m, nil
}

type collectionHandle struct {
	client *Client
	key    string
}

func (col *collectionHandle) Key() string { return col.key }

func (col *collectionHandle) Files(ctx context.Context) ([]FileRecord, error) {
	return col.client.fetchFileList(ctx, "/collections/"+url.PathEscape(col.key)+"/files")
}
