package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	nethttp "net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/agrc/agol-shelf/internal/config"
	"github.com/agrc/agol-shelf/internal/constants"
	"github.com/agrc/agol-shelf/internal/http"
	"github.com/agrc/agol-shelf/internal/models"
	"github.com/agrc/agol-shelf/internal/ratelimit"
)

// retryLogger implements the retryablehttp.LeveledLogger interface
type retryLogger struct{}

func (l *retryLogger) Error(msg string, keysAndValues ...interface{}) {
	log.Printf("[RETRY ERROR] %s %v", msg, keysAndValues)
}

func (l *retryLogger) Info(msg string, keysAndValues ...interface{}) {
	// Only log errors and warnings, not all info
}

func (l *retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	// Only log errors and warnings
}

func (l *retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	log.Printf("[RETRY WARN] %s %v", msg, keysAndValues)
}

// Client talks to the ArcGIS sharing REST API. All calls go through
// doRequest, which handles the token, the f=json envelope, rate limiting,
// and the API's habit of returning errors inside HTTP 200 bodies.
type Client struct {
	httpClient    *nethttp.Client
	uploadClient  *nethttp.Client // no client-level timeout, no retries
	config        *config.Config
	baseURL       string // portal host, no trailing slash
	token         string
	username      string
	readLimiter   *ratelimit.RateLimiter // search, folder walks, item/group reads
	writeLimiter  *ratelimit.RateLimiter // update/share/move/protect
	publishLimter *ratelimit.RateLimiter // addItem/publish/updateDefinition
}

// NewClient creates a new portal client. cfg.Token may be empty; call
// SignIn before any authenticated request in that case.
func NewClient(cfg *config.Config) (*Client, error) {
	httpClient, err := http.ConfigureHTTPClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to configure HTTP client: %w", err)
	}

	// Wrap with retry logic
	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = httpClient
	retryClient.RetryMax = 5
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 30 * time.Second
	retryClient.Logger = &retryLogger{}

	// Service-definition uploads can run far longer than the transport
	// client's timeout, and their streamed multipart body cannot be
	// replayed by the retry wrapper. They get the same proxied transport
	// with the deadline left to the per-request upload context.
	uploadClient := &nethttp.Client{Transport: httpClient.Transport}

	return &Client{
		httpClient:    retryClient.StandardClient(),
		uploadClient:  uploadClient,
		config:        cfg,
		baseURL:       strings.TrimSuffix(cfg.PortalURL, "/"),
		token:         cfg.Token,
		username:      cfg.Username,
		readLimiter:   ratelimit.NewPortalRateLimiter(),
		writeLimiter:  ratelimit.NewUpdateRateLimiter(),
		publishLimter: ratelimit.NewPublishRateLimiter(),
	}, nil
}

// Username returns the account the client operates as.
func (c *Client) Username() string {
	return c.username
}

// Token returns the current portal token (for saving to a token file).
func (c *Client) Token() string {
	return c.token
}

// limiterFor selects the rate limiter for a sharing API path.
func (c *Client) limiterFor(path string) *ratelimit.RateLimiter {
	switch {
	case strings.Contains(path, "/addItem"),
		strings.Contains(path, "/publish"),
		strings.Contains(path, "/updateDefinition"):
		return c.publishLimter
	case strings.Contains(path, "/update"),
		strings.Contains(path, "/share"),
		strings.Contains(path, "/move"),
		strings.Contains(path, "/protect"),
		strings.Contains(path, "/createFolder"):
		return c.writeLimiter
	default:
		return c.readLimiter
	}
}

// doRequest performs a sharing API request. GET when form is nil, otherwise
// a form-encoded POST. The token and f=json are always appended. The
// decoded body is checked for the portal's in-band error envelope before
// being returned.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, form url.Values, out interface{}) error {
	limiter := c.limiterFor(path)
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter cancelled: %w", err)
	}

	if query == nil {
		query = url.Values{}
	}
	query.Set("f", "json")
	if c.token != "" && !strings.HasSuffix(path, "/generateToken") {
		query.Set("token", c.token)
	}

	fullURL := c.baseURL + path + "?" + query.Encode()

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := nethttp.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Referer", constants.DefaultReferer)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := decodeEnvelope(resp, path, out); err != nil {
		if isThrottled(err) {
			limiter.Drain()
		}
		return err
	}
	return nil
}

// isThrottled reports whether the portal signalled rate limiting in-band.
func isThrottled(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == 429 || apiErr.Code == 503
}

// decodeEnvelope reads a sharing API response body, surfacing both HTTP
// level failures and the in-band {"error": ...} envelope.
func decodeEnvelope(resp *nethttp.Response, path string, out interface{}) error {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != nethttp.StatusOK {
		return fmt.Errorf("%s failed: status %d: %s", path, resp.StatusCode, string(raw))
	}

	// The portal returns errors inside HTTP 200 bodies
	var envelope struct {
		Error *APIError `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error != nil {
		return wrapEnvelope(envelope.Error)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

// SignIn generates a portal token for the configured username and stores it
// on the client for subsequent requests.
func (c *Client) SignIn(ctx context.Context, password string) error {
	form := url.Values{}
	form.Set("username", c.username)
	form.Set("password", password)
	form.Set("referer", constants.DefaultReferer)
	form.Set("expiration", strconv.Itoa(constants.TokenLifetimeMinutes))

	var result struct {
		Token   string `json:"token"`
		Expires int64  `json:"expires"`
	}
	if err := c.doRequest(ctx, "POST", "/sharing/rest/generateToken", nil, form, &result); err != nil {
		return fmt.Errorf("sign in failed: %w", err)
	}
	if result.Token == "" {
		return fmt.Errorf("sign in failed: portal returned no token")
	}

	c.token = result.Token
	c.config.Token = result.Token
	return nil
}

// Self verifies the token by fetching the signed-in user. Returns the
// portal's notion of the username.
func (c *Client) Self(ctx context.Context) (string, error) {
	var result struct {
		Username string `json:"username"`
	}
	if err := c.doRequest(ctx, "GET", "/sharing/rest/community/self", nil, nil, &result); err != nil {
		return "", err
	}
	if result.Username == "" {
		return "", ErrInvalidToken
	}
	return result.Username, nil
}

// SearchItems runs an org search, following nextStart pagination until the
// portal reports no more pages. itemType filters server-side when non-empty.
func (c *Client) SearchItems(ctx context.Context, query, itemType string) ([]models.Item, error) {
	q := query
	if itemType != "" {
		q = fmt.Sprintf(`%s type:"%s"`, query, itemType)
	}

	var all []models.Item
	start := 1
	for start > 0 {
		params := url.Values{}
		params.Set("q", q)
		params.Set("num", strconv.Itoa(constants.SearchPageSize))
		params.Set("start", strconv.Itoa(start))

		var page struct {
			Total     int           `json:"total"`
			NextStart int           `json:"nextStart"`
			Results   []models.Item `json:"results"`
		}
		if err := c.doRequest(ctx, "GET", "/sharing/rest/search", params, nil, &page); err != nil {
			return nil, fmt.Errorf("search failed: %w", err)
		}

		all = append(all, page.Results...)
		start = page.NextStart // -1 when exhausted
	}

	return all, nil
}

// ListFolders returns the user's content folders. The root is not included;
// callers treat an empty folder ID as the root.
func (c *Client) ListFolders(ctx context.Context) ([]models.Folder, error) {
	var result struct {
		Folders []models.Folder `json:"folders"`
	}
	path := fmt.Sprintf("/sharing/rest/content/users/%s", c.username)
	if err := c.doRequest(ctx, "GET", path, nil, nil, &result); err != nil {
		return nil, fmt.Errorf("list folders failed: %w", err)
	}
	return result.Folders, nil
}

// ListFolderItems returns every item in one folder (empty folderID = root),
// following pagination.
func (c *Client) ListFolderItems(ctx context.Context, folderID string) ([]models.Item, error) {
	path := fmt.Sprintf("/sharing/rest/content/users/%s", c.username)
	if folderID != "" {
		path += "/" + folderID
	}

	var all []models.Item
	start := 1
	for start > 0 {
		params := url.Values{}
		params.Set("num", strconv.Itoa(constants.SearchPageSize))
		params.Set("start", strconv.Itoa(start))

		var page struct {
			NextStart int           `json:"nextStart"`
			Items     []models.Item `json:"items"`
		}
		if err := c.doRequest(ctx, "GET", path, params, nil, &page); err != nil {
			return nil, fmt.Errorf("list folder items failed: %w", err)
		}

		all = append(all, page.Items...)
		start = page.NextStart
	}

	return all, nil
}

// GetItem fetches a single item by id.
func (c *Client) GetItem(ctx context.Context, itemID string) (*models.Item, error) {
	var item models.Item
	path := fmt.Sprintf("/sharing/rest/content/items/%s", itemID)
	if err := c.doRequest(ctx, "GET", path, nil, nil, &item); err != nil {
		return nil, fmt.Errorf("get item failed: %w", err)
	}
	return &item, nil
}

// UpdateItem updates descriptive fields on an item. fields holds the form
// values the sharing API expects (tags, snippet, description, licenseInfo,
// accessInformation).
func (c *Client) UpdateItem(ctx context.Context, itemID, folderID string, fields url.Values) error {
	path := c.userItemPath(itemID, folderID, "update")

	var result struct {
		Success bool `json:"success"`
	}
	if err := c.doRequest(ctx, "POST", path, nil, fields, &result); err != nil {
		return fmt.Errorf("update item failed: %w", err)
	}
	if !result.Success {
		return fmt.Errorf("update item failed: portal reported success=false")
	}
	return nil
}

// UpdateItemTags replaces an item's tag list.
func (c *Client) UpdateItemTags(ctx context.Context, itemID, folderID string, tags []string) error {
	form := url.Values{}
	form.Set("tags", strings.Join(tags, ","))
	return c.UpdateItem(ctx, itemID, folderID, form)
}

// ShareItem shares an item with everyone, the org, and/or a list of groups.
func (c *Client) ShareItem(ctx context.Context, itemID, folderID string, everyone, org bool, groupIDs []string) error {
	form := url.Values{}
	form.Set("everyone", strconv.FormatBool(everyone))
	form.Set("org", strconv.FormatBool(org))
	if len(groupIDs) > 0 {
		form.Set("groups", strings.Join(groupIDs, ","))
	}

	path := c.userItemPath(itemID, folderID, "share")
	if err := c.doRequest(ctx, "POST", path, nil, form, nil); err != nil {
		return fmt.Errorf("share item failed: %w", err)
	}
	return nil
}

// ProtectItem toggles delete protection on an item.
func (c *Client) ProtectItem(ctx context.Context, itemID, folderID string, enable bool) error {
	action := "protect"
	if !enable {
		action = "unprotect"
	}

	var result struct {
		Success bool `json:"success"`
	}
	path := c.userItemPath(itemID, folderID, action)
	if err := c.doRequest(ctx, "POST", path, nil, url.Values{}, &result); err != nil {
		return fmt.Errorf("%s item failed: %w", action, err)
	}
	if !result.Success {
		return fmt.Errorf("%s item failed: portal reported success=false", action)
	}
	return nil
}

// MoveItem moves an item to another folder ("/" moves to root).
func (c *Client) MoveItem(ctx context.Context, itemID, currentFolderID, destFolderID string) error {
	form := url.Values{}
	form.Set("folder", destFolderID)

	var result struct {
		Success bool `json:"success"`
	}
	path := c.userItemPath(itemID, currentFolderID, "move")
	if err := c.doRequest(ctx, "POST", path, nil, form, &result); err != nil {
		return fmt.Errorf("move item failed: %w", err)
	}
	if !result.Success {
		return fmt.Errorf("move item failed: portal reported success=false")
	}
	return nil
}

// CreateFolder creates a content folder and returns it. The portal rejects
// duplicates, so callers should look before they create.
func (c *Client) CreateFolder(ctx context.Context, title string) (*models.Folder, error) {
	form := url.Values{}
	form.Set("title", title)

	var result struct {
		Success bool          `json:"success"`
		Folder  models.Folder `json:"folder"`
	}
	path := fmt.Sprintf("/sharing/rest/content/users/%s/createFolder", c.username)
	if err := c.doRequest(ctx, "POST", path, nil, form, &result); err != nil {
		return nil, fmt.Errorf("create folder failed: %w", err)
	}
	if !result.Success {
		return nil, fmt.Errorf("create folder failed: portal reported success=false")
	}
	return &result.Folder, nil
}

// SearchGroups finds org groups by exact title.
func (c *Client) SearchGroups(ctx context.Context, title string) ([]models.Group, error) {
	params := url.Values{}
	params.Set("q", fmt.Sprintf(`title:"%s"`, title))
	params.Set("num", strconv.Itoa(constants.SearchPageSize))

	var result struct {
		Results []models.Group `json:"results"`
	}
	if err := c.doRequest(ctx, "GET", "/sharing/rest/community/groups", params, nil, &result); err != nil {
		return nil, fmt.Errorf("group search failed: %w", err)
	}

	// The portal fuzzy-matches; keep exact title hits only
	var exact []models.Group
	for _, g := range result.Results {
		if g.Title == title {
			exact = append(exact, g)
		}
	}
	return exact, nil
}

// ItemGroups looks up the groups an item is shared with. Lookup failures
// (permission denied on items shared by other accounts) come back inside
// the result rather than as a hard error, because callers treat "could not
// determine" differently from "no groups".
func (c *Client) ItemGroups(ctx context.Context, itemID string) models.GroupsResult {
	var result struct {
		Admin  []models.Group `json:"admin"`
		Member []models.Group `json:"member"`
		Other  []models.Group `json:"other"`
	}
	path := fmt.Sprintf("/sharing/rest/content/items/%s/groups", itemID)
	if err := c.doRequest(ctx, "GET", path, nil, nil, &result); err != nil {
		return models.GroupsResult{Err: err}
	}

	var groups []models.Group
	groups = append(groups, result.Admin...)
	groups = append(groups, result.Member...)
	groups = append(groups, result.Other...)
	return models.GroupsResult{Groups: groups}
}

// ItemUsage reads usage statistics (request counts) for an item over the
// trailing period, e.g. "1Y".
func (c *Client) ItemUsage(ctx context.Context, itemID, period string) (*models.UsageStats, error) {
	params := url.Values{}
	params.Set("startTime", strconv.FormatInt(periodStart(period), 10))
	params.Set("endTime", strconv.FormatInt(time.Now().UnixMilli(), 10))
	params.Set("period", "1d")
	params.Set("vars", "num")
	params.Set("etype", "svcusg")
	params.Set("name", itemID)

	var result struct {
		Data []struct {
			Num [][]string `json:"num"`
		} `json:"data"`
	}
	if err := c.doRequest(ctx, "GET", "/sharing/rest/portals/self/usage", params, nil, &result); err != nil {
		return nil, fmt.Errorf("usage lookup failed: %w", err)
	}

	var total int64
	for _, series := range result.Data {
		for _, point := range series.Num {
			if len(point) < 2 {
				continue
			}
			if n, err := strconv.ParseInt(point[1], 10, 64); err == nil {
				total += n
			}
		}
	}
	return &models.UsageStats{Requests: total}, nil
}

// periodStart converts a trailing-period string ("1Y", "30D") to epoch ms.
func periodStart(period string) int64 {
	now := time.Now()
	switch strings.ToUpper(period) {
	case "1Y":
		return now.AddDate(-1, 0, 0).UnixMilli()
	case "6M":
		return now.AddDate(0, -6, 0).UnixMilli()
	case "30D":
		return now.AddDate(0, 0, -30).UnixMilli()
	default:
		return now.AddDate(-1, 0, 0).UnixMilli()
	}
}

// AddItem uploads a service definition file as a new portal item and
// returns its id. The upload is a single multipart request; service
// definitions for shelved layers are small enough not to need the portal's
// chunked addPart protocol.
func (c *Client) AddItem(ctx context.Context, title, sdPath string) (string, error) {
	file, err := os.Open(sdPath)
	if err != nil {
		return "", fmt.Errorf("failed to open service definition: %w", err)
	}
	defer file.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		defer pw.Close()
		defer mw.Close()

		_ = mw.WriteField("title", title)
		_ = mw.WriteField("type", "Service Definition")
		_ = mw.WriteField("f", "json")
		_ = mw.WriteField("token", c.token)

		part, err := mw.CreateFormFile("file", filepath.Base(sdPath))
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, file); err != nil {
			pw.CloseWithError(err)
			return
		}
	}()

	if err := c.publishLimter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter cancelled: %w", err)
	}

	uploadCtx, cancel := context.WithTimeout(ctx, constants.UploadTimeout)
	defer cancel()

	uploadURL := fmt.Sprintf("%s/sharing/rest/content/users/%s/addItem", c.baseURL, c.username)
	req, err := nethttp.NewRequestWithContext(uploadCtx, "POST", uploadURL, pr)
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Referer", constants.DefaultReferer)

	resp, err := c.uploadClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload failed: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		Success bool   `json:"success"`
		ID      string `json:"id"`
	}
	if err := decodeEnvelope(resp, "/addItem", &result); err != nil {
		return "", err
	}
	if !result.Success || result.ID == "" {
		return "", fmt.Errorf("upload failed: portal reported success=false")
	}
	return result.ID, nil
}

// PublishItem publishes an uploaded service definition as a hosted feature
// service. Returns the published item's id and service URL.
func (c *Client) PublishItem(ctx context.Context, sdItemID string) (string, string, error) {
	form := url.Values{}
	form.Set("itemID", sdItemID)
	form.Set("fileType", "serviceDefinition")

	var result struct {
		Services []struct {
			ServiceItemID string `json:"serviceItemId"`
			ServiceURL    string `json:"serviceurl"`
			Success       bool   `json:"success"`
			Error         *APIError
		} `json:"services"`
	}
	path := fmt.Sprintf("/sharing/rest/content/users/%s/publish", c.username)
	if err := c.doRequest(ctx, "POST", path, nil, form, &result); err != nil {
		return "", "", fmt.Errorf("publish failed: %w", err)
	}
	if len(result.Services) == 0 {
		return "", "", fmt.Errorf("publish failed: portal returned no services")
	}

	svc := result.Services[0]
	if svc.Error != nil {
		return "", "", fmt.Errorf("publish failed: %w", wrapEnvelope(svc.Error))
	}
	if svc.ServiceItemID == "" {
		return "", "", fmt.Errorf("publish failed: no service item id in response")
	}
	return svc.ServiceItemID, svc.ServiceURL, nil
}

// UpdateCapabilities sets the capability list on a hosted feature service
// via its admin endpoint ("Query,Extract" enables public downloads).
func (c *Client) UpdateCapabilities(ctx context.Context, serviceURL, capabilities string) error {
	adminURL := toAdminURL(serviceURL)

	form := url.Values{}
	form.Set("updateDefinition", fmt.Sprintf(`{"capabilities":"%s"}`, capabilities))
	form.Set("f", "json")
	form.Set("token", c.token)

	if err := c.publishLimter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter cancelled: %w", err)
	}

	req, err := nethttp.NewRequestWithContext(ctx, "POST", adminURL+"/updateDefinition", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Referer", constants.DefaultReferer)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("update capabilities failed: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		Success bool `json:"success"`
	}
	if err := decodeEnvelope(resp, "/updateDefinition", &result); err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("update capabilities failed: portal reported success=false")
	}
	return nil
}

// toAdminURL rewrites a feature service URL to its admin equivalent:
// .../rest/services/Name/FeatureServer -> .../rest/admin/services/Name/FeatureServer
func toAdminURL(serviceURL string) string {
	return strings.Replace(serviceURL, "/rest/services/", "/rest/admin/services/", 1)
}

// userItemPath builds the per-user item operation path, including the
// folder segment when the item lives in a folder.
func (c *Client) userItemPath(itemID, folderID, action string) string {
	if folderID != "" && folderID != "_root" {
		return fmt.Sprintf("/sharing/rest/content/users/%s/%s/items/%s/%s", c.username, folderID, itemID, action)
	}
	return fmt.Sprintf("/sharing/rest/content/users/%s/items/%s/%s", c.username, itemID, action)
}
