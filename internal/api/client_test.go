package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/agrc/agol-shelf/internal/ratelimit"
)

// testClient builds a Client pointed at a test server, bypassing the proxy
// and retry wiring that NewClient sets up.
func testClient(serverURL string) *Client {
	return &Client{
		httpClient:    http.DefaultClient,
		uploadClient:  http.DefaultClient,
		baseURL:       serverURL,
		token:         "test-token",
		username:      "tester",
		readLimiter:   ratelimit.NewPortalRateLimiter(),
		writeLimiter:  ratelimit.NewUpdateRateLimiter(),
		publishLimter: ratelimit.NewPublishRateLimiter(),
	}
}

func TestSearchItemsPagination(t *testing.T) {
	pages := map[string]string{
		"1": `{"total":3,"nextStart":3,"results":[{"id":"a","title":"One"},{"id":"b","title":"Two"}]}`,
		"3": `{"total":3,"nextStart":-1,"results":[{"id":"c","title":"Three"}]}`,
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sharing/rest/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("token") != "test-token" {
			t.Error("expected token on search request")
		}
		body, ok := pages[r.URL.Query().Get("start")]
		if !ok {
			t.Errorf("unexpected start value %s", r.URL.Query().Get("start"))
		}
		fmt.Fprint(w, body)
	}))
	defer server.Close()

	client := testClient(server.URL)
	items, err := client.SearchItems(context.Background(), "owner:tester", "Feature Service")
	if err != nil {
		t.Fatalf("SearchItems returned error: %v", err)
	}
	if len(items) != 3 {
		t.Errorf("expected 3 items across pages, got %d", len(items))
	}
	if items[2].ID != "c" {
		t.Errorf("expected last item c, got %s", items[2].ID)
	}
}

func TestErrorEnvelope(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{
			name:    "invalid token 498",
			body:    `{"error":{"code":498,"message":"Invalid token."}}`,
			wantErr: ErrInvalidToken,
		},
		{
			name:    "expired token 499",
			body:    `{"error":{"code":499,"message":"Token required."}}`,
			wantErr: ErrInvalidToken,
		},
		{
			name:    "item not found",
			body:    `{"error":{"code":400,"message":"Unable to find item."}}`,
			wantErr: ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			client := testClient(server.URL)
			_, err := client.GetItem(context.Background(), "abc123")
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v sentinel, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestUpdateItemChecksSuccess(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"success true", `{"success":true,"id":"abc"}`, false},
		{"success false", `{"success":false}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPath string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			client := testClient(server.URL)
			err := client.UpdateItemTags(context.Background(), "abc", "folder1", []string{"AGRC", "SGID"})
			if (err != nil) != tt.wantErr {
				t.Errorf("UpdateItemTags error = %v, wantErr %v", err, tt.wantErr)
			}
			want := "/sharing/rest/content/users/tester/folder1/items/abc/update"
			if gotPath != want {
				t.Errorf("expected path %s, got %s", want, gotPath)
			}
		})
	}
}

func TestUserItemPathRoot(t *testing.T) {
	client := testClient("http://example.invalid")

	tests := []struct {
		name     string
		folderID string
		want     string
	}{
		{"empty folder", "", "/sharing/rest/content/users/tester/items/abc/move"},
		{"root sentinel", "_root", "/sharing/rest/content/users/tester/items/abc/move"},
		{"real folder", "f1", "/sharing/rest/content/users/tester/f1/items/abc/move"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := client.userItemPath("abc", tt.folderID, "move")
			if got != tt.want {
				t.Errorf("userItemPath() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestItemGroupsCarriesFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error":{"code":403,"message":"You do not have permissions to access this resource."}}`)
	}))
	defer server.Close()

	client := testClient(server.URL)
	result := client.ItemGroups(context.Background(), "abc")
	if !result.Failed() {
		t.Fatal("expected failed lookup result")
	}
	if !IsPermissionDenied(result.Err) {
		t.Errorf("expected permission denied, got %v", result.Err)
	}
}

func TestItemGroupsCombinesMemberships(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"admin":[{"id":"g1","title":"AGRC Shelf"}],"member":[],"other":[{"id":"g2","title":"Utah SGID Water"}]}`)
	}))
	defer server.Close()

	client := testClient(server.URL)
	result := client.ItemGroups(context.Background(), "abc")
	if result.Failed() {
		t.Fatalf("unexpected failure: %v", result.Err)
	}
	titles := result.Titles()
	if len(titles) != 2 || titles[0] != "AGRC Shelf" || titles[1] != "Utah SGID Water" {
		t.Errorf("unexpected group titles %v", titles)
	}
}

func TestSearchGroupsExactTitleOnly(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"results":[{"id":"g1","title":"AGRC Shelf"},{"id":"g2","title":"AGRC Shelf Archive"}]}`)
	}))
	defer server.Close()

	client := testClient(server.URL)
	groups, err := client.SearchGroups(context.Background(), "AGRC Shelf")
	if err != nil {
		t.Fatalf("SearchGroups returned error: %v", err)
	}
	if len(groups) != 1 || groups[0].ID != "g1" {
		t.Errorf("expected exact title match only, got %v", groups)
	}
}

func TestToAdminURL(t *testing.T) {
	got := toAdminURL("https://services.arcgis.com/abc/arcgis/rest/services/Lakes/FeatureServer")
	want := "https://services.arcgis.com/abc/arcgis/rest/admin/services/Lakes/FeatureServer"
	if got != want {
		t.Errorf("toAdminURL() = %s, want %s", got, want)
	}
}

func TestThrottledResponseDrainsLimiter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error":{"code":429,"message":"Too many requests"}}`)
	}))
	defer server.Close()

	client := testClient(server.URL)
	_, err := client.GetItem(context.Background(), "abc123")
	if err == nil {
		t.Fatal("expected error from throttled response")
	}
	if tokens := client.readLimiter.GetCurrentTokens(); tokens > 1.0 {
		t.Errorf("read limiter tokens = %.2f after throttle, want ~0", tokens)
	}
}

func TestAddItemStreamsMultipart(t *testing.T) {
	sdPath := filepath.Join(t.TempDir(), "Lakes.sd")
	if err := os.WriteFile(sdPath, []byte("sd-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sharing/rest/content/users/tester/addItem" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if got := r.FormValue("title"); got != "Utah Lakes" {
			t.Errorf("title = %q, want Utah Lakes", got)
		}
		if got := r.FormValue("token"); got != "test-token" {
			t.Errorf("token = %q, want test-token", got)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer file.Close()
		if header.Filename != "Lakes.sd" {
			t.Errorf("filename = %q, want Lakes.sd", header.Filename)
		}
		fmt.Fprint(w, `{"success":true,"id":"item1"}`)
	}))
	defer server.Close()

	client := testClient(server.URL)
	id, err := client.AddItem(context.Background(), "Utah Lakes", sdPath)
	if err != nil {
		t.Fatalf("AddItem returned error: %v", err)
	}
	if id != "item1" {
		t.Errorf("item id = %q, want item1", id)
	}
}
