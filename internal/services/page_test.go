package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/desertthunder/mustx/internal/models"
	"github.com/desertthunder/mustx/internal/shared"
	tu "github.com/desertthunder/mustx/internal/testing"
)

const profilePage = `<!DOCTYPE html>
<html>
<head><title>alice</title></head>
<body>
<script>var other = 1;</script>
<script>
window._start_data = {
  lang: "en",
  profile: {"id":42,"uri":"alice","lists":{"want":[1,2],"shows":[3],"youtube":[4]}},
  products: []
};
</script>
</body>
</html>`

func TestGetProfileFromPage(t *testing.T) {
	t.Run("Extracts Profile", func(t *testing.T) {
		fake := tu.NewFakeMustApp()
		defer fake.Close()
		fake.AddPage("alice", profilePage)

		c := NewMustAppClient(MustAppOpts{BaseURL: fake.URL()})
		profile, err := c.GetProfileFromPage(context.Background(), "alice")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if profile.ID != 42 {
			t.Errorf("expected id 42, got %d", profile.ID)
		}
		if len(profile.Lists[models.ListWant]) != 2 || len(profile.Lists[models.ListShows]) != 1 {
			t.Errorf("unexpected lists %v", profile.Lists)
		}
		if _, ok := profile.Lists["youtube"]; ok {
			t.Error("expected unknown lists to be dropped")
		}
		if reqs := fake.Requests(); len(reqs) != 1 || reqs[0].Path != "/@alice/want" {
			t.Errorf("unexpected requests %+v", reqs)
		}
	})

	t.Run("Latin1 Page", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
			w.Write([]byte("<html><body><script>window._start_data = {\nprofile: {\"id\":7,\"uri\":\"caf\xe9\",\"lists\":{}},\n};</script></body></html>"))
		}))
		defer server.Close()

		c := NewMustAppClient(MustAppOpts{BaseURL: server.URL})
		profile, err := c.GetProfileFromPage(context.Background(), "cafe")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if profile.URI != "café" {
			t.Errorf("expected decoded uri, got %q", profile.URI)
		}
	})

	t.Run("Not Found", func(t *testing.T) {
		fake := tu.NewFakeMustApp()
		defer fake.Close()

		c := NewMustAppClient(MustAppOpts{BaseURL: fake.URL()})
		_, err := c.GetProfileFromPage(context.Background(), "nobody")
		if !errors.Is(err, shared.ErrUserNotFound) {
			t.Errorf("expected ErrUserNotFound, got %v", err)
		}
		if err == nil || !strings.HasPrefix(err.Error(), "Invalid username? Failed to fetch ") {
			t.Errorf("unexpected message %v", err)
		}
	})

	t.Run("Missing Script", func(t *testing.T) {
		fake := tu.NewFakeMustApp()
		defer fake.Close()
		fake.AddPage("alice", "<html><body><script>var x = 1;</script></body></html>")

		c := NewMustAppClient(MustAppOpts{BaseURL: fake.URL()})
		if _, err := c.GetProfileFromPage(context.Background(), "alice"); !errors.Is(err, shared.ErrProfileNotFound) {
			t.Errorf("expected ErrProfileNotFound, got %v", err)
		}
	})
}

func TestExtractStartDataProfile(t *testing.T) {
	tests := []struct {
		name    string
		script  string
		wantID  int64
		wantErr bool
	}{
		{
			name:   "Unquoted Key",
			script: "window._start_data = {\nprofile: {\"id\":1,\"lists\":{}},\nother: 2\n}",
			wantID: 1,
		},
		{
			name:   "Quoted Key",
			script: "window._start_data = {\n\"profile\": {\"id\":2,\"lists\":{}},\n\"other\": 2\n}",
			wantID: 2,
		},
		{
			name:    "Profile Is Last Field",
			script:  "window._start_data = {profile: {\"id\":3,\"lists\":{}}}",
			wantErr: true,
		},
		{
			name:    "No Marker",
			script:  "var profile = {}",
			wantErr: true,
		},
		{
			name:    "No Profile Field",
			script:  "window._start_data = {\nlang: \"en\",\n}",
			wantErr: true,
		},
		{
			name:    "Zero ID",
			script:  "window._start_data = {\nprofile: {\"id\":0},\n}",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile, err := extractStartDataProfile(tt.script)
			if tt.wantErr {
				if !errors.Is(err, shared.ErrProfileNotFound) {
					t.Errorf("expected ErrProfileNotFound, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if profile.ID != tt.wantID {
				t.Errorf("expected id %d, got %d", tt.wantID, profile.ID)
			}
		})
	}
}
