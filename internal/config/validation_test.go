package config

import (
	"strings"
	"testing"
)

func TestValidAPIID(t *testing.T) {
	valid := []string{"github", "my-api", "jira_cloud", "api2"}
	for _, id := range valid {
		if !ValidAPIID(id) {
			t.Errorf("%q should be a valid api id", id)
		}
	}

	invalid := []string{"", "GitHub", "my api", "-leading", "a/b", "api.v2", strings.Repeat("a", 65)}
	for _, id := range invalid {
		if ValidAPIID(id) {
			t.Errorf("%q should be rejected", id)
		}
	}
}

func TestValidateAPI(t *testing.T) {
	tests := []struct {
		name    string
		apiID   string
		api     *APIConfig
		wantErr string
	}{
		{
			name:  "valid registration",
			apiID: "github",
			api: &APIConfig{
				BaseURL: "https://api.github.com",
				SpecURL: "https://api.github.com/openapi.json",
			},
		},
		{
			name:    "invalid identifier",
			apiID:   "My API",
			api:     &APIConfig{SpecURL: "https://example.com/openapi.json"},
			wantErr: "invalid identifier",
		},
		{
			name:    "missing spec url",
			apiID:   "github",
			api:     &APIConfig{},
			wantErr: "empty specUrl",
		},
		{
			name:    "spec url without scheme",
			apiID:   "github",
			api:     &APIConfig{SpecURL: "api.github.com/openapi.json"},
			wantErr: "invalid specUrl",
		},
		{
			name:  "bad base url",
			apiID: "github",
			api: &APIConfig{
				SpecURL: "https://api.github.com/openapi.json",
				BaseURL: "ftp://api.github.com",
			},
			wantErr: "invalid baseUrl",
		},
		{
			name:  "negative rate limit",
			apiID: "github",
			api: &APIConfig{
				SpecURL:   "https://api.github.com/openapi.json",
				RateLimit: -1,
			},
			wantErr: "rateLimit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAPI(tt.apiID, tt.api)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error should contain %q, got: %v", tt.wantErr, err)
			}
		})
	}
}
