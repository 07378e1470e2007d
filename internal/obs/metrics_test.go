package obs

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                                "/",
		"/metrics":                        "/metrics",
		"/v1/documents":                   "/v1/documents",
		"/v1/documents/abc":               "/v1/documents/:id",
		"/v1/documents/abc/download":      "/v1/documents/:id/download",
		"/v1/documents/abc/share":         "/v1/documents/:id/share",
		"/v1/documents/abc/extra/deep":    "/v1/documents/abc/extra/deep",
		"/v1/documents/abc?pretty=1":      "/v1/documents/:id",
		"/v1/activity":                    "/v1/activity",
		"/v1/auth/login":                  "/v1/auth/login",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}
