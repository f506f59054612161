package obs

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                              "/",
		"/metrics":                      "/metrics",
		"/v1/patients":                  "/v1/patients",
		"/v1/appointments/42":           "/v1/appointments/:id",
		"/v1/appointments/42/status":    "/v1/appointments/:id/status",
		"/v1/invoices/7/status":         "/v1/invoices/:id/status",
		"/v1/memberships/19":            "/v1/memberships/:id",
		"/v1/patients/transfer":         "/v1/patients/transfer",
		"/v1/dashboard/stats?today=yes": "/v1/dashboard/stats",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}
