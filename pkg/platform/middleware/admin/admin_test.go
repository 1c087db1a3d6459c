package admin

import (
	"net/http"
	"testing"

	"citizenship/pkg/testutil"
)

func TestRequireAdminToken(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name     string
		expected string
		given    string
		status   int
	}{
		{name: "matching token passes", expected: "s3cret", given: "s3cret", status: http.StatusNoContent},
		{name: "wrong token", expected: "s3cret", given: "guess", status: http.StatusUnauthorized},
		{name: "missing token", expected: "s3cret", given: "", status: http.StatusUnauthorized},
		{name: "unconfigured token rejects empty header", expected: "", given: "", status: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.NewRequest(t, http.MethodPost, "/task/run")
			if tt.given != "" {
				req.Header.Set(TokenHeader, tt.given)
			}
			rr := testutil.DoRequest(RequireAdminToken(tt.expected, testutil.DiscardLogger())(ok), req)
			testutil.AssertStatus(t, rr, tt.status)
			if tt.status == http.StatusUnauthorized {
				testutil.AssertErrorCode(t, rr, "unauthorized")
			}
		})
	}
}
