package gitea

import (
	"errors"
	"net/http"
	"testing"

	giteasdk "code.gitea.io/sdk/gitea"

	"github.com/kaneo-dev/kaneo-sync/models"
)

func apiResponse(status int) *giteasdk.Response {
	return &giteasdk.Response{Response: &http.Response{StatusCode: status}}
}

func TestMapAPIError(t *testing.T) {
	sdkErr := errors.New("request failed")

	if got := mapAPIError(apiResponse(http.StatusOK), nil); got != nil {
		t.Fatalf("nil error must map to nil, got %v", got)
	}

	var notFound *models.ResourceNotFoundError
	if err := mapAPIError(apiResponse(http.StatusNotFound), sdkErr); !errors.As(err, &notFound) {
		t.Fatalf("404 must map to ResourceNotFoundError, got %v", err)
	}

	var rateLimited *models.RateLimitedError
	err := mapAPIError(apiResponse(http.StatusTooManyRequests), sdkErr)
	if !errors.As(err, &rateLimited) {
		t.Fatalf("429 must map to RateLimitedError, got %v", err)
	}
	if rateLimited.Provider != models.ProviderGitea {
		t.Fatalf("unexpected provider: %s", rateLimited.Provider)
	}

	// Transport failures carry no response and pass through unchanged.
	if err := mapAPIError(nil, sdkErr); !errors.Is(err, sdkErr) {
		t.Fatalf("nil response must pass the error through, got %v", err)
	}
	if err := mapAPIError(apiResponse(http.StatusInternalServerError), sdkErr); !errors.Is(err, sdkErr) {
		t.Fatalf("unmapped status must pass the error through, got %v", err)
	}
}
