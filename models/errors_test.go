package models

import (
	"errors"
	"fmt"
	"testing"
)

func TestDuplicateLinkErrorUnwrapsThroughWrapping(t *testing.T) {
	inner := &DuplicateLinkError{IntegrationID: "i1", ResourceType: ResourceTypeIssue, ExternalID: "42"}
	wrapped := fmt.Errorf("creating link: %w", inner)

	var dup *DuplicateLinkError
	if !errors.As(wrapped, &dup) {
		t.Fatalf("expected DuplicateLinkError to match through wrapping")
	}
	if dup.IntegrationID != "i1" || dup.ResourceType != ResourceTypeIssue {
		t.Fatalf("unexpected fields: %+v", dup)
	}
}

func TestErrorMessages(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{&ResourceNotFoundError{Kind: "integration", ID: "abc"}, "integration abc not found"},
		{&SignatureVerificationError{Provider: ProviderGitea, Reason: "signature mismatch"}, "gitea webhook signature verification failed: signature mismatch"},
		{&RateLimitedError{Provider: ProviderGithub}, "github rate limit exceeded"},
	}
	for _, c := range cases {
		if got := c.err.Error(); got != c.want {
			t.Fatalf("Error() = %q, want %q", got, c.want)
		}
	}
}
