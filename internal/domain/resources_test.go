package domain

import (
	"reflect"
	"testing"
)

func TestParseResourceClaims(t *testing.T) {
	t.Parallel() // Enable parallel execution
	cases := []struct {
		name      string
		record    []string
		exclusive []string
		shared    []string
	}{
		{
			name:   "empty record",
			record: nil,
		},
		{
			name:      "exclusive only",
			record:    []string{"content:repo:1", "content:repo:2"},
			exclusive: []string{"content:repo:1", "content:repo:2"},
		},
		{
			name:   "shared only",
			record: []string{"shared:content:repo:1"},
			shared: []string{"content:repo:1"},
		},
		{
			name:      "mixed",
			record:    []string{"content:repo:1", "shared:artifact:2"},
			exclusive: []string{"content:repo:1"},
			shared:    []string{"artifact:2"},
		},
		{
			name:      "shared shadowed by exclusive on same key",
			record:    []string{"content:repo:1", "shared:content:repo:1"},
			exclusive: []string{"content:repo:1"},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			claims := ParseResourceClaims(tc.record)
			if !reflect.DeepEqual(claims.Exclusive, tc.exclusive) {
				t.Errorf("Exclusive = %v, want %v", claims.Exclusive, tc.exclusive)
			}
			if !reflect.DeepEqual(claims.Shared, tc.shared) {
				t.Errorf("Shared = %v, want %v", claims.Shared, tc.shared)
			}
		})
	}
}

func TestResourceAccountingBlocked(t *testing.T) {
	t.Parallel() // Enable parallel execution

	// Two tasks with overlapping exclusive claims conflict.
	acct := NewResourceAccounting()
	acct.Take(ParseResourceClaims([]string{"content:repo:1"}))
	if !acct.Blocked(ParseResourceClaims([]string{"content:repo:1", "content:repo:2"})) {
		t.Error("Expected overlap on exclusive key to block")
	}

	// Disjoint claims never conflict.
	if acct.Blocked(ParseResourceClaims([]string{"content:repo:2"})) {
		t.Error("Expected disjoint claims not to block")
	}

	// An empty reservation list never conflicts with anything.
	if acct.Blocked(ParseResourceClaims(nil)) {
		t.Error("Expected empty claims not to block")
	}

	// Shared claims coexist with each other on the same key.
	acct = NewResourceAccounting()
	acct.Take(ParseResourceClaims([]string{"shared:content:repo:1"}))
	if acct.Blocked(ParseResourceClaims([]string{"shared:content:repo:1"})) {
		t.Error("Expected shared claims on the same key to coexist")
	}

	// An exclusive claim is blocked by a prior shared claim on the key.
	if !acct.Blocked(ParseResourceClaims([]string{"content:repo:1"})) {
		t.Error("Expected exclusive claim to be blocked by prior shared claim")
	}

	// A shared claim is blocked by a prior exclusive claim on the key.
	acct = NewResourceAccounting()
	acct.Take(ParseResourceClaims([]string{"content:repo:1"}))
	if !acct.Blocked(ParseResourceClaims([]string{"shared:content:repo:1"})) {
		t.Error("Expected shared claim to be blocked by prior exclusive claim")
	}
}
