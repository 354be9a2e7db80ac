package domain

import "strings"

// SharedResourcePrefix marks a reserved resource key as a shared
// reservation. Two shared reservations of the same key may run
// concurrently; a shared and an exclusive reservation of the same key
// may not.
const SharedResourcePrefix = "shared:"

// ResourceClaims is the parsed form of a task's reserved resource record,
// split into exclusive and shared keys. The shared keys have the
// "shared:" prefix stripped. A key reserved both exclusively and shared
// counts as exclusive only.
type ResourceClaims struct {
	Exclusive []string
	Shared    []string
}

// ParseResourceClaims splits a reserved resource record into exclusive
// and shared claims.
func ParseResourceClaims(record []string) ResourceClaims {
	var claims ResourceClaims

	for _, resource := range record {
		if !strings.HasPrefix(resource, SharedResourcePrefix) {
			claims.Exclusive = append(claims.Exclusive, resource)
		}
	}

	for _, resource := range record {
		if strings.HasPrefix(resource, SharedResourcePrefix) {
			key := resource[len(SharedResourcePrefix):]
			if !containsString(claims.Exclusive, key) {
				claims.Shared = append(claims.Shared, key)
			}
		}
	}

	return claims
}

// ResourceAccounting tracks the resource keys claimed by tasks ahead of
// the current candidate in the dispatch scan. It is the authoritative
// conflict predicate: a waiting task is eligible to run only while
// Blocked reports false for its claims.
type ResourceAccounting struct {
	takenExclusive map[string]struct{}
	takenShared    map[string]struct{}
}

// NewResourceAccounting returns an empty accounting of taken resources.
func NewResourceAccounting() *ResourceAccounting {
	return &ResourceAccounting{
		takenExclusive: make(map[string]struct{}),
		takenShared:    make(map[string]struct{}),
	}
}

// Blocked reports whether the given claims conflict with resources
// already taken. An exclusive claim conflicts with any prior claim on the
// same key; a shared claim conflicts only with a prior exclusive claim.
// Empty claims never conflict.
func (a *ResourceAccounting) Blocked(claims ResourceClaims) bool {
	for _, resource := range claims.Exclusive {
		if _, ok := a.takenExclusive[resource]; ok {
			return true
		}
		if _, ok := a.takenShared[resource]; ok {
			return true
		}
	}

	for _, resource := range claims.Shared {
		if _, ok := a.takenExclusive[resource]; ok {
			return true
		}
	}

	return false
}

// Take records the claims of a task that is ahead of subsequent
// candidates, whether or not it is currently running.
func (a *ResourceAccounting) Take(claims ResourceClaims) {
	for _, resource := range claims.Exclusive {
		a.takenExclusive[resource] = struct{}{}
	}
	for _, resource := range claims.Shared {
		a.takenShared[resource] = struct{}{}
	}
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
