package httpapi

import "context"

// StaticUserLister serves a fixed roster configured at startup. There is no
// users table: a single-operator deployment just lists its user IDs in
// config (or USER_IDS).
type StaticUserLister []string

func (s StaticUserLister) ListUserIDs(ctx context.Context) ([]string, error) {
	out := make([]string, len(s))
	copy(out, s)
	return out, nil
}
