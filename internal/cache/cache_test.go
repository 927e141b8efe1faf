package cache

import (
	"context"
	"testing"

	"github.com/renthportal/renthportal-sub001/internal/models"
)

func TestLocalFallbackRoundTrip(t *testing.T) {
	if err := InitRedis(nil); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	ctx := context.Background()
	user := &models.User{ID: 12, Role: "driver", Status: "active", TokenVersion: 3}

	if err := SetAuthState(ctx, BuildAuthState(user)); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	state, ok, err := GetAuthState(ctx, 12)
	if err != nil || !ok {
		t.Fatalf("expected cached state, ok=%v err=%v", ok, err)
	}
	if state.Role != "driver" || state.TokenVersion != 3 {
		t.Fatalf("unexpected state %+v", state)
	}

	if err := DelAuthState(ctx, 12); err != nil {
		t.Fatalf("del failed: %v", err)
	}
	if _, ok, _ := GetAuthState(ctx, 12); ok {
		t.Fatalf("state should be gone")
	}
}

func TestBuildKeyUsesPrefix(t *testing.T) {
	if got := buildKey(" auth:user:1 "); got != redisPrefix+":auth:user:1" {
		t.Fatalf("unexpected key %s", got)
	}
}
