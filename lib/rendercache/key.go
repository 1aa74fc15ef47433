package rendercache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"cdr.dev/slog"

	"oss.terrastruct.com/mathtext/lib/log"
)

// Key derives a stable cache key from v.
//
// v is serialized as JSON. Struct fields encode in declaration order and map keys are
// sorted by encoding/json, so callers only need to sort slices whose order is irrelevant.
// If v cannot be serialized, a weaker key built from its Go syntax representation is
// returned instead so that caching keeps working.
func Key(ctx context.Context, v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		log.Warn(ctx, "cache key encoding failed, falling back to raw key", slog.Error(err))
		return "raw:" + fmt.Sprintf("%#v", v)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
