package xbrowser_test

import (
	"context"
	"testing"

	"oss.terrastruct.com/util-go/assert"
	"oss.terrastruct.com/util-go/xos"

	"oss.terrastruct.com/mathtext/lib/xbrowser"
)

func TestOpenURL(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	env := xos.NewEnv(nil)
	env.Setenv("BROWSER", `test "file:///tmp/a b.html" =`)
	err := xbrowser.OpenURL(ctx, env, "file:///tmp/a b.html")
	assert.Success(t, err)

	env = xos.NewEnv(nil)
	env.Setenv("BROWSER", "false")
	err = xbrowser.OpenURL(ctx, env, "file:///tmp/a.html")
	assert.True(t, err != nil)
}

func TestFileURL(t *testing.T) {
	t.Parallel()

	assert.String(t, "file:///tmp/out%20dir/eq.html", xbrowser.FileURL("/tmp/out dir/eq.html"))
}
