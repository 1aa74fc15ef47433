// Package xbrowser opens rendered output in the user's web browser.
package xbrowser

import (
	"context"
	"fmt"
	"net/url"
	"os/exec"
	"path/filepath"

	"github.com/pkg/browser"

	"oss.terrastruct.com/util-go/xos"
)

// OpenURL opens u with the command in $BROWSER, or the system default browser when it is
// unset.
func OpenURL(ctx context.Context, env *xos.Env, u string) error {
	browserEnv := env.Getenv("BROWSER")
	if browserEnv != "" {
		browserSh := fmt.Sprintf(`%s "$1"`, browserEnv)
		cmd := exec.CommandContext(ctx, "sh", "-c", browserSh, "--", u)
		out, err := cmd.CombinedOutput()
		if err != nil {
			return fmt.Errorf("failed to run %v (out: %q): %w", cmd.Args, out, err)
		}
		return nil
	}
	return browser.OpenURL(u)
}

// FileURL returns the file:// URL of the absolute path fp.
func FileURL(fp string) string {
	u := &url.URL{
		Scheme: "file",
		Path:   filepath.ToSlash(fp),
	}
	return u.String()
}
