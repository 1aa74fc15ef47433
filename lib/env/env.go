package env

import (
	"os"
	"strconv"
)

func Test() bool {
	return os.Getenv("TEST_MODE") != ""
}

func Debug() bool {
	return os.Getenv("DEBUG") != ""
}

// MathJax returns the path of the MathJax bundle to load, if configured.
func MathJax() string {
	return os.Getenv("MATHTEXT_MATHJAX")
}

func Timeout() (int, bool) {
	if s := os.Getenv("MATHTEXT_TIMEOUT"); s != "" {
		i, err := strconv.ParseInt(s, 10, 64)
		if err == nil {
			return int(i), true
		}
	}
	return -1, false
}
