package main

import (
	"oss.terrastruct.com/util-go/xmain"

	"oss.terrastruct.com/mathtext/mtcli"
)

func main() {
	xmain.Main(mtcli.Run)
}
