// fastpath manages the software fast path on network interfaces.
package main

import (
	"github.com/alecthomas/kong"

	"github.com/frobware/go-fastpath/cmd/fastpath/cli"
)

func main() {
	var c cli.CLI
	ctx := kong.Parse(&c, cli.KongOptions()...)
	ctx.FatalIfErrorf(ctx.Run(&c))
}
