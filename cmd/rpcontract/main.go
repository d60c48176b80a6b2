package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
)

type CLI struct {
	Verbose bool `help:"Log debug output." short:"v"`

	Version VersionCmd `cmd:"" help:"Print version information."`
	Gen     GenCmd     `cmd:"" help:"Generate Go proxies and discovery.json."`
	Check   CheckCmd   `cmd:"" help:"Validate factories without generating files."`
	Serve   ServeCmd   `cmd:"" help:"Regenerate on change and serve the model over HTTP."`
}

type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println(Version())
	return nil
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func main() {
	cli := &CLI{}
	ctx := kong.Parse(cli,
		kong.Name("rpcontract"),
		kong.Description("Generate typed request proxies from Go factory interfaces."),
		kong.UsageOnError(),
	)
	err := ctx.Run(newLogger(cli.Verbose))
	ctx.FatalIfErrorf(err)
}
