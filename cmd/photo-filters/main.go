package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"photo-filters/internal/config"
)

const (
	AppName    = "photo-filters"
	AppVersion = "1.0.0"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	global := flag.NewFlagSet(AppName, flag.ContinueOnError)
	configPath := global.String("config", os.Getenv("PHOTO_FILTERS_CONFIG"), "path to a YAML config file")
	global.Usage = func() { usage(global) }

	if err := global.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if global.NArg() == 0 {
		usage(global)
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", AppName, err)
		return 1
	}

	app, err := NewApplication(cfg, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", AppName, err)
		return 1
	}
	stop := app.shutdown.Listen()
	defer stop()
	defer app.Shutdown()

	if err := app.Run(app.Context(), global.Args()); err != nil {
		if errors.Is(err, errUsage) {
			return 2
		}
		fmt.Fprintf(os.Stderr, "%s: %v\n", AppName, err)
		return 1
	}
	return 0
}

func usage(fs *flag.FlagSet) {
	out := fs.Output()
	fmt.Fprintf(out, "%s %s\n\n", AppName, AppVersion)
	fmt.Fprintf(out, "Usage: %s [-config file] <command> [flags]\n\n", AppName)
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  filters                                     list available filters")
	fmt.Fprintln(out, "  apply -in F [-out F] [-cumulative] [-save] [-stats] step...")
	fmt.Fprintln(out, "                                              apply filter steps such as invert or blur=5")
	fmt.Fprintln(out, "  list                                        list saved images")
	fmt.Fprintln(out, "  export -id N -out F                         write a saved image to a file")
	fmt.Fprintln(out, "  delete -id N                                delete a saved image")
	fmt.Fprintln(out)
	fs.PrintDefaults()
}
