// Command blockfsck runs a read-only consistency check against a nanofs
// image and reports every inconsistency it finds.
package main

import (
	"fmt"
	"os"

	"github.com/nanofs/nanofs"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:      "blockfsck",
		Usage:     "check a nanofs image for consistency",
		ArgsUsage: "image",
		Action:    run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "blockfsck:", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: blockfsck image", 1)
	}
	path := c.Args().First()

	img, err := nanofs.OpenImage(path)
	if err != nil {
		return cli.Exit(err, 1)
	}

	fsys, err := nanofs.Mount(img)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer fsys.Close()

	report := nanofs.Check(fsys)
	if report.OK() {
		fmt.Println("clean")
		return nil
	}

	fmt.Fprintln(os.Stderr, report.Errors)
	return cli.Exit("filesystem is inconsistent", 1)
}
