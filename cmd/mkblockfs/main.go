// Command mkblockfs formats an existing, fixed-size image file as an empty
// nanofs filesystem.
package main

import (
	"fmt"
	"os"

	"github.com/nanofs/nanofs"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:      "mkblockfs",
		Usage:     "format an image file as an empty nanofs filesystem",
		ArgsUsage: "image",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "inodes", Aliases: []string{"i"}, Usage: "number of inodes to allocate"},
			&cli.BoolFlag{Name: "force", Aliases: []string{"f"}, Usage: "overwrite an already-formatted image"},
			&cli.BoolFlag{Name: "zero", Aliases: []string{"z"}, Usage: "zero the whole image before formatting"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "mkblockfs:", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	inodes := c.Int("inodes")
	if inodes <= 0 {
		return cli.Exit("-i N (inode count) is required and must be positive", 1)
	}
	if c.NArg() != 1 {
		return cli.Exit("usage: mkblockfs -i N [-f] [-z] image", 1)
	}
	path := c.Args().First()

	img, err := nanofs.OpenImage(path)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer img.Close()

	err = nanofs.Format(img, nanofs.FormatOptions{
		Inodes: inodes,
		Force:  c.Bool("force"),
		Zero:   c.Bool("zero"),
	})
	if err != nil {
		return cli.Exit(err, 1)
	}

	if err := img.Sync(); err != nil {
		return cli.Exit(err, 1)
	}

	fmt.Printf("formatted %s: %d inodes\n", path, inodes)
	return nil
}
