// Command blockfsd mounts a nanofs image at a given mountpoint via FUSE.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/nanofs/nanofs"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:      "blockfsd",
		Usage:     "mount a nanofs image",
		ArgsUsage: "image mountpoint",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "debug", Usage: "log every FUSE request"},
			&cli.StringFlag{Name: "log-level", Value: "info"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "blockfsd:", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if c.NArg() != 2 {
		return cli.Exit("usage: blockfsd image mountpoint", 1)
	}
	imagePath := c.Args().Get(0)
	mountPoint := c.Args().Get(1)

	log := logrus.New()
	if lvl, err := logrus.ParseLevel(c.String("log-level")); err == nil {
		log.SetLevel(lvl)
	}

	img, err := nanofs.OpenImage(imagePath)
	if err != nil {
		return cli.Exit(fmt.Errorf("open image: %w", err), 1)
	}

	fsys, err := nanofs.Mount(img)
	if err != nil {
		img.Close()
		return cli.Exit(fmt.Errorf("mount: %w", err), 1)
	}
	log.WithField("image", imagePath).Info(fsys.Superblock())

	root := nanofs.Root(fsys, log)
	server, err := fs.Mount(mountPoint, root, &fs.Options{
		MountOptions: mountOptions(c),
	})
	if err != nil {
		fsys.Close()
		return cli.Exit(fmt.Errorf("fuse mount: %w", err), 1)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info("unmounting")
		server.Unmount()
	}()

	server.Wait()
	if err := fsys.Destroy(); err != nil {
		return cli.Exit(err, 1)
	}
	return nil
}

func mountOptions(c *cli.Context) fuse.MountOptions {
	return fuse.MountOptions{
		Debug:      c.Bool("debug"),
		FsName:     "nanofs",
		Name:       "nanofs",
		AllowOther: false,
	}
}
