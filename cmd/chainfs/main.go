// Command chainfs is a small tool for working with chainfs disk images:
// formatting, listing, and moving files in and out.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/chainfs/go-chainfs/backend"
	"github.com/chainfs/go-chainfs/filesystem/chainfs"
	log "github.com/sirupsen/logrus"
)

const usage = `usage: chainfs [-v] <command> [arguments]

commands:
  mkfs  <image> <size-bytes>     format a new filesystem image
  ls    <image> <path>           list a directory
  mkdir <image> <path>           make a directory and any parents
  put   <image> <host-file> <path>   copy a host file into the image
  cat   <image> <path>           write a file's contents to stdout
  rm    <image> <path>           remove a file or empty directory
`

func main() {
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if *verbose {
		log.SetLevel(log.DebugLevel)
	}

	args := flag.Args()
	if len(args) < 2 {
		flag.Usage()
		os.Exit(2)
	}

	var err error
	switch args[0] {
	case "mkfs":
		err = runMkfs(args[1:])
	case "ls":
		err = runLs(args[1:])
	case "mkdir":
		err = runMkdir(args[1:])
	case "put":
		err = runPut(args[1:])
	case "cat":
		err = runCat(args[1:])
	case "rm":
		err = runRm(args[1:])
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func openImage(path string) (*chainfs.FileSystem, backend.Storage, error) {
	dev, err := backend.OpenFileStorage(path, 0)
	if err != nil {
		return nil, nil, err
	}
	cached := backend.NewCachedStorage(dev, int64(chainfs.BlockSize), 4096)
	fs, err := chainfs.Read(cached)
	if err != nil {
		cached.Close()
		return nil, nil, err
	}
	return fs, cached, nil
}

func runMkfs(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("mkfs: expected <image> <size-bytes>")
	}
	var size int64
	if _, err := fmt.Sscanf(args[1], "%d", &size); err != nil {
		return fmt.Errorf("mkfs: invalid size %q: %w", args[1], err)
	}
	dev, err := backend.OpenFileStorage(args[0], size)
	if err != nil {
		return err
	}
	defer dev.Close()
	fs, err := chainfs.Create(dev, time.Now(), nil)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{"uuid": fs.Label(), "size": size}).Info("formatted filesystem")
	return dev.Sync()
}

func runLs(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("ls: expected <image> <path>")
	}
	fs, dev, err := openImage(args[0])
	if err != nil {
		return err
	}
	defer dev.Close()
	entries, err := fs.ReadDir(args[1])
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Printf("%s %10d %s %s\n", e.Mode(), e.Size(), e.ModTime().Format(time.RFC3339), e.Name())
	}
	return nil
}

func runMkdir(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("mkdir: expected <image> <path>")
	}
	fs, dev, err := openImage(args[0])
	if err != nil {
		return err
	}
	defer dev.Close()
	if err := fs.Mkdir(args[1]); err != nil {
		return err
	}
	return dev.Sync()
}

func runPut(args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("put: expected <image> <host-file> <path>")
	}
	fs, dev, err := openImage(args[0])
	if err != nil {
		return err
	}
	defer dev.Close()
	src, err := os.Open(args[1])
	if err != nil {
		return err
	}
	defer src.Close()
	dst, err := fs.OpenFile(args[2], os.O_CREATE|os.O_RDWR|os.O_TRUNC)
	if err != nil {
		return err
	}
	defer dst.Close()
	n, err := io.Copy(dst, src)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{"path": args[2], "bytes": n}).Info("copied file into image")
	return dev.Sync()
}

func runCat(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("cat: expected <image> <path>")
	}
	fs, dev, err := openImage(args[0])
	if err != nil {
		return err
	}
	defer dev.Close()
	f, err := fs.OpenFile(args[1], os.O_RDONLY)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(os.Stdout, f)
	return err
}

func runRm(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("rm: expected <image> <path>")
	}
	fs, dev, err := openImage(args[0])
	if err != nil {
		return err
	}
	defer dev.Close()
	if err := fs.Remove(args[1]); err != nil {
		return err
	}
	return dev.Sync()
}
