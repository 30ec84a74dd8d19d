package main

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"path/filepath"
	"strings"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"
	_ "golang.org/x/image/bmp"

	"github.com/user/camencoder/pkg/adapters/osfilesystem"
	"github.com/user/camencoder/pkg/dib"
	"github.com/user/camencoder/pkg/ico"
	"github.com/user/camencoder/pkg/ports"
)

func icoCommand() *cli.Command {
	return &cli.Command{
		Name:  "ico",
		Usage: l10n.T("Read and write Windows icon files"),
		Subcommands: []*cli.Command{
			{
				Name:      "info",
				Usage:     l10n.T("List the images in an icon file"),
				ArgsUsage: "FILE",
				Action:    runIcoInfo,
			},
			{
				Name:      "encode",
				Usage:     l10n.T("Build an icon from PNG, BMP or JPEG images"),
				ArgsUsage: "IMAGE...",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Required: true, Usage: l10n.T("Output icon file path")},
					&cli.BoolFlag{Name: "no-png", Usage: l10n.T("Reject images larger than 255 pixels instead of embedding PNG")},
				},
				Action: runIcoEncode,
			},
			{
				Name:      "decode",
				Usage:     l10n.T("Extract one image of an icon as PNG or BMP"),
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Required: true, Usage: l10n.T("Output image path (.png or .bmp)")},
					&cli.IntFlag{Name: "index", Aliases: []string{"i"}, Usage: l10n.T("Image index")},
				},
				Action: runIcoDecode,
			},
		},
	}
}

func runIcoInfo(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New(l10n.T("a file argument is required"))
	}
	data, err := osfilesystem.New().ReadFile(c.Args().First())
	if err != nil {
		return err
	}
	hdr, entries, err := ico.ReadDirectory(bytes.NewReader(data))
	if err != nil {
		return err
	}

	w := c.App.Writer
	kind := "icon"
	if hdr.Type == ico.TypeCursor {
		kind = "cursor"
	}
	fmt.Fprintf(w, "%s, %d images\n", kind, hdr.Count)
	for i, e := range entries {
		format := "dib"
		if e.IsPNG() {
			format = "png"
		}
		fmt.Fprintf(w, "%d: %dx%d %d bpp %s, %d bytes at %d\n",
			i, sizeOf(e.Width), sizeOf(e.Height), e.BitCount, format, e.BytesInRes, e.ImageOffset)
	}
	return nil
}

// sizeOf expands the directory's 0 to 256.
func sizeOf(v uint8) int {
	if v == 0 {
		return 256
	}
	return int(v)
}

func runIcoEncode(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New(l10n.T("at least one image argument is required"))
	}
	fs := osfilesystem.New()
	log := newLogger(c).WithComponent("ico")

	var images []*ico.Image
	for _, path := range c.Args().Slice() {
		img, err := loadImage(fs, path)
		if err != nil {
			return err
		}
		m, err := ico.FromImage(img)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		log.Debug("Added %s: %dx%d %d bpp", path, m.Width, m.Height, m.BitCount)
		images = append(images, m)
	}

	var buf bytes.Buffer
	if err := ico.Encode(&buf, images, &ico.EncodeOptions{EmbedPNG: !c.Bool("no-png")}); err != nil {
		return err
	}
	out := c.String("output")
	if err := fs.WriteFile(out, buf.Bytes()); err != nil {
		return err
	}
	log.Info(l10n.F("Output saved to %s", out))
	return nil
}

func runIcoDecode(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New(l10n.T("a file argument is required"))
	}
	fs := osfilesystem.New()
	data, err := fs.ReadFile(c.Args().First())
	if err != nil {
		return err
	}
	m, err := ico.DecodeFrame(bytes.NewReader(data), c.Int("index"))
	if err != nil {
		return err
	}

	out := c.String("output")
	var buf bytes.Buffer
	if strings.EqualFold(filepath.Ext(out), ".bmp") {
		err = dib.WriteBMP(&buf, m.Bitmap())
	} else {
		err = png.Encode(&buf, m)
	}
	if err != nil {
		return err
	}
	if err := fs.WriteFile(out, buf.Bytes()); err != nil {
		return err
	}
	newLogger(c).Info(l10n.F("Output saved to %s", out))
	return nil
}

func loadImage(fs ports.FileSystem, path string) (image.Image, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}
