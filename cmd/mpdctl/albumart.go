package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/zeebo/xxh3"

	"github.com/pior/mpd"
)

func newAlbumArtCmd(a *app) *cobra.Command {
	var (
		output   string
		embedded bool
	)

	cmd := &cobra.Command{
		Use:   "albumart <uri>",
		Short: "Download the cover of a song",
		Long: `Download the cover of a song

Prints the image size and its xxh3 digest, and writes the image to the file
given with --output. The cover is read from the song directory (cover.jpg,
cover.png, ...), or from the song file itself with --embedded.
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uri := args[0]

			return a.withClient(cmd, func(ctx context.Context, client *mpd.Client) error {
				read := client.AlbumArt
				if embedded {
					read = client.ReadPicture
				}

				pic, err := read(ctx, uri)
				if err != nil {
					return err
				}

				if output != "" {
					if err := os.WriteFile(output, pic.Data, 0o644); err != nil {
						return fmt.Errorf("write cover: %w", err)
					}
				}

				digest := fmt.Sprintf("%016x", xxh3.Hash(pic.Data))

				text := fmt.Sprintf("size: %d bytes\n", len(pic.Data))
				if pic.MIMEType != "" {
					text += fmt.Sprintf("type: %s\n", pic.MIMEType)
				}
				text += fmt.Sprintf("xxh3: %s\n", digest)

				obj := newObject().
					set("size", len(pic.Data)).
					set("type", pic.MIMEType).
					set("xxh3", digest)
				if output != "" {
					obj.set("file", output)
				}

				return a.print(text, obj)
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the image to this file")
	cmd.Flags().BoolVar(&embedded, "embedded", false, "Read the picture embedded in the song file")

	return cmd
}
