package commands

import (
	"fmt"

	"github.com/AgamW017/vibe/internal/observability"
	contextutils "github.com/AgamW017/vibe/internal/utils"

	"github.com/spf13/cobra"
)

// PlaylistCommands returns the playlist commands
func PlaylistCommands(res Resources, logger *observability.Logger) *cobra.Command {
	playlistCmd := &cobra.Command{
		Use:   "playlist",
		Short: "Playlist commands",
	}

	playlistCmd.AddCommand(&cobra.Command{
		Use:   "urls <playlist-url>",
		Short: "Print the video URLs of a playlist, one per line, in playlist order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			facade, err := res.GenerationFacade(ctx)
			if err != nil {
				return contextutils.WrapError(err, "failed to initialize generation services")
			}

			urls, err := facade.GetURLs(ctx, args[0])
			if err != nil {
				logger.Error(ctx, "Failed to fetch playlist", err, map[string]interface{}{"playlist_url": args[0]})
				return err
			}

			for _, u := range urls {
				fmt.Fprintln(cmd.OutOrStdout(), u)
			}
			return nil
		},
	})

	return playlistCmd
}
