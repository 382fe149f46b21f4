package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/spf13/cobra"

	"github.com/yourusername/songdl-go/internal/app"
	"github.com/yourusername/songdl-go/internal/domain"
)

const (
	pollInterval = 200 * time.Millisecond
	barWidth     = 30
)

var getCmd = &cobra.Command{
	Use:   "get [song]",
	Short: "Search for a song and download it",
	Example: `  songdl get "Bohemian Rhapsody" --artist Queen
  songdl get "Blinding Lights" --codec opus --quality 160`,
	Args: cobra.ExactArgs(1),
	RunE: runGet,
}

func init() {
	getCmd.Flags().StringP("artist", "a", "", "Artist name for a more precise search")
	getCmd.Flags().StringP("output", "o", "", "Output directory (default from config)")
	getCmd.Flags().IntP("quality", "q", 0, "Bitrate in kbps (mp3: 128/192/256/320, opus: 64/96/128/160/192)")
	getCmd.Flags().String("codec", "", "Output codec: mp3 or opus")
}

func runGet(cmd *cobra.Command, args []string) error {
	artist, _ := cmd.Flags().GetString("artist")
	output, _ := cmd.Flags().GetString("output")
	quality, _ := cmd.Flags().GetInt("quality")
	codec, _ := cmd.Flags().GetString("codec")

	a, err := newApplication(func(c *domain.Config) {
		if output != "" {
			c.Download.OutputDir = app.ExpandPath(output)
		}
		if codec != "" {
			c.Download.Audio.Codec = domain.Codec(strings.ToLower(codec))
			if quality == 0 && c.Download.Audio.Codec == domain.CodecOpus {
				c.Download.Audio.BitrateKbps = 160
			}
		}
		if quality != 0 {
			c.Download.Audio.BitrateKbps = quality
		}
	})
	if err != nil {
		return err
	}
	defer a.Close()

	query := buildQuery(args[0], artist)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s  %s\n\n", headingStyle.Render("Searching:"), query)

	start := time.Now()
	track, err := a.resolver.Resolve(cmd.Context(), query)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s      %s\n", successStyle.Render("Found:"), track.Title)
	if track.Artist != "" {
		fmt.Fprintln(out, dimStyle.Render("  Artist:   "+track.Artist))
	}
	fmt.Fprintln(out, dimStyle.Render("  Duration: "+formatDuration(track.DurationSeconds)))
	fmt.Fprintln(out, dimStyle.Render("  URL:      "+track.SourceURL))
	fmt.Fprintln(out, dimStyle.Render("  Source:   "+track.ProviderName))
	fmt.Fprintln(out, dimStyle.Render(fmt.Sprintf("  Search:   %.1fs", time.Since(start).Seconds())))
	fmt.Fprintln(out)

	start = time.Now()
	bar := newProgressBar()
	id := a.orchestrator.StartDownload(track)
	task := waitForTask(a.registry, id, func(t domain.DownloadTask) {
		fmt.Fprint(out, "\r\033[K"+progressLine(bar, t))
	})
	fmt.Fprintln(out)

	waitCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = a.orchestrator.Wait(waitCtx)

	if task.Status == domain.StatusError {
		return errors.New(task.ErrorMessage)
	}

	audio := a.config.Download.Audio
	fmt.Fprintf(out, "\n%s\n", successStyle.Render("Done!"))
	fmt.Fprintf(out, "  File:     %s\n", task.Result.FilePath)
	fmt.Fprintf(out, "  Size:     %s\n", domain.HumanSize(task.Result.SizeBytes))
	fmt.Fprintf(out, "  Quality:  %d kbps %s\n", audio.BitrateKbps, strings.ToUpper(string(audio.Codec)))
	fmt.Fprintf(out, "  Time:     %.1fs\n", time.Since(start).Seconds())
	return nil
}

// waitForTask polls the registry until the task is terminal, reporting every
// change of status or percent
func waitForTask(registry *app.Registry, id string, onChange func(domain.DownloadTask)) domain.DownloadTask {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	var last domain.DownloadTask
	for {
		task, err := registry.Get(id)
		if err != nil {
			return domain.DownloadTask{ID: id, Status: domain.StatusError, ErrorMessage: err.Error()}
		}
		if task.Status != last.Status || task.Percent != last.Percent {
			onChange(task)
			last = task
		}
		if task.Status.IsTerminal() {
			return task
		}
		<-ticker.C
	}
}

// buildQuery prefixes the artist the way listings title songs
func buildQuery(song, artist string) string {
	song = strings.TrimSpace(song)
	if artist = strings.TrimSpace(artist); artist != "" {
		return artist + " - " + song
	}
	return song
}

func progressLine(bar progress.Model, t domain.DownloadTask) string {
	switch t.Status {
	case domain.StatusSearching:
		return "  Searching..."
	case domain.StatusConverting:
		return successStyle.Render("  Download complete, converting...")
	case domain.StatusDone:
		return "  " + bar.ViewAs(1)
	case domain.StatusError:
		return errorStyle.Render("  Failed")
	default:
		return "  " + bar.ViewAs(float64(t.Percent)/100)
	}
}

func formatDuration(seconds int) string {
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
