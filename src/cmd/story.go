package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/BioB3/Flight-within-USA-Displayer/src/datasource/file"
	"github.com/BioB3/Flight-within-USA-Displayer/src/processor"
)

// printStory 输出整个数据集的概览
func printStory(w io.Writer, story processor.Story) error {
	_, _ = fmt.Fprintf(w, "%s\n\n", story.Summary)
	if err := renderCrossTab(w, "WEEK", story.WeekStatus); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(w)
	if err := renderCrossTab(w, "TIME_BLOCK", story.BlockStatus); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(w)
	if err := renderDaily(w, story.DailyDelay); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(w)
	return renderHistogram(w, story.DelayHistogram)
}

// exportStory 交叉表、每日延误和延误直方图分别写入工作表
func exportStory(path string, story processor.Story) error {
	frames := []file.NamedFrame{
		{Sheet: "week_status", Frame: story.WeekStatus.Frame("WEEK")},
		{Sheet: "block_status", Frame: story.BlockStatus.Frame("DEP_TIME_BLK")},
	}
	if len(story.DailyDelay) > 0 {
		frames = append(frames, file.NamedFrame{Sheet: "daily_delay", Frame: story.DailyFrame()})
	}
	frames = append(frames, file.NamedFrame{Sheet: "delay_histogram", Frame: story.HistogramFrame()})
	return file.SaveToExcel(path, frames...)
}

func newStoryCmd(opts *rootOptions) *cobra.Command {
	var export string

	cmd := &cobra.Command{
		Use:   "story",
		Short: "Describe the whole dataset",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true

			a, err := opts.setup()
			if err != nil {
				return err
			}
			defer a.close()

			eng, err := a.loadEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			story := eng.Story()
			if err := printStory(cmd.OutOrStdout(), story); err != nil {
				return err
			}
			if export == "" {
				return nil
			}
			path := exportPath(a.cfg.ExportDir, export)
			if err := exportStory(path, story); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "exported to %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&export, "export", "", "export the cross tables, daily delays and delay histogram to an .xlsx file")
	return cmd
}
