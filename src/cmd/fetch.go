package cmd

import (
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron"
	"github.com/spf13/cobra"

	"github.com/BioB3/Flight-within-USA-Displayer/src/datasource/email"
	"github.com/BioB3/Flight-within-USA-Displayer/src/datasource/file"
)

// attachmentHandler 只接受两个数据源文件，保存前校验必需列
func (a *app) attachmentHandler() *email.AttachmentHandler {
	cols := a.dcfg.Columns
	h := email.NewAttachmentHandler(a.cfg.Email.TargetSubject, a.cfg.DataDir, a.logger,
		email.SourceFile{Name: a.cfg.Primary, Columns: cols.PrimaryRequired()},
		email.SourceFile{Name: a.cfg.Secondary, Columns: cols.SecondaryRequired()},
	)
	h.ReadOptions = file.ReadOptions{SheetName: a.cfg.SheetName, Charset: a.cfg.Charset}
	return h
}

// fetchDatasets 查找最新的目标邮件并保存其中的数据源附件
func fetchDatasets(w io.Writer, a *app, svc email.MailService, h email.EmailHandler) ([]string, error) {
	latest, err := email.LatestDatasetEmail(svc, h.Query(), a.logger)
	if err != nil {
		return nil, err
	}
	if latest == nil {
		_, _ = fmt.Fprintln(w, "no dataset email found")
		return nil, nil
	}

	saved, err := h.Handle(latest)
	for _, p := range saved {
		_, _ = fmt.Fprintf(w, "saved %s\n", p)
	}
	if err != nil {
		return saved, fmt.Errorf("处理邮件失败(UID:%d): %w", latest.UID, err)
	}
	return saved, nil
}

func newFetchCmd(opts *rootOptions) *cobra.Command {
	var every time.Duration

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download dataset attachments from the configured mailbox",
		Long: `Search the mailbox for unseen email whose subject contains the configured
target subject and save the primary and secondary dataset attachments of the
newest one into the data directory. Both attachments must be present and valid
before either file is replaced. With --every the mailbox is checked periodically.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true

			a, err := opts.setup()
			if err != nil {
				return err
			}
			defer a.close()

			ec := a.cfg.Email
			client := email.NewEmailClient(ec.Server, ec.Username, ec.Password, time.Duration(ec.CheckInterval), a.logger)
			handler := a.attachmentHandler()

			if every <= 0 {
				_, err := fetchDatasets(cmd.OutOrStdout(), a, client, handler)
				return err
			}

			c := cron.New()
			spec := fmt.Sprintf("@every %s", every)
			err = c.AddFunc(spec, func() {
				a.logger.Info(fmt.Sprintf("开始定时检查(间隔: %v)...", every))
				if _, err := fetchDatasets(cmd.OutOrStdout(), a, client, handler); err != nil {
					a.logger.Error("检查处理邮件失败: " + err.Error())
				}
			})
			if err != nil {
				return fmt.Errorf("创建定时任务失败: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			c.Start()
			defer c.Stop()
			a.logger.Info(fmt.Sprintf("邮件监控服务已启动(检查间隔: %v)，按Ctrl+C退出", every))
			<-ctx.Done()
			a.logger.Info("收到退出信号，停止邮件监控")
			return nil
		},
	}

	cmd.Flags().DurationVar(&every, "every", 0, "check the mailbox periodically at this interval")
	return cmd
}
