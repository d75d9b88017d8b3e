package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/BioB3/Flight-within-USA-Displayer/src/datasource/file"
	"github.com/BioB3/Flight-within-USA-Displayer/src/engine"
	"github.com/BioB3/Flight-within-USA-Displayer/src/storage"
)

// queryFile 查询文件，按顺序执行其中的查询
type queryFile struct {
	Queries []querySpec `yaml:"queries"`
}

// loadQueryFile 读取yaml查询文件
func loadQueryFile(path string) ([]querySpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取查询文件失败: %w", err)
	}

	var qf queryFile
	if err := yaml.Unmarshal(data, &qf); err != nil {
		return nil, fmt.Errorf("解析查询文件失败: %w", err)
	}
	if len(qf.Queries) == 0 {
		return nil, fmt.Errorf("查询文件 %s 中没有查询", path)
	}
	for i := range qf.Queries {
		if qf.Queries[i].Name == "" {
			qf.Queries[i].Name = fmt.Sprintf("query %d", i+1)
		}
	}
	return qf.Queries, nil
}

// runQueryFile 单个查询失败不影响后续查询
func runQueryFile(w io.Writer, eng *engine.Engine, logger *storage.Logger, path, exportDir string) error {
	queries, err := loadQueryFile(path)
	if err != nil {
		return err
	}

	var errs []error
	for _, q := range queries {
		if _, err := runQuery(w, eng, q, exportDir); err != nil {
			logger.Error(fmt.Sprintf("查询 %s 失败: %v", q.Name, err))
			_, _ = fmt.Fprintf(w, "%s: %v\n", q.Name, err)
			errs = append(errs, fmt.Errorf("%s: %w", q.Name, err))
		}
		_, _ = fmt.Fprintln(w)
	}
	return errors.Join(errs...)
}

// logStreamHandler 以chunked响应持续推送日志
func logStreamHandler(logger *storage.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Transfer-Encoding", "chunked")

		logChan := logger.Subscribe()
		defer logger.Unsubscribe(logChan)
		for {
			select {
			case msg, ok := <-logChan:
				// 日志关闭后通道被关闭
				if !ok {
					return
				}
				if _, err := fmt.Fprintln(w, msg); err != nil {
					return
				}
				if f, ok := w.(http.Flusher); ok {
					f.Flush()
				}
			case <-r.Context().Done():
				return
			}
		}
	}
}

// serveLogs ctx取消时关闭服务
func serveLogs(ctx context.Context, addr string, logger *storage.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/logs", logStreamHandler(logger))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("日志服务监听于 " + addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("日志服务异常退出: " + err.Error())
	}
}

func newWatchCmd(opts *rootOptions) *cobra.Command {
	var (
		logAddr     string
		rotateEvery time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch <queries.yaml>",
		Short: "Run the queries of a file and re-run them whenever it changes",
		Long: `Run every query listed in a YAML file, then keep watching the file and
re-run the queries each time it is saved. The log file is checked for
rotation periodically and can be streamed over HTTP with --log-addr.

A query without weeks includes every week of the month, and a query without
blocks includes every departure time block. An explicitly empty list such as
"weeks: []" is rejected because it would select no flights.`,
		Example: `  queries:
    - name: ABE to ATL
      by: flight
      keys: [ABE, ATL]
      kind: status
    - by: airline
      keys: ["20366"]
      weeks: [1, 2]
      blocks: [Morning]
      export: airline.xlsx`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			path := args[0]

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

			out := cmd.OutOrStdout()
			if err := runQueryFile(out, eng, a.logger, path, a.cfg.ExportDir); err != nil {
				a.logger.Warning(err.Error())
			}

			monitor, err := file.NewFileMonitor(path)
			if err != nil {
				return err
			}
			defer monitor.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			c := cron.New()
			err = c.AddFunc(fmt.Sprintf("@every %s", rotateEvery), func() {
				rotated, err := a.logger.CheckRotate()
				if err != nil {
					// 日志本身不可用，只能输出到标准错误
					fmt.Fprintln(os.Stderr, err)
					return
				}
				if rotated {
					a.logger.Info("日志文件已轮转")
				}
			})
			if err != nil {
				return fmt.Errorf("创建定时任务失败: %w", err)
			}
			c.Start()
			defer c.Stop()

			if logAddr != "" {
				go serveLogs(ctx, logAddr, a.logger)
			}

			a.logger.Info("开始监控查询文件: " + path)
			return monitor.Watch(ctx, func(name string) {
				a.logger.Info("查询文件已更新: " + name)
				if err := runQueryFile(out, eng, a.logger, name, a.cfg.ExportDir); err != nil {
					a.logger.Warning(err.Error())
				}
			})
		},
	}

	cmd.Flags().StringVar(&logAddr, "log-addr", "", "serve the live log at http://<addr>/logs")
	cmd.Flags().DurationVar(&rotateEvery, "rotate-every", time.Minute, "how often to check the log file size")
	return cmd
}
