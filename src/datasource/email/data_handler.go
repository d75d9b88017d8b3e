// data_handler.go
package email

import (
	"fmt"

	"github.com/go-gota/gota/dataframe"

	"github.com/BioB3/Flight-within-USA-Displayer/src/datasource/file"
	"github.com/BioB3/Flight-within-USA-Displayer/src/utils"
)

// Frame 把附件内容读取为DataFrame，按扩展名区分csv和xlsx
func (a *Attachment) Frame(opts file.ReadOptions) (dataframe.DataFrame, error) {
	df, err := file.ReadBytes(a.Filename, a.Content, opts)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("读取附件 %s 失败: %w", a.Filename, err)
	}
	return df, nil
}

// Validate 附件可解析且包含全部必需列
func (a *Attachment) Validate(opts file.ReadOptions, columns ...string) error {
	df, err := a.Frame(opts)
	if err != nil {
		return err
	}
	if df.Nrow() == 0 {
		return fmt.Errorf("附件 %s 没有数据行", a.Filename)
	}
	if missing := utils.MissingColumns(df, columns...); len(missing) > 0 {
		return fmt.Errorf("附件 %s 缺少列: %v", a.Filename, missing)
	}
	return nil
}
