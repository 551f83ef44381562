package xe

import "github.com/go-orz/orz"

var (
	ErrInvalidParams        = orz.NewError(10400, "参数无效")
	ErrPairAlreadyMonitored = orz.NewError(10000, "该交易对已在监控中")
	ErrTradeNotFound        = orz.NewError(10001, "未找到该交易")
	ErrSignalUnrecognized   = orz.NewError(10002, "无法识别的信号格式")
	ErrMonitorNotRunning    = orz.NewError(10003, "监控尚未启动")
	ErrMonitorRunning       = orz.NewError(10004, "监控已在运行")
)
