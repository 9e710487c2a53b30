package cursorkv

import "github.com/convoindex/convoindex/internal/logx"

func LogError(format string, args ...interface{}) { logx.Error(format, args...) }
func LogWarn(format string, args ...interface{})  { logx.Warn(format, args...) }
func LogInfo(format string, args ...interface{})  { logx.Info(format, args...) }
func LogDebug(format string, args ...interface{}) { logx.Debug(format, args...) }
