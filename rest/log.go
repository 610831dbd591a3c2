package rest

import "github.com/neko233-com/iocrest-go/ioc"

func logDebug(format string, args ...any) { ioc.GetLogger().Debug(format, args...) }
func logInfo(format string, args ...any)  { ioc.GetLogger().Info(format, args...) }
func logWarn(format string, args ...any)  { ioc.GetLogger().Warn(format, args...) }
func logError(format string, args ...any) { ioc.GetLogger().Error(format, args...) }
