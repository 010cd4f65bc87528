package services

import (
	"github.com/yeremiapane/hospital-app/utils"
)

func logInfo(format string, args ...interface{}) {
	if utils.InfoLogger != nil {
		utils.InfoLogger.Printf(format, args...)
	}
}

func logWarn(format string, args ...interface{}) {
	if utils.ErrorLogger != nil {
		utils.ErrorLogger.Printf(format, args...)
	}
}
