package util

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// SetupLogging sends the standard logger to stderr and, when a log file is
// configured, to a size-rotated file as well. The returned closer flushes the
// file and may be nil.
func SetupLogging(conf *AppConfig) io.Closer {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	if conf.Conf.LogFile == "" {
		log.SetOutput(os.Stderr)
		return nil
	}

	rotating := &lumberjack.Logger{
		Filename:   conf.Conf.LogFile,
		MaxSize:    20, // megabytes
		MaxBackups: 5,
		MaxAge:     28, // days
		Compress:   true,
	}
	log.SetOutput(io.MultiWriter(os.Stderr, rotating))
	log.Printf("Logging to %s", conf.Conf.LogFile)
	return rotating
}
